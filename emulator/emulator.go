// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/io"
)

// Emulator state. CPU + program listing + output channels.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Program listing, set by SetProgram.

	Temporary io.Temporary // Capture of all PRN output.
	Tape      io.Tape      // PRN output stream.
	Rom       io.Rom       // Program image loaded on reset.
}

// NewEmulator creates a new emulator, printing to stdout.
func NewEmulator(cfg Config) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	emu.Tape.Output = os.Stdout
	emu.Cpu.SetChannel(io.Tee{&emu.Tape, &emu.Temporary})

	emu.Configure(cfg)

	return
}

// Configure applies a configuration to the emulator and its CPU.
func (emu *Emulator) Configure(cfg Config) {
	emu.Verbose = cfg.Verbose
	emu.Cpu.Verbose = cfg.Verbose
	emu.Cpu.Tracing = cfg.Trace
	emu.Cpu.Strict = cfg.Strict
	emu.Cpu.StackCheck = cfg.StackCheck
	emu.Cpu.TickLimit = cfg.TickLimit
}

// SetProgram sets the program listing, and burns its image into the ROM.
// The CPU is not changed until the next Reset.
func (emu *Emulator) SetProgram(prog *cpu.Program) {
	emu.Program = prog
	emu.Rom.Burn(prog.Binary())
}

// Reset the CPU, and reload memory from the ROM.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Reset()

	err = emu.Cpu.Load(emu.Rom.Data)
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: reset, %d byte program", emu.Rom.Size())
	}

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// LineNo returns the source line number of the instruction at the PC,
// or 0 if the PC is outside of the program.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Line == nil {
		return 0
	}

	return dbg.LineNo
}

// Output returns all values printed since the last reset.
func (emu *Emulator) Output() []uint8 {
	return slices.Clone(emu.Temporary.Data)
}

// Tick performs a single tick of the emulator.
// done is set once the CPU has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	pc := emu.Cpu.Pc
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Pc: pc, Err: err}
		}
	}()

	if emu.Cpu.Halted {
		done = true
		return
	}

	err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	done = emu.Cpu.Halted

	return
}

// Run ticks the emulator until the CPU halts, fails, or reaches the
// tick limit.
func (emu *Emulator) Run() (err error) {
	for {
		if emu.Cpu.TickLimit > 0 && emu.Cpu.Ticks >= emu.Cpu.TickLimit {
			err = &ErrRuntime{LineNo: emu.LineNo(), Pc: emu.Cpu.Pc, Err: cpu.ErrTickLimit}
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}

// ReadProgram reads a program from a file. Files ending in '.asm' are
// assembled, all others are parsed as binary literal listings.
func ReadProgram(path string, verbose bool) (prog *cpu.Program, err error) {
	fh, err := os.Open(path)
	if err != nil {
		return
	}
	defer fh.Close()

	if strings.EqualFold(filepath.Ext(path), ".asm") {
		asm := &cpu.Assembler{Verbose: verbose}
		prog, err = asm.Parse(fh)
	} else {
		prog, err = cpu.ParseBinary(fh)
	}
	if err != nil {
		err = fmt.Errorf("%s: %w", path, err)
	}

	return
}
