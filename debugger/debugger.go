// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package debugger is an interactive step debugger for the LS-8 emulator.
//
// The debugger drives the emulator one tick at a time between commands.
// Commands are read from a line editor by Loop, or passed to Exec directly.
package debugger

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	"github.com/ezrec/ls8/internal"
)

const (
	DEFAULT_MEM_LEN = 32 // Bytes shown by 'mem'.
	DEFAULT_DIS_LEN = 8  // Instructions shown by 'dis'.
	PROMPT          = "ls8> "
)

// Debugger state.
type Debugger struct {
	*emulator.Emulator
	Output      io.Writer      // Destination of all command output.
	Breakpoints map[uint8]bool // Addresses that stop 'continue'.

	here  *color.Color
	alert *color.Color
	mark  *color.Color
}

// command is a debugger command handler.
type command struct {
	args  string
	usage string
	fn    func(dbg *Debugger, args []string) (quit bool, err error)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"step":     {"[N]", "execute N instructions (default 1)", (*Debugger).cmdStep},
		"continue": {"", "run until a breakpoint or halt", (*Debugger).cmdContinue},
		"break":    {"[ADDR]", "set a breakpoint, or list breakpoints", (*Debugger).cmdBreak},
		"delete":   {"ADDR", "delete a breakpoint", (*Debugger).cmdDelete},
		"regs":     {"", "show registers", (*Debugger).cmdRegs},
		"mem":      {"[ADDR [LEN]]", "show memory", (*Debugger).cmdMem},
		"dis":      {"[ADDR [N]]", "disassemble N instructions", (*Debugger).cmdDis},
		"reset":    {"", "reload the program", (*Debugger).cmdReset},
		"help":     {"", "show this help", (*Debugger).cmdHelp},
		"quit":     {"", "leave the debugger", (*Debugger).cmdQuit},
	}
}

// aliases are short forms of commands.
var aliases = map[string]string{
	"s":    "step",
	"c":    "continue",
	"cont": "continue",
	"b":    "break",
	"d":    "delete",
	"r":    "regs",
	"m":    "mem",
	"x":    "mem",
	"q":    "quit",
	"exit": "quit",
	"?":    "help",
}

// NewDebugger creates a debugger for an emulator that has been reset.
func NewDebugger(emu *emulator.Emulator, output io.Writer) (dbg *Debugger) {
	dbg = &Debugger{
		Emulator:    emu,
		Output:      output,
		Breakpoints: map[uint8]bool{},
		here:        color.New(color.FgGreen, color.Bold),
		alert:       color.New(color.FgRed, color.Bold),
		mark:        color.New(color.FgYellow),
	}

	return
}

// Exec executes a single command line.
func (dbg *Debugger) Exec(line string) (quit bool, err error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}

	name := strings.ToLower(words[0])
	if alias, ok := aliases[name]; ok {
		name = alias
	}

	cmd, ok := commands[name]
	if !ok {
		err = fmt.Errorf("%w: %v", ErrCommandUnknown, words[0])
		return
	}

	return cmd.fn(dbg, words[1:])
}

// Loop reads commands from the terminal until 'quit', or end of input.
func (dbg *Debugger) Loop() (err error) {
	state := liner.NewLiner()
	defer state.Close()

	state.SetCtrlCAborts(true)

	dbg.where()

	for {
		var line string
		line, err = state.Prompt(PROMPT)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			err = nil
			return
		}
		if err != nil {
			return
		}

		if len(strings.TrimSpace(line)) > 0 {
			state.AppendHistory(line)
		}

		quit, cerr := dbg.Exec(line)
		if cerr != nil {
			dbg.alert.Fprintln(dbg.Output, cerr)
		}
		if quit {
			return
		}
	}
}

// address parses a number, or looks up a program label.
func (dbg *Debugger) address(word string) (addr uint8, err error) {
	if pc, ok := dbg.Program.Labels[word]; ok {
		addr = uint8(pc)
		return
	}

	value, perr := strconv.ParseUint(word, 0, 8)
	if perr != nil {
		err = ErrAddress(word)
		return
	}

	addr = uint8(value)
	return
}

// count parses an optional positive count argument.
func count(args []string, n int, def int) (value int, err error) {
	value = def
	if len(args) <= n {
		return
	}

	v, perr := strconv.ParseUint(args[n], 0, 16)
	if perr != nil || v == 0 {
		err = cpu.ErrParseNumber(args[n])
		return
	}

	value = int(v)
	return
}

// where reports the current location.
func (dbg *Debugger) where() {
	text, _ := cpu.Disassemble(dbg.Cpu.Memory[:], dbg.Cpu.Pc)
	location := fmt.Sprintf("0x%02x: %v", dbg.Cpu.Pc, text)
	if lineno := dbg.LineNo(); lineno > 0 {
		location += fmt.Sprintf(" (line %d)", lineno)
	}

	dbg.here.Fprintln(dbg.Output, "=> "+location)

	if dbg.Cpu.Halted {
		dbg.alert.Fprintln(dbg.Output, f("halted after %d ticks", dbg.Cpu.Ticks))
	}
}

func (dbg *Debugger) cmdStep(args []string) (quit bool, err error) {
	if len(args) > 1 {
		err = ErrCommandArgs
		return
	}

	n, err := count(args, 0, 1)
	if err != nil {
		return
	}

	defer dbg.where()

	for range n {
		var done bool
		done, err = dbg.Tick()
		if err != nil || done {
			return
		}
	}

	return
}

func (dbg *Debugger) cmdContinue(args []string) (quit bool, err error) {
	if len(args) != 0 {
		err = ErrCommandArgs
		return
	}

	defer dbg.where()

	for {
		if dbg.Cpu.TickLimit > 0 && dbg.Cpu.Ticks >= dbg.Cpu.TickLimit {
			err = cpu.ErrTickLimit
			return
		}

		var done bool
		done, err = dbg.Tick()
		if err != nil || done {
			return
		}

		if dbg.Breakpoints[dbg.Cpu.Pc] {
			dbg.mark.Fprintln(dbg.Output, f("breakpoint at 0x%02x", dbg.Cpu.Pc))
			return
		}
	}
}

func (dbg *Debugger) cmdBreak(args []string) (quit bool, err error) {
	switch len(args) {
	case 0:
		for addr := range internal.Keys2(internal.Sorted2(maps.All(dbg.Breakpoints))) {
			text, _ := cpu.Disassemble(dbg.Cpu.Memory[:], addr)
			dbg.mark.Fprintf(dbg.Output, "* 0x%02x: %v\n", addr, text)
		}
		return
	case 1:
	default:
		err = ErrCommandArgs
		return
	}

	addr, err := dbg.address(args[0])
	if err != nil {
		return
	}

	dbg.Breakpoints[addr] = true
	fmt.Fprintln(dbg.Output, f("breakpoint set at 0x%02x", addr))

	return
}

func (dbg *Debugger) cmdDelete(args []string) (quit bool, err error) {
	if len(args) != 1 {
		err = ErrCommandArgs
		return
	}

	addr, err := dbg.address(args[0])
	if err != nil {
		return
	}

	if !dbg.Breakpoints[addr] {
		err = ErrBreakpointMissing
		return
	}

	delete(dbg.Breakpoints, addr)

	return
}

func (dbg *Debugger) cmdRegs(args []string) (quit bool, err error) {
	if len(args) != 0 {
		err = ErrCommandArgs
		return
	}

	err = dbg.registerTable(dbg.Output)
	return
}

func (dbg *Debugger) cmdMem(args []string) (quit bool, err error) {
	if len(args) > 2 {
		err = ErrCommandArgs
		return
	}

	addr := dbg.Cpu.Pc
	if len(args) > 0 {
		addr, err = dbg.address(args[0])
		if err != nil {
			return
		}
	}

	n, err := count(args, 1, DEFAULT_MEM_LEN)
	if err != nil {
		return
	}

	err = dbg.memoryTable(dbg.Output, addr, min(n, cpu.MEMORY_SIZE))
	return
}

func (dbg *Debugger) cmdDis(args []string) (quit bool, err error) {
	if len(args) > 2 {
		err = ErrCommandArgs
		return
	}

	addr := dbg.Cpu.Pc
	if len(args) > 0 {
		addr, err = dbg.address(args[0])
		if err != nil {
			return
		}
	}

	n, err := count(args, 1, DEFAULT_DIS_LEN)
	if err != nil {
		return
	}

	for range n {
		text, size := cpu.Disassemble(dbg.Cpu.Memory[:], addr)

		prefix := "  "
		if dbg.Breakpoints[addr] {
			prefix = dbg.mark.Sprint("* ")
		}

		line := fmt.Sprintf("0x%02x: %v", addr, text)
		if addr == dbg.Cpu.Pc {
			line = dbg.here.Sprint(line)
		}

		fmt.Fprintln(dbg.Output, prefix+line)
		addr += size
	}

	return
}

func (dbg *Debugger) cmdReset(args []string) (quit bool, err error) {
	if len(args) != 0 {
		err = ErrCommandArgs
		return
	}

	err = dbg.Reset()
	if err != nil {
		return
	}

	dbg.where()
	return
}

func (dbg *Debugger) cmdHelp(args []string) (quit bool, err error) {
	for name, cmd := range internal.Sorted2(maps.All(commands)) {
		fmt.Fprintf(dbg.Output, "%-20s %v\n", strings.TrimSpace(name+" "+cmd.args), f(cmd.usage))
	}
	return
}

func (dbg *Debugger) cmdQuit(args []string) (quit bool, err error) {
	quit = true
	return
}
