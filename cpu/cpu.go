package cpu

import (
	"errors"
	"fmt"
	goio "io"
	"log"
	"os"
	"strings"

	"github.com/ezrec/ls8/io"
	"github.com/ezrec/ls8/translate"
)

// Channel is an output channel interface.
type Channel io.Channel

const (
	MEMORY_SIZE    = 256  // Bytes of memory.
	REGISTER_COUNT = 8    // General purpose registers.
	REG_SP         = 7    // Register used as the stack pointer.
	STACK_TOP      = 0xf4 // Initial stack pointer.
)

// Flags register bits, set by CMP.
const (
	FL_EQUAL   = uint8(0b001)
	FL_GREATER = uint8(0b010)
	FL_LESS    = uint8(0b100)
)

// Cpu is the simulation context for the LS-8.
type Cpu struct {
	Verbose    bool // Set to enable verbose logging.
	Tracing    bool // Set to log a trace line before each tick.
	Strict     bool // Unknown opcodes are errors, instead of being skipped.
	StackCheck bool // Stack overflow and underflow are errors, instead of wrapping.
	TickLimit  int  // If non-zero, Run stops after this many ticks.

	Memory   [MEMORY_SIZE]uint8    // Code, data and stack.
	Register [REGISTER_COUNT]uint8 // Register bank.
	Pc       uint8                 // Program counter.
	Fl       uint8                 // Flags register.
	Halted   bool                  // Set by HLT.

	Ticks       int // CPU ticks counter.
	ProgramSize int // Size of the last loaded program.

	Diagnostic goio.Writer // Destination of unknown opcode reports.

	channel Channel // PRN output.
}

// NewCpu creates a new CPU, printing to stdout.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Diagnostic: os.Stderr,
		channel:    &io.Tape{Output: os.Stdout},
	}

	cpu.Reset()

	return
}

// SetChannel sets the channel that receives PRN output.
func (cpu *Cpu) SetChannel(channel Channel) {
	cpu.channel = channel
}

// GetChannel returns the channel that receives PRN output.
func (cpu *Cpu) GetChannel() Channel {
	return cpu.channel
}

// Reset the CPU state.
// - Clears memory and registers.
// - Sets the stack pointer to STACK_TOP.
// - Zeros the PC, flags, and statistics counters.
// - Rewinds the output channel.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	clear(cpu.Register[:])
	cpu.Register[REG_SP] = STACK_TOP
	cpu.Pc = 0
	cpu.Fl = 0
	cpu.Halted = false
	cpu.Ticks = 0
	cpu.ProgramSize = 0

	if cpu.channel != nil {
		cpu.channel.Rewind()
	}
}

// Load writes a program into memory, starting at address 0.
// Memory is not modified if the program does not fit.
func (cpu *Cpu) Load(program []uint8) (err error) {
	if len(program) > MEMORY_SIZE {
		err = ErrProgramTooLarge
		return
	}

	copy(cpu.Memory[:], program)
	cpu.ProgramSize = len(program)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", len(program))
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc", "fl",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6", "sp",
		"stack",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			dis, _ := Disassemble(cpu.Memory[:], cpu.Pc)
			strval = fmt.Sprintf("%02X %v", cpu.Pc, dis)
		case "fl":
			strval = FlagString(cpu.Fl)
		case "r0", "r1", "r2", "r3", "r4", "r5", "r6":
			strval = fmt.Sprintf("%02X", cpu.Register[reg[1]-'0'])
		case "sp":
			strval = fmt.Sprintf("%02X", cpu.Register[REG_SP])
		case "stack":
			val, ok := cpu.Peek()
			if ok {
				strval = fmt.Sprintf("%02X (depth %d)", val, cpu.Depth())
			} else {
				strval = "--"
			}
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// FlagString returns the flags as "LGE", with '-' for clear bits.
func FlagString(fl uint8) string {
	var sb strings.Builder
	for _, bit := range []struct {
		mask uint8
		name byte
	}{{FL_LESS, 'L'}, {FL_GREATER, 'G'}, {FL_EQUAL, 'E'}} {
		if fl&bit.mask != 0 {
			sb.WriteByte(bit.name)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Trace returns a single line summary of the PC, the bytes at the PC,
// and the register bank.
func (cpu *Cpu) Trace() string {
	op, a, b := cpu.Fetch()

	var sb strings.Builder
	fmt.Fprintf(&sb, "TRACE: %02X | %02X %02X %02X |", cpu.Pc, uint8(op), a, b)
	for _, reg := range cpu.Register {
		fmt.Fprintf(&sb, " %02X", reg)
	}

	return sb.String()
}

// Fetch returns the opcode at the PC, and the two bytes that follow it.
// All three bytes are always read; addresses wrap at the end of memory.
func (cpu *Cpu) Fetch() (op Opcode, a, b uint8) {
	op = Opcode(cpu.Memory[cpu.Pc])
	a = cpu.Memory[cpu.Pc+1]
	b = cpu.Memory[cpu.Pc+2]
	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	if cpu.Halted {
		err = ErrHalted
		return
	}

	if cpu.Tracing {
		log.Print(cpu.Trace())
	}

	op, a, b := cpu.Fetch()

	err = cpu.Execute(op, a, b)
	if err != nil {
		return
	}

	cpu.Ticks += 1

	return
}

// Run ticks the CPU until it halts.
func (cpu *Cpu) Run() (err error) {
	for !cpu.Halted {
		if cpu.TickLimit > 0 && cpu.Ticks >= cpu.TickLimit {
			err = ErrTickLimit
			return
		}
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// reg returns the register selected by an operand byte.
// Only the low three bits of the operand are significant.
func (cpu *Cpu) reg(n uint8) *uint8 {
	return &cpu.Register[n&(REGISTER_COUNT-1)]
}

// Execute executes a single decoded instruction at the PC.
// On error, the PC and flags are left unchanged.
func (cpu *Cpu) Execute(op Opcode, a, b uint8) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode{Opcode: op, Pc: cpu.Pc}, err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%02x: %v", cpu.Pc, Format(op, a, b))
	}

	var next_pc uint8
	known := true

	switch op {
	case OP_HLT:
		cpu.Halted = true
	case OP_LDI:
		*cpu.reg(a) = b
	case OP_PRN:
		if cpu.channel != nil {
			err = cpu.channel.Send(*cpu.reg(a))
			if err != nil {
				err = errors.Join(ErrOpcodeOutput, err)
				return
			}
		}
	case OP_PUSH:
		err = cpu.PushRegister(a)
	case OP_POP:
		err = cpu.PopRegister(a)
	case OP_CALL:
		err = cpu.Push(cpu.Pc + 2)
		next_pc = *cpu.reg(a)
	case OP_RET:
		next_pc, err = cpu.Pop()
	case OP_JMP:
		next_pc = *cpu.reg(a)
	case OP_JEQ:
		if cpu.Fl&FL_EQUAL != 0 {
			next_pc = *cpu.reg(a)
		} else {
			next_pc = cpu.Pc + 2
		}
	case OP_JNE:
		if cpu.Fl&FL_EQUAL == 0 {
			next_pc = *cpu.reg(a)
		} else {
			next_pc = cpu.Pc + 2
		}
	default:
		alu := aluOps[op]
		if op.IsAlu() && alu != nil {
			ra := cpu.reg(a)
			*ra, cpu.Fl = alu(*ra, *cpu.reg(b), cpu.Fl)
			break
		}
		if cpu.Strict {
			err = ErrOpcodeUnknown
			return
		}
		known = false
		if cpu.Diagnostic != nil {
			fmt.Fprint(cpu.Diagnostic, translate.Line("unknown instruction 0b%08b at address 0b%08b", uint8(op), cpu.Pc))
		}
	}

	if err != nil {
		return
	}

	switch {
	case op == OP_HLT:
		// PC stays on the HLT.
	case known && op.SetsPc():
		cpu.Pc = next_pc
	default:
		cpu.Pc += op.Length()
	}

	return
}
