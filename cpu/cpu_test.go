package cpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/ls8/io"
)

// newTestCpu returns a CPU with the program loaded, recording its output
// and diagnostics.
func newTestCpu(t *testing.T, program ...uint8) (cpu *Cpu, out *io.Temporary, diag *bytes.Buffer) {
	t.Helper()

	out = &io.Temporary{}
	diag = &bytes.Buffer{}

	cpu = NewCpu()
	cpu.SetChannel(out)
	cpu.Diagnostic = diag

	err := cpu.Load(program)
	if err != nil {
		t.Fatal(err)
	}

	return
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu, out, _ := newTestCpu(t, 0x82, 0, 8, 0x47, 0, 0x01)
	assert.NoError(cpu.Run())
	assert.Equal([]uint8{8}, out.Data)

	cpu.Reset()

	assert.Equal([MEMORY_SIZE]uint8{}, cpu.Memory)
	assert.Equal([REGISTER_COUNT]uint8{0, 0, 0, 0, 0, 0, 0, STACK_TOP}, cpu.Register)
	assert.Equal(uint8(0), cpu.Pc)
	assert.Equal(uint8(0), cpu.Fl)
	assert.False(cpu.Halted)
	assert.Equal(0, cpu.Ticks)
	assert.Empty(out.Data)
}

func TestCpuLoad(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	cpu.Memory[10] = 0xaa

	assert.NoError(cpu.Load([]uint8{1, 2, 3}))
	assert.Equal([]uint8{1, 2, 3}, cpu.Memory[:3])
	assert.Equal(uint8(0xaa), cpu.Memory[10])
	assert.Equal(3, cpu.ProgramSize)

	full := make([]uint8, MEMORY_SIZE)
	assert.NoError(cpu.Load(full))

	cpu.Memory[0] = 0x55
	err := cpu.Load(make([]uint8, MEMORY_SIZE+1))
	assert.ErrorIs(err, ErrProgramTooLarge)
	assert.Equal(uint8(0x55), cpu.Memory[0])
}

func TestCpuPrint8(t *testing.T) {
	assert := assert.New(t)

	cpu, out, diag := newTestCpu(t,
		0b10000010, 0b00000000, 0b00001000, // LDI R0,8
		0b01000111, 0b00000000,             // PRN R0
		0b00000001,                         // HLT
	)

	assert.NoError(cpu.Run())
	assert.True(cpu.Halted)
	assert.Equal([]uint8{8}, out.Data)
	assert.Equal(uint8(5), cpu.Pc)
	assert.Equal(3, cpu.Ticks)
	assert.Empty(diag.String())
}

func TestCpuTape(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu()
	tape := &bytes.Buffer{}
	cpu.SetChannel(&io.Tape{Output: tape})
	assert.NoError(cpu.Load([]uint8{0x82, 0, 8, 0x47, 0, 0x01}))

	assert.NoError(cpu.Run())
	assert.Equal("8\n", tape.String())
}

func TestCpuLdiPrn(t *testing.T) {
	assert := assert.New(t)

	for reg := range uint8(REGISTER_COUNT) {
		for value := range 256 {
			cpu, out, _ := newTestCpu(t,
				uint8(OP_LDI), reg, uint8(value),
				uint8(OP_PRN), reg,
				uint8(OP_HLT),
			)
			err := cpu.Run()
			if !assert.NoError(err) {
				return
			}
			if !assert.Equal([]uint8{uint8(value)}, out.Data, "R%d = %d", reg, value) {
				return
			}
		}
	}
}

func TestCpuAlu(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		op   Opcode
		fn   func(x, y uint8) uint8
	}){
		{"add", OP_ADD, func(x, y uint8) uint8 { return uint8((int(x) + int(y)) % 256) }},
		{"mul", OP_MUL, func(x, y uint8) uint8 { return uint8((int(x) * int(y)) % 256) }},
	}

	for _, entry := range table {
		for x := range 256 {
			for y := range 256 {
				cpu, out, _ := newTestCpu(t,
					uint8(OP_LDI), 0, uint8(x),
					uint8(OP_LDI), 1, uint8(y),
					uint8(entry.op), 0, 1,
					uint8(OP_PRN), 0,
					uint8(OP_HLT),
				)
				assert.NoError(cpu.Run())
				expected := []uint8{entry.fn(uint8(x), uint8(y))}
				if !assert.Equal(expected, out.Data, "%v %d %d", entry.name, x, y) {
					return
				}
			}
		}
	}
}

func TestCpuCmpBranch(t *testing.T) {
	assert := assert.New(t)

	const target = 0x40

	table := [](struct {
		name  string
		op    Opcode
		taken func(a, b uint8) bool
	}){
		{"jeq", OP_JEQ, func(a, b uint8) bool { return a == b }},
		{"jne", OP_JNE, func(a, b uint8) bool { return a != b }},
	}

	for _, entry := range table {
		for a := range 256 {
			for b := range 256 {
				cpu, _, _ := newTestCpu(t,
					uint8(OP_LDI), 0, uint8(a), // 0
					uint8(OP_LDI), 1, uint8(b), // 3
					uint8(OP_LDI), 2, target,   // 6
					uint8(OP_CMP), 0, 1,        // 9
					uint8(entry.op), 2,         // 12
				)
				for range 4 {
					assert.NoError(cpu.Tick())
				}

				fl := cpu.Fl
				var want uint8
				switch {
				case a < b:
					want = FL_LESS
				case a > b:
					want = FL_GREATER
				default:
					want = FL_EQUAL
				}
				if !assert.Equal(want, fl, "cmp %d %d", a, b) {
					return
				}

				assert.NoError(cpu.Tick())
				expected := uint8(14)
				if entry.taken(uint8(a), uint8(b)) {
					expected = target
				}
				if !assert.Equal(expected, cpu.Pc, "%v %d %d", entry.name, a, b) {
					return
				}
			}
		}
	}
}

func TestCpuCmpClearsFlags(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(t)
	cpu.Fl = 0xff
	cpu.Register[0] = 1
	cpu.Register[1] = 2

	assert.NoError(cpu.Execute(OP_CMP, 0, 1))
	assert.Equal(FL_LESS, cpu.Fl)
	assert.Equal(uint8(1), cpu.Register[0])
	assert.Equal(uint8(3), cpu.Pc)
}

func TestCpuCallRet(t *testing.T) {
	assert := assert.New(t)

	cpu, out, _ := newTestCpu(t,
		uint8(OP_LDI), 1, 10, // 0
		uint8(OP_CALL), 1,    // 3
		uint8(OP_PRN), 0,     // 5
		uint8(OP_HLT),        // 7
		0, 0,                 // 8
		uint8(OP_LDI), 0, 99, // 10
		uint8(OP_RET),        // 13
	)

	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(10), cpu.Pc)
	assert.Equal(uint8(STACK_TOP-1), cpu.Register[REG_SP])
	assert.Equal(uint8(5), cpu.Memory[STACK_TOP-1])

	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(5), cpu.Pc)
	assert.Equal(uint8(STACK_TOP), cpu.Register[REG_SP])

	assert.NoError(cpu.Run())
	assert.Equal([]uint8{99}, out.Data)
}

func TestCpuPushPop(t *testing.T) {
	assert := assert.New(t)

	for reg := range uint8(REG_SP) {
		cpu, _, _ := newTestCpu(t,
			uint8(OP_LDI), reg, 42,
			uint8(OP_PUSH), reg,
			uint8(OP_POP), reg,
			uint8(OP_HLT),
		)
		assert.NoError(cpu.Tick())
		assert.NoError(cpu.Tick())
		assert.Equal(uint8(STACK_TOP-1), cpu.Register[REG_SP])
		assert.Equal(uint8(42), cpu.Memory[STACK_TOP-1])

		assert.NoError(cpu.Run())
		assert.Equal(uint8(42), cpu.Register[reg])
		assert.Equal(uint8(STACK_TOP), cpu.Register[REG_SP])
	}
}

func TestCpuPushPopOther(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(t,
		uint8(OP_LDI), 0, 1,
		uint8(OP_LDI), 1, 2,
		uint8(OP_PUSH), 0,
		uint8(OP_PUSH), 1,
		uint8(OP_POP), 0,
		uint8(OP_POP), 1,
		uint8(OP_HLT),
	)
	assert.NoError(cpu.Run())
	assert.Equal(uint8(2), cpu.Register[0])
	assert.Equal(uint8(1), cpu.Register[1])
	assert.Equal(uint8(STACK_TOP), cpu.Register[REG_SP])
}

func TestCpuJmp(t *testing.T) {
	assert := assert.New(t)

	cpu, out, _ := newTestCpu(t,
		uint8(OP_LDI), 0, 8, // 0
		uint8(OP_JMP), 0,    // 3
		uint8(OP_PRN), 0,    // 5
		uint8(OP_HLT),       // 7
		uint8(OP_LDI), 1, 7, // 8
		uint8(OP_PRN), 1,    // 11
		uint8(OP_HLT),       // 13
	)
	assert.NoError(cpu.Run())
	assert.Equal([]uint8{7}, out.Data)
	assert.Equal(uint8(13), cpu.Pc)
}

func TestCpuUnknownOpcode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		op   Opcode
		next uint8
	}){
		{"nop", Opcode(0b0000_0000), 1},
		{"alu", Opcode(0b1010_0101), 3},
		{"one", Opcode(0b0100_0000), 2},
		{"sets_pc", Opcode(0b0101_1111), 2},
		{"alu_one", Opcode(0b0110_0000), 2},
	}

	for _, entry := range table {
		cpu, out, diag := newTestCpu(t, uint8(entry.op), 0xff, 0xff, uint8(OP_HLT))
		cpu.Memory[entry.next] = uint8(OP_HLT)

		assert.NoError(cpu.Tick(), entry.name)
		assert.False(cpu.Halted, entry.name)
		assert.Equal(entry.next, cpu.Pc, entry.name)
		assert.Contains(diag.String(), "0b"+binary(uint8(entry.op)), entry.name)
		assert.Contains(diag.String(), "address 0b00000000", entry.name)

		assert.NoError(cpu.Run(), entry.name)
		assert.True(cpu.Halted, entry.name)
		assert.Empty(out.Data, entry.name)
	}
}

func binary(value uint8) string {
	text := make([]byte, 8)
	for n := range 8 {
		text[7-n] = '0' + (value>>n)&1
	}
	return string(text)
}

func TestCpuUnknownOpcodeStrict(t *testing.T) {
	assert := assert.New(t)

	cpu, _, diag := newTestCpu(t, uint8(OP_LDI), 0, 1, 0b1010_0101, 0, 0, uint8(OP_HLT))
	cpu.Strict = true

	assert.NoError(cpu.Tick())
	err := cpu.Tick()
	assert.ErrorIs(err, ErrOpcodeUnknown)
	assert.ErrorIs(err, ErrOpcode{})

	var eo ErrOpcode
	assert.True(errors.As(err, &eo))
	assert.Equal(Opcode(0b1010_0101), eo.Opcode)
	assert.Equal(uint8(3), eo.Pc)

	assert.Equal(uint8(3), cpu.Pc)
	assert.False(cpu.Halted)
	assert.Empty(diag.String())

	err = cpu.Run()
	assert.ErrorIs(err, ErrOpcodeUnknown)
}

func TestCpuFetchWraps(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(t, 42, uint8(OP_HLT))
	cpu.Memory[0xfe] = uint8(OP_LDI)
	cpu.Memory[0xff] = 3
	cpu.Pc = 0xfe

	op, a, b := cpu.Fetch()
	assert.Equal(OP_LDI, op)
	assert.Equal(uint8(3), a)
	assert.Equal(uint8(42), b)

	assert.NoError(cpu.Tick())
	assert.Equal(uint8(42), cpu.Register[3])
	assert.Equal(uint8(1), cpu.Pc)

	assert.NoError(cpu.Run())
	assert.True(cpu.Halted)
}

func TestCpuFetchLastByte(t *testing.T) {
	assert := assert.New(t)

	cpu, out, _ := newTestCpu(t, 0)
	cpu.Memory[0] = 0
	cpu.Memory[0xff] = uint8(OP_PRN)
	cpu.Memory[2] = uint8(OP_HLT)
	cpu.Register[0] = 7
	cpu.Pc = 0xff

	assert.NoError(cpu.Run())
	assert.Equal([]uint8{7}, out.Data)
	assert.Equal(uint8(2), cpu.Pc)
}

func TestCpuRegisterOperandMasked(t *testing.T) {
	assert := assert.New(t)

	cpu, out, _ := newTestCpu(t,
		uint8(OP_LDI), 0x09, 5,
		uint8(OP_PRN), 0xf9,
		uint8(OP_HLT),
	)
	assert.NoError(cpu.Run())
	assert.Equal(uint8(5), cpu.Register[1])
	assert.Equal([]uint8{5}, out.Data)
}

func TestCpuHalted(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(t, uint8(OP_HLT))
	assert.NoError(cpu.Tick())
	assert.True(cpu.Halted)
	assert.Equal(uint8(0), cpu.Pc)

	assert.ErrorIs(cpu.Tick(), ErrHalted)
	assert.NoError(cpu.Run())
	assert.Equal(1, cpu.Ticks)
}

func TestCpuTickLimit(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(t,
		uint8(OP_LDI), 0, 3,
		uint8(OP_JMP), 0,
	)
	cpu.TickLimit = 100

	assert.ErrorIs(cpu.Run(), ErrTickLimit)
	assert.Equal(100, cpu.Ticks)
	assert.False(cpu.Halted)
}

func TestCpuOutputError(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(t, uint8(OP_PRN), 0, uint8(OP_HLT))
	cpu.SetChannel(&io.Temporary{Capacity: 1, Data: []uint8{0}})

	err := cpu.Tick()
	assert.ErrorIs(err, ErrOpcodeOutput)
	assert.ErrorIs(err, io.ErrChannelFull)
	assert.Equal(uint8(0), cpu.Pc)
}

func TestCpuTrace(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(t, 0x82, 0, 8, 0x47, 0, 0x01)
	assert.Equal("TRACE: 00 | 82 00 08 | 00 00 00 00 00 00 00 F4", cpu.Trace())

	assert.NoError(cpu.Tick())
	assert.Equal("TRACE: 03 | 47 00 01 | 08 00 00 00 00 00 00 F4", cpu.Trace())
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu, _, _ := newTestCpu(t, 0x82, 0, 8, 0x47, 0, 0x01)
	text := cpu.String()
	assert.Contains(text, "   pc: 00 LDI R0, 8\n")
	assert.Contains(text, "   fl: ---\n")
	assert.Contains(text, "   sp: F4\n")
	assert.Contains(text, "stack: --\n")

	assert.NoError(cpu.Push(0x12))
	cpu.Fl = FL_GREATER
	text = cpu.String()
	assert.Contains(text, "stack: 12 (depth 1)\n")
	assert.Contains(text, "   fl: -G-\n")
}

func TestFlagString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("---", FlagString(0))
	assert.Equal("--E", FlagString(FL_EQUAL))
	assert.Equal("L--", FlagString(FL_LESS))
	assert.Equal("LGE", FlagString(0xff))
}
