package cpu

import (
	"fmt"
	"strings"
)

// Opcode is the first byte of an instruction.
type Opcode uint8

const (
	OP_HLT  = Opcode(0b0000_0001) // HLT
	OP_LDI  = Opcode(0b1000_0010) // LDI
	OP_PRN  = Opcode(0b0100_0111) // PRN
	OP_PUSH = Opcode(0b0100_0101) // PUSH
	OP_POP  = Opcode(0b0100_0110) // POP
	OP_CALL = Opcode(0b0101_0000) // CALL
	OP_RET  = Opcode(0b0001_0001) // RET
	OP_JMP  = Opcode(0b0101_0100) // JMP
	OP_JEQ  = Opcode(0b0101_0101) // JEQ
	OP_JNE  = Opcode(0b0101_0110) // JNE
	OP_ADD  = Opcode(0b1010_0000) // ADD
	OP_MUL  = Opcode(0b1010_0010) // MUL
	OP_CMP  = Opcode(0b1010_0111) // CMP
)

// Opcode bit fields.
const (
	OPCODE_TWO_OPERANDS = 0b1000_0000 // 3 byte instruction.
	OPCODE_ONE_OPERAND  = 0b0100_0000 // 2 byte instruction.
	OPCODE_ALU          = 0b0010_0000 // Dispatched through the ALU.
	OPCODE_SETS_PC      = 0b0001_0000 // Instruction sets the PC itself.
)

// CodeArg is the kind of an instruction operand.
type CodeArg int

const (
	ARG_REG = CodeArg(0) // register index
	ARG_IMM = CodeArg(1) // immediate byte
)

// Instruction describes a member of the instruction set.
type Instruction struct {
	Mnemonic string
	Args     []CodeArg
}

var instructionSet = map[Opcode]Instruction{
	OP_HLT:  {"HLT", nil},
	OP_LDI:  {"LDI", []CodeArg{ARG_REG, ARG_IMM}},
	OP_PRN:  {"PRN", []CodeArg{ARG_REG}},
	OP_PUSH: {"PUSH", []CodeArg{ARG_REG}},
	OP_POP:  {"POP", []CodeArg{ARG_REG}},
	OP_CALL: {"CALL", []CodeArg{ARG_REG}},
	OP_RET:  {"RET", nil},
	OP_JMP:  {"JMP", []CodeArg{ARG_REG}},
	OP_JEQ:  {"JEQ", []CodeArg{ARG_REG}},
	OP_JNE:  {"JNE", []CodeArg{ARG_REG}},
	OP_ADD:  {"ADD", []CodeArg{ARG_REG, ARG_REG}},
	OP_MUL:  {"MUL", []CodeArg{ARG_REG, ARG_REG}},
	OP_CMP:  {"CMP", []CodeArg{ARG_REG, ARG_REG}},
}

var mnemonicMap = func() map[string]Opcode {
	m := make(map[string]Opcode, len(instructionSet))
	for op, ins := range instructionSet {
		m[ins.Mnemonic] = op
	}
	return m
}()

// LookupMnemonic returns the opcode for a mnemonic, ignoring case.
func LookupMnemonic(name string) (op Opcode, ok bool) {
	op, ok = mnemonicMap[strings.ToUpper(name)]
	return
}

// Instruction returns the instruction set entry for the opcode.
func (op Opcode) Instruction() (ins Instruction, ok bool) {
	ins, ok = instructionSet[op]
	return
}

// Known returns true if the opcode is a member of the instruction set.
func (op Opcode) Known() bool {
	_, ok := instructionSet[op]
	return ok
}

// Operands returns the number of operand bytes that follow the opcode.
func (op Opcode) Operands() int {
	switch {
	case op&OPCODE_TWO_OPERANDS != 0:
		return 2
	case op&OPCODE_ONE_OPERAND != 0:
		return 1
	}
	return 0
}

// Length returns the size of the instruction, in bytes.
func (op Opcode) Length() uint8 {
	return uint8(op.Operands()) + 1
}

// IsAlu returns true if the opcode is ALU class.
func (op Opcode) IsAlu() bool {
	return op&OPCODE_ALU != 0
}

// SetsPc returns true if the instruction updates the PC itself.
func (op Opcode) SetsPc() bool {
	return op&OPCODE_SETS_PC != 0
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	ins, ok := instructionSet[op]
	if !ok {
		return fmt.Sprintf("??%08b", uint8(op))
	}
	return ins.Mnemonic
}
