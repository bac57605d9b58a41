package cpu

import (
	"fmt"
	"strings"
)

// Format returns the assembly text of an instruction. Opcodes outside the
// instruction set are rendered as a .db directive covering the whole
// instruction, so the text assembles back to the same bytes.
func Format(op Opcode, a, b uint8) string {
	operands := []uint8{a, b}[:op.Operands()]

	ins, ok := op.Instruction()
	if !ok {
		words := []string{fmt.Sprintf("0b%08b", uint8(op))}
		for _, v := range operands {
			words = append(words, fmt.Sprintf("0x%02x", v))
		}
		return ".db " + strings.Join(words, ", ")
	}

	if len(ins.Args) == 0 {
		return ins.Mnemonic
	}

	words := make([]string, len(ins.Args))
	for n, arg := range ins.Args {
		switch arg {
		case ARG_REG:
			words[n] = fmt.Sprintf("R%d", operands[n]&(REGISTER_COUNT-1))
		case ARG_IMM:
			words[n] = fmt.Sprintf("%d", operands[n])
		}
	}

	return ins.Mnemonic + " " + strings.Join(words, ", ")
}

// Disassemble decodes the instruction at pc, returning its text and size.
// Addresses past the end of mem wrap to the start.
func Disassemble(mem []uint8, pc uint8) (text string, size uint8) {
	at := func(n int) uint8 {
		if len(mem) == 0 {
			return 0
		}
		return mem[n%len(mem)]
	}

	op := Opcode(at(int(pc)))
	text = Format(op, at(int(pc)+1), at(int(pc)+2))
	size = op.Length()

	return
}
