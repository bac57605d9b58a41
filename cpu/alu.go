package cpu

// aluOp computes the new value of register A, and the new flags, from
// registers A and B and the current flags.
type aluOp func(a, b, fl uint8) (uint8, uint8)

// aluOps maps ALU class opcodes to their operation.
var aluOps = [256]aluOp{
	OP_ADD: doAdd,
	OP_MUL: doMul,
	OP_CMP: doCmp,
}

func doAdd(a, b, fl uint8) (uint8, uint8) {
	return a + b, fl
}

func doMul(a, b, fl uint8) (uint8, uint8) {
	return a * b, fl
}

// doCmp replaces the flags with the unsigned comparison of A to B.
func doCmp(a, b, fl uint8) (uint8, uint8) {
	switch {
	case a < b:
		fl = FL_LESS
	case a > b:
		fl = FL_GREATER
	default:
		fl = FL_EQUAL
	}
	return a, fl
}
