// Package cpu implements the LS-8 microprocessor, its loader, and its assembler.
//
// The CPU consists of a program counter (PC), eight 8-bit general-purpose
// registers (R0-R7), a flags register (FL), and 256 bytes of memory shared by
// code, data, and the stack. R7 is the stack pointer, and the stack grows down
// from 0xF4.
//
// Every instruction is one opcode byte followed by zero, one, or two operand
// bytes. The opcode encodes its own length in bits 7-6, marks ALU operations
// with bit 5, and marks instructions that set the PC themselves with bit 4.
//
// Programs are read either from binary-literal listings (one byte per line,
// written in base 2) or from assembly source.
package cpu
