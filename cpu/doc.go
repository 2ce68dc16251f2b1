// Package cpu implements the MicroASM virtual machine and its assembler.
//
// The CPU consists of a program counter (PC) indexing the parsed instruction
// list, four 16-bit signed general-purpose registers (r0-r3), zero and sign
// flags, and 256 cells of memory whose top doubles as a downward-growing
// stack addressed by the stack pointer (SP).
//
// The assembler parses MicroASM source into a Program: a list of
// Instructions with decoded operands, plus a table of labels. Operands may
// use $(...) compile-time expressions over predefined constants.
package cpu
