package cpu

import (
	"strings"
)

// Opcode is a MicroASM instruction mnemonic.
type Opcode int

const (
	OP_MOV  = Opcode(0)  // MOV
	OP_PUSH = Opcode(1)  // PUSH
	OP_POP  = Opcode(2)  // POP
	OP_ADD  = Opcode(3)  // ADD
	OP_SUB  = Opcode(4)  // SUB
	OP_MOL  = Opcode(5)  // MOL
	OP_DIV  = Opcode(6)  // DIV
	OP_INC  = Opcode(7)  // INC
	OP_DEC  = Opcode(8)  // DEC
	OP_AND  = Opcode(9)  // AND
	OP_OR   = Opcode(10) // OR
	OP_NOT  = Opcode(11) // NOT
	OP_JMP  = Opcode(12) // JMP
	OP_JZ   = Opcode(13) // JZ
	OP_JNZ  = Opcode(14) // JNZ
	OP_JS   = Opcode(15) // JS
	OP_JNS  = Opcode(16) // JNS
	OP_CALL = Opcode(17) // CALL
	OP_RET  = Opcode(18) // RET
	OP_CMP  = Opcode(19) // CMP
	OP_OUT  = Opcode(20) // OUT
	OP_HLT  = Opcode(21) // HLT

	OPCODE_COUNT = 22
)

var opcodeName = [OPCODE_COUNT]string{
	"MOV", "PUSH", "POP",
	"ADD", "SUB", "MOL", "DIV", "INC", "DEC",
	"AND", "OR", "NOT",
	"JMP", "JZ", "JNZ", "JS", "JNS", "CALL", "RET",
	"CMP", "OUT", "HLT",
}

// opcodeMap is the closed mnemonic vocabulary, keyed by uppercase name.
var opcodeMap = func() map[string]Opcode {
	m := make(map[string]Opcode, OPCODE_COUNT)
	for n, name := range opcodeName {
		m[name] = Opcode(n)
	}
	return m
}()

// LookupOpcode returns the opcode for a mnemonic, ignoring case.
func LookupOpcode(word string) (op Opcode, ok bool) {
	op, ok = opcodeMap[strings.ToUpper(word)]
	return
}

// Opcodes returns the mnemonic vocabulary in opcode order.
func Opcodes() (names []string) {
	names = append(names, opcodeName[:]...)
	return
}

func (op Opcode) String() string {
	if op < 0 || op >= OPCODE_COUNT {
		return "???"
	}
	return opcodeName[op]
}

// IsBranch returns true for opcodes whose single operand is a jump target.
func (op Opcode) IsBranch() bool {
	switch op {
	case OP_JMP, OP_JZ, OP_JNZ, OP_JS, OP_JNS, OP_CALL:
		return true
	}
	return false
}

// Arity returns the minimum and maximum operand counts of the opcode.
func (op Opcode) Arity() (min, max int) {
	switch op {
	case OP_RET, OP_HLT:
		return 0, 0
	case OP_PUSH, OP_POP, OP_INC, OP_DEC,
		OP_JMP, OP_JZ, OP_JNZ, OP_JS, OP_JNS, OP_CALL, OP_OUT:
		return 1, 1
	case OP_NOT:
		return 1, 2
	default:
		return 2, 2
	}
}

// Instruction is one parsed line of MicroASM source.
type Instruction struct {
	LineNo   int       // 1-based source line.
	Label    string    // Label attached to this instruction, if any.
	Opcode   Opcode    // Decoded opcode.
	Operands []string  // Raw operand tokens.
	Line     string    // Trimmed source text.
	Args     []Operand // Decoded operands, parallel to Operands.
}

// Arg returns the n'th operand, decoding the raw token if the
// instruction was not produced by the assembler.
func (inst *Instruction) Arg(n int) (arg Operand, err error) {
	if n >= len(inst.Operands) {
		err = ErrOperandMissing
		return
	}

	if n < len(inst.Args) {
		arg = inst.Args[n]
		return
	}

	arg, err = ValidateOperand(inst.Operands[n])
	return
}

func (inst *Instruction) String() string {
	if len(inst.Operands) == 0 {
		return inst.Opcode.String()
	}
	return inst.Opcode.String() + " " + strings.Join(inst.Operands, ", ")
}
