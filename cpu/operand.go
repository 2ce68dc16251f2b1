package cpu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	REGISTER_COUNT = 4      // General purpose registers r0-r3.
	MEMORY_SIZE    = 256    // Memory cells.
	WORD_MIN       = -32768 // Smallest register value.
	WORD_MAX       = 32767  // Largest register value.
)

// OperandKind is the decoded shape of an operand token.
//
//go:generate go tool stringer -linecomment -type=OperandKind
type OperandKind int

const (
	OPERAND_REGISTER  = OperandKind(0) // register
	OPERAND_IMMEDIATE = OperandKind(1) // immediate
	OPERAND_DIRECT    = OperandKind(2) // direct memory
	OPERAND_INDIRECT  = OperandKind(3) // indirect memory
	OPERAND_LABEL     = OperandKind(4) // label
)

// Operand is a decoded operand.
//   - OPERAND_REGISTER: Value is the register index.
//   - OPERAND_IMMEDIATE: Value is the literal.
//   - OPERAND_DIRECT: Value is the memory address.
//   - OPERAND_INDIRECT: Value is the index of the register holding the address.
//   - OPERAND_LABEL: Label is the uppercased label name.
type Operand struct {
	Kind  OperandKind
	Value int
	Label string
}

func (arg Operand) String() string {
	switch arg.Kind {
	case OPERAND_REGISTER:
		return fmt.Sprintf("R%d", arg.Value)
	case OPERAND_IMMEDIATE:
		return strconv.Itoa(arg.Value)
	case OPERAND_DIRECT:
		return fmt.Sprintf("[%d]", arg.Value)
	case OPERAND_INDIRECT:
		return fmt.Sprintf("[R%d]", arg.Value)
	case OPERAND_LABEL:
		return arg.Label
	}
	return "?"
}

// Memory returns true if the operand references a memory cell.
func (arg Operand) Memory() bool {
	return arg.Kind == OPERAND_DIRECT || arg.Kind == OPERAND_INDIRECT
}

var (
	reRegister  = regexp.MustCompile(`^[Rr][0-3]$`)
	reImmediate = regexp.MustCompile(`^[+-]?[0-9]+$`)
	reMemory    = regexp.MustCompile(`^\[\s*([^\[\]]*?)\s*\]$`)
	reRegName   = regexp.MustCompile(`^[Rr][0-9]+$`)
	reLabel     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidateOperand classifies and range checks a single operand token.
func ValidateOperand(token string) (arg Operand, err error) {
	defer func() {
		if err != nil {
			err = &ErrOperand{Token: token, Err: err}
		}
	}()

	switch {
	case reRegister.MatchString(token):
		arg = Operand{Kind: OPERAND_REGISTER, Value: int(token[1] - '0')}
		return
	case reImmediate.MatchString(token):
		var value int
		value, err = parseWord(token, WORD_MIN, WORD_MAX)
		if err != nil {
			return
		}
		arg = Operand{Kind: OPERAND_IMMEDIATE, Value: value}
		return
	}

	match := reMemory.FindStringSubmatch(token)
	if match != nil {
		inner := match[1]
		switch {
		case reImmediate.MatchString(inner):
			var addr int
			addr, err = parseWord(inner, 0, MEMORY_SIZE-1)
			if err != nil {
				err = ErrMemoryRange
				return
			}
			arg = Operand{Kind: OPERAND_DIRECT, Value: addr}
		case reRegister.MatchString(inner):
			arg = Operand{Kind: OPERAND_INDIRECT, Value: int(inner[1] - '0')}
		case reRegName.MatchString(inner):
			err = ErrRegisterInvalid
		default:
			err = ErrOperandFormat
		}
		return
	}

	if reLabel.MatchString(token) {
		arg = Operand{Kind: OPERAND_LABEL, Label: strings.ToUpper(token)}
		return
	}

	err = ErrOperandFormat
	return
}

// parseWord parses a decimal literal, bounded to [lo, hi].
func parseWord(text string, lo, hi int) (value int, err error) {
	v64, err := strconv.ParseInt(text, 10, 64)
	if err != nil || v64 < int64(lo) || v64 > int64(hi) {
		err = ErrImmediateRange
		return
	}

	value = int(v64)
	return
}

// Wrap truncates a value to the 16-bit signed register range
// (modulo 65536, re-biased to [-32768, 32767]).
func Wrap(value int) int16 {
	return int16(value)
}
