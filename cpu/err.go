package cpu

import (
	"errors"
	"strconv"

	"github.com/ezrec/microasm/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrStackEmpty     = errors.New(f("stack underflow"))
	ErrStackFull      = errors.New(f("stack overflow"))
	ErrMemoryRange    = errors.New(f("memory address out of range"))
	ErrDivideByZero   = errors.New(f("division by zero"))
	ErrReturnAddress  = errors.New(f("return address out of range"))
	ErrPcRange        = errors.New(f("pc out of range"))
	ErrChannelInvalid = errors.New(f("no output channel"))

	// Operand errors
	ErrOperandFormat   = errors.New(f("invalid operand format"))
	ErrOperandKind     = errors.New(f("invalid operand kind"))
	ErrOperandMissing  = errors.New(f("operand missing"))
	ErrOperandExtra    = errors.New(f("excessive operands"))
	ErrImmediateRange  = errors.New(f("immediate out of range"))
	ErrRegisterInvalid = errors.New(f("register invalid"))

	// Assembler errors
	ErrTargetMissing = errors.New(f("missing label operand"))
)

// ErrInstructionInvalid is an unknown mnemonic.
type ErrInstructionInvalid string

func (ei ErrInstructionInvalid) Error() string {
	return f("invalid instruction: %v", string(ei))
}

func (ei ErrInstructionInvalid) Is(err error) (ok bool) {
	_, ok = err.(ErrInstructionInvalid)
	return
}

// ErrLabelMissing is a reference to a label that is never defined.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("undefined label %v", string(el))
}

func (el ErrLabelMissing) Is(err error) (ok bool) {
	_, ok = err.(ErrLabelMissing)
	return
}

// ErrOperand locates an operand validation failure.
type ErrOperand struct {
	Token string
	Err   error
}

func (err *ErrOperand) Error() string {
	return f("operand '%v' %v", err.Token, err.Err)
}

func (err *ErrOperand) Unwrap() error {
	return err.Err
}

// ErrSyntax locates a parse failure.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %v '%v' %v", strconv.Itoa(err.LineNo), err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrParseExpression is a $(...) expression that does not evaluate to an integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

func (err ErrParseExpression) Is(target error) (ok bool) {
	_, ok = target.(ErrParseExpression)
	return
}
