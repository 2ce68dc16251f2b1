package emulator

import (
	"errors"
	"strconv"

	"github.com/ezrec/microasm/translate"
)

var f = translate.From

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return err.Err.Error()
	}
	return f("line %v %v", strconv.Itoa(err.LineNo), err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrStepLimit indicates the run exceeded its step budget.
type ErrStepLimit int

func (err ErrStepLimit) Error() string {
	return f("step limit %v exceeded", strconv.Itoa(int(err)))
}

func (err ErrStepLimit) Is(target error) (ok bool) {
	_, ok = target.(ErrStepLimit)
	return
}

var (
	ErrProgramMissing = errors.New(f("no program loaded"))
)
