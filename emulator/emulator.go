// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"iter"
	"log"
	"maps"
	"slices"
	"strconv"

	"github.com/ezrec/microasm/cpu"
	"github.com/ezrec/microasm/internal"
	"github.com/ezrec/microasm/io"
)

const (
	CHECK_INTERVAL = 1024 // Steps between cancellation checks in Run.
)

// State is the execution state of an emulator.
//
//go:generate go tool stringer -linecomment -type=State
type State int

const (
	STATE_IDLE    = State(0) // idle
	STATE_RUNNING = State(1) // running
	STATE_HALTED  = State(2) // halted
	STATE_FAULTED = State(3) // faulted
)

// Emulator state. CPU + program + output and error logs.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program.
	MaxSteps int          // Step budget; zero or less is unbounded.

	Output io.Log     // OUT values, in decimal.
	Errors io.Log     // Runtime error messages.
	Echo   io.Channel // Optional second destination for OUT values.

	state      State
	fault      error
	breakpoint map[int]bool
}

var _ io.Channel = (*Emulator)(nil)

// NewEmulator creates an emulator for a program, with a step budget.
func NewEmulator(prog *cpu.Program, maxSteps int) (emu *Emulator) {
	if prog == nil {
		prog = &cpu.Program{}
	}

	emu = &Emulator{
		Cpu:        cpu.NewCpu(),
		Program:    prog,
		MaxSteps:   maxSteps,
		breakpoint: map[int]bool{},
	}

	emu.Cpu.SetChannel(emu)

	return
}

// Defines returns an iterator over the constants visible to programs
// run by this emulator.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	local := map[string]string{
		"MAX_STEPS": strconv.Itoa(emu.MaxSteps),
	}
	return internal.Concat2(maps.All(local), maps.All(cpu.Defines()))
}

// Reset the emulator to the idle state.
// Breakpoints are preserved.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Output.Reset()
	emu.Errors.Reset()
	emu.state = STATE_IDLE
	emu.fault = nil

	if emu.Verbose {
		log.Printf("emulator: reset, %v instructions, max steps %v", emu.Program.Len(), emu.MaxSteps)
	}
}

// Load replaces the program and resets the emulator.
func (emu *Emulator) Load(prog *cpu.Program) {
	emu.Program = prog
	clear(emu.breakpoint)
	emu.Reset()
}

// Send receives OUT values from the CPU.
func (emu *Emulator) Send(value int16) (err error) {
	err = emu.Output.Send(value)
	if err != nil {
		return
	}

	if emu.Echo != nil {
		err = emu.Echo.Send(value)
	}
	return
}

// State returns the execution state.
func (emu *Emulator) State() State {
	return emu.state
}

// Fault returns the error that stopped execution, if any.
func (emu *Emulator) Fault() error {
	return emu.fault
}

// Steps returns the number of instructions executed since a reset.
func (emu *Emulator) Steps() int {
	return emu.Cpu.Ticks
}

// LineNo returns the source line of the instruction at PC, or 0.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}
	return emu.Program.LineNo(emu.Cpu.Pc)
}

// SetBreakpoint sets or clears a breakpoint on a source line.
func (emu *Emulator) SetBreakpoint(lineno int, enable bool) {
	if enable {
		emu.breakpoint[lineno] = true
	} else {
		delete(emu.breakpoint, lineno)
	}
}

// Breakpoint returns true if the source line has a breakpoint.
func (emu *Emulator) Breakpoint(lineno int) bool {
	return emu.breakpoint[lineno]
}

// Breakpoints returns the breakpointed source lines in order.
func (emu *Emulator) Breakpoints() []int {
	return slices.Sorted(maps.Keys(emu.breakpoint))
}

// Tick performs a single step of the emulator.
// done is set once the machine has halted or faulted; a fault also
// returns the error, which is recorded in the error log.
func (emu *Emulator) Tick() (done bool, err error) {
	switch emu.state {
	case STATE_HALTED:
		done = true
		return
	case STATE_FAULTED:
		done = true
		err = emu.fault
		return
	}

	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose
	emu.state = STATE_RUNNING

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
			emu.fault = err
			emu.state = STATE_FAULTED
			emu.Errors.Append(err.Error())
			done = true
			if emu.Verbose {
				log.Printf("emulator: %v", err)
			}
			return
		}
		if done {
			emu.state = STATE_HALTED
		}
	}()

	if emu.Program == nil {
		err = ErrProgramMissing
		return
	}

	if emu.MaxSteps > 0 && emu.Cpu.Ticks >= emu.MaxSteps && emu.Cpu.Pc != emu.Program.Len() {
		err = ErrStepLimit(emu.MaxSteps)
		return
	}

	done, err = emu.Cpu.Step(emu.Program)

	return
}

// Run ticks until the program halts or faults, a breakpoint is reached,
// or ctx is done. The instruction at the starting PC always executes, so
// Run can continue from a breakpoint.
// done is false when stopped at a breakpoint or by ctx.
func (emu *Emulator) Run(ctx context.Context) (done bool, err error) {
	for n := 0; ; n++ {
		if n%CHECK_INTERVAL == 0 {
			err = ctx.Err()
			if err != nil {
				return
			}
		}

		if n > 0 && len(emu.breakpoint) > 0 && emu.breakpoint[emu.LineNo()] {
			return
		}

		done, err = emu.Tick()
		if done || err != nil {
			return
		}
	}
}
