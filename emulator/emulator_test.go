package emulator

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/microasm/cpu"
	"github.com/ezrec/microasm/io"
)

var factorial = []string{
	"MOV R0, 5",
	"MOV R1, 1",
	"loop: CMP R0, 0",
	"JZ end",
	"MOL R1, R0",
	"DEC R0",
	"JMP loop",
	"end: OUT R1",
	"HLT",
}

func parse(t *testing.T, program ...string) (prog *cpu.Program) {
	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	require.NoError(t, err)
	return
}

// doRunSingle ticks an emulator until done, checking the state each step.
func doRunSingle(t *testing.T, emu *Emulator) (err error) {
	assert := assert.New(t)

	for range 10000 {
		var done bool
		done, err = emu.Tick()
		if done {
			return
		}
		assert.NoError(err)
		assert.Equal(STATE_RUNNING, emu.State())
	}

	t.Fatalf("emulator did not halt")
	return
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil, 0)

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.Equal(0, emu.Program.Len())
	assert.Equal(STATE_IDLE, emu.State())
	assert.Nil(emu.Fault())
	assert.Equal(cpu.STACK_BASE, emu.Cpu.Sp)

	// An empty program halts immediately.
	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
	assert.Equal(STATE_HALTED, emu.State())
}

func TestEmulatorFactorial(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(parse(t, factorial...), 1000)
	err := doRunSingle(t, emu)
	assert.NoError(err)

	assert.Equal(STATE_HALTED, emu.State())
	assert.Equal([]string{"120"}, emu.Output.Lines())
	assert.Equal(0, emu.Errors.Len())
	assert.Equal(9, emu.LineNo())

	// Further ticks stay halted.
	done, err := emu.Tick()
	assert.True(done)
	assert.NoError(err)
	assert.Equal(STATE_HALTED, emu.State())
}

func TestEmulatorFault(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(parse(t,
		"MOV R0, 10",
		"; divide",
		"DIV R0, 0",
		"OUT R0",
	), 0)

	err := doRunSingle(t, emu)
	assert.ErrorIs(err, cpu.ErrDivideByZero)

	var rt *ErrRuntime
	if assert.True(errors.As(err, &rt)) {
		assert.Equal(3, rt.LineNo)
	}

	assert.Equal(STATE_FAULTED, emu.State())
	assert.Equal(err, emu.Fault())
	assert.Empty(emu.Output.Lines())
	assert.Equal([]string{err.Error()}, emu.Errors.Lines())
	assert.Contains(err.Error(), "line 3")
	assert.Equal(int16(10), emu.Cpu.Register[0])
	assert.Equal(1, emu.Cpu.Pc)

	// The fault is sticky, and logged once.
	done, err2 := emu.Tick()
	assert.True(done)
	assert.Equal(err, err2)
	assert.Equal(1, emu.Errors.Len())

	// Reset clears the fault.
	emu.Reset()
	assert.Equal(STATE_IDLE, emu.State())
	assert.Nil(emu.Fault())
	assert.Equal(0, emu.Errors.Len())
	assert.Equal(0, emu.Cpu.Pc)
	assert.Equal(int16(0), emu.Cpu.Register[0])
}

func TestEmulatorStackUnderflow(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(parse(t, "POP R0"), 0)
	err := doRunSingle(t, emu)
	assert.ErrorIs(err, cpu.ErrStackEmpty)
	assert.Equal(STATE_FAULTED, emu.State())
	assert.Contains(emu.Errors.Lines()[0], "stack underflow")
}

func TestEmulatorStepLimit(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(parse(t, "loop: JMP loop"), 10)
	err := doRunSingle(t, emu)
	assert.ErrorIs(err, ErrStepLimit(0))
	assert.Equal(10, emu.Steps())
	assert.Equal(STATE_FAULTED, emu.State())
	assert.Equal(1, emu.Errors.Len())

	var rt *ErrRuntime
	if assert.True(errors.As(err, &rt)) {
		assert.Equal(1, rt.LineNo)
	}

	// Exactly enough steps is not a fault.
	emu = NewEmulator(parse(t, "MOV R0, 1", "HLT"), 2)
	err = doRunSingle(t, emu)
	assert.NoError(err)
	assert.Equal(STATE_HALTED, emu.State())

	emu = NewEmulator(parse(t, "MOV R0, 1"), 1)
	err = doRunSingle(t, emu)
	assert.NoError(err)
	assert.Equal(STATE_HALTED, emu.State())
}

func TestEmulatorRun(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(parse(t, factorial...), 0)
	done, err := emu.Run(context.Background())
	assert.NoError(err)
	assert.True(done)
	assert.Equal([]string{"120"}, emu.Output.Lines())

	emu = NewEmulator(parse(t, "loop: JMP loop"), 5000)
	done, err = emu.Run(context.Background())
	assert.True(done)
	assert.ErrorIs(err, ErrStepLimit(0))
	assert.Equal(5000, emu.Steps())
}

func TestEmulatorRunCancel(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emu := NewEmulator(parse(t, "loop: JMP loop"), 0)
	done, err := emu.Run(ctx)
	assert.False(done)
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(0, emu.Steps())
	assert.Equal(STATE_IDLE, emu.State())
	assert.Equal(0, emu.Errors.Len())
}

func TestEmulatorBreakpoint(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(parse(t,
		"MOV R0, 0",
		"loop: INC R0",
		"CMP R0, 3",
		"JNZ loop",
		"OUT R0",
		"HLT",
	), 0)

	emu.SetBreakpoint(2, true)
	emu.SetBreakpoint(5, true)
	emu.SetBreakpoint(5, false)
	assert.True(emu.Breakpoint(2))
	assert.False(emu.Breakpoint(5))
	assert.Equal([]int{2}, emu.Breakpoints())

	for count := range 3 {
		done, err := emu.Run(context.Background())
		assert.NoError(err)
		assert.False(done)
		assert.Equal(2, emu.LineNo())
		assert.Equal(int16(count), emu.Cpu.Register[0])
		assert.Equal(STATE_RUNNING, emu.State())
	}

	done, err := emu.Run(context.Background())
	assert.NoError(err)
	assert.True(done)
	assert.Equal([]string{"3"}, emu.Output.Lines())

	// Reset keeps breakpoints, Load drops them.
	emu.Reset()
	assert.Equal([]int{2}, emu.Breakpoints())
	emu.Load(parse(t, "HLT"))
	assert.Empty(emu.Breakpoints())
	assert.Equal(STATE_IDLE, emu.State())
}

func TestEmulatorEcho(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	emu := NewEmulator(parse(t, "OUT 1", "OUT -1", "OUT 255"), 0)
	emu.Echo = &io.Tape{Output: buf}

	err := doRunSingle(t, emu)
	assert.NoError(err)
	assert.Equal("1\n-1\n255\n", buf.String())
	assert.Equal([]string{"1", "-1", "255"}, emu.Output.Lines())
}

func TestEmulatorSnapshot(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(parse(t,
		"MOV [4], 9",
		"OUT [4]",
		"PUSH 7",
		"MOV [4], 1",
		"OUT [4]",
	), 0)

	for range 3 {
		_, err := emu.Tick()
		assert.NoError(err)
	}

	snap := emu.Snapshot()
	assert.Equal(STATE_RUNNING, snap.State)
	assert.Equal(3, snap.Pc)
	assert.Equal(cpu.STACK_BASE-1, snap.Sp)
	assert.Equal(int16(7), snap.Memory[cpu.STACK_BASE-1])
	assert.Equal(int16(9), snap.Memory[4])
	assert.Equal([]string{"9"}, snap.Output)
	assert.Equal(3, snap.Steps)
	assert.Equal(4, snap.LineNo)
	assert.False(snap.Halted())

	err := doRunSingle(t, emu)
	assert.NoError(err)

	// The snapshot is unaffected by later execution.
	assert.Equal(int16(9), snap.Memory[4])
	assert.Equal([]string{"9"}, snap.Output)
	assert.Equal(int16(1), emu.Cpu.Memory[4])

	final := emu.Snapshot()
	assert.True(final.Halted())
	assert.False(final.Faulted())
	assert.Equal([]string{"9", "1"}, final.Output)
	assert.Equal(0, final.LineNo)
}

func TestEmulatorSnapshotIsolated(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(parse(t, "MOV [0], 3", "OUT [0]", "HLT"), 0)
	_, err := emu.Run(context.Background())
	require.NoError(t, err)

	snap := emu.Snapshot()
	snap.Memory[0] = 99
	snap.Register[0] = 99
	snap.Output[0] = "99"

	assert.Equal(int16(3), emu.Cpu.Memory[0])
	assert.Equal(int16(0), emu.Cpu.Register[0])
	assert.Equal([]string{"3"}, emu.Output.Lines())
	assert.Equal([]string{"3"}, emu.Snapshot().Output)
}

func TestErrRuntimeMessage(t *testing.T) {
	assert := assert.New(t)

	err := &ErrRuntime{LineNo: 1234, Err: cpu.ErrDivideByZero}
	assert.Equal("line 1234 division by zero", err.Error())

	err = &ErrRuntime{Err: cpu.ErrStackEmpty}
	assert.Equal("stack underflow", err.Error())

	assert.Equal("step limit 100000 exceeded", ErrStepLimit(100000).Error())
}

func TestEmulatorDefines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil, 1000)
	defines := maps.Collect(emu.Defines())
	assert.Equal("1000", defines["MAX_STEPS"])
	assert.Equal("256", defines["MEMORY_SIZE"])
	assert.Equal("256", defines["STACK_BASE"])
}

func TestEmulatorMissingProgram(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil, 0)
	emu.Program = nil
	done, err := emu.Tick()
	assert.True(done)
	assert.ErrorIs(err, ErrProgramMissing)
	assert.Equal(err.Error(), ErrProgramMissing.Error())
}

func TestRunBatch(t *testing.T) {
	assert := assert.New(t)

	progs := []*cpu.Program{
		parse(t, factorial...),
		parse(t, "MOV R0, 1", "DIV R0, 0"),
		parse(t, "loop: JMP loop"),
		parse(t, "PUSH 1", "PUSH 2", "POP R0", "OUT R0"),
	}

	snaps, err := RunBatch(context.Background(), progs, 1000, 2)
	require.NoError(t, err)
	require.Len(t, snaps, len(progs))

	assert.Equal(STATE_HALTED, snaps[0].State)
	assert.Equal([]string{"120"}, snaps[0].Output)

	assert.True(snaps[1].Faulted())
	assert.Len(snaps[1].Errors, 1)
	assert.Contains(snaps[1].Errors[0], "division by zero")

	assert.True(snaps[2].Faulted())
	assert.Contains(snaps[2].Errors[0], "step limit")
	assert.Equal(1000, snaps[2].Steps)

	assert.Equal(STATE_HALTED, snaps[3].State)
	assert.Equal([]string{"2"}, snaps[3].Output)
	assert.Equal(cpu.STACK_BASE-1, snaps[3].Sp)
}

func TestRunBatchCancel(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBatch(ctx, []*cpu.Program{parse(t, "HLT")}, 0, 0)
	assert.ErrorIs(err, context.Canceled)
}
