package emulator

import (
	"github.com/ezrec/microasm/cpu"
)

// Snapshot is a copy of the observable machine state.
type Snapshot struct {
	State    State
	Register [cpu.REGISTER_COUNT]int16
	Pc       int
	Sp       int
	Zf       bool
	Sf       bool
	Memory   cpu.Memory
	Output   []string
	Errors   []string
	Steps    int
	LineNo   int
}

// Snapshot copies the current state. Later execution does not
// affect the returned value.
func (emu *Emulator) Snapshot() (snap Snapshot) {
	c := emu.Cpu
	snap = Snapshot{
		State:    emu.state,
		Register: c.Register,
		Pc:       c.Pc,
		Sp:       c.Sp,
		Zf:       c.Zf,
		Sf:       c.Sf,
		Memory:   c.Memory,
		Output:   emu.Output.Lines(),
		Errors:   emu.Errors.Lines(),
		Steps:    c.Ticks,
		LineNo:   emu.LineNo(),
	}

	return
}

// Halted returns true for either terminal state.
func (snap *Snapshot) Halted() bool {
	return snap.State == STATE_HALTED || snap.State == STATE_FAULTED
}

// Faulted returns true if execution stopped on a runtime error.
func (snap *Snapshot) Faulted() bool {
	return snap.State == STATE_FAULTED
}
