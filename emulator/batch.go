package emulator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/microasm/cpu"
)

// RunBatch runs each program to completion on its own emulator,
// at most parallel at a time (unlimited if parallel <= 0).
// Runtime faults are reported in the snapshots; err is only set if
// ctx is cancelled.
func RunBatch(ctx context.Context, progs []*cpu.Program, maxSteps int, parallel int) (snaps []Snapshot, err error) {
	snaps = make([]Snapshot, len(progs))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for n, prog := range progs {
		g.Go(func() error {
			emu := NewEmulator(prog, maxSteps)
			emu.Run(ctx)
			if err := ctx.Err(); err != nil {
				return err
			}
			snaps[n] = emu.Snapshot()
			return nil
		})
	}

	err = g.Wait()
	return
}
