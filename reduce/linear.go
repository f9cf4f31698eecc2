package reduce

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/broadcast"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// SyncSizeLinear is the pSync length Linear requires: exactly what its
// broadcast fan-out phase needs.
const SyncSizeLinear = broadcast.SyncSizeLinear

// Linear: PE 0 Gets every member's src contribution directly (src is
// assumed fully written by the caller before entry, so no readiness
// handshake is needed ahead of the Get), reduces them locally with op, then
// broadcasts the result to every member.
func Linear[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dest, src pscratch.Work[T], n int, op Op[T]) error {
	const root = 0
	rank := ctx.MyPE()
	nPE := ctx.NPEs()
	if rank == root {
		acc, err := src.Get(0, n, root)
		if err != nil {
			return fmt.Errorf(`reduce: linear: read own contribution: %w`, err)
		}
		for p := 1; p < nPE; p++ {
			other, err := src.Get(0, n, p)
			if err != nil {
				return fmt.Errorf(`reduce: linear: read contribution %d: %w`, p, err)
			}
			apply(op, acc, other)
		}
		if err := dest.Put(0, acc, ctx.Team.WorldRank(root)); err != nil {
			return fmt.Errorf(`reduce: linear: seed result: %w`, err)
		}
	}
	if err := broadcast.Linear(ctx, sync, dest, n, root); err != nil {
		return fmt.Errorf(`reduce: linear: %w`, err)
	}
	return nil
}
