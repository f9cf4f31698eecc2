package reduce

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/broadcast"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// BinomialSyncSize and BinomialWorkSize are the pSync/pWrk sizes Binomial
// needs for a team of n members: one gather-round slot per round, plus one
// more for the broadcast fan-out phase (a disjoint slot, so a PE that has
// already moved on to broadcasting never races a peer still gathering).
func BinomialSyncSize(n int) int {
	return roundsFor(n) + 1
}

func BinomialWorkSize(n int) int {
	size := roundsFor(n) * n
	if size < n {
		size = n
	}
	return size
}

// Binomial: round r, a PE whose rank has bit r clear receives and combines
// its partner-at-bit-r's (rank|1<<r) accumulator, if that partner exists;
// a PE whose rank has bit r set sends its accumulator to rank&^(1<<r) and
// is done. PE 0 never sends, so it ends the gather holding the full
// reduction; broadcast.BinomialTree then delivers it to everyone else.
func Binomial[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op Op[T]) error {
	const root = 0
	rank := ctx.MyPE()
	nPE := ctx.NPEs()

	acc, err := src.Get(0, n, rank)
	if err != nil {
		return fmt.Errorf(`reduce: binomial: read own contribution: %w`, err)
	}

	rounds := roundsFor(nPE)
	for r := 0; r < rounds; r++ {
		mask := 1 << r
		if rank&mask == 0 {
			partner := rank | mask
			if partner >= nPE {
				continue
			}
			if err := sync.Wait(r, rma.GE, pscratch.SyncValue+1); err != nil {
				return fmt.Errorf(`reduce: binomial: round %d: wait %d: %w`, r, partner, err)
			}
			other, err := work.Get(r*n, n, rank)
			if err != nil {
				return fmt.Errorf(`reduce: binomial: round %d: read from %d: %w`, r, partner, err)
			}
			apply(op, acc, other)
		} else {
			dst := rank &^ mask
			if err := work.Put(r*n, acc, ctx.Team.WorldRank(dst)); err != nil {
				return fmt.Errorf(`reduce: binomial: round %d: put to %d: %w`, r, dst, err)
			}
			if err := ctx.Sub.Fence(-1); err != nil {
				return fmt.Errorf(`reduce: binomial: round %d: fence: %w`, r, err)
			}
			if err := sync.Signal(r, pscratch.SyncValue+1, ctx.Team.WorldRank(dst)); err != nil {
				return fmt.Errorf(`reduce: binomial: round %d: signal %d: %w`, r, dst, err)
			}
			break
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`reduce: binomial: quiet: %w`, err)
	}
	if rank == root {
		if err := dest.Put(0, acc, ctx.Team.WorldRank(root)); err != nil {
			return fmt.Errorf(`reduce: binomial: seed result: %w`, err)
		}
	}
	// Restore only the gather slots: the broadcast slot may already hold the
	// parent's signal, and broadcast.BinomialTree restores it itself.
	gsync := pscratch.Sync{Sub: sync.Sub, Base: sync.Base, Len: rounds}
	if err := gsync.Reset(pscratch.SyncValue); err != nil {
		return fmt.Errorf(`reduce: binomial: %w`, err)
	}
	bsync := pscratch.Sync{Sub: ctx.Sub, Base: sync.Base + rma.Symmetric(rounds*8), Len: broadcast.SyncSizeBinomialTree}
	if err := broadcast.BinomialTree(ctx, bsync, dest, n, root); err != nil {
		return fmt.Errorf(`reduce: binomial: %w`, err)
	}
	return nil
}
