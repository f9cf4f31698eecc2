package reduce

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// roundState names the values signaled between partners during a
// recursive-doubling round, in place of scattered pscratch.SyncValue+k
// arithmetic at each call site.
type roundState int64

const (
	roundIdle     roundState = roundState(pscratch.SyncValue)
	roundDataSent roundState = roundState(pscratch.SyncValue + 1)
)

// pSync layout for RecursiveDoubling: slot 0 is the donate signal, slot 1
// the adopt-return signal, slots [2, 2+rounds) are the per-round exchange.
const (
	recDblDonateSlot = 0
	recDblResultSlot = 1
	recDblRoundBase  = 2
)

// RecursiveDoublingSyncSize and RecursiveDoublingWorkSize are the pSync/
// pWrk sizes RecursiveDoubling needs for a team of n members and a vector
// of nElems elements.
func RecursiveDoublingSyncSize(n int) int {
	return recDblRoundBase + roundsFor(pow2Floor(n))
}

func RecursiveDoublingWorkSize(n, nElems int) int {
	// [0,n) donate region, [n,2n) adopt-return region, then one n-sized
	// region per round.
	return 2*nElems + roundsFor(pow2Floor(n))*nElems
}

// RecursiveDoubling: the highest (n - pow2Floor(n)) PEs donate to an adopter in
// the power-of-2 subset; the subset runs ceil(log2 p2) rounds, each
// exchanging its full accumulator with partner = rank XOR (1<<r) and
// combining; adopters then return the final result to their donor.
func RecursiveDoubling[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op Op[T]) error {
	rank, nPE := ctx.MyPE(), ctx.NPEs()
	p2 := pow2Floor(nPE)

	acc, err := src.Get(0, n, rank)
	if err != nil {
		return fmt.Errorf(`reduce: recursive_doubling: read own contribution: %w`, err)
	}

	if rank >= p2 {
		result, err := donate(ctx, sync, work, n, recDblDonateSlot, recDblResultSlot, acc)
		if err != nil {
			return fmt.Errorf(`reduce: recursive_doubling: %w`, err)
		}
		if err := ctx.Sub.Quiet(); err != nil {
			return fmt.Errorf(`reduce: recursive_doubling: quiet: %w`, err)
		}
		if err := dest.Put(0, result, ctx.Team.WorldRank(rank)); err != nil {
			return fmt.Errorf(`reduce: recursive_doubling: write result: %w`, err)
		}
		return sync.Reset(pscratch.SyncValue)
	}

	hadDonation, err := adopt(ctx, sync, work, n, recDblDonateSlot, acc, op)
	if err != nil {
		return fmt.Errorf(`reduce: recursive_doubling: %w`, err)
	}

	rounds := roundsFor(p2)
	for r := 0; r < rounds; r++ {
		partner := rank ^ (1 << r)
		roundSlot := recDblRoundBase + r
		roundOffset := 2*n + r*n
		if err := work.Put(roundOffset, acc, ctx.Team.WorldRank(partner)); err != nil {
			return fmt.Errorf(`reduce: recursive_doubling: round %d: put to %d: %w`, r, partner, err)
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`reduce: recursive_doubling: round %d: fence: %w`, r, err)
		}
		if err := sync.Signal(roundSlot, int64(roundDataSent), ctx.Team.WorldRank(partner)); err != nil {
			return fmt.Errorf(`reduce: recursive_doubling: round %d: signal %d: %w`, r, partner, err)
		}
		if err := sync.Wait(roundSlot, rma.GE, int64(roundDataSent)); err != nil {
			return fmt.Errorf(`reduce: recursive_doubling: round %d: wait: %w`, r, err)
		}
		other, err := work.Get(roundOffset, n, rank)
		if err != nil {
			return fmt.Errorf(`reduce: recursive_doubling: round %d: read: %w`, r, err)
		}
		apply(op, acc, other)
	}

	if err := adoptReturn(ctx, sync, work, n, recDblResultSlot, acc, hadDonation); err != nil {
		return fmt.Errorf(`reduce: recursive_doubling: %w`, err)
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`reduce: recursive_doubling: quiet: %w`, err)
	}
	if err := dest.Put(0, acc, ctx.Team.WorldRank(rank)); err != nil {
		return fmt.Errorf(`reduce: recursive_doubling: write result: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}
