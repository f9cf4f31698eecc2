// Package collect implements the variable-length collect: every PE
// contributes a buffer of its own length, and every PE ends up with every
// contribution concatenated in rank order.
//
// Unlike fcollect (every PE contributes the same, statically-known length),
// collect first exchanges lengths so every PE can compute where each
// contribution lands in the concatenated result, then runs a fixed-length
// body over those per-PE offsets.
package collect

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// SyncSize returns the pSync length Collect requires for a team of n
// members: one slot per member for the length exchange, plus one for the
// data-placement fan-in/fan-out.
func SyncSize(n int) int { return n + 1 }

// Collect gathers nLocal elements of src from every member into dst (which
// must be sized for the team's total element count), in rank order. It
// returns the element offset this PE's own contribution landed at, and the
// total element count collected.
func Collect[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nLocal int) (offset, total int, err error) {
	rank, n := ctx.MyPE(), ctx.NPEs()
	if sync.Len < SyncSize(n) {
		return 0, 0, fmt.Errorf(`collect: pSync too small: have %d, need %d`, sync.Len, SyncSize(n))
	}
	barrierSlot := n

	// Phase 1: every PE publishes its own length into the length slot it
	// owns on every peer, then reads back what every peer published.
	if err := sync.Signal(rank, pscratch.SyncValue+1+int64(nLocal), ctx.Team.WorldRank(rank)); err != nil {
		return 0, 0, fmt.Errorf(`collect: publish own length: %w`, err)
	}
	for p := 0; p < n; p++ {
		if p == rank {
			continue
		}
		if err := sync.Signal(rank, pscratch.SyncValue+1+int64(nLocal), ctx.Team.WorldRank(p)); err != nil {
			return 0, 0, fmt.Errorf(`collect: publish length to %d: %w`, p, err)
		}
	}
	lengths := make([]int, n)
	for p := 0; p < n; p++ {
		if err := sync.Wait(p, rma.GE, pscratch.SyncValue+1); err != nil {
			return 0, 0, fmt.Errorf(`collect: wait length from %d: %w`, p, err)
		}
		v, err := sync.GetLocal(p)
		if err != nil {
			return 0, 0, fmt.Errorf(`collect: read length from %d: %w`, p, err)
		}
		lengths[p] = int(v - (pscratch.SyncValue + 1))
	}

	offsets := make([]int, n)
	for p := 1; p < n; p++ {
		offsets[p] = offsets[p-1] + lengths[p-1]
	}
	total = offsets[n-1] + lengths[n-1]
	offset = offsets[rank]

	// Phase 2: every PE Puts its own contribution into every peer's copy of
	// dst at the now-shared offset, then a simple fan-in/fan-out over the
	// barrier slot confirms every placement landed before returning.
	data, err := src.Get(0, nLocal, rank)
	if err != nil {
		return 0, 0, fmt.Errorf(`collect: read own contribution: %w`, err)
	}
	if nLocal > 0 {
		for p := 0; p < n; p++ {
			if err := dst.Put(offset, data, ctx.Team.WorldRank(p)); err != nil {
				return 0, 0, fmt.Errorf(`collect: put to %d: %w`, p, err)
			}
		}
	}
	if err := ctx.Sub.Fence(-1); err != nil {
		return 0, 0, fmt.Errorf(`collect: fence: %w`, err)
	}
	for p := 0; p < n; p++ {
		if p == rank {
			continue
		}
		if err := sync.AtomicAdd(barrierSlot, 1, ctx.Team.WorldRank(p)); err != nil {
			return 0, 0, fmt.Errorf(`collect: signal arrival to %d: %w`, p, err)
		}
	}
	if n > 1 {
		if err := sync.Wait(barrierSlot, rma.GE, pscratch.SyncValue+int64(n-1)); err != nil {
			return 0, 0, fmt.Errorf(`collect: wait arrivals: %w`, err)
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return 0, 0, fmt.Errorf(`collect: quiet: %w`, err)
	}
	return offset, total, sync.Reset(pscratch.SyncValue)
}
