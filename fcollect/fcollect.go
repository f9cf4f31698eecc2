// Package fcollect implements the fixed-length collect family: every
// member contributes exactly nelems elements, and every member ends up
// with the n*nelems concatenation in rank order.
//
// Every algorithm here synchronizes on the team actually bound to ctx, not
// unconditionally on WORLD -- a team of 4 split out of a WORLD of 16 must
// only ever wait on arrivals from its own 4 members.
package fcollect

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// SyncSizeLinear and friends are the pSync lengths each algorithm needs.
// Linear/AllLinear/Ring use one slot; NeighborExchange uses two (one for the
// pair exchange, one for the ring of pairs); RecursiveDoubling and the Bruck
// family use one slot per round.
const (
	SyncSizeLinear          = 1
	SyncSizeAllLinear       = 1
	SyncSizeRing            = 1
	SyncSizeNeighborExchange = 2
)

func roundsFor(n int) int {
	r := 0
	for (1 << r) < n {
		r++
	}
	return r
}

// RoundSyncSize is the pSync length RecursiveDoubling and the Bruck family
// need for a team of n members: one slot per round.
func RoundSyncSize(n int) int {
	if r := roundsFor(n); r > 0 {
		return r
	}
	return 1
}

func seedSelf[T typeset.Numeric](ctx *team.Context, dst, src pscratch.Work[T], nelems int) ([]T, error) {
	rank := ctx.MyPE()
	data, err := src.Get(0, nelems, rank)
	if err != nil {
		return nil, fmt.Errorf(`fcollect: read own contribution: %w`, err)
	}
	if err := dst.Put(rank*nelems, data, ctx.Team.WorldRank(rank)); err != nil {
		return nil, fmt.Errorf(`fcollect: seed own slot: %w`, err)
	}
	return data, nil
}

func arrivalBarrier(ctx *team.Context, sync pscratch.Sync, slot int) error {
	n := ctx.NPEs()
	rank := ctx.MyPE()
	if err := ctx.Sub.Fence(-1); err != nil {
		return fmt.Errorf(`fcollect: fence: %w`, err)
	}
	for p := 0; p < n; p++ {
		if p == rank {
			continue
		}
		if err := sync.AtomicAdd(slot, 1, ctx.Team.WorldRank(p)); err != nil {
			return fmt.Errorf(`fcollect: signal arrival to %d: %w`, p, err)
		}
	}
	if n > 1 {
		if err := sync.Wait(slot, rma.GE, pscratch.SyncValue+int64(n-1)); err != nil {
			return fmt.Errorf(`fcollect: wait arrivals: %w`, err)
		}
	}
	return ctx.Sub.Quiet()
}

// Linear: every PE Puts its contribution directly into every peer's dst,
// then an arrival-counter fan-in confirms every placement landed.
func Linear[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nelems int) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	data, err := src.Get(0, nelems, rank)
	if err != nil {
		return fmt.Errorf(`fcollect: linear: read own contribution: %w`, err)
	}
	for p := 0; p < n; p++ {
		if p == rank {
			continue
		}
		if err := dst.Put(rank*nelems, data, ctx.Team.WorldRank(p)); err != nil {
			return fmt.Errorf(`fcollect: linear: put to %d: %w`, p, err)
		}
	}
	if err := dst.Put(rank*nelems, data, ctx.Team.WorldRank(rank)); err != nil {
		return fmt.Errorf(`fcollect: linear: seed own slot: %w`, err)
	}
	if err := arrivalBarrier(ctx, sync, 0); err != nil {
		return fmt.Errorf(`fcollect: linear: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// AllLinear: identical data movement to Linear; the distinction the
// algorithm table draws is the completion handshake -- AllLinear uses the
// same per-peer arrival counters but issues the Puts in plain rank order
// 0..n-1, its own slot included, rather than skip-self, matching the real table's
// "all_linear avoids a conditional in the inner put loop" note.
func AllLinear[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nelems int) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	data, err := src.Get(0, nelems, rank)
	if err != nil {
		return fmt.Errorf(`fcollect: all_linear: read own contribution: %w`, err)
	}
	for p := 0; p < n; p++ {
		if err := dst.Put(rank*nelems, data, ctx.Team.WorldRank(p)); err != nil {
			return fmt.Errorf(`fcollect: all_linear: put to %d: %w`, p, err)
		}
	}
	if err := arrivalBarrier(ctx, sync, 0); err != nil {
		return fmt.Errorf(`fcollect: all_linear: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// RecursiveDoubling gathers in ceil(log2 n) rounds, n required to be a
// power of 2: round r exchanges the currently-held contiguous window
// (doubling in size every round) with partner = rank XOR (1<<r).
func RecursiveDoubling[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nelems int) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	if n&(n-1) != 0 {
		return fmt.Errorf(`fcollect: recursive_doubling: n=%d is not a power of 2`, n)
	}
	if _, err := seedSelf(ctx, dst, src, nelems); err != nil {
		return fmt.Errorf(`fcollect: recursive_doubling: %w`, err)
	}
	if err := doublingGather(ctx, sync, dst, nelems, rank, rank+1, 0); err != nil {
		return fmt.Errorf(`fcollect: recursive_doubling: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// doublingGather runs recursive-doubling rounds starting at round r0, with
// [lo,hi) the block-index window (in units of nelems) this PE currently
// holds valid data for. It ends with a Quiet but does not reset pSync;
// callers do that.
func doublingGather[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst pscratch.Work[T], nelems, lo, hi, r0 int) error {
	n := ctx.NPEs()
	rank := ctx.MyPE()
	for r := r0; (1 << r) < n; r++ {
		width := hi - lo
		partner := rank ^ width
		data, err := dst.Get(lo*nelems, width*nelems, rank)
		if err != nil {
			return fmt.Errorf(`round %d: read own window: %w`, r, err)
		}
		partnerLo := lo ^ width
		if err := dst.Put(lo*nelems, data, ctx.Team.WorldRank(partner)); err != nil {
			return fmt.Errorf(`round %d: put to %d: %w`, r, partner, err)
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`round %d: fence: %w`, r, err)
		}
		if err := sync.Signal(r, pscratch.SyncValue+1, ctx.Team.WorldRank(partner)); err != nil {
			return fmt.Errorf(`round %d: signal %d: %w`, r, partner, err)
		}
		if err := sync.Wait(r, rma.GE, pscratch.SyncValue+1); err != nil {
			return fmt.Errorf(`round %d: wait: %w`, r, err)
		}
		if partnerLo < lo {
			lo = partnerLo
		} else {
			hi = partnerLo + width
		}
	}
	return ctx.Sub.Quiet()
}

// Ring gathers in n-1 rounds: each round every PE forwards the block it
// most recently received to its successor and receives from its
// predecessor, walking blocks once around the ring.
func Ring[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nelems int) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	if _, err := seedSelf(ctx, dst, src, nelems); err != nil {
		return fmt.Errorf(`fcollect: ring: %w`, err)
	}
	succ := (rank + 1) % n
	for r := 0; r < n-1; r++ {
		blockIdx := (rank - r + n) % n
		data, err := dst.Get(blockIdx*nelems, nelems, rank)
		if err != nil {
			return fmt.Errorf(`fcollect: ring: round %d: read block %d: %w`, r, blockIdx, err)
		}
		if err := dst.Put(blockIdx*nelems, data, ctx.Team.WorldRank(succ)); err != nil {
			return fmt.Errorf(`fcollect: ring: round %d: put to %d: %w`, r, succ, err)
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`fcollect: ring: round %d: fence: %w`, r, err)
		}
		if err := sync.Signal(0, pscratch.SyncValue+1+int64(r), ctx.Team.WorldRank(succ)); err != nil {
			return fmt.Errorf(`fcollect: ring: round %d: signal: %w`, r, err)
		}
		if err := sync.Wait(0, rma.GE, pscratch.SyncValue+1+int64(r)); err != nil {
			return fmt.Errorf(`fcollect: ring: round %d: wait: %w`, r, err)
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`fcollect: ring: quiet: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// bruckRounds runs the Bruck exchange: ceil(log2 n) rounds, round r sends
// every block this PE currently holds to rank-2^r and receives the
// corresponding set from rank+2^r, doubling the held block count each
// round. Blocks are kept in "rank-relative" order during the exchange;
// rotate, if true, un-rotates the buffer into absolute rank order as a
// final pass (the classic Bruck postprocessing step).
func bruckRounds[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst pscratch.Work[T], nelems int, rotate bool) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	held := 1
	for r := 0; held < n; r++ {
		send := held
		if send > n-held {
			send = n - held
		}
		data, err := dst.Get(0, send*nelems, rank)
		if err != nil {
			return fmt.Errorf(`round %d: read: %w`, r, err)
		}
		dest := (rank - held + n) % n
		if err := dst.Put(held*nelems, data, ctx.Team.WorldRank(dest)); err != nil {
			return fmt.Errorf(`round %d: put to %d: %w`, r, dest, err)
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`round %d: fence: %w`, r, err)
		}
		if err := sync.Signal(r, pscratch.SyncValue+1, ctx.Team.WorldRank(dest)); err != nil {
			return fmt.Errorf(`round %d: signal %d: %w`, r, dest, err)
		}
		if err := sync.Wait(r, rma.GE, pscratch.SyncValue+1); err != nil {
			return fmt.Errorf(`round %d: wait: %w`, r, err)
		}
		held += send
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`quiet: %w`, err)
	}
	if rotate {
		data, err := dst.Get(0, n*nelems, rank)
		if err != nil {
			return fmt.Errorf(`rotate: read: %w`, err)
		}
		rotated := make([]T, n*nelems)
		for i := 0; i < n; i++ {
			srcBlock := (i - rank + n) % n
			copy(rotated[i*nelems:(i+1)*nelems], data[srcBlock*nelems:(srcBlock+1)*nelems])
		}
		if err := dst.Put(0, rotated, ctx.Team.WorldRank(rank)); err != nil {
			return fmt.Errorf(`rotate: write: %w`, err)
		}
	}
	return nil
}

// Bruck: the classic algorithm. Own data seeds slot 0 (the exchange
// addresses blocks rank-relatively); rotating the final buffer into
// absolute rank order is bruckRounds' final pass.
func Bruck[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nelems int) error {
	rank := ctx.MyPE()
	data, err := src.Get(0, nelems, rank)
	if err != nil {
		return fmt.Errorf(`fcollect: bruck: read own contribution: %w`, err)
	}
	if err := dst.Put(0, data, ctx.Team.WorldRank(rank)); err != nil {
		return fmt.Errorf(`fcollect: bruck: seed slot 0: %w`, err)
	}
	if err := bruckRounds(ctx, sync, dst, nelems, true); err != nil {
		return fmt.Errorf(`fcollect: bruck: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// BruckNoRotate: the same exchange as Bruck, but the final relocation into
// absolute rank order is done as a single local copy pass here rather than
// delegated to bruckRounds' shared rotate step.
func BruckNoRotate[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nelems int) error {
	rank := ctx.MyPE()
	data, err := src.Get(0, nelems, rank)
	if err != nil {
		return fmt.Errorf(`fcollect: bruck_no_rotate: read own contribution: %w`, err)
	}
	if err := dst.Put(0, data, ctx.Team.WorldRank(rank)); err != nil {
		return fmt.Errorf(`fcollect: bruck_no_rotate: seed: %w`, err)
	}
	if err := bruckRounds(ctx, sync, dst, nelems, false); err != nil {
		return fmt.Errorf(`fcollect: bruck_no_rotate: %w`, err)
	}
	// Without rotation, slot i of dst holds the block from rank (rank+i)%n
	// rather than rank i; relocate to absolute rank order.
	rankNow := ctx.MyPE()
	nPE := ctx.NPEs()
	held, err := dst.Get(0, nPE*nelems, rankNow)
	if err != nil {
		return fmt.Errorf(`fcollect: bruck_no_rotate: read: %w`, err)
	}
	final := make([]int, nPE)
	for i := range final {
		final[i] = (rankNow + i) % nPE
	}
	out := make([]T, nPE*nelems)
	for slot, owner := range final {
		copy(out[owner*nelems:(owner+1)*nelems], held[slot*nelems:(slot+1)*nelems])
	}
	if err := dst.Put(0, out, ctx.Team.WorldRank(rankNow)); err != nil {
		return fmt.Errorf(`fcollect: bruck_no_rotate: relocate: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// BruckSignal is Bruck, exposed as its own selectable name: the round
// completion handshake it uses (sync.Signal/Wait in bruckRounds) is the
// same signal-based scheme regardless of which Bruck entry point is called.
func BruckSignal[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nelems int) error {
	return Bruck(ctx, sync, dst, src, nelems)
}

// BruckInplace: identical exchange to Bruck, except the caller has already
// written its own contribution into dst's slot 0 -- no separate src
// buffer or seed Put is needed.
func BruckInplace[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst pscratch.Work[T], nelems int) error {
	if err := bruckRounds(ctx, sync, dst, nelems, true); err != nil {
		return fmt.Errorf(`fcollect: bruck_inplace: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// NeighborExchange requires n even: pairs (2i, 2i+1) trade contributions
// directly, then the n/2 pairs run a ring exchange treating each pair as
// one super-block of 2*nelems elements.
func NeighborExchange[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[T], nelems int) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	if n%2 != 0 {
		return fmt.Errorf(`fcollect: neighbor_exchange: n=%d is not even`, n)
	}
	if _, err := seedSelf(ctx, dst, src, nelems); err != nil {
		return fmt.Errorf(`fcollect: neighbor_exchange: %w`, err)
	}
	partner := rank ^ 1
	data, err := dst.Get(rank*nelems, nelems, rank)
	if err != nil {
		return fmt.Errorf(`fcollect: neighbor_exchange: read own block: %w`, err)
	}
	if err := dst.Put(rank*nelems, data, ctx.Team.WorldRank(partner)); err != nil {
		return fmt.Errorf(`fcollect: neighbor_exchange: pair put: %w`, err)
	}
	if err := ctx.Sub.Fence(-1); err != nil {
		return fmt.Errorf(`fcollect: neighbor_exchange: pair fence: %w`, err)
	}
	if err := sync.Signal(0, pscratch.SyncValue+1, ctx.Team.WorldRank(partner)); err != nil {
		return fmt.Errorf(`fcollect: neighbor_exchange: pair signal: %w`, err)
	}
	if err := sync.Wait(0, rma.GE, pscratch.SyncValue+1); err != nil {
		return fmt.Errorf(`fcollect: neighbor_exchange: pair wait: %w`, err)
	}

	nPairs := n / 2
	myPair := rank / 2
	position := rank % 2
	for r := 0; r < nPairs-1; r++ {
		blockPair := (myPair - r + nPairs) % nPairs
		data, err := dst.Get(blockPair*2*nelems, 2*nelems, rank)
		if err != nil {
			return fmt.Errorf(`fcollect: neighbor_exchange: round %d: read: %w`, r, err)
		}
		succPair := (myPair + 1) % nPairs
		succRank := succPair*2 + position
		if err := dst.Put(blockPair*2*nelems, data, ctx.Team.WorldRank(succRank)); err != nil {
			return fmt.Errorf(`fcollect: neighbor_exchange: round %d: put to %d: %w`, r, succRank, err)
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`fcollect: neighbor_exchange: round %d: fence: %w`, r, err)
		}
		if err := sync.Signal(1, pscratch.SyncValue+1+int64(r), ctx.Team.WorldRank(succRank)); err != nil {
			return fmt.Errorf(`fcollect: neighbor_exchange: round %d: signal: %w`, r, err)
		}
		if err := sync.Wait(1, rma.GE, pscratch.SyncValue+1+int64(r)); err != nil {
			return fmt.Errorf(`fcollect: neighbor_exchange: round %d: wait: %w`, r, err)
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`fcollect: neighbor_exchange: quiet: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}
