// Package alltoall implements the strided personalized all-to-all family:
// every PE sends a distinct nelems-sized block to every other PE, landing
// at the sender's own index within the receiver's dest buffer. Three
// exchange patterns (shift, XOR-pairwise, color-pairwise) are each
// selectable with one of two inter-round synchronization strategies.
package alltoall

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/barrier"
	"github.com/BTMichalowicz/go-shcoll/config"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// counterSlot is the single pSync slot CounterSync uses; every round only
// ever has one message in flight per peer pair, so one cumulative counter
// per destination suffices.
const counterSlot = 0

// SyncSize returns the pSync length a sync strategy requires for a team of
// n members: one running counter for CounterSync, or the Dissemination
// barrier's own round count for BarrierSync (the exchange reuses that
// barrier between every round of the pattern).
func SyncSize(mode config.AlltoallSync, n int) (int, error) {
	switch mode {
	case config.AlltoallSyncCounter:
		return 1, nil
	case config.AlltoallSyncBarrier:
		return barrier.DisseminationSyncSize(n), nil
	default:
		return 0, fmt.Errorf(`alltoall: sync size: unknown mode %q`, mode)
	}
}

// send delivers data (this PE's block addressed to peer) to peer's dest
// buffer at this PE's own slot, and, under CounterSync, signals peer's
// arrival counter. Fence always separates the put from the signal so the
// peer's wait can never observe the signal before the data.
func send[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dest pscratch.Work[T], rank, peer int, data []T, mode config.AlltoallSync) error {
	if err := dest.Put(rank*len(data), data, ctx.Team.WorldRank(peer)); err != nil {
		return fmt.Errorf(`put to %d: %w`, peer, err)
	}
	if err := ctx.Sub.Fence(-1); err != nil {
		return fmt.Errorf(`fence: %w`, err)
	}
	if mode == config.AlltoallSyncCounter {
		if err := sync.AtomicAdd(counterSlot, 1, ctx.Team.WorldRank(peer)); err != nil {
			return fmt.Errorf(`signal %d: %w`, peer, err)
		}
	}
	return nil
}

// exchange is send plus this PE's own wait for the round it just
// participated in -- used by the two patterns (ShiftExchange, XORPairwise)
// where every PE exchanges with exactly one peer every round, so a
// per-exchange wait and a per-round wait coincide.
func exchange[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dest pscratch.Work[T], rank, peer, round int, data []T, mode config.AlltoallSync) error {
	if err := send(ctx, sync, dest, rank, peer, data, mode); err != nil {
		return err
	}
	switch mode {
	case config.AlltoallSyncCounter:
		if err := sync.Wait(counterSlot, rma.GE, pscratch.SyncValue+1+int64(round)); err != nil {
			return fmt.Errorf(`wait round %d: %w`, round, err)
		}
	case config.AlltoallSyncBarrier:
		if err := barrier.Dissemination(ctx, sync); err != nil {
			return fmt.Errorf(`round %d barrier: %w`, round, err)
		}
	default:
		return fmt.Errorf(`unknown sync mode %q`, mode)
	}
	return nil
}

// selfCopy places this PE's own block directly in its own dest slot: PEs
// never exchange their own block over the network.
func selfCopy[T typeset.Numeric](ctx *team.Context, dest, src pscratch.Work[T], rank, nelems int) error {
	data, err := src.Get(rank*nelems, nelems, rank)
	if err != nil {
		return fmt.Errorf(`read own block: %w`, err)
	}
	if err := dest.Put(rank*nelems, data, ctx.Team.WorldRank(rank)); err != nil {
		return fmt.Errorf(`write own block: %w`, err)
	}
	return ctx.Sub.Fence(-1)
}

func finish(ctx *team.Context, sync pscratch.Sync) error {
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`quiet: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// ShiftExchange: round r (1..N-1) sends this PE's block for peer (rank+r)%N
// and, symmetrically, every other PE sends this PE its block in the same
// round -- a full rotation, N-1 rounds total.
func ShiftExchange[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dest, src pscratch.Work[T], nelems int, mode config.AlltoallSync) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	if err := selfCopy(ctx, dest, src, rank, nelems); err != nil {
		return fmt.Errorf(`alltoall: shift_exchange: %w`, err)
	}
	for r := 1; r < n; r++ {
		peer := (rank + r) % n
		data, err := src.Get(peer*nelems, nelems, rank)
		if err != nil {
			return fmt.Errorf(`alltoall: shift_exchange: round %d: read block for %d: %w`, r, peer, err)
		}
		if err := exchange(ctx, sync, dest, rank, peer, r-1, data, mode); err != nil {
			return fmt.Errorf(`alltoall: shift_exchange: round %d: %w`, r, err)
		}
	}
	if err := finish(ctx, sync); err != nil {
		return fmt.Errorf(`alltoall: shift_exchange: %w`, err)
	}
	return nil
}

// XORPairwise: round r (1..N-1) pairs rank with rank XOR r; requires N a
// power of 2 so that every rank XOR r for r in [1,N) enumerates every other
// member exactly once.
func XORPairwise[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dest, src pscratch.Work[T], nelems int, mode config.AlltoallSync) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	if n&(n-1) != 0 {
		return fmt.Errorf(`alltoall: xor_pairwise: team size %d is not a power of 2`, n)
	}
	if err := selfCopy(ctx, dest, src, rank, nelems); err != nil {
		return fmt.Errorf(`alltoall: xor_pairwise: %w`, err)
	}
	for r := 1; r < n; r++ {
		peer := rank ^ r
		data, err := src.Get(peer*nelems, nelems, rank)
		if err != nil {
			return fmt.Errorf(`alltoall: xor_pairwise: round %d: read block for %d: %w`, r, peer, err)
		}
		if err := exchange(ctx, sync, dest, rank, peer, r-1, data, mode); err != nil {
			return fmt.Errorf(`alltoall: xor_pairwise: round %d: %w`, r, err)
		}
	}
	if err := finish(ctx, sync); err != nil {
		return fmt.Errorf(`alltoall: xor_pairwise: %w`, err)
	}
	return nil
}

// ColorPairwise: the round-robin "circle method" tournament schedule --
// position 0 stays fixed, the remaining m-1 positions rotate by one each
// round, and round r's matching pairs position k with position m-1-k. Odd N
// gets a virtual "bye" seat so every round still partitions into disjoint
// pairs; the PE paired with the bye sits that round out. m-1 rounds total,
// every ordered pair of PEs meeting in exactly one round.
func ColorPairwise[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, dest, src pscratch.Work[T], nelems int, mode config.AlltoallSync) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	if err := selfCopy(ctx, dest, src, rank, nelems); err != nil {
		return fmt.Errorf(`alltoall: color_pairwise: %w`, err)
	}

	m := n
	bye := -1
	if m%2 != 0 {
		bye = m
		m++
	}
	pos := make([]int, m)
	for i := 0; i < m; i++ {
		if i == n {
			pos[i] = bye
		} else {
			pos[i] = i
		}
	}

	received := 0
	for r := 0; r < m-1; r++ {
		peer := -1
		for k := 0; k < m/2; k++ {
			a, b := pos[k], pos[m-1-k]
			switch {
			case a == rank && b != bye:
				peer = b
			case b == rank && a != bye:
				peer = a
			}
		}
		if peer >= 0 {
			data, err := src.Get(peer*nelems, nelems, rank)
			if err != nil {
				return fmt.Errorf(`alltoall: color_pairwise: round %d: read block for %d: %w`, r, peer, err)
			}
			if err := send(ctx, sync, dest, rank, peer, data, mode); err != nil {
				return fmt.Errorf(`alltoall: color_pairwise: round %d: %w`, r, err)
			}
		}
		// BarrierSync is a full team collective -- every PE calls it once
		// per round, even one sitting this round out on the bye seat, or
		// the others would block waiting on a participant that never
		// shows up. CounterSync has no such requirement: an idle PE simply
		// has nothing to wait for this round.
		switch mode {
		case config.AlltoallSyncBarrier:
			if err := barrier.Dissemination(ctx, sync); err != nil {
				return fmt.Errorf(`alltoall: color_pairwise: round %d: barrier: %w`, r, err)
			}
		case config.AlltoallSyncCounter:
			if peer >= 0 {
				received++
				if err := sync.Wait(counterSlot, rma.GE, pscratch.SyncValue+int64(received)); err != nil {
					return fmt.Errorf(`alltoall: color_pairwise: round %d: wait: %w`, r, err)
				}
			}
		default:
			return fmt.Errorf(`alltoall: color_pairwise: unknown sync mode %q`, mode)
		}
		if m > 2 {
			last := pos[m-1]
			for i := m - 1; i > 1; i-- {
				pos[i] = pos[i-1]
			}
			pos[1] = last
		}
	}
	if err := finish(ctx, sync); err != nil {
		return fmt.Errorf(`alltoall: color_pairwise: %w`, err)
	}
	return nil
}
