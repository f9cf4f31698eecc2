package reduce

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// blockLayout splits n elements as evenly as possible across p2 blocks
// (block i gets n/p2, plus one more if i < n%p2), for Rabenseifner's
// reduce-scatter phase.
type blockLayout struct {
	offsets []int
	counts  []int
}

func newBlockLayout(n, p2 int) blockLayout {
	counts := make([]int, p2)
	offsets := make([]int, p2)
	base, extra := n/p2, n%p2
	off := 0
	for i := 0; i < p2; i++ {
		c := base
		if i < extra {
			c++
		}
		counts[i] = c
		offsets[i] = off
		off += c
	}
	return blockLayout{offsets: offsets, counts: counts}
}

const (
	rabenDonateSlot = 0
	rabenResultSlot = 1
	rabenRoundBase  = 2
)

// RabenseifnerSyncSize and RabenseifnerWorkSize size the pSync/pWrk arrays
// Rabenseifner and RabenseifnerRing need for a team of n members reducing
// nElems elements: one round slot per reduce-scatter round plus one per
// allgather round (doubling's allgather needs the same round count as the
// scatter; the ring variant instead needs p2-1 rounds), and enough pWrk to
// hold the donate/adopt-return regions plus the largest in-flight block.
func RabenseifnerSyncSize(n int) int {
	p2 := pow2Floor(n)
	return rabenRoundBase + 2*roundsFor(p2)
}

// RabenseifnerRingSyncSize reserves roundsFor(p2) slots for the reduce-
// scatter phase plus one more, disjoint slot for the ring-allgather phase
// (which only ever needs one slot, cycled through p2-1 increasing signal
// values, since each PE's ring rounds run strictly in sequence).
func RabenseifnerRingSyncSize(n int) int {
	p2 := pow2Floor(n)
	return rabenRoundBase + roundsFor(p2) + 1
}

func RabenseifnerWorkSize(n, nElems int) int {
	return 2*nElems + nElems
}

// reduceScatter runs Rabenseifner's recursive-halving reduce-scatter over
// the p2-member subset: after log2(p2) rounds, subset-local rank owns the
// full reduction of block `rank` (per blockLayout), not the whole vector.
// base is the element offset into work where the scratch region for this
// phase starts, keeping it disjoint from the donate/adopt-return region.
func reduceScatter[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work pscratch.Work[T], base int, layout blockLayout, acc []T, op Op[T]) error {
	rank := ctx.MyPE()
	p2 := pow2Floor(ctx.NPEs())
	sendIdx, recvIdx, lastIdx := 0, 0, p2
	mask := 1
	round := 0
	for mask < p2 {
		partner := rank ^ mask
		var sendLo, sendHi, recvLo, recvHi int
		if rank < partner {
			sendLo = recvIdx + (p2/(mask*2))
			sendHi = lastIdx
			recvLo, recvHi = recvIdx, sendLo
		} else {
			recvLo = sendIdx + (p2 / (mask * 2))
			recvHi = lastIdx
			sendLo, sendHi = sendIdx, recvLo
		}
		sendOff := layout.offsets[sendLo]
		sendCount := layout.offsets[sendHi-1] + layout.counts[sendHi-1] - sendOff
		recvOff := layout.offsets[recvLo]
		recvCount := layout.offsets[recvHi-1] + layout.counts[recvHi-1] - recvOff

		if sendCount > 0 {
			// Written at its own absolute block offset (sendOff), not my
			// recvOff: the two only coincide by symmetry, and addressing by
			// the data's natural position is what lets the partner's own,
			// independently computed recvOff find it.
			if err := work.Put(base+sendOff, acc[sendOff:sendOff+sendCount], ctx.Team.WorldRank(partner)); err != nil {
				return fmt.Errorf(`round %d: put to %d: %w`, round, partner, err)
			}
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`round %d: fence: %w`, round, err)
		}
		if err := sync.Signal(rabenRoundBase+round, int64(roundDataSent), ctx.Team.WorldRank(partner)); err != nil {
			return fmt.Errorf(`round %d: signal %d: %w`, round, partner, err)
		}
		if sendCount > 0 {
			if err := sync.Wait(rabenRoundBase+round, rma.GE, int64(roundDataSent)); err != nil {
				return fmt.Errorf(`round %d: wait: %w`, round, err)
			}
		}
		if recvCount > 0 {
			other, err := work.Get(base+recvOff, recvCount, rank)
			if err != nil {
				return fmt.Errorf(`round %d: read: %w`, round, err)
			}
			apply(op, acc[recvOff:recvOff+recvCount], other)
		}

		if rank < partner {
			lastIdx = recvHi
		} else {
			sendIdx = recvIdx
		}
		recvIdx = recvLo
		mask <<= 1
		round++
	}
	return ctx.Sub.Quiet()
}

// allgatherDoubling reassembles the full vector on every subset member in
// log2(p2) rounds, reversing reduceScatter's halving.
func allgatherDoubling[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work pscratch.Work[T], base int, layout blockLayout, acc []T) error {
	rank := ctx.MyPE()
	p2 := pow2Floor(ctx.NPEs())
	rounds := roundsFor(p2)
	lo := rank
	for r := rounds - 1; r >= 0; r-- {
		width := 1 << (rounds - 1 - r)
		partner := rank ^ width
		loOff := layout.offsets[lo]
		hiIdx := lo + width
		if hiIdx > p2 {
			hiIdx = p2
		}
		count := layout.offsets[hiIdx-1] + layout.counts[hiIdx-1] - loOff
		data, err := work.Get(base+loOff, count, rank)
		if err != nil {
			return fmt.Errorf(`allgather round %d: read: %w`, r, err)
		}
		// Written at its own absolute offset (loOff) in the partner's
		// buffer, matching where the partner's own, independently computed
		// loOff will later read it from.
		if err := work.Put(base+loOff, data, ctx.Team.WorldRank(partner)); err != nil {
			return fmt.Errorf(`allgather round %d: put to %d: %w`, r, partner, err)
		}
		partnerLo := lo ^ width
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`allgather round %d: fence: %w`, r, err)
		}
		slot := rabenRoundBase + roundsFor(p2) + r
		if err := sync.Signal(slot, int64(roundDataSent), ctx.Team.WorldRank(partner)); err != nil {
			return fmt.Errorf(`allgather round %d: signal %d: %w`, r, partner, err)
		}
		if err := sync.Wait(slot, rma.GE, int64(roundDataSent)); err != nil {
			return fmt.Errorf(`allgather round %d: wait: %w`, r, err)
		}
		if partnerLo < lo {
			lo = partnerLo
		}
	}
	return ctx.Sub.Quiet()
}

// allgatherRing reassembles the full vector via a ring pass: each of the
// p2-1 rounds forwards the most recently received block to the next
// subset member, walking every block once around the ring. Uses its own
// slot past the reduce-scatter phase's roundsFor(p2) slots, so a PE that
// has moved on to the ring never races a peer still finishing its
// reduce-scatter rounds.
func allgatherRing[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work pscratch.Work[T], base int, layout blockLayout) error {
	rank := ctx.MyPE()
	p2 := pow2Floor(ctx.NPEs())
	succ := (rank + 1) % p2
	ringSlot := rabenRoundBase + roundsFor(p2)
	for r := 0; r < p2-1; r++ {
		blockIdx := (rank - r + p2) % p2
		off, count := layout.offsets[blockIdx], layout.counts[blockIdx]
		data, err := work.Get(base+off, count, rank)
		if err != nil {
			return fmt.Errorf(`ring round %d: read block %d: %w`, r, blockIdx, err)
		}
		if err := work.Put(base+off, data, ctx.Team.WorldRank(succ)); err != nil {
			return fmt.Errorf(`ring round %d: put to %d: %w`, r, succ, err)
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`ring round %d: fence: %w`, r, err)
		}
		if err := sync.Signal(ringSlot, pscratch.SyncValue+1+int64(r), ctx.Team.WorldRank(succ)); err != nil {
			return fmt.Errorf(`ring round %d: signal: %w`, r, err)
		}
		if err := sync.Wait(ringSlot, rma.GE, pscratch.SyncValue+1+int64(r)); err != nil {
			return fmt.Errorf(`ring round %d: wait: %w`, r, err)
		}
	}
	return ctx.Sub.Quiet()
}

func rabenseifnerCore[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op Op[T], ring bool) error {
	rank, nPE := ctx.MyPE(), ctx.NPEs()
	p2 := pow2Floor(nPE)

	acc, err := src.Get(0, n, rank)
	if err != nil {
		return fmt.Errorf(`read own contribution: %w`, err)
	}

	if rank >= p2 {
		result, err := donate(ctx, sync, work, n, rabenDonateSlot, rabenResultSlot, acc)
		if err != nil {
			return err
		}
		if err := ctx.Sub.Quiet(); err != nil {
			return fmt.Errorf(`quiet: %w`, err)
		}
		if err := dest.Put(0, result, ctx.Team.WorldRank(rank)); err != nil {
			return fmt.Errorf(`write result: %w`, err)
		}
		return sync.Reset(pscratch.SyncValue)
	}

	hadDonation, err := adopt(ctx, sync, work, n, rabenDonateSlot, acc, op)
	if err != nil {
		return err
	}

	layout := newBlockLayout(n, p2)
	const scratchBase = 2 // element offset past the donate [0,n) and adopt-return [n,2n) regions
	if err := reduceScatter(ctx, sync, work, scratchBase*n, layout, acc, op); err != nil {
		return fmt.Errorf(`reduce_scatter: %w`, err)
	}

	// reduceScatter leaves this PE's own reduced block sitting in acc at its
	// natural offset, but never writes it into the scratch work buffer the
	// allgather phase exchanges through -- seed it there first.
	myOff, myCount := layout.offsets[rank], layout.counts[rank]
	if myCount > 0 {
		if err := work.Put(scratchBase*n+myOff, acc[myOff:myOff+myCount], ctx.Team.WorldRank(rank)); err != nil {
			return fmt.Errorf(`seed own block: %w`, err)
		}
		if err := ctx.Sub.Quiet(); err != nil {
			return fmt.Errorf(`seed own block: quiet: %w`, err)
		}
	}

	if ring {
		if err := allgatherRing(ctx, sync, work, scratchBase*n, layout); err != nil {
			return fmt.Errorf(`allgather: %w`, err)
		}
	} else {
		if err := allgatherDoubling(ctx, sync, work, scratchBase*n, layout, acc); err != nil {
			return fmt.Errorf(`allgather: %w`, err)
		}
	}
	full, err := work.Get(scratchBase*n, n, rank)
	if err != nil {
		return fmt.Errorf(`read full vector: %w`, err)
	}
	copy(acc, full)

	if err := adoptReturn(ctx, sync, work, n, rabenResultSlot, acc, hadDonation); err != nil {
		return err
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`quiet: %w`, err)
	}
	if err := dest.Put(0, acc, ctx.Team.WorldRank(rank)); err != nil {
		return fmt.Errorf(`write result: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// Rabenseifner: reduce-scatter (recursive halving) over the power-of-2
// subset followed by a recursive-doubling allgather, with the
// RecursiveDoubling package's donate/adopt helpers covering non-power-of-2
// N the same way RecursiveDoubling does.
func Rabenseifner[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op Op[T]) error {
	if err := rabenseifnerCore(ctx, sync, work, dest, src, n, op, false); err != nil {
		return fmt.Errorf(`reduce: rabenseifner: %w`, err)
	}
	return nil
}

// RabenseifnerRing: identical reduce-scatter phase to Rabenseifner, but
// reassembles the vector with a ring pass instead of recursive doubling --
// more but smaller messages (p2-1 rounds of one block each), the usual
// ring-allgather bandwidth tradeoff.
func RabenseifnerRing[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op Op[T]) error {
	if err := rabenseifnerCore(ctx, sync, work, dest, src, n, op, true); err != nil {
		return fmt.Errorf(`reduce: rabenseifner_ring: %w`, err)
	}
	return nil
}
