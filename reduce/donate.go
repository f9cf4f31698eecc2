package reduce

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// RecursiveDoubling and Rabenseifner/RabenseifnerRing all require a
// power-of-2 subset to run their round structure over. For n not itself a
// power of 2, the highest (n - pow2Floor(n)) "extra" PEs donate their
// contribution to a paired "adopter" PE in the subset before the subset's
// rounds begin, then receive the final result back from their adopter
// afterward -- donate and adopt implement the two halves of that protocol.

// donate sends acc (this extra PE's local accumulator) to its adopter
// (rank - p2), signals slot donateSlot, then waits on slot resultSlot for
// the adopter to send the final reduction back.
func donate[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work pscratch.Work[T], n, donateSlot, resultSlot int, acc []T) ([]T, error) {
	rank := ctx.MyPE()
	p2 := pow2Floor(ctx.NPEs())
	adopter := rank - p2
	if err := work.Put(0, acc, ctx.Team.WorldRank(adopter)); err != nil {
		return nil, fmt.Errorf(`reduce: donate: put: %w`, err)
	}
	if err := ctx.Sub.Fence(-1); err != nil {
		return nil, fmt.Errorf(`reduce: donate: fence: %w`, err)
	}
	if err := sync.Signal(donateSlot, pscratch.SyncValue+1, ctx.Team.WorldRank(adopter)); err != nil {
		return nil, fmt.Errorf(`reduce: donate: signal: %w`, err)
	}
	if err := sync.Wait(resultSlot, rma.GE, pscratch.SyncValue+1); err != nil {
		return nil, fmt.Errorf(`reduce: donate: wait result: %w`, err)
	}
	result, err := work.Get(n, n, rank)
	if err != nil {
		return nil, fmt.Errorf(`reduce: donate: read result: %w`, err)
	}
	return result, nil
}

// adopt waits for an extra PE's donation (if this PE has one: extras are
// ranks [p2, nPE), mapped 1:1 onto adopters [0, nPE-p2)), combines it into
// acc, and returns whether a donation was incorporated.
func adopt[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work pscratch.Work[T], n, donateSlot int, acc []T, op Op[T]) (bool, error) {
	rank, nPE := ctx.MyPE(), ctx.NPEs()
	p2 := pow2Floor(nPE)
	extraCount := nPE - p2
	if rank >= extraCount {
		return false, nil
	}
	if err := sync.Wait(donateSlot, rma.GE, pscratch.SyncValue+1); err != nil {
		return false, fmt.Errorf(`reduce: adopt: wait donation: %w`, err)
	}
	donated, err := work.Get(0, n, rank)
	if err != nil {
		return false, fmt.Errorf(`reduce: adopt: read donation: %w`, err)
	}
	apply(op, acc, donated)
	return true, nil
}

// adoptReturn sends the final reduction back to this adopter's extra PE
// (rank + p2), if it has one.
func adoptReturn[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, work pscratch.Work[T], n, resultSlot int, acc []T, hadDonation bool) error {
	if !hadDonation {
		return nil
	}
	rank := ctx.MyPE()
	p2 := pow2Floor(ctx.NPEs())
	extra := rank + p2
	if err := work.Put(n, acc, ctx.Team.WorldRank(extra)); err != nil {
		return fmt.Errorf(`reduce: adopt_return: put: %w`, err)
	}
	if err := ctx.Sub.Fence(-1); err != nil {
		return fmt.Errorf(`reduce: adopt_return: fence: %w`, err)
	}
	return sync.Signal(resultSlot, pscratch.SyncValue+1, ctx.Team.WorldRank(extra))
}
