// Package barrier implements the barrier family: five algorithms sharing
// one contract -- every member that has entered may leave only once every
// member has entered, and all RMA issued by any member before entry is
// remotely complete before any member exits.
package barrier

import (
	"fmt"
	"math/bits"
	"sync/atomic"

	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
)

// Algorithm is the shared barrier contract: every implementation takes a
// Context (bound team + substrate) and a pSync array sized for that
// algorithm, and blocks until every team member has entered.
type Algorithm func(ctx *team.Context, sync pscratch.Sync) error

// Per-algorithm pSync length requirements -- each algorithm gets an
// explicit, named constant rather than an assumed `pSync+1` offset, since
// barrier and reduction pSync sizing are independent concerns.
const (
	SyncSizeLinear      = 2
	SyncSizeCompleteTree = 2
	SyncSizeBinomial    = 2
	SyncSizeKNomial     = 2
)

// DisseminationSyncSize returns the pSync length the Dissemination
// algorithm needs for a team of n members: one slot per round.
func DisseminationSyncSize(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

var (
	treeDegree   atomic.Int64
	knomialRadix atomic.Int64
)

func init() {
	treeDegree.Store(4)
	knomialRadix.Store(4)
}

// SetTreeDegree configures the fan-in/fan-out degree CompleteTree uses.
func SetTreeDegree(d int) {
	if d < 2 {
		panic(`barrier: tree degree must be >= 2`)
	}
	treeDegree.Store(int64(d))
}

// TreeDegree returns the degree CompleteTree currently uses.
func TreeDegree() int { return int(treeDegree.Load()) }

// SetKNomialRadix configures the radix KNomial uses.
func SetKNomialRadix(r int) {
	if r < 2 {
		panic(`barrier: knomial radix must be >= 2`)
	}
	knomialRadix.Store(int64(r))
}

// KNomialRadix returns the radix KNomial currently uses.
func KNomialRadix() int { return int(knomialRadix.Load()) }

// gatherThenRelease is the shared fan-in/fan-out shape used by CompleteTree,
// Binomial, and KNomial: gather arrival signals from children (counting
// against the sentinel baseline), signal the parent, wait for release, then
// forward release to children. Each goroutine-PE runs this independently;
// the cascade emerges from the wait/forward dependency chain, not from any
// explicit recursion. pSync is restored before children are released, so a
// released child's arrival for the next barrier is never overwritten.
func gatherThenRelease(ctx *team.Context, sync pscratch.Sync, parent int, hasParent bool, children []int) error {
	if len(children) > 0 {
		target := pscratch.SyncValue + int64(len(children))
		if err := sync.Wait(0, rma.GE, target); err != nil {
			return fmt.Errorf(`barrier: gather: %w`, err)
		}
	}
	if hasParent {
		if err := sync.AtomicAdd(0, 1, ctx.Team.WorldRank(parent)); err != nil {
			return fmt.Errorf(`barrier: signal parent: %w`, err)
		}
		if err := sync.Wait(1, rma.GE, pscratch.SyncValue+1); err != nil {
			return fmt.Errorf(`barrier: wait release: %w`, err)
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`barrier: quiet: %w`, err)
	}
	if err := sync.Reset(pscratch.SyncValue); err != nil {
		return err
	}
	for _, c := range children {
		if err := sync.Signal(1, pscratch.SyncValue+1, ctx.Team.WorldRank(c)); err != nil {
			return fmt.Errorf(`barrier: release child %d: %w`, c, err)
		}
	}
	return nil
}

// Linear: PE 0 collects sentinel-advance atomics from all others, then
// broadcasts release.
func Linear(ctx *team.Context, sync pscratch.Sync) error {
	rank := ctx.MyPE()
	n := ctx.NPEs()
	const root = 0
	if rank == root {
		if n > 1 {
			if err := sync.Wait(0, rma.GE, pscratch.SyncValue+int64(n-1)); err != nil {
				return fmt.Errorf(`barrier: linear: gather: %w`, err)
			}
		}
		// Restore pSync before releasing anyone, so an arrival for the next
		// barrier from an already-released PE is never overwritten.
		if err := ctx.Sub.Quiet(); err != nil {
			return fmt.Errorf(`barrier: linear: quiet: %w`, err)
		}
		if err := sync.Reset(pscratch.SyncValue); err != nil {
			return err
		}
		for p := 1; p < n; p++ {
			if err := sync.Signal(1, pscratch.SyncValue+1, ctx.Team.WorldRank(p)); err != nil {
				return fmt.Errorf(`barrier: linear: release %d: %w`, p, err)
			}
		}
		return nil
	} else {
		if err := sync.AtomicAdd(0, 1, ctx.Team.WorldRank(root)); err != nil {
			return fmt.Errorf(`barrier: linear: signal root: %w`, err)
		}
		if err := sync.Wait(1, rma.GE, pscratch.SyncValue+1); err != nil {
			return fmt.Errorf(`barrier: linear: wait release: %w`, err)
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`barrier: linear: quiet: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// CompleteTree: fan-in of degree TreeDegree() followed by fan-out of the
// same degree.
func CompleteTree(ctx *team.Context, sync pscratch.Sync) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	degree := TreeDegree()
	parent, hasParent := completeParent(rank, degree)
	children := completeChildren(rank, n, degree)
	return gatherThenRelease(ctx, sync, parent, hasParent, children)
}

// Binomial: bitmask-based fan-in on binomial-tree neighbors (the r=2 case
// of the k-nomial tree).
func Binomial(ctx *team.Context, sync pscratch.Sync) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	parent, hasParent := treeParent(rank, 2)
	children := treeChildren(rank, n, 2)
	return gatherThenRelease(ctx, sync, parent, hasParent, children)
}

// KNomial: like Binomial, with configurable radix KNomialRadix().
func KNomial(ctx *team.Context, sync pscratch.Sync) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	r := KNomialRadix()
	parent, hasParent := treeParent(rank, r)
	children := treeChildren(rank, n, r)
	return gatherThenRelease(ctx, sync, parent, hasParent, children)
}

// Dissemination: ceil(log2 N) rounds of pair exchanges (i <-> i+2^r mod N).
// Every PE learns completion independently; there is no separate fan-out
// phase. Each round's slot is a counter: the sender adds one and the
// receiver consumes it by subtracting one, so a signal for the next barrier
// that arrives early is kept rather than overwritten, and the slot is back
// at the sentinel once every signal has been consumed.
func Dissemination(ctx *team.Context, sync pscratch.Sync) error {
	rank, n := ctx.MyPE(), ctx.NPEs()
	rounds := DisseminationSyncSize(n)
	target := pscratch.SyncValue + 1
	for r := 0; r < rounds; r++ {
		partner := (rank + (1 << r)) % n
		if err := sync.AtomicAdd(r, 1, ctx.Team.WorldRank(partner)); err != nil {
			return fmt.Errorf(`barrier: dissemination: round %d signal: %w`, r, err)
		}
		if err := sync.Wait(r, rma.GE, target); err != nil {
			return fmt.Errorf(`barrier: dissemination: round %d wait: %w`, r, err)
		}
		if err := sync.AtomicAdd(r, -1, ctx.Sub.MyPE()); err != nil {
			return fmt.Errorf(`barrier: dissemination: round %d consume: %w`, r, err)
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`barrier: dissemination: quiet: %w`, err)
	}
	return nil
}
