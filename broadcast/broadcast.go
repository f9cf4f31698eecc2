// Package broadcast implements the internal broadcast family: a root PE's
// buffer delivered to all others. reduce uses these directly; they also
// service the user-facing Broadcast entry in shcoll.go.
//
// Data placement: because a destination must be a symmetric address, a
// sender's remote Put writes directly into the peer's own row at that
// address -- so once a non-root PE observes the completion signal, its
// local copy of buf is already correct; it never needs to Get.
package broadcast

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/internal/treeshape"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// SyncSizeLinear and SyncSizeBinomialTree are the pSync lengths the two
// algorithms require.
const (
	SyncSizeLinear       = 1
	SyncSizeBinomialTree = 1
)

// Linear: root Gets its own buffer once, Puts it to every other member,
// Fences (ordering the puts ahead of the signal), then signals everyone.
func Linear[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, buf pscratch.Work[T], n, root int) error {
	rank := ctx.MyPE()
	if rank == root {
		data, err := buf.Get(0, n, root)
		if err != nil {
			return fmt.Errorf(`broadcast: linear: read own buffer: %w`, err)
		}
		for p := 0; p < ctx.NPEs(); p++ {
			if p == root {
				continue
			}
			if err := buf.Put(0, data, ctx.Team.WorldRank(p)); err != nil {
				return fmt.Errorf(`broadcast: linear: put to %d: %w`, p, err)
			}
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`broadcast: linear: fence: %w`, err)
		}
		for p := 0; p < ctx.NPEs(); p++ {
			if p == root {
				continue
			}
			if err := sync.Signal(0, pscratch.SyncValue+1, ctx.Team.WorldRank(p)); err != nil {
				return fmt.Errorf(`broadcast: linear: signal %d: %w`, p, err)
			}
		}
	} else {
		if err := sync.Wait(0, rma.GE, pscratch.SyncValue+1); err != nil {
			return fmt.Errorf(`broadcast: linear: wait: %w`, err)
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`broadcast: linear: quiet: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}

// BinomialTree: root seeds its buffer, then delivery cascades down a
// binomial tree in log2 N steps -- each node, once signaled by its parent
// (data already in place via remote Put), forwards to its own children.
func BinomialTree[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, buf pscratch.Work[T], n, root int) error {
	rank := ctx.MyPE()
	nPE := ctx.NPEs()
	// Re-root the tree numbering at `root` by working in rotated coordinates.
	rel := (rank - root + nPE) % nPE
	_, hasParent := treeshape.KNomialParent(rel, 2)
	childrenRel := treeshape.KNomialChildren(rel, nPE, 2)

	if hasParent {
		if err := sync.Wait(0, rma.GE, pscratch.SyncValue+1); err != nil {
			return fmt.Errorf(`broadcast: binomial_tree: wait parent: %w`, err)
		}
	}
	if len(childrenRel) > 0 {
		data, err := buf.Get(0, n, rank)
		if err != nil {
			return fmt.Errorf(`broadcast: binomial_tree: read own buffer: %w`, err)
		}
		for _, cRel := range childrenRel {
			childRank := (cRel + root) % nPE
			if err := buf.Put(0, data, ctx.Team.WorldRank(childRank)); err != nil {
				return fmt.Errorf(`broadcast: binomial_tree: put to %d: %w`, childRank, err)
			}
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`broadcast: binomial_tree: fence: %w`, err)
		}
		for _, cRel := range childrenRel {
			childRank := (cRel + root) % nPE
			if err := sync.Signal(0, pscratch.SyncValue+1, ctx.Team.WorldRank(childRank)); err != nil {
				return fmt.Errorf(`broadcast: binomial_tree: signal %d: %w`, childRank, err)
			}
		}
	}
	if err := ctx.Sub.Quiet(); err != nil {
		return fmt.Errorf(`broadcast: binomial_tree: quiet: %w`, err)
	}
	return sync.Reset(pscratch.SyncValue)
}
