package broadcast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTMichalowicz/go-shcoll/broadcast"
	"github.com/BTMichalowicz/go-shcoll/internal/testkit"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
)

func TestBroadcast(t *testing.T) {
	for _, alg := range []string{"linear", "binomial_tree"} {
		alg := alg
		for _, n := range []int{1, 2, 3, 4, 8} {
			n := n
			t.Run(alg, func(t *testing.T) {
				const root = 0
				const nelems = 5

				sim, ctxs := testkit.World(n)
				syncBase := testkit.AllocSync(sim, 1)
				workBase := sim.Alloc(nelems * 4)

				syncs := make([]pscratch.Sync, n)
				bufs := make([]pscratch.Work[int32], n)
				for i := 0; i < n; i++ {
					syncs[i] = pscratch.Sync{Sub: ctxs[i].Sub, Base: syncBase, Len: 1}
					require.NoError(t, syncs[i].Reset(pscratch.SyncValue))
					bufs[i] = pscratch.Work[int32]{Sub: ctxs[i].Sub, Base: workBase, Len: nelems}
				}
				want := []int32{10, 20, 30, 40, 50}
				require.NoError(t, bufs[root].Put(0, want, ctxs[root].Team.WorldRank(root)))

				errs := testkit.RunPEs(n, func(pe int) error {
					if alg == "linear" {
						return broadcast.Linear(ctxs[pe], syncs[pe], bufs[pe], nelems, root)
					}
					return broadcast.BinomialTree(ctxs[pe], syncs[pe], bufs[pe], nelems, root)
				})
				require.NoError(t, testkit.FirstError(errs))

				for i := 0; i < n; i++ {
					got, err := bufs[i].Get(0, nelems, i)
					require.NoError(t, err)
					assert.Equal(t, want, got, "pe %d", i)
					assert.NoError(t, syncs[i].Verify(pscratch.SyncValue))
				}
			})
		}
	}
}
