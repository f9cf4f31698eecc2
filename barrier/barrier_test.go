package barrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTMichalowicz/go-shcoll/barrier"
	"github.com/BTMichalowicz/go-shcoll/internal/testkit"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
)

func allAlgorithms() map[string]barrier.Algorithm {
	return map[string]barrier.Algorithm{
		"linear":        barrier.Linear,
		"complete_tree": barrier.CompleteTree,
		"binomial":      barrier.Binomial,
		"knomial":       barrier.KNomial,
		"dissemination": barrier.Dissemination,
	}
}

func syncSizeFor(name string, n int) int {
	switch name {
	case "linear":
		return barrier.SyncSizeLinear
	case "complete_tree":
		return barrier.SyncSizeCompleteTree
	case "binomial":
		return barrier.SyncSizeBinomial
	case "knomial":
		return barrier.SyncSizeKNomial
	case "dissemination":
		return barrier.DisseminationSyncSize(n)
	default:
		panic("unknown algorithm " + name)
	}
}

func TestBarrier_AllMembersReleased(t *testing.T) {
	for name, algo := range allAlgorithms() {
		name, algo := name, algo
		for _, n := range []int{1, 2, 3, 4, 8} {
			n := n
			t.Run(name, func(t *testing.T) {
				sim, ctxs := testkit.World(n)
				length := syncSizeFor(name, n)
				base := testkit.AllocSync(sim, length)

				syncs := make([]pscratch.Sync, n)
				for i := range ctxs {
					syncs[i] = pscratch.Sync{Sub: ctxs[i].Sub, Base: base, Len: length}
					require.NoError(t, syncs[i].Reset(pscratch.SyncValue))
				}

				errs := testkit.RunPEs(n, func(pe int) error {
					return algo(ctxs[pe], syncs[pe])
				})
				require.NoError(t, testkit.FirstError(errs))

				for i := range syncs {
					assert.NoError(t, syncs[i].Verify(pscratch.SyncValue), "pe %d pSync not restored", i)
				}
			})
		}
	}
}

// TestBarrier_Idempotence runs 100 successive barriers on WORLD; a per-PE
// atomic counter incremented between barriers must end at n*100, visible to
// PE 0 after the final barrier.
func TestBarrier_Idempotence(t *testing.T) {
	const n = 4
	const rounds = 100
	sim, ctxs := testkit.World(n)
	length := barrier.SyncSizeLinear
	base := testkit.AllocSync(sim, length)
	counterAddr := sim.Alloc(8)

	syncs := make([]pscratch.Sync, n)
	for i := range ctxs {
		syncs[i] = pscratch.Sync{Sub: ctxs[i].Sub, Base: base, Len: length}
		require.NoError(t, syncs[i].Reset(pscratch.SyncValue))
	}

	errs := testkit.RunPEs(n, func(pe int) error {
		for r := 0; r < rounds; r++ {
			if err := ctxs[pe].Sub.AtomicAddLong(counterAddr, 1, 0); err != nil {
				return err
			}
			if err := barrier.Linear(ctxs[pe], syncs[pe]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, testkit.FirstError(errs))

	got, err := ctxs[0].Sub.AtomicFetchLong(counterAddr, 0)
	require.NoError(t, err)
	assert.EqualValues(t, n*rounds, got)

	for i := range syncs {
		assert.NoError(t, syncs[i].Verify(pscratch.SyncValue))
	}
}
