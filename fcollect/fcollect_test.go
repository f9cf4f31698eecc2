package fcollect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTMichalowicz/go-shcoll/fcollect"
	"github.com/BTMichalowicz/go-shcoll/internal/testkit"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/team"
)

type fcollectCase struct {
	name     string
	sizes    []int
	syncSize func(n int) int
	run      func(ctx *team.Context, sync pscratch.Sync, dst, src pscratch.Work[int32], nelems int) error
}

func TestFcollect(t *testing.T) {
	const nelems = 3
	cases := []fcollectCase{
		{"linear", []int{1, 2, 3, 4, 5}, func(int) int { return fcollect.SyncSizeLinear }, fcollect.Linear[int32]},
		{"all_linear", []int{1, 2, 3, 4, 5}, func(int) int { return fcollect.SyncSizeAllLinear }, fcollect.AllLinear[int32]},
		{"recursive_doubling", []int{1, 2, 4, 8}, fcollect.RoundSyncSize, fcollect.RecursiveDoubling[int32]},
		{"ring", []int{1, 2, 3, 4, 5}, func(int) int { return fcollect.SyncSizeRing }, fcollect.Ring[int32]},
		{"bruck", []int{1, 2, 4, 8}, fcollect.RoundSyncSize, fcollect.Bruck[int32]},
		{"bruck_no_rotate", []int{1, 2, 4, 8}, fcollect.RoundSyncSize, fcollect.BruckNoRotate[int32]},
		{"bruck_signal", []int{1, 2, 4, 8}, fcollect.RoundSyncSize, fcollect.BruckSignal[int32]},
		{"neighbor_exchange", []int{2, 4, 6, 8}, func(int) int { return fcollect.SyncSizeNeighborExchange }, fcollect.NeighborExchange[int32]},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			for _, n := range c.sizes {
				n := n
				t.Run("", func(t *testing.T) {
					sim, ctxs := testkit.World(n)
					syncLen := c.syncSize(n)
					syncBase := testkit.AllocSync(sim, syncLen)
					srcBase := sim.Alloc(nelems * 4)
					dstBase := sim.Alloc(n * nelems * 4)

					syncs := make([]pscratch.Sync, n)
					srcs := make([]pscratch.Work[int32], n)
					dsts := make([]pscratch.Work[int32], n)
					want := make([]int32, n*nelems)
					for i := 0; i < n; i++ {
						syncs[i] = pscratch.Sync{Sub: ctxs[i].Sub, Base: syncBase, Len: syncLen}
						require.NoError(t, syncs[i].Reset(pscratch.SyncValue))
						srcs[i] = pscratch.Work[int32]{Sub: ctxs[i].Sub, Base: srcBase, Len: nelems}
						dsts[i] = pscratch.Work[int32]{Sub: ctxs[i].Sub, Base: dstBase, Len: n * nelems}

						contribution := make([]int32, nelems)
						for j := range contribution {
							contribution[j] = int32(i*1000 + j)
							want[i*nelems+j] = contribution[j]
						}
						require.NoError(t, srcs[i].Put(0, contribution, ctxs[i].Team.WorldRank(i)))
					}

					errs := testkit.RunPEs(n, func(pe int) error {
						return c.run(ctxs[pe], syncs[pe], dsts[pe], srcs[pe], nelems)
					})
					require.NoError(t, testkit.FirstError(errs))

					for i := 0; i < n; i++ {
						got, err := dsts[i].Get(0, n*nelems, i)
						require.NoError(t, err)
						assert.Equal(t, want, got, "pe %d", i)
						assert.NoError(t, syncs[i].Verify(pscratch.SyncValue))
					}
				})
			}
		})
	}
}

func TestFcollect_BruckInplace(t *testing.T) {
	const nelems = 3
	for _, n := range []int{1, 2, 4, 8} {
		n := n
		t.Run("", func(t *testing.T) {
			sim, ctxs := testkit.World(n)
			syncLen := fcollect.RoundSyncSize(n)
			syncBase := testkit.AllocSync(sim, syncLen)
			dstBase := sim.Alloc(n * nelems * 4)

			syncs := make([]pscratch.Sync, n)
			dsts := make([]pscratch.Work[int32], n)
			want := make([]int32, n*nelems)
			for i := 0; i < n; i++ {
				syncs[i] = pscratch.Sync{Sub: ctxs[i].Sub, Base: syncBase, Len: syncLen}
				require.NoError(t, syncs[i].Reset(pscratch.SyncValue))
				dsts[i] = pscratch.Work[int32]{Sub: ctxs[i].Sub, Base: dstBase, Len: n * nelems}

				contribution := make([]int32, nelems)
				for j := range contribution {
					contribution[j] = int32(i*1000 + j)
					want[i*nelems+j] = contribution[j]
				}
				require.NoError(t, dsts[i].Put(0, contribution, ctxs[i].Team.WorldRank(i)))
			}

			errs := testkit.RunPEs(n, func(pe int) error {
				return fcollect.BruckInplace(ctxs[pe], syncs[pe], dsts[pe], nelems)
			})
			require.NoError(t, testkit.FirstError(errs))

			for i := 0; i < n; i++ {
				got, err := dsts[i].Get(0, n*nelems, i)
				require.NoError(t, err)
				assert.Equal(t, want, got, "pe %d", i)
				assert.NoError(t, syncs[i].Verify(pscratch.SyncValue))
			}
		})
	}
}
