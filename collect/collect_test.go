package collect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTMichalowicz/go-shcoll/collect"
	"github.com/BTMichalowicz/go-shcoll/internal/testkit"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
)

func TestCollect(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4} {
		n := n
		t.Run("", func(t *testing.T) {
			sim, ctxs := testkit.World(n)
			syncLen := collect.SyncSize(n)
			syncBase := testkit.AllocSync(sim, syncLen)

			// Each PE contributes pe+1 elements: 1, 2, 3, ...
			lens := make([]int, n)
			totalCap := 0
			for i := range lens {
				lens[i] = i + 1
				totalCap += lens[i]
			}
			srcBase := sim.Alloc(totalCap * 4) // over-provisioned per-PE, reused below
			dstBase := sim.Alloc(totalCap * 4)

			syncs := make([]pscratch.Sync, n)
			srcs := make([]pscratch.Work[int32], n)
			dsts := make([]pscratch.Work[int32], n)
			want := make([][]int32, n)
			for i := 0; i < n; i++ {
				syncs[i] = pscratch.Sync{Sub: ctxs[i].Sub, Base: syncBase, Len: syncLen}
				require.NoError(t, syncs[i].Reset(pscratch.SyncValue))
				srcs[i] = pscratch.Work[int32]{Sub: ctxs[i].Sub, Base: srcBase, Len: lens[i]}
				dsts[i] = pscratch.Work[int32]{Sub: ctxs[i].Sub, Base: dstBase, Len: totalCap}

				contribution := make([]int32, lens[i])
				for j := range contribution {
					contribution[j] = int32((i+1)*100 + j)
				}
				want[i] = contribution
				require.NoError(t, srcs[i].Put(0, contribution, ctxs[i].Team.WorldRank(i)))
			}

			offsets := make([]int, n)
			totals := make([]int, n)
			errs := testkit.RunPEs(n, func(pe int) error {
				off, total, err := collect.Collect(ctxs[pe], syncs[pe], dsts[pe], srcs[pe], lens[pe])
				offsets[pe], totals[pe] = off, total
				return err
			})
			require.NoError(t, testkit.FirstError(errs))

			wantTotal := totalCap
			wantOffset := 0
			for i := 0; i < n; i++ {
				assert.Equal(t, wantTotal, totals[i], "pe %d total", i)
				assert.Equal(t, wantOffset, offsets[i], "pe %d offset", i)
				wantOffset += lens[i]
			}

			var flat []int32
			for i := 0; i < n; i++ {
				flat = append(flat, want[i]...)
			}
			for i := 0; i < n; i++ {
				got, err := dsts[i].Get(0, wantTotal, i)
				require.NoError(t, err)
				assert.Equal(t, flat, got, "pe %d view", i)
				assert.NoError(t, syncs[i].Verify(pscratch.SyncValue))
			}
		})
	}
}
