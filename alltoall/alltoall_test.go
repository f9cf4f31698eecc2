package alltoall_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTMichalowicz/go-shcoll/alltoall"
	"github.com/BTMichalowicz/go-shcoll/config"
	"github.com/BTMichalowicz/go-shcoll/internal/testkit"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/team"
)

type alltoallCase struct {
	name  string
	sizes []int
	run   func(ctx *team.Context, sync pscratch.Sync, dest, src pscratch.Work[int32], nelems int, mode config.AlltoallSync) error
}

func TestAlltoall(t *testing.T) {
	const nelems = 2
	cases := []alltoallCase{
		{"shift_exchange", []int{1, 2, 3, 4, 5, 8}, alltoall.ShiftExchange[int32]},
		{"xor_pairwise", []int{1, 2, 4, 8}, alltoall.XORPairwise[int32]},
		{"color_pairwise", []int{1, 2, 3, 4, 5, 6, 8}, alltoall.ColorPairwise[int32]},
	}
	modes := []config.AlltoallSync{config.AlltoallSyncBarrier, config.AlltoallSyncCounter}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			for _, mode := range modes {
				mode := mode
				t.Run(string(mode), func(t *testing.T) {
					for _, n := range c.sizes {
						n := n
						t.Run("", func(t *testing.T) {
							sim, ctxs := testkit.World(n)
							syncLen, err := alltoall.SyncSize(mode, n)
							require.NoError(t, err)
							syncBase := testkit.AllocSync(sim, syncLen)
							srcBase := sim.Alloc(n * nelems * 4)
							destBase := sim.Alloc(n * nelems * 4)

							syncs := make([]pscratch.Sync, n)
							srcs := make([]pscratch.Work[int32], n)
							dests := make([]pscratch.Work[int32], n)
							for i := 0; i < n; i++ {
								syncs[i] = pscratch.Sync{Sub: ctxs[i].Sub, Base: syncBase, Len: syncLen}
								require.NoError(t, syncs[i].Reset(pscratch.SyncValue))
								srcs[i] = pscratch.Work[int32]{Sub: ctxs[i].Sub, Base: srcBase, Len: n * nelems}
								dests[i] = pscratch.Work[int32]{Sub: ctxs[i].Sub, Base: destBase, Len: n * nelems}

								block := make([]int32, n*nelems)
								for j := 0; j < n; j++ {
									for e := 0; e < nelems; e++ {
										block[j*nelems+e] = int32(i*1000 + j*10 + e)
									}
								}
								require.NoError(t, srcs[i].Put(0, block, ctxs[i].Team.WorldRank(i)))
							}

							errs := testkit.RunPEs(n, func(pe int) error {
								return c.run(ctxs[pe], syncs[pe], dests[pe], srcs[pe], nelems, mode)
							})
							require.NoError(t, testkit.FirstError(errs))

							for recv := 0; recv < n; recv++ {
								got, err := dests[recv].Get(0, n*nelems, recv)
								require.NoError(t, err)
								for sender := 0; sender < n; sender++ {
									for e := 0; e < nelems; e++ {
										want := int32(sender*1000 + recv*10 + e)
										assert.Equal(t, want, got[sender*nelems+e], "recv %d from sender %d elem %d", recv, sender, e)
									}
								}
								assert.NoError(t, syncs[recv].Verify(pscratch.SyncValue))
							}
						})
					}
				})
			}
		})
	}
}
