package shcoll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shcoll "github.com/BTMichalowicz/go-shcoll"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/rma/simulator"
	"github.com/BTMichalowicz/go-shcoll/team"
)

// These tests exercise the public API as a single OS process binds exactly
// one PE -- the real deployment shape. Multi-PE algorithm correctness is
// covered exhaustively in barrier/broadcast/collect/fcollect/reduce/
// alltoall's own goroutine-simulated tests; here the concern is Init's
// lifecycle and the scratch-acquisition wiring around a single PE's calls.
func singlePE(t *testing.T) (*simulator.Simulator, func()) {
	t.Helper()
	sim := simulator.New(1)
	require.NoError(t, shcoll.Init(sim.PE(0), sim.Alloc, nil, 0))
	return sim, func() { shcoll.Finalize() }
}

func TestInitTwiceFails(t *testing.T) {
	_, done := singlePE(t)
	defer done()
	sim := simulator.New(1)
	err := shcoll.Init(sim.PE(0), sim.Alloc, nil, 0)
	assert.ErrorIs(t, err, shcoll.ErrPreconditionFailed)
}

func TestBarrierSinglePE(t *testing.T) {
	_, done := singlePE(t)
	defer done()
	require.NoError(t, shcoll.Barrier(shcoll.World()))
}

func TestBroadcastSinglePE(t *testing.T) {
	sim, done := singlePE(t)
	defer done()
	ctx := shcoll.World()
	base := sim.Alloc(5 * 4)
	buf := pscratch.Work[int32]{Sub: ctx.Sub, Base: base, Len: 5}
	want := []int32{1, 2, 3, 4, 5}
	require.NoError(t, buf.Put(0, want, ctx.Team.WorldRank(0)))

	require.NoError(t, shcoll.Broadcast(ctx, buf, 5, 0))
	got, err := buf.Get(0, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReduceSumSinglePE(t *testing.T) {
	sim, done := singlePE(t)
	defer done()
	ctx := shcoll.World()
	srcBase := sim.Alloc(3 * 4)
	dstBase := sim.Alloc(3 * 4)
	src := pscratch.Work[int32]{Sub: ctx.Sub, Base: srcBase, Len: 3}
	dst := pscratch.Work[int32]{Sub: ctx.Sub, Base: dstBase, Len: 3}
	want := []int32{7, 8, 9}
	require.NoError(t, src.Put(0, want, ctx.Team.WorldRank(0)))

	require.NoError(t, shcoll.ReduceSum(ctx, dst, src, 3))
	got, err := dst.Get(0, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFcollectSinglePE(t *testing.T) {
	sim, done := singlePE(t)
	defer done()
	ctx := shcoll.World()
	srcBase := sim.Alloc(2 * 4)
	dstBase := sim.Alloc(2 * 4)
	src := pscratch.Work[int32]{Sub: ctx.Sub, Base: srcBase, Len: 2}
	dst := pscratch.Work[int32]{Sub: ctx.Sub, Base: dstBase, Len: 2}
	want := []int32{11, 22}
	require.NoError(t, src.Put(0, want, ctx.Team.WorldRank(0)))

	require.NoError(t, shcoll.Fcollect(ctx, dst, src, 2))
	got, err := dst.Get(0, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAlltoallSinglePE(t *testing.T) {
	sim, done := singlePE(t)
	defer done()
	ctx := shcoll.World()
	srcBase := sim.Alloc(2 * 4)
	dstBase := sim.Alloc(2 * 4)
	src := pscratch.Work[int32]{Sub: ctx.Sub, Base: srcBase, Len: 2}
	dst := pscratch.Work[int32]{Sub: ctx.Sub, Base: dstBase, Len: 2}
	want := []int32{5, 6}
	require.NoError(t, src.Put(0, want, ctx.Team.WorldRank(0)))

	require.NoError(t, shcoll.Alltoall(ctx, dst, src, 2))
	got, err := dst.Get(0, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBarrierActiveSetSinglePE(t *testing.T) {
	sim, done := singlePE(t)
	defer done()
	syncBase := sim.Alloc(2 * 8)
	sv := pscratch.Sync{Sub: shcoll.World().Sub, Base: syncBase, Len: 2}
	require.NoError(t, sv.Reset(shcoll.SyncValue))

	require.NoError(t, shcoll.BarrierActiveSet(0, 0, 1, syncBase))
}

func TestAcquireBeforeInit(t *testing.T) {
	shcoll.Finalize() // guard against a previous test leaving it initialized
	sim := simulator.New(1)
	w := team.World(1)
	ctx := team.NewContext(w, sim.PE(0), team.CtxNone)
	err := shcoll.Barrier(ctx)
	assert.Error(t, err)
}
