package reduce_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BTMichalowicz/go-shcoll/internal/testkit"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/reduce"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

type reduceCase[T typeset.Integer] struct {
	name     string
	sizes    []int
	syncSize func(n int) int
	workSize func(n, nElems int) int
	run      func(ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op reduce.Op[T]) error
}

func reduceCases[T typeset.Integer](sizes []int) []reduceCase[T] {
	return []reduceCase[T]{
		{
			"linear",
			sizes,
			func(int) int { return reduce.SyncSizeLinear },
			func(int, int) int { return 0 },
			func(ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op reduce.Op[T]) error {
				return reduce.Linear(ctx, sync, dest, src, n, op)
			},
		},
		{
			"binomial",
			sizes,
			reduce.BinomialSyncSize,
			func(n, _ int) int { return reduce.BinomialWorkSize(n) },
			func(ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op reduce.Op[T]) error {
				return reduce.Binomial(ctx, sync, work, dest, src, n, op)
			},
		},
		{
			"recursive_doubling",
			sizes,
			reduce.RecursiveDoublingSyncSize,
			reduce.RecursiveDoublingWorkSize,
			func(ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op reduce.Op[T]) error {
				return reduce.RecursiveDoubling(ctx, sync, work, dest, src, n, op)
			},
		},
		{
			"rabenseifner",
			sizes,
			reduce.RabenseifnerSyncSize,
			reduce.RabenseifnerWorkSize,
			func(ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op reduce.Op[T]) error {
				return reduce.Rabenseifner(ctx, sync, work, dest, src, n, op)
			},
		},
		{
			"rabenseifner_ring",
			sizes,
			reduce.RabenseifnerRingSyncSize,
			reduce.RabenseifnerWorkSize,
			func(ctx *team.Context, sync pscratch.Sync, work, dest, src pscratch.Work[T], n int, op reduce.Op[T]) error {
				return reduce.RabenseifnerRing(ctx, sync, work, dest, src, n, op)
			},
		},
	}
}

func TestReduce_Sum(t *testing.T) {
	op := reduce.Sum[int32]()
	runReduceCases(t, op, func(contribs [][]int32, nelems int) []int32 {
		want := make([]int32, nelems)
		for _, c := range contribs {
			for j := range want {
				want[j] += c[j]
			}
		}
		return want
	})
}

func TestReduce_Max(t *testing.T) {
	op := reduce.Max[int32]()
	runReduceCases(t, op, func(contribs [][]int32, nelems int) []int32 {
		want := make([]int32, nelems)
		copy(want, contribs[0])
		for _, c := range contribs[1:] {
			for j := range want {
				if c[j] > want[j] {
					want[j] = c[j]
				}
			}
		}
		return want
	})
}

func TestReduce_Min(t *testing.T) {
	op := reduce.Min[int32]()
	runReduceCases(t, op, func(contribs [][]int32, nelems int) []int32 {
		want := make([]int32, nelems)
		copy(want, contribs[0])
		for _, c := range contribs[1:] {
			for j := range want {
				if c[j] < want[j] {
					want[j] = c[j]
				}
			}
		}
		return want
	})
}

func TestReduce_Prod(t *testing.T) {
	op := reduce.Prod[int32]()
	runReduceCases(t, op, func(contribs [][]int32, nelems int) []int32 {
		want := make([]int32, nelems)
		for j := range want {
			want[j] = 1
		}
		for _, c := range contribs {
			for j := range want {
				want[j] *= c[j]
			}
		}
		return want
	})
}

func TestReduce_Xor(t *testing.T) {
	op := reduce.Xor[int32]()
	runReduceCases(t, op, func(contribs [][]int32, nelems int) []int32 {
		want := make([]int32, nelems)
		for _, c := range contribs {
			for j := range want {
				want[j] ^= c[j]
			}
		}
		return want
	})
}

func TestReduce_And(t *testing.T) {
	op := reduce.And[int32]()
	runReduceCases(t, op, func(contribs [][]int32, nelems int) []int32 {
		want := make([]int32, nelems)
		for j := range want {
			want[j] = -1
		}
		for _, c := range contribs {
			for j := range want {
				want[j] &= c[j]
			}
		}
		return want
	})
}

func TestReduce_Or(t *testing.T) {
	op := reduce.Or[int32]()
	runReduceCases(t, op, func(contribs [][]int32, nelems int) []int32 {
		want := make([]int32, nelems)
		for _, c := range contribs {
			for j := range want {
				want[j] |= c[j]
			}
		}
		return want
	})
}

// TestReduce_And_SpecScenario exercises every algorithm against the named
// AND scenario: N=4, one element, PE k contributes 0xFFFFFFFF with its own
// bit k cleared, so the AND of all four contributions clears bits 0-3 and
// leaves every other bit set.
func TestReduce_And_SpecScenario(t *testing.T) {
	const n = 4
	const nelems = 1
	op := reduce.And[uint32]()
	contribs := make([][]uint32, n)
	for k := 0; k < n; k++ {
		contribs[k] = []uint32{0xFFFFFFFF ^ (1 << uint(k))}
	}
	want := []uint32{0xFFFFFFF0}

	for _, c := range reduceCases[uint32]([]int{n}) {
		c := c
		t.Run(c.name, func(t *testing.T) {
			runOneReduceCase(t, c, n, nelems, contribs, want, op)
		})
	}
}

func runReduceCases[T typeset.Integer](t *testing.T, op reduce.Op[T], expect func(contribs [][]T, nelems int) []T) {
	t.Helper()
	const nelems = 3
	sizes := []int{1, 2, 3, 4, 5, 7, 8}

	for _, c := range reduceCases[T](sizes) {
		c := c
		t.Run(c.name, func(t *testing.T) {
			for _, n := range c.sizes {
				n := n
				t.Run("", func(t *testing.T) {
					contribs := make([][]T, n)
					for i := 0; i < n; i++ {
						contribution := make([]T, nelems)
						for j := range contribution {
							contribution[j] = T((i+1)*10 + j)
						}
						contribs[i] = contribution
					}
					want := expect(contribs, nelems)
					runOneReduceCase(t, c, n, nelems, contribs, want, op)
				})
			}
		})
	}
}

// runOneReduceCase drives a single (algorithm, team size) combination to
// completion and asserts every member's dest matches want.
func runOneReduceCase[T typeset.Integer](t *testing.T, c reduceCase[T], n, nelems int, contribs [][]T, want []T, op reduce.Op[T]) {
	t.Helper()
	sim, ctxs := testkit.World(n)
	syncLen := c.syncSize(n)
	syncBase := testkit.AllocSync(sim, syncLen)
	workLen := c.workSize(n, nelems)
	var workBase = syncBase
	if workLen > 0 {
		workBase = sim.Alloc(workLen * typeset.Size[T]())
	}
	srcBase := sim.Alloc(nelems * typeset.Size[T]())
	destBase := sim.Alloc(nelems * typeset.Size[T]())

	syncs := make([]pscratch.Sync, n)
	works := make([]pscratch.Work[T], n)
	srcs := make([]pscratch.Work[T], n)
	dests := make([]pscratch.Work[T], n)
	for i := 0; i < n; i++ {
		syncs[i] = pscratch.Sync{Sub: ctxs[i].Sub, Base: syncBase, Len: syncLen}
		require.NoError(t, syncs[i].Reset(pscratch.SyncValue))
		works[i] = pscratch.Work[T]{Sub: ctxs[i].Sub, Base: workBase, Len: workLen}
		srcs[i] = pscratch.Work[T]{Sub: ctxs[i].Sub, Base: srcBase, Len: nelems}
		dests[i] = pscratch.Work[T]{Sub: ctxs[i].Sub, Base: destBase, Len: nelems}
		require.NoError(t, srcs[i].Put(0, contribs[i], ctxs[i].Team.WorldRank(i)))
	}

	errs := testkit.RunPEs(n, func(pe int) error {
		return c.run(ctxs[pe], syncs[pe], works[pe], dests[pe], srcs[pe], nelems, op)
	})
	require.NoError(t, testkit.FirstError(errs))

	for i := 0; i < n; i++ {
		got, err := dests[i].Get(0, nelems, i)
		require.NoError(t, err)
		assert.Equal(t, want, got, "pe %d", i)
		assert.NoError(t, syncs[i].Verify(pscratch.SyncValue))
	}
}
