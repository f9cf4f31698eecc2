// Package shcoll is the collectives engine's public API: process
// lifecycle, team management, and the user-facing collective entries that
// wrap the internal barrier/broadcast/collect/fcollect/reduce/alltoall
// packages with scratch acquisition and structured logging.
package shcoll

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/BTMichalowicz/go-shcoll/alltoall"
	"github.com/BTMichalowicz/go-shcoll/barrier"
	"github.com/BTMichalowicz/go-shcoll/broadcast"
	"github.com/BTMichalowicz/go-shcoll/collect"
	"github.com/BTMichalowicz/go-shcoll/config"
	"github.com/BTMichalowicz/go-shcoll/fcollect"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/reduce"
	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/shlog"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// Sizing constants for the legacy active-set API (§ below), mirroring the
// real OpenSHMEM convention of compile-time-fixed pSync/pWrk bounds sized
// for a generous upper bound on PE count rather than the live team size.
// Init sizes its own internal scratch pool exactly for the process's
// actual world size instead of these.
const (
	maxSupportedPEs = 1 << 20 // generous upper bound: 20 dissemination/recursive-doubling rounds

	SyncSize             = 20
	ReduceSyncSize       = 2 + 2*20
	ReduceMinWrkDataSize = 16
	CollectSyncSize      = maxSupportedPEs + 1
	AlltoallSyncSize     = 20
)

// SyncValue is the sentinel every caller-supplied pSync element must be
// initialized to before use, and is restored to on return.
const SyncValue = pscratch.SyncValue

var (
	mu          sync.Mutex
	initialized bool

	sub  rma.Substrate
	cfg  config.Snapshot
	pool *pscratch.Pool

	worldTeam team.Team
	worldCtx  *team.Context

	// poolWorkBytes is the byte capacity of every pool work-scratch region;
	// callers whose reduction needs more than this must fall back to an
	// explicit, caller-allocated pWrk (see ReduceMinWrkDataSize).
	poolWorkBytes int
)

// Init binds the engine to a substrate for the process's lifetime. alloc
// must collectively allocate size symmetric bytes at the same offset on
// every PE -- the same contract rma/simulator's Alloc provides for tests.
// Init must be called exactly once, before any other entry in this
// package, by every PE.
func Init(s rma.Substrate, alloc func(size int) rma.Symmetric, logw io.Writer, logLevel zerolog.Level) error {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return fmt.Errorf(`shcoll: init: %w: already initialized`, ErrPreconditionFailed)
	}
	if logw != nil {
		shlog.Init(logw, logLevel)
	} else {
		shlog.InitDefault()
	}

	sub = s
	cfg = config.Load()
	shlog.Debug("config_load", s.MyPE(), s.NPEs(), map[string]any{
		"barrier_algo":   string(cfg.BarrierAlgo),
		"reduce_algo":    string(cfg.ReduceAlgo),
		"collect_algo":   string(cfg.CollectAlgo),
		"fcollect_algo":  string(cfg.FcollectAlgo),
		"alltoall_algo":  string(cfg.AlltoallAlgo),
		"alltoall_sync":  string(cfg.AlltoallSync),
		"broadcast_algo": string(cfg.BroadcastAlgo),
	})
	worldTeam = team.World(s.NPEs())
	worldCtx = team.NewContext(worldTeam, s, team.CtxSerialized)

	n := s.NPEs()
	syncLen, err := poolSyncLen(n)
	if err != nil {
		return fmt.Errorf(`shcoll: init: %w`, err)
	}
	// pWrk sized for the default reduce algorithm's minimum guaranteed
	// element count (pscratch.MinWorkSize), at the widest supported element
	// width (complex128, 16 bytes) -- the REDUCE_MIN_WRKDATA_SIZE contract.
	poolWorkBytes = pscratch.MinWorkSize(n) * 16
	pool = pscratch.NewPool(s, alloc, 8, syncLen, poolWorkBytes)

	initialized = true
	shlog.Debug("init", s.MyPE(), n, map[string]any{"reduce_algo": string(cfg.ReduceAlgo)})
	return nil
}

// poolSyncLen returns a pSync length covering every default-configured
// algorithm's requirement for a team of n, so one pool serves every
// collective in this file without per-call resizing.
func poolSyncLen(n int) (int, error) {
	need := 0
	grow := func(v int, err error) error {
		if err != nil {
			return err
		}
		if v > need {
			need = v
		}
		return nil
	}
	if err := grow(barrier.SyncSize(cfg.BarrierAlgo, n)); err != nil {
		return 0, err
	}
	if err := grow(reduce.SyncSize(cfg.ReduceAlgo, n)); err != nil {
		return 0, err
	}
	if err := grow(fcollect.SyncSize(cfg.CollectAlgo, n)); err != nil {
		return 0, err
	}
	if err := grow(fcollect.SyncSize(cfg.FcollectAlgo, n)); err != nil {
		return 0, err
	}
	if err := grow(alltoall.SyncSize(cfg.AlltoallSync, n)); err != nil {
		return 0, err
	}
	if v, err := broadcast.SyncSize(cfg.BroadcastAlgo); err != nil {
		return 0, err
	} else if v > need {
		need = v
	}
	if v := collect.SyncSize(n); v > need {
		need = v
	}
	return need, nil
}

// Finalize releases the process's binding to its substrate. It does not
// call Quiet or otherwise wait for outstanding RMA; callers still mid-way
// through a collective when Finalize runs have a logic error independent
// of this function.
func Finalize() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
	sub, pool, worldCtx = nil, nil, nil
}

// GlobalExit terminates the process with code, bypassing Finalize -- for
// fatal substrate failures and resource exhaustion, matching the real
// OpenSHMEM contract that this call never returns.
func GlobalExit(code int) { config.Exit(code) }

// MyPE returns the caller's world rank.
func MyPE() int { return sub.MyPE() }

// NPEs returns the world size.
func NPEs() int { return sub.NPEs() }

// World returns the Context bound to the distinguished WORLD team.
func World() *team.Context { return worldCtx }

// CreateTeamStrided creates a child team of parent containing size members
// starting at parent-local rank start, taking every stride-th member
// thereafter, bound to a fresh Context over the same substrate.
func CreateTeamStrided(parent *team.Context, start, stride, size int) (*team.Context, error) {
	shlog.Debug("create_team_strided", parent.MyPE(), parent.NPEs(), map[string]any{"start": start, "stride": stride, "size": size})
	t, err := team.SplitStrided(parent.Team, start, stride, size)
	if err != nil {
		shlog.Error("create_team_strided", parent.MyPE(), err, nil)
		return nil, fmt.Errorf(`shcoll: create_team_strided: %w`, err)
	}
	ctx := team.NewContext(t, parent.Sub, parent.Opts)
	shlog.Debug("create_team_strided_done", ctx.MyPE(), ctx.NPEs(), nil)
	return ctx, nil
}

// CreateTeam2D partitions parent into an xrange-wide grid and returns
// Contexts for the row (x) and column (y) teams containing myRank.
func CreateTeam2D(parent *team.Context, xrange, myRank int) (x, y *team.Context, err error) {
	shlog.Debug("create_team_2d", parent.MyPE(), parent.NPEs(), map[string]any{"xrange": xrange, "my_rank": myRank})
	xt, yt, err := team.Split2D(parent.Team, xrange, myRank)
	if err != nil {
		shlog.Error("create_team_2d", parent.MyPE(), err, nil)
		return nil, nil, fmt.Errorf(`shcoll: create_team_2d: %w`, err)
	}
	xc, yc := team.NewContext(xt, parent.Sub, parent.Opts), team.NewContext(yt, parent.Sub, parent.Opts)
	shlog.Debug("create_team_2d_done", parent.MyPE(), parent.NPEs(), nil)
	return xc, yc, nil
}

// DestroyTeam releases ctx's team. ctx itself becomes unusable afterward.
func DestroyTeam(ctx *team.Context) error {
	shlog.Debug("destroy_team", ctx.MyPE(), ctx.NPEs(), nil)
	if err := team.Destroy(ctx.Team); err != nil {
		shlog.Error("destroy_team", ctx.MyPE(), err, nil)
		return fmt.Errorf(`shcoll: destroy_team: %w`, err)
	}
	return nil
}

// acquire leases a pool slot and validates it against a byte requirement on
// the work scratch; it is the one place every per-call entry below goes
// through pscratch.Acquire, per the scoped-acquisition discipline.
func acquire(workBytesNeeded int) (*pscratch.Scoped, error) {
	if !initialized {
		return nil, fmt.Errorf(`shcoll: %w: Init not called`, ErrPreconditionFailed)
	}
	if workBytesNeeded > poolWorkBytes {
		return nil, fmt.Errorf(`shcoll: %w: request needs %d scratch bytes, pool provides %d -- use the explicit team op with caller-supplied pWrk`, ErrPreconditionFailed, workBytesNeeded, poolWorkBytes)
	}
	s, err := pool.Acquire()
	if err != nil {
		return nil, fmt.Errorf(`shcoll: acquire: %w`, err)
	}
	return s, nil
}

// Barrier blocks every member of ctx's team until all have entered.
func Barrier(ctx *team.Context) (err error) {
	ctx.Lock()
	defer ctx.Unlock()
	shlog.Debug("barrier", ctx.MyPE(), ctx.NPEs(), nil)
	defer func() { shlog.Debug("barrier_done", ctx.MyPE(), ctx.NPEs(), nil) }()
	s, err := acquire(0)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); err == nil {
			err = rerr
		}
	}()
	algo, err := barrier.Select(cfg.BarrierAlgo)
	if err != nil {
		return fmt.Errorf(`shcoll: barrier: %w`, err)
	}
	if err := algo(ctx, s.Sync()); err != nil {
		shlog.Error("barrier", ctx.MyPE(), err, nil)
		return fmt.Errorf(`shcoll: barrier: %w`, err)
	}
	return nil
}

// Broadcast delivers root's buf (n elements) to every other member of
// ctx's team; every caller's buf must reference its own symmetric copy of
// the same allocation.
func Broadcast[T typeset.Numeric](ctx *team.Context, buf pscratch.Work[T], n, root int) (err error) {
	ctx.Lock()
	defer ctx.Unlock()
	shlog.Debug("broadcast", ctx.MyPE(), ctx.NPEs(), map[string]any{"n": n, "root": root})
	defer func() { shlog.Debug("broadcast_done", ctx.MyPE(), ctx.NPEs(), nil) }()
	s, err := acquire(0)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); err == nil {
			err = rerr
		}
	}()
	algo, err := broadcast.Select[T](cfg.BroadcastAlgo)
	if err != nil {
		return fmt.Errorf(`shcoll: broadcast: %w`, err)
	}
	if err := algo(ctx, s.Sync(), buf, n, root); err != nil {
		shlog.Error("broadcast", ctx.MyPE(), err, nil)
		return fmt.Errorf(`shcoll: broadcast: %w`, err)
	}
	return nil
}

// Collect gathers nLocal elements of src from every member of ctx's team
// into dst, in rank order, each contributing a possibly different length.
// It returns the element offset this PE's own contribution landed at and
// the total element count collected.
func Collect[T typeset.Numeric](ctx *team.Context, dst, src pscratch.Work[T], nLocal int) (offset, total int, err error) {
	ctx.Lock()
	defer ctx.Unlock()
	shlog.Debug("collect", ctx.MyPE(), ctx.NPEs(), map[string]any{"n_local": nLocal})
	defer func() { shlog.Debug("collect_done", ctx.MyPE(), ctx.NPEs(), map[string]any{"offset": offset, "total": total}) }()
	syncLen := collect.SyncSize(ctx.NPEs())
	if syncLen > poolSyncLenCap() {
		return 0, 0, fmt.Errorf(`shcoll: collect: %w: team too large for pooled scratch`, ErrPreconditionFailed)
	}
	s, err := acquire(0)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if rerr := s.Release(); err == nil {
			err = rerr
		}
	}()
	sv := s.Sync()
	sv.Len = syncLen
	offset, total, err = collect.Collect(ctx, sv, dst, src, nLocal)
	if err != nil {
		shlog.Error("collect", ctx.MyPE(), err, nil)
		return 0, 0, fmt.Errorf(`shcoll: collect: %w`, err)
	}
	return offset, total, nil
}

// Fcollect gathers nelems elements of src from every member of ctx's team
// into dst, in rank order -- the fixed-length counterpart of Collect.
func Fcollect[T typeset.Numeric](ctx *team.Context, dst, src pscratch.Work[T], nelems int) (err error) {
	ctx.Lock()
	defer ctx.Unlock()
	shlog.Debug("fcollect", ctx.MyPE(), ctx.NPEs(), map[string]any{"nelems": nelems, "algo": string(cfg.FcollectAlgo)})
	defer func() { shlog.Debug("fcollect_done", ctx.MyPE(), ctx.NPEs(), nil) }()
	s, err := acquire(0)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); err == nil {
			err = rerr
		}
	}()
	if ferr := runFcollect(ctx, s.Sync(), cfg.FcollectAlgo, dst, src, nelems); ferr != nil {
		shlog.Error("fcollect", ctx.MyPE(), ferr, nil)
		return fmt.Errorf(`shcoll: fcollect: %w`, ferr)
	}
	return nil
}

// runFcollect dispatches to the configured fcollect algorithm. BruckInplace
// takes no src parameter (the caller is expected to have already seeded
// dst); every entry here owns that seed step so callers never see the
// distinction.
func runFcollect[T typeset.Numeric](ctx *team.Context, sync pscratch.Sync, algo config.CollectAlgo, dst, src pscratch.Work[T], nelems int) error {
	switch algo {
	case config.CollectLinear:
		return fcollect.Linear(ctx, sync, dst, src, nelems)
	case config.CollectAllLinear:
		return fcollect.AllLinear(ctx, sync, dst, src, nelems)
	case config.CollectRecursiveDoubling:
		return fcollect.RecursiveDoubling(ctx, sync, dst, src, nelems)
	case config.CollectRing:
		return fcollect.Ring(ctx, sync, dst, src, nelems)
	case config.CollectBruck:
		return fcollect.Bruck(ctx, sync, dst, src, nelems)
	case config.CollectBruckNoRotate:
		return fcollect.BruckNoRotate(ctx, sync, dst, src, nelems)
	case config.CollectBruckSignal:
		return fcollect.BruckSignal(ctx, sync, dst, src, nelems)
	case config.CollectBruckInplace:
		data, err := src.Get(0, nelems, ctx.MyPE())
		if err != nil {
			return fmt.Errorf(`seed: read own contribution: %w`, err)
		}
		if err := dst.Put(0, data, ctx.Team.WorldRank(ctx.MyPE())); err != nil {
			return fmt.Errorf(`seed: write own contribution: %w`, err)
		}
		if err := ctx.Sub.Fence(-1); err != nil {
			return fmt.Errorf(`seed: fence: %w`, err)
		}
		return fcollect.BruckInplace(ctx, sync, dst, nelems)
	case config.CollectNeighborExchange:
		return fcollect.NeighborExchange(ctx, sync, dst, src, nelems)
	default:
		return fmt.Errorf(`unknown algorithm %q`, algo)
	}
}

// Alltoall exchanges nelems-sized personalized blocks among every member of
// ctx's team: PE i's block addressed to PE j lands at offset i*nelems in
// PE j's dst.
func Alltoall[T typeset.Numeric](ctx *team.Context, dst, src pscratch.Work[T], nelems int) (err error) {
	ctx.Lock()
	defer ctx.Unlock()
	shlog.Debug("alltoall", ctx.MyPE(), ctx.NPEs(), map[string]any{"nelems": nelems, "algo": string(cfg.AlltoallAlgo)})
	defer func() { shlog.Debug("alltoall_done", ctx.MyPE(), ctx.NPEs(), nil) }()
	s, err := acquire(0)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); err == nil {
			err = rerr
		}
	}()
	fn, err := alltoall.Select[T](cfg.AlltoallAlgo)
	if err != nil {
		return fmt.Errorf(`shcoll: alltoall: %w`, err)
	}
	if err := fn(ctx, s.Sync(), dst, src, nelems, cfg.AlltoallSync); err != nil {
		shlog.Error("alltoall", ctx.MyPE(), err, nil)
		return fmt.Errorf(`shcoll: alltoall: %w`, err)
	}
	return nil
}

// poolSyncLenCap reports the pSync length the process's scratch pool was
// constructed with -- collect's variable per-team sizing can exceed it for
// very large teams, in which case callers must fall back to an explicit
// team op with their own larger pSync.
func poolSyncLenCap() int {
	if pool == nil {
		return 0
	}
	n, _ := poolSyncLen(sub.NPEs())
	return n
}

// reduceEntry runs op over nelems elements contributed by every member of
// ctx's team via the configured reduce algorithm, acquiring pooled scratch
// for the duration of the call.
func reduceEntry[T typeset.Numeric](ctx *team.Context, dst, src pscratch.Work[T], nelems int, op reduce.Op[T]) (err error) {
	ctx.Lock()
	defer ctx.Unlock()
	shlog.Debug("reduce", ctx.MyPE(), ctx.NPEs(), map[string]any{"nelems": nelems, "algo": string(cfg.ReduceAlgo)})
	defer func() { shlog.Debug("reduce_done", ctx.MyPE(), ctx.NPEs(), nil) }()
	n := ctx.NPEs()
	workLen, werr := reduce.WorkSize(cfg.ReduceAlgo, n, nelems)
	if werr != nil {
		return fmt.Errorf(`shcoll: reduce: %w`, werr)
	}
	s, err := acquire(workLen * typeset.Size[T]())
	if err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); err == nil {
			err = rerr
		}
	}()
	algoSyncLen, serr := reduce.SyncSize(cfg.ReduceAlgo, n)
	if serr != nil {
		return fmt.Errorf(`shcoll: reduce: %w`, serr)
	}
	sv := s.Sync()
	sv.Len = algoSyncLen
	work := pscratch.Work[T]{Sub: sub, Base: s.WorkBase(), Len: workLen}

	var rerr error
	switch cfg.ReduceAlgo {
	case config.ReduceLinear:
		rerr = reduce.Linear(ctx, sv, dst, src, nelems, op)
	case config.ReduceBinomial:
		rerr = reduce.Binomial(ctx, sv, work, dst, src, nelems, op)
	case config.ReduceRecursiveDoubling:
		rerr = reduce.RecursiveDoubling(ctx, sv, work, dst, src, nelems, op)
	case config.ReduceRabenseifner:
		rerr = reduce.Rabenseifner(ctx, sv, work, dst, src, nelems, op)
	case config.ReduceRabenseifnerRing:
		rerr = reduce.RabenseifnerRing(ctx, sv, work, dst, src, nelems, op)
	default:
		rerr = fmt.Errorf(`unknown algorithm %q`, cfg.ReduceAlgo)
	}
	if rerr != nil {
		shlog.Error("reduce", ctx.MyPE(), rerr, map[string]any{"op": fmt.Sprintf("%p", op)})
		return fmt.Errorf(`shcoll: reduce: %w`, rerr)
	}
	return nil
}

// ReduceSum reduces nelems elements contributed by every member of ctx's
// team with +, leaving the result in dst on every member.
func ReduceSum[T typeset.Numeric](ctx *team.Context, dst, src pscratch.Work[T], nelems int) error {
	return reduceEntry(ctx, dst, src, nelems, reduce.Sum[T]())
}

// ReduceProd reduces with *.
func ReduceProd[T typeset.Numeric](ctx *team.Context, dst, src pscratch.Work[T], nelems int) error {
	return reduceEntry(ctx, dst, src, nelems, reduce.Prod[T]())
}

// ReduceMin reduces with min.
func ReduceMin[T typeset.Ordered](ctx *team.Context, dst, src pscratch.Work[T], nelems int) error {
	return reduceEntry(ctx, dst, src, nelems, reduce.Min[T]())
}

// ReduceMax reduces with max.
func ReduceMax[T typeset.Ordered](ctx *team.Context, dst, src pscratch.Work[T], nelems int) error {
	return reduceEntry(ctx, dst, src, nelems, reduce.Max[T]())
}

// ReduceAnd reduces with bitwise AND.
func ReduceAnd[T typeset.Integer](ctx *team.Context, dst, src pscratch.Work[T], nelems int) error {
	return reduceEntry(ctx, dst, src, nelems, reduce.And[T]())
}

// ReduceOr reduces with bitwise OR.
func ReduceOr[T typeset.Integer](ctx *team.Context, dst, src pscratch.Work[T], nelems int) error {
	return reduceEntry(ctx, dst, src, nelems, reduce.Or[T]())
}

// ReduceXor reduces with bitwise XOR.
func ReduceXor[T typeset.Integer](ctx *team.Context, dst, src pscratch.Work[T], nelems int) error {
	return reduceEntry(ctx, dst, src, nelems, reduce.Xor[T]())
}

// --- Legacy active-set API ---
//
// The pre-team OpenSHMEM interface addressed a participant set directly as
// (PE_start, logPE_stride, PE_size) rather than through a team handle, and
// took a caller-allocated pSync/pWrk instead of acquiring one internally.
// These wrappers translate an active set into an ephemeral team for the
// duration of one call and validate the caller's scratch instead of
// leasing from the pool -- preserved for one release, per the deprecation
// policy below.

// activeSetContext builds an ephemeral Context over the active set
// described by peStart/logPEStride/peSize, rooted at the world team.
func activeSetContext(peStart, logPEStride, peSize int) (*team.Context, func(), error) {
	stride := 1 << logPEStride
	t, err := team.SplitStrided(worldTeam, peStart, stride, peSize)
	if err != nil {
		return nil, nil, fmt.Errorf(`%w: %v`, ErrInvalidArgument, err)
	}
	cleanup := func() { _ = team.Destroy(t) }
	return team.NewContext(t, sub, team.CtxNone), cleanup, nil
}

// BarrierActiveSet is the legacy active-set barrier entry.
//
// Deprecated: use Barrier with a *team.Context from CreateTeamStrided.
func BarrierActiveSet(peStart, logPEStride, peSize int, pSync rma.Symmetric) error {
	ctx, cleanup, err := activeSetContext(peStart, logPEStride, peSize)
	if err != nil {
		return fmt.Errorf(`shcoll: barrier_active_set: %w`, err)
	}
	defer cleanup()
	need, err := barrier.SyncSize(cfg.BarrierAlgo, peSize)
	if err != nil {
		return fmt.Errorf(`shcoll: barrier_active_set: %w`, err)
	}
	algo, err := barrier.Select(cfg.BarrierAlgo)
	if err != nil {
		return fmt.Errorf(`shcoll: barrier_active_set: %w`, err)
	}
	if err := algo(ctx, pscratch.Sync{Sub: sub, Base: pSync, Len: need}); err != nil {
		return fmt.Errorf(`shcoll: barrier_active_set: %w`, err)
	}
	return nil
}

// BroadcastActiveSet is the legacy active-set broadcast entry.
//
// Deprecated: use Broadcast with a *team.Context from CreateTeamStrided.
func BroadcastActiveSet[T typeset.Numeric](peStart, logPEStride, peSize int, pSync rma.Symmetric, buf pscratch.Work[T], n, root int) error {
	ctx, cleanup, err := activeSetContext(peStart, logPEStride, peSize)
	if err != nil {
		return fmt.Errorf(`shcoll: broadcast_active_set: %w`, err)
	}
	defer cleanup()
	need, err := broadcast.SyncSize(cfg.BroadcastAlgo)
	if err != nil {
		return fmt.Errorf(`shcoll: broadcast_active_set: %w`, err)
	}
	algo, err := broadcast.Select[T](cfg.BroadcastAlgo)
	if err != nil {
		return fmt.Errorf(`shcoll: broadcast_active_set: %w`, err)
	}
	if err := algo(ctx, pscratch.Sync{Sub: sub, Base: pSync, Len: need}, buf, n, root); err != nil {
		return fmt.Errorf(`shcoll: broadcast_active_set: %w`, err)
	}
	return nil
}

// ReduceActiveSet is the legacy active-set reduction entry: the caller
// supplies both pSync and pWrk, sized for cfg's configured algorithm at
// peSize and nelems -- no internal pool is involved.
//
// Deprecated: use ReduceSum/ReduceProd/ReduceMin/ReduceMax/ReduceAnd/
// ReduceOr/ReduceXor with a *team.Context from CreateTeamStrided.
func ReduceActiveSet[T typeset.Numeric](peStart, logPEStride, peSize int, pSync, pWrk rma.Symmetric, dst, src pscratch.Work[T], nelems int, op reduce.Op[T]) error {
	ctx, cleanup, err := activeSetContext(peStart, logPEStride, peSize)
	if err != nil {
		return fmt.Errorf(`shcoll: reduce_active_set: %w`, err)
	}
	defer cleanup()
	syncLen, err := reduce.SyncSize(cfg.ReduceAlgo, peSize)
	if err != nil {
		return fmt.Errorf(`shcoll: reduce_active_set: %w`, err)
	}
	workLen, err := reduce.WorkSize(cfg.ReduceAlgo, peSize, nelems)
	if err != nil {
		return fmt.Errorf(`shcoll: reduce_active_set: %w`, err)
	}
	sv := pscratch.Sync{Sub: sub, Base: pSync, Len: syncLen}
	work := pscratch.Work[T]{Sub: sub, Base: pWrk, Len: workLen}

	var rerr error
	switch cfg.ReduceAlgo {
	case config.ReduceLinear:
		rerr = reduce.Linear(ctx, sv, dst, src, nelems, op)
	case config.ReduceBinomial:
		rerr = reduce.Binomial(ctx, sv, work, dst, src, nelems, op)
	case config.ReduceRecursiveDoubling:
		rerr = reduce.RecursiveDoubling(ctx, sv, work, dst, src, nelems, op)
	case config.ReduceRabenseifner:
		rerr = reduce.Rabenseifner(ctx, sv, work, dst, src, nelems, op)
	case config.ReduceRabenseifnerRing:
		rerr = reduce.RabenseifnerRing(ctx, sv, work, dst, src, nelems, op)
	default:
		rerr = fmt.Errorf(`unknown algorithm %q`, cfg.ReduceAlgo)
	}
	if rerr != nil {
		return fmt.Errorf(`shcoll: reduce_active_set: %w`, rerr)
	}
	return nil
}
