// Package pscratch implements the sync/work-array scratch-acquisition
// protocol: a scoped acquisition primitive that allocates pSync/pWrk once
// (collectively, at Pool construction) and then hands out disjoint slots
// to concurrent collectives, guaranteeing release on every exit path via
// Go's defer, in place of a malloc/free pair around each algorithm call.
//
// Slot selection is purely local: every PE in a team issues the same
// sequence of collective calls (the cooperative, one-thread-per-PE
// execution model), so a local, monotonically advancing counter mod the
// pool size picks the same slot index on every PE without coordination --
// a fixed pool of reusable scratch objects rather than an allocation per
// call.
package pscratch

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// SyncValue is the sentinel every pSync element must hold on entry to, and
// must be restored to on exit from, a collective.
const SyncValue int64 = -1

// Sync is a symmetric array of int64 used to signal/wait between PEs.
type Sync struct {
	Sub  rma.Substrate
	Base rma.Symmetric
	Len  int
}

func (s Sync) slot(i int) rma.Symmetric {
	if i < 0 || i >= s.Len {
		panic(fmt.Sprintf(`pscratch: sync: slot %d out of range [0,%d)`, i, s.Len))
	}
	return s.Base + rma.Symmetric(i*8)
}

// SetLocal stores value into this PE's own slot i (a local, non-signaling
// initialization -- used by Reset).
func (s Sync) SetLocal(i int, value int64) error {
	return s.Sub.PLong(s.slot(i), value, s.Sub.MyPE())
}

// GetLocal reads this PE's own slot i.
func (s Sync) GetLocal(i int) (int64, error) {
	return s.Sub.AtomicFetchLong(s.slot(i), s.Sub.MyPE())
}

// Signal stores value into peer pe's slot i -- the cross-PE counterpart of
// SetLocal, used to wake a WaitUntilLong.
func (s Sync) Signal(i int, value int64, pe int) error {
	return s.Sub.PLong(s.slot(i), value, pe)
}

// AtomicAdd atomically adds delta to peer pe's slot i.
func (s Sync) AtomicAdd(i int, delta int64, pe int) error {
	return s.Sub.AtomicAddLong(s.slot(i), delta, pe)
}

// Wait blocks until this PE's own slot i satisfies cmp value.
func (s Sync) Wait(i int, cmp rma.Cmp, value int64) error {
	return s.Sub.WaitUntilLong(s.slot(i), cmp, value)
}

// Reset restores every local slot to value -- called on entry, and again on
// normal exit, so the array is reusable.
func (s Sync) Reset(value int64) error {
	for i := 0; i < s.Len; i++ {
		if err := s.SetLocal(i, value); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks every local slot equals value, returning an error naming the
// first mismatch -- the pSync-restoration property every algorithm must
// leave true on exit.
func (s Sync) Verify(value int64) error {
	for i := 0; i < s.Len; i++ {
		v, err := s.GetLocal(i)
		if err != nil {
			return err
		}
		if v != value {
			return fmt.Errorf(`pscratch: sync: slot %d = %d, want sentinel %d`, i, v, value)
		}
	}
	return nil
}

// Work is a symmetric scratch buffer of element type T, used as the
// temporary storage ("pWrk") for reduction algorithms.
type Work[T typeset.Numeric] struct {
	Sub  rma.Substrate
	Base rma.Symmetric
	Len  int
}

func (w Work[T]) elemSize() int { return typeset.Size[T]() }

func (w Work[T]) slot(i int) rma.Symmetric {
	if i < 0 || i > w.Len {
		panic(fmt.Sprintf(`pscratch: work: offset %d out of range [0,%d]`, i, w.Len))
	}
	return w.Base + rma.Symmetric(i*w.elemSize())
}

// Put writes v into peer pe's work buffer starting at element offset.
func (w Work[T]) Put(offset int, v []T, pe int) error {
	return w.Sub.Put(w.slot(offset), typeset.Encode(v), pe)
}

// Get reads n elements from peer pe's work buffer starting at element
// offset.
func (w Work[T]) Get(offset, n int, pe int) ([]T, error) {
	buf := make([]byte, n*w.elemSize())
	if err := w.Sub.Get(buf, w.slot(offset), pe); err != nil {
		return nil, err
	}
	return typeset.Decode[T](buf, n), nil
}

// MinWorkSize is the minimum element count a reduction's pWrk must provide:
// the largest temporary any supported algorithm needs. Mirrors the real
// OpenSHMEM SHMEM_REDUCE_MIN_WRKDATA_SIZE convention of max(N/2+1, floor).
func MinWorkSize(nPEs int) int {
	const floor = 16
	if half := nPEs/2 + 1; half > floor {
		return half
	}
	return floor
}

// poolEntry is one collectively pre-allocated pSync+pWrk-region pair.
type poolEntry struct {
	sync Sync
	work rma.Symmetric // base offset; per-type Work views are constructed on demand
}

// Pool is the collective, process-wide scratch allocator backing
// Acquire. It must be constructed identically (same size, same
// order of Alloc calls) on every PE -- normally once, from Init.
type Pool struct {
	alloc    func(size int) rma.Symmetric
	sub      rma.Substrate
	syncLen  int
	workSize int // bytes
	entries  []poolEntry
	next     atomic.Uint64
	mu       sync.Mutex
}

// NewPool collectively allocates n slots of syncLen sync-array length and
// workSize bytes of work scratch each.
func NewPool(sub rma.Substrate, alloc func(size int) rma.Symmetric, n, syncLen, workSize int) *Pool {
	if n < 1 {
		panic(`pscratch: pool: n must be >= 1`)
	}
	p := &Pool{alloc: alloc, sub: sub, syncLen: syncLen, workSize: workSize}
	for i := 0; i < n; i++ {
		p.entries = append(p.entries, poolEntry{
			sync: Sync{Sub: sub, Base: alloc(syncLen * 8), Len: syncLen},
			work: alloc(workSize),
		})
	}
	for _, e := range p.entries {
		if err := e.sync.Reset(SyncValue); err != nil {
			panic(`pscratch: pool: initial reset: ` + err.Error())
		}
	}
	return p
}

// Scoped is a leased pool entry. Release must be called exactly once, via
// defer, on every exit path (including error returns).
type Scoped struct {
	pool  *Pool
	entry poolEntry
	freed bool
}

// Acquire leases the next pool slot (round-robin by local call order) and
// resets its sync array to the sentinel. Every caller must defer Release.
func (p *Pool) Acquire() (*Scoped, error) {
	idx := int(p.next.Add(1)-1) % len(p.entries)
	e := p.entries[idx]
	if err := e.sync.Reset(SyncValue); err != nil {
		return nil, fmt.Errorf(`pscratch: acquire: reset sync: %w`, err)
	}
	return &Scoped{pool: p, entry: e}, nil
}

// Sync returns the leased pSync array.
func (s *Scoped) Sync() Sync { return s.entry.sync }

// WorkBase returns the leased pWrk region's base offset; callers construct
// a typed Work[T] view over it for the element type in play.
func (s *Scoped) WorkBase() rma.Symmetric { return s.entry.work }

// Release restores the sync array to the sentinel and returns the slot to
// the pool. Safe to call multiple times; only the first call has effect.
func (s *Scoped) Release() error {
	if s.freed {
		return nil
	}
	s.freed = true
	return s.entry.sync.Reset(SyncValue)
}

// Min returns the lesser of a, b -- a generic replacement for a textual
// min/max macro.
func Min[T int | int64 | uint64](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the greater of a, b.
func Max[T int | int64 | uint64](a, b T) T {
	if a > b {
		return a
	}
	return b
}
