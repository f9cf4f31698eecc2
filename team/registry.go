package team

import (
	"sync"
	"sync/atomic"
)

// registry is the process-wide team bookkeeping table. Children reference
// their parent by handle, never by pointer, so split teams never form a
// cyclic parent/child pointer graph -- the same sync.Map-backed,
// handle-indexed bookkeeping shape used elsewhere in this repository for
// process-wide state rather than a tree of owning pointers.
var (
	registry   sync.Map // handle int64 -> Team
	nextHandle atomic.Int64
)

// WorldHandle is the reserved handle of the distinguished WORLD team.
const WorldHandle int64 = 0

func allocHandle() int64 {
	return nextHandle.Add(1)
}

func register(t Team) Team {
	registry.Store(t.handle, t)
	return t
}

// lookup returns the registered Team for handle, and whether it exists.
func lookup(handle int64) (Team, bool) {
	v, ok := registry.Load(handle)
	if !ok {
		return Team{}, false
	}
	return v.(Team), true
}

// valid reports whether t is a live, registered team handle -- every team
// operation must check this before touching t: an invalid team handle
// makes the operation return -1 rather than panic.
func valid(t Team) bool {
	v, ok := registry.Load(t.handle)
	if !ok {
		return false
	}
	got := v.(Team)
	return got.WorldStart == t.WorldStart && got.Stride == t.Stride && got.Size == t.Size
}

// destroy releases t's registry bookkeeping. It does not release any
// symmetric memory; destruction releases bookkeeping only.
func destroy(t Team) bool {
	_, existed := registry.LoadAndDelete(t.handle)
	return existed
}
