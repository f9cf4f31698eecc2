package team

import (
	"sync"

	"github.com/BTMichalowicz/go-shcoll/rma"
)

// CtxOption is an options bitmask a Context carries alongside its bound
// team.
type CtxOption uint32

const (
	// CtxNone is the default: no special option bits set.
	CtxNone CtxOption = 0
	// CtxSerialized requests that the library serialize concurrent use of
	// this context with an internal mutex: exclusive to one thread at a
	// time, for multi-threaded-mode callers.
	CtxSerialized CtxOption = 1 << iota
)

// Context is a local handle bound to one team plus option bits.
// Concurrent operations against different Contexts on the same team may
// proceed in parallel; operations against the same Context are serialized
// when CtxSerialized is set.
type Context struct {
	Team Team
	Sub  rma.Substrate
	Opts CtxOption

	mu sync.Mutex
	// Addressable, if non-nil, reports whether worldRank is locally
	// addressable by ordinary loads/stores (e.g. shared memory on the same
	// node) -- backs TeamPtr. A nil Addressable means the substrate never
	// exposes local pointers (the conservative, always-remote default).
	Addressable func(worldRank int) bool
}

// NewContext binds a Context to t using sub as its RMA substrate.
func NewContext(t Team, sub rma.Substrate, opts CtxOption) *Context {
	return &Context{Team: t, Sub: sub, Opts: opts}
}

// MyPE returns the caller's rank within the bound team, or -1 if this
// process's world PE is somehow not a member (should not happen for a
// validly constructed Context).
func (c *Context) MyPE() int { return c.Team.MyPE(c.Sub.MyPE()) }

// NPEs returns the bound team's size.
func (c *Context) NPEs() int { return c.Team.Size }

// Lock serializes access to this Context when CtxSerialized is set; it is a
// no-op otherwise, so single-threaded callers pay nothing.
func (c *Context) Lock() {
	if c.Opts&CtxSerialized != 0 {
		c.mu.Lock()
	}
}

// Unlock is the counterpart of Lock.
func (c *Context) Unlock() {
	if c.Opts&CtxSerialized != 0 {
		c.mu.Unlock()
	}
}

// TeamPtr returns a local pointer to the symmetric object at addr on the
// member at teamRank, iff that member's world PE is locally addressable.
// ok is false whenever Addressable is nil or returns false.
func (c *Context) TeamPtr(addr rma.Symmetric, teamRank int) (ptr uintptr, ok bool) {
	world := c.Team.WorldRank(teamRank)
	if world < 0 || c.Addressable == nil || !c.Addressable(world) {
		return 0, false
	}
	return uintptr(addr), true
}
