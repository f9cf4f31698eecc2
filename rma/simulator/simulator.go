// Package simulator is an in-process fake of rma.Substrate: a shared
// symmetric heap addressed by goroutines-as-PEs. It exists so the
// collectives engine and its tests can exercise every algorithm without a
// real fabric (UCX, verbs, ...) — a real substrate is out of scope for
// this repository.
//
// It is not part of the production call graph: only test code (_test.go
// files and the internal/testkit harness) imports it.
package simulator

import (
	"encoding/binary"
	"runtime"
	"sync"

	"github.com/BTMichalowicz/go-shcoll/rma"
)

// Simulator owns a symmetric heap shared by NPEs() goroutine-PEs: every
// allocation exists at the same offset on every row, mirroring the
// symmetric-heap guarantee the real substrate would provide.
type Simulator struct {
	mu   sync.Mutex
	rows [][]byte
}

// New creates a Simulator for n PEs, each starting with an empty heap.
func New(n int) *Simulator {
	if n < 1 {
		panic(`simulator: n must be >= 1`)
	}
	return &Simulator{rows: make([][]byte, n)}
}

// Alloc grows the symmetric heap by size bytes on every row and returns the
// offset at which the new region begins -- identical on every PE, per the
// symmetric-object invariant a real substrate would provide.
func (s *Simulator) Alloc(size int) rma.Symmetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	off := len(s.rows[0])
	for i := range s.rows {
		s.rows[i] = append(s.rows[i], make([]byte, size)...)
	}
	return rma.Symmetric(off)
}

// PE returns the Substrate view bound to world rank.
func (s *Simulator) PE(rank int) rma.Substrate {
	if rank < 0 || rank >= len(s.rows) {
		panic(`simulator: rank out of range`)
	}
	return &peView{sim: s, rank: rank}
}

// NPEs returns the number of PEs the Simulator was constructed with.
func (s *Simulator) NPEs() int { return len(s.rows) }

type peView struct {
	sim  *Simulator
	rank int
}

func (p *peView) MyPE() int { return p.rank }
func (p *peView) NPEs() int { return p.sim.NPEs() }

func (p *peView) Put(dst rma.Symmetric, src []byte, pe int) error {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	copy(p.sim.rows[pe][dst:], src)
	return nil
}

func (p *peView) PutNB(dst rma.Symmetric, src []byte, pe int) error {
	return p.Put(dst, src, pe)
}

func (p *peView) Get(dst []byte, src rma.Symmetric, pe int) error {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	copy(dst, p.sim.rows[pe][src:])
	return nil
}

func (p *peView) GetNB(dst []byte, src rma.Symmetric, pe int) error {
	return p.Get(dst, src, pe)
}

func (p *peView) Fence(pe int) error { return nil }

func (p *peView) Quiet() error { return nil }

func (p *peView) AtomicAddLong(addr rma.Symmetric, delta int64, pe int) error {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	row := p.sim.rows[pe]
	cur := int64(binary.LittleEndian.Uint64(row[addr:]))
	binary.LittleEndian.PutUint64(row[addr:], uint64(cur+delta))
	return nil
}

func (p *peView) AtomicFetchLong(addr rma.Symmetric, pe int) (int64, error) {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	return int64(binary.LittleEndian.Uint64(p.sim.rows[pe][addr:])), nil
}

func (p *peView) PLong(addr rma.Symmetric, value int64, pe int) error {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	binary.LittleEndian.PutUint64(p.sim.rows[pe][addr:], uint64(value))
	return nil
}

// WaitUntilLong busy-polls the local (p.rank's) symmetric long at addr,
// yielding the goroutine between checks: poll predicate, Gosched, repeat.
func (p *peView) WaitUntilLong(addr rma.Symmetric, cmp rma.Cmp, value int64) error {
	for {
		p.sim.mu.Lock()
		cur := int64(binary.LittleEndian.Uint64(p.sim.rows[p.rank][addr:]))
		p.sim.mu.Unlock()
		if cmp.Satisfied(cur, value) {
			return nil
		}
		runtime.Gosched()
	}
}
