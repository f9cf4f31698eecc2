// Package testkit provides the goroutine-per-PE test harness shared by every
// collective package's tests: spin up a simulator.Simulator, bind one
// team.Context per PE, and fan out a function across all of them with a
// sync.WaitGroup -- one goroutine per logical PE, joined at the end.
package testkit

import (
	"sync"

	"github.com/BTMichalowicz/go-shcoll/rma"
	"github.com/BTMichalowicz/go-shcoll/rma/simulator"
	"github.com/BTMichalowicz/go-shcoll/team"
)

// World creates a Simulator for n PEs and n Contexts bound to the WORLD
// team, one per PE.
func World(n int) (*simulator.Simulator, []*team.Context) {
	sim := simulator.New(n)
	w := team.World(n)
	ctxs := make([]*team.Context, n)
	for i := 0; i < n; i++ {
		ctxs[i] = team.NewContext(w, sim.PE(i), team.CtxNone)
	}
	return sim, ctxs
}

// RunPEs calls fn(pe) concurrently for every pe in [0, n), collecting any
// errors returned, and waits for all to finish.
func RunPEs(n int, fn func(pe int) error) []error {
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(pe int) {
			defer wg.Done()
			errs[pe] = fn(pe)
		}(i)
	}
	wg.Wait()
	return errs
}

// FirstError returns the first non-nil error in errs, or nil if every entry
// is nil.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// AllocSync collectively allocates a pSync-sized symmetric region on sim and
// returns the base offset.
func AllocSync(sim *simulator.Simulator, length int) rma.Symmetric {
	return sim.Alloc(length * 8)
}
