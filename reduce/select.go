package reduce

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/config"
)

// SyncSize returns the pSync length the named algorithm requires for a team
// of n members.
func SyncSize(algo config.ReduceAlgo, n int) (int, error) {
	switch algo {
	case config.ReduceLinear:
		return SyncSizeLinear, nil
	case config.ReduceBinomial:
		return BinomialSyncSize(n), nil
	case config.ReduceRecursiveDoubling:
		return RecursiveDoublingSyncSize(n), nil
	case config.ReduceRabenseifner:
		return RabenseifnerSyncSize(n), nil
	case config.ReduceRabenseifnerRing:
		return RabenseifnerRingSyncSize(n), nil
	default:
		return 0, fmt.Errorf(`reduce: select: unknown algorithm %q`, algo)
	}
}

// WorkSize returns the pWrk element count the named algorithm requires for a
// team of n members reducing nElems elements.
func WorkSize(algo config.ReduceAlgo, n, nElems int) (int, error) {
	switch algo {
	case config.ReduceLinear:
		return nElems, nil
	case config.ReduceBinomial:
		return BinomialWorkSize(n), nil
	case config.ReduceRecursiveDoubling:
		return RecursiveDoublingWorkSize(n, nElems), nil
	case config.ReduceRabenseifner, config.ReduceRabenseifnerRing:
		return RabenseifnerWorkSize(n, nElems), nil
	default:
		return 0, fmt.Errorf(`reduce: select: unknown algorithm %q`, algo)
	}
}
