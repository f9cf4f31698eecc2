package fcollect

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/config"
)

// SyncSize returns the pSync length the named algorithm requires for a team
// of n members.
func SyncSize(algo config.CollectAlgo, n int) (int, error) {
	switch algo {
	case config.CollectLinear:
		return SyncSizeLinear, nil
	case config.CollectAllLinear:
		return SyncSizeAllLinear, nil
	case config.CollectRecursiveDoubling, config.CollectBruck, config.CollectBruckNoRotate,
		config.CollectBruckSignal, config.CollectBruckInplace:
		return RoundSyncSize(n), nil
	case config.CollectRing:
		return SyncSizeRing, nil
	case config.CollectNeighborExchange:
		return SyncSizeNeighborExchange, nil
	default:
		return 0, fmt.Errorf(`fcollect: select: unknown algorithm %q`, algo)
	}
}
