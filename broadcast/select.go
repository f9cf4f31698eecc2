package broadcast

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/config"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// Func is the shared broadcast contract every algorithm implements, over
// one element type.
type Func[T typeset.Numeric] func(ctx *team.Context, sync pscratch.Sync, buf pscratch.Work[T], n, root int) error

// Select resolves a config.BroadcastAlgo to its Func implementation.
func Select[T typeset.Numeric](algo config.BroadcastAlgo) (Func[T], error) {
	switch algo {
	case config.BroadcastLinear:
		return Linear[T], nil
	case config.BroadcastBinomialTree:
		return BinomialTree[T], nil
	default:
		return nil, fmt.Errorf(`broadcast: select: unknown algorithm %q`, algo)
	}
}

// SyncSize returns the pSync length algo requires.
func SyncSize(algo config.BroadcastAlgo) (int, error) {
	switch algo {
	case config.BroadcastLinear:
		return SyncSizeLinear, nil
	case config.BroadcastBinomialTree:
		return SyncSizeBinomialTree, nil
	default:
		return 0, fmt.Errorf(`broadcast: select: unknown algorithm %q`, algo)
	}
}
