package alltoall

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/config"
	"github.com/BTMichalowicz/go-shcoll/pscratch"
	"github.com/BTMichalowicz/go-shcoll/team"
	"github.com/BTMichalowicz/go-shcoll/typeset"
)

// Func is the shared exchange-pattern contract every all-to-all algorithm
// implements, over one sync strategy and one element type.
type Func[T typeset.Numeric] func(ctx *team.Context, sync pscratch.Sync, dest, src pscratch.Work[T], nelems int, mode config.AlltoallSync) error

// Select resolves a config.AlltoallAlgo to its Func implementation.
func Select[T typeset.Numeric](algo config.AlltoallAlgo) (Func[T], error) {
	switch algo {
	case config.AlltoallShiftExchange:
		return ShiftExchange[T], nil
	case config.AlltoallXORPairwise:
		return XORPairwise[T], nil
	case config.AlltoallColorPairwise:
		return ColorPairwise[T], nil
	default:
		return nil, fmt.Errorf(`alltoall: select: unknown algorithm %q`, algo)
	}
}
