package barrier

import (
	"fmt"

	"github.com/BTMichalowicz/go-shcoll/config"
)

// Select resolves a config.BarrierAlgo to its Algorithm implementation.
func Select(algo config.BarrierAlgo) (Algorithm, error) {
	switch algo {
	case config.BarrierLinear:
		return Linear, nil
	case config.BarrierCompleteTree:
		return CompleteTree, nil
	case config.BarrierBinomialTree:
		return Binomial, nil
	case config.BarrierKNomialTree:
		return KNomial, nil
	case config.BarrierDissemination:
		return Dissemination, nil
	default:
		return nil, fmt.Errorf(`barrier: unknown algorithm %q`, algo)
	}
}

// SyncSize returns the pSync length algo requires for a team of n members.
func SyncSize(algo config.BarrierAlgo, n int) (int, error) {
	switch algo {
	case config.BarrierLinear:
		return SyncSizeLinear, nil
	case config.BarrierCompleteTree:
		return SyncSizeCompleteTree, nil
	case config.BarrierBinomialTree:
		return SyncSizeBinomial, nil
	case config.BarrierKNomialTree:
		return SyncSizeKNomial, nil
	case config.BarrierDissemination:
		return DisseminationSyncSize(n), nil
	default:
		return 0, fmt.Errorf(`barrier: unknown algorithm %q`, algo)
	}
}
