package ranking

import (
	"errors"
	"fmt"
	"math"
	"time"

	"sentiment-alpha-lab/internal/domain"
)

// Weighting errors.
var (
	// ErrUnknownWeightScheme is returned for a scheme name outside the
	// closed equal/value set.
	ErrUnknownWeightScheme = errors.New("unknown weight scheme")

	// ErrNoMarketCap is returned when value weighting finds no positive
	// lagged market cap mass in a group.
	ErrNoMarketCap = errors.New("value weighting requires positive lagged market cap")

	// ErrWeightNormalization is returned when a non-empty side's weights
	// fail to sum to 1 within tolerance. This signals an upstream logic
	// defect and must abort the run.
	ErrWeightNormalization = errors.New("bucket weights do not sum to 1")
)

// weightSumTolerance is the allowed deviation of a side's weight sum from 1.
const weightSumTolerance = 1e-9

// ParseWeightScheme maps a config name to the closed scheme variant.
func ParseWeightScheme(name string) (domain.WeightScheme, error) {
	switch name {
	case "equal":
		return domain.WeightEqual, nil
	case "value":
		return domain.WeightValue, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownWeightScheme, name)
	}
}

// AssignWeights fills in the Weight field for one (rebalance_date, side)
// group in place. Equal weighting gives 1/n; value weighting is
// proportional to the lagged market cap, which must be observable at
// signal-formation time. The postcondition Σweight = 1 ± 1e-9 is checked,
// not hoped for: a violation is a fatal internal-consistency error.
func AssignWeights(group []*domain.BucketMember, scheme domain.WeightScheme) error {
	if len(group) == 0 {
		return nil
	}

	switch scheme {
	case domain.WeightEqual:
		w := 1.0 / float64(len(group))
		for _, m := range group {
			m.Weight = w
		}
	case domain.WeightValue:
		var total float64
		for _, m := range group {
			total += m.MarketCapLag
		}
		if total <= 0 {
			return fmt.Errorf("%w: side %s at %s", ErrNoMarketCap,
				group[0].Side, formatDay(group[0].RebalanceDayMs))
		}
		for _, m := range group {
			m.Weight = m.MarketCapLag / total
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownWeightScheme, scheme)
	}

	var sum float64
	for _, m := range group {
		sum += m.Weight
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: side %s at %s sums to %.12f", ErrWeightNormalization,
			group[0].Side, formatDay(group[0].RebalanceDayMs), sum)
	}
	return nil
}

func formatDay(dayMs int64) string {
	return time.UnixMilli(dayMs).UTC().Format("2006-01-02")
}
