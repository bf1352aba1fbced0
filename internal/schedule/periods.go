package schedule

import (
	"errors"
	"sort"
	"time"

	"sentiment-alpha-lab/internal/domain"
)

// ErrUnsupportedFrequency is returned for a frequency outside the closed
// monthly/weekly set.
var ErrUnsupportedFrequency = errors.New("unsupported rebalance frequency")

// periodKey identifies the calendar period a signal day falls into.
// Monthly periods are calendar months; weekly periods are ISO weeks.
type periodKey struct {
	year int
	sub  int // month 1-12, or ISO week 1-53
}

func periodOf(freq domain.RebalanceFrequency, dayMs int64) (periodKey, error) {
	t := time.UnixMilli(dayMs).UTC()
	switch freq {
	case domain.RebalanceMonthly:
		return periodKey{year: t.Year(), sub: int(t.Month())}, nil
	case domain.RebalanceWeekly:
		y, w := t.ISOWeek()
		return periodKey{year: y, sub: w}, nil
	default:
		return periodKey{}, ErrUnsupportedFrequency
	}
}

// AggregateSignals collapses panel rows to one signal per (entity, period):
// the mean signal score across the period and the last observed lagged
// market cap inside it. Each aggregate is stamped with the period's
// rebalance date, which is the last signal day seen in that period across
// the whole cross-section.
//
// Returns the aggregates and the sorted distinct rebalance dates.
func AggregateSignals(freq domain.RebalanceFrequency, panel []*domain.PanelRow) ([]*domain.AggregatedSignal, []int64, error) {
	// Last signal day per period over all entities.
	periodEnd := make(map[periodKey]int64)
	for _, row := range panel {
		p, err := periodOf(freq, row.SignalDayMs)
		if err != nil {
			return nil, nil, err
		}
		if row.SignalDayMs > periodEnd[p] {
			periodEnd[p] = row.SignalDayMs
		}
	}

	type entityPeriod struct {
		entityID string
		period   periodKey
	}
	type acc struct {
		sum       float64
		n         int
		lastCap   float64
		lastDayMs int64
	}

	accs := make(map[entityPeriod]*acc)
	for _, row := range panel {
		p, err := periodOf(freq, row.SignalDayMs)
		if err != nil {
			return nil, nil, err
		}
		k := entityPeriod{row.EntityID, p}
		a, ok := accs[k]
		if !ok {
			a = &acc{}
			accs[k] = a
		}
		a.sum += row.SignalScore
		a.n++
		// Most recent market cap wins; ties keep the later signal day's value.
		if row.SignalDayMs >= a.lastDayMs {
			a.lastDayMs = row.SignalDayMs
			a.lastCap = row.MarketCapLag
		}
	}

	aggregates := make([]*domain.AggregatedSignal, 0, len(accs))
	for k, a := range accs {
		aggregates = append(aggregates, &domain.AggregatedSignal{
			EntityID:       k.entityID,
			RebalanceDayMs: periodEnd[k.period],
			SignalScore:    a.sum / float64(a.n),
			MarketCapLag:   a.lastCap,
		})
	}
	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].RebalanceDayMs != aggregates[j].RebalanceDayMs {
			return aggregates[i].RebalanceDayMs < aggregates[j].RebalanceDayMs
		}
		return aggregates[i].EntityID < aggregates[j].EntityID
	})

	rebalanceDays := make([]int64, 0, len(periodEnd))
	for _, end := range periodEnd {
		rebalanceDays = append(rebalanceDays, end)
	}
	sort.Slice(rebalanceDays, func(i, j int) bool { return rebalanceDays[i] < rebalanceDays[j] })

	return aggregates, rebalanceDays, nil
}
