package simulation

import (
	"sort"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/schedule"
)

// SideReturns holds the per-day weight-dot-return series for one
// cross-sectional run, split by book side.
type SideReturns struct {
	Days  []int64   // sorted trading days
	Long  []float64 // long-book return per day
	Short []float64 // short-book return per day (return of the shorted basket)

	// Contributions lists every held position-day. The day's side return
	// equals the sum of its side's contributions.
	Contributions []*domain.PositionContribution

	// MissingReturns counts held entity-days that lacked a realized
	// return. Those contribute 0; weights were fixed at the prior
	// rebalance and are never renormalized intraday.
	MissingReturns int
}

// DayReturns computes daily long and short book returns for a bucketed
// portfolio. For each trading day the effective rebalance is the latest
// one at or before the day; its weights are held unchanged until the next
// rebalance. Days preceding the first rebalance hold nothing and return 0.
func DayReturns(runID string, buckets map[int64][]*domain.BucketMember, rebalanceDays []int64, panel []*domain.PanelRow) *SideReturns {
	// Realized return per (day, entity).
	returnsByDay := make(map[int64]map[string]float64)
	for _, row := range panel {
		byEntity, ok := returnsByDay[row.ReturnDayMs]
		if !ok {
			byEntity = make(map[string]float64)
			returnsByDay[row.ReturnDayMs] = byEntity
		}
		byEntity[row.EntityID] = row.Return
	}

	days := make([]int64, 0, len(returnsByDay))
	for d := range returnsByDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	out := &SideReturns{
		Days:  days,
		Long:  make([]float64, len(days)),
		Short: make([]float64, len(days)),
	}

	for i, day := range days {
		rebalance, ok := schedule.EffectivePeriod(day, rebalanceDays)
		if !ok {
			continue
		}
		members := buckets[rebalance]
		for _, m := range members {
			ret, held := returnsByDay[day][m.EntityID]
			if !held {
				out.MissingReturns++
				ret = 0
			}
			contribution := m.Weight * ret
			switch m.Side {
			case domain.SideLong:
				out.Long[i] += contribution
			case domain.SideShort:
				out.Short[i] += contribution
			}
			out.Contributions = append(out.Contributions, &domain.PositionContribution{
				RunID:          runID,
				DayMs:          day,
				EntityID:       m.EntityID,
				Side:           m.Side,
				Weight:         m.Weight,
				RealizedReturn: ret,
				Contribution:   contribution,
			})
		}
	}
	return out
}

// LongShort returns the long-minus-short return series.
func (s *SideReturns) LongShort() []float64 {
	out := make([]float64, len(s.Days))
	for i := range s.Days {
		out[i] = s.Long[i] - s.Short[i]
	}
	return out
}
