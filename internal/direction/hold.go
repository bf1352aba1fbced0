package direction

import (
	"context"
	"fmt"
	"sort"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/idhash"
	"sentiment-alpha-lab/internal/simulation"
	"sentiment-alpha-lab/internal/storage"
)

// RunHoldBaseline runs the equal-weight buy-and-hold comparison: fixed 1/n
// weights over the first day's universe, held for the whole sample. An
// entity-day with no return row contributes 0 that day; the fixed weights
// are never renormalized. recordStore may be nil.
func RunHoldBaseline(ctx context.Context, panel []*domain.PanelRow, initialCapital float64, recordStore storage.CapitalRecordStore) (*Result, error) {
	if initialCapital <= 0 {
		return nil, ErrInvalidCapital
	}
	if len(panel) == 0 {
		return nil, ErrEmptyPanel
	}

	runID := idhash.ComputeHoldRunID(initialCapital)
	days, byDay := groupByDay(panel)

	// Universe fixed at the first day's membership.
	first := byDay[days[0]]
	universe := make([]string, 0, len(first))
	for _, o := range first {
		universe = append(universe, o.EntityID)
	}
	sort.Strings(universe)
	weight := 1.0 / float64(len(universe))

	inputs := make([]simulation.DayInput, 0, len(days))
	var positions []*domain.PositionContribution
	for _, day := range days {
		returns := make(map[string]float64, len(byDay[day]))
		for _, o := range byDay[day] {
			returns[o.EntityID] = o.Return
		}

		var dailyReturn float64
		for _, entityID := range universe {
			ret := returns[entityID] // missing entity-day -> 0
			contribution := weight * ret
			dailyReturn += contribution
			positions = append(positions, &domain.PositionContribution{
				RunID:          runID,
				DayMs:          day,
				EntityID:       entityID,
				Side:           domain.SideLong,
				Weight:         weight,
				RealizedReturn: ret,
				Contribution:   contribution,
			})
		}

		inputs = append(inputs, simulation.DayInput{
			DayMs:        day,
			Mode:         domain.ModeBuyHold,
			UniverseSize: len(byDay[day]),
			NumLong:      len(universe),
			LongExposure: 1.0,
			DailyReturn:  dailyReturn,
		})
	}

	records, err := simulation.Fold(runID, inputs, initialCapital)
	if err != nil {
		return nil, fmt.Errorf("fold capital: %w", err)
	}

	if recordStore != nil {
		if err := recordStore.InsertBulk(ctx, records); err != nil {
			return nil, fmt.Errorf("persist capital records: %w", err)
		}
	}

	return &Result{RunID: runID, Records: records, Positions: positions}, nil
}
