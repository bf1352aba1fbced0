package direction

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/idhash"
	"sentiment-alpha-lab/internal/simulation"
	"sentiment-alpha-lab/internal/storage"
)

// Runner errors.
var (
	ErrInvalidThreshold = errors.New("threshold must be positive")
	ErrInvalidCapital   = errors.New("initial capital must be positive")
	ErrEmptyPanel       = errors.New("panel has no rows")
)

// Result bundles the daily capital chain and the held positions for one
// direction run.
type Result struct {
	RunID     string
	Records   []*domain.DailyCapitalRecord
	Positions []*domain.PositionContribution
}

// Runner executes the daily threshold strategy over a signal-return panel.
type Runner struct {
	cfg         domain.DirectionConfig
	recordStore storage.CapitalRecordStore
}

// NewRunner creates a direction runner. recordStore may be nil when the
// caller only wants the in-memory result.
func NewRunner(cfg domain.DirectionConfig, recordStore storage.CapitalRecordStore) *Runner {
	return &Runner{cfg: cfg, recordStore: recordStore}
}

// Run evaluates the regime day by day over the panel and folds capital
// through the resulting return series. Panel rows are grouped by signal
// day; each day's positions are recomputed fresh.
func (r *Runner) Run(ctx context.Context, panel []*domain.PanelRow) (*Result, error) {
	if r.cfg.Threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	if r.cfg.InitialCapital <= 0 {
		return nil, ErrInvalidCapital
	}
	if len(panel) == 0 {
		return nil, ErrEmptyPanel
	}

	runID := idhash.ComputeDirectionRunID(r.cfg)
	days, byDay := groupByDay(panel)

	inputs := make([]simulation.DayInput, 0, len(days))
	var positions []*domain.PositionContribution
	for _, day := range days {
		result := EvaluateDay(byDay[day], r.cfg)
		inputs = append(inputs, simulation.DayInput{
			DayMs:         day,
			Mode:          result.Mode,
			UniverseSize:  result.UniverseSize,
			NumLong:       result.NumLong,
			NumShort:      result.NumShort,
			LongExposure:  result.LongExposure,
			ShortExposure: result.ShortExposure,
			DailyReturn:   result.DailyReturn,
		})
		for _, p := range result.Positions {
			positions = append(positions, &domain.PositionContribution{
				RunID:          runID,
				DayMs:          day,
				EntityID:       p.EntityID,
				Side:           p.Side,
				Weight:         p.Weight,
				RealizedReturn: p.Return,
				Contribution:   p.Contribution,
			})
		}
	}

	records, err := simulation.Fold(runID, inputs, r.cfg.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("fold capital: %w", err)
	}

	if r.recordStore != nil {
		if err := r.recordStore.InsertBulk(ctx, records); err != nil {
			return nil, fmt.Errorf("persist capital records: %w", err)
		}
	}

	return &Result{RunID: runID, Records: records, Positions: positions}, nil
}

// groupByDay groups panel rows by signal day. Within a day observations
// are sorted by entity id so weight splits are deterministic.
func groupByDay(panel []*domain.PanelRow) ([]int64, map[int64][]DayObservation) {
	byDay := make(map[int64][]DayObservation)
	for _, row := range panel {
		byDay[row.SignalDayMs] = append(byDay[row.SignalDayMs], DayObservation{
			EntityID: row.EntityID,
			Signal:   row.SignalScore,
			Return:   row.Return,
		})
	}

	days := make([]int64, 0, len(byDay))
	for day, obs := range byDay {
		sort.Slice(obs, func(i, j int) bool { return obs[i].EntityID < obs[j].EntityID })
		byDay[day] = obs
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, byDay
}
