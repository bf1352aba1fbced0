// Package backtest orchestrates one cross-sectional configuration end to
// end: panel construction, periodic portfolio formation, capital
// simulation, and performance summarization.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/idhash"
	"sentiment-alpha-lab/internal/panel"
	"sentiment-alpha-lab/internal/performance"
	"sentiment-alpha-lab/internal/ranking"
	"sentiment-alpha-lab/internal/schedule"
	"sentiment-alpha-lab/internal/simulation"
	"sentiment-alpha-lab/internal/storage"
)

// ErrNoValidRebalances is returned when every rebalance date failed the
// minimum-universe gate; the run has no positions to simulate.
var ErrNoValidRebalances = errors.New("no rebalance date passed the minimum-universe gate")

// Results holds the complete output of one cross-sectional run.
type Results struct {
	RunID         string
	Config        domain.BacktestConfig
	RebalanceDays []int64 // valid (non-skipped) rebalance dates, sorted
	Buckets       map[int64][]*domain.BucketMember
	Side          *simulation.SideReturns
	Records       map[domain.Book][]*domain.DailyCapitalRecord
	Summaries     []*domain.BacktestSummary
	AvgTurnover   float64
}

// Runner executes cross-sectional backtests against the signal stores.
type Runner struct {
	fusedStore   storage.FusedSignalStore
	returnStore  storage.DailyReturnStore
	summaryStore storage.BacktestSummaryStore
	capitalStore storage.CapitalRecordStore

	// SkippedRebalances records dates rejected by the minimum-universe
	// gate, with the observed cross-section size. Local diagnostics, not
	// fatal: prior weights persist through a skipped period.
	SkippedRebalances []string
}

// RunnerOptions contains the store wiring for a Runner. SummaryStore and
// CapitalStore may be nil when results are not persisted.
type RunnerOptions struct {
	FusedStore   storage.FusedSignalStore
	ReturnStore  storage.DailyReturnStore
	SummaryStore storage.BacktestSummaryStore
	CapitalStore storage.CapitalRecordStore
}

// NewRunner creates a backtest runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		fusedStore:   opts.FusedStore,
		returnStore:  opts.ReturnStore,
		summaryStore: opts.SummaryStore,
		capitalStore: opts.CapitalStore,
	}
}

// Run executes one configuration:
//  1. Load fused signals and realized returns
//  2. Build the signal-return panel (next-day join, staleness filter)
//  3. Aggregate signals to the rebalance frequency
//  4. Rank each rebalance date's cross-section and assign weights
//  5. Simulate daily capital for the long, short, and long-short books
//  6. Summarize performance and turnover
func (r *Runner) Run(ctx context.Context, cfg domain.BacktestConfig) (*Results, error) {
	cfg = withDefaults(cfg)

	signals, err := r.fusedStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fused signals: %w", err)
	}
	returns, err := r.returnStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load daily returns: %w", err)
	}

	builder := panel.NewBuilder(cfg.MaxGapDays)
	rows := builder.Build(signals, returns)

	return r.RunOnPanel(ctx, cfg, rows)
}

// RunOnPanel executes one configuration over an already-built panel.
func (r *Runner) RunOnPanel(ctx context.Context, cfg domain.BacktestConfig, rows []*domain.PanelRow) (*Results, error) {
	cfg = withDefaults(cfg)
	runID := idhash.ComputeBacktestRunID(cfg)

	aggregates, rebalanceDays, err := schedule.AggregateSignals(cfg.Frequency, rows)
	if err != nil {
		return nil, fmt.Errorf("aggregate signals: %w", err)
	}

	buckets, validDays, err := r.formPortfolios(aggregates, rebalanceDays, cfg)
	if err != nil {
		return nil, err
	}
	if len(validDays) == 0 {
		return nil, ErrNoValidRebalances
	}

	side := simulation.DayReturns(runID, buckets, validDays, rows)

	results := &Results{
		RunID:         runID,
		Config:        cfg,
		RebalanceDays: validDays,
		Buckets:       buckets,
		Side:          side,
		Records:       make(map[domain.Book][]*domain.DailyCapitalRecord),
		AvgTurnover:   simulation.AvgTurnover(buckets, validDays),
	}

	series := map[domain.Book][]float64{
		domain.BookLong:      side.Long,
		domain.BookShort:     side.Short,
		domain.BookLongShort: side.LongShort(),
	}
	for _, book := range []domain.Book{domain.BookLong, domain.BookShort, domain.BookLongShort} {
		dailyReturns := series[book]
		stats := performance.Compute(dailyReturns, cfg.RiskFreeAnnual)
		results.Summaries = append(results.Summaries, &domain.BacktestSummary{
			RunID:            runID,
			Book:             book,
			Frequency:        cfg.Frequency,
			Scheme:           cfg.Scheme,
			TotalReturn:      stats.TotalReturn,
			AnnualizedReturn: stats.AnnualizedReturn,
			Volatility:       stats.Volatility,
			SharpeRatio:      stats.SharpeRatio,
			MaxDrawdown:      stats.MaxDrawdown,
			MeanDailyReturn:  stats.MeanDailyReturn,
			TradingDays:      stats.TradingDays,
			AvgTurnover:      results.AvgTurnover,
		})

		records, err := r.foldBook(runID, book, side.Days, dailyReturns, cfg.InitialCapital)
		if err != nil {
			return nil, err
		}
		results.Records[book] = records
	}

	if err := r.persist(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// formPortfolios ranks and weights each rebalance date's cross-section.
// Dates failing the minimum-universe gate are skipped and recorded; weight
// normalization failures abort the run.
func (r *Runner) formPortfolios(aggregates []*domain.AggregatedSignal, rebalanceDays []int64, cfg domain.BacktestConfig) (map[int64][]*domain.BucketMember, []int64, error) {
	byDay := make(map[int64][]*domain.AggregatedSignal)
	for _, a := range aggregates {
		byDay[a.RebalanceDayMs] = append(byDay[a.RebalanceDayMs], a)
	}

	buckets := make(map[int64][]*domain.BucketMember)
	var validDays []int64
	for _, day := range rebalanceDays {
		members, err := ranking.RankAndBucket(byDay[day], cfg.LongPercentile, cfg.ShortPercentile, cfg.MinUniverse)
		if err != nil {
			if errors.Is(err, ranking.ErrInsufficientUniverse) {
				r.SkippedRebalances = append(r.SkippedRebalances,
					fmt.Sprintf("%s: universe %d below minimum %d",
						formatDay(day), len(byDay[day]), cfg.MinUniverse))
				continue
			}
			return nil, nil, err
		}

		for _, sideMembers := range splitBySide(members) {
			if err := ranking.AssignWeights(sideMembers, cfg.Scheme); err != nil {
				return nil, nil, fmt.Errorf("rebalance %s: %w", formatDay(day), err)
			}
		}
		buckets[day] = members
		validDays = append(validDays, day)
	}
	sort.Slice(validDays, func(i, j int) bool { return validDays[i] < validDays[j] })
	return buckets, validDays, nil
}

// foldBook compounds capital for one book's return series.
func (r *Runner) foldBook(runID string, book domain.Book, days []int64, dailyReturns []float64, initialCapital float64) ([]*domain.DailyCapitalRecord, error) {
	inputs := make([]simulation.DayInput, len(days))
	for i, day := range days {
		inputs[i] = simulation.DayInput{
			DayMs:       day,
			Mode:        domain.ModeLongShort,
			DailyReturn: dailyReturns[i],
		}
	}
	records, err := simulation.Fold(runID+"/"+string(book), inputs, initialCapital)
	if err != nil {
		return nil, fmt.Errorf("fold %s book: %w", book, err)
	}
	return records, nil
}

func (r *Runner) persist(ctx context.Context, results *Results) error {
	if r.summaryStore != nil {
		if err := r.summaryStore.InsertBulk(ctx, results.Summaries); err != nil {
			return fmt.Errorf("persist summaries: %w", err)
		}
	}
	if r.capitalStore != nil {
		for _, book := range []domain.Book{domain.BookLong, domain.BookShort, domain.BookLongShort} {
			if err := r.capitalStore.InsertBulk(ctx, results.Records[book]); err != nil {
				return fmt.Errorf("persist %s capital records: %w", book, err)
			}
		}
	}
	return nil
}

func splitBySide(members []*domain.BucketMember) map[domain.Side][]*domain.BucketMember {
	out := make(map[domain.Side][]*domain.BucketMember)
	for _, m := range members {
		out[m.Side] = append(out[m.Side], m)
	}
	return out
}

func withDefaults(cfg domain.BacktestConfig) domain.BacktestConfig {
	if cfg.LongPercentile == 0 {
		cfg.LongPercentile = domain.DefaultLongPercentile
	}
	if cfg.ShortPercentile == 0 {
		cfg.ShortPercentile = domain.DefaultShortPercentile
	}
	if cfg.MinUniverse == 0 {
		cfg.MinUniverse = domain.DefaultMinUniverse
	}
	if cfg.MaxGapDays == 0 {
		cfg.MaxGapDays = domain.DefaultMaxGapDays
	}
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = domain.DefaultInitialCapital
	}
	return cfg
}

func formatDay(dayMs int64) string {
	return time.UnixMilli(dayMs).UTC().Format("2006-01-02")
}
