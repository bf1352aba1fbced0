// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: fusion → panel → backtest grid → direction → reporting
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sentiment-alpha-lab/internal/backtest"
	"sentiment-alpha-lab/internal/direction"
	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/fusion"
	"sentiment-alpha-lab/internal/observability"
	"sentiment-alpha-lab/internal/panel"
	"sentiment-alpha-lab/internal/performance"
	"sentiment-alpha-lab/internal/reporting"
	"sentiment-alpha-lab/internal/storage"
)

// Orchestrator coordinates the E2E pipeline execution.
// Flow: fusion → panel construction → backtest grid → daily strategy
type Orchestrator struct {
	// Stores
	observationStore storage.ObservationStore
	fusedStore       storage.FusedSignalStore
	returnStore      storage.DailyReturnStore
	capitalStore     storage.CapitalRecordStore
	summaryStore     storage.BacktestSummaryStore

	// Configs
	fusionConfig     domain.FusionConfig
	backtestConfigs  []domain.BacktestConfig
	directionConfigs []domain.DirectionConfig

	// Options
	skipFusion bool
	verbose    bool
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	ObservationStore storage.ObservationStore
	FusedStore       storage.FusedSignalStore
	ReturnStore      storage.DailyReturnStore
	CapitalStore     storage.CapitalRecordStore
	SummaryStore     storage.BacktestSummaryStore

	// Run configs
	FusionConfig     domain.FusionConfig
	BacktestConfigs  []domain.BacktestConfig
	DirectionConfigs []domain.DirectionConfig

	// Options
	SkipFusion bool // Skip if fused signals already exist
	Verbose    bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		observationStore: opts.ObservationStore,
		fusedStore:       opts.FusedStore,
		returnStore:      opts.ReturnStore,
		capitalStore:     opts.CapitalStore,
		summaryStore:     opts.SummaryStore,
		fusionConfig:     opts.FusionConfig,
		backtestConfigs:  opts.BacktestConfigs,
		directionConfigs: opts.DirectionConfigs,
		skipFusion:       opts.SkipFusion,
		verbose:          opts.Verbose,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	SignalsFused  int
	PanelRows     int
	BacktestsRun  int
	DirectionRuns int
	Report        *reporting.Report
	Errors        []string
	Diagnostics   reporting.DiagnosticsSection
}

// Run executes the full E2E pipeline.
// Phases:
//  1. Fuse raw observations into entity-day signals
//  2. Build the signal-return panel
//  3. Run every backtest configuration over the panel
//  4. Run every direction configuration plus the buy-and-hold baseline
//  5. Generate the report
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Fusion
	signals, err := o.runFusion(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (fusion) failed: %w", err)
	}
	result.SignalsFused = len(signals)
	o.log("  Fused %d entity-day signals", len(signals))

	// Phase 2: Panel
	o.log("Phase 2: Building signal-return panel...")
	rows, err := o.buildPanel(ctx, signals, result)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (panel) failed: %w", err)
	}
	result.PanelRows = len(rows)
	o.log("  Built %d panel rows", len(rows))

	if len(rows) == 0 {
		return result, nil
	}

	// Phase 3: Backtest grid
	o.log("Phase 3: Running backtest grid...")
	backtestsRun := o.runBacktests(ctx, rows, result)
	result.BacktestsRun = backtestsRun
	o.log("  Completed %d backtests (%d errors)", backtestsRun, len(result.Errors))

	// Phase 4: Direction strategy
	o.log("Phase 4: Running daily strategies...")
	directionRows := o.runDirections(ctx, rows, result)
	result.DirectionRuns = len(directionRows)
	o.log("  Completed %d direction runs", len(directionRows))

	// Phase 5: Report
	o.log("Phase 5: Generating report...")
	report, err := reporting.NewGenerator(o.fusedStore, o.returnStore, o.summaryStore).
		WithDirectionRows(directionRows).
		WithDiagnostics(result.Diagnostics).
		Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 5 (report) failed: %w", err)
	}
	result.Report = report

	observability.MarkSuccessfulRun(time.Now().Unix())
	o.log("Pipeline completed: %d signals, %d panel rows, %d backtests, %d direction runs",
		result.SignalsFused, result.PanelRows, result.BacktestsRun, result.DirectionRuns)

	return result, nil
}

// runFusion fuses observations, or loads existing signals when fusion is
// skipped.
func (o *Orchestrator) runFusion(ctx context.Context, result *RunResult) ([]*domain.FusedSignal, error) {
	if o.skipFusion {
		o.log("Phase 1: Skipping fusion (skipFusion=true)")
		return o.fusedStore.GetAll(ctx)
	}

	o.log("Phase 1: Fusing observations...")
	runner := fusion.NewRunner(fusion.NewFuser(o.fusionConfig), o.observationStore, o.fusedStore)
	signals, err := runner.Run(ctx)
	if err != nil {
		// Already-fused inputs are fine on a re-run.
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, err
		}
		signals, err = o.fusedStore.GetAll(ctx)
		if err != nil {
			return nil, err
		}
	}
	result.Diagnostics.DroppedFusionKeys = runner.DropDiagnostics()
	observability.RecordSignalsFused(len(signals))
	return signals, nil
}

// buildPanel joins signals to next-day returns and records coverage
// diagnostics.
func (o *Orchestrator) buildPanel(ctx context.Context, signals []*domain.FusedSignal, result *RunResult) ([]*domain.PanelRow, error) {
	returns, err := o.returnStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	maxGap := domain.DefaultMaxGapDays
	if len(o.backtestConfigs) > 0 && o.backtestConfigs[0].MaxGapDays > 0 {
		maxGap = o.backtestConfigs[0].MaxGapDays
	}
	builder := panel.NewBuilder(maxGap)
	rows := builder.Build(signals, returns)
	result.Diagnostics.PanelIssues = builder.Diagnostics()
	observability.RecordPanelBuilt(len(rows), len(builder.NoForwardReturn), len(builder.StaleSignals))
	return rows, nil
}

// runBacktests executes every configured cross-sectional run. Individual
// failures are recorded and do not abort the grid.
func (o *Orchestrator) runBacktests(ctx context.Context, rows []*domain.PanelRow, result *RunResult) int {
	var completed int
	for _, cfg := range o.backtestConfigs {
		runner := backtest.NewRunner(backtest.RunnerOptions{
			FusedStore:   o.fusedStore,
			ReturnStore:  o.returnStore,
			SummaryStore: o.summaryStore,
			CapitalStore: o.capitalStore,
		})

		started := time.Now()
		res, err := runner.RunOnPanel(ctx, cfg, rows)
		result.Diagnostics.SkippedRebalances = append(result.Diagnostics.SkippedRebalances, runner.SkippedRebalances...)
		if err != nil {
			// A re-run over stored inputs is not an error.
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			observability.RecordBacktestRun(string(cfg.Frequency), "error", time.Since(started).Seconds())
			result.Errors = append(result.Errors, fmt.Sprintf("backtest %s/%s: %v",
				cfg.Frequency, cfg.Scheme, err))
			continue
		}
		observability.RecordBacktestRun(string(cfg.Frequency), "ok", time.Since(started).Seconds())
		observability.RecordRebalances(len(res.RebalanceDays), len(runner.SkippedRebalances))
		observability.RecordMissingReturns(res.Side.MissingReturns)
		completed++
	}
	return completed
}

// runDirections executes every daily threshold configuration and the
// shared buy-and-hold baseline, returning report rows.
func (o *Orchestrator) runDirections(ctx context.Context, rows []*domain.PanelRow, result *RunResult) []reporting.DirectionRow {
	var out []reporting.DirectionRow

	var baselineReturn float64
	if len(o.directionConfigs) > 0 {
		capital := o.directionConfigs[0].InitialCapital
		hold, err := direction.RunHoldBaseline(ctx, rows, capital, o.capitalStore)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			result.Errors = append(result.Errors, fmt.Sprintf("hold baseline: %v", err))
		} else if err == nil && len(hold.Records) > 0 {
			last := hold.Records[len(hold.Records)-1]
			baselineReturn = last.CapitalEnd/capital - 1
		}
	}

	for _, cfg := range o.directionConfigs {
		res, err := direction.NewRunner(cfg, o.capitalStore).Run(ctx, rows)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("direction threshold=%.2f: %v", cfg.Threshold, err))
			continue
		}
		out = append(out, directionRow(cfg, res, baselineReturn))
	}
	return out
}

// directionRow summarizes one direction result for the report.
func directionRow(cfg domain.DirectionConfig, res *direction.Result, baselineReturn float64) reporting.DirectionRow {
	row := reporting.DirectionRow{
		RunID:          res.RunID,
		Threshold:      cfg.Threshold,
		TradingDays:    len(res.Records),
		BaselineReturn: baselineReturn,
	}

	dailyReturns := make([]float64, 0, len(res.Records))
	for _, rec := range res.Records {
		dailyReturns = append(dailyReturns, rec.DailyReturn)
		switch rec.Mode {
		case domain.ModeLongShort:
			row.LongShortDays++
		case domain.ModeLongOnly:
			row.LongOnlyDays++
		case domain.ModeFlat:
			row.FlatDays++
		}
	}
	if len(res.Records) > 0 {
		last := res.Records[len(res.Records)-1]
		row.FinalCapital = last.CapitalEnd
		row.TotalReturn = last.CapitalEnd/cfg.InitialCapital - 1
	}

	stats := performance.Compute(dailyReturns, 0)
	row.SharpeRatio = stats.SharpeRatio
	row.MaxDrawdown = stats.MaxDrawdown
	return row
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
