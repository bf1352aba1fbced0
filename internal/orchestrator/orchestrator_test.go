package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage/memory"
)

const (
	jan2Ms = int64(1704153600000) // 2024-01-02 UTC
	jan3Ms = int64(1704240000000) // 2024-01-03
	jan4Ms = int64(1704326400000) // 2024-01-04
)

type testStores struct {
	observations *memory.ObservationStore
	fused        *memory.FusedSignalStore
	returns      *memory.DailyReturnStore
	capital      *memory.CapitalRecordStore
	summaries    *memory.BacktestSummaryStore
}

// seedPipeline loads 20 entities with one observation per signal day and
// forward returns. Raw values span [-0.9, 1.0] so both direction regimes
// and the percentile buckets are populated.
func seedPipeline(t *testing.T) testStores {
	t.Helper()
	ctx := context.Background()

	stores := testStores{
		observations: memory.NewObservationStore(),
		fused:        memory.NewFusedSignalStore(),
		returns:      memory.NewDailyReturnStore(),
		capital:      memory.NewCapitalRecordStore(),
		summaries:    memory.NewBacktestSummaryStore(),
	}

	var obs []*domain.RawSignalObservation
	var returns []*domain.DailyReturn
	for i := 1; i <= 20; i++ {
		entity := fmt.Sprintf("E%02d", i)
		value := float64(i-10) / 10
		for _, day := range []int64{jan2Ms, jan3Ms} {
			obs = append(obs, &domain.RawSignalObservation{
				EntityID:       entity,
				ObservedAtMs:   day + 3600_000*14,
				SessionDayMs:   day,
				SecondsToClose: 7200,
				Value:          value,
			})
		}
		ret := 0.01
		if i <= 4 {
			ret = -0.005
		}
		for _, day := range []int64{jan3Ms, jan4Ms} {
			returns = append(returns, &domain.DailyReturn{
				EntityID: entity,
				DayMs:    day,
				Return:   ret,
			})
		}
	}
	if err := stores.observations.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("seed observations: %v", err)
	}
	if err := stores.returns.InsertBulk(ctx, returns); err != nil {
		t.Fatalf("seed returns: %v", err)
	}
	return stores
}

func defaultOptions(stores testStores) Options {
	return Options{
		ObservationStore: stores.observations,
		FusedStore:       stores.fused,
		ReturnStore:      stores.returns,
		CapitalStore:     stores.capital,
		SummaryStore:     stores.summaries,
		FusionConfig:     domain.FusionConfigIntraday,
		BacktestConfigs: []domain.BacktestConfig{
			{Frequency: domain.RebalanceMonthly, Scheme: domain.WeightEqual},
		},
		DirectionConfigs: []domain.DirectionConfig{domain.DirectionConfigDefault},
	}
}

func TestOrchestrator_Run_FullPipeline(t *testing.T) {
	ctx := context.Background()
	stores := seedPipeline(t)

	result, err := New(defaultOptions(stores)).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Errors) != 0 {
		t.Fatalf("pipeline errors: %v", result.Errors)
	}
	if result.SignalsFused != 40 {
		t.Errorf("SignalsFused = %d, want 40", result.SignalsFused)
	}
	if result.PanelRows != 40 {
		t.Errorf("PanelRows = %d, want 40", result.PanelRows)
	}
	if result.BacktestsRun != 1 {
		t.Errorf("BacktestsRun = %d, want 1", result.BacktestsRun)
	}
	if result.DirectionRuns != 1 {
		t.Errorf("DirectionRuns = %d, want 1", result.DirectionRuns)
	}

	if result.Report == nil {
		t.Fatal("Report is nil")
	}
	if result.Report.RunCount != 1 {
		t.Errorf("Report.RunCount = %d, want 1", result.Report.RunCount)
	}
	// One run, three books.
	if len(result.Report.PerformanceRows) != 3 {
		t.Errorf("got %d performance rows, want 3", len(result.Report.PerformanceRows))
	}
	if len(result.Report.DirectionRows) != 1 {
		t.Fatalf("got %d direction rows, want 1", len(result.Report.DirectionRows))
	}

	// Values above 0.7 and below -0.7 exist on every day, so the daily
	// strategy never leaves long_short.
	dir := result.Report.DirectionRows[0]
	if dir.TradingDays != 2 || dir.LongShortDays != 2 {
		t.Errorf("direction days = %d total / %d long_short, want 2/2",
			dir.TradingDays, dir.LongShortDays)
	}
	if dir.BaselineReturn == 0 {
		t.Error("BaselineReturn = 0, want the buy-and-hold return")
	}
}

func TestOrchestrator_Run_PersistsThroughStores(t *testing.T) {
	ctx := context.Background()
	stores := seedPipeline(t)

	result, err := New(defaultOptions(stores)).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	signals, err := stores.fused.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll signals: %v", err)
	}
	if len(signals) != 40 {
		t.Errorf("stored %d fused signals, want 40", len(signals))
	}

	summaries, err := stores.summaries.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll summaries: %v", err)
	}
	if len(summaries) != 3 {
		t.Errorf("stored %d summaries, want 3", len(summaries))
	}

	// Direction chain present under its run id.
	records, err := stores.capital.GetByRunID(ctx, result.Report.DirectionRows[0].RunID)
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("stored %d direction capital records, want 2", len(records))
	}
}

func TestOrchestrator_Run_SkipFusionUsesStoredSignals(t *testing.T) {
	ctx := context.Background()
	stores := seedPipeline(t)

	var signals []*domain.FusedSignal
	for i := 1; i <= 20; i++ {
		signals = append(signals, &domain.FusedSignal{
			EntityID:     fmt.Sprintf("E%02d", i),
			SessionDayMs: jan2Ms,
			Value:        float64(i-10) / 10,
			Observations: 1,
		})
	}
	if err := stores.fused.InsertBulk(ctx, signals); err != nil {
		t.Fatalf("seed fused signals: %v", err)
	}

	opts := defaultOptions(stores)
	opts.SkipFusion = true
	result, err := New(opts).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.SignalsFused != 20 {
		t.Errorf("SignalsFused = %d, want the 20 pre-stored signals", result.SignalsFused)
	}
}

func TestOrchestrator_Run_RecordsBacktestErrors(t *testing.T) {
	ctx := context.Background()
	stores := seedPipeline(t)

	opts := defaultOptions(stores)
	// 21 entities required, only 20 exist: every rebalance is gated.
	opts.BacktestConfigs = []domain.BacktestConfig{
		{Frequency: domain.RebalanceMonthly, Scheme: domain.WeightEqual, MinUniverse: 21},
	}
	result, err := New(opts).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.BacktestsRun != 0 {
		t.Errorf("BacktestsRun = %d, want 0", result.BacktestsRun)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want one entry", result.Errors)
	}
	if len(result.Diagnostics.SkippedRebalances) == 0 {
		t.Error("expected skipped-rebalance diagnostics")
	}
	// The rest of the pipeline still runs.
	if result.DirectionRuns != 1 || result.Report == nil {
		t.Errorf("pipeline did not continue past the failed grid: %+v", result)
	}
}

func TestOrchestrator_Run_EmptyPanelStopsEarly(t *testing.T) {
	ctx := context.Background()
	stores := testStores{
		observations: memory.NewObservationStore(),
		fused:        memory.NewFusedSignalStore(),
		returns:      memory.NewDailyReturnStore(),
		capital:      memory.NewCapitalRecordStore(),
		summaries:    memory.NewBacktestSummaryStore(),
	}

	result, err := New(defaultOptions(stores)).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.PanelRows != 0 || result.BacktestsRun != 0 || result.Report != nil {
		t.Errorf("empty input should stop after the panel phase: %+v", result)
	}
}
