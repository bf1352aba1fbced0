package direction

import (
	"context"
	"errors"
	"math"
	"testing"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage/memory"
)

const (
	dirDay1Ms = int64(1704153600000) // 2024-01-02 UTC
	dirDay2Ms = int64(1704240000000) // 2024-01-03
	dirDay3Ms = int64(1704326400000) // 2024-01-04
)

func panelRow(entityID string, signalDayMs int64, signal, ret float64) *domain.PanelRow {
	return &domain.PanelRow{
		EntityID:    entityID,
		SignalDayMs: signalDayMs,
		SignalScore: signal,
		ReturnDayMs: signalDayMs + 86400000,
		Return:      ret,
	}
}

func TestRunner_Run_RegimeSwitchesDaily(t *testing.T) {
	panel := []*domain.PanelRow{
		// Day 1: one long, one short -> long_short.
		panelRow("AAPL", dirDay1Ms, 0.9, 0.02),
		panelRow("XOM", dirDay1Ms, -0.8, -0.01),
		// Day 2: only a long -> long_only.
		panelRow("AAPL", dirDay2Ms, 0.7, 0.01),
		panelRow("XOM", dirDay2Ms, 0.1, 0.00),
		// Day 3: nothing qualifies -> flat.
		panelRow("AAPL", dirDay3Ms, 0.1, 0.05),
	}

	runner := NewRunner(testCfg, nil)
	result, err := runner.Run(context.Background(), panel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(result.Records))
	}

	wantModes := []domain.Mode{domain.ModeLongShort, domain.ModeLongOnly, domain.ModeFlat}
	for i, rec := range result.Records {
		if rec.Mode != wantModes[i] {
			t.Errorf("day %d Mode = %v, want %v", i+1, rec.Mode, wantModes[i])
		}
	}

	// Day 1: 1.8*0.02 long + (-1.0)*(-0.01) short.
	wantDay1 := 1.8*0.02 + 0.01
	if math.Abs(result.Records[0].DailyReturn-wantDay1) > 1e-12 {
		t.Errorf("day 1 return = %v, want %v", result.Records[0].DailyReturn, wantDay1)
	}
	// Day 3 is flat: capital unchanged.
	if result.Records[2].DailyReturn != 0 {
		t.Errorf("flat day return = %v, want 0", result.Records[2].DailyReturn)
	}
	if result.Records[2].CapitalEnd != result.Records[1].CapitalEnd {
		t.Errorf("flat day moved capital: %v -> %v",
			result.Records[1].CapitalEnd, result.Records[2].CapitalEnd)
	}
}

func TestRunner_Run_CapitalChainContinuous(t *testing.T) {
	panel := []*domain.PanelRow{
		panelRow("AAPL", dirDay1Ms, 0.9, 0.03),
		panelRow("XOM", dirDay1Ms, -0.9, 0.01),
		panelRow("AAPL", dirDay2Ms, 0.9, -0.02),
		panelRow("XOM", dirDay2Ms, -0.9, -0.01),
	}

	runner := NewRunner(testCfg, nil)
	result, err := runner.Run(context.Background(), panel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Records[0].CapitalStart != testCfg.InitialCapital {
		t.Errorf("first CapitalStart = %v, want %v",
			result.Records[0].CapitalStart, testCfg.InitialCapital)
	}
	for i := 1; i < len(result.Records); i++ {
		if result.Records[i].CapitalStart != result.Records[i-1].CapitalEnd {
			t.Errorf("chain break at record %d", i)
		}
	}
}

func TestRunner_Run_PersistsRecords(t *testing.T) {
	store := memory.NewCapitalRecordStore()
	panel := []*domain.PanelRow{
		panelRow("AAPL", dirDay1Ms, 0.9, 0.02),
		panelRow("XOM", dirDay1Ms, -0.9, -0.01),
	}

	runner := NewRunner(testCfg, store)
	result, err := runner.Run(context.Background(), panel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	stored, err := store.GetByRunID(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("got %d stored records, want 1", len(stored))
	}
	if stored[0].Mode != domain.ModeLongShort {
		t.Errorf("stored Mode = %v, want long_short", stored[0].Mode)
	}
}

func TestRunner_Run_ValidatesConfig(t *testing.T) {
	panel := []*domain.PanelRow{panelRow("AAPL", dirDay1Ms, 0.9, 0.02)}

	bad := testCfg
	bad.Threshold = 0
	if _, err := NewRunner(bad, nil).Run(context.Background(), panel); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("zero threshold: err = %v, want ErrInvalidThreshold", err)
	}

	bad = testCfg
	bad.InitialCapital = -1
	if _, err := NewRunner(bad, nil).Run(context.Background(), panel); !errors.Is(err, ErrInvalidCapital) {
		t.Errorf("negative capital: err = %v, want ErrInvalidCapital", err)
	}

	if _, err := NewRunner(testCfg, nil).Run(context.Background(), nil); !errors.Is(err, ErrEmptyPanel) {
		t.Errorf("empty panel: err = %v, want ErrEmptyPanel", err)
	}
}

func TestRunner_Run_PositionsMatchDailyReturns(t *testing.T) {
	panel := []*domain.PanelRow{
		panelRow("AAPL", dirDay1Ms, 0.9, 0.02),
		panelRow("MSFT", dirDay1Ms, 0.8, -0.01),
		panelRow("XOM", dirDay1Ms, -0.9, 0.005),
	}

	result, err := NewRunner(testCfg, nil).Run(context.Background(), panel)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var sum float64
	for _, p := range result.Positions {
		if p.DayMs != dirDay1Ms {
			t.Fatalf("position on unexpected day %d", p.DayMs)
		}
		sum += p.Contribution
	}
	if math.Abs(sum-result.Records[0].DailyReturn) > 1e-12 {
		t.Errorf("contributions sum %v != daily return %v",
			sum, result.Records[0].DailyReturn)
	}
}
