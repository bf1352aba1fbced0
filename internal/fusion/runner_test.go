package fusion

import (
	"context"
	"math"
	"strings"
	"testing"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage/memory"
)

const (
	day1Ms = int64(1704153600000) // 2024-01-02 UTC
	day2Ms = int64(1704240000000) // 2024-01-03 UTC
)

func makeStoredObs(entityID string, dayMs, observedAtMs int64, value float64) *domain.RawSignalObservation {
	return &domain.RawSignalObservation{
		EntityID:       entityID,
		ObservedAtMs:   observedAtMs,
		SessionDayMs:   dayMs,
		SecondsToClose: 3600,
		Value:          value,
	}
}

func TestRunner_Run_GroupsPerEntityDay(t *testing.T) {
	ctx := context.Background()
	obsStore := memory.NewObservationStore()
	fusedStore := memory.NewFusedSignalStore()

	obs := []*domain.RawSignalObservation{
		makeStoredObs("AAPL", day1Ms, day1Ms+1000, 0.5),
		makeStoredObs("AAPL", day1Ms, day1Ms+2000, 0.5),
		makeStoredObs("AAPL", day2Ms, day2Ms+1000, -0.2),
		makeStoredObs("MSFT", day1Ms, day1Ms+1000, 0.9),
	}
	if err := obsStore.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	runner := NewRunner(NewFuser(domain.FusionConfigIntraday), obsStore, fusedStore)
	fused, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// One signal per (entity, day), sorted by entity then day.
	if len(fused) != 3 {
		t.Fatalf("got %d fused signals, want 3", len(fused))
	}
	if fused[0].EntityID != "AAPL" || fused[0].SessionDayMs != day1Ms {
		t.Errorf("fused[0] = %s/%d, want AAPL/day1", fused[0].EntityID, fused[0].SessionDayMs)
	}
	if fused[1].EntityID != "AAPL" || fused[1].SessionDayMs != day2Ms {
		t.Errorf("fused[1] = %s/%d, want AAPL/day2", fused[1].EntityID, fused[1].SessionDayMs)
	}
	if fused[2].EntityID != "MSFT" {
		t.Errorf("fused[2].EntityID = %s, want MSFT", fused[2].EntityID)
	}

	if fused[0].Observations != 2 {
		t.Errorf("AAPL day1 Observations = %d, want 2", fused[0].Observations)
	}
	// Single-observation days pass through.
	if fused[1].Value != -0.2 {
		t.Errorf("AAPL day2 Value = %v, want -0.2", fused[1].Value)
	}

	// And the store holds the same series.
	stored, err := fusedStore.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(stored) != 3 {
		t.Errorf("stored %d signals, want 3", len(stored))
	}
}

func TestRunner_FuseAll_DropsDegenerateKeys(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(NewFuser(domain.FusionConfigIntraday), memory.NewObservationStore(), nil)

	bad := makeStoredObs("ZZZ", day1Ms, day1Ms+1000, math.NaN())
	good := makeStoredObs("AAPL", day1Ms, day1Ms+1000, 0.3)

	fused, err := runner.FuseAll(ctx, []*domain.RawSignalObservation{bad, good})
	if err != nil {
		t.Fatalf("FuseAll failed: %v", err)
	}

	if len(fused) != 1 {
		t.Fatalf("got %d fused signals, want 1", len(fused))
	}
	if fused[0].EntityID != "AAPL" {
		t.Errorf("surviving entity = %s, want AAPL", fused[0].EntityID)
	}

	diags := runner.DropDiagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d drop diagnostics, want 1", len(diags))
	}
	if !strings.Contains(diags[0], "ZZZ@2024-01-02") {
		t.Errorf("diagnostic %q does not name the dropped key", diags[0])
	}
}

func TestRunner_FuseAll_EmptyInput(t *testing.T) {
	runner := NewRunner(NewFuser(domain.FusionConfigIntraday), memory.NewObservationStore(), memory.NewFusedSignalStore())

	fused, err := runner.FuseAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("FuseAll failed: %v", err)
	}
	if len(fused) != 0 {
		t.Errorf("got %d fused signals, want 0", len(fused))
	}
	if diags := runner.DropDiagnostics(); diags != nil {
		t.Errorf("DropDiagnostics = %v, want nil", diags)
	}
}
