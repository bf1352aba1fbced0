package direction

import (
	"context"
	"errors"
	"math"
	"testing"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage/memory"
)

func TestRunHoldBaseline_EqualWeightFirstDayUniverse(t *testing.T) {
	panel := []*domain.PanelRow{
		panelRow("AAPL", dirDay1Ms, 0.9, 0.02),
		panelRow("MSFT", dirDay1Ms, -0.3, 0.04),
		panelRow("AAPL", dirDay2Ms, 0.1, -0.01),
		panelRow("MSFT", dirDay2Ms, 0.2, 0.03),
	}

	result, err := RunHoldBaseline(context.Background(), panel, 100000, nil)
	if err != nil {
		t.Fatalf("RunHoldBaseline: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}
	// Signals are ignored; every first-day entity is held at 1/2.
	wantDay1 := 0.5*0.02 + 0.5*0.04
	if math.Abs(result.Records[0].DailyReturn-wantDay1) > 1e-12 {
		t.Errorf("day 1 return = %v, want %v", result.Records[0].DailyReturn, wantDay1)
	}
	for _, rec := range result.Records {
		if rec.Mode != domain.ModeBuyHold {
			t.Errorf("Mode = %v, want buy_and_hold_long", rec.Mode)
		}
		if rec.LongExposure != 1.0 || rec.NumLong != 2 {
			t.Errorf("exposure/count = %v/%d, want 1.0/2", rec.LongExposure, rec.NumLong)
		}
	}
}

func TestRunHoldBaseline_MissingEntityDayContributesZero(t *testing.T) {
	panel := []*domain.PanelRow{
		panelRow("AAPL", dirDay1Ms, 0.9, 0.02),
		panelRow("MSFT", dirDay1Ms, 0.5, 0.01),
		// Day 2: MSFT has no row; its 0.5 weight earns 0.
		panelRow("AAPL", dirDay2Ms, 0.1, 0.04),
	}

	result, err := RunHoldBaseline(context.Background(), panel, 50000, nil)
	if err != nil {
		t.Fatalf("RunHoldBaseline: %v", err)
	}

	if math.Abs(result.Records[1].DailyReturn-0.5*0.04) > 1e-12 {
		t.Errorf("day 2 return = %v, want %v (fixed weights, no renormalization)",
			result.Records[1].DailyReturn, 0.5*0.04)
	}
}

func TestRunHoldBaseline_EntityJoiningLaterIsIgnored(t *testing.T) {
	panel := []*domain.PanelRow{
		panelRow("AAPL", dirDay1Ms, 0.9, 0.01),
		panelRow("AAPL", dirDay2Ms, 0.9, 0.01),
		panelRow("GOOG", dirDay2Ms, 0.9, 0.50), // not in the first-day universe
	}

	result, err := RunHoldBaseline(context.Background(), panel, 10000, nil)
	if err != nil {
		t.Fatalf("RunHoldBaseline: %v", err)
	}

	if math.Abs(result.Records[1].DailyReturn-0.01) > 1e-12 {
		t.Errorf("day 2 return = %v, want 0.01 (GOOG excluded)",
			result.Records[1].DailyReturn)
	}
	for _, p := range result.Positions {
		if p.EntityID == "GOOG" {
			t.Error("GOOG held despite joining after day 1")
		}
	}
}

func TestRunHoldBaseline_PersistsRecords(t *testing.T) {
	store := memory.NewCapitalRecordStore()
	panel := []*domain.PanelRow{panelRow("AAPL", dirDay1Ms, 0.9, 0.02)}

	result, err := RunHoldBaseline(context.Background(), panel, 100000, store)
	if err != nil {
		t.Fatalf("RunHoldBaseline: %v", err)
	}

	stored, err := store.GetByRunID(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetByRunID: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("got %d stored records, want 1", len(stored))
	}
}

func TestRunHoldBaseline_Validation(t *testing.T) {
	panel := []*domain.PanelRow{panelRow("AAPL", dirDay1Ms, 0.9, 0.02)}

	if _, err := RunHoldBaseline(context.Background(), panel, 0, nil); !errors.Is(err, ErrInvalidCapital) {
		t.Errorf("zero capital: err = %v, want ErrInvalidCapital", err)
	}
	if _, err := RunHoldBaseline(context.Background(), nil, 1000, nil); !errors.Is(err, ErrEmptyPanel) {
		t.Errorf("empty panel: err = %v, want ErrEmptyPanel", err)
	}
}
