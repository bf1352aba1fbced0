package memory

import (
	"context"
	"errors"
	"testing"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

func TestObservationStore_InsertBulkAndGetByEntityID(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	obs := []*domain.RawSignalObservation{
		{EntityID: "AAPL", ObservedAtMs: 3000, SessionDayMs: 1000, SecondsToClose: 600, Value: 0.5},
		{EntityID: "AAPL", ObservedAtMs: 2000, SessionDayMs: 1000, SecondsToClose: 1200, Value: 0.3},
		{EntityID: "MSFT", ObservedAtMs: 2000, SessionDayMs: 1000, SecondsToClose: 900, Value: -0.2},
	}

	if err := store.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByEntityID(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetByEntityID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 observations, got %d", len(got))
	}

	// Ordered by observed-at ASC within the day
	if got[0].ObservedAtMs != 2000 || got[1].ObservedAtMs != 3000 {
		t.Errorf("Wrong order: %d, %d", got[0].ObservedAtMs, got[1].ObservedAtMs)
	}
	if got[0].SecondsToClose != 1200 || got[0].Value != 0.3 {
		t.Errorf("Field mismatch: %+v", got[0])
	}
}

func TestObservationStore_DuplicateKey(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	o := &domain.RawSignalObservation{EntityID: "AAPL", ObservedAtMs: 1000, SessionDayMs: 1000, Value: 0.1}
	if err := store.InsertBulk(ctx, []*domain.RawSignalObservation{o}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.RawSignalObservation{o})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same timestamp for another entity is fine
	other := &domain.RawSignalObservation{EntityID: "MSFT", ObservedAtMs: 1000, SessionDayMs: 1000, Value: 0.2}
	if err := store.InsertBulk(ctx, []*domain.RawSignalObservation{other}); err != nil {
		t.Errorf("Insert for different entity failed: %v", err)
	}
}

func TestObservationStore_InvalidInput(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.RawSignalObservation{{EntityID: "", ObservedAtMs: 1000}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestObservationStore_GetAllOrdered(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	obs := []*domain.RawSignalObservation{
		{EntityID: "MSFT", ObservedAtMs: 1000, SessionDayMs: 1000},
		{EntityID: "AAPL", ObservedAtMs: 2000, SessionDayMs: 1000},
		{EntityID: "AAPL", ObservedAtMs: 1000, SessionDayMs: 1000},
	}
	if err := store.InsertBulk(ctx, obs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 observations, got %d", len(got))
	}
	if got[0].EntityID != "AAPL" || got[0].ObservedAtMs != 1000 {
		t.Errorf("First should be AAPL@1000, got %s@%d", got[0].EntityID, got[0].ObservedAtMs)
	}
	if got[2].EntityID != "MSFT" {
		t.Errorf("Last should be MSFT, got %s", got[2].EntityID)
	}
}
