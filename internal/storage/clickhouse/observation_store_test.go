package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

func createTestObservation(entityID string, observedAtMs int64, value float64) *domain.RawSignalObservation {
	return &domain.RawSignalObservation{
		EntityID:       entityID,
		ObservedAtMs:   observedAtMs,
		SessionDayMs:   1704153600000,
		SecondsToClose: 3600,
		Value:          value,
	}
}

func TestObservationStore_InsertBulkAndGetByEntityID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewObservationStore(conn)

	obs := []*domain.RawSignalObservation{
		createTestObservation("AAPL", 1704180000000, 0.6),
		createTestObservation("AAPL", 1704175000000, -0.2),
		createTestObservation("MSFT", 1704180000000, 0.3),
	}
	require.NoError(t, store.InsertBulk(ctx, obs))

	got, err := store.GetByEntityID(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by observed-at ASC within the session day.
	assert.Equal(t, int64(1704175000000), got[0].ObservedAtMs)
	assert.Equal(t, int64(1704180000000), got[1].ObservedAtMs)
	assert.InDelta(t, -0.2, got[0].Value, 1e-12)
	assert.InDelta(t, 0.6, got[1].Value, 1e-12)
	assert.InDelta(t, 3600.0, got[0].SecondsToClose, 1e-12)
}

func TestObservationStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewObservationStore(conn)

	obs := []*domain.RawSignalObservation{
		createTestObservation("AAPL", 1704180000000, 0.6),
		createTestObservation("AAPL", 1704180000000, 0.7),
	}
	err := store.InsertBulk(ctx, obs)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestObservationStore_InsertBulkExistingDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewObservationStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.RawSignalObservation{
		createTestObservation("AAPL", 1704180000000, 0.6),
	}))

	err := store.InsertBulk(ctx, []*domain.RawSignalObservation{
		createTestObservation("AAPL", 1704180000000, 0.9),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestObservationStore_GetAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewObservationStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.RawSignalObservation{
		createTestObservation("MSFT", 1704180000000, 0.3),
		createTestObservation("AAPL", 1704180000000, 0.6),
	}))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].EntityID)
	assert.Equal(t, "MSFT", got[1].EntityID)
}

func TestObservationStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewObservationStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}
