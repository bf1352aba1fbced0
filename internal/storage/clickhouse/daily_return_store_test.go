package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-alpha-lab/internal/domain"
	"sentiment-alpha-lab/internal/storage"
)

func createTestDailyReturn(entityID string, dayMs int64, ret float64) *domain.DailyReturn {
	return &domain.DailyReturn{
		EntityID:     entityID,
		DayMs:        dayMs,
		Return:       ret,
		MarketCapLag: 2.5e9,
	}
}

func TestDailyReturnStore_InsertBulkAndGetByEntityID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyReturnStore(conn)

	rows := []*domain.DailyReturn{
		createTestDailyReturn("AAPL", 1704240000000, -0.004),
		createTestDailyReturn("AAPL", 1704153600000, 0.012),
		createTestDailyReturn("MSFT", 1704153600000, 0.003),
	}
	require.NoError(t, store.InsertBulk(ctx, rows))

	got, err := store.GetByEntityID(ctx, "AAPL")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by day ASC.
	assert.Equal(t, int64(1704153600000), got[0].DayMs)
	assert.Equal(t, int64(1704240000000), got[1].DayMs)
	assert.InDelta(t, 0.012, got[0].Return, 1e-12)
	assert.InDelta(t, -0.004, got[1].Return, 1e-12)
	assert.InDelta(t, 2.5e9, got[0].MarketCapLag, 1)
}

func TestDailyReturnStore_InsertBulkDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyReturnStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.DailyReturn{
		createTestDailyReturn("AAPL", 1704153600000, 0.012),
	}))

	err := store.InsertBulk(ctx, []*domain.DailyReturn{
		createTestDailyReturn("AAPL", 1704153600000, 0.02),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDailyReturnStore_GetAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewDailyReturnStore(conn)

	require.NoError(t, store.InsertBulk(ctx, []*domain.DailyReturn{
		createTestDailyReturn("MSFT", 1704153600000, 0.003),
		createTestDailyReturn("AAPL", 1704153600000, 0.012),
	}))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].EntityID)
	assert.Equal(t, "MSFT", got[1].EntityID)
}
