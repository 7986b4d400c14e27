package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"riskbot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "riskbot-test-*")
	require.NoError(t, err)

	repo, err := NewRepository(Config{
		DBPath: filepath.Join(tmpDir, "test.db"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	})
	return repo
}

func sampleTrade(id string) *domain.Trade {
	return &domain.Trade{
		ID:              id,
		Symbol:          "BTCUSDT",
		Direction:       domain.Long,
		EntryPrice:      45000,
		SLPrice:         44500,
		TargetPrice:     46500,
		Quantity:        0.2,
		RiskAmount:      100,
		RewardAmount:    300,
		RiskRewardRatio: 3,
		Status:          domain.StatusCreated,
		StrategyName:    "Manual",
		Broker:          "binance",
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func TestRepository_RecordAndFindByID(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	trade := sampleTrade("t1")
	require.NoError(t, repo.Record(ctx, trade))

	got, err := repo.FindByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, trade.ID, got.ID)
	assert.Equal(t, trade.Symbol, got.Symbol)
	assert.Equal(t, trade.Direction, got.Direction)
	assert.Equal(t, trade.Status, got.Status)
	assert.Equal(t, trade.Broker, got.Broker)
	assert.InDelta(t, trade.RiskRewardRatio, got.RiskRewardRatio, 1e-9)
	assert.Nil(t, got.OrderID)
	assert.True(t, got.ActivatedAt.IsZero())
	assert.True(t, got.ClosedAt.IsZero())
}

func TestRepository_FindByIDNotFound(t *testing.T) {
	repo := setupTestDB(t)

	got, err := repo.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// Recording the same trade again must replace the stored snapshot, not
// add a second row.
func TestRepository_RecordReplacesSnapshot(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	trade := sampleTrade("t1")
	require.NoError(t, repo.Record(ctx, trade))

	orderID := "order-42"
	trade.Status = domain.StatusActive
	trade.OrderID = &orderID
	trade.ActivatedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Record(ctx, trade))

	trade.Status = domain.StatusTargetHit
	trade.ExitPrice = 46500
	trade.RealizedPnL = 300
	trade.ClosedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Record(ctx, trade))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got := all[0]
	assert.Equal(t, domain.StatusTargetHit, got.Status)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, "order-42", *got.OrderID)
	assert.InDelta(t, 300.0, got.RealizedPnL, 1e-9)
	assert.False(t, got.ActivatedAt.IsZero())
	assert.False(t, got.ClosedAt.IsZero())
}

func TestRepository_FindAllNewestFirst(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	older := sampleTrade("older")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	newer := sampleTrade("newer")

	require.NoError(t, repo.Record(ctx, older))
	require.NoError(t, repo.Record(ctx, newer))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer", all[0].ID)
	assert.Equal(t, "older", all[1].ID)
}

func TestRepository_TotalRealizedPnL(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	winner := sampleTrade("winner")
	winner.Status = domain.StatusTargetHit
	winner.RealizedPnL = 300

	loser := sampleTrade("loser")
	loser.Status = domain.StatusSLHit
	loser.RealizedPnL = -100

	open := sampleTrade("open")
	open.Status = domain.StatusActive
	open.RealizedPnL = 0

	for _, tr := range []*domain.Trade{winner, loser, open} {
		require.NoError(t, repo.Record(ctx, tr))
	}

	total, err := repo.TotalRealizedPnL(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, total, 1e-9)
}
