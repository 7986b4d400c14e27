package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskbot/internal/domain"
	"riskbot/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockRecorder struct {
	mu      sync.Mutex
	records []domain.Trade
}

func (m *mockRecorder) Record(ctx context.Context, trade *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *trade)
	return nil
}

func (m *mockRecorder) FindByID(ctx context.Context, id string) (*domain.Trade, error) {
	return nil, nil
}

func (m *mockRecorder) FindAll(ctx context.Context) ([]*domain.Trade, error) { return nil, nil }

func (m *mockRecorder) TotalRealizedPnL(ctx context.Context) (float64, error) { return 0, nil }

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func newTestRegistry(t *testing.T, balance float64) (*Registry, *mockRecorder) {
	t.Helper()
	rec := &mockRecorder{}
	reg, err := New(Config{Logger: &mockLogger{}, Recorder: rec, InitialBalance: balance})
	require.NoError(t, err)
	return reg, rec
}

func makeTrade(id string, direction domain.Direction) *domain.Trade {
	tr := &domain.Trade{
		ID:        id,
		Symbol:    "BTCUSDT",
		Direction: direction,
		Status:    domain.StatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	if direction == domain.Long {
		tr.EntryPrice, tr.SLPrice, tr.TargetPrice, tr.Quantity = 45000, 44500, 46500, 0.2
	} else {
		tr.Symbol = "ETHUSDT"
		tr.EntryPrice, tr.SLPrice, tr.TargetPrice, tr.Quantity = 2500, 2550, 2400, 2
	}
	return tr
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Logger: nil})
	assert.Error(t, err)

	_, err = New(Config{Logger: &mockLogger{}, InitialBalance: -1})
	assert.Error(t, err)
}

func TestAddAndGet(t *testing.T) {
	ctx := context.Background()
	reg, rec := newTestRegistry(t, 10000)

	tr := makeTrade("t1", domain.Long)
	require.NoError(t, reg.Add(ctx, tr))

	got, err := reg.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, 1, rec.count())

	// Duplicate ids are rejected and classify as both a duplicate and a
	// validation failure.
	err = reg.Add(ctx, makeTrade("t1", domain.Long))
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)
	assert.ErrorIs(t, err, ports.ErrValidation)

	// Unknown ids surface NotFound.
	_, err = reg.Get(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestIndexViews(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, 10000)
	now := time.Now().UTC()

	long := makeTrade("long1", domain.Long)
	short := makeTrade("short1", domain.Short)
	require.NoError(t, reg.Add(ctx, long))
	require.NoError(t, reg.Add(ctx, short))

	// CREATED trades are neither active nor closed.
	assert.Empty(t, reg.ListActive(ctx))
	assert.Empty(t, reg.ListClosed(ctx))
	assert.Len(t, reg.ListByDirection(ctx, domain.Long), 1)
	assert.Len(t, reg.ListByDirection(ctx, domain.Short), 1)

	_, transitioned, err := reg.ApplyTransition(ctx, "long1", domain.StatusActive, 0, now)
	require.NoError(t, err)
	require.True(t, transitioned)
	assert.Len(t, reg.ListActive(ctx), 1)

	_, transitioned, err = reg.ApplyTransition(ctx, "long1", domain.StatusTargetHit, 46500, now)
	require.NoError(t, err)
	require.True(t, transitioned)
	assert.Empty(t, reg.ListActive(ctx))
	assert.Len(t, reg.ListClosed(ctx), 1)
}

func TestListSnapshotsAreDetached(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, 10000)
	now := time.Now().UTC()

	require.NoError(t, reg.Add(ctx, makeTrade("t1", domain.Long)))
	_, _, err := reg.ApplyTransition(ctx, "t1", domain.StatusActive, 0, now)
	require.NoError(t, err)

	snapshot := reg.ListActive(ctx)
	require.Len(t, snapshot, 1)

	_, _, err = reg.ApplyTransition(ctx, "t1", domain.StatusSLHit, 44400, now)
	require.NoError(t, err)

	// The earlier snapshot still shows the pre-transition state.
	assert.Equal(t, domain.StatusActive, snapshot[0].Status)
}

func TestApplyTransitionSettlesAccount(t *testing.T) {
	ctx := context.Background()
	reg, rec := newTestRegistry(t, 10000)
	now := time.Now().UTC()

	// Winner: long closed at target, +300.
	winner := makeTrade("w1", domain.Long)
	require.NoError(t, reg.Add(ctx, winner))
	_, _, err := reg.ApplyTransition(ctx, "w1", domain.StatusActive, 0, now)
	require.NoError(t, err)
	closedWinner, transitioned, err := reg.ApplyTransition(ctx, "w1", domain.StatusTargetHit, 46500, now)
	require.NoError(t, err)
	require.True(t, transitioned)
	assert.InDelta(t, 300.0, closedWinner.RealizedPnL, 1e-9)

	// Loser: short stopped out at 2550, -100.
	loser := makeTrade("l1", domain.Short)
	require.NoError(t, reg.Add(ctx, loser))
	_, _, err = reg.ApplyTransition(ctx, "l1", domain.StatusActive, 0, now)
	require.NoError(t, err)
	closedLoser, transitioned, err := reg.ApplyTransition(ctx, "l1", domain.StatusSLHit, 2550, now)
	require.NoError(t, err)
	require.True(t, transitioned)
	assert.InDelta(t, -100.0, closedLoser.RealizedPnL, 1e-9)

	stats := reg.Statistics(ctx)
	assert.InDelta(t, 10200.0, stats.Balance, 1e-9)
	assert.InDelta(t, 200.0, stats.TotalPnL, 1e-9)
	assert.Equal(t, 1, stats.WinningCount)
	assert.Equal(t, 1, stats.LosingCount)
	assert.InDelta(t, 0.5, stats.WinRate, 1e-9)
	assert.Equal(t, 2, stats.TotalTrades)
	assert.Equal(t, 2, stats.ClosedTrades)
	assert.Equal(t, 0, stats.ActiveTrades)

	// Two admissions, two activations, two closures recorded.
	assert.Equal(t, 6, rec.count())
}

func TestApplyTransitionIdempotent(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, 10000)
	now := time.Now().UTC()

	require.NoError(t, reg.Add(ctx, makeTrade("t1", domain.Long)))
	_, _, err := reg.ApplyTransition(ctx, "t1", domain.StatusActive, 0, now)
	require.NoError(t, err)

	first, transitioned, err := reg.ApplyTransition(ctx, "t1", domain.StatusSLHit, 44400, now)
	require.NoError(t, err)
	require.True(t, transitioned)

	// A second terminal transition is a no-op: same outcome, no double settle.
	second, transitioned, err := reg.ApplyTransition(ctx, "t1", domain.StatusTargetHit, 46500, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.RealizedPnL, second.RealizedPnL)
	assert.Equal(t, first.ClosedAt, second.ClosedAt)

	stats := reg.Statistics(ctx)
	assert.InDelta(t, 10000.0-100.0, stats.Balance, 1e-9)
	assert.Equal(t, 1, stats.LosingCount)
	assert.Equal(t, 0, stats.WinningCount)
}

func TestConcurrentCloseRace(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, 10000)
	now := time.Now().UTC()

	require.NoError(t, reg.Add(ctx, makeTrade("t1", domain.Long)))
	_, _, err := reg.ApplyTransition(ctx, "t1", domain.StatusActive, 0, now)
	require.NoError(t, err)

	// A monitor-triggered stop and a manual close race; exactly one wins.
	var wg sync.WaitGroup
	results := make(chan bool, 2)
	outcomes := []struct {
		status domain.TradeStatus
		price  float64
	}{
		{domain.StatusSLHit, 44400},
		{domain.StatusManuallyClosed, 45100},
	}
	for _, outcome := range outcomes {
		wg.Add(1)
		go func(status domain.TradeStatus, price float64) {
			defer wg.Done()
			_, transitioned, err := reg.ApplyTransition(ctx, "t1", status, price, time.Now().UTC())
			assert.NoError(t, err)
			results <- transitioned
		}(outcome.status, outcome.price)
	}
	wg.Wait()
	close(results)

	wins := 0
	for transitioned := range results {
		if transitioned {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	stats := reg.Statistics(ctx)
	assert.Equal(t, 1, stats.ClosedTrades)
	assert.Equal(t, stats.WinningCount+stats.LosingCount, 1)
}

func TestAbandonedTradeExcludedFromStatistics(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, 10000)
	now := time.Now().UTC()

	// Execution rejected: the trade never activates and is closed manually.
	require.NoError(t, reg.Add(ctx, makeTrade("t1", domain.Long)))
	closed, transitioned, err := reg.ApplyTransition(ctx, "t1", domain.StatusManuallyClosed, 45100, now)
	require.NoError(t, err)
	require.True(t, transitioned)
	assert.True(t, closed.IsAbandoned())

	stats := reg.Statistics(ctx)
	assert.InDelta(t, 10000.0, stats.Balance, 1e-9)
	assert.Equal(t, 0, stats.WinningCount)
	assert.Equal(t, 0, stats.LosingCount)
	assert.Zero(t, stats.WinRate)
	assert.Equal(t, 1, stats.ClosedTrades)
}

func TestMarkToMarketAndEquity(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, 10000)
	now := time.Now().UTC()

	require.NoError(t, reg.Add(ctx, makeTrade("t1", domain.Long)))
	_, _, err := reg.ApplyTransition(ctx, "t1", domain.StatusActive, 0, now)
	require.NoError(t, err)

	require.NoError(t, reg.MarkToMarket(ctx, "t1", 45500))

	got, err := reg.Get(ctx, "t1")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got.UnrealizedPnL, 1e-9)

	stats := reg.Statistics(ctx)
	assert.InDelta(t, 10100.0, stats.Equity, 1e-9)
	assert.InDelta(t, 10000.0, stats.Balance, 1e-9)

	// Closing zeroes the unrealized component.
	_, _, err = reg.ApplyTransition(ctx, "t1", domain.StatusManuallyClosed, 45500, now)
	require.NoError(t, err)
	got, err = reg.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, got.UnrealizedPnL)
}

func TestStatisticsConsistencyAfterManyClosures(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t, 10000)
	now := time.Now().UTC()

	exits := []float64{46500, 46500, 44400, 46500, 44400} // 3 wins, 2 losses
	var expectedPnL float64
	for i, exit := range exits {
		id := string(rune('a' + i))
		require.NoError(t, reg.Add(ctx, makeTrade(id, domain.Long)))
		_, _, err := reg.ApplyTransition(ctx, id, domain.StatusActive, 0, now)
		require.NoError(t, err)
		status := domain.StatusTargetHit
		if exit < 45000 {
			status = domain.StatusSLHit
		}
		closed, _, err := reg.ApplyTransition(ctx, id, status, exit, now)
		require.NoError(t, err)
		expectedPnL += closed.RealizedPnL
	}

	stats := reg.Statistics(ctx)
	assert.Equal(t, 3, stats.WinningCount)
	assert.Equal(t, 2, stats.LosingCount)
	assert.InDelta(t, 3.0/5.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 10000.0+expectedPnL, stats.Balance, 1e-9)
}
