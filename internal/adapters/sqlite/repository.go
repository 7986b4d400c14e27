package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"riskbot/internal/domain"
	"riskbot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.TradeRecorder interface using SQLite.
// The trade id is the natural key: recording the same trade twice
// replaces the stored row, so the table always holds the latest snapshot
// of every trade.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

var _ ports.TradeRecorder = (*Repository)(nil)

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/riskbot.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection. WAL mode for better concurrency.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from
	// limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		sl_price REAL NOT NULL,
		target_price REAL NOT NULL,
		quantity REAL NOT NULL,
		risk_amount REAL NOT NULL,
		reward_amount REAL NOT NULL,
		risk_reward_ratio REAL NOT NULL,
		status TEXT NOT NULL,
		strategy_name TEXT NOT NULL,
		broker TEXT NOT NULL DEFAULT 'binance',
		order_id TEXT DEFAULT NULL,
		created_at TIMESTAMP NOT NULL,
		activated_at TIMESTAMP DEFAULT NULL,
		closed_at TIMESTAMP DEFAULT NULL,
		exit_price REAL NOT NULL DEFAULT 0,
		realized_pnl REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_status ON trades (symbol, status);
	CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades (created_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Record persists the current state of a trade, replacing any earlier
// snapshot of the same trade.
func (r *Repository) Record(ctx context.Context, trade *domain.Trade) error {
	const query = `
	INSERT INTO trades (id, symbol, direction, entry_price, sl_price, target_price,
	                    quantity, risk_amount, reward_amount, risk_reward_ratio,
	                    status, strategy_name, broker, order_id, created_at, activated_at,
	                    closed_at, exit_price, realized_pnl)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		order_id = excluded.order_id,
		activated_at = excluded.activated_at,
		closed_at = excluded.closed_at,
		exit_price = excluded.exit_price,
		realized_pnl = excluded.realized_pnl`

	var orderID sql.NullString
	if trade.OrderID != nil {
		orderID = sql.NullString{String: *trade.OrderID, Valid: true}
	}
	var activatedAt, closedAt sql.NullTime
	if !trade.ActivatedAt.IsZero() {
		activatedAt = sql.NullTime{Time: trade.ActivatedAt, Valid: true}
	}
	if !trade.ClosedAt.IsZero() {
		closedAt = sql.NullTime{Time: trade.ClosedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.Symbol, string(trade.Direction), trade.EntryPrice, trade.SLPrice, trade.TargetPrice,
		trade.Quantity, trade.RiskAmount, trade.RewardAmount, trade.RiskRewardRatio,
		string(trade.Status), trade.StrategyName, trade.Broker, orderID, trade.CreatedAt, activatedAt,
		closedAt, trade.ExitPrice, trade.RealizedPnL)
	if err != nil {
		return fmt.Errorf("%w: failed to record trade %s: %v", ports.ErrQueryFailed, trade.ID, err)
	}
	r.logger.Debug(ctx, "Trade record persisted", map[string]interface{}{"tradeID": trade.ID, "status": trade.Status})
	return nil
}

// FindByID retrieves a persisted trade record. Returns nil, nil if not found.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Trade, error) {
	const query = selectColumns + ` FROM trades WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	trade, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "Trade record not found", map[string]interface{}{"tradeID": id})
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to query trade %s: %v", ports.ErrQueryFailed, id, err)
	}
	return trade, nil
}

// FindAll retrieves all persisted trade records, newest first.
func (r *Repository) FindAll(ctx context.Context) ([]*domain.Trade, error) {
	const query = selectColumns + ` FROM trades ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query all trades: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan trade during FindAll: %v", ports.ErrQueryFailed, err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating trade rows: %v", ports.ErrQueryFailed, err)
	}
	return trades, nil
}

// TotalRealizedPnL sums the realized PnL of all closed trades.
func (r *Repository) TotalRealizedPnL(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(realized_pnl), 0) FROM trades WHERE status IN (?, ?, ?)`
	var total float64
	err := r.db.QueryRowContext(ctx, query,
		string(domain.StatusSLHit), string(domain.StatusTargetHit), string(domain.StatusManuallyClosed)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to sum realized pnl: %v", ports.ErrQueryFailed, err)
	}
	return total, nil
}

const selectColumns = `
	SELECT id, symbol, direction, entry_price, sl_price, target_price,
	       quantity, risk_amount, reward_amount, risk_reward_ratio,
	       status, strategy_name, broker, order_id, created_at, activated_at,
	       closed_at, exit_price, realized_pnl`

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var direction, status string
	var orderID sql.NullString
	var activatedAt, closedAt sql.NullTime
	err := s.Scan(
		&t.ID, &t.Symbol, &direction, &t.EntryPrice, &t.SLPrice, &t.TargetPrice,
		&t.Quantity, &t.RiskAmount, &t.RewardAmount, &t.RiskRewardRatio,
		&status, &t.StrategyName, &t.Broker, &orderID, &t.CreatedAt, &activatedAt,
		&closedAt, &t.ExitPrice, &t.RealizedPnL)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	t.Direction = domain.Direction(direction)
	t.Status = domain.TradeStatus(status)
	if orderID.Valid {
		t.OrderID = &orderID.String
	}
	if activatedAt.Valid {
		t.ActivatedAt = activatedAt.Time
	}
	if closedAt.Valid {
		t.ClosedAt = closedAt.Time
	}
	return t, nil
}
