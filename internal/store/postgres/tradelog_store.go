package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// TradeLogStore implements domain.TradeLogStore using PostgreSQL.
type TradeLogStore struct {
	pool *pgxpool.Pool
}

var _ domain.TradeLogStore = (*TradeLogStore)(nil)

// NewTradeLogStore creates a TradeLogStore backed by the given pool.
func NewTradeLogStore(pool *pgxpool.Pool) *TradeLogStore {
	return &TradeLogStore{pool: pool}
}

const tradeLogCols = `id, created_at, market_id, question, outcome, side,
	entry_price, size, ref_price, model_prob, market_prob, volatility, status`

// Insert persists a new trade log entry.
func (s *TradeLogStore) Insert(ctx context.Context, entry domain.TradeLog) error {
	const query = `
		INSERT INTO trade_logs (
			id, created_at, market_id, question, outcome, side,
			entry_price, size, ref_price, model_prob, market_prob,
			volatility, status
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		entry.ID, entry.CreatedAt, entry.MarketID, entry.Question,
		string(entry.Outcome), string(entry.Side),
		entry.EntryPrice, entry.Size, entry.RefPrice, entry.ModelProb,
		entry.MarketProb, entry.Volatility, string(entry.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade log %s: %w", entry.ID, err)
	}
	return nil
}

// UpdateStatus transitions a trade log entry's status.
func (s *TradeLogStore) UpdateStatus(ctx context.Context, id string, status domain.TradeStatus) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE trade_logs SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("postgres: update trade log %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update trade log %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListRecent returns the newest entries, most recent first.
func (s *TradeLogStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeLogCols+` FROM trade_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trade logs: %w", err)
	}
	defer rows.Close()
	return scanTradeLogs(rows)
}

// ListClosedBefore returns CLOSED entries created strictly before the
// cutoff, oldest first, for archival.
func (s *TradeLogStore) ListClosedBefore(ctx context.Context, before time.Time) ([]domain.TradeLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeLogCols+` FROM trade_logs
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at ASC`,
		string(domain.TradeStatusClosed), before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list closed trade logs: %w", err)
	}
	defer rows.Close()
	return scanTradeLogs(rows)
}

func scanTradeLogs(rows pgx.Rows) ([]domain.TradeLog, error) {
	var entries []domain.TradeLog
	for rows.Next() {
		var e domain.TradeLog
		var outcome, side, status string
		if err := rows.Scan(
			&e.ID, &e.CreatedAt, &e.MarketID, &e.Question, &outcome, &side,
			&e.EntryPrice, &e.Size, &e.RefPrice, &e.ModelProb,
			&e.MarketProb, &e.Volatility, &status,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade log: %w", err)
		}
		e.Outcome = domain.Outcome(outcome)
		e.Side = domain.OrderSide(side)
		e.Status = domain.TradeStatus(status)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate trade logs: %w", err)
	}
	return entries, nil
}
