package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"DexPilot/internal/domain/models"
	"DexPilot/internal/domain/repository"
)

// ClickHouseFillLedger implements FillLedger on ClickHouse. Fills are
// append-only: the table is the durable record from which PnL and drawdown
// history can be rebuilt.
type ClickHouseFillLedger struct {
	db    *sql.DB
	table string
}

// NewClickHouseFillLedger creates the ClickHouse-backed fill store.
func NewClickHouseFillLedger(db *sql.DB, table string) repository.FillLedger {
	return &ClickHouseFillLedger{db: db, table: table}
}

func (s *ClickHouseFillLedger) Append(ctx context.Context, f *models.Fill) error {
	if f == nil {
		return fmt.Errorf("fill is nil")
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, bot_id, pair, strategy, price, qty, fee, pnl, mark, capital, success) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		f.At,
		f.BotID,
		f.Pair,
		string(f.Strategy),
		f.Price,
		f.Quantity,
		f.Fee,
		f.PnL,
		f.Mark,
		f.Capital,
		f.Success,
	)
	return err
}

func (s *ClickHouseFillLedger) History(ctx context.Context, botID string, from, to time.Time, limit int) ([]*models.Fill, error) {
	q := fmt.Sprintf("SELECT ts, bot_id, pair, strategy, price, qty, fee, pnl, mark, capital, success FROM %s WHERE bot_id = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, botID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFills(rows)
}

// Recent feeds the performance tracker warm-up after a restart. Oldest first
// so the rolling window can be replayed in order.
func (s *ClickHouseFillLedger) Recent(ctx context.Context, from time.Time, limit int) ([]*models.Fill, error) {
	q := fmt.Sprintf("SELECT ts, bot_id, pair, strategy, price, qty, fee, pnl, mark, capital, success FROM %s WHERE ts >= ? ORDER BY ts ASC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFills(rows)
}

func scanFills(rows *sql.Rows) ([]*models.Fill, error) {
	var fills []*models.Fill
	for rows.Next() {
		var f models.Fill
		var strategy string
		if err := rows.Scan(&f.At, &f.BotID, &f.Pair, &strategy, &f.Price, &f.Quantity, &f.Fee, &f.PnL, &f.Mark, &f.Capital, &f.Success); err != nil {
			return nil, err
		}
		f.Strategy = models.StrategyKind(strategy)
		fills = append(fills, &f)
	}
	return fills, rows.Err()
}

func (s *ClickHouseFillLedger) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseFillLedger) Close() error {
	return nil // Managed by pkg
}
