package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/fillbot/gofill/internal/domain"
)

const fillsSchema = `
CREATE TABLE IF NOT EXISTS fills (
	sequence_number INTEGER NOT NULL,
	timestamp       INTEGER NOT NULL,
	direction       INTEGER NOT NULL,
	price           TEXT NOT NULL,
	quantity        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_timestamp ON fills(timestamp);
`

// SQLiteSource serves fills from a local table written by fill-recorder,
// giving deterministic offline replay of a remote API. Prices and
// quantities are stored as decimal strings; they never travel as floats.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens the fills database at path, creating the schema when
// missing.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single connection: the sqlite driver serializes writers anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(fillsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init fills schema: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// Fetch implements Source. Bounds are inclusive on both sides; callers
// re-filter, so the extra left-edge row is harmless.
func (s *SQLiteSource) Fetch(ctx context.Context, start, end int64) ([]domain.Fill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sequence_number, timestamp, direction, price, quantity
		 FROM fills
		 WHERE timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp, sequence_number`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query fills [%d, %d]: %w", start, end, err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var (
			f          domain.Fill
			price, qty string
		)
		if err := rows.Scan(&f.SequenceNumber, &f.Timestamp, &f.Direction, &price, &qty); err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		if f.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("fill price %q: %w", price, err)
		}
		if f.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("fill quantity %q: %w", qty, err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// InsertFills stores one batch in a single transaction.
func (s *SQLiteSource) InsertFills(ctx context.Context, fills []domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert fills: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fills (sequence_number, timestamp, direction, price, quantity)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert fills: %w", err)
	}
	defer stmt.Close()

	for _, f := range fills {
		if _, err := stmt.ExecContext(ctx, f.SequenceNumber, f.Timestamp, f.Direction,
			f.Price.String(), f.Quantity.String()); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert fill seq %d: %w", f.SequenceNumber, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of recorded fills, used by fill-recorder to log
// progress.
func (s *SQLiteSource) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fills`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fills: %w", err)
	}
	return n, nil
}
