package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andrew/scoutchat/internal/ledger"
)

// LedgerStore implements ledger.Store on the SQLite database
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a ledger store backed by db
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// queryRower is satisfied by both *sql.DB and *sql.Tx
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryRower, identity string) (*ledger.Record, error) {
	query := `
		SELECT identity, total_tokens, estimated_cost, request_count, last_used_ms, blocked
		FROM ledger_records
		WHERE identity = ?
	`

	var rec ledger.Record
	var lastUsedMs int64
	err := q.QueryRowContext(ctx, query, identity).Scan(
		&rec.Identity,
		&rec.TotalTokens,
		&rec.EstimatedCost,
		&rec.RequestCount,
		&lastUsedMs,
		&rec.Blocked,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger record: %w", err)
	}
	rec.LastUsed = time.UnixMilli(lastUsedMs).UTC()

	return &rec, nil
}

const upsertRecord = `
	INSERT INTO ledger_records (identity, total_tokens, estimated_cost, request_count, last_used_ms, blocked)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(identity) DO UPDATE SET
		total_tokens = excluded.total_tokens,
		estimated_cost = excluded.estimated_cost,
		request_count = excluded.request_count,
		last_used_ms = excluded.last_used_ms,
		blocked = excluded.blocked
`

func upsertArgs(identity string, rec *ledger.Record) []any {
	return []any{
		identity,
		rec.TotalTokens,
		rec.EstimatedCost,
		rec.RequestCount,
		rec.LastUsed.UnixMilli(),
		rec.Blocked,
	}
}

// Get retrieves the record for identity
func (s *LedgerStore) Get(ctx context.Context, identity string) (*ledger.Record, error) {
	return getRecord(ctx, s.db.conn, identity)
}

// Put overwrites the record for rec.Identity
func (s *LedgerStore) Put(ctx context.Context, rec *ledger.Record) error {
	if _, err := s.db.conn.ExecContext(ctx, upsertRecord, upsertArgs(rec.Identity, rec)...); err != nil {
		return fmt.Errorf("failed to upsert ledger record: %w", err)
	}
	return nil
}

// Update runs fn inside an immediate transaction
func (s *LedgerStore) Update(ctx context.Context, identity string, fn ledger.UpdateFunc) (*ledger.Record, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := getRecord(ctx, tx, identity)
	if err != nil {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return current, nil
	}

	if _, err := tx.ExecContext(ctx, upsertRecord, upsertArgs(identity, next)...); err != nil {
		return nil, fmt.Errorf("failed to upsert ledger record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return next, nil
}

// List retrieves all records, most recently used first
func (s *LedgerStore) List(ctx context.Context) ([]ledger.Record, error) {
	query := `
		SELECT identity, total_tokens, estimated_cost, request_count, last_used_ms, blocked
		FROM ledger_records
		ORDER BY last_used_ms DESC, identity ASC
	`

	rows, err := s.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger records: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var rec ledger.Record
		var lastUsedMs int64
		err := rows.Scan(
			&rec.Identity,
			&rec.TotalTokens,
			&rec.EstimatedCost,
			&rec.RequestCount,
			&lastUsedMs,
			&rec.Blocked,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger record: %w", err)
		}
		rec.LastUsed = time.UnixMilli(lastUsedMs).UTC()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger records: %w", err)
	}

	return records, nil
}

// Close is a no-op; the owner of DB closes the connection
func (s *LedgerStore) Close() error {
	return nil
}
