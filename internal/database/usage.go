package database

import (
	"context"
	"fmt"
	"time"

	"github.com/andrew/scoutchat/internal/database/models"
)

// CreateUsageEvent inserts a new usage event
func (db *DB) CreateUsageEvent(ctx context.Context, event *models.UsageEvent) error {
	query := `
		INSERT INTO usage_events (
			identity, request_id, timestamp_ms, model, child_age,
			input_tokens, output_tokens, usage_reported, cost,
			response_time_ms, outcome, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.conn.ExecContext(
		ctx,
		query,
		event.Identity,
		event.RequestID,
		event.Timestamp.UnixMilli(),
		event.Model,
		event.ChildAge,
		event.InputTokens,
		event.OutputTokens,
		event.UsageReported,
		event.Cost,
		event.ResponseTimeMs,
		event.Outcome,
		event.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	event.ID = id

	return nil
}

// timeFilter appends optional time bounds to a query
func timeFilter(query string, args []any, startTime, endTime *time.Time) (string, []any) {
	if startTime != nil {
		query += " AND timestamp_ms >= ?"
		args = append(args, startTime.UnixMilli())
	}
	if endTime != nil {
		query += " AND timestamp_ms <= ?"
		args = append(args, endTime.UnixMilli())
	}
	return query, args
}

// GetUsageEvents retrieves usage events for an identity with optional filters
func (db *DB) GetUsageEvents(ctx context.Context, identity string, limit, offset int, startTime, endTime *time.Time) ([]models.UsageEvent, error) {
	query := `
		SELECT id, identity, request_id, timestamp_ms, model, child_age,
			   input_tokens, output_tokens, usage_reported, cost,
			   response_time_ms, outcome, error_message
		FROM usage_events
		WHERE identity = ?
	`
	query, args := timeFilter(query, []any{identity}, startTime, endTime)

	query += " ORDER BY timestamp_ms DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer rows.Close()

	var events []models.UsageEvent
	for rows.Next() {
		var event models.UsageEvent
		var timestampMs int64
		err := rows.Scan(
			&event.ID,
			&event.Identity,
			&event.RequestID,
			&timestampMs,
			&event.Model,
			&event.ChildAge,
			&event.InputTokens,
			&event.OutputTokens,
			&event.UsageReported,
			&event.Cost,
			&event.ResponseTimeMs,
			&event.Outcome,
			&event.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		event.Timestamp = time.UnixMilli(timestampMs).UTC()
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage events: %w", err)
	}

	return events, nil
}

// GetUsageStats calculates aggregated usage statistics for an identity
func (db *DB) GetUsageStats(ctx context.Context, identity string, startTime, endTime *time.Time) (*models.UsageStats, error) {
	query := `
		SELECT
			COUNT(*) as total_requests,
			COALESCE(SUM(input_tokens), 0) as input_tokens,
			COALESCE(SUM(output_tokens), 0) as output_tokens,
			COALESCE(SUM(cost), 0) as total_cost
		FROM usage_events
		WHERE identity = ?
	`
	query, args := timeFilter(query, []any{identity}, startTime, endTime)

	var stats models.UsageStats
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalRequests,
		&stats.InputTokens,
		&stats.OutputTokens,
		&stats.TotalCost,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get usage stats: %w", err)
	}

	stats.ByOutcome, err = db.countBy(ctx, "outcome", identity, startTime, endTime)
	if err != nil {
		return nil, err
	}
	stats.ByModel, err = db.countBy(ctx, "model", identity, startTime, endTime)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// countBy groups an identity's events by column. column is never user input.
func (db *DB) countBy(ctx context.Context, column, identity string, startTime, endTime *time.Time) (map[string]int, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) as count
		FROM usage_events
		WHERE identity = ?
	`, column)
	query, args := timeFilter(query, []any{identity}, startTime, endTime)
	query += " GROUP BY " + column

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s stats: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s stats: %w", column, err)
	}

	return counts, nil
}

// DeleteUsageEventsByIdentity deletes all usage events for an identity
func (db *DB) DeleteUsageEventsByIdentity(ctx context.Context, identity string) error {
	query := `DELETE FROM usage_events WHERE identity = ?`
	if _, err := db.conn.ExecContext(ctx, query, identity); err != nil {
		return fmt.Errorf("failed to delete usage events: %w", err)
	}
	return nil
}
