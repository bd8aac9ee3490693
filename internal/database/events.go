// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/avolkov/shoplytics/internal/metrics"
	"github.com/avolkov/shoplytics/internal/models"
)

const insertEventSQL = `
	INSERT INTO analytics_events (
		event_type, event_name, user_id, session_id,
		page_url, referrer, user_agent, ip_address,
		properties, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id, created_at`

// AppendEvent durably stores a single event and returns the stored
// record with its assigned ID.
func (db *DB) AppendEvent(ctx context.Context, event *models.AnalyticsEvent) (*models.StoredEvent, error) {
	start := time.Now()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	stored, err := insertEvent(ctx, db.conn, event)
	metrics.RecordDBQuery("append_event", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	return stored, nil
}

// AppendBatch durably stores a batch of events in one transaction.
// The batch is all-or-nothing: any failure rolls back every row.
func (db *DB) AppendBatch(ctx context.Context, events []models.AnalyticsEvent) ([]models.StoredEvent, error) {
	start := time.Now()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	stored, err := db.appendBatchTx(ctx, events)
	metrics.RecordDBQuery("append_batch", start, err)
	return stored, err
}

func (db *DB) appendBatchTx(ctx context.Context, events []models.AnalyticsEvent) ([]models.StoredEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stored := make([]models.StoredEvent, 0, len(events))
	for i := range events {
		rec, err := insertEvent(ctx, tx, &events[i])
		if err != nil {
			return nil, fmt.Errorf("failed to append event %d of %d: %w", i+1, len(events), err)
		}
		stored = append(stored, *rec)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return stored, nil
}

// execer abstracts *sql.DB and *sql.Tx for the insert path.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func insertEvent(ctx context.Context, q execer, event *models.AnalyticsEvent) (*models.StoredEvent, error) {
	propsJSON, err := marshalProperties(event.Properties)
	if err != nil {
		return nil, err
	}

	stored := models.StoredEvent{AnalyticsEvent: *event}
	err = q.QueryRowContext(ctx, insertEventSQL,
		event.EventType,
		event.EventName,
		nullableInt64(event.UserID),
		nullableString(event.SessionID),
		nullableString(event.PageURL),
		nullableString(event.Referrer),
		nullableString(event.UserAgent),
		nullableString(event.IPAddress),
		propsJSON,
		event.Timestamp.UTC(),
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// QueryEvents returns stored events matching the filter, newest first.
// Ordering is by event timestamp descending with ID descending as a
// deterministic tie-break.
func (db *DB) QueryEvents(ctx context.Context, filter models.EventFilter) ([]models.StoredEvent, error) {
	start := time.Now()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	// The JSON column is cast to VARCHAR: the driver hands JSON values
	// back as map[string]interface{}, which database/sql cannot scan
	// into a string.
	query := `
	SELECT id, event_type, event_name, user_id, session_id,
	       page_url, referrer, user_agent, ip_address,
	       properties::VARCHAR, timestamp, created_at
	FROM analytics_events
	WHERE 1=1`

	var args []interface{}
	if filter.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, filter.EventType)
	}
	if filter.UserID != nil {
		query += ` AND user_id = ?`
		args = append(args, *filter.UserID)
	}
	if filter.Start != nil {
		query += ` AND timestamp >= ?`
		args = append(args, filter.Start.UTC())
	}
	if filter.End != nil {
		query += ` AND timestamp < ?`
		args = append(args, filter.End.UTC())
	}

	query += `
	ORDER BY timestamp DESC, id DESC
	LIMIT ? OFFSET ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("query_events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// UserEvents returns the most recent events for one user, newest first.
func (db *DB) UserEvents(ctx context.Context, userID int64, limit int) ([]models.StoredEvent, error) {
	return db.QueryEvents(ctx, models.EventFilter{
		UserID: &userID,
		Limit:  limit,
	})
}

func scanEvents(rows *sql.Rows) ([]models.StoredEvent, error) {
	events := make([]models.StoredEvent, 0)
	for rows.Next() {
		var (
			e         models.StoredEvent
			userID    sql.NullInt64
			sessionID sql.NullString
			pageURL   sql.NullString
			referrer  sql.NullString
			userAgent sql.NullString
			ipAddress sql.NullString
			props     sql.NullString
		)
		err := rows.Scan(
			&e.ID, &e.EventType, &e.EventName, &userID, &sessionID,
			&pageURL, &referrer, &userAgent, &ipAddress,
			&props, &e.Timestamp, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		if userID.Valid {
			uid := userID.Int64
			e.UserID = &uid
		}
		e.SessionID = sessionID.String
		e.PageURL = pageURL.String
		e.Referrer = referrer.String
		e.UserAgent = userAgent.String
		e.IPAddress = ipAddress.String

		if props.Valid && props.String != "" {
			if err := json.Unmarshal([]byte(props.String), &e.Properties); err != nil {
				return nil, fmt.Errorf("failed to decode properties for event %d: %w", e.ID, err)
			}
		}

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	return events, nil
}

// marshalProperties encodes the property bag for the JSON column.
// An empty bag is stored as NULL rather than "{}".
func marshalProperties(props models.Properties) (interface{}, error) {
	if len(props) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("failed to encode properties: %w", err)
	}
	return string(data), nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
