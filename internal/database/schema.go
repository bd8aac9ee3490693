// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates the event table and its indexes.
//
// Identity comes from a sequence rather than per-row UUIDs so event IDs
// are monotonic within one database: readers can use the ID as a stable
// cursor and the order of acceptance is recoverable.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS analytics_events_id_seq START 1`,

		`CREATE TABLE IF NOT EXISTS analytics_events (
			id BIGINT PRIMARY KEY DEFAULT nextval('analytics_events_id_seq'),
			event_type TEXT NOT NULL,
			event_name TEXT NOT NULL,
			user_id BIGINT,
			session_id TEXT,
			page_url TEXT,
			referrer TEXT,
			user_agent TEXT,
			ip_address TEXT,
			properties JSON,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,

		// Covers the listing filters and the summary scans.
		`CREATE INDEX IF NOT EXISTS idx_events_type ON analytics_events (event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user ON analytics_events (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON analytics_events (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type_timestamp ON analytics_events (event_type, timestamp)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}
