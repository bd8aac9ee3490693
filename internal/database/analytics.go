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

	"github.com/avolkov/shoplytics/internal/metrics"
	"github.com/avolkov/shoplytics/internal/models"
)

// topPagesLimit bounds the top_pages section of the summary report.
const topPagesLimit = 10

// Summary aggregates stored events over the trailing window of the
// given number of days.
func (db *DB) Summary(ctx context.Context, days int) (*models.SummaryReport, error) {
	start := time.Now()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	report := &models.SummaryReport{
		EventTypes: make(map[string]int64),
		TopPages:   make(map[string]int64),
		TimePeriod: fmt.Sprintf("%d days", days),
	}

	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT user_id)
		FROM analytics_events
		WHERE timestamp >= ?`, since,
	).Scan(&report.TotalEvents, &report.UniqueUsers)
	if err != nil {
		metrics.RecordDBQuery("summary", start, err)
		return nil, fmt.Errorf("failed to query summary totals: %w", err)
	}

	if err := db.summaryEventTypes(ctx, since, report); err != nil {
		metrics.RecordDBQuery("summary", start, err)
		return nil, err
	}
	if err := db.summaryTopPages(ctx, since, report); err != nil {
		metrics.RecordDBQuery("summary", start, err)
		return nil, err
	}

	metrics.RecordDBQuery("summary", start, nil)
	return report, nil
}

func (db *DB) summaryEventTypes(ctx context.Context, since time.Time, report *models.SummaryReport) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT event_type, COUNT(*) AS cnt
		FROM analytics_events
		WHERE timestamp >= ?
		GROUP BY event_type
		ORDER BY cnt DESC, event_type ASC`, since)
	if err != nil {
		return fmt.Errorf("failed to query event type counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return fmt.Errorf("failed to scan event type row: %w", err)
		}
		report.EventTypes[eventType] = count
	}
	return rows.Err()
}

// summaryTopPages fills the top_pages section. Pages with equal counts
// are ranked by URL ascending so repeated reports over unchanged data
// select the same pages.
func (db *DB) summaryTopPages(ctx context.Context, since time.Time, report *models.SummaryReport) error {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT page_url, COUNT(*) AS cnt
		FROM analytics_events
		WHERE timestamp >= ? AND page_url IS NOT NULL AND page_url != ''
		GROUP BY page_url
		ORDER BY cnt DESC, page_url ASC
		LIMIT ?`, since, topPagesLimit)
	if err != nil {
		return fmt.Errorf("failed to query top pages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pageURL string
		var count int64
		if err := rows.Scan(&pageURL, &count); err != nil {
			return fmt.Errorf("failed to scan top page row: %w", err)
		}
		report.TopPages[pageURL] = count
	}
	return rows.Err()
}

// PopularProducts ranks products by view count over product_view
// events in the trailing window of the given number of days. Product
// identity comes from the product_id property; events without one are
// excluded. Ties rank by product ID ascending.
func (db *DB) PopularProducts(ctx context.Context, days, limit int) ([]models.PopularProduct, error) {
	start := time.Now()
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 10
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			json_extract_string(properties, '$.product_id') AS product_id,
			MIN(json_extract_string(properties, '$.product_name')) AS product_name,
			COUNT(*) AS view_count
		FROM analytics_events
		WHERE event_type = ?
		  AND timestamp >= ?
		  AND json_extract_string(properties, '$.product_id') IS NOT NULL
		GROUP BY product_id
		ORDER BY view_count DESC, product_id ASC
		LIMIT ?`, models.EventTypeProductView, since, limit)
	metrics.RecordDBQuery("popular_products", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular products: %w", err)
	}
	defer rows.Close()

	products := make([]models.PopularProduct, 0, limit)
	for rows.Next() {
		var p models.PopularProduct
		var name sql.NullString
		if err := rows.Scan(&p.ProductID, &name, &p.ViewCount); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		p.ProductName = name.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product rows: %w", err)
	}
	return products, nil
}
