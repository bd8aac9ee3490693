// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package models

import "time"

// APIResponse is the envelope wrapping every JSON response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response observability fields. QueryTimeMS is the
// store query execution time, 0 for endpoints that touch no store.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error payload.
//
// Common codes: VALIDATION_ERROR, DATABASE_ERROR, AUTHENTICATION_ERROR,
// AUTHORIZATION_ERROR, NOT_FOUND, RATE_LIMITED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TrackResponse acknowledges a single tracked event.
type TrackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	EventID int64  `json:"event_id,omitempty"`
}

// BatchTrackResponse acknowledges a batch of tracked events. The batch
// is atomic in the store, so TrackedCount equals TotalCount on success;
// queue publication is best-effort and reported via metrics, not here.
type BatchTrackResponse struct {
	Status       string `json:"status"`
	TrackedCount int    `json:"tracked_count"`
	TotalCount   int    `json:"total_count"`
}

// EventsPage is a paginated slice of stored events.
type EventsPage struct {
	Events []StoredEvent `json:"events"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// HealthStatus reports component liveness for the health endpoints.
type HealthStatus struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}
