// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package analytics coordinates the ingestion pipeline: events are
// enriched, durably stored, and then published to the queue best-effort.
package analytics

import (
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/shoplytics/internal/models"
)

// Enrich normalizes an event in place before storage.
//
// Transport-derived request fields are authoritative: when the HTTP
// layer knows the client IP or user agent, those overwrite whatever the
// client payload claimed. A missing session ID gets a fresh UUID so
// every stored event is session-attributable, and a zero timestamp is
// stamped with the server's UTC clock.
func Enrich(event *models.AnalyticsEvent, reqCtx *models.RequestContext) {
	if reqCtx != nil {
		if reqCtx.IPAddress != "" {
			event.IPAddress = reqCtx.IPAddress
		}
		if reqCtx.UserAgent != "" {
			event.UserAgent = reqCtx.UserAgent
		}
		if reqCtx.Referrer != "" {
			event.Referrer = reqCtx.Referrer
		}
		if reqCtx.PageURL != "" {
			event.PageURL = reqCtx.PageURL
		}
	}

	if event.SessionID == "" {
		event.SessionID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	} else {
		event.Timestamp = event.Timestamp.UTC()
	}
}
