// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/shoplytics/internal/models"
)

func TestEnrichRequestContextIsAuthoritative(t *testing.T) {
	event := models.AnalyticsEvent{
		EventType: models.EventTypePageView,
		EventName: models.EventNamePageViewed,
		IPAddress: "spoofed-by-client",
		UserAgent: "client-claimed-agent",
		Referrer:  "client-claimed-referrer",
		PageURL:   "client-claimed-url",
	}
	reqCtx := &models.RequestContext{
		IPAddress: "203.0.113.9",
		UserAgent: "Mozilla/5.0",
		Referrer:  "https://search.example/",
		PageURL:   "https://shop.example/sale",
	}

	Enrich(&event, reqCtx)

	if event.IPAddress != "203.0.113.9" {
		t.Errorf("ip_address = %q", event.IPAddress)
	}
	if event.UserAgent != "Mozilla/5.0" {
		t.Errorf("user_agent = %q", event.UserAgent)
	}
	if event.Referrer != "https://search.example/" {
		t.Errorf("referrer = %q", event.Referrer)
	}
	if event.PageURL != "https://shop.example/sale" {
		t.Errorf("page_url = %q", event.PageURL)
	}
}

func TestEnrichKeepsClientFieldsWhenContextEmpty(t *testing.T) {
	event := models.AnalyticsEvent{
		EventType: models.EventTypePageView,
		EventName: models.EventNamePageViewed,
		PageURL:   "https://shop.example/from-client",
	}

	Enrich(&event, &models.RequestContext{})

	if event.PageURL != "https://shop.example/from-client" {
		t.Errorf("page_url = %q", event.PageURL)
	}
}

func TestEnrichGeneratesSessionID(t *testing.T) {
	t.Run("missing session gets a UUID", func(t *testing.T) {
		event := models.AnalyticsEvent{EventType: models.EventTypePageView, EventName: "x"}
		Enrich(&event, nil)
		if _, err := uuid.Parse(event.SessionID); err != nil {
			t.Errorf("session_id %q is not a UUID: %v", event.SessionID, err)
		}
	})

	t.Run("existing session is preserved", func(t *testing.T) {
		event := models.AnalyticsEvent{
			EventType: models.EventTypePageView,
			EventName: "x",
			SessionID: "existing-session",
		}
		Enrich(&event, nil)
		if event.SessionID != "existing-session" {
			t.Errorf("session_id = %q", event.SessionID)
		}
	})
}

func TestEnrichTimestamps(t *testing.T) {
	t.Run("zero timestamp is stamped with server time", func(t *testing.T) {
		before := time.Now().UTC()
		event := models.AnalyticsEvent{EventType: models.EventTypePageView, EventName: "x"}
		Enrich(&event, nil)
		after := time.Now().UTC()

		if event.Timestamp.Before(before) || event.Timestamp.After(after) {
			t.Errorf("timestamp %s outside [%s, %s]", event.Timestamp, before, after)
		}
	})

	t.Run("client timestamp is preserved in UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*3600)
		ts := time.Date(2026, 6, 1, 14, 0, 0, 0, loc)
		event := models.AnalyticsEvent{
			EventType: models.EventTypePageView,
			EventName: "x",
			Timestamp: ts,
		}
		Enrich(&event, nil)

		if event.Timestamp.Location() != time.UTC {
			t.Errorf("timestamp not UTC: %s", event.Timestamp.Location())
		}
		if !event.Timestamp.Equal(ts) {
			t.Errorf("timestamp changed: %s != %s", event.Timestamp, ts)
		}
	})
}
