// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package models defines the analytics event model shared by the API,
// the durable store, the queue, and the consumer.
package models

import (
	"fmt"
	"time"
)

// Well-known event types. EventType is free-form; these are the types
// the consumer dispatches on and the ingestion shortcuts emit.
const (
	EventTypePageView    = "page_view"
	EventTypeProductView = "product_view"
	EventTypePurchase    = "purchase"
	EventTypeBeacon      = "beacon"
)

// Well-known event names.
const (
	EventNamePageUnload    = "page_unload"
	EventNamePageViewed    = "page_viewed"
	EventNameProductViewed = "product_viewed"
	EventNameOrderPlaced   = "order_placed"
)

// Field length limits enforced at ingestion.
const (
	MaxEventTypeLen = 128
	MaxEventNameLen = 256
	MaxURLLen       = 2048
	MaxUserAgentLen = 1024
)

// AnalyticsEvent is the canonical event record flowing through the
// pipeline. EventType and EventName are required; everything else is
// optional and filled in by enrichment where the transport knows better.
type AnalyticsEvent struct {
	EventType  string     `json:"event_type"`
	EventName  string     `json:"event_name"`
	UserID     *int64     `json:"user_id,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
	PageURL    string     `json:"page_url,omitempty"`
	Referrer   string     `json:"referrer,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	Properties Properties `json:"properties,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Validate checks the event's required fields and length limits.
func (e *AnalyticsEvent) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if len(e.EventType) > MaxEventTypeLen {
		return fmt.Errorf("event_type exceeds %d characters", MaxEventTypeLen)
	}
	if e.EventName == "" {
		return fmt.Errorf("event_name is required")
	}
	if len(e.EventName) > MaxEventNameLen {
		return fmt.Errorf("event_name exceeds %d characters", MaxEventNameLen)
	}
	if len(e.PageURL) > MaxURLLen {
		return fmt.Errorf("page_url exceeds %d characters", MaxURLLen)
	}
	if len(e.Referrer) > MaxURLLen {
		return fmt.Errorf("referrer exceeds %d characters", MaxURLLen)
	}
	if len(e.UserAgent) > MaxUserAgentLen {
		return fmt.Errorf("user_agent exceeds %d characters", MaxUserAgentLen)
	}
	return nil
}

// StoredEvent is an AnalyticsEvent as persisted by the durable store,
// with its assigned identity and insertion time.
type StoredEvent struct {
	ID int64 `json:"id"`
	AnalyticsEvent
	CreatedAt time.Time `json:"created_at"`
}

// RequestContext carries transport-derived fields captured at the HTTP
// boundary. Enrichment treats these as authoritative: when set, they
// overwrite whatever the client supplied.
type RequestContext struct {
	IPAddress string
	UserAgent string
	Referrer  string
	PageURL   string
}

// EventFilter narrows event queries. Zero values mean "no constraint";
// Limit and Offset paginate the result.
type EventFilter struct {
	EventType string
	UserID    *int64
	Start     *time.Time
	End       *time.Time
	Limit     int
	Offset    int
}

// SummaryReport aggregates stored events over a trailing window.
type SummaryReport struct {
	TotalEvents int64            `json:"total_events"`
	UniqueUsers int64            `json:"unique_users"`
	EventTypes  map[string]int64 `json:"event_types"`
	TopPages    map[string]int64 `json:"top_pages"`
	TimePeriod  string           `json:"time_period"`
}

// PopularProduct is one row of the product-view ranking.
type PopularProduct struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	ViewCount   int64  `json:"view_count"`
}
