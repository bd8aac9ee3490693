// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package analytics

import (
	"context"
	"fmt"

	"github.com/avolkov/shoplytics/internal/logging"
	"github.com/avolkov/shoplytics/internal/metrics"
	"github.com/avolkov/shoplytics/internal/models"
)

// EventStore is the durable store dependency of the service.
type EventStore interface {
	AppendEvent(ctx context.Context, event *models.AnalyticsEvent) (*models.StoredEvent, error)
	AppendBatch(ctx context.Context, events []models.AnalyticsEvent) ([]models.StoredEvent, error)
	QueryEvents(ctx context.Context, filter models.EventFilter) ([]models.StoredEvent, error)
	UserEvents(ctx context.Context, userID int64, limit int) ([]models.StoredEvent, error)
	Summary(ctx context.Context, days int) (*models.SummaryReport, error)
	PopularProducts(ctx context.Context, days, limit int) ([]models.PopularProduct, error)
}

// EventPublisher is the queue dependency of the service.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *models.AnalyticsEvent) error
	PublishEvents(ctx context.Context, topic string, events []models.AnalyticsEvent) int
}

// Config holds service settings.
type Config struct {
	// Enabled gates queue publication. Events are always stored.
	Enabled bool

	// Topic is the queue subject events are published to.
	Topic string
}

// Service implements the ingestion pipeline: enrich, store, publish.
type Service struct {
	store     EventStore
	publisher EventPublisher
	cfg       Config
}

// NewService creates the analytics service. The publisher may be nil
// when queue publication is disabled.
func NewService(store EventStore, publisher EventPublisher, cfg Config) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Track enriches, validates, stores, and publishes one event.
//
// Storage is the commit point: once AppendEvent succeeds the event is
// accepted and Track reports success even if the subsequent publish
// fails. Publication is retried by redelivery mechanics downstream, not
// by the caller.
func (s *Service) Track(ctx context.Context, event *models.AnalyticsEvent, reqCtx *models.RequestContext) (*models.StoredEvent, error) {
	Enrich(event, reqCtx)

	if err := event.Validate(); err != nil {
		metrics.TrackFailures.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	stored, err := s.store.AppendEvent(ctx, event)
	if err != nil {
		metrics.TrackFailures.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("store event: %w", err)
	}
	metrics.EventsTracked.WithLabelValues(event.EventType).Inc()

	if s.publishEnabled() {
		if err := s.publisher.PublishEvent(ctx, s.cfg.Topic, event); err != nil {
			logging.Warn().
				Err(err).
				Str("event_type", event.EventType).
				Int64("event_id", stored.ID).
				Msg("Event stored but not published, delivery deferred")
		}
	}

	return stored, nil
}

// TrackBatch enriches and stores a batch atomically, then publishes
// best-effort. Returns the stored events and how many were published.
func (s *Service) TrackBatch(ctx context.Context, events []models.AnalyticsEvent, reqCtx *models.RequestContext) ([]models.StoredEvent, int, error) {
	for i := range events {
		Enrich(&events[i], reqCtx)
		if err := events[i].Validate(); err != nil {
			metrics.TrackFailures.WithLabelValues("validation").Inc()
			return nil, 0, fmt.Errorf("invalid event %d of %d: %w", i+1, len(events), err)
		}
	}

	stored, err := s.store.AppendBatch(ctx, events)
	if err != nil {
		metrics.TrackFailures.WithLabelValues("store").Inc()
		return nil, 0, fmt.Errorf("store batch: %w", err)
	}
	for i := range events {
		metrics.EventsTracked.WithLabelValues(events[i].EventType).Inc()
	}

	published := 0
	if s.publishEnabled() {
		published = s.publisher.PublishEvents(ctx, s.cfg.Topic, events)
		if published < len(events) {
			logging.Warn().
				Int("tracked", len(events)).
				Int("published", published).
				Msg("Batch stored with partial publication, delivery deferred")
		}
	}

	return stored, published, nil
}

func (s *Service) publishEnabled() bool {
	return s.cfg.Enabled && s.publisher != nil
}

// Events returns stored events matching the filter.
func (s *Service) Events(ctx context.Context, filter models.EventFilter) ([]models.StoredEvent, error) {
	return s.store.QueryEvents(ctx, filter)
}

// UserEvents returns the most recent events for one user.
func (s *Service) UserEvents(ctx context.Context, userID int64, limit int) ([]models.StoredEvent, error) {
	return s.store.UserEvents(ctx, userID, limit)
}

// Summary aggregates stored events over a trailing window of days.
func (s *Service) Summary(ctx context.Context, days int) (*models.SummaryReport, error) {
	return s.store.Summary(ctx, days)
}

// PopularProducts ranks products by view count over the trailing window.
func (s *Service) PopularProducts(ctx context.Context, days, limit int) ([]models.PopularProduct, error) {
	return s.store.PopularProducts(ctx, days, limit)
}
