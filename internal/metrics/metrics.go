// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package metrics provides Prometheus instrumentation for the event
// pipeline: ingestion throughput, store latency, queue publication, and
// consumer processing outcomes.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_tracked_total",
			Help: "Total number of analytics events durably stored",
		},
		[]string{"event_type"},
	)

	TrackFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_track_failures_total",
			Help: "Total number of failed track operations",
		},
		[]string{"reason"}, // "validation", "store"
	)

	// Beacon metrics. Beacon endpoints never surface failures to the
	// caller, so this is the only externally visible failure signal.
	BeaconRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_requests_total",
			Help: "Total number of beacon requests by variant",
		},
		[]string{"variant"}, // "full", "simple"
	)

	BeaconErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_errors_total",
			Help: "Total number of beacon requests absorbed internally",
		},
		[]string{"variant", "stage"}, // stage: "parse", "track"
	)

	// Queue publisher metrics
	QueuePublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_events_published_total",
			Help: "Total number of events published to the analytics queue",
		},
	)

	QueuePublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_publish_failures_total",
			Help: "Total number of publish attempts that failed after the inline retry",
		},
	)

	QueueReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_reconnects_total",
			Help: "Total number of publisher reconnect attempts",
		},
	)

	// Consumer metrics
	ConsumerProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_messages_processed_total",
			Help: "Total number of messages processed and acked by event type",
		},
		[]string{"event_type"},
	)

	ConsumerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_messages_failed_total",
			Help: "Total number of messages that failed processing by reason",
		},
		[]string{"reason"}, // "handler_error", "timeout", "decode"
	)

	ConsumerProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consumer_processing_duration_seconds",
			Help:    "Duration of per-message handler execution",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordDBQuery observes a store operation's duration and outcome.
func RecordDBQuery(operation string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
