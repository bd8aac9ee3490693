// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package api provides the HTTP surface: tracking endpoints, beacon
// adapters, reporting queries, and health checks, routed with chi.
package api

import (
	"context"
	"time"

	"github.com/avolkov/shoplytics/internal/auth"
	"github.com/avolkov/shoplytics/internal/config"
	"github.com/avolkov/shoplytics/internal/models"
)

// Service is the analytics pipeline dependency of the handlers.
type Service interface {
	Track(ctx context.Context, event *models.AnalyticsEvent, reqCtx *models.RequestContext) (*models.StoredEvent, error)
	TrackBatch(ctx context.Context, events []models.AnalyticsEvent, reqCtx *models.RequestContext) ([]models.StoredEvent, int, error)
	Events(ctx context.Context, filter models.EventFilter) ([]models.StoredEvent, error)
	UserEvents(ctx context.Context, userID int64, limit int) ([]models.StoredEvent, error)
	Summary(ctx context.Context, days int) (*models.SummaryReport, error)
	PopularProducts(ctx context.Context, days, limit int) ([]models.PopularProduct, error)
}

// Pinger reports component liveness for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	service    Service
	db         Pinger
	jwtManager *auth.JWTManager
	cfg        *config.Config
	startTime  time.Time
	version    string
}

// NewHandler creates the API handler. jwtManager may be nil when
// authentication is disabled (development mode).
func NewHandler(service Service, db Pinger, jwtManager *auth.JWTManager, cfg *config.Config, version string) *Handler {
	return &Handler{
		service:    service,
		db:         db,
		jwtManager: jwtManager,
		cfg:        cfg,
		startTime:  time.Now(),
		version:    version,
	}
}
