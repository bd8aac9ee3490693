// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkov/shoplytics/internal/auth"
	"github.com/avolkov/shoplytics/internal/config"
	"github.com/avolkov/shoplytics/internal/models"
)

// fakeService records calls for handler tests.
type fakeService struct {
	tracked    []models.AnalyticsEvent
	reqCtx     *models.RequestContext
	trackErr   error
	events     []models.StoredEvent
	summary    *models.SummaryReport
	products   []models.PopularProduct
	nextID     int64
	queryErr   error
	lastFilter models.EventFilter
}

func (f *fakeService) Track(ctx context.Context, event *models.AnalyticsEvent, reqCtx *models.RequestContext) (*models.StoredEvent, error) {
	if f.trackErr != nil {
		return nil, f.trackErr
	}
	f.nextID++
	f.tracked = append(f.tracked, *event)
	f.reqCtx = reqCtx
	return &models.StoredEvent{
		ID:             f.nextID,
		AnalyticsEvent: *event,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (f *fakeService) TrackBatch(ctx context.Context, events []models.AnalyticsEvent, reqCtx *models.RequestContext) ([]models.StoredEvent, int, error) {
	if f.trackErr != nil {
		return nil, 0, f.trackErr
	}
	stored := make([]models.StoredEvent, 0, len(events))
	for i := range events {
		rec, _ := f.Track(ctx, &events[i], reqCtx)
		stored = append(stored, *rec)
	}
	return stored, len(stored), nil
}

func (f *fakeService) Events(ctx context.Context, filter models.EventFilter) ([]models.StoredEvent, error) {
	f.lastFilter = filter
	return f.events, f.queryErr
}

func (f *fakeService) UserEvents(ctx context.Context, userID int64, limit int) ([]models.StoredEvent, error) {
	return f.events, f.queryErr
}

func (f *fakeService) Summary(ctx context.Context, days int) (*models.SummaryReport, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.summary == nil {
		return &models.SummaryReport{}, nil
	}
	return f.summary, nil
}

func (f *fakeService) PopularProducts(ctx context.Context, days, limit int) ([]models.PopularProduct, error) {
	return f.products, f.queryErr
}

var errFakeFailure = errors.New("backend failure")

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			DefaultPageSize: 100,
			MaxPageSize:     1000,
		},
		Security: config.SecurityConfig{
			JWTSecret:       "test-secret-at-least-32-characters-long",
			SessionTimeout:  time.Hour,
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}
}

// newTestHandler wires a Handler with a fake service and no auth.
func newTestHandler(t *testing.T, svc *fakeService) *Handler {
	t.Helper()
	return NewHandler(svc, nil, nil, testConfig(), "test")
}

// newAuthedHandler wires a Handler with a real JWT manager.
func newAuthedHandler(t *testing.T, svc *fakeService) (*Handler, *auth.JWTManager) {
	t.Helper()
	cfg := testConfig()
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return NewHandler(svc, nil, jwtManager, cfg, "test"), jwtManager
}
