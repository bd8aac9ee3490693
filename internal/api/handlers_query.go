// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avolkov/shoplytics/internal/auth"
	"github.com/avolkov/shoplytics/internal/models"
)

// Events handles GET /api/v1/analytics/events (admin only).
// Query parameters: event_type, user_id, start, end (RFC3339),
// limit, offset.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	filter := models.EventFilter{
		EventType: r.URL.Query().Get("event_type"),
		Limit:     h.clampPageSize(getIntParam(r, "limit", h.cfg.API.DefaultPageSize)),
		Offset:    getIntParam(r, "offset", 0),
	}

	if uid := r.URL.Query().Get("user_id"); uid != "" {
		parsed, err := strconv.ParseInt(uid, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user_id must be an integer", nil)
			return
		}
		filter.UserID = &parsed
	}
	for _, p := range []struct {
		key  string
		dest **time.Time
	}{
		{"start", &filter.Start},
		{"end", &filter.End},
	} {
		if raw := r.URL.Query().Get(p.key); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", p.key+" must be RFC3339", nil)
				return
			}
			*p.dest = &parsed
		}
	}

	start := time.Now()
	events, err := h.service.Events(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to query events", err)
		return
	}

	respondSuccess(w, http.StatusOK, models.EventsPage{
		Events: events,
		Count:  len(events),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, time.Since(start))
}

// Summary handles GET /api/v1/analytics/summary (admin only).
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	days := getIntParam(r, "days", 7)
	if days < 1 || days > 365 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "days must be between 1 and 365", nil)
		return
	}

	start := time.Now()
	report, err := h.service.Summary(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to build summary", err)
		return
	}
	respondSuccess(w, http.StatusOK, report, time.Since(start))
}

// UserEventsEndpoint handles GET /api/v1/analytics/user/{userID}/events.
// Admins may read any user's history; other callers only their own.
func (h *Handler) UserEventsEndpoint(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user ID must be an integer", nil)
		return
	}

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "authentication required", nil)
		return
	}
	if !user.IsAdmin && user.ID != userID {
		respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", "cannot read another user's events", nil)
		return
	}

	limit := h.clampPageSize(getIntParam(r, "limit", h.cfg.API.DefaultPageSize))

	start := time.Now()
	events, err := h.service.UserEvents(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to query user events", err)
		return
	}

	respondSuccess(w, http.StatusOK, models.EventsPage{
		Events: events,
		Count:  len(events),
		Limit:  limit,
	}, time.Since(start))
}

// PopularProducts handles GET /api/v1/analytics/popular-products (admin only).
func (h *Handler) PopularProducts(w http.ResponseWriter, r *http.Request) {
	days := getIntParam(r, "days", 7)
	if days < 1 || days > 365 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "days must be between 1 and 365", nil)
		return
	}
	limit := getIntParam(r, "limit", 10)
	if limit < 1 || limit > 100 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 100", nil)
		return
	}

	start := time.Now()
	products, err := h.service.PopularProducts(r.Context(), days, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to query popular products", err)
		return
	}
	respondSuccess(w, http.StatusOK, products, time.Since(start))
}
