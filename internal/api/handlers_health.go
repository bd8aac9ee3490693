// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/avolkov/shoplytics/internal/models"
)

// HealthLive handles GET /api/v1/health/live. Liveness only: the
// process is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, models.HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}, 0)
}

// HealthReady handles GET /api/v1/health/ready. Readiness includes the
// durable store: the service cannot accept events without it.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{}
	status := "ok"
	httpStatus := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			components["database"] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			components["database"] = "ok"
		}
	}

	respondJSON(w, httpStatus, &models.APIResponse{
		Status: "success",
		Data: models.HealthStatus{
			Status:     status,
			Version:    h.version,
			Components: components,
			Timestamp:  time.Now().UTC(),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
