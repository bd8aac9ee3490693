// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/avolkov/shoplytics/internal/auth"
	"github.com/avolkov/shoplytics/internal/models"
)

// TrackRequest is the payload for the single-event tracking endpoint.
type TrackRequest struct {
	EventType  string                 `json:"event_type" validate:"required,max=128"`
	EventName  string                 `json:"event_name" validate:"required,max=256"`
	UserID     *int64                 `json:"user_id"`
	SessionID  string                 `json:"session_id" validate:"omitempty,max=128"`
	PageURL    string                 `json:"page_url" validate:"omitempty,max=2048"`
	Referrer   string                 `json:"referrer" validate:"omitempty,max=2048"`
	Properties map[string]interface{} `json:"properties"`
	Timestamp  *time.Time             `json:"timestamp"`
}

func (req *TrackRequest) toEvent() models.AnalyticsEvent {
	event := models.AnalyticsEvent{
		EventType:  req.EventType,
		EventName:  req.EventName,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		PageURL:    req.PageURL,
		Referrer:   req.Referrer,
		Properties: models.PropertiesFromAny(req.Properties),
	}
	if req.Timestamp != nil {
		event.Timestamp = *req.Timestamp
	}
	return event
}

// Track handles POST /api/v1/analytics/track.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	event := req.toEvent()
	stored, err := h.service.Track(r.Context(), &event, requestContext(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TRACK_ERROR", "failed to track event", err)
		return
	}

	respondSuccess(w, http.StatusOK, models.TrackResponse{
		Status:  "success",
		Message: "Event tracked successfully",
		EventID: stored.ID,
	}, 0)
}

// BatchTrackRequest is the payload for the batch tracking endpoint.
type BatchTrackRequest struct {
	Events []TrackRequest `json:"events" validate:"required,min=1,max=1000,dive"`
}

// TrackBatch handles POST /api/v1/analytics/track/batch.
// The batch is atomic in the store: one invalid event rejects the
// whole request and nothing is persisted.
func (h *Handler) TrackBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	events := make([]models.AnalyticsEvent, len(req.Events))
	for i := range req.Events {
		events[i] = req.Events[i].toEvent()
	}

	stored, _, err := h.service.TrackBatch(r.Context(), events, requestContext(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TRACK_ERROR", "failed to track batch", err)
		return
	}

	respondSuccess(w, http.StatusOK, models.BatchTrackResponse{
		Status:       "success",
		TrackedCount: len(stored),
		TotalCount:   len(events),
	}, 0)
}

// PageViewRequest is the payload for the page-view shortcut endpoint.
type PageViewRequest struct {
	PageURL   string `json:"page_url" validate:"required,max=2048"`
	UserID    *int64 `json:"user_id"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
	Referrer  string `json:"referrer" validate:"omitempty,max=2048"`
	Title     string `json:"title" validate:"omitempty,max=512"`
}

// PageView handles POST /api/v1/analytics/page-view.
func (h *Handler) PageView(w http.ResponseWriter, r *http.Request) {
	var req PageViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	props := models.Properties{}
	if req.Title != "" {
		props["title"] = models.String(req.Title)
	}
	event := models.AnalyticsEvent{
		EventType:  models.EventTypePageView,
		EventName:  models.EventNamePageViewed,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		PageURL:    req.PageURL,
		Referrer:   req.Referrer,
		Properties: props,
	}
	h.trackShortcut(w, r, &event)
}

// ProductViewRequest is the payload for the product-view shortcut.
type ProductViewRequest struct {
	ProductID   string  `json:"product_id" validate:"required,max=128"`
	ProductName string  `json:"product_name" validate:"omitempty,max=512"`
	Price       float64 `json:"price" validate:"omitempty,gte=0"`
	Category    string  `json:"category" validate:"omitempty,max=256"`
	UserID      *int64  `json:"user_id"`
	SessionID   string  `json:"session_id" validate:"omitempty,max=128"`
	PageURL     string  `json:"page_url" validate:"omitempty,max=2048"`
}

// ProductView handles POST /api/v1/analytics/product-view.
func (h *Handler) ProductView(w http.ResponseWriter, r *http.Request) {
	var req ProductViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	props := models.Properties{
		"product_id": models.String(req.ProductID),
	}
	if req.ProductName != "" {
		props["product_name"] = models.String(req.ProductName)
	}
	if req.Price > 0 {
		props["price"] = models.Number(req.Price)
	}
	if req.Category != "" {
		props["category"] = models.String(req.Category)
	}

	event := models.AnalyticsEvent{
		EventType:  models.EventTypeProductView,
		EventName:  models.EventNameProductViewed,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		PageURL:    req.PageURL,
		Properties: props,
	}
	h.trackShortcut(w, r, &event)
}

// PurchaseRequest is the payload for the purchase shortcut.
type PurchaseRequest struct {
	OrderID   string                   `json:"order_id" validate:"required,max=128"`
	Total     float64                  `json:"total" validate:"required,gt=0"`
	Currency  string                   `json:"currency" validate:"omitempty,len=3"`
	Items     []map[string]interface{} `json:"items" validate:"omitempty,max=500"`
	SessionID string                   `json:"session_id" validate:"omitempty,max=128"`
}

// Purchase handles POST /api/v1/analytics/purchase. Unlike the other
// tracking endpoints this one requires authentication: the purchase is
// attributed to the authenticated user, never a caller-supplied ID.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "authentication required", nil)
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    apiErr,
		})
		return
	}

	props := models.Properties{
		"order_id": models.String(req.OrderID),
		"total":    models.Number(req.Total),
	}
	if req.Currency != "" {
		props["currency"] = models.String(req.Currency)
	}
	if len(req.Items) > 0 {
		items := make([]models.Value, len(req.Items))
		for i, item := range req.Items {
			items[i] = models.FromAny(map[string]interface{}(item))
		}
		props["items"] = models.Array(items...)
	}

	event := models.AnalyticsEvent{
		EventType:  models.EventTypePurchase,
		EventName:  models.EventNameOrderPlaced,
		UserID:     &user.ID,
		SessionID:  req.SessionID,
		Properties: props,
	}
	h.trackShortcut(w, r, &event)
}

func (h *Handler) trackShortcut(w http.ResponseWriter, r *http.Request, event *models.AnalyticsEvent) {
	stored, err := h.service.Track(r.Context(), event, requestContext(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TRACK_ERROR", "failed to track event", err)
		return
	}
	respondSuccess(w, http.StatusOK, models.TrackResponse{
		Status:  "success",
		Message: "Event tracked successfully",
		EventID: stored.ID,
	}, 0)
}
