// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/avolkov/shoplytics/internal/logging"
	"github.com/avolkov/shoplytics/internal/models"
	"github.com/avolkov/shoplytics/internal/validation"
)

// sanitizeLogValue removes control characters from strings to prevent
// log injection from attacker-controlled values.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with the standard envelope.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in the success envelope.
func respondSuccess(w http.ResponseWriter, status int, data interface{}, queryTime time.Duration) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: queryTime.Milliseconds(),
		},
	})
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Data:   nil,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// validateRequest validates a struct and converts failures to the API
// error format.
func validateRequest(v interface{}) *models.APIError {
	structErr := validation.ValidateStruct(v)
	if structErr == nil {
		return nil
	}

	details := make(map[string]interface{}, len(structErr.Fields()))
	for _, f := range structErr.Fields() {
		details[f.Field] = f.Message
	}
	return &models.APIError{
		Code:    "VALIDATION_ERROR",
		Message: structErr.Error(),
		Details: details,
	}
}

// getIntParam extracts an integer query parameter with a default.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	return parseIntParam(r.URL.Query().Get(key), defaultValue)
}

func parseIntParam(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// clampPageSize bounds a requested page size to the configured maximum.
func (h *Handler) clampPageSize(requested int) int {
	if requested <= 0 {
		return h.cfg.API.DefaultPageSize
	}
	if requested > h.cfg.API.MaxPageSize {
		return h.cfg.API.MaxPageSize
	}
	return requested
}

// requestContext extracts transport-derived request fields. The chi
// RealIP middleware rewrites RemoteAddr from X-Forwarded-For upstream.
func requestContext(r *http.Request) *models.RequestContext {
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx > 0 && !strings.HasSuffix(ip, "]") {
		ip = ip[:idx]
	}
	ip = strings.Trim(ip, "[]")

	return &models.RequestContext{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}
