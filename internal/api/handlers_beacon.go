// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/avolkov/shoplytics/internal/logging"
	"github.com/avolkov/shoplytics/internal/metrics"
	"github.com/avolkov/shoplytics/internal/models"
)

// maxBeaconBody caps how much of a beacon payload is read.
const maxBeaconBody = 64 * 1024

// BeaconDefaults configures one beacon adapter variant. The two
// shipped variants differ only in their defaulting rules, not logic.
type BeaconDefaults struct {
	// Variant labels metrics and logs: "full" or "simple".
	Variant string

	// EventType and EventName fill in missing identity fields.
	EventType string
	EventName string

	// QueryParamFirst reads the short keys (type, name, url, uid) from
	// the query string before falling back to the body.
	QueryParamFirst bool

	// Markers are merged into caller-supplied properties. Marker keys
	// overwrite caller entries of the same name; all other caller
	// entries pass through untouched.
	Markers models.Properties
}

// FullBeaconDefaults is the full-featured unload-time adapter.
func FullBeaconDefaults() BeaconDefaults {
	return BeaconDefaults{
		Variant:   "full",
		EventType: models.EventTypeBeacon,
		EventName: models.EventNamePageUnload,
		Markers: models.Properties{
			"beacon":      models.Bool(true),
			"page_unload": models.Bool(true),
		},
	}
}

// SimpleBeaconDefaults is the minimal query-string-first adapter.
func SimpleBeaconDefaults() BeaconDefaults {
	return BeaconDefaults{
		Variant:         "simple",
		EventType:       models.EventTypePageView,
		EventName:       models.EventNamePageUnload,
		QueryParamFirst: true,
		Markers: models.Properties{
			"beacon": models.Bool(true),
			"simple": models.Bool(true),
		},
	}
}

// Beacon returns a handler for navigator.sendBeacon-style ingestion.
//
// The response is always 204 No Content: the sending page is usually
// unloading and cannot observe or react to a failure, so every internal
// error is absorbed, logged, and counted instead of surfaced. A
// malformed payload produces no stored event at all, never a partial
// record.
func (h *Handler) Beacon(defaults BeaconDefaults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.BeaconRequests.WithLabelValues(defaults.Variant).Inc()

		event, err := h.buildBeaconEvent(r, defaults)
		if err != nil {
			metrics.BeaconErrors.WithLabelValues(defaults.Variant, "parse").Inc()
			logging.Warn().
				Err(err).
				Str("variant", defaults.Variant).
				Msg("Beacon payload discarded")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if _, err := h.service.Track(r.Context(), event, requestContext(r)); err != nil {
			metrics.BeaconErrors.WithLabelValues(defaults.Variant, "track").Inc()
			logging.Warn().
				Err(err).
				Str("variant", defaults.Variant).
				Str("event_name", sanitizeLogValue(event.EventName)).
				Msg("Beacon event not tracked")
		} else {
			logging.Info().
				Str("variant", defaults.Variant).
				Str("event_name", sanitizeLogValue(event.EventName)).
				Msg("Beacon event tracked")
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// beaconPayload is the loosely-typed shape shared by all encodings.
type beaconPayload struct {
	EventType  string
	EventName  string
	UserID     *int64
	SessionID  string
	PageURL    string
	Properties models.Properties
}

func (h *Handler) buildBeaconEvent(r *http.Request, defaults BeaconDefaults) (*models.AnalyticsEvent, error) {
	var payload beaconPayload
	var err error

	if defaults.QueryParamFirst && hasBeaconQuery(r) {
		payload = parseBeaconQuery(r)
	} else {
		payload, err = parseBeaconBody(r, defaults.QueryParamFirst)
		if err != nil {
			return nil, err
		}
	}

	if payload.EventType == "" {
		payload.EventType = defaults.EventType
	}
	if payload.EventName == "" {
		payload.EventName = defaults.EventName
	}

	return &models.AnalyticsEvent{
		EventType:  payload.EventType,
		EventName:  payload.EventName,
		UserID:     payload.UserID,
		SessionID:  payload.SessionID,
		PageURL:    payload.PageURL,
		Properties: payload.Properties.WithMarkers(defaults.Markers),
	}, nil
}

// hasBeaconQuery reports whether any short key is present in the query
// string. Each key is optional, so a GET carrying only url or uid still
// selects the query path.
func hasBeaconQuery(r *http.Request) bool {
	q := r.URL.Query()
	for _, key := range []string{"type", "name", "url", "uid"} {
		if q.Get(key) != "" {
			return true
		}
	}
	return false
}

// parseBeaconQuery reads the short keys used by the simple variant.
func parseBeaconQuery(r *http.Request) beaconPayload {
	q := r.URL.Query()
	return beaconPayload{
		EventType: q.Get("type"),
		EventName: q.Get("name"),
		PageURL:   q.Get("url"),
		UserID:    parseOptionalInt64(q.Get("uid")),
	}
}

// parseBeaconBody decodes the payload by content type: JSON for
// application/json and text/plain (sendBeacon's default), URL-encoded
// form otherwise. shortKeys selects the simple variant's field names.
func parseBeaconBody(r *http.Request, shortKeys bool) (beaconPayload, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.Contains(contentType, "application/json") || strings.Contains(contentType, "text/plain") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBeaconBody))
		if err != nil {
			return beaconPayload{}, err
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err != nil {
			return beaconPayload{}, err
		}
		return payloadFromMap(raw, shortKeys), nil
	}

	if err := r.ParseForm(); err != nil {
		return beaconPayload{}, err
	}
	raw := make(map[string]interface{}, len(r.PostForm))
	for k := range r.PostForm {
		raw[k] = r.PostForm.Get(k)
	}
	return payloadFromMap(raw, shortKeys), nil
}

func payloadFromMap(raw map[string]interface{}, shortKeys bool) beaconPayload {
	typeKey, nameKey, urlKey, uidKey := "event_type", "event_name", "page_url", "user_id"
	if shortKeys {
		typeKey, nameKey, urlKey, uidKey = "type", "name", "url", "uid"
	}

	payload := beaconPayload{
		EventType: stringField(raw, typeKey),
		EventName: stringField(raw, nameKey),
		PageURL:   stringField(raw, urlKey),
		SessionID: stringField(raw, "session_id"),
		UserID:    int64Field(raw, uidKey),
	}
	if props, ok := raw["properties"].(map[string]interface{}); ok {
		payload.Properties = models.PropertiesFromAny(props)
	}
	return payload
}

func stringField(raw map[string]interface{}, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

func int64Field(raw map[string]interface{}, key string) *int64 {
	switch v := raw[key].(type) {
	case float64:
		id := int64(v)
		return &id
	case string:
		return parseOptionalInt64(v)
	default:
		return nil
	}
}

func parseOptionalInt64(s string) *int64 {
	if s == "" {
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
