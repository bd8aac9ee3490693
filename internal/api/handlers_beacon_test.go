// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/avolkov/shoplytics/internal/models"
)

func sendBeacon(t *testing.T, router http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBeaconFullVariant(t *testing.T) {
	t.Run("json body with defaults applied", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodPost, "/api/v1/beacon/",
			"application/json", `{"page_url": "https://shop.example/cart"}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(svc.tracked) != 1 {
			t.Fatalf("tracked %d events", len(svc.tracked))
		}
		got := svc.tracked[0]
		if got.EventType != models.EventTypeBeacon || got.EventName != models.EventNamePageUnload {
			t.Errorf("identity = %s/%s", got.EventType, got.EventName)
		}
		if got.PageURL != "https://shop.example/cart" {
			t.Errorf("page_url = %q", got.PageURL)
		}
		if b, _ := got.Properties["beacon"].AsBool(); !b {
			t.Error("beacon marker missing")
		}
		if b, _ := got.Properties["page_unload"].AsBool(); !b {
			t.Error("page_unload marker missing")
		}
	})

	t.Run("caller identity survives, markers overwrite own keys only", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodPost, "/api/v1/beacon/",
			"application/json", `{
				"event_type": "purchase",
				"event_name": "order_placed",
				"properties": {"beacon": false, "order_id": "ord-5"}
			}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		got := svc.tracked[0]
		if got.EventType != "purchase" || got.EventName != "order_placed" {
			t.Errorf("identity = %s/%s", got.EventType, got.EventName)
		}
		if b, _ := got.Properties["beacon"].AsBool(); !b {
			t.Error("marker did not overwrite caller beacon key")
		}
		if s, _ := got.Properties["order_id"].AsString(); s != "ord-5" {
			t.Errorf("order_id = %q, caller property clobbered", s)
		}
	})

	t.Run("text/plain treated as JSON", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodPost, "/api/v1/beacon/",
			"text/plain", `{"event_name": "tab_hidden"}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(svc.tracked) != 1 || svc.tracked[0].EventName != "tab_hidden" {
			t.Errorf("tracked = %+v", svc.tracked)
		}
	})

	t.Run("form encoded body", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		form := url.Values{}
		form.Set("event_name", "checkout_abandoned")
		form.Set("page_url", "https://shop.example/checkout")
		form.Set("user_id", "42")
		rec := sendBeacon(t, router, http.MethodPost, "/api/v1/beacon/",
			"application/x-www-form-urlencoded", form.Encode())
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		got := svc.tracked[0]
		if got.EventName != "checkout_abandoned" {
			t.Errorf("event_name = %q", got.EventName)
		}
		if got.UserID == nil || *got.UserID != 42 {
			t.Errorf("user_id = %v", got.UserID)
		}
	})

	t.Run("malformed JSON gives 204 and no event", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodPost, "/api/v1/beacon/",
			"application/json", `{not json`)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
		if len(svc.tracked) != 0 {
			t.Errorf("tracked %d events from malformed payload", len(svc.tracked))
		}
	})

	t.Run("track failure still gives 204", func(t *testing.T) {
		svc := &fakeService{trackErr: errFakeFailure}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodPost, "/api/v1/beacon/",
			"application/json", `{"event_name": "x"}`)
		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", rec.Code)
		}
	})
}

func TestBeaconSimpleVariant(t *testing.T) {
	t.Run("query params win when type is set", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodGet,
			"/api/v1/beacon/simple?type=product_view&name=glance&url=https%3A%2F%2Fshop.example%2Fp%2F9&uid=7",
			"", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		got := svc.tracked[0]
		if got.EventType != "product_view" || got.EventName != "glance" {
			t.Errorf("identity = %s/%s", got.EventType, got.EventName)
		}
		if got.PageURL != "https://shop.example/p/9" {
			t.Errorf("page_url = %q", got.PageURL)
		}
		if got.UserID == nil || *got.UserID != 7 {
			t.Errorf("user_id = %v", got.UserID)
		}
		if b, _ := got.Properties["simple"].AsBool(); !b {
			t.Error("simple marker missing")
		}
	})

	t.Run("query params without type are still honored", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodGet,
			"/api/v1/beacon/simple?url=https%3A%2F%2Fshop.example%2Fhome&uid=7",
			"", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		got := svc.tracked[0]
		if got.EventType != models.EventTypePageView {
			t.Errorf("event_type = %q, want default", got.EventType)
		}
		if got.PageURL != "https://shop.example/home" {
			t.Errorf("page_url = %q", got.PageURL)
		}
		if got.UserID == nil || *got.UserID != 7 {
			t.Errorf("user_id = %v", got.UserID)
		}
	})

	t.Run("short keys read from JSON body when no query params", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodPost, "/api/v1/beacon/simple",
			"application/json", `{"name": "scrolled", "url": "https://shop.example/blog"}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		got := svc.tracked[0]
		if got.EventType != models.EventTypePageView {
			t.Errorf("event_type = %q, want default", got.EventType)
		}
		if got.EventName != "scrolled" || got.PageURL != "https://shop.example/blog" {
			t.Errorf("event = %+v", got)
		}
	})

	t.Run("empty body falls back to all defaults", func(t *testing.T) {
		svc := &fakeService{}
		router := newTestHandler(t, svc).NewRouter()

		rec := sendBeacon(t, router, http.MethodPost, "/api/v1/beacon/simple",
			"application/x-www-form-urlencoded", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		got := svc.tracked[0]
		if got.EventType != models.EventTypePageView || got.EventName != models.EventNamePageUnload {
			t.Errorf("identity = %s/%s", got.EventType, got.EventName)
		}
	})
}
