// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package consumer

import (
	"context"

	"github.com/avolkov/shoplytics/internal/logging"
	"github.com/avolkov/shoplytics/internal/models"
)

// Handler processes one decoded analytics event. Returning an error
// nacks the message for redelivery, so handlers must be idempotent:
// at-least-once delivery means the same event may arrive again.
type Handler func(ctx context.Context, event *models.AnalyticsEvent) error

// PurchaseHandler processes purchase events. Downstream revenue
// aggregation hangs off this handler.
func PurchaseHandler(ctx context.Context, event *models.AnalyticsEvent) error {
	orderID, _ := event.Properties["order_id"].AsString()
	total, _ := event.Properties["total"].AsFloat()

	logging.Info().
		Str("order_id", orderID).
		Float64("total", total).
		Msg("Purchase event processed")
	return nil
}

// ProductViewHandler processes product view events, feeding product
// popularity signals.
func ProductViewHandler(ctx context.Context, event *models.AnalyticsEvent) error {
	productID, _ := event.Properties["product_id"].AsString()
	productName, _ := event.Properties["product_name"].AsString()

	logging.Info().
		Str("product_id", productID).
		Str("product_name", productName).
		Msg("Product view event processed")
	return nil
}

// PageViewHandler processes page view events.
func PageViewHandler(ctx context.Context, event *models.AnalyticsEvent) error {
	logging.Info().
		Str("page_url", event.PageURL).
		Msg("Page view event processed")
	return nil
}

// GenericHandler processes events with no dedicated handler.
func GenericHandler(ctx context.Context, event *models.AnalyticsEvent) error {
	logging.Info().
		Str("event_type", event.EventType).
		Str("event_name", event.EventName).
		Msg("Generic event processed")
	return nil
}

// Dispatcher routes decoded events to per-type handlers, falling back
// to a catch-all for unknown types.
type Dispatcher struct {
	handlers map[string]Handler
	fallback Handler
}

// NewDispatcher creates a dispatcher with the standard e-commerce
// handler set registered.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		fallback: GenericHandler,
	}
	d.Register(models.EventTypePurchase, PurchaseHandler)
	d.Register(models.EventTypeProductView, ProductViewHandler)
	d.Register(models.EventTypePageView, PageViewHandler)
	return d
}

// Register sets the handler for an event type, replacing any existing one.
func (d *Dispatcher) Register(eventType string, handler Handler) {
	d.handlers[eventType] = handler
}

// SetFallback replaces the catch-all handler.
func (d *Dispatcher) SetFallback(handler Handler) {
	d.fallback = handler
}

// Dispatch routes the event to its handler.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.AnalyticsEvent) error {
	if handler, ok := d.handlers[event.EventType]; ok {
		return handler(ctx, event)
	}
	return d.fallback(ctx, event)
}
