// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/avolkov/shoplytics/internal/metrics"
	"github.com/avolkov/shoplytics/internal/models"
)

// fakeSource feeds messages from an in-memory channel.
type fakeSource struct {
	messages chan *message.Message
	subErr   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{messages: make(chan *message.Message, 16)}
}

func (f *fakeSource) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.messages, nil
}

func (f *fakeSource) Close() error { return nil }

func eventMessage(t *testing.T, event *models.AnalyticsEvent) *message.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return message.NewMessage(uuid.NewString(), payload)
}

func waitAcked(t *testing.T, msg *message.Message) {
	t.Helper()
	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		t.Fatal("message nacked, want acked")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ack")
	}
}

func waitNacked(t *testing.T, msg *message.Message) {
	t.Helper()
	select {
	case <-msg.Nacked():
	case <-msg.Acked():
		t.Fatal("message acked, want nacked")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for nack")
	}
}

func startConsumer(t *testing.T, source *fakeSource, dispatcher *Dispatcher) *Consumer {
	t.Helper()
	c, err := New(source, dispatcher, Config{
		Topic:             "analytics.events",
		ProcessingTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(c.Stop)
	return c
}

func TestConsumerAcksProcessedMessage(t *testing.T) {
	source := newFakeSource()

	var handled *models.AnalyticsEvent
	done := make(chan struct{})
	dispatcher := NewDispatcher()
	dispatcher.Register(models.EventTypePurchase, func(ctx context.Context, event *models.AnalyticsEvent) error {
		handled = event
		close(done)
		return nil
	})

	c := startConsumer(t, source, dispatcher)

	msg := eventMessage(t, &models.AnalyticsEvent{
		EventType: models.EventTypePurchase,
		EventName: models.EventNameOrderPlaced,
		Timestamp: time.Now().UTC(),
	})
	source.messages <- msg

	waitAcked(t, msg)
	<-done
	if handled.EventName != models.EventNameOrderPlaced {
		t.Errorf("handled event = %+v", handled)
	}
	if got := c.Stats().MessagesProcessed; got != 1 {
		t.Errorf("processed = %d", got)
	}
}

func TestConsumerNacksHandlerFailure(t *testing.T) {
	source := newFakeSource()

	dispatcher := NewDispatcher()
	dispatcher.Register(models.EventTypePurchase, func(ctx context.Context, event *models.AnalyticsEvent) error {
		return errors.New("downstream unavailable")
	})

	c := startConsumer(t, source, dispatcher)

	msg := eventMessage(t, &models.AnalyticsEvent{
		EventType: models.EventTypePurchase,
		EventName: "x",
		Timestamp: time.Now().UTC(),
	})
	source.messages <- msg

	waitNacked(t, msg)
	if got := c.Stats().MessagesRequeued; got != 1 {
		t.Errorf("requeued = %d", got)
	}
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	source := newFakeSource()
	c := startConsumer(t, source, NewDispatcher())

	msg := message.NewMessage(uuid.NewString(), []byte("{not json"))
	source.messages <- msg

	// Malformed payloads can never succeed on redelivery, so they are
	// acked rather than requeued.
	waitAcked(t, msg)
	if got := c.Stats().ParseErrors; got != 1 {
		t.Errorf("parse errors = %d", got)
	}
	if got := c.Stats().MessagesProcessed; got != 0 {
		t.Errorf("processed = %d", got)
	}
}

func TestConsumerNacksOnTimeout(t *testing.T) {
	source := newFakeSource()

	dispatcher := NewDispatcher()
	dispatcher.Register(models.EventTypePageView, func(ctx context.Context, event *models.AnalyticsEvent) error {
		<-ctx.Done()
		return ctx.Err()
	})

	c, err := New(source, dispatcher, Config{
		Topic:             "analytics.events",
		ProcessingTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(c.Stop)

	msg := eventMessage(t, &models.AnalyticsEvent{
		EventType: models.EventTypePageView,
		EventName: "x",
		Timestamp: time.Now().UTC(),
	})
	source.messages <- msg

	waitNacked(t, msg)
}

func TestConsumerFailureReasons(t *testing.T) {
	t.Run("immediate handler error counts as handler_error", func(t *testing.T) {
		source := newFakeSource()

		dispatcher := NewDispatcher()
		dispatcher.Register(models.EventTypePurchase, func(ctx context.Context, event *models.AnalyticsEvent) error {
			return errors.New("boom")
		})

		startConsumer(t, source, dispatcher)

		handlerErrors := testutil.ToFloat64(metrics.ConsumerFailures.WithLabelValues("handler_error"))
		timeouts := testutil.ToFloat64(metrics.ConsumerFailures.WithLabelValues("timeout"))

		msg := eventMessage(t, &models.AnalyticsEvent{
			EventType: models.EventTypePurchase,
			EventName: "x",
			Timestamp: time.Now().UTC(),
		})
		source.messages <- msg
		waitNacked(t, msg)

		if got := testutil.ToFloat64(metrics.ConsumerFailures.WithLabelValues("handler_error")); got != handlerErrors+1 {
			t.Errorf("handler_error count = %v, want %v", got, handlerErrors+1)
		}
		if got := testutil.ToFloat64(metrics.ConsumerFailures.WithLabelValues("timeout")); got != timeouts {
			t.Errorf("timeout count = %v, want %v", got, timeouts)
		}
	})

	t.Run("expired deadline counts as timeout", func(t *testing.T) {
		source := newFakeSource()

		dispatcher := NewDispatcher()
		dispatcher.Register(models.EventTypePageView, func(ctx context.Context, event *models.AnalyticsEvent) error {
			<-ctx.Done()
			return ctx.Err()
		})

		c, err := New(source, dispatcher, Config{
			Topic:             "analytics.events",
			ProcessingTimeout: 50 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := c.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		t.Cleanup(c.Stop)

		timeouts := testutil.ToFloat64(metrics.ConsumerFailures.WithLabelValues("timeout"))

		msg := eventMessage(t, &models.AnalyticsEvent{
			EventType: models.EventTypePageView,
			EventName: "x",
			Timestamp: time.Now().UTC(),
		})
		source.messages <- msg
		waitNacked(t, msg)

		if got := testutil.ToFloat64(metrics.ConsumerFailures.WithLabelValues("timeout")); got != timeouts+1 {
			t.Errorf("timeout count = %v, want %v", got, timeouts+1)
		}
	})
}

func TestConsumerSurvivesHandlerIgnoringContext(t *testing.T) {
	source := newFakeSource()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	dispatcher := NewDispatcher()
	dispatcher.Register(models.EventTypePageView, func(ctx context.Context, event *models.AnalyticsEvent) error {
		<-block // never selects on ctx.Done()
		return nil
	})
	var handled bool
	dispatcher.Register(models.EventTypePurchase, func(ctx context.Context, event *models.AnalyticsEvent) error {
		handled = true
		return nil
	})

	c, err := New(source, dispatcher, Config{
		Topic:             "analytics.events",
		ProcessingTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(c.Stop)

	stuck := eventMessage(t, &models.AnalyticsEvent{
		EventType: models.EventTypePageView,
		EventName: "x",
		Timestamp: time.Now().UTC(),
	})
	source.messages <- stuck

	// The deadline must force the nack even though the handler never
	// returns.
	waitNacked(t, stuck)

	// And the loop must keep serving subsequent messages.
	next := eventMessage(t, &models.AnalyticsEvent{
		EventType: models.EventTypePurchase,
		EventName: "y",
		Timestamp: time.Now().UTC(),
	})
	source.messages <- next
	waitAcked(t, next)
	if !handled {
		t.Error("subsequent message not handled")
	}
}

func TestConsumerDispatchesUnknownTypeToFallback(t *testing.T) {
	source := newFakeSource()

	var fallbackType string
	done := make(chan struct{})
	dispatcher := NewDispatcher()
	dispatcher.SetFallback(func(ctx context.Context, event *models.AnalyticsEvent) error {
		fallbackType = event.EventType
		close(done)
		return nil
	})

	startConsumer(t, source, dispatcher)

	msg := eventMessage(t, &models.AnalyticsEvent{
		EventType: "wishlist_add",
		EventName: "item_saved",
		Timestamp: time.Now().UTC(),
	})
	source.messages <- msg

	waitAcked(t, msg)
	<-done
	if fallbackType != "wishlist_add" {
		t.Errorf("fallback type = %q", fallbackType)
	}
}

func TestConsumerStartStop(t *testing.T) {
	source := newFakeSource()
	c, err := New(source, NewDispatcher(), DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c.IsRunning() {
		t.Error("IsRunning = false after Start")
	}

	// Second Start is a no-op.
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	c.Stop()
	if c.IsRunning() {
		t.Error("IsRunning = true after Stop")
	}

	// Second Stop is a no-op.
	c.Stop()
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, NewDispatcher(), DefaultConfig()); err == nil {
		t.Error("nil source accepted")
	}
	if _, err := New(newFakeSource(), nil, DefaultConfig()); err == nil {
		t.Error("nil dispatcher accepted")
	}
	if _, err := New(newFakeSource(), NewDispatcher(), Config{ProcessingTimeout: time.Second}); err == nil {
		t.Error("empty topic accepted")
	}
}
