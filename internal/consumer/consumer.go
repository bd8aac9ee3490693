// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package consumer drains the analytics queue and dispatches events to
// per-type handlers.
//
// Delivery is at-least-once with prefetch pinned to 1: the broker hands
// out a single unacknowledged message at a time. A message is acked only
// after its handler returns successfully; handler failures and timeouts
// nack the message for redelivery. Malformed payloads are acked and
// counted, since redelivering them can never succeed.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/avolkov/shoplytics/internal/eventqueue"
	"github.com/avolkov/shoplytics/internal/logging"
	"github.com/avolkov/shoplytics/internal/metrics"
)

// MessageSource abstracts the queue subscription so tests can feed
// messages without a broker.
type MessageSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// Config holds consumer runtime settings.
type Config struct {
	// Topic is the subject to subscribe to.
	Topic string

	// ProcessingTimeout bounds a single handler invocation. On expiry
	// the message is nacked for redelivery.
	ProcessingTimeout time.Duration
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Topic:             "analytics.events",
		ProcessingTimeout: 30 * time.Second,
	}
}

// Stats holds runtime counters for monitoring.
type Stats struct {
	MessagesReceived  int64
	MessagesProcessed int64
	ParseErrors       int64
	MessagesRequeued  int64
	LastMessageTime   time.Time
}

// Consumer consumes analytics events from the queue and dispatches
// them to handlers.
type Consumer struct {
	source     MessageSource
	dispatcher *Dispatcher
	serializer *eventqueue.Serializer
	config     Config

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	messagesReceived  atomic.Int64
	messagesProcessed atomic.Int64
	parseErrors       atomic.Int64
	messagesRequeued  atomic.Int64
	lastMessageTime   atomic.Value // stores time.Time
}

// New creates a consumer.
func New(source MessageSource, dispatcher *Dispatcher, cfg Config) (*Consumer, error) {
	if source == nil {
		return nil, fmt.Errorf("message source required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic required")
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = DefaultConfig().ProcessingTimeout
	}

	c := &Consumer{
		source:     source,
		dispatcher: dispatcher,
		serializer: eventqueue.NewSerializer(),
		config:     cfg,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	c.lastMessageTime.Store(time.Time{})
	return c, nil
}

// Start begins consuming. Returns immediately; consumption happens in a
// goroutine until Stop is called or the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return nil
	}

	messages, err := c.source.Subscribe(ctx, c.config.Topic)
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("subscribe to %s: %w", c.config.Topic, err)
	}

	go c.consumeLoop(ctx, messages)

	logging.Info().
		Str("topic", c.config.Topic).
		Dur("processing_timeout", c.config.ProcessingTimeout).
		Msg("Analytics consumer started")
	return nil
}

// Stop gracefully stops the consumer and waits for the loop to exit.
func (c *Consumer) Stop() {
	if !c.running.Swap(false) {
		return
	}

	close(c.stopCh)
	<-c.doneCh

	logging.Info().Msg("Analytics consumer stopped")
}

// IsRunning reports whether the consume loop is active.
func (c *Consumer) IsRunning() bool {
	return c.running.Load()
}

// Stats returns current runtime counters.
func (c *Consumer) Stats() Stats {
	var lastTime time.Time
	if t, ok := c.lastMessageTime.Load().(time.Time); ok {
		lastTime = t
	}
	return Stats{
		MessagesReceived:  c.messagesReceived.Load(),
		MessagesProcessed: c.messagesProcessed.Load(),
		ParseErrors:       c.parseErrors.Load(),
		MessagesRequeued:  c.messagesRequeued.Load(),
		LastMessageTime:   lastTime,
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, messages <-chan *message.Message) {
	defer func() {
		c.running.Store(false)
		close(c.doneCh)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.processMessage(ctx, msg)
		}
	}
}

// processMessage handles a single message: decode, dispatch with a
// deadline, then ack or nack.
func (c *Consumer) processMessage(ctx context.Context, msg *message.Message) {
	startTime := time.Now()
	c.messagesReceived.Add(1)
	c.lastMessageTime.Store(startTime)

	event, err := c.serializer.Unmarshal(msg.Payload)
	if err != nil {
		c.parseErrors.Add(1)
		metrics.ConsumerFailures.WithLabelValues("decode").Inc()
		logging.Warn().
			Str("message_uuid", msg.UUID).
			Err(err).
			Msg("Failed to decode message")

		// A malformed payload will never decode on redelivery.
		msg.Ack()
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, c.config.ProcessingTimeout)
	defer cancel()

	// The handler runs in its own goroutine so a handler that ignores
	// its context cannot wedge the consume loop: on deadline expiry the
	// message is nacked and the loop moves on.
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.dispatcher.Dispatch(handlerCtx, event)
	}()

	reason := "handler_error"
	select {
	case err = <-errCh:
		if err != nil && errors.Is(handlerCtx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
	case <-handlerCtx.Done():
		err = handlerCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
	}

	if err != nil {
		c.messagesRequeued.Add(1)
		metrics.ConsumerFailures.WithLabelValues(reason).Inc()
		logging.Warn().
			Str("message_uuid", msg.UUID).
			Str("event_type", event.EventType).
			Str("reason", reason).
			Err(err).
			Msg("Event processing failed, requeued")
		msg.Nack()
		return
	}

	c.messagesProcessed.Add(1)
	metrics.ConsumerProcessed.WithLabelValues(event.EventType).Inc()
	metrics.ConsumerProcessingDuration.Observe(time.Since(startTime).Seconds())
	msg.Ack()
}
