// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package eventqueue implements the at-least-once analytics queue on
// NATS JetStream via Watermill.
//
// The stream's retention limits carry the queue contract: unconsumed
// messages expire after the configured TTL, and when the stream is full
// the oldest message is dropped so fresh events are always admitted.
// Durable storage happens before publication (see internal/analytics),
// so a failed or dropped publish delays delivery without losing data.
package eventqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/avolkov/shoplytics/internal/metrics"
	"github.com/avolkov/shoplytics/internal/models"
)

// ErrPublisherClosed is returned by publish operations after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// Publisher wraps a Watermill NATS publisher with circuit breaker
// protection and a single inline rebuild-and-retry on publish failure.
type Publisher struct {
	cfg            PublisherConfig
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	serializer     *Serializer
	logger         watermill.LoggerAdapter
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher creates a resilient Watermill NATS publisher. Messages
// carry a Nats-Msg-Id so JetStream deduplicates broker-side retries.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	pub, err := newWatermillPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		cfg:        cfg,
		publisher:  pub,
		serializer: NewSerializer(),
		logger:     logger,
	}, nil
}

func newWatermillPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // Stream is pre-created by StreamManager
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return pub, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish sends a message to the given topic. On failure the publisher
// is rebuilt once and the publish retried once; a second failure is
// returned to the caller.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	err := p.publishOnce(topic, msg)
	if err != nil && !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.logger.Error("Publish failed, rebuilding publisher", err, watermill.LogFields{
			"topic":        topic,
			"message_uuid": msg.UUID,
		})
		if rerr := p.rebuild(); rerr != nil {
			p.logger.Error("Publisher rebuild failed", rerr, nil)
		} else {
			err = p.publishOnce(topic, msg)
		}
	}

	if err != nil {
		metrics.QueuePublishFailures.Inc()
		return err
	}
	metrics.QueuePublished.Inc()
	return nil
}

func (p *Publisher) publishOnce(topic string, msg *message.Message) error {
	if p.circuitBreaker != nil {
		_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
		return err
	}
	return p.publisher.Publish(topic, msg)
}

// rebuild replaces the underlying Watermill publisher after a publish
// failure. At most one rebuild happens per publish call.
func (p *Publisher) rebuild() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	metrics.QueueReconnects.Inc()

	if p.publisher != nil {
		if err := p.publisher.Close(); err != nil {
			p.logger.Error("Failed to close stale publisher", err, nil)
		}
	}

	pub, err := newWatermillPublisher(p.cfg, p.logger)
	if err != nil {
		return err
	}
	p.publisher = pub
	return nil
}

// PublishEvent serializes and publishes one analytics event.
func (p *Publisher) PublishEvent(ctx context.Context, topic string, event *models.AnalyticsEvent) error {
	data, err := p.serializer.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("event_type", event.EventType)
	msg.Metadata.Set("event_name", event.EventName)

	return p.Publish(ctx, topic, msg)
}

// PublishEvents publishes a batch of events best-effort and returns how
// many were accepted by the broker. Failures are logged and skipped:
// the events are already durably stored, so a missed publish means
// delayed delivery, not data loss.
func (p *Publisher) PublishEvents(ctx context.Context, topic string, events []models.AnalyticsEvent) int {
	published := 0
	for i := range events {
		if err := p.PublishEvent(ctx, topic, &events[i]); err != nil {
			p.logger.Error("Failed to publish batch event", err, watermill.LogFields{
				"topic":      topic,
				"event_type": events[i].EventType,
			})
			continue
		}
		published++
	}
	return published
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}
