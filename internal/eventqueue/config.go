// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package eventqueue

import (
	"time"

	"github.com/avolkov/shoplytics/internal/config"
)

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1, // Unlimited
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024, // 8MB
	}
}

// PublisherConfigFromNATS derives a publisher config from the
// application NATS settings.
func PublisherConfigFromNATS(cfg *config.NATSConfig) PublisherConfig {
	pc := DefaultPublisherConfig(cfg.URL)
	pc.MaxReconnects = cfg.MaxReconnects
	if cfg.ReconnectWait > 0 {
		pc.ReconnectWait = cfg.ReconnectWait
	}
	return pc
}

// SubscriberConfig holds subscriber configuration.
//
// Prefetch is fixed at one unacknowledged message per subscriber: a
// message is redelivered rather than lost when the consumer dies
// mid-processing, and a slow message never piles up work behind an
// unbounded buffer.
type SubscriberConfig struct {
	URL            string
	StreamName     string
	DurableName    string
	QueueGroup     string
	AckWaitTimeout time.Duration
	MaxDeliver     int
	CloseTimeout   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// DefaultSubscriberConfig returns production defaults for the subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		StreamName:     "ANALYTICS_EVENTS",
		DurableName:    "analytics-processor",
		QueueGroup:     "processors",
		AckWaitTimeout: 30 * time.Second,
		MaxDeliver:     5,
		CloseTimeout:   30 * time.Second,
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
	}
}

// SubscriberConfigFromNATS derives a subscriber config from the
// application NATS and consumer settings.
func SubscriberConfigFromNATS(natsCfg *config.NATSConfig, consumerCfg *config.ConsumerConfig) SubscriberConfig {
	sc := DefaultSubscriberConfig(natsCfg.URL)
	if natsCfg.StreamName != "" {
		sc.StreamName = natsCfg.StreamName
	}
	if natsCfg.DurableName != "" {
		sc.DurableName = natsCfg.DurableName
	}
	if natsCfg.QueueGroup != "" {
		sc.QueueGroup = natsCfg.QueueGroup
	}
	sc.MaxReconnects = natsCfg.MaxReconnects
	if natsCfg.ReconnectWait > 0 {
		sc.ReconnectWait = natsCfg.ReconnectWait
	}
	if consumerCfg.AckWait > 0 {
		sc.AckWaitTimeout = consumerCfg.AckWait
	}
	if consumerCfg.MaxDeliver > 0 {
		sc.MaxDeliver = consumerCfg.MaxDeliver
	}
	if consumerCfg.CloseTimeout > 0 {
		sc.CloseTimeout = consumerCfg.CloseTimeout
	}
	return sc
}

// StreamConfig defines the analytics event stream settings. The stream
// bounds double as the queue's delivery contract: unconsumed events
// expire after MaxAge, and once MaxMsgs is reached the oldest message
// is dropped to admit the newest.
type StreamConfig struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
	MaxMsgs  int64
	MaxBytes int64
	Replicas int
}

// DefaultStreamConfig returns production stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:     "ANALYTICS_EVENTS",
		Subjects: []string{"analytics.events"},
		MaxAge:   24 * time.Hour,
		MaxMsgs:  10000,
		MaxBytes: 1 << 30, // 1GB
		Replicas: 1,
	}
}

// StreamConfigFromNATS derives the stream config from the application
// NATS settings.
func StreamConfigFromNATS(cfg *config.NATSConfig) StreamConfig {
	sc := DefaultStreamConfig()
	if cfg.StreamName != "" {
		sc.Name = cfg.StreamName
	}
	if cfg.Subject != "" {
		sc.Subjects = []string{cfg.Subject}
	}
	if cfg.MessageTTL > 0 {
		sc.MaxAge = cfg.MessageTTL
	}
	if cfg.MaxMsgs > 0 {
		sc.MaxMsgs = cfg.MaxMsgs
	}
	return sc
}

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// CircuitBreakerConfig holds circuit breaker settings for the publisher.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
