// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package config defines the application configuration and its loader.
//
// Configuration is layered with clear precedence: environment variables
// override the optional YAML config file, which overrides built-in
// defaults. See koanf.go for the loader.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for both the server and the consumer.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	NATS      NATSConfig      `koanf:"nats"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Consumer  ConsumerConfig  `koanf:"consumer"`
	API       APIConfig       `koanf:"api"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings for the durable event store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" for tests.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (DuckDB size notation, e.g. "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads for query execution. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// NATSConfig holds NATS JetStream settings for the analytics queue.
type NATSConfig struct {
	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer runs an in-process NATS server instead of
	// connecting to an external one. Useful for single-binary deploys
	// and tests.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// StreamName is the JetStream stream holding analytics events.
	StreamName string `koanf:"stream_name"`

	// Subject is the subject analytics events are published to.
	Subject string `koanf:"subject"`

	// MessageTTL bounds how long an unconsumed event stays queued.
	MessageTTL time.Duration `koanf:"message_ttl"`

	// MaxMsgs bounds queue depth; the oldest message is dropped when
	// the stream is full (DiscardOld).
	MaxMsgs int64 `koanf:"max_msgs"`

	// DurableName is the consumer durable name.
	DurableName string `koanf:"durable_name"`

	// QueueGroup load-balances messages across consumer instances.
	QueueGroup string `koanf:"queue_group"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// AnalyticsConfig gates the ingestion pipeline.
type AnalyticsConfig struct {
	// Enabled controls queue publication. Events are always written to
	// the durable store; publishing can be switched off independently.
	Enabled bool `koanf:"enabled"`
}

// ConsumerConfig holds settings for the analytics consumer process.
type ConsumerConfig struct {
	// AckWait is how long the broker waits for an ack before redelivery.
	AckWait time.Duration `koanf:"ack_wait"`

	// MaxDeliver bounds redelivery of a repeatedly failing message.
	MaxDeliver int `koanf:"max_deliver"`

	// ProcessingTimeout bounds a single handler invocation; on expiry
	// the message is nacked for redelivery.
	ProcessingTimeout time.Duration `koanf:"processing_timeout"`

	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// APIConfig holds API pagination settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// JWTSecret signs and verifies bearer tokens. Required in production.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout bounds token lifetime.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.NATS.StreamName == "" {
		return fmt.Errorf("nats.stream_name is required")
	}
	if c.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required")
	}
	if c.NATS.MaxMsgs <= 0 {
		return fmt.Errorf("nats.max_msgs must be positive, got %d", c.NATS.MaxMsgs)
	}
	if c.NATS.MessageTTL <= 0 {
		return fmt.Errorf("nats.message_ttl must be positive, got %s", c.NATS.MessageTTL)
	}
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.embedded_server is false")
	}
	if c.Consumer.MaxDeliver < 1 {
		return fmt.Errorf("consumer.max_deliver must be at least 1, got %d", c.Consumer.MaxDeliver)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api.max_page_size (%d) must be >= api.default_page_size (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if c.Server.Environment == "production" && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required in production")
	}
	return nil
}
