// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package main is the entry point for the Shoplytics server.
//
// Shoplytics ingests e-commerce analytics events (page views, product
// views, purchases, unload-time beacons), stores them durably in
// DuckDB, and publishes them to a NATS JetStream queue for decoupled
// downstream processing.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 loading (defaults, YAML, env)
//  2. Database: DuckDB durable event store
//  3. Queue: embedded or external NATS, stream provisioning, publisher
//  4. Analytics service: enrich, store, publish pipeline
//  5. HTTP API: chi router under a suture supervision tree
//
// # Queue Contract
//
// The JetStream stream limits carry the delivery contract: unconsumed
// events expire after NATS_MESSAGE_TTL (default 24h), and once
// NATS_MAX_MSGS (default 10000) is reached the oldest message is
// dropped so fresh events are always admitted. Because every event is
// durably stored before publication, a dropped or failed publish delays
// downstream delivery without losing data.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, then the publisher, NATS connection, embedded
// server, and database are closed in order.
//
// # Example Usage
//
// Single-binary development setup with embedded NATS:
//
//	export DATABASE_PATH=./shoplytics.duckdb
//	export NATS_EMBEDDED_SERVER=true
//	./shoplytics-server
//
// Production against an external broker:
//
//	export NATS_EMBEDDED_SERVER=false
//	export NATS_URL=nats://broker:4222
//	export SECURITY_JWT_SECRET=$(openssl rand -base64 32)
//	export SERVER_ENVIRONMENT=production
//	./shoplytics-server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avolkov/shoplytics/internal/analytics"
	"github.com/avolkov/shoplytics/internal/api"
	"github.com/avolkov/shoplytics/internal/auth"
	"github.com/avolkov/shoplytics/internal/config"
	"github.com/avolkov/shoplytics/internal/database"
	"github.com/avolkov/shoplytics/internal/eventqueue"
	"github.com/avolkov/shoplytics/internal/logging"
	"github.com/avolkov/shoplytics/internal/supervisor"
	"github.com/avolkov/shoplytics/internal/supervisor/services"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Bool("embedded_nats", cfg.NATS.EmbeddedServer).
		Bool("publishing", cfg.Analytics.Enabled).
		Msg("Starting Shoplytics server")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	queue, err := initQueue(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize analytics queue")
	}
	defer queue.Close()

	var publisher analytics.EventPublisher
	if queue.publisher != nil {
		publisher = queue.publisher
	}
	service := analytics.NewService(db, publisher, analytics.Config{
		Enabled: cfg.Analytics.Enabled,
		Topic:   cfg.NATS.Subject,
	})

	var jwtManager *auth.JWTManager
	if cfg.Security.JWTSecret != "" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
	} else {
		logging.Warn().Msg("No JWT secret configured, reporting endpoints run unauthenticated")
	}

	handler := api.NewHandler(service, db, jwtManager, cfg, version)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.NewRouter(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("HTTP server starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	logging.Info().Msg("Shoplytics server stopped")
}

// queueComponents bundles the NATS-side resources so shutdown can
// release them in order.
type queueComponents struct {
	embedded  *eventqueue.EmbeddedServer
	conn      *nats.Conn
	publisher *eventqueue.Publisher
}

// initQueue brings up the queue side of the pipeline: the embedded
// broker if configured, the analytics stream, and the publisher. When
// publishing is disabled the returned components are all nil and
// events only land in the durable store.
func initQueue(cfg *config.Config) (*queueComponents, error) {
	qc := &queueComponents{}
	if !cfg.Analytics.Enabled {
		logging.Info().Msg("Queue publishing disabled, events are stored only")
		return qc, nil
	}

	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventqueue.DefaultServerConfig()
		if cfg.NATS.StoreDir != "" {
			serverCfg.StoreDir = cfg.NATS.StoreDir
		}
		embedded, err := eventqueue.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		qc.embedded = embedded
		url = embedded.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		qc.Close()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	qc.conn = nc

	streamCfg := eventqueue.StreamConfigFromNATS(&cfg.NATS)
	manager, err := eventqueue.NewStreamManager(nc, &streamCfg)
	if err != nil {
		qc.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := manager.EnsureStream(ctx); err != nil {
		qc.Close()
		return nil, fmt.Errorf("provision analytics stream: %w", err)
	}
	logging.Info().
		Str("stream", streamCfg.Name).
		Dur("max_age", streamCfg.MaxAge).
		Int64("max_msgs", streamCfg.MaxMsgs).
		Msg("Analytics stream provisioned")

	pubCfg := eventqueue.PublisherConfigFromNATS(&cfg.NATS)
	pubCfg.URL = url
	publisher, err := eventqueue.NewPublisher(pubCfg, eventqueue.NewLoggerAdapter())
	if err != nil {
		qc.Close()
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	publisher.SetCircuitBreaker(eventqueue.NewCircuitBreaker(
		eventqueue.DefaultCircuitBreakerConfig("queue-publisher")))
	qc.publisher = publisher

	return qc, nil
}

// Close releases queue resources in reverse initialization order.
func (qc *queueComponents) Close() {
	if qc.publisher != nil {
		if err := qc.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if qc.conn != nil {
		qc.conn.Close()
	}
	if qc.embedded != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := qc.embedded.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
}
