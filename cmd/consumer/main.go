// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

// Package main is the entry point for the Shoplytics analytics
// consumer.
//
// The consumer drains the analytics JetStream queue and dispatches
// events to per-type handlers (purchases, product views, page views).
// Delivery is at-least-once with one unacknowledged message in flight
// at a time; a failed handler nacks the message for broker redelivery,
// bounded by CONSUMER_MAX_DELIVER attempts.
//
// The consumer runs independently of the ingestion server and can be
// scaled horizontally: instances sharing the configured queue group
// split the stream between them.
//
// # Example Usage
//
//	export NATS_URL=nats://broker:4222
//	export NATS_EMBEDDED_SERVER=false
//	./shoplytics-consumer
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/avolkov/shoplytics/internal/config"
	"github.com/avolkov/shoplytics/internal/consumer"
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
		Str("url", cfg.NATS.URL).
		Str("stream", cfg.NATS.StreamName).
		Str("durable", cfg.NATS.DurableName).
		Msg("Starting Shoplytics consumer")

	subCfg := eventqueue.SubscriberConfigFromNATS(&cfg.NATS, &cfg.Consumer)
	subscriber, err := eventqueue.NewSubscriber(&subCfg, eventqueue.NewLoggerAdapter())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create subscriber")
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing subscriber")
		}
	}()

	c, err := consumer.New(subscriber, consumer.NewDispatcher(), consumer.Config{
		Topic:             cfg.NATS.Subject,
		ProcessingTimeout: cfg.Consumer.ProcessingTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create consumer")
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewConsumerService(c))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	logging.Info().Msg("Shoplytics consumer stopped")
}
