// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package eventqueue

import (
	"testing"
	"time"

	"github.com/avolkov/shoplytics/internal/config"
)

func TestDefaultStreamConfig(t *testing.T) {
	cfg := DefaultStreamConfig()

	if cfg.MaxAge != 24*time.Hour {
		t.Errorf("MaxAge = %s, want 24h", cfg.MaxAge)
	}
	if cfg.MaxMsgs != 10000 {
		t.Errorf("MaxMsgs = %d, want 10000", cfg.MaxMsgs)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0] != "analytics.events" {
		t.Errorf("Subjects = %v", cfg.Subjects)
	}
}

func TestStreamConfigFromNATS(t *testing.T) {
	t.Run("overrides from application config", func(t *testing.T) {
		natsCfg := &config.NATSConfig{
			StreamName: "SHOP_EVENTS",
			Subject:    "shop.analytics",
			MessageTTL: 48 * time.Hour,
			MaxMsgs:    500,
		}
		cfg := StreamConfigFromNATS(natsCfg)

		if cfg.Name != "SHOP_EVENTS" {
			t.Errorf("Name = %q", cfg.Name)
		}
		if cfg.Subjects[0] != "shop.analytics" {
			t.Errorf("Subjects = %v", cfg.Subjects)
		}
		if cfg.MaxAge != 48*time.Hour {
			t.Errorf("MaxAge = %s", cfg.MaxAge)
		}
		if cfg.MaxMsgs != 500 {
			t.Errorf("MaxMsgs = %d", cfg.MaxMsgs)
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		cfg := StreamConfigFromNATS(&config.NATSConfig{})
		def := DefaultStreamConfig()
		if cfg.Name != def.Name || cfg.MaxAge != def.MaxAge || cfg.MaxMsgs != def.MaxMsgs {
			t.Errorf("got %+v, want defaults %+v", cfg, def)
		}
	})
}

func TestSubscriberConfigFromNATS(t *testing.T) {
	natsCfg := &config.NATSConfig{
		URL:           "nats://broker:4222",
		StreamName:    "SHOP_EVENTS",
		DurableName:   "shop-processor",
		QueueGroup:    "shop-workers",
		MaxReconnects: 10,
		ReconnectWait: 5 * time.Second,
	}
	consumerCfg := &config.ConsumerConfig{
		AckWait:      45 * time.Second,
		MaxDeliver:   3,
		CloseTimeout: 15 * time.Second,
	}

	cfg := SubscriberConfigFromNATS(natsCfg, consumerCfg)

	if cfg.URL != "nats://broker:4222" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.StreamName != "SHOP_EVENTS" || cfg.DurableName != "shop-processor" || cfg.QueueGroup != "shop-workers" {
		t.Errorf("stream binding = %q/%q/%q", cfg.StreamName, cfg.DurableName, cfg.QueueGroup)
	}
	if cfg.AckWaitTimeout != 45*time.Second {
		t.Errorf("AckWaitTimeout = %s", cfg.AckWaitTimeout)
	}
	if cfg.MaxDeliver != 3 {
		t.Errorf("MaxDeliver = %d", cfg.MaxDeliver)
	}
	if cfg.CloseTimeout != 15*time.Second {
		t.Errorf("CloseTimeout = %s", cfg.CloseTimeout)
	}
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("publisher")
	if cfg.Name != "publisher" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.FailureThreshold == 0 {
		t.Error("FailureThreshold must be positive")
	}
}
