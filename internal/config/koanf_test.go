// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	// Server defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}

	// Queue contract defaults
	if cfg.NATS.MessageTTL != 24*time.Hour {
		t.Errorf("NATS.MessageTTL = %v, want 24h", cfg.NATS.MessageTTL)
	}
	if cfg.NATS.MaxMsgs != 10000 {
		t.Errorf("NATS.MaxMsgs = %d, want 10000", cfg.NATS.MaxMsgs)
	}
	if cfg.NATS.StreamName != "ANALYTICS_EVENTS" {
		t.Errorf("NATS.StreamName = %q", cfg.NATS.StreamName)
	}
	if cfg.NATS.Subject != "analytics.events" {
		t.Errorf("NATS.Subject = %q", cfg.NATS.Subject)
	}
	if !cfg.NATS.EmbeddedServer {
		t.Error("NATS.EmbeddedServer should be true by default")
	}

	// Consumer defaults
	if cfg.Consumer.MaxDeliver != 5 {
		t.Errorf("Consumer.MaxDeliver = %d, want 5", cfg.Consumer.MaxDeliver)
	}
	if cfg.Consumer.ProcessingTimeout != 30*time.Second {
		t.Errorf("Consumer.ProcessingTimeout = %v, want 30s", cfg.Consumer.ProcessingTimeout)
	}

	// Publishing on by default
	if !cfg.Analytics.Enabled {
		t.Error("Analytics.Enabled should be true by default")
	}

	// Database defaults
	if cfg.Database.Path != "/data/shoplytics.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}

	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("NATS_STREAM_NAME", "SHOP_EVENTS")
	t.Setenv("NATS_MAX_MSGS", "500")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "test.duckdb"))
	t.Setenv("SECURITY_CORS_ORIGINS", "https://shop.example, https://admin.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.NATS.StreamName != "SHOP_EVENTS" {
		t.Errorf("NATS.StreamName = %q", cfg.NATS.StreamName)
	}
	if cfg.NATS.MaxMsgs != 500 {
		t.Errorf("NATS.MaxMsgs = %d, want 500", cfg.NATS.MaxMsgs)
	}
	want := []string{"https://shop.example", "https://admin.example"}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != want[0] || cfg.Security.CORSOrigins[1] != want[1] {
		t.Errorf("Security.CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 7070\nnats:\n  message_ttl: 1h\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.NATS.MessageTTL != time.Hour {
		t.Errorf("NATS.MessageTTL = %v, want 1h", cfg.NATS.MessageTTL)
	}
	// Untouched values keep defaults.
	if cfg.NATS.MaxMsgs != 10000 {
		t.Errorf("NATS.MaxMsgs = %d, want default 10000", cfg.NATS.MaxMsgs)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SERVER_PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, env should beat file", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }},
		{"missing database path", func(c *Config) { c.Database.Path = "" }},
		{"missing stream name", func(c *Config) { c.NATS.StreamName = "" }},
		{"missing subject", func(c *Config) { c.NATS.Subject = "" }},
		{"non-positive max msgs", func(c *Config) { c.NATS.MaxMsgs = 0 }},
		{"non-positive ttl", func(c *Config) { c.NATS.MessageTTL = 0 }},
		{"external broker without url", func(c *Config) {
			c.NATS.EmbeddedServer = false
			c.NATS.URL = ""
		}},
		{"max deliver below one", func(c *Config) { c.Consumer.MaxDeliver = 0 }},
		{"max page below default page", func(c *Config) { c.API.MaxPageSize = 10 }},
		{"production without jwt secret", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NATS_STREAM_NAME", "nats.stream_name"},
		{"SERVER_PORT", "server.port"},
		{"SECURITY_JWT_SECRET", "security.jwt_secret"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
