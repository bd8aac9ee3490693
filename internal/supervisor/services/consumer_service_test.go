// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockConsumer implements ConsumerRunner for tests.
type mockConsumer struct {
	startErr error
	running  atomic.Bool
	stopped  atomic.Bool
}

func (m *mockConsumer) Start(ctx context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.running.Store(true)
	return nil
}

func (m *mockConsumer) Stop() {
	m.running.Store(false)
	m.stopped.Store(true)
}

func (m *mockConsumer) IsRunning() bool { return m.running.Load() }

func TestConsumerServiceLifecycle(t *testing.T) {
	consumer := &mockConsumer{}
	svc := NewConsumerService(consumer)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	// Let Start run before canceling.
	deadline := time.Now().Add(time.Second)
	for !consumer.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !consumer.IsRunning() {
		t.Fatal("consumer never started")
	}

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !consumer.stopped.Load() {
		t.Error("consumer was not stopped")
	}
}

func TestConsumerServiceStartFailure(t *testing.T) {
	consumer := &mockConsumer{startErr: errors.New("broker unreachable")}
	svc := NewConsumerService(consumer)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, consumer.startErr) {
		t.Errorf("Serve returned %v, want start error", err)
	}
}
