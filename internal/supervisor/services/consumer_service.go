// Shoplytics - E-commerce Analytics Event Pipeline
// Copyright 2026 Alex Volkov (avolkov)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avolkov/shoplytics

package services

import (
	"context"
	"fmt"
)

// ConsumerRunner matches the analytics consumer's lifecycle.
//
// Satisfied by *consumer.Consumer:
//   - Start(ctx context.Context) error
//   - Stop()
//   - IsRunning() bool
type ConsumerRunner interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// ConsumerService wraps the analytics consumer as a supervised
// service. If Start fails (broker unreachable), the error propagates
// and suture restarts the service with backoff.
type ConsumerService struct {
	consumer ConsumerRunner
	name     string
}

// NewConsumerService creates a consumer service wrapper.
func NewConsumerService(consumer ConsumerRunner) *ConsumerService {
	return &ConsumerService{
		consumer: consumer,
		name:     "analytics-consumer",
	}
}

// Serve implements suture.Service: start, block until canceled, stop.
func (s *ConsumerService) Serve(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("consumer start failed: %w", err)
	}

	<-ctx.Done()

	s.consumer.Stop()
	return ctx.Err()
}

// String identifies the service in suture log messages.
func (s *ConsumerService) String() string {
	return s.name
}
