package usecase

import (
	"context"
	"time"

	"paperdigest/internal/config"
	"paperdigest/internal/domain"
	"paperdigest/internal/ports"
)

// Scheduler wires the daily trigger driver with the digest generator.
type Scheduler struct {
	driver    ports.Scheduler
	generator *Generator
	cfg       config.DigestConfig
	onResult  func(context.Context, domain.GenerationResult)
}

// NewScheduler returns a helper to start/stop recurring generation.
// onResult, when set, receives the outcome of every scheduled run.
func NewScheduler(driver ports.Scheduler, generator *Generator, cfg config.DigestConfig, onResult func(context.Context, domain.GenerationResult)) *Scheduler {
	return &Scheduler{driver: driver, generator: generator, cfg: cfg, onResult: onResult}
}

// Start registers the generation job with the provided scheduler. Each
// trigger computes a fresh target date from the trigger time.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.generator == nil {
		return nil
	}

	job := func(trigger time.Time) {
		result := s.generator.Generate(ctx, s.cfg, Options{Date: trigger.UTC()})
		if s.onResult != nil {
			s.onResult(ctx, result)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
