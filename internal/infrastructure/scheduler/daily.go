// Package scheduler triggers digest generation once per day.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"paperdigest/internal/ports"
)

// DailyScheduler fires a job once per day at a configured hour in a
// configured timezone. Stop cancels the pending wait but an already-started
// job runs to completion. If the previous job is still running when the
// next trigger fires, the trigger is skipped rather than overlapped.
type DailyScheduler struct {
	hour     int
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler for the given local hour.
func NewDailyScheduler(hour int, location *time.Location, logger *slog.Logger) *DailyScheduler {
	if location == nil {
		location = time.UTC
	}
	return &DailyScheduler{hour: hour, location: location, logger: logger}
}

// Start launches the trigger loop. Calling Start on a started scheduler is
// a no-op.
func (s *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			wait := s.untilNextRun(time.Now())
			s.debug("next scheduled run", "in", wait.Round(time.Second).String())

			timer := time.NewTimer(wait)
			select {
			case trigger := <-timer.C:
				// The job runs off the loop so a slow generation never
				// delays the next trigger; fire skips the overlap instead.
				go s.fire(trigger, job)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop cancels the pending wait and returns once the trigger loop exits.
// It does not interrupt a generation that already started.
func (s *DailyScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fire runs the job unless the previous invocation is still in flight, in
// which case the trigger is skipped.
func (s *DailyScheduler) fire(trigger time.Time, job func(time.Time)) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.debug("previous run still in flight, skipping trigger", "trigger", trigger)
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	job(trigger)
}

// untilNextRun computes the wait until the configured hour, today or
// tomorrow.
func (s *DailyScheduler) untilNextRun(now time.Time) time.Duration {
	local := now.In(s.location)
	target := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.location)
	if !target.After(local) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Sub(local)
}

func (s *DailyScheduler) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
