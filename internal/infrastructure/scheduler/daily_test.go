package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestUntilNextRunSameDay(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(6, time.UTC, nil)
	now := time.Date(2025, 6, 2, 4, 30, 0, 0, time.UTC)

	wait := s.untilNextRun(now)
	if wait != 90*time.Minute {
		t.Errorf("wait = %v, want 1h30m", wait)
	}
}

func TestUntilNextRunRollsToTomorrow(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(6, time.UTC, nil)

	now := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
	if wait := s.untilNextRun(now); wait != 23*time.Hour {
		t.Errorf("past the hour: wait = %v, want 23h", wait)
	}

	exactly := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	if wait := s.untilNextRun(exactly); wait != 24*time.Hour {
		t.Errorf("at the hour: wait = %v, want 24h", wait)
	}
}

func TestUntilNextRunHonorsTimezone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	s := NewDailyScheduler(8, loc, nil)

	// 05:00 UTC is 07:00 in UTC+2, one hour before the configured hour.
	now := time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC)
	if wait := s.untilNextRun(now); wait != time.Hour {
		t.Errorf("wait = %v, want 1h", wait)
	}
}

func TestFireSkipsOverlappingTrigger(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(6, time.UTC, nil)

	var (
		mu      sync.Mutex
		started int
	)
	release := make(chan struct{})
	running := make(chan struct{})

	job := func(time.Time) {
		mu.Lock()
		started++
		mu.Unlock()
		close(running)
		<-release
	}

	go s.fire(time.Now(), job)
	<-running

	// Second trigger arrives while the first job is still in flight.
	s.fire(time.Now(), func(time.Time) {
		mu.Lock()
		started++
		mu.Unlock()
	})
	close(release)

	mu.Lock()
	defer mu.Unlock()
	if started != 1 {
		t.Errorf("jobs started = %d, want 1 (overlap skipped)", started)
	}
}

func TestStopCancelsPendingWait(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(6, time.UTC, nil)
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStartTwiceIsNoOp(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(6, time.UTC, nil)
	defer s.Stop(context.Background())

	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := s.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("second Start: %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := NewDailyScheduler(6, time.UTC, nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on idle scheduler: %v", err)
	}
}
