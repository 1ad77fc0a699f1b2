package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// InvokeFunc - one acquisition run. index is 0-based.
type InvokeFunc func(ctx context.Context, index int, recovery bool) error

// ReportFunc - called after every invocation
type ReportFunc func(ctx context.Context, index int)

// Scheduler - repeats invocations until the duration elapses or the context is cancelled
type Scheduler struct {
	invoke InvokeFunc
	report ReportFunc
	clock  func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option -
type Option func(*Scheduler)

// WithReport -
func WithReport(report ReportFunc) Option {
	return func(s *Scheduler) {
		s.report = report
	}
}

// WithClock -
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSleep -
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// New -
func New(invoke InvokeFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		invoke: invoke,
		clock:  time.Now,
		sleep:  sleep,
	}
	for i := range opts {
		opts[i](s)
	}
	return s
}

// Stats -
type Stats struct {
	Invocations int
	Failures    int
}

// Run - first invocation starts immediately, the next ones after min(interval, remaining).
// With recovery enabled every even invocation runs in recovery mode.
func (s *Scheduler) Run(ctx context.Context, duration, interval time.Duration, withRecovery bool) Stats {
	var stats Stats
	deadline := s.clock().Add(duration)

	for index := 0; ; index++ {
		if ctx.Err() != nil {
			break
		}

		recovery := withRecovery && index%2 == 0
		log.Info().Int("invocation", index).Bool("recovery", recovery).Msg("starting acquisition run")

		stats.Invocations++
		if err := s.safeInvoke(ctx, index, recovery); err != nil {
			stats.Failures++
			log.Err(err).Int("invocation", index).Msg("acquisition run failed")
		}
		if s.report != nil {
			s.report(ctx, index)
		}

		remaining := deadline.Sub(s.clock())
		if remaining <= 0 {
			break
		}
		wait := interval
		if remaining < wait {
			wait = remaining
		}
		log.Info().Str("next_in", wait.String()).Msg("waiting for the next run")

		if err := s.sleep(ctx, wait); err != nil {
			break
		}
		if !s.clock().Before(deadline) {
			break
		}
	}

	log.Info().Int("invocations", stats.Invocations).Int("failures", stats.Failures).Msg("scheduler stopped")
	return stats
}

func (s *Scheduler) safeInvoke(ctx context.Context, index int, recovery bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %s", fmt.Sprint(r))
		}
	}()
	return s.invoke(ctx, index, recovery)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
