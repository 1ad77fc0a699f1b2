package orchestrator

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// Option -
type Option func(*Orchestrator)

// WithRunID -
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// WithRecovery - the sink predicate is bypassed: recovered entities already have partial data in the sink
func WithRecovery(recovery bool) Option {
	return func(o *Orchestrator) {
		o.recovery = recovery
	}
}

// WithMinPeriod - earliest coverage period counted as a dated record
func WithMinPeriod(period int) Option {
	return func(o *Orchestrator) {
		o.minPeriod = period
	}
}

// WithDelay - polite delay after every external call
func WithDelay(delay time.Duration) Option {
	return func(o *Orchestrator) {
		if delay >= 0 {
			o.delay = delay
		}
	}
}

// WithMaxRetries - retries of throttled or failed requests, each one is paid from the budget
func WithMaxRetries(retries uint64) Option {
	return func(o *Orchestrator) {
		o.maxRetries = retries
	}
}

// WithBackOff -
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(o *Orchestrator) {
		if factory != nil {
			o.backoff = factory
		}
	}
}

// WithWait - replaces the sleeping function used for the polite delay
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		if wait != nil {
			o.wait = wait
		}
	}
}

// WithMetrics -
func WithMetrics(metrics Metrics) Option {
	return func(o *Orchestrator) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}
