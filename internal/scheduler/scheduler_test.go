package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestScheduler_Run(t *testing.T) {
	tests := []struct {
		name      string
		duration  time.Duration
		interval  time.Duration
		recover   bool
		runTime   time.Duration
		want      []bool
		wantSleep []time.Duration
	}{
		{
			name:      "normal runs",
			duration:  3 * time.Hour,
			interval:  time.Hour,
			want:      []bool{false, false, false},
			wantSleep: []time.Duration{time.Hour, time.Hour, time.Hour},
		}, {
			name:      "recovery alternates",
			duration:  3 * time.Hour,
			interval:  time.Hour,
			recover:   true,
			want:      []bool{true, false, true},
			wantSleep: []time.Duration{time.Hour, time.Hour, time.Hour},
		}, {
			name:      "last wait is clipped",
			duration:  150 * time.Minute,
			interval:  time.Hour,
			want:      []bool{false, false, false},
			wantSleep: []time.Duration{time.Hour, time.Hour, 30 * time.Minute},
		}, {
			name:      "runs consume the window",
			duration:  90 * time.Minute,
			interval:  time.Hour,
			runTime:   20 * time.Minute,
			want:      []bool{false, false},
			wantSleep: []time.Duration{time.Hour},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			modes := make([]bool, 0)
			reports := 0

			s := New(func(ctx context.Context, index int, recovery bool) error {
				assert.Equal(t, len(modes), index)
				modes = append(modes, recovery)
				clock.now = clock.now.Add(tt.runTime)
				return nil
			},
				WithClock(clock.Now),
				WithSleep(clock.Sleep),
				WithReport(func(ctx context.Context, index int) { reports++ }),
			)

			stats := s.Run(context.Background(), tt.duration, tt.interval, tt.recover)
			assert.Equal(t, tt.want, modes)
			assert.Equal(t, tt.wantSleep, clock.sleeps)
			assert.Equal(t, len(tt.want), stats.Invocations)
			assert.Equal(t, len(tt.want), reports)
		})
	}
}

func TestScheduler_FailuresDoNotStopTheLoop(t *testing.T) {
	clock := newFakeClock()
	var calls int

	s := New(func(ctx context.Context, index int, recovery bool) error {
		calls++
		switch index {
		case 0:
			return errors.New("sink is down")
		case 1:
			panic("unexpected")
		}
		return nil
	}, WithClock(clock.Now), WithSleep(clock.Sleep))

	stats := s.Run(context.Background(), 3*time.Hour, time.Hour, false)
	assert.Equal(t, 3, calls)
	assert.Equal(t, Stats{Invocations: 3, Failures: 2}, stats)
}

func TestScheduler_Cancelled(t *testing.T) {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	var calls int

	s := New(func(ctx context.Context, index int, recovery bool) error {
		calls++
		cancel()
		return nil
	}, WithClock(clock.Now), WithSleep(clock.Sleep))

	stats := s.Run(ctx, 10*time.Hour, time.Hour, false)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, stats.Invocations)
}
