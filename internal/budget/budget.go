package budget

import (
	"time"

	"github.com/rs/zerolog/log"
)

// defaults
const (
	DefaultThreshold = 10
	DefaultReserve   = 5
)

// Available - number of external calls a run may spend. The hourly ceiling is treated as a token bucket
// refilled linearly over an hour and sampled once per run.
func Available(ceiling int, lastRun *time.Time, callsInLastHour int, now time.Time) int {
	if ceiling <= 0 {
		return 0
	}
	if lastRun == nil || lastRun.IsZero() {
		return ceiling
	}

	passed := now.Sub(*lastRun)
	if passed < 0 {
		passed = 0
	}
	if passed >= time.Hour {
		return ceiling
	}

	if callsInLastHour < 0 {
		callsInLastHour = 0
	}
	// floor(passed/hour × ceiling), exact in integer nanoseconds
	regenerated := int(int64(passed) * int64(ceiling) / int64(time.Hour))
	available := regenerated + (ceiling - callsInLastHour)
	if available > ceiling {
		available = ceiling
	}
	if available < 0 {
		available = 0
	}
	return available
}

// Budget - spending of one run against the calls available at its start
type Budget struct {
	ceiling   int
	available int
	reserve   int
	spent     int
}

// New -
func New(ceiling, available, reserve int) *Budget {
	if reserve < 0 {
		reserve = 0
	}
	return &Budget{
		ceiling:   ceiling,
		available: available,
		reserve:   reserve,
	}
}

// Plan - computes the budget of a run starting at `now`. A low budget is only an advisory: the run proceeds
// and every call is checked with Allow.
func Plan(ceiling int, lastRun *time.Time, callsInLastHour int, now time.Time, threshold, reserve int) *Budget {
	available := Available(ceiling, lastRun, callsInLastHour, now)
	if available < threshold {
		log.Warn().Int("available", available).Int("ceiling", ceiling).Msg("rate budget is low, run proceeds")
	}
	return New(ceiling, available, reserve)
}

// Allow - one more call fits into the budget without touching the reserve
func (b *Budget) Allow() bool {
	return b.spent < b.available-b.reserve
}

// Spend -
func (b *Budget) Spend() {
	b.spent++
}

// Spent -
func (b *Budget) Spent() int {
	return b.spent
}

// Available -
func (b *Budget) Available() int {
	return b.available
}

// Remaining - calls left before the reserve is reached
func (b *Budget) Remaining() int {
	left := b.available - b.reserve - b.spent
	if left < 0 {
		return 0
	}
	return left
}

// CallsInLastHour - consumption to persist: calls not yet regenerated at the run start plus calls spent by the run
func (b *Budget) CallsInLastHour() int {
	used := b.ceiling - b.available
	if used < 0 {
		used = 0
	}
	return used + b.spent
}
