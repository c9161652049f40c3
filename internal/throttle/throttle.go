// Package throttle provides a wall-clock gate that bounds how often an event
// stream may propagate to a downstream consumer.
package throttle

import (
	"time"

	"github.com/banshee-data/proximity.report/internal/timeutil"
)

// Limiter admits at most one event per interval. The first event after
// construction (or Reset) always passes because there is no prior timestamp.
// Suppressed events are dropped, never queued: there is no backpressure and
// no buffering, matching the behavior of a live sampling pipeline where a
// stale sample has no value.
//
// A Limiter is not safe for concurrent use; each one belongs to the single
// goroutine that runs the capture loop.
type Limiter struct {
	clock    timeutil.Clock
	interval time.Duration
	last     time.Time
	primed   bool
}

// New returns a Limiter gated at the given interval.
func New(clock timeutil.Clock, interval time.Duration) *Limiter {
	return &Limiter{clock: clock, interval: interval}
}

// Allow reports whether an event arriving now may pass, and if so records the
// emission time. A non-positive interval admits everything.
func (l *Limiter) Allow() bool {
	if l.interval <= 0 {
		return true
	}
	now := l.clock.Now()
	if l.primed && now.Sub(l.last) < l.interval {
		return false
	}
	l.last = now
	l.primed = true
	return true
}

// Reset clears the last-emission timestamp so the next event passes
// immediately, as at pipeline start.
func (l *Limiter) Reset() {
	l.primed = false
	l.last = time.Time{}
}
