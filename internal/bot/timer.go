package bot

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a stopwatch with a deadline. It can be interrupted from another
// goroutine, after which TimeLeft reports zero.
type Timer struct {
	limit time.Duration
	now   func() time.Time

	mu      sync.Mutex
	started time.Time

	interrupted atomic.Bool
}

func NewTimer(limit time.Duration) *Timer {
	return &Timer{limit: limit, now: time.Now}
}

// Start (re)starts the stopwatch.
func (t *Timer) Start() {
	t.mu.Lock()
	t.started = t.now()
	t.mu.Unlock()
}

// TimeLeft is the remaining budget, clamped at zero. Before Start it is the
// full limit.
func (t *Timer) TimeLeft() time.Duration {
	if t.interrupted.Load() {
		return 0
	}
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if started.IsZero() {
		return t.limit
	}
	left := t.limit - t.now().Sub(started)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether TimeLeft has reached zero.
func (t *Timer) Expired() bool { return t.TimeLeft() == 0 }

// Interrupt makes the timer expire now. Calling it again has no effect.
func (t *Timer) Interrupt() { t.interrupted.Store(true) }
