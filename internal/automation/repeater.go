package automation

import (
	"sync"
	"time"

	"arkwarden/internal/clock"
)

// repeater runs fn every interval. The next run is scheduled only after fn
// returns, so runs never overlap.
type repeater struct {
	clock    clock.Clock
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

func startRepeater(clk clock.Clock, interval time.Duration, immediate bool, fn func()) *repeater {
	r := &repeater{clock: clk, interval: interval, fn: fn}
	first := interval
	if immediate {
		first = 0
	}
	r.mu.Lock()
	r.timer = clk.AfterFunc(first, r.fire)
	r.mu.Unlock()
	return r
}

func (r *repeater) fire() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.fn()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		r.timer = r.clock.AfterFunc(r.interval, r.fire)
	}
}

func (r *repeater) stop() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
}
