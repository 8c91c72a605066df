package search

import (
	"sync"
	"time"
)

// timer is the subset of *time.Timer the debouncer needs.
type timer interface {
	Stop() bool
}

// afterFunc matches time.AfterFunc so tests can drive time by hand.
type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs the most recently triggered function once the input has
// been quiet for the configured delay (trailing edge).
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	after afterFunc
	timer timer
	gen   uint64
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, after: realAfterFunc}
}

// Trigger (re)arms the timer. Any earlier pending call is dropped.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen

	d.timer = d.after(d.delay, func() {
		d.mu.Lock()
		// A timer that already fired can race with Stop; the generation check drops it.
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		fn()
	})
}

// Cancel drops the pending call, if any. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Pending reports whether a call is waiting for the quiet period to end.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
