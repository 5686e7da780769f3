// Package debounce provides a restartable, cancellable one-shot timer.
package debounce

import (
	"sync"
	"time"
)

// Timer runs fn once after delay has passed without another Reset. A fire
// that races with Reset or Cancel is discarded, so fn never runs for a
// superseded arm.
type Timer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	running sync.WaitGroup
}

// New creates a stopped timer.
func New(delay time.Duration, fn func()) *Timer {
	return &Timer{delay: delay, fn: fn}
}

// Reset (re)arms the timer. Any pending run is superseded.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil && t.timer.Stop() {
		t.running.Done()
	}
	t.gen++
	gen := t.gen
	t.running.Add(1)
	t.timer = time.AfterFunc(t.delay, func() { t.fire(gen) })
}

func (t *Timer) fire(gen uint64) {
	defer t.running.Done()

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.mu.Unlock()

	t.fn()
}

// Cancel stops a pending run. It reports whether one was pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer == nil {
		return false
	}
	t.gen++
	if t.timer.Stop() {
		// The callback will never run, so release its slot here.
		t.running.Done()
	}
	t.timer = nil
	return true
}

// Pending reports whether a run is scheduled.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// Wait blocks until no callback is running or scheduled. It must not be
// called concurrently with Reset from outside a callback.
func (t *Timer) Wait() {
	t.running.Wait()
}
