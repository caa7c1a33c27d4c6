package testutil

import (
	"sync"
	"time"
)

// FakeScheduler captures deferred callbacks instead of arming real timers,
// letting tests decide exactly when a pending transition commits.
//
// Unlike engine.SystemScheduler, FakeScheduler never fires on its own.
// This enables deterministic tests of the deferred-commit path: schedule,
// inspect, then fire (or cancel) under test control.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeScheduler struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// NewFakeScheduler creates a scheduler with no pending callbacks.
func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

// AfterFunc records fn and its delay without starting a timer.
//
// The returned stop function reports true if the callback had not yet
// fired or been stopped, matching time.Timer.Stop semantics.
func (s *FakeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	s.pending = append(s.pending, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.stopped || t.fired {
			return false
		}
		t.stopped = true
		return true
	}
}

// Pending returns the number of callbacks scheduled but not yet fired
// or stopped.
func (s *FakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// LastDelay returns the delay of the most recently scheduled callback.
//
// Returns 0 if nothing has been scheduled.
func (s *FakeScheduler) LastDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return 0
	}
	return s.pending[len(s.pending)-1].delay
}

// Fire runs every live callback in scheduling order.
//
// Callbacks run outside the scheduler lock so they may schedule more work;
// work scheduled during Fire is not run by the same call.
func (s *FakeScheduler) Fire() int {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}
