package engine

import "time"

// Scheduler schedules the deferred commit of a passive scene transition.
//
// Production code uses SystemScheduler (time.AfterFunc). Tests inject
// testutil.FakeScheduler and fire the callback by hand, so transition
// timing is deterministic without sleeping.
type Scheduler interface {
	// AfterFunc runs fn on its own goroutine after d elapses. The returned
	// stop function cancels the pending call and reports whether it did.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// SystemScheduler is the wall-clock Scheduler.
type SystemScheduler struct{}

// AfterFunc delegates to time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}
