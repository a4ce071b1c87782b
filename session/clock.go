package session

import "time"

// Timer is a cancellable one-shot timer.
type Timer interface {
	// Stop cancels the timer. It reports whether the timer was still
	// pending; the callback may already be running.
	Stop() bool
}

// Scheduler creates one-shot timers. The controller takes a Scheduler so
// tests can drive refresh scheduling without real time.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
