// Package loginlimit enforces the client-side lockout on failed logins.
//
// The record lives in an AttemptStore under its own key, so it survives
// restarts independently of the token pair. The clock is injected for
// deterministic tests.
package loginlimit

import (
	"context"
	"fmt"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
)

const (
	// DefaultMaxAttempts is the number of consecutive failures allowed
	// before a lockout.
	DefaultMaxAttempts = 5

	// DefaultLockout is how long a lockout lasts.
	DefaultLockout = 15 * time.Minute

	// DefaultWindow is how long failures stay on the counter. A failure
	// older than the window no longer counts toward a lockout.
	DefaultWindow = 15 * time.Minute
)

// Limiter tracks failed login attempts and blocks further attempts once the
// maximum is reached.
type Limiter struct {
	store   brixauth.AttemptStore
	max     int
	lockout time.Duration
	window  time.Duration
	now     func() time.Time
}

// Option configures the Limiter.
type Option func(*Limiter)

// WithMaxAttempts sets the failure threshold.
func WithMaxAttempts(n int) Option {
	return func(l *Limiter) { l.max = n }
}

// WithLockout sets the lockout duration.
func WithLockout(d time.Duration) Option {
	return func(l *Limiter) { l.lockout = d }
}

// WithWindow sets the counting window.
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter persisting its record in store.
func New(store brixauth.AttemptStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:   store,
		max:     DefaultMaxAttempts,
		lockout: DefaultLockout,
		window:  DefaultWindow,
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Check returns a KindRateLimited error when the limiter is locked, carrying
// the remaining lockout. A lockout whose deadline has passed is cleared.
func (l *Limiter) Check(ctx context.Context) error {
	rec, err := l.store.Attempts(ctx)
	if err != nil {
		return fmt.Errorf("brixauth/loginlimit: read record: %w", err)
	}

	now := l.now()
	if rec.Locked(now) {
		return brixauth.RateLimitedError(rec.LockedUntil.Sub(now))
	}

	// An expired lockout resets the counter to zero.
	if !rec.LockedUntil.IsZero() && !now.Before(rec.LockedUntil) {
		if err := l.store.ClearAttempts(ctx); err != nil {
			return fmt.Errorf("brixauth/loginlimit: clear record: %w", err)
		}
	}
	return nil
}

// RecordFailure counts a failed attempt and starts a lockout once the
// threshold is reached.
func (l *Limiter) RecordFailure(ctx context.Context) error {
	rec, err := l.store.Attempts(ctx)
	if err != nil {
		return fmt.Errorf("brixauth/loginlimit: read record: %w", err)
	}

	now := l.now()

	// Failures older than the window no longer count.
	if !rec.LastAttemptAt.IsZero() && now.Sub(rec.LastAttemptAt) > l.window {
		rec = brixauth.AttemptRecord{}
	}

	rec.Attempts++
	rec.LastAttemptAt = now
	if rec.Attempts >= l.max {
		rec.LockedUntil = now.Add(l.lockout)
	}

	if err := l.store.SetAttempts(ctx, rec); err != nil {
		return fmt.Errorf("brixauth/loginlimit: write record: %w", err)
	}
	return nil
}

// Reset clears the record after a successful login.
func (l *Limiter) Reset(ctx context.Context) error {
	if err := l.store.ClearAttempts(ctx); err != nil {
		return fmt.Errorf("brixauth/loginlimit: reset: %w", err)
	}
	return nil
}
