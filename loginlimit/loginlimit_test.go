package loginlimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/loginlimit"
	"github.com/brixsports/brixauth-go/store"
)

func TestLockoutAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := loginlimit.New(store.NewMemory(),
		loginlimit.WithMaxAttempts(3),
		loginlimit.WithLockout(15*time.Minute),
		loginlimit.WithClock(func() time.Time { return now }),
	)

	for i := 0; i < 2; i++ {
		if err := l.RecordFailure(ctx); err != nil {
			t.Fatal(err)
		}
		if err := l.Check(ctx); err != nil {
			t.Fatalf("Check() after %d failures = %v, want nil", i+1, err)
		}
	}

	// Third failure hits the threshold.
	if err := l.RecordFailure(ctx); err != nil {
		t.Fatal(err)
	}

	err := l.Check(ctx)
	if !brixauth.IsKind(err, brixauth.KindRateLimited) {
		t.Fatalf("Check() = %v, want KindRateLimited", err)
	}
	var authErr *brixauth.Error
	if !errors.As(err, &authErr) {
		t.Fatal("error is not *brixauth.Error")
	}
	if authErr.RetryAfter != 15*time.Minute {
		t.Errorf("RetryAfter = %v, want 15m", authErr.RetryAfter)
	}
}

func TestLockoutExpiresAndResets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	l := loginlimit.New(mem,
		loginlimit.WithMaxAttempts(2),
		loginlimit.WithLockout(10*time.Minute),
		loginlimit.WithClock(func() time.Time { return now }),
	)

	if err := l.RecordFailure(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordFailure(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Check(ctx); !brixauth.IsKind(err, brixauth.KindRateLimited) {
		t.Fatalf("Check() = %v, want KindRateLimited", err)
	}

	// Just before the lockout expires: still locked.
	now = now.Add(10*time.Minute - time.Second)
	if err := l.Check(ctx); !brixauth.IsKind(err, brixauth.KindRateLimited) {
		t.Fatalf("Check() just before deadline = %v, want KindRateLimited", err)
	}

	// At the deadline the record resets to zero.
	now = now.Add(time.Second)
	if err := l.Check(ctx); err != nil {
		t.Fatalf("Check() at deadline = %v, want nil", err)
	}
	rec, err := mem.Attempts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Attempts != 0 {
		t.Errorf("Attempts = %d after expired lockout, want 0", rec.Attempts)
	}
}

func TestWindowExpiryForgetsFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l := loginlimit.New(store.NewMemory(),
		loginlimit.WithMaxAttempts(2),
		loginlimit.WithWindow(5*time.Minute),
		loginlimit.WithClock(func() time.Time { return now }),
	)

	if err := l.RecordFailure(ctx); err != nil {
		t.Fatal(err)
	}

	// A failure after the window restarts the count, so no lockout.
	now = now.Add(6 * time.Minute)
	if err := l.RecordFailure(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Check(ctx); err != nil {
		t.Fatalf("Check() = %v, want nil when failures are outside the window", err)
	}
}

func TestResetClearsCounter(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	l := loginlimit.New(mem, loginlimit.WithMaxAttempts(3))

	if err := l.RecordFailure(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Reset(ctx); err != nil {
		t.Fatal(err)
	}

	rec, err := mem.Attempts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Attempts != 0 {
		t.Errorf("Attempts = %d after Reset, want 0", rec.Attempts)
	}
}
