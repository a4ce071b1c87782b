package brixauth

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an auth failure into the closed taxonomy surfaced to
// callers. UI code switches on Kind; Message is the human-readable mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindUnauthorized
	KindValidation
	KindTokenExpired
	KindRateLimited
)

// String returns the machine name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindTokenExpired:
		return "token_expired"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is the typed error surfaced by the auth service and session
// controller. RetryAfter is set only for KindRateLimited.
type Error struct {
	Kind       Kind
	Message    string
	Code       string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("brixauth: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("brixauth: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// RateLimitedError builds a KindRateLimited error carrying the remaining
// lockout duration.
func RateLimitedError(retryAfter time.Duration) *Error {
	minutes := int(retryAfter.Minutes()) + 1
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("too many login attempts, try again in %d minute(s)", minutes),
		RetryAfter: retryAfter,
	}
}

// KindOf extracts the Kind from err, or KindUnknown if err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
