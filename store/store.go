// Package store provides TokenStore and AttemptStore implementations.
//
// Memory is for tests and short-lived processes; File is the per-profile
// persistent store (the Go analogue of per-browser storage). Neither does any
// locking across processes: concurrent writers are last-write-wins, which is
// acceptable because the backend remains the source of truth for revocation.
package store

import (
	"context"
	"fmt"
	"sync"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/token"
)

// deriveExpiry recomputes the pair's expiry from the access token's exp
// claim. Stored expiry is never taken from any other field.
func deriveExpiry(accessToken, refreshToken string) (*brixauth.TokenPair, error) {
	claims, err := token.DecodeClaims(accessToken)
	if err != nil {
		return nil, fmt.Errorf("brixauth/store: derive expiry: %w", err)
	}
	return &brixauth.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    claims.ExpiresAt,
	}, nil
}

// Memory is an in-memory TokenStore and AttemptStore.
type Memory struct {
	mu       sync.RWMutex
	pair     *brixauth.TokenPair
	attempts brixauth.AttemptRecord
	hasRec   bool
}

var (
	_ brixauth.TokenStore   = (*Memory)(nil)
	_ brixauth.AttemptStore = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

// Tokens returns the stored pair, or nil if none is stored.
func (m *Memory) Tokens(ctx context.Context) (*brixauth.TokenPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pair == nil {
		return nil, nil
	}
	p := *m.pair
	return &p, nil
}

// SetTokens stores a pair with its expiry derived from the access token.
func (m *Memory) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	pair, err := deriveExpiry(accessToken, refreshToken)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()
	return nil
}

// Clear removes the stored pair.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.pair = nil
	m.mu.Unlock()
	return nil
}

// Attempts returns the current rate-limit record.
func (m *Memory) Attempts(ctx context.Context) (brixauth.AttemptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts, nil
}

// SetAttempts replaces the rate-limit record.
func (m *Memory) SetAttempts(ctx context.Context, rec brixauth.AttemptRecord) error {
	m.mu.Lock()
	m.attempts = rec
	m.hasRec = true
	m.mu.Unlock()
	return nil
}

// ClearAttempts resets the rate-limit record.
func (m *Memory) ClearAttempts(ctx context.Context) error {
	m.mu.Lock()
	m.attempts = brixauth.AttemptRecord{}
	m.hasRec = false
	m.mu.Unlock()
	return nil
}
