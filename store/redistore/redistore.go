// Package redistore provides a redis-backed TokenStore and AttemptStore for
// shared deployments such as the logger portal, where several logger
// workstations operate against one session record.
//
// Writes are last-write-wins with no cross-client locking; the backend stays
// authoritative for revocation.
package redistore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/token"
	"github.com/redis/go-redis/v9"
)

// Store persists the token pair and rate-limit record in redis, keyed per
// profile.
type Store struct {
	rdb     redis.UniversalClient
	profile string
	ttl     time.Duration
}

var (
	_ brixauth.TokenStore   = (*Store)(nil)
	_ brixauth.AttemptStore = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithTTL bounds how long records live without being rewritten.
// Default: 30 days, roughly the refresh token lifetime.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// New creates a redis-backed store for the given profile identifier.
func New(rdb redis.UniversalClient, profile string, opts ...Option) *Store {
	s := &Store{
		rdb:     rdb,
		profile: profile,
		ttl:     30 * 24 * time.Hour,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) tokensKey() string   { return "brixauth:tokens:" + s.profile }
func (s *Store) attemptsKey() string { return "brixauth:attempts:" + s.profile }

type storedPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Tokens returns the stored pair, or nil if none is stored.
func (s *Store) Tokens(ctx context.Context) (*brixauth.TokenPair, error) {
	data, err := s.rdb.Get(ctx, s.tokensKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("brixauth/redistore: get tokens: %w", err)
	}

	var sp storedPair
	if err := json.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("brixauth/redistore: decode tokens: %w", err)
	}
	return &brixauth.TokenPair{
		AccessToken:  sp.AccessToken,
		RefreshToken: sp.RefreshToken,
		ExpiresAt:    sp.ExpiresAt,
	}, nil
}

// SetTokens stores a pair with its expiry derived from the access token.
func (s *Store) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := token.DecodeClaims(accessToken)
	if err != nil {
		return fmt.Errorf("brixauth/redistore: derive expiry: %w", err)
	}

	data, err := json.Marshal(storedPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    claims.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("brixauth/redistore: encode tokens: %w", err)
	}

	if err := s.rdb.Set(ctx, s.tokensKey(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("brixauth/redistore: set tokens: %w", err)
	}
	return nil
}

// Clear removes the stored pair.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.tokensKey()).Err(); err != nil {
		return fmt.Errorf("brixauth/redistore: clear tokens: %w", err)
	}
	return nil
}

// Attempts returns the current rate-limit record.
func (s *Store) Attempts(ctx context.Context) (brixauth.AttemptRecord, error) {
	data, err := s.rdb.Get(ctx, s.attemptsKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return brixauth.AttemptRecord{}, nil
	}
	if err != nil {
		return brixauth.AttemptRecord{}, fmt.Errorf("brixauth/redistore: get attempts: %w", err)
	}

	var rec brixauth.AttemptRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return brixauth.AttemptRecord{}, fmt.Errorf("brixauth/redistore: decode attempts: %w", err)
	}
	return rec, nil
}

// SetAttempts replaces the rate-limit record.
func (s *Store) SetAttempts(ctx context.Context, rec brixauth.AttemptRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("brixauth/redistore: encode attempts: %w", err)
	}
	if err := s.rdb.Set(ctx, s.attemptsKey(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("brixauth/redistore: set attempts: %w", err)
	}
	return nil
}

// ClearAttempts resets the rate-limit record.
func (s *Store) ClearAttempts(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.attemptsKey()).Err(); err != nil {
		return fmt.Errorf("brixauth/redistore: clear attempts: %w", err)
	}
	return nil
}
