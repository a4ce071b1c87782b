package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
)

// Storage file names. Tokens and the rate-limit record live under distinct
// keys so clearing one never touches the other.
const (
	tokensFile   = "tokens.json"
	attemptsFile = "login_attempts.json"
)

// File is a TokenStore and AttemptStore persisted as JSON files in a
// directory, scoped per profile.
type File struct {
	dir string
	mu  sync.Mutex
}

var (
	_ brixauth.TokenStore   = (*File)(nil)
	_ brixauth.AttemptStore = (*File)(nil)
)

// NewFile creates a file-backed store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("brixauth/store: create dir: %w", err)
	}
	return &File{dir: dir}, nil
}

type storedPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type storedAttempts struct {
	Attempts      int       `json:"attempts"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
	LockedUntil   time.Time `json:"locked_until,omitempty"`
}

// Tokens returns the stored pair, or nil if none is stored.
func (f *File) Tokens(ctx context.Context) (*brixauth.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sp storedPair
	ok, err := f.read(tokensFile, &sp)
	if err != nil || !ok {
		return nil, err
	}
	return &brixauth.TokenPair{
		AccessToken:  sp.AccessToken,
		RefreshToken: sp.RefreshToken,
		ExpiresAt:    sp.ExpiresAt,
	}, nil
}

// SetTokens stores a pair with its expiry derived from the access token.
func (f *File) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	pair, err := deriveExpiry(accessToken, refreshToken)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(tokensFile, storedPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	})
}

// Clear removes the stored pair.
func (f *File) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove(tokensFile)
}

// Attempts returns the current rate-limit record.
func (f *File) Attempts(ctx context.Context) (brixauth.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sa storedAttempts
	ok, err := f.read(attemptsFile, &sa)
	if err != nil || !ok {
		return brixauth.AttemptRecord{}, err
	}
	return brixauth.AttemptRecord{
		Attempts:      sa.Attempts,
		LastAttemptAt: sa.LastAttemptAt,
		LockedUntil:   sa.LockedUntil,
	}, nil
}

// SetAttempts replaces the rate-limit record.
func (f *File) SetAttempts(ctx context.Context, rec brixauth.AttemptRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(attemptsFile, storedAttempts{
		Attempts:      rec.Attempts,
		LastAttemptAt: rec.LastAttemptAt,
		LockedUntil:   rec.LockedUntil,
	})
}

// ClearAttempts resets the rate-limit record.
func (f *File) ClearAttempts(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove(attemptsFile)
}

func (f *File) read(name string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("brixauth/store: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("brixauth/store: decode %s: %w", name, err)
	}
	return true, nil
}

func (f *File) write(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("brixauth/store: encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(f.dir, name), data, 0o600); err != nil {
		return fmt.Errorf("brixauth/store: write %s: %w", name, err)
	}
	return nil
}

func (f *File) remove(name string) error {
	err := os.Remove(filepath.Join(f.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("brixauth/store: remove %s: %w", name, err)
	}
	return nil
}
