package brixauth

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

type closableStore struct {
	closed bool
}

func (s *closableStore) Tokens(context.Context) (*TokenPair, error)      { return nil, nil }
func (s *closableStore) SetTokens(context.Context, string, string) error { return nil }
func (s *closableStore) Clear(context.Context) error                     { return nil }
func (s *closableStore) Close() error                                    { s.closed = true; return nil }

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("NewClient accepted an empty config")
	}
}

func TestNewClientDemoAuthSkipsBaseURL(t *testing.T) {
	c, err := NewClient(Config{EnableDemoAuth: true})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if c.Config().DemoRole != RoleUser {
		t.Errorf("DemoRole = %q, want %q", c.Config().DemoRole, RoleUser)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "https://api.brixsports.io"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	cfg := c.Config()
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.RefreshBuffer != DefaultRefreshBuffer {
		t.Errorf("RefreshBuffer = %v, want %v", cfg.RefreshBuffer, DefaultRefreshBuffer)
	}
	if cfg.MaxLoginAttempts != 5 {
		t.Errorf("MaxLoginAttempts = %d, want 5", cfg.MaxLoginAttempts)
	}
	if cfg.LockoutDuration != 15*time.Minute {
		t.Errorf("LockoutDuration = %v, want 15m", cfg.LockoutDuration)
	}
}

func TestNewClientOverrides(t *testing.T) {
	cfg := Config{
		BaseURL:          "https://api.brixsports.io",
		Timeout:          3 * time.Second,
		RefreshBuffer:    time.Minute,
		MaxLoginAttempts: 2,
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if got := c.Config().Timeout; got != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", got)
	}
	if got := c.Config().MaxLoginAttempts; got != 2 {
		t.Errorf("MaxLoginAttempts = %d, want 2", got)
	}
}

func TestClientOptionInjection(t *testing.T) {
	store := &closableStore{}
	logger := slog.Default()
	c, err := NewClient(Config{BaseURL: "https://api.brixsports.io"},
		WithTokenStore(store),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if c.Store() != store {
		t.Error("Store() did not return the injected store")
	}
	if c.Logger() != logger {
		t.Error("Logger() did not return the injected logger")
	}
	if c.API() != nil || c.Verifier() != nil || c.Authz() != nil {
		t.Error("unconfigured components should be nil")
	}
}

func TestClientCloseClosesComponents(t *testing.T) {
	store := &closableStore{}
	c, err := NewClient(Config{BaseURL: "https://api.brixsports.io"}, WithTokenStore(store))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !store.closed {
		t.Error("Close() did not close the token store")
	}
}
