// Package brixauth provides the role-based authentication and session
// lifecycle SDK for the BrixSports platform.
//
// The root package defines shared types, the closed error taxonomy, and the
// interfaces between components. Concrete implementations live in
// subpackages and are injected via Option functions, so the SDK has no
// hard dependency on any particular storage or transport:
//
//	client, err := brixauth.NewClient(
//	    brixauth.Config{BaseURL: "https://api.brixsports.app"},
//	    brixauth.WithTokenStore(store.NewFile(dir)),
//	    brixauth.WithAuthAPI(api),
//	    brixauth.WithVerifier(verifier),
//	)
package brixauth

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultTimeout bounds every network call the SDK makes.
const DefaultTimeout = 15 * time.Second

// DefaultRefreshBuffer is how long before expiry the session controller
// refreshes the access token.
const DefaultRefreshBuffer = 5 * time.Minute

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the address of the BrixSports backend (e.g. "https://api.brixsports.app").
	BaseURL string

	// Timeout bounds each network call. Default: 15 seconds.
	Timeout time.Duration

	// RefreshBuffer is how long before expiry to refresh the access token.
	// Default: 5 minutes.
	RefreshBuffer time.Duration

	// MaxLoginAttempts is the number of consecutive failed logins allowed
	// before the client locks out. Default: 5.
	MaxLoginAttempts int

	// LockoutDuration is how long a lockout lasts. Default: 15 minutes.
	LockoutDuration time.Duration

	// EnableDemoAuth enables the local demo login path that fabricates a
	// session without a backend. Never enable in production builds.
	EnableDemoAuth bool

	// DemoRole overrides the role used by demo login. Default: user.
	DemoRole Role
}

// Client is the main entry point. Component implementations are injected via
// Option functions.
type Client struct {
	config   Config
	logger   *slog.Logger
	store    TokenStore
	attempts AttemptStore
	api      AuthAPI
	verifier SessionVerifier
	authz    Authorizer
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTokenStore sets the token persistence implementation.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.store = s }
}

// WithAttemptStore sets the rate-limit record persistence implementation.
func WithAttemptStore(s AttemptStore) Option {
	return func(c *Client) { c.attempts = s }
}

// WithAuthAPI sets the backend auth client implementation.
func WithAuthAPI(a AuthAPI) Option {
	return func(c *Client) { c.api = a }
}

// WithVerifier sets the server-side token verification implementation.
func WithVerifier(v SessionVerifier) Option {
	return func(c *Client) { c.verifier = v }
}

// WithAuthorizer sets the authorization matrix implementation.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Client) { c.authz = a }
}

// NewClient creates a new client with the given configuration and options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" && !cfg.EnableDemoAuth {
		return nil, fmt.Errorf("brixauth: BaseURL is required unless demo auth is enabled")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RefreshBuffer == 0 {
		cfg.RefreshBuffer = DefaultRefreshBuffer
	}
	if cfg.MaxLoginAttempts == 0 {
		cfg.MaxLoginAttempts = 5
	}
	if cfg.LockoutDuration == 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.DemoRole == "" {
		cfg.DemoRole = RoleUser
	}

	c := &Client{config: cfg}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the configured logger, or slog.Default() if none was set.
func (c *Client) Logger() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Store returns the token store, or nil if not configured.
func (c *Client) Store() TokenStore { return c.store }

// Attempts returns the rate-limit record store, or nil if not configured.
func (c *Client) Attempts() AttemptStore { return c.attempts }

// API returns the backend auth client, or nil if not configured.
func (c *Client) API() AuthAPI { return c.api }

// Verifier returns the token verifier, or nil if not configured.
func (c *Client) Verifier() SessionVerifier { return c.verifier }

// Authz returns the authorizer, or nil if not configured.
func (c *Client) Authz() Authorizer { return c.authz }

// Close releases all resources held by the client.
// Any injected component that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{c.store, c.attempts, c.api, c.verifier, c.authz}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
