// Package session owns the client session lifecycle: initialization from
// stored tokens, login, logout, and automatic pre-expiry refresh.
//
// The controller is the single writer over the token store. It exposes a
// small state machine; UI consumers read state and the current session
// through it and never mutate either directly.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/token"
	"golang.org/x/sync/singleflight"
)

// State is the controller's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateUnauthenticated
	StateRefreshing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Controller orchestrates the session lifecycle over an injected store,
// backend client, clock and scheduler.
type Controller struct {
	store  brixauth.TokenStore
	api    brixauth.AuthAPI
	logger *slog.Logger
	now    func() time.Time
	sched  Scheduler

	refreshBuffer time.Duration
	callTimeout   time.Duration

	demoEnabled bool
	demoRole    brixauth.Role

	sf singleflight.Group

	mu        sync.Mutex
	state     State
	session   *brixauth.Session
	lastErr   error
	loggingIn bool
	timer     Timer
	timerGen  uint64
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithScheduler sets the timer factory, for tests.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithRefreshBuffer sets how long before expiry the controller refreshes.
// Default: 5 minutes.
func WithRefreshBuffer(d time.Duration) Option {
	return func(c *Controller) { c.refreshBuffer = d }
}

// WithCallTimeout bounds the background network calls the controller makes
// on its own (timer refresh, logout notification). Default: 15 seconds.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Controller) { c.callTimeout = d }
}

// WithDemoAuth enables the local demo login path with the given role.
// Demo sessions fabricate unsigned trust; never enable in production.
func WithDemoAuth(role brixauth.Role) Option {
	return func(c *Controller) {
		c.demoEnabled = true
		c.demoRole = role
	}
}

// New creates a controller. The store is the only place tokens are
// persisted and the controller is its only writer.
func New(store brixauth.TokenStore, api brixauth.AuthAPI, opts ...Option) *Controller {
	c := &Controller{
		store:         store,
		api:           api,
		logger:        slog.Default(),
		now:           time.Now,
		sched:         realScheduler{},
		refreshBuffer: brixauth.DefaultRefreshBuffer,
		callTimeout:   brixauth.DefaultTimeout,
		demoRole:      brixauth.RoleUser,
		state:         StateUninitialized,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns a copy of the current session, or nil when there is none.
func (c *Controller) Current() *brixauth.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Err returns the last recorded error, for UI display. Initialization
// failures land here rather than being returned.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LoggingIn reports whether a login call is in flight.
func (c *Controller) LoggingIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggingIn
}

// Initialize restores the session from the token store. It never returns an
// error: every failure path resolves to StateUnauthenticated with the cause
// observable via Err. Calling it again after the first completed run is a
// no-op.
func (c *Controller) Initialize(ctx context.Context) State {
	c.mu.Lock()
	if c.state != StateUninitialized {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.state = StateInitializing
	c.mu.Unlock()

	pair, err := c.store.Tokens(ctx)
	if err != nil {
		c.logger.Warn("reading stored tokens", "error", err)
		c.becomeUnauthenticated(err, false)
		return StateUnauthenticated
	}
	if pair == nil {
		c.becomeUnauthenticated(nil, false)
		return StateUnauthenticated
	}

	if token.IsExpired(pair.AccessToken, c.now()) {
		// Stale access token: go straight to refresh, never validate it.
		newPair, err := c.refreshAndStore(ctx, pair.RefreshToken)
		if err != nil {
			c.becomeUnauthenticated(err, true)
			return StateUnauthenticated
		}
		claims, err := token.DecodeClaims(newPair.AccessToken)
		if err != nil {
			c.becomeUnauthenticated(err, true)
			return StateUnauthenticated
		}
		c.becomeAuthenticated(brixauth.Session{
			User: brixauth.User{
				ID:    claims.Subject,
				Name:  claims.Name,
				Email: claims.Email,
				Role:  claims.Role,
			},
			ExpiresAt: newPair.ExpiresAt,
		})
		return StateAuthenticated
	}

	user, err := c.api.Validate(ctx, pair.AccessToken)
	if err != nil {
		c.becomeUnauthenticated(err, true)
		return StateUnauthenticated
	}
	c.becomeAuthenticated(brixauth.Session{User: *user, ExpiresAt: pair.ExpiresAt})
	return StateAuthenticated
}

// Login authenticates with the backend, stores the tokens and transitions to
// StateAuthenticated. The typed error is re-thrown for the UI to display.
func (c *Controller) Login(ctx context.Context, email, password string) (*brixauth.Session, error) {
	c.mu.Lock()
	c.loggingIn = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loggingIn = false
		c.mu.Unlock()
	}()

	res, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return nil, err
	}

	if err := c.store.SetTokens(ctx, res.AccessToken, res.RefreshToken); err != nil {
		return nil, fmt.Errorf("brixauth/session: storing tokens: %w", err)
	}
	pair, err := c.store.Tokens(ctx)
	if err != nil || pair == nil {
		return nil, fmt.Errorf("brixauth/session: reading back tokens: %w", err)
	}

	sess := brixauth.Session{User: res.User, ExpiresAt: pair.ExpiresAt}
	c.becomeAuthenticated(sess)
	c.logger.Debug("logged in", "user", res.User.ID, "role", res.User.Role)
	return &sess, nil
}

// Logout clears local state synchronously, then notifies the backend on a
// best-effort basis. The caller never waits on the network: local logout is
// authoritative.
func (c *Controller) Logout(ctx context.Context) {
	pair, _ := c.store.Tokens(ctx)

	c.mu.Lock()
	c.cancelTimerLocked()
	c.session = nil
	c.state = StateUnauthenticated
	c.lastErr = nil
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("clearing token store", "error", err)
	}

	if pair != nil && pair.AccessToken != "" {
		access := pair.AccessToken
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
			defer cancel()
			if err := c.api.Logout(ctx, access); err != nil {
				// Server-side invalidation is best effort.
				c.logger.Debug("logout notification failed", "error", err)
			}
		}()
	}
}

// Refresh exchanges the stored refresh token for a new pair. Concurrent
// callers — including the auto-refresh timer — share a single flight.
func (c *Controller) Refresh(ctx context.Context) error {
	_, err, _ := c.sf.Do("refresh", func() (any, error) {
		pair, err := c.store.Tokens(ctx)
		if err != nil {
			return nil, fmt.Errorf("brixauth/session: reading tokens: %w", err)
		}
		if pair == nil {
			return nil, brixauth.NewError(brixauth.KindUnauthorized, "no session to refresh")
		}

		c.mu.Lock()
		if c.state == StateAuthenticated {
			c.state = StateRefreshing
		}
		c.mu.Unlock()

		newPair, err := c.refreshAndStore(ctx, pair.RefreshToken)
		if err != nil {
			c.mu.Lock()
			if c.state == StateRefreshing {
				c.state = StateAuthenticated
			}
			c.lastErr = err
			c.mu.Unlock()
			return nil, err
		}

		c.mu.Lock()
		if c.session != nil {
			c.session.ExpiresAt = newPair.ExpiresAt
		}
		if c.state == StateRefreshing {
			c.state = StateAuthenticated
		}
		expiresAt := newPair.ExpiresAt
		c.mu.Unlock()

		c.scheduleRefresh(expiresAt)
		return nil, nil
	})
	return err
}

// DemoLogin fabricates a local session without a network call. Only
// available when demo auth was enabled at construction.
func (c *Controller) DemoLogin(ctx context.Context) (*brixauth.Session, error) {
	if !c.demoEnabled {
		return nil, brixauth.NewError(brixauth.KindUnauthorized, "demo auth is disabled")
	}

	sess := brixauth.Session{
		User: brixauth.User{
			ID:    "demo-user",
			Name:  "Demo User",
			Email: "demo@brixsports.local",
			Role:  c.demoRole,
		},
		ExpiresAt: c.now().Add(1 * time.Hour),
	}

	c.mu.Lock()
	// Demo sessions never schedule a refresh: there is no backend to
	// refresh against.
	c.cancelTimerLocked()
	s := sess
	c.session = &s
	c.state = StateAuthenticated
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Warn("demo login used", "role", c.demoRole)
	return &sess, nil
}

// Close cancels any pending refresh timer.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.mu.Unlock()
	return nil
}

// refreshAndStore performs the backend refresh and persists the new pair,
// returning the stored pair with its re-derived expiry. On failure the
// store is cleared: a rejected refresh token means the session is
// unrecoverable.
func (c *Controller) refreshAndStore(ctx context.Context, refreshToken string) (*brixauth.TokenPair, error) {
	newPair, err := c.api.Refresh(ctx, refreshToken)
	if err != nil {
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.logger.Warn("clearing token store after failed refresh", "error", clearErr)
		}
		return nil, err
	}
	if err := c.store.SetTokens(ctx, newPair.AccessToken, newPair.RefreshToken); err != nil {
		return nil, err
	}
	stored, err := c.store.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("brixauth/session: token store lost the refreshed pair")
	}
	return stored, nil
}

// becomeAuthenticated installs the session and schedules the pre-expiry
// refresh, superseding any previous timer.
func (c *Controller) becomeAuthenticated(sess brixauth.Session) {
	c.mu.Lock()
	s := sess
	c.session = &s
	c.state = StateAuthenticated
	c.lastErr = nil
	c.mu.Unlock()

	c.scheduleRefresh(sess.ExpiresAt)
}

func (c *Controller) becomeUnauthenticated(cause error, clearStore bool) {
	if clearStore {
		if err := c.store.Clear(context.Background()); err != nil {
			c.logger.Warn("clearing token store", "error", err)
		}
	}
	c.mu.Lock()
	c.cancelTimerLocked()
	c.session = nil
	c.state = StateUnauthenticated
	c.lastErr = cause
	c.mu.Unlock()
}

// scheduleRefresh arms a one-shot timer at expiry minus the buffer. Exactly
// one timer is live per controller: arming cancels the previous one, and a
// stale timer that already fired is ignored via the generation counter.
func (c *Controller) scheduleRefresh(expiresAt time.Time) {
	delay := expiresAt.Sub(c.now()) - c.refreshBuffer
	if delay < 0 {
		delay = 0
	}

	c.mu.Lock()
	c.cancelTimerLocked()
	c.timerGen++
	gen := c.timerGen
	c.timer = c.sched.AfterFunc(delay, func() { c.onRefreshTimer(gen) })
	c.mu.Unlock()
}

func (c *Controller) onRefreshTimer(gen uint64) {
	c.mu.Lock()
	// A timer superseded by logout or re-login must never refresh against
	// the new session.
	if gen != c.timerGen || c.state != StateAuthenticated {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
	defer cancel()
	if err := c.Refresh(ctx); err != nil {
		// Leave the state for the next explicit action; the UI may treat
		// this as logged out.
		c.logger.Warn("background refresh failed", "error", err)
	}
}

// cancelTimerLocked stops any pending timer and invalidates fired-but-not-
// yet-run callbacks. Callers must hold c.mu.
func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}
