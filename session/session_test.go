package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/session"
	"github.com/brixsports/brixauth-go/store"
	"github.com/golang-jwt/jwt/v5"
)

// fakeScheduler records scheduled timers; tests fire them by hand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) session.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs the i-th scheduled timer as real time elapsing would,
// regardless of Stop: the generation guard inside the controller must make
// cancelled timers harmless even when the callback races the cancellation.
func (s *fakeScheduler) fire(i int) {
	s.mu.Lock()
	t := s.timers[i]
	t.fired = true
	s.mu.Unlock()
	t.fn()
}

func (s *fakeScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeAPI implements brixauth.AuthAPI with call counters.
type fakeAPI struct {
	mu sync.Mutex

	loginResult *brixauth.LoginResult
	loginErr    error
	refreshPair *brixauth.TokenPair
	refreshErr  error
	user        *brixauth.User
	validateErr error

	loginCalls    int
	refreshCalls  int
	validateCalls int
	logoutCalls   int
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*brixauth.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResult, nil
}

func (f *fakeAPI) Refresh(ctx context.Context, refreshToken string) (*brixauth.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshPair, nil
}

func (f *fakeAPI) Validate(ctx context.Context, accessToken string) (*brixauth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return f.user, nil
}

func (f *fakeAPI) Logout(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return nil
}

func (f *fakeAPI) counts() (login, refresh, validate, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshCalls, f.validateCalls, f.logoutCalls
}

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, sub string, role brixauth.Role, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": string(role),
		"name": "Test User",
		"exp":  exp.Unix(),
		"iat":  baseTime.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

type fixture struct {
	ctrl  *session.Controller
	store *store.Memory
	api   *fakeAPI
	sched *fakeScheduler
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewMemory(),
		api:   &fakeAPI{},
		sched: &fakeScheduler{},
		now:   baseTime,
	}
	f.ctrl = session.New(f.store, f.api,
		session.WithClock(func() time.Time { return f.now }),
		session.WithScheduler(f.sched),
	)
	return f
}

func TestInitialize_NoStoredToken(t *testing.T) {
	f := newFixture(t)

	state := f.ctrl.Initialize(context.Background())
	if state != session.StateUnauthenticated {
		t.Fatalf("state = %v, want unauthenticated", state)
	}
	if f.ctrl.Err() != nil {
		t.Errorf("Err() = %v, want nil", f.ctrl.Err())
	}
	_, refresh, validate, _ := f.api.counts()
	if refresh != 0 || validate != 0 {
		t.Errorf("network calls = refresh %d validate %d, want none", refresh, validate)
	}
}

func TestInitialize_ValidToken(t *testing.T) {
	f := newFixture(t)
	exp := baseTime.Add(1 * time.Hour)
	access := signToken(t, "user-1", brixauth.RoleUser, exp)
	if err := f.store.SetTokens(context.Background(), access, "refresh-1"); err != nil {
		t.Fatal(err)
	}
	f.api.user = &brixauth.User{ID: "user-1", Role: brixauth.RoleUser}

	state := f.ctrl.Initialize(context.Background())
	if state != session.StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", state)
	}

	_, refresh, validate, _ := f.api.counts()
	if validate != 1 {
		t.Errorf("validate calls = %d, want 1", validate)
	}
	if refresh != 0 {
		t.Errorf("refresh calls = %d, want 0", refresh)
	}

	sess := f.ctrl.Current()
	if sess == nil || sess.User.ID != "user-1" {
		t.Fatalf("Current() = %+v", sess)
	}
	if !sess.ExpiresAt.Equal(time.Unix(exp.Unix(), 0)) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, exp)
	}

	// One refresh timer, armed at expiry minus the 5 minute buffer.
	if f.sched.pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", f.sched.pending())
	}
	if got, want := f.sched.timers[0].delay, 55*time.Minute; got != want {
		t.Errorf("timer delay = %v, want %v", got, want)
	}
}

func TestInitialize_ExpiredTokenRefreshes(t *testing.T) {
	f := newFixture(t)
	stale := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(-time.Minute))
	if err := f.store.SetTokens(context.Background(), stale, "refresh-1"); err != nil {
		t.Fatal(err)
	}

	fresh := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(time.Hour))
	f.api.refreshPair = &brixauth.TokenPair{AccessToken: fresh, RefreshToken: "refresh-2"}

	state := f.ctrl.Initialize(context.Background())
	if state != session.StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", state)
	}

	_, refresh, validate, _ := f.api.counts()
	if refresh != 1 {
		t.Errorf("refresh calls = %d, want 1", refresh)
	}
	// The stale token is never validated.
	if validate != 0 {
		t.Errorf("validate calls = %d, want 0", validate)
	}

	pair, err := f.store.Tokens(context.Background())
	if err != nil || pair == nil {
		t.Fatalf("Tokens() = %v, %v", pair, err)
	}
	if pair.AccessToken != fresh || pair.RefreshToken != "refresh-2" {
		t.Errorf("stored pair = %+v", pair)
	}
}

func TestInitialize_RefreshFailureClearsStore(t *testing.T) {
	f := newFixture(t)
	stale := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(-time.Minute))
	if err := f.store.SetTokens(context.Background(), stale, "refresh-1"); err != nil {
		t.Fatal(err)
	}
	f.api.refreshErr = brixauth.NewError(brixauth.KindUnauthorized, "refresh token invalid")

	state := f.ctrl.Initialize(context.Background())
	if state != session.StateUnauthenticated {
		t.Fatalf("state = %v, want unauthenticated", state)
	}
	if !brixauth.IsKind(f.ctrl.Err(), brixauth.KindUnauthorized) {
		t.Errorf("Err() = %v, want KindUnauthorized", f.ctrl.Err())
	}
	pair, _ := f.store.Tokens(context.Background())
	if pair != nil {
		t.Error("store should be cleared after unrecoverable refresh failure")
	}
}

func TestInitialize_ValidateFailureClearsStore(t *testing.T) {
	f := newFixture(t)
	access := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(time.Hour))
	if err := f.store.SetTokens(context.Background(), access, "refresh-1"); err != nil {
		t.Fatal(err)
	}
	f.api.validateErr = brixauth.NewError(brixauth.KindUnauthorized, "revoked")

	state := f.ctrl.Initialize(context.Background())
	if state != session.StateUnauthenticated {
		t.Fatalf("state = %v, want unauthenticated", state)
	}
	if !brixauth.IsKind(f.ctrl.Err(), brixauth.KindUnauthorized) {
		t.Errorf("Err() = %v, want KindUnauthorized", f.ctrl.Err())
	}
	pair, _ := f.store.Tokens(context.Background())
	if pair != nil {
		t.Error("store should be cleared after validation failure")
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	access := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(time.Hour))
	f.api.loginResult = &brixauth.LoginResult{
		User:         brixauth.User{ID: "user-1", Role: brixauth.RoleUser},
		AccessToken:  access,
		RefreshToken: "refresh-1",
	}

	sess, err := f.ctrl.Login(context.Background(), "fan@campus.edu", "pw")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if sess.User.ID != "user-1" {
		t.Errorf("User.ID = %q", sess.User.ID)
	}
	if f.ctrl.State() != session.StateAuthenticated {
		t.Errorf("state = %v, want authenticated", f.ctrl.State())
	}
	if f.sched.pending() != 1 {
		t.Errorf("pending timers = %d, want 1", f.sched.pending())
	}
}

func TestLogin_FailurePropagatesTypedError(t *testing.T) {
	f := newFixture(t)
	f.api.loginErr = brixauth.NewError(brixauth.KindRateLimited, "locked")

	_, err := f.ctrl.Login(context.Background(), "fan@campus.edu", "pw")
	if !brixauth.IsKind(err, brixauth.KindRateLimited) {
		t.Fatalf("err = %v, want KindRateLimited", err)
	}
	if f.ctrl.LoggingIn() {
		t.Error("LoggingIn flag not cleared after failure")
	}
}

func TestRelogin_CancelsPreviousTimer(t *testing.T) {
	f := newFixture(t)
	access := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(time.Hour))
	f.api.loginResult = &brixauth.LoginResult{
		User:         brixauth.User{ID: "user-1", Role: brixauth.RoleUser},
		AccessToken:  access,
		RefreshToken: "refresh-1",
	}

	if _, err := f.ctrl.Login(context.Background(), "fan@campus.edu", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ctrl.Login(context.Background(), "fan@campus.edu", "pw"); err != nil {
		t.Fatal(err)
	}

	if f.sched.pending() != 1 {
		t.Errorf("pending timers = %d after re-login, want 1", f.sched.pending())
	}
}

func TestLogoutRace_CancelledTimerDoesNotRefresh(t *testing.T) {
	f := newFixture(t)
	access := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(time.Hour))
	f.api.loginResult = &brixauth.LoginResult{
		User:         brixauth.User{ID: "user-1", Role: brixauth.RoleUser},
		AccessToken:  access,
		RefreshToken: "refresh-1",
	}

	if _, err := f.ctrl.Login(context.Background(), "fan@campus.edu", "pw"); err != nil {
		t.Fatal(err)
	}
	f.ctrl.Logout(context.Background())

	if f.ctrl.State() != session.StateUnauthenticated {
		t.Fatalf("state = %v, want unauthenticated", f.ctrl.State())
	}
	pair, _ := f.store.Tokens(context.Background())
	if pair != nil {
		t.Error("store not cleared on logout")
	}

	// Fast-forward past the original refresh delay: the superseded timer
	// fires but must not hit the network.
	f.sched.fire(0)
	_, refresh, _, _ := f.api.counts()
	if refresh != 0 {
		t.Errorf("refresh calls = %d after logout, want 0", refresh)
	}
}

func TestAutoRefresh_Reschedules(t *testing.T) {
	f := newFixture(t)
	access := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(time.Hour))
	f.api.loginResult = &brixauth.LoginResult{
		User:         brixauth.User{ID: "user-1", Role: brixauth.RoleUser},
		AccessToken:  access,
		RefreshToken: "refresh-1",
	}

	if _, err := f.ctrl.Login(context.Background(), "fan@campus.edu", "pw"); err != nil {
		t.Fatal(err)
	}

	// Advance the clock to the refresh point and hand the timer a fresh pair.
	f.now = baseTime.Add(55 * time.Minute)
	fresh := signToken(t, "user-1", brixauth.RoleUser, f.now.Add(time.Hour))
	f.api.refreshPair = &brixauth.TokenPair{AccessToken: fresh, RefreshToken: "refresh-2"}

	f.sched.fire(0)

	_, refresh, _, _ := f.api.counts()
	if refresh != 1 {
		t.Fatalf("refresh calls = %d, want 1", refresh)
	}
	if f.ctrl.State() != session.StateAuthenticated {
		t.Errorf("state = %v, want authenticated", f.ctrl.State())
	}

	// Exactly one new timer pending; the fired one is gone.
	if f.sched.pending() != 1 {
		t.Errorf("pending timers = %d after refresh, want 1", f.sched.pending())
	}
	sess := f.ctrl.Current()
	if sess == nil || !sess.ExpiresAt.Equal(time.Unix(f.now.Add(time.Hour).Unix(), 0)) {
		t.Errorf("session expiry not advanced: %+v", sess)
	}
}

func TestAutoRefresh_FailureLeavesStateForNextAction(t *testing.T) {
	f := newFixture(t)
	access := signToken(t, "user-1", brixauth.RoleUser, baseTime.Add(time.Hour))
	f.api.loginResult = &brixauth.LoginResult{
		User:         brixauth.User{ID: "user-1", Role: brixauth.RoleUser},
		AccessToken:  access,
		RefreshToken: "refresh-1",
	}

	if _, err := f.ctrl.Login(context.Background(), "fan@campus.edu", "pw"); err != nil {
		t.Fatal(err)
	}
	f.api.refreshErr = brixauth.NewError(brixauth.KindUnauthorized, "revoked")

	f.sched.fire(0)

	if f.ctrl.State() != session.StateAuthenticated {
		t.Errorf("state = %v, want authenticated (left for next explicit action)", f.ctrl.State())
	}
	if !brixauth.IsKind(f.ctrl.Err(), brixauth.KindUnauthorized) {
		t.Errorf("Err() = %v, want KindUnauthorized", f.ctrl.Err())
	}
	// The rejected refresh token is unrecoverable, so the store is empty.
	pair, _ := f.store.Tokens(context.Background())
	if pair != nil {
		t.Error("store should be cleared after unrecoverable refresh failure")
	}
}

func TestDemoLogin(t *testing.T) {
	f := newFixture(t)

	// Disabled by default.
	if _, err := f.ctrl.DemoLogin(context.Background()); err == nil {
		t.Fatal("DemoLogin() expected error when disabled")
	}

	ctrl := session.New(f.store, f.api,
		session.WithClock(func() time.Time { return f.now }),
		session.WithScheduler(f.sched),
		session.WithDemoAuth(brixauth.RoleLoggerAdmin),
	)
	sess, err := ctrl.DemoLogin(context.Background())
	if err != nil {
		t.Fatalf("DemoLogin() error: %v", err)
	}
	if sess.User.Role != brixauth.RoleLoggerAdmin {
		t.Errorf("Role = %q, want logger-admin", sess.User.Role)
	}
	if ctrl.State() != session.StateAuthenticated {
		t.Errorf("state = %v, want authenticated", ctrl.State())
	}
	// Demo sessions do not arm a refresh timer.
	if f.sched.pending() != 0 {
		t.Errorf("pending timers = %d, want 0", f.sched.pending())
	}
}
