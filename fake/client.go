package fake

import (
	"context"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/authz"
	"github.com/brixsports/brixauth-go/store"
)

// API exposes the backend as a direct brixauth.AuthAPI, skipping HTTP.
// Useful in unit tests that exercise the session controller without a
// network layer; integration tests should prefer Handler() + httptest.
type API struct {
	b *Backend
}

var _ brixauth.AuthAPI = (*API)(nil)

// API returns an in-process AuthAPI over this backend.
func (b *Backend) API() *API { return &API{b: b} }

func (a *API) Login(ctx context.Context, email, password string) (*brixauth.LoginResult, error) {
	acct, err := a.b.checkCredentials(email, password)
	if err != nil {
		return nil, err
	}
	token, refreshToken, err := a.b.issue(acct.user)
	if err != nil {
		return nil, &brixauth.Error{Kind: brixauth.KindUnknown, Message: "token issuance failed", Err: err}
	}
	return &brixauth.LoginResult{
		User:         acct.user,
		AccessToken:  token,
		RefreshToken: refreshToken,
	}, nil
}

func (a *API) Refresh(ctx context.Context, refreshToken string) (*brixauth.TokenPair, error) {
	a.b.mu.Lock()
	email, ok := a.b.refresh[refreshToken]
	if ok {
		delete(a.b.refresh, refreshToken)
	}
	acct := a.b.accounts[email]
	a.b.mu.Unlock()

	if !ok || acct == nil {
		return nil, brixauth.NewError(brixauth.KindUnauthorized, "session expired, please log in again")
	}
	token, newRefresh, err := a.b.issue(acct.user)
	if err != nil {
		return nil, &brixauth.Error{Kind: brixauth.KindUnknown, Message: "token issuance failed", Err: err}
	}
	return &brixauth.TokenPair{AccessToken: token, RefreshToken: newRefresh}, nil
}

func (a *API) Validate(ctx context.Context, accessToken string) (*brixauth.User, error) {
	acct := a.b.lookupToken(accessToken)
	if acct == nil {
		return nil, brixauth.NewError(brixauth.KindUnauthorized, "invalid or expired token")
	}
	u := acct.user
	return &u, nil
}

func (a *API) Logout(ctx context.Context, accessToken string) error {
	a.b.mu.Lock()
	a.b.revoked[accessToken] = true
	a.b.mu.Unlock()
	return nil
}

// NewClient builds a fully wired brixauth.Client over an in-memory backend:
// memory token/attempt stores, in-process auth API, an app-namespace
// verifier sharing the backend secret, and the default authorization matrix.
func NewClient(secret []byte, opts ...Option) (*brixauth.Client, *Backend, error) {
	backend := New(secret, opts...)
	mem := store.NewMemory()
	client, err := brixauth.NewClient(
		brixauth.Config{BaseURL: "http://fake.invalid"},
		brixauth.WithTokenStore(mem),
		brixauth.WithAttemptStore(mem),
		brixauth.WithAuthAPI(backend.API()),
		brixauth.WithVerifier(backend.appVerifier),
		brixauth.WithAuthorizer(authz.DefaultMatrix()),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, backend, nil
}
