// Package authapi wraps the BrixSports backend auth endpoints.
//
// Every call is a bounded network operation; HTTP failures are translated to
// the closed brixauth error taxonomy. The package never touches token
// storage — the session controller owns that, keeping a single writer over
// the store.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/loginlimit"
)

// Client implements brixauth.AuthAPI over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *loginlimit.Limiter
	logger     *slog.Logger
}

var _ brixauth.AuthAPI = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Client) { a.httpClient = c }
}

// WithLimiter sets the login attempt limiter. Without one, login attempts
// are never locked out client-side.
func WithLimiter(l *loginlimit.Limiter) Option {
	return func(a *Client) { a.limiter = l }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Client) { a.logger = l }
}

// New creates an auth client for the given backend base URL.
func New(baseURL string, opts ...Option) *Client {
	a := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: brixauth.DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Wire types. Field names follow the backend's JSON contract.

type errorEnvelope struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type wireUser struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Email                string   `json:"email"`
	Role                 string   `json:"role"`
	AvatarURL            string   `json:"avatar,omitempty"`
	AssignedCompetitions []string `json:"assignedCompetitions,omitempty"`
	Permissions          []string `json:"permissions,omitempty"`
	ManagedLoggers       []string `json:"managedLoggers,omitempty"`
	AdminLevel           int      `json:"adminLevel,omitempty"`
}

func (w wireUser) toUser() brixauth.User {
	return brixauth.User{
		ID:                   w.ID,
		Name:                 w.Name,
		Email:                w.Email,
		Role:                 brixauth.Role(w.Role),
		AvatarURL:            w.AvatarURL,
		AssignedCompetitions: w.AssignedCompetitions,
		Permissions:          w.Permissions,
		ManagedLoggers:       w.ManagedLoggers,
		AdminLevel:           w.AdminLevel,
	}
}

type loginResponse struct {
	User         wireUser `json:"user"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Login exchanges credentials for a user and token pair. A locked limiter
// fails immediately with KindRateLimited before any network call.
func (a *Client) Login(ctx context.Context, email, password string) (*brixauth.LoginResult, error) {
	if a.limiter != nil {
		if err := a.limiter.Check(ctx); err != nil {
			return nil, err
		}
	}

	body, status, err := a.post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		authErr := mapLoginStatus(status, body)
		if status == http.StatusUnauthorized || status == http.StatusUnprocessableEntity {
			if a.limiter != nil {
				if lerr := a.limiter.RecordFailure(ctx); lerr != nil {
					a.logger.Warn("recording failed login attempt", "error", lerr)
				}
			}
		}
		return nil, authErr
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &brixauth.Error{Kind: brixauth.KindNetwork, Message: "malformed login response", Err: err}
	}

	if a.limiter != nil {
		if err := a.limiter.Reset(ctx); err != nil {
			a.logger.Warn("resetting login attempts", "error", err)
		}
	}

	return &brixauth.LoginResult{
		User:         resp.User.toUser(),
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. Any HTTP rejection means
// the session is unrecoverable.
func (a *Client) Refresh(ctx context.Context, refreshToken string) (*brixauth.TokenPair, error) {
	body, status, err := a.post(ctx, "/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, "")
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		return nil, &brixauth.Error{
			Kind:    brixauth.KindUnauthorized,
			Message: "session expired, please log in again",
			Code:    envelopeCode(body),
		}
	}

	var resp refreshResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &brixauth.Error{Kind: brixauth.KindNetwork, Message: "malformed refresh response", Err: err}
	}

	return &brixauth.TokenPair{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// Validate resolves the user behind an access token.
func (a *Client) Validate(ctx context.Context, accessToken string) (*brixauth.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("brixauth/authapi: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, status, err := a.do(req)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, &brixauth.Error{
			Kind:    brixauth.KindUnauthorized,
			Message: "invalid or expired token",
			Code:    envelopeCode(body),
		}
	case status < 200 || status > 299:
		return nil, &brixauth.Error{
			Kind:    brixauth.KindNetwork,
			Message: fmt.Sprintf("auth backend returned status %d", status),
		}
	}

	var wu wireUser
	if err := json.Unmarshal(body, &wu); err != nil {
		return nil, &brixauth.Error{Kind: brixauth.KindNetwork, Message: "malformed user response", Err: err}
	}
	u := wu.toUser()
	return &u, nil
}

// Logout notifies the backend to invalidate the token. Callers treat this as
// best effort; local logout never waits on it.
func (a *Client) Logout(ctx context.Context, accessToken string) error {
	_, status, err := a.post(ctx, "/auth/logout", nil, accessToken)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return &brixauth.Error{
			Kind:    brixauth.KindNetwork,
			Message: fmt.Sprintf("logout returned status %d", status),
		}
	}
	return nil
}

func mapLoginStatus(status int, body []byte) *brixauth.Error {
	env := parseEnvelope(body)
	switch status {
	case http.StatusUnauthorized:
		msg := env.Message
		if msg == "" {
			msg = "invalid email or password"
		}
		return &brixauth.Error{Kind: brixauth.KindUnauthorized, Message: msg, Code: env.Code}
	case http.StatusUnprocessableEntity:
		msg := env.Message
		if msg == "" {
			msg = "invalid login details"
		}
		return &brixauth.Error{Kind: brixauth.KindValidation, Message: msg, Code: env.Code}
	case http.StatusTooManyRequests:
		return &brixauth.Error{
			Kind:       brixauth.KindRateLimited,
			Message:    "too many login attempts, try again later",
			Code:       env.Code,
			RetryAfter: loginlimit.DefaultLockout,
		}
	default:
		return &brixauth.Error{
			Kind:    brixauth.KindNetwork,
			Message: fmt.Sprintf("auth backend returned status %d", status),
			Code:    env.Code,
		}
	}
}

func parseEnvelope(body []byte) errorEnvelope {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)
	return env
}

func envelopeCode(body []byte) string {
	return parseEnvelope(body).Code
}

func (a *Client) post(ctx context.Context, path string, payload any, bearer string) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("brixauth/authapi: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("brixauth/authapi: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return a.do(req)
}

// do executes the request and reads the full body. Transport failures,
// including timeouts, surface as KindNetwork.
func (a *Client) do(req *http.Request) ([]byte, int, error) {
	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, &brixauth.Error{
			Kind:    brixauth.KindNetwork,
			Message: "auth backend unreachable",
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &brixauth.Error{
			Kind:    brixauth.KindNetwork,
			Message: "reading auth backend response",
			Err:     err,
		}
	}

	a.logger.Debug("auth request",
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return body, resp.StatusCode, nil
}
