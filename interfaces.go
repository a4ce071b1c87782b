package brixauth

import "context"

// TokenStore persists the token pair for a client profile.
// Implementations: store/ (memory, file), store/redistore (shared redis).
type TokenStore interface {
	// Tokens returns the stored pair, or nil if none is stored.
	Tokens(ctx context.Context) (*TokenPair, error)

	// SetTokens stores a pair. Implementations must derive ExpiresAt from the
	// access token's exp claim at the moment of storage.
	SetTokens(ctx context.Context, accessToken, refreshToken string) error

	// Clear removes the stored pair.
	Clear(ctx context.Context) error
}

// AttemptStore persists the login rate-limit record, under a key distinct
// from the token pair.
type AttemptStore interface {
	// Attempts returns the current record; a zero record if none is stored.
	Attempts(ctx context.Context) (AttemptRecord, error)

	// SetAttempts replaces the record.
	SetAttempts(ctx context.Context, rec AttemptRecord) error

	// ClearAttempts resets the record.
	ClearAttempts(ctx context.Context) error
}

// AuthAPI wraps the backend's auth endpoints. All calls are bounded by the
// configured timeout; failures are translated to the closed *Error taxonomy.
// AuthAPI never touches the TokenStore — that is the session controller's
// responsibility.
type AuthAPI interface {
	// Login exchanges credentials for a user and token pair.
	Login(ctx context.Context, email, password string) (*LoginResult, error)

	// Refresh exchanges a refresh token for a new pair. Any failure means the
	// session is unrecoverable and the caller must log out.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// Validate resolves the user behind an access token ("who am I").
	Validate(ctx context.Context, accessToken string) (*User, error)

	// Logout notifies the backend to invalidate the token. Best effort.
	Logout(ctx context.Context, accessToken string) error
}

// SessionVerifier cryptographically verifies a token and returns its claims.
// Implementations: verify/ (HS256 with role-namespace scoping).
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Authorizer decides whether a role may perform method on path.
// Implementations: authz/ (declarative rule matrix, default-deny).
type Authorizer interface {
	CheckAccess(path, method string, role Role) bool
}
