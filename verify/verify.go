// Package verify provides server-side token verification and issuance.
//
// Unlike the token package, which only decodes, this package checks the
// HMAC-SHA256 signature against a server-held secret and fails closed: any
// problem — bad signature, expired, malformed, wrong role namespace —
// yields no session at all, never a partially trusted one.
//
// The fan app and the logger portal run separate verifiers with separate
// secrets; each rejects tokens whose role belongs to the other namespace.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Namespace identifies which portal a verifier serves.
type Namespace int

const (
	// NamespaceApp serves the fan app: user, admin and super-admin roles.
	NamespaceApp Namespace = iota

	// NamespaceLogger serves the logger portal: logger roles only.
	NamespaceLogger
)

// DefaultCookieName is the session cookie checked when no bearer header is
// present.
const DefaultCookieName = "brix_session"

// Verifier implements brixauth.SessionVerifier with an HS256 secret.
type Verifier struct {
	secret     []byte
	namespace  Namespace
	cookieName string
	now        func() time.Time
}

var _ brixauth.SessionVerifier = (*Verifier)(nil)

// Option configures the Verifier.
type Option func(*Verifier)

// WithNamespace scopes the verifier to a portal. Default: NamespaceApp.
func WithNamespace(ns Namespace) Option {
	return func(v *Verifier) { v.namespace = ns }
}

// WithCookieName sets the fallback session cookie name.
func WithCookieName(name string) Option {
	return func(v *Verifier) { v.cookieName = name }
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New creates a verifier for the given signing secret.
func New(secret []byte, opts ...Option) *Verifier {
	v := &Verifier{
		secret:     secret,
		cookieName: DefaultCookieName,
		now:        time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify validates the token signature and expiry and returns its claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*brixauth.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	parsed, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("brixauth/verify: %w", err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("brixauth/verify: invalid token claims")
	}

	claims := mapToClaims(mapClaims)

	role, ok := brixauth.ParseRole(string(claims.Role))
	if !ok {
		return nil, fmt.Errorf("brixauth/verify: unknown role %q", claims.Role)
	}
	if !v.allows(role) {
		return nil, fmt.Errorf("brixauth/verify: role %q outside verifier namespace", role)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("brixauth/verify: missing subject")
	}

	return claims, nil
}

// FromRequest verifies the request's bearer token, falling back to the
// session cookie, and reconstructs the session strictly from verified
// claims. Returns nil on any failure.
func (v *Verifier) FromRequest(r *http.Request) *brixauth.Session {
	tokenString := bearerToken(r)
	if tokenString == "" {
		if cookie, err := r.Cookie(v.cookieName); err == nil {
			tokenString = cookie.Value
		}
	}
	if tokenString == "" {
		return nil
	}

	claims, err := v.Verify(r.Context(), tokenString)
	if err != nil {
		return nil
	}

	return &brixauth.Session{
		User: brixauth.User{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
			Role:  claims.Role,
		},
		ExpiresAt: claims.ExpiresAt,
	}
}

// allows reports whether the role belongs to this verifier's namespace.
func (v *Verifier) allows(role brixauth.Role) bool {
	if v.namespace == NamespaceLogger {
		return role.IsLoggerRole()
	}
	return !role.IsLoggerRole()
}

// Issue signs a token for the user, valid for ttl from now. Used by the
// backend handlers, the demo login path, and tests.
func (v *Verifier) Issue(user brixauth.User, ttl time.Duration) (string, error) {
	if !user.Role.Valid() {
		return "", fmt.Errorf("brixauth/verify: cannot issue token for unknown role %q", user.Role)
	}
	if !v.allows(user.Role) {
		return "", fmt.Errorf("brixauth/verify: role %q outside verifier namespace", user.Role)
	}

	now := v.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  string(user.Role),
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})

	signed, err := tok.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("brixauth/verify: sign: %w", err)
	}
	return signed, nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// mapToClaims converts jwt.MapClaims to brixauth.Claims.
func mapToClaims(m jwt.MapClaims) *brixauth.Claims {
	c := &brixauth.Claims{
		Extra: make(map[string]any),
	}

	if v, ok := m["sub"].(string); ok {
		c.Subject = v
	}
	if v, ok := m["email"].(string); ok {
		c.Email = v
	}
	if v, ok := m["name"].(string); ok {
		c.Name = v
	}
	if v, ok := m["role"].(string); ok {
		c.Role = brixauth.Role(v)
	}
	if v, ok := m["jti"].(string); ok {
		c.TokenID = v
	}
	if v, ok := m["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(v), 0)
	}
	if v, ok := m["iat"].(float64); ok {
		c.IssuedAt = time.Unix(int64(v), 0)
	}

	standard := map[string]bool{
		"sub": true, "email": true, "name": true, "role": true,
		"jti": true, "exp": true, "iat": true, "aud": true,
		"nbf": true, "iss": true,
	}
	for k, v := range m {
		if !standard[k] {
			c.Extra[k] = v
		}
	}

	return c
}
