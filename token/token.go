// Package token decodes the payload segment of a compact signed token
// without verifying its signature.
//
// Claims read here are for client-side UX only: deciding when to schedule a
// refresh or which screens to render. They carry no server trust — all
// security-relevant decisions go through the verify package, which checks the
// signature.
package token

import (
	"fmt"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/golang-jwt/jwt/v5"
)

// DecodeClaims decodes the claims segment of a three-part compact token.
// The signature is NOT verified. Returns an error for anything that is not a
// structurally valid token.
func DecodeClaims(tokenString string) (*brixauth.Claims, error) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("brixauth/token: decode: %w", err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("brixauth/token: unexpected claims type")
	}

	return mapToClaims(mapClaims), nil
}

// IsExpired reports whether the token's exp claim is at or before now.
// Decode failures and missing expiry both count as expired (fail-closed).
func IsExpired(tokenString string, now time.Time) bool {
	claims, err := DecodeClaims(tokenString)
	if err != nil {
		return true
	}
	if claims.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(claims.ExpiresAt)
}

// mapToClaims converts jwt.MapClaims to brixauth.Claims.
func mapToClaims(m jwt.MapClaims) *brixauth.Claims {
	c := &brixauth.Claims{
		Extra: make(map[string]any),
	}

	if v, ok := m["sub"].(string); ok {
		c.Subject = v
	} else if v, ok := m["id"].(string); ok {
		// Some token variants carry the subject under "id".
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
		"sub": true, "id": true, "email": true, "name": true,
		"role": true, "jti": true, "exp": true, "iat": true,
		"aud": true, "nbf": true, "iss": true,
	}
	for k, v := range m {
		if !standard[k] {
			c.Extra[k] = v
		}
	}

	return c
}
