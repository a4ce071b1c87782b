package brixauth

import "context"

type ctxKey string

const (
	ctxKeySession ctxKey = "brixauth_session"
	ctxKeyClaims  ctxKey = "brixauth_claims"
	ctxKeyUserID  ctxKey = "brixauth_user_id"
	ctxKeyRole    ctxKey = "brixauth_role"
)

// WithSession stores the verified session in the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

// SessionFromContext extracts the verified session from the context.
func SessionFromContext(ctx context.Context) *Session {
	v, _ := ctx.Value(ctxKeySession).(*Session)
	return v
}

// WithClaims stores the verified token claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// ClaimsFromContext extracts the verified token claims from the context.
func ClaimsFromContext(ctx context.Context) *Claims {
	v, _ := ctx.Value(ctxKeyClaims).(*Claims)
	return v
}

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}

// WithRole stores the caller's role in the context.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

// RoleFromContext extracts the caller's role from the context.
func RoleFromContext(ctx context.Context) Role {
	v, _ := ctx.Value(ctxKeyRole).(Role)
	return v
}
