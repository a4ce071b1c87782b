// Package ginmw provides Gin HTTP middleware gating API routes on the
// BrixSports auth subsystem.
//
// Auth resolves the caller's session via a server-side verifier and rejects
// unauthenticated requests with 401. Authorize consults the authorization
// matrix and rejects with 403. Both run before any handler touches the
// request body, and neither leaks verification detail to the client.
package ginmw

import (
	"net/http"
	"strings"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/audit"
	"github.com/brixsports/brixauth-go/metrics"
	"github.com/gin-gonic/gin"
)

// Context keys for storing auth data in gin.Context.
const (
	KeySession = "brixauth_session"
	KeyUserID  = "brixauth_user_id"
	KeyRole    = "brixauth_role"
)

// SessionSource resolves a verified session from a request, or nil.
// Implemented by verify.Verifier.
type SessionSource interface {
	FromRequest(r *http.Request) *brixauth.Session
}

// Option configures middleware behavior.
type Option func(*config)

type config struct {
	excludedPaths map[string]bool
	pathPrefix    string
	metrics       *metrics.Metrics
	audit         *audit.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{excludedPaths: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithExcludedPaths sets paths that skip authentication (e.g. health checks).
func WithExcludedPaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludedPaths[p] = true
		}
	}
}

// WithPathPrefix strips a route prefix (e.g. "/api") before consulting the
// authorization matrix, whose rules are written without it.
func WithPathPrefix(prefix string) Option {
	return func(cfg *config) { cfg.pathPrefix = prefix }
}

// WithMetrics records verification failures and authorization decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) { cfg.metrics = m }
}

// WithAudit emits audit events for denied requests.
func WithAudit(l *audit.Logger) Option {
	return func(cfg *config) { cfg.audit = l }
}

// Auth returns middleware that resolves the caller's session.
// On success it stores the session in the context (retrievable via
// GetSession, GetUserID, GetRole). Responds 401 when no valid session can
// be reconstructed.
func Auth(source SessionSource, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		if cfg.excludedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		sess := source.FromRequest(c.Request)
		if sess == nil {
			if cfg.metrics != nil {
				cfg.metrics.RecordVerifyFailure("no_session")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}

		c.Set(KeySession, sess)
		c.Set(KeyUserID, sess.User.ID)
		c.Set(KeyRole, sess.User.Role)

		c.Next()
	}
}

// Authorize returns middleware that gates the request on the authorization
// matrix. Requires Auth to run first. Responds 403 when access is denied.
func Authorize(authorizer brixauth.Authorizer, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}

		path := c.Request.URL.Path
		if cfg.pathPrefix != "" {
			path = strings.TrimPrefix(path, cfg.pathPrefix)
		}

		start := time.Now()
		allowed := authorizer.CheckAccess(path, c.Request.Method, sess.User.Role)
		if cfg.metrics != nil {
			cfg.metrics.RecordAuthzDecision(allowed, time.Since(start).Seconds())
		}

		if !allowed {
			if cfg.audit != nil {
				cfg.audit.Log(audit.Event{
					UserID: sess.User.ID,
					Role:   string(sess.User.Role),
					Action: audit.ActionAccessDenied,
					Path:   path,
					Method: c.Request.Method,
					Result: audit.ResultDenied,
					IP:     c.ClientIP(),
				})
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "access denied"})
			return
		}

		c.Next()
	}
}

// RequireRole returns middleware permitting only callers whose role is, or
// outranks, the given role. A convenience for routes outside the matrix.
func RequireRole(role brixauth.Role, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}
		if !sess.User.Role.Outranks(role) {
			if cfg.audit != nil {
				cfg.audit.Log(audit.Event{
					UserID: sess.User.ID,
					Role:   string(sess.User.Role),
					Action: audit.ActionAccessDenied,
					Path:   c.Request.URL.Path,
					Method: c.Request.Method,
					Result: audit.ResultDenied,
					IP:     c.ClientIP(),
				})
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "access denied"})
			return
		}
		c.Next()
	}
}

// GetSession returns the verified session from the Gin context, or nil.
func GetSession(c *gin.Context) *brixauth.Session {
	v, ok := c.Get(KeySession)
	if !ok {
		return nil
	}
	s, _ := v.(*brixauth.Session)
	return s
}

// GetUserID returns the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) string {
	v, ok := c.Get(KeyUserID)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GetRole returns the caller's role from the Gin context.
func GetRole(c *gin.Context) brixauth.Role {
	v, ok := c.Get(KeyRole)
	if !ok {
		return ""
	}
	r, _ := v.(brixauth.Role)
	return r
}
