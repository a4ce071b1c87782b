package ginmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/authz"
	"github.com/brixsports/brixauth-go/verify"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "ginmw-test-secret"

func issueToken(t *testing.T, role brixauth.Role) string {
	t.Helper()
	v := verify.New([]byte(testSecret), verify.WithNamespace(namespaceFor(role)))
	tok, err := v.Issue(brixauth.User{ID: "u-1", Email: "u@brixsports.io", Name: "U", Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func namespaceFor(role brixauth.Role) verify.Namespace {
	if role.IsLoggerRole() {
		return verify.NamespaceLogger
	}
	return verify.NamespaceApp
}

func appRouter(role brixauth.Role, opts ...Option) *gin.Engine {
	v := verify.New([]byte(testSecret), verify.WithNamespace(namespaceFor(role)))
	r := gin.New()
	r.Use(Auth(v, opts...))
	r.Use(Authorize(authz.DefaultMatrix(), opts...))
	r.NoRoute(func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func doRequest(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMissingToken(t *testing.T) {
	r := appRouter(brixauth.RoleUser)
	if w := doRequest(r, http.MethodGet, "/matches", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthBadToken(t *testing.T) {
	r := appRouter(brixauth.RoleUser)
	if w := doRequest(r, http.MethodGet, "/matches", "not.a.token"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthExcludedPath(t *testing.T) {
	v := verify.New([]byte(testSecret))
	r := gin.New()
	r.Use(Auth(v, WithExcludedPaths("/health")))
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	if w := doRequest(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAuthorizeAllowsPermittedRole(t *testing.T) {
	r := appRouter(brixauth.RoleUser)
	tok := issueToken(t, brixauth.RoleUser)
	if w := doRequest(r, http.MethodGet, "/favorites", tok); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}
}

func TestAuthorizeDeniesInsufficientRole(t *testing.T) {
	r := appRouter(brixauth.RoleUser)
	tok := issueToken(t, brixauth.RoleUser)
	if w := doRequest(r, http.MethodGet, "/admin/loggers", tok); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", w.Code, w.Body)
	}
}

func TestAuthorizeUnknownPathDenied(t *testing.T) {
	r := appRouter(brixauth.RoleAdmin)
	tok := issueToken(t, brixauth.RoleAdmin)
	if w := doRequest(r, http.MethodGet, "/internal/debug", tok); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestAuthorizePathPrefix(t *testing.T) {
	r := appRouter(brixauth.RoleUser, WithPathPrefix("/api"))
	tok := issueToken(t, brixauth.RoleUser)
	if w := doRequest(r, http.MethodGet, "/api/favorites", tok); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}
}

func TestContextGetters(t *testing.T) {
	v := verify.New([]byte(testSecret))
	r := gin.New()
	r.Use(Auth(v))
	r.GET("/whoami", func(c *gin.Context) {
		sess := GetSession(c)
		if sess == nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "role": GetRole(c)})
	})

	tok := issueToken(t, brixauth.RoleUser)
	w := doRequest(r, http.MethodGet, "/whoami", tok)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "u-1") || !strings.Contains(body, string(brixauth.RoleUser)) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestRequireRole(t *testing.T) {
	v := verify.New([]byte(testSecret), verify.WithNamespace(verify.NamespaceLogger))
	r := gin.New()
	r.Use(Auth(v))
	r.GET("/portal", RequireRole(brixauth.RoleSeniorLogger), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	if w := doRequest(r, http.MethodGet, "/portal", issueToken(t, brixauth.RoleLogger)); w.Code != http.StatusForbidden {
		t.Fatalf("logger: status = %d, want 403", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/portal", issueToken(t, brixauth.RoleLoggerAdmin)); w.Code != http.StatusOK {
		t.Fatalf("logger-admin: status = %d, want 200", w.Code)
	}
}
