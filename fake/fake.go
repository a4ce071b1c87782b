// Package fake provides an in-memory auth backend for tests and local
// development.
//
// The backend speaks the same wire contract the real BrixSports API does, so
// an authapi.Client pointed at an httptest.Server wrapping Handler() behaves
// exactly as it would in production. Passwords are stored bcrypt-hashed and
// access tokens are real HS256 JWTs, making the fake usable end to end with
// the server-side verifier.
package fake

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/brixsports/brixauth-go/verify"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is the lifetime of access tokens the fake issues.
const DefaultTokenTTL = time.Hour

type account struct {
	user         brixauth.User
	passwordHash []byte
}

// Backend is an in-memory auth server.
type Backend struct {
	mu       sync.RWMutex
	accounts map[string]*account // email → account
	refresh  map[string]string   // refresh token → email
	revoked  map[string]bool     // access token → revoked

	appVerifier    *verify.Verifier
	loggerVerifier *verify.Verifier
	tokenTTL       time.Duration
	now            func() time.Time
}

// Option configures the Backend.
type Option func(*Backend)

// WithUser registers an account. The password is hashed before storage.
func WithUser(user brixauth.User, password string) Option {
	return func(b *Backend) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			panic("fake: hashing password: " + err.Error())
		}
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		b.accounts[user.Email] = &account{user: user, passwordHash: hash}
	}
}

// WithTokenTTL sets the access token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) { b.tokenTTL = ttl }
}

// WithClock injects the time source used for token issuance and verification.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// New creates a Backend signing tokens with the given secret.
func New(secret []byte, opts ...Option) *Backend {
	b := &Backend{
		accounts: make(map[string]*account),
		refresh:  make(map[string]string),
		revoked:  make(map[string]bool),
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	vopts := []verify.Option{verify.WithClock(b.now)}
	b.appVerifier = verify.New(secret, append(vopts, verify.WithNamespace(verify.NamespaceApp))...)
	b.loggerVerifier = verify.New(secret, append(vopts, verify.WithNamespace(verify.NamespaceLogger))...)
	return b
}

// Wire types mirroring the backend JSON contract.

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,brixrole"`
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

func toWire(u brixauth.User) wireUser {
	return wireUser{
		ID:                   u.ID,
		Name:                 u.Name,
		Email:                u.Email,
		Role:                 string(u.Role),
		AvatarURL:            u.AvatarURL,
		AssignedCompetitions: u.AssignedCompetitions,
		Permissions:          u.Permissions,
		ManagedLoggers:       u.ManagedLoggers,
		AdminLevel:           u.AdminLevel,
	}
}

var registerValidation sync.Once

// Handler returns the HTTP handler serving the auth endpoints.
func (b *Backend) Handler() http.Handler {
	registerValidation.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("brixrole", func(fl validator.FieldLevel) bool {
				_, ok := brixauth.ParseRole(fl.Field().String())
				return ok
			})
		}
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/auth/login", b.handleLogin)
	r.POST("/auth/refresh", b.handleRefresh)
	r.GET("/auth/me", b.handleMe)
	r.POST("/auth/logout", b.handleLogout)
	r.POST("/auth/register", b.handleRegister)
	return r
}

// checkCredentials resolves an email/password pair to an account, or a
// typed unauthorized error.
func (b *Backend) checkCredentials(email, password string) (*account, error) {
	b.mu.RLock()
	acct := b.accounts[email]
	b.mu.RUnlock()

	if acct == nil || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)) != nil {
		return nil, brixauth.NewError(brixauth.KindUnauthorized, "invalid email or password")
	}
	return acct, nil
}

func (b *Backend) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "invalid login details", "code": "validation_failed"})
		return
	}

	acct, err := b.checkCredentials(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid email or password", "code": "invalid_credentials"})
		return
	}

	token, refreshToken, err := b.issue(acct.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         toWire(acct.user),
		"token":        token,
		"refreshToken": refreshToken,
	})
}

func (b *Backend) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid refresh token", "code": "invalid_refresh"})
		return
	}

	b.mu.Lock()
	email, ok := b.refresh[req.RefreshToken]
	if ok {
		delete(b.refresh, req.RefreshToken) // single use
	}
	acct := b.accounts[email]
	b.mu.Unlock()

	if !ok || acct == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid refresh token", "code": "invalid_refresh"})
		return
	}

	token, refreshToken, err := b.issue(acct.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "refreshToken": refreshToken})
}

func (b *Backend) handleMe(c *gin.Context) {
	acct, _ := b.authenticate(c.Request)
	if acct == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token", "code": "invalid_token"})
		return
	}
	c.JSON(http.StatusOK, toWire(acct.user))
}

func (b *Backend) handleLogout(c *gin.Context) {
	acct, token := b.authenticate(c.Request)
	if acct == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token", "code": "invalid_token"})
		return
	}
	b.mu.Lock()
	b.revoked[token] = true
	b.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// handleRegister creates an account on the fly. Test-only convenience; the
// real backend gates registration behind admin approval.
func (b *Backend) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "invalid registration details", "code": "validation_failed"})
		return
	}

	role, _ := brixauth.ParseRole(req.Role) // validated by the brixrole binding tag
	user := brixauth.User{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Email: req.Email,
		Role:  role,
	}

	b.mu.Lock()
	_, exists := b.accounts[req.Email]
	b.mu.Unlock()
	if exists {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "email already registered", "code": "duplicate_email"})
		return
	}

	WithUser(user, req.Password)(b)
	c.JSON(http.StatusCreated, toWire(user))
}

// issue signs an access token for the user and mints a refresh token.
func (b *Backend) issue(user brixauth.User) (token, refreshToken string, err error) {
	token, err = b.verifierFor(user.Role).Issue(user, b.tokenTTL)
	if err != nil {
		return "", "", err
	}
	refreshToken = uuid.NewString()
	b.mu.Lock()
	b.refresh[refreshToken] = user.Email
	b.mu.Unlock()
	return token, refreshToken, nil
}

func (b *Backend) verifierFor(role brixauth.Role) *verify.Verifier {
	if role.IsLoggerRole() {
		return b.loggerVerifier
	}
	return b.appVerifier
}

// authenticate resolves the bearer token on the request to an account.
func (b *Backend) authenticate(r *http.Request) (*account, string) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ""
	}
	token := parts[1]
	return b.lookupToken(token), token
}

// lookupToken verifies an access token against both namespaces and resolves
// its account. Revoked or unverifiable tokens yield nil.
func (b *Backend) lookupToken(token string) *account {
	b.mu.RLock()
	revoked := b.revoked[token]
	b.mu.RUnlock()
	if revoked {
		return nil
	}

	claims, err := b.appVerifier.Verify(context.Background(), token)
	if err != nil {
		claims, err = b.loggerVerifier.Verify(context.Background(), token)
	}
	if err != nil {
		return nil
	}

	b.mu.RLock()
	acct := b.accounts[claims.Email]
	b.mu.RUnlock()
	return acct
}
