// Package config loads auth subsystem settings from the environment.
//
// A .env file in the working directory (or a path given explicitly) is
// loaded first when present; real environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	brixauth "github.com/brixsports/brixauth-go"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the auth subsystem, client and server side.
type Config struct {
	// Client side.
	APIBaseURL       string
	RequestTimeout   time.Duration
	RefreshBuffer    time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	EnableDemoAuth   bool
	DemoRole         brixauth.Role

	// Server side.
	ListenAddr    string
	JWTSecret     string
	TokenTTL      time.Duration
	LoggerPortal  bool // verify tokens against the logger namespace
	CookieName    string
	RedisAddr     string
	RedisPassword string
	MetricsOn     bool
	AuditStdout   bool
}

// Load reads configuration from the environment, optionally seeded from the
// given .env files. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		for _, f := range envFiles {
			if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: loading %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		APIBaseURL:       getEnv("BRIXAUTH_API_URL", ""),
		RequestTimeout:   getEnvDuration("BRIXAUTH_REQUEST_TIMEOUT", brixauth.DefaultTimeout),
		RefreshBuffer:    getEnvDuration("BRIXAUTH_REFRESH_BUFFER", brixauth.DefaultRefreshBuffer),
		MaxLoginAttempts: getEnvInt("BRIXAUTH_MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:  getEnvDuration("BRIXAUTH_LOCKOUT_DURATION", 15*time.Minute),
		EnableDemoAuth:   getEnvBool("BRIXAUTH_DEMO_AUTH", false),
		DemoRole:         brixauth.Role(getEnv("BRIXAUTH_DEMO_ROLE", string(brixauth.RoleUser))),

		ListenAddr:    getEnv("BRIXAUTH_LISTEN_ADDR", ":8080"),
		JWTSecret:     getEnv("BRIXAUTH_JWT_SECRET", ""),
		TokenTTL:      getEnvDuration("BRIXAUTH_TOKEN_TTL", time.Hour),
		LoggerPortal:  getEnvBool("BRIXAUTH_LOGGER_PORTAL", false),
		CookieName:    getEnv("BRIXAUTH_COOKIE_NAME", ""),
		RedisAddr:     getEnv("BRIXAUTH_REDIS_ADDR", ""),
		RedisPassword: getEnv("BRIXAUTH_REDIS_PASSWORD", ""),
		MetricsOn:     getEnvBool("BRIXAUTH_METRICS", false),
		AuditStdout:   getEnvBool("BRIXAUTH_AUDIT_STDOUT", false),
	}

	if cfg.EnableDemoAuth && !cfg.DemoRole.Valid() {
		return nil, fmt.Errorf("config: BRIXAUTH_DEMO_ROLE %q is not a known role", cfg.DemoRole)
	}
	return cfg, nil
}

// ClientConfig converts to the client-side configuration struct.
func (c *Config) ClientConfig() brixauth.Config {
	return brixauth.Config{
		BaseURL:          c.APIBaseURL,
		Timeout:          c.RequestTimeout,
		RefreshBuffer:    c.RefreshBuffer,
		MaxLoginAttempts: c.MaxLoginAttempts,
		LockoutDuration:  c.LockoutDuration,
		EnableDemoAuth:   c.EnableDemoAuth,
		DemoRole:         c.DemoRole,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
