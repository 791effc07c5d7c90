// Package config reads server settings from the environment, after loading
// a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName     string
	AppEnv      string // development or production
	AppURL      string // base for links in emails
	Port        string
	ContentPath string
	DemoMode    bool

	// sqlite (file DSN) or pgx (Postgres URL)
	DBDriver     string
	DBConnection string

	JWTSecret                string
	JWTExpiry                time.Duration
	TokenPasswordResetExpiry time.Duration

	EmailFrom    string
	ResendAPIKey string

	SentryDSN string

	// Any S3-compatible store. S3Endpoint is empty for AWS itself.
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	AvatarURLTTL          time.Duration
	AvatarSignConcurrency int
	AvatarMaxUploadBytes  int64

	// Empty keeps change notifications in-process.
	RedisURL string
}

// Load reads the configuration. Every missing or malformed variable is
// reported at once in the returned error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	e := &env{lookup: os.LookupEnv}
	cfg := &Config{
		AppName:     e.str("APP_NAME", "Voclaria"),
		AppEnv:      e.required("APP_ENV"),
		AppURL:      e.required("APP_URL"),
		Port:        e.str("PORT", "8090"),
		ContentPath: e.str("CONTENT_PATH", "content"),
		DemoMode:    e.boolean("DEMO_MODE", false),

		DBDriver:     e.str("DB_DRIVER", "sqlite"),
		DBConnection: e.str("DB_CONNECTION", "./data/voclaria.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		JWTSecret:                e.required("JWT_SECRET"),
		JWTExpiry:                e.duration("JWT_EXPIRY", 7*24*time.Hour),
		TokenPasswordResetExpiry: e.duration("TOKEN_PASSWORD_RESET_EXPIRY", time.Hour),

		EmailFrom:    e.str("EMAIL_FROM", "noreply@voclaria.app"),
		ResendAPIKey: e.str("RESEND_API_KEY", ""),

		SentryDSN: e.str("SENTRY_DSN", ""),

		S3Region:    e.required("S3_REGION"),
		S3Bucket:    e.str("S3_BUCKET", "avatars"),
		S3AccessKey: e.required("S3_ACCESS_KEY"),
		S3SecretKey: e.required("S3_SECRET_KEY"),
		S3Endpoint:  e.str("S3_ENDPOINT", ""),

		AvatarURLTTL:          e.duration("AVATAR_URL_TTL", time.Hour),
		AvatarSignConcurrency: e.positive("AVATAR_SIGN_CONCURRENCY", 8),
		AvatarMaxUploadBytes:  int64(e.positive("AVATAR_MAX_UPLOAD_BYTES", 5<<20)),

		RedisURL: e.str("REDIS_URL", ""),
	}

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AppEnv {
	case "development":
		return nil
	case "production":
	default:
		return fmt.Errorf("APP_ENV must be development or production, got %q", c.AppEnv)
	}

	var errs []error
	if c.ResendAPIKey == "" {
		errs = append(errs, errors.New("production requires RESEND_API_KEY"))
	}
	if c.DemoMode {
		errs = append(errs, errors.New("DEMO_MODE must not be enabled in production"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// env collects parse failures instead of stopping at the first one.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	return v, ok && v != ""
}

func (e *env) str(key, def string) string {
	if v, ok := e.get(key); ok {
		return v
	}
	return def
}

func (e *env) required(key string) string {
	v, ok := e.get(key)
	if !ok {
		e.errs = append(e.errs, fmt.Errorf("%s is required", key))
	}
	return v
}

func (e *env) boolean(key string, def bool) bool {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (e *env) positive(key string, def int) int {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a positive integer", key, v))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v, ok := e.get(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a positive duration", key, v))
		return def
	}
	return d
}
