package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("S3_REGION", "auto")
	t.Setenv("S3_ACCESS_KEY", "key")
	t.Setenv("S3_SECRET_KEY", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 8, cfg.AvatarSignConcurrency)
	assert.Equal(t, int64(5<<20), cfg.AvatarMaxUploadBytes)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("AVATAR_URL_TTL", "15m")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.AvatarURLTTL)
	assert.True(t, cfg.DemoMode)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("S3_REGION", "")
	t.Setenv("AVATAR_SIGN_CONCURRENCY", "zero")
	t.Setenv("JWT_EXPIRY", "-1h")

	_, err := Load()
	require.Error(t, err)
	for _, want := range []string{"JWT_SECRET", "S3_REGION", "AVATAR_SIGN_CONCURRENCY", "JWT_EXPIRY"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateProduction(t *testing.T) {
	cfg := &Config{AppEnv: "production", DemoMode: true}
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESEND_API_KEY")
	assert.Contains(t, err.Error(), "DEMO_MODE")

	cfg = &Config{AppEnv: "production", ResendAPIKey: "re_123"}
	assert.NoError(t, cfg.validate())

	cfg = &Config{AppEnv: "staging"}
	assert.Error(t, cfg.validate())
}
