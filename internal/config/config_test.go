package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "file::memory:")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvTest, cfg.Env)
	assert.True(t, cfg.IsTest())
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 60, cfg.AccessTTLMin)
	assert.Equal(t, 7, cfg.RefreshTTLDays)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "blog-api", cfg.Storage.KeyPrefix)
	assert.Equal(t, "logs/activity.log", cfg.ActivityLogPath)
	assert.True(t, cfg.Cache.Methods["GET"])
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 60, cfg.RateLimit.Capacity)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
}

func TestLoadReadsEnvironment(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_PORT", "8080")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("WHITELIST_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("WHITELIST_ADMINS_MAIL", "Boss@Example.com")
	t.Setenv("RATE_LIMIT_LIMIT", "100")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.WhitelistOrigins)
	assert.True(t, cfg.IsAdminEmail("boss@example.com"))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
	assert.Equal(t, 100, cfg.RateLimit.Capacity)
	assert.Equal(t, 100, cfg.RateLimit.RefillTokens)
	assert.Equal(t, time.Minute, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.TTL)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
}

func TestRateLimitTTLCoversFiveRefills(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RATE_LIMIT_LIMIT", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 25*time.Minute, cfg.RateLimit.TTL)

	rl := RateLimitConfig{TTL: time.Hour}.normalize()
	assert.Equal(t, time.Second, rl.RefillInterval)
	assert.Equal(t, time.Hour, rl.TTL)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "DB_NAME")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_DRIVER", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestRateLimitNormalize(t *testing.T) {
	rl := RateLimitConfig{}.normalize()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, time.Second, rl.RefillInterval)
	assert.Equal(t, 5*time.Second, rl.TTL)
}
