package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

// unsetEnv clears key for the test; an empty value would be parsed as-is.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ACCESS_TOKEN_TTL", "AUDIT_LOG_LIMIT", "TIMEZONE", "DATABASE_AUTO_MIGRATE"} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 8*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 500, cfg.AuditLogLimit)
	assert.Equal(t, "Asia/Jakarta", cfg.Timezone)
	assert.True(t, cfg.DatabaseAutoMigrate)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_SECRET", "  0123456789abcdef0123456789abcdef  ")
	t.Setenv("ROLE_CACHE_TTL", "30s")
	t.Setenv("AUDIT_LOG_LIMIT", "5000")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.AuthSecret)
	assert.Equal(t, 30*time.Second, cfg.RoleCacheTTL)
	assert.Equal(t, 500, cfg.AuditLogLimit)
	assert.Equal(t, 2, cfg.RedisDB)
}

func TestLocation(t *testing.T) {
	loc, err := Config{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = Config{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}
