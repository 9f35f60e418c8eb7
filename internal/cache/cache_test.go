package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoagen/backend/internal/domain"
)

func TestMemoryRoleCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetRole(ctx, domain.Role{ID: "r1", Name: "Kasir", Permissions: []string{"sales"}}, time.Minute))

	role, ok, err := c.GetRole(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Kasir", role.Name)

	role.Permissions[0] = "roles"
	again, _, _ := c.GetRole(ctx, "r1")
	assert.Equal(t, []string{"sales"}, again.Permissions)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.GetRole(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryRoleCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.SetRole(ctx, domain.Role{ID: "r1"}, time.Minute))
	require.NoError(t, c.InvalidateRole(ctx, "r1"))

	_, ok, _ := c.GetRole(ctx, "r1")
	assert.False(t, ok)
}

func TestMemoryRevocations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	revoked, err := c.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, c.Revoke(ctx, "jti-1", time.Hour))
	revoked, _ = c.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, _ = c.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked)
}

func TestNoopRoleCache(t *testing.T) {
	var c RoleCache = NoopRoleCache{}
	require.NoError(t, c.SetRole(context.Background(), domain.Role{ID: "r1"}, time.Minute))
	_, ok, err := c.GetRole(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, ok)
}
