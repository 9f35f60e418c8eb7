package cache

import (
	"context"
	"sync"
	"time"

	"tokoagen/backend/internal/domain"
)

// RoleCache keeps roles between permission lookups.
type RoleCache interface {
	GetRole(ctx context.Context, roleID string) (*domain.Role, bool, error)
	SetRole(ctx context.Context, role domain.Role, ttl time.Duration) error
	InvalidateRole(ctx context.Context, roleID string) error
}

// Revocations is the denylist of signed-out access tokens.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type NoopRoleCache struct{}

func (NoopRoleCache) GetRole(_ context.Context, _ string) (*domain.Role, bool, error) {
	return nil, false, nil
}

func (NoopRoleCache) SetRole(_ context.Context, _ domain.Role, _ time.Duration) error {
	return nil
}

func (NoopRoleCache) InvalidateRole(_ context.Context, _ string) error {
	return nil
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// MemoryCache is an in-process RoleCache and Revocations for single-node
// deployments and tests.
type MemoryCache struct {
	mu      sync.Mutex
	roles   map[string]entry[domain.Role]
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		roles:   make(map[string]entry[domain.Role]),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (c *MemoryCache) GetRole(_ context.Context, roleID string) (*domain.Role, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.roles[roleID]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.roles, roleID)
		return nil, false, nil
	}
	role := e.value
	role.Permissions = append([]string(nil), e.value.Permissions...)
	return &role, true, nil
}

func (c *MemoryCache) SetRole(_ context.Context, role domain.Role, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	role.Permissions = append([]string(nil), role.Permissions...)
	c.roles[role.ID] = entry[domain.Role]{value: role, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) InvalidateRole(_ context.Context, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.roles, roleID)
	return nil
}

func (c *MemoryCache) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for id, until := range c.revoked {
		if !now.Before(until) {
			delete(c.revoked, id)
		}
	}
	c.revoked[tokenID] = now.Add(ttl)
	return nil
}

func (c *MemoryCache) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	until, ok := c.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return c.now().Before(until), nil
}
