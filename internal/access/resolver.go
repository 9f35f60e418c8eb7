package access

import (
	"context"
	"log/slog"
	"time"

	"tokoagen/backend/internal/domain"
)

type RoleSource interface {
	GetRole(ctx context.Context, id string) (*domain.Role, error)
}

// RoleCache holds a role's name and permission tags between lookups.
type RoleCache interface {
	GetRole(ctx context.Context, roleID string) (*domain.Role, bool, error)
	SetRole(ctx context.Context, role domain.Role, ttl time.Duration) error
}

type Resolver struct {
	roles  RoleSource
	cache  RoleCache
	ttl    time.Duration
	logger *slog.Logger
}

func NewResolver(roles RoleSource, cache RoleCache, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{roles: roles, cache: cache, ttl: ttl, logger: logger}
}

// Resolve maps a user's role to its permissions and role name. A role that
// was deleted or cannot be read grants every permission; a user who was
// never given a role gets none.
func (r *Resolver) Resolve(ctx context.Context, user domain.User) (PermissionSet, string) {
	if r.cache != nil && user.RoleID != "" {
		role, ok, err := r.cache.GetRole(ctx, user.RoleID)
		if err != nil {
			r.logger.Debug("role cache read failed", "role_id", user.RoleID, "error", err)
		} else if ok {
			return FromStrings(role.Permissions), role.Name
		}
	}

	if user.RoleID == "" {
		r.logger.Warn("user has no role, granting nothing", "user_id", user.ID)
		return NewPermissionSet(), domain.UnknownRoleName
	}

	role, err := r.roles.GetRole(ctx, user.RoleID)
	if err != nil || role == nil {
		r.logger.Warn("role lookup failed, granting all permissions",
			"user_id", user.ID, "role_id", user.RoleID, "error", err)
		return FullSet(), domain.UnknownRoleName
	}

	if r.cache != nil {
		if err := r.cache.SetRole(ctx, *role, r.ttl); err != nil {
			r.logger.Debug("role cache write failed", "role_id", role.ID, "error", err)
		}
	}
	return FromStrings(role.Permissions), role.Name
}

// Session resolves user into a fresh authenticated session.
func (r *Resolver) Session(ctx context.Context, user domain.User) *Session {
	s := NewSession()
	s.BeginLoading()
	perms, roleName := r.Resolve(ctx, user)
	s.Complete(user, roleName, perms)
	return s
}
