package service

import (
	"context"
	"fmt"
	"strings"

	"tokoagen/backend/internal/access"
	"tokoagen/backend/internal/domain"
)

func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *Service) GetRole(ctx context.Context, id string) (domain.Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return domain.Role{}, err
	}
	return *role, nil
}

func (s *Service) CreateRole(ctx context.Context, req domain.RoleCreateRequest) (domain.Role, error) {
	verr := &domain.ValidationError{}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		verr.Add("name", "nama role wajib diisi")
	}
	perms, err := access.NormalizePermissions(req.Permissions)
	if err != nil {
		verr.Add("permissions", err.Error())
	}
	if err := verr.OrNil(); err != nil {
		return domain.Role{}, err
	}

	created, err := s.repo.CreateRole(ctx, domain.Role{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Permissions: perms,
	})
	if err != nil {
		return domain.Role{}, err
	}

	s.logAudit(ctx, domain.ModuleRoles, domain.AuditCreate, created.ID, created.Name, nil, created)
	return *created, nil
}

// UpdateRole edits a role. A system role keeps its name.
func (s *Service) UpdateRole(ctx context.Context, id string, req domain.RoleUpdateRequest) (domain.Role, error) {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return domain.Role{}, err
	}

	updated := *existing
	verr := &domain.ValidationError{}
	if name := trimmed(req.Name); name != nil {
		switch {
		case *name == "":
			verr.Add("name", "nama role wajib diisi")
		case existing.IsSystem && *name != existing.Name:
			return domain.Role{}, fmt.Errorf("%w: system role name cannot change", ErrForbidden)
		default:
			updated.Name = *name
		}
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Permissions != nil {
		perms, err := access.NormalizePermissions(*req.Permissions)
		if err != nil {
			verr.Add("permissions", err.Error())
		}
		updated.Permissions = perms
	}
	if err := verr.OrNil(); err != nil {
		return domain.Role{}, err
	}
	updated.Version = versionOr(req.Version, existing.Version)

	saved, err := s.repo.UpdateRole(ctx, updated)
	if err != nil {
		return domain.Role{}, err
	}
	s.invalidateRole(ctx, saved.ID)

	s.logAudit(ctx, domain.ModuleRoles, domain.AuditUpdate, saved.ID, saved.Name, existing, saved)
	return *saved, nil
}

func (s *Service) DeleteRole(ctx context.Context, id string) error {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return fmt.Errorf("%w: system role cannot be deleted", ErrForbidden)
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidateRole(ctx, id)

	s.logAudit(ctx, domain.ModuleRoles, domain.AuditDelete, existing.ID, existing.Name, existing, nil)
	return nil
}

func (s *Service) invalidateRole(ctx context.Context, id string) {
	if err := s.roleCache.InvalidateRole(ctx, id); err != nil {
		s.logger.Warn("role cache invalidation failed", "role_id", id, "error", err)
	}
}
