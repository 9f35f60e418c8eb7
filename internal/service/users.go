package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/store"
)

const minPasswordLength = 6

// ListUsers resolves each user's role name; a dangling role shows as Unknown.
func (s *Service) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(roles))
	for _, r := range roles {
		names[r.ID] = r.Name
	}

	views := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		name, ok := names[u.RoleID]
		if !ok {
			name = domain.UnknownRoleName
		}
		views = append(views, domain.UserView{User: u, RoleName: name})
	}
	return views, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (domain.UserView, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.UserView{}, err
	}
	view := domain.UserView{User: *user, RoleName: domain.UnknownRoleName}
	if user.RoleID != "" {
		if role, err := s.repo.GetRole(ctx, user.RoleID); err == nil {
			view.RoleName = role.Name
		}
	}
	return view, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	displayName := strings.TrimSpace(req.DisplayName)

	verr := &domain.ValidationError{}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		verr.Add("email", "email tidak valid")
	}
	if displayName == "" {
		verr.Add("display_name", "nama wajib diisi")
	}
	if len(req.Password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("minimal %d karakter", minPasswordLength))
	}
	if req.ConfirmPassword != req.Password {
		verr.Add("confirm_password", "konfirmasi password tidak sama")
	}
	s.checkRole(ctx, req.RoleID, verr)
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	if err := verr.OrNil(); err != nil {
		return domain.User{}, err
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, fmt.Errorf("%w: email already registered", store.ErrDuplicate)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	if s.identity != nil {
		if err := s.identity.Register(ctx, email, req.Password); err != nil {
			return domain.User{}, err
		}
	}

	created, err := s.repo.CreateUser(ctx, domain.User{
		Email:       email,
		DisplayName: displayName,
		RoleID:      strings.TrimSpace(req.RoleID),
		IsActive:    active,
	})
	if err != nil {
		s.removeCredential(ctx, email)
		return domain.User{}, err
	}

	s.logAudit(ctx, domain.ModuleUsers, domain.AuditCreate, created.ID, created.DisplayName, nil, created)
	return *created, nil
}

// UpdateUser edits display name, role and active flag. Email never changes.
func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UserUpdateRequest) (domain.User, error) {
	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	updated := *existing
	verr := &domain.ValidationError{}
	if name := trimmed(req.DisplayName); name != nil {
		if *name == "" {
			verr.Add("display_name", "nama wajib diisi")
		}
		updated.DisplayName = *name
	}
	if roleID := trimmed(req.RoleID); roleID != nil {
		s.checkRole(ctx, *roleID, verr)
		updated.RoleID = *roleID
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if updated.IsActive && updated.RoleID == "" && !verr.Has("role_id") {
		verr.Add("role_id", "pilih role sebelum mengaktifkan pengguna")
	}
	if err := verr.OrNil(); err != nil {
		return domain.User{}, err
	}
	updated.Version = versionOr(req.Version, existing.Version)

	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.User{}, err
	}

	s.logAudit(ctx, domain.ModuleUsers, domain.AuditUpdate, saved.ID, saved.DisplayName, existing, saved)
	return *saved, nil
}

// DeleteUser removes the record and its credential. Nobody can delete
// themselves.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if actor, ok := ActorFromContext(ctx); ok && actor.UserID == id {
		return fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
	}
	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.removeCredential(ctx, existing.Email)

	s.logAudit(ctx, domain.ModuleUsers, domain.AuditDelete, existing.ID, existing.DisplayName, existing, nil)
	return nil
}

func (s *Service) checkRole(ctx context.Context, roleID string, verr *domain.ValidationError) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		verr.Add("role_id", "role wajib dipilih")
		return
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		verr.Add("role_id", "role tidak ditemukan")
	}
}

func (s *Service) removeCredential(ctx context.Context, email string) {
	if s.identity == nil {
		return
	}
	if err := s.identity.RemoveCredential(ctx, email); err != nil {
		s.logger.Warn("failed to remove credential", "email", email, "error", err)
	}
}
