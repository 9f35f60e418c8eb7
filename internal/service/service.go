package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tokoagen/backend/internal/audit"
	"tokoagen/backend/internal/cache"
	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/store"
)

// ErrForbidden is a business rule refusal, such as deleting a system role.
var ErrForbidden = errors.New("forbidden")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Identity is the credential side of user management.
type Identity interface {
	Register(ctx context.Context, email string, password string) error
	RemoveCredential(ctx context.Context, email string) error
}

type Options struct {
	Identity   Identity
	RoleCache  cache.RoleCache
	Location   *time.Location
	ShopName   string
	AuditLimit int
	Logger     *slog.Logger
	Now        func() time.Time
}

type Service struct {
	repo       store.Repository
	identity   Identity
	roleCache  cache.RoleCache
	loc        *time.Location
	shopName   string
	auditLimit int
	logger     *slog.Logger
	now        func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.RoleCache == nil {
		opts.RoleCache = cache.NoopRoleCache{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if strings.TrimSpace(opts.ShopName) == "" {
		opts.ShopName = "Toko Agen"
	}
	if opts.AuditLimit < 1 || opts.AuditLimit > store.AuditLogCap {
		opts.AuditLimit = store.AuditLogCap
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:       repo,
		identity:   opts.Identity,
		roleCache:  opts.RoleCache,
		loc:        opts.Location,
		shopName:   opts.ShopName,
		auditLimit: opts.AuditLimit,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) actor(ctx context.Context) domain.Actor {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.Actor{UserID: "system", Name: "system"}
	}
	return actor
}

// logAudit appends one audit entry. Failures are logged and swallowed so the
// mutation that triggered it still succeeds.
func (s *Service) logAudit(ctx context.Context, module string, action string, targetID string, targetName string, before any, after any) {
	actor := s.actor(ctx)
	entry := domain.AuditLog{
		Module:     module,
		Action:     action,
		TargetID:   targetID,
		TargetName: targetName,
		UserID:     actor.UserID,
		UserName:   actor.Name,
	}

	var err error
	if entry.Before, err = rawSnapshot(before); err == nil {
		entry.After, err = rawSnapshot(after)
	}
	if err == nil {
		err = s.repo.CreateAuditLog(ctx, entry)
	}
	if err != nil {
		s.logger.Warn("failed to write audit log",
			"module", module, "action", action, "target_id", targetID, "error", err)
	}
}

func rawSnapshot(v any) (json.RawMessage, error) {
	snap, err := audit.Take(v)
	if err != nil || snap == nil {
		return nil, err
	}
	return json.Marshal(snap)
}

// versionOr lets a client omit the version it read; the loaded one is used.
func versionOr(requested int64, loaded int64) int64 {
	if requested > 0 {
		return requested
	}
	return loaded
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
