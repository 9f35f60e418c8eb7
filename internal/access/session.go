package access

import (
	"context"
	"sync"

	"tokoagen/backend/internal/domain"
)

type State int

const (
	Unauthenticated State = iota
	Loading
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session binds an identity to its resolved permissions. The zero value is
// unauthenticated.
type Session struct {
	mu          sync.RWMutex
	state       State
	identity    *domain.User
	roleName    string
	permissions PermissionSet
}

func NewSession() *Session {
	return &Session{}
}

// NewAuthenticated is a shortcut for a session that is already resolved.
func NewAuthenticated(user domain.User, roleName string, perms PermissionSet) *Session {
	s := &Session{}
	s.BeginLoading()
	s.Complete(user, roleName, perms)
	return s
}

func (s *Session) BeginLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Loading
	s.identity = nil
	s.roleName = ""
	s.permissions = nil
}

func (s *Session) Complete(user domain.User, roleName string, perms PermissionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity := user
	s.state = Authenticated
	s.identity = &identity
	s.roleName = roleName
	s.permissions = make(PermissionSet, len(perms))
	for p := range perms {
		s.permissions[p] = struct{}{}
	}
}

// SignOut drops the identity and permissions from any state.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Unauthenticated
	s.identity = nil
	s.roleName = ""
	s.permissions = nil
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentIdentity returns a copy of the signed-in user, or nil.
func (s *Session) CurrentIdentity() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Authenticated || s.identity == nil {
		return nil
	}
	identity := *s.identity
	return &identity
}

func (s *Session) RoleName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roleName
}

func (s *Session) HasPermission(p Permission) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Authenticated && s.permissions.Has(p)
}

func (s *Session) Permissions() PermissionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(PermissionSet, len(s.permissions))
	if s.state != Authenticated {
		return out
	}
	for p := range s.permissions {
		out[p] = struct{}{}
	}
	return out
}

func (s *Session) FirstAccessibleArea() string {
	return FirstAccessibleArea(s.Permissions())
}

// AreaAccess lists every area with whether this session may open it.
func (s *Session) AreaAccess() []domain.AreaAccess {
	perms := s.Permissions()
	out := make([]domain.AreaAccess, 0, len(areas))
	for _, a := range areas {
		out = append(out, domain.AreaAccess{
			Permission: string(a.Permission),
			Path:       a.Path,
			Allowed:    perms.Has(a.Permission),
		})
	}
	return out
}

type Outcome int

const (
	Wait Outcome = iota
	Allow
	Redirect
)

type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Guard decides whether a session may open an area requiring perm. Nothing
// redirects while the session is still loading.
func Guard(s *Session, perm Permission) Decision {
	if s == nil {
		return Decision{Outcome: Redirect, Redirect: RootPath}
	}
	switch s.State() {
	case Loading:
		return Decision{Outcome: Wait}
	case Authenticated:
		if s.HasPermission(perm) {
			return Decision{Outcome: Allow}
		}
	}
	return Decision{Outcome: Redirect, Redirect: RootPath}
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
