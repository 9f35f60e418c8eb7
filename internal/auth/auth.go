package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tokoagen/backend/internal/access"
	"tokoagen/backend/internal/audit"
	"tokoagen/backend/internal/cache"
	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const (
	MinPasswordLength = 6
	ownerRoleName     = "Owner"
	issuer            = "tokoagen"
	systemActor       = "system"
)

// Directory is the slice of the repository the identity provider needs.
type Directory interface {
	GetCredential(ctx context.Context, email string) (*domain.Credential, error)
	SaveCredential(ctx context.Context, cred domain.Credential) error
	DeleteCredential(ctx context.Context, email string) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
	CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
}

type EventKind string

const (
	SignedIn  EventKind = "signed_in"
	SignedOut EventKind = "signed_out"
)

// Event is delivered to subscribers on every identity change. User is nil
// when nobody is signed in afterwards.
type Event struct {
	Kind   EventKind
	Email  string
	User   *domain.User
	Reason string
	At     time.Time
}

type Manager struct {
	secret      []byte
	tokenTTL    time.Duration
	directory   Directory
	resolver    *access.Resolver
	revocations cache.Revocations
	logger      *slog.Logger

	mu          sync.RWMutex
	subscribers map[int]func(Event)
	nextSub     int
}

type claims struct {
	jwtlib.RegisteredClaims
	Email string `json:"email"`
}

func NewManager(secret string, tokenTTL time.Duration, directory Directory, resolver *access.Resolver, revocations cache.Revocations, logger *slog.Logger) *Manager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	if revocations == nil {
		revocations = cache.NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		directory:   directory,
		resolver:    resolver,
		revocations: revocations,
		logger:      logger,
		subscribers: make(map[int]func(Event)),
	}
}

// Subscribe registers fn for identity changes and returns its unsubscribe.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) emit(ev Event) {
	ev.At = time.Now().UTC()
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// SignIn verifies the credential, loads or lazily creates the user record
// and issues an access token.
func (m *Manager) SignIn(ctx context.Context, email string, password string) (domain.LoginResponse, *access.Session, error) {
	email = normalizeEmail(email)
	cred, err := m.directory.GetCredential(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, nil, ErrInvalidCredentials
		}
		return domain.LoginResponse{}, nil, fmt.Errorf("load credential: %w", err)
	}
	if !verifyPassword(cred.PasswordHash, password) {
		return domain.LoginResponse{}, nil, ErrInvalidCredentials
	}

	user, err := m.directory.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		user, err = m.createUser(ctx, email)
	}
	if err != nil {
		return domain.LoginResponse{}, nil, fmt.Errorf("load user: %w", err)
	}

	if !user.IsActive {
		m.emit(Event{Kind: SignedOut, Email: email, Reason: "inactive"})
		return domain.LoginResponse{}, nil, ErrInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(m.tokenTTL)
	token, err := m.sign(*user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, nil, err
	}

	session := m.resolver.Session(ctx, *user)
	m.emit(Event{Kind: SignedIn, Email: email, User: user})

	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		User:        *user,
		Permissions: session.Permissions().List(),
		LandingPath: session.FirstAccessibleArea(),
	}, session, nil
}

// createUser makes the record for a credential that has none yet. The very
// first account in an empty shop becomes its owner; later ones wait for an
// owner to activate them.
func (m *Manager) createUser(ctx context.Context, email string) (*domain.User, error) {
	roles, err := m.directory.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	user := domain.User{Email: email, DisplayName: displayNameFor(email)}
	if len(roles) == 0 {
		owner, err := m.directory.CreateRole(ctx, domain.Role{
			Name:        ownerRoleName,
			Description: "Akses penuh",
			Permissions: access.FullSet().List(),
			IsSystem:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap owner role: %w", err)
		}
		user.RoleID = owner.ID
		user.IsActive = true
		m.logger.Info("bootstrapped owner role", "role_id", owner.ID, "email", email)
		m.recordCreate(ctx, domain.ModuleRoles, owner.ID, owner.Name, owner)
	}

	created, err := m.directory.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return m.directory.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	m.recordCreate(ctx, domain.ModuleUsers, created.ID, created.DisplayName, created)
	return created, nil
}

// recordCreate audits a record made on sign-in. Nobody is signed in yet, so
// the entry is attributed to the system.
func (m *Manager) recordCreate(ctx context.Context, module string, targetID string, targetName string, after any) {
	snap, err := audit.Take(after)
	var payload json.RawMessage
	if err == nil {
		payload, err = json.Marshal(snap)
	}
	if err == nil {
		err = m.directory.CreateAuditLog(ctx, domain.AuditLog{
			Module:     module,
			Action:     domain.AuditCreate,
			TargetID:   targetID,
			TargetName: targetName,
			UserID:     systemActor,
			UserName:   systemActor,
			After:      payload,
		})
	}
	if err != nil {
		m.logger.Warn("failed to write audit log", "module", module, "target_id", targetID, "error", err)
	}
}

// SignOut revokes the token until it would have expired. A token that does
// not parse is already unusable, so there is nothing to revoke.
func (m *Manager) SignOut(ctx context.Context, token string) {
	c, err := m.parse(token)
	if err != nil {
		m.emit(Event{Kind: SignedOut, Reason: "sign_out"})
		return
	}

	ttl := time.Until(c.ExpiresAt.Time)
	if ttl > 0 && c.ID != "" {
		if err := m.revocations.Revoke(ctx, c.ID, ttl); err != nil {
			m.logger.Warn("token revocation failed", "user_id", c.Subject, "error", err)
		}
	}
	m.emit(Event{Kind: SignedOut, Email: c.Email, Reason: "sign_out"})
}

// Authenticate maps a bearer token to its user and a resolved session.
func (m *Manager) Authenticate(ctx context.Context, token string) (*domain.User, *access.Session, error) {
	c, err := m.parse(token)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	revoked, err := m.revocations.IsRevoked(ctx, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil, ErrInvalidToken
	}

	user, err := m.directory.GetUser(ctx, c.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrInactiveAccount
	}
	return user, m.resolver.Session(ctx, *user), nil
}

// TokenID returns the jti of a valid token.
func (m *Manager) TokenID(token string) (string, error) {
	c, err := m.parse(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return c.ID, nil
}

func (m *Manager) ChangePassword(ctx context.Context, email string, req domain.ChangePasswordRequest) error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(req.CurrentPassword) == "" {
		verr.Add("current_password", "wajib diisi")
	}
	if len(req.NewPassword) < MinPasswordLength {
		verr.Add("new_password", fmt.Sprintf("minimal %d karakter", MinPasswordLength))
	}
	if req.ConfirmPassword != req.NewPassword {
		verr.Add("confirm_password", "konfirmasi password tidak sama")
	}
	if err := verr.OrNil(); err != nil {
		return err
	}

	email = normalizeEmail(email)
	cred, err := m.directory.GetCredential(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("load credential: %w", err)
	}
	if !verifyPassword(cred.PasswordHash, req.CurrentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	cred.PasswordHash = hash
	return m.directory.SaveCredential(ctx, *cred)
}

// Register creates the credential for a new account.
func (m *Manager) Register(ctx context.Context, email string, password string) error {
	email = normalizeEmail(email)
	if len(password) < MinPasswordLength {
		return domain.NewValidationError("password", fmt.Sprintf("minimal %d karakter", MinPasswordLength))
	}
	if _, err := m.directory.GetCredential(ctx, email); err == nil {
		return store.ErrDuplicate
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("load credential: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return m.directory.SaveCredential(ctx, domain.Credential{Email: email, PasswordHash: hash})
}

func (m *Manager) RemoveCredential(ctx context.Context, email string) error {
	err := m.directory.DeleteCredential(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (m *Manager) sign(user domain.User, expiresAt time.Time) (string, error) {
	c := claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    issuer,
		},
		Email: user.Email,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c)
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenStr string) (*claims, error) {
	c := &claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, c, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if c.Subject == "" || c.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func displayNameFor(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
