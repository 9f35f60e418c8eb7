package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"tokoagen/backend/internal/access"
	"tokoagen/backend/internal/auth"
	"tokoagen/backend/internal/domain"
	"tokoagen/backend/internal/service"
	"tokoagen/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *auth.Manager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
	logger        *slog.Logger
}

func New(svc *service.Service, identity *auth.Manager, allowedOrigin string, logger *slog.Logger) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		service:       svc,
		auth:          identity,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
		logger:        logger,
	}
}

// csrfTokenForHour is the hex HMAC-SHA256 of an hour bucket (Unix seconds
// truncated to the hour).
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	return a.csrfTokenForHour(time.Now().UTC().Truncate(time.Hour).Unix())
}

// validateCSRFToken accepts the current and the previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	current := time.Now().UTC().Truncate(time.Hour).Unix()
	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current-3600)))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/auth/logout", a.requireAuth("", a.handleLogout))
	mux.HandleFunc("/api/v1/auth/session", a.requireAuth("", a.handleSession))
	mux.HandleFunc("/api/v1/auth/password", a.requireAuth("", a.handleChangePassword))

	mux.HandleFunc("/api/v1/dashboard", a.requireAuth(access.Dashboard, a.handleDashboard))

	mux.HandleFunc("/api/v1/categories", a.requireAuth(access.Categories, a.handleCategories))
	mux.HandleFunc("/api/v1/categories/", a.requireAuth(access.Categories, a.handleCategoryActions))

	mux.HandleFunc("/api/v1/products", a.requireAuth(access.Products, a.handleProducts))
	mux.HandleFunc("/api/v1/products/sku-preview", a.requireAuth(access.Products, a.handleSKUPreview))
	mux.HandleFunc("/api/v1/products/low-stock", a.requireAuth(access.Products, a.handleLowStock))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(access.Products, a.handleProductActions))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(access.Sales, a.handleSales))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(access.Sales, a.handleSaleActions))

	mux.HandleFunc("/api/v1/brilink/transactions", a.requireAuth(access.Brilink, a.handleAgentTransactions))
	mux.HandleFunc("/api/v1/brilink/transactions/", a.requireAuth(access.Brilink, a.handleAgentTransactionActions))
	mux.HandleFunc("/api/v1/brilink/accounts", a.requireAuth(access.Brilink, a.handleSavedAccounts))
	mux.HandleFunc("/api/v1/brilink/accounts/", a.requireAuth(access.Brilink, a.handleSavedAccountActions))

	mux.HandleFunc("/api/v1/reports/summary", a.requireAuth(access.Reports, a.handleReportSummary))
	mux.HandleFunc("/api/v1/reports/shift", a.requireAuth(access.Reports, a.handleShiftReport))
	mux.HandleFunc("/api/v1/reports/export", a.requireAuth(access.Reports, a.handleReportExport))

	mux.HandleFunc("/api/v1/users", a.requireAuth(access.Users, a.handleUsers))
	mux.HandleFunc("/api/v1/users/", a.requireAuth(access.Users, a.handleUserActions))
	mux.HandleFunc("/api/v1/roles", a.requireAuth(access.Roles, a.handleRoles))
	mux.HandleFunc("/api/v1/roles/", a.requireAuth(access.Roles, a.handleRoleActions))

	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(access.AuditLogs, a.handleAuditLogs))

	return a.withMiddleware(mux)
}

func bearerToken(r *http.Request) (string, bool) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authorization[len("Bearer "):])
	return token, token != ""
}

// requireAuth authenticates the bearer token and, when perm is set, guards
// the area. The resolved session and the acting user ride on the context.
func (a *API) requireAuth(perm access.Permission, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		user, session, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}

		if perm != "" {
			decision := access.Guard(session, perm)
			if decision.Outcome != access.Allow {
				writeJSON(w, http.StatusForbidden, map[string]any{
					"error":    "forbidden",
					"redirect": decision.Redirect,
				})
				return
			}
		}

		ctx := access.WithSession(r.Context(), session)
		ctx = service.WithActor(ctx, domain.Actor{UserID: user.ID, Name: user.DisplayName, Email: user.Email})
		next(w, r.WithContext(ctx))
	}
}

// csrfExemptPaths are called before a client could have fetched a token.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	if !a.validateCSRFToken(strings.TrimSpace(r.Header.Get("X-CSRF-Token"))) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(startedAt),
		)
	})
}

// writeServiceError maps domain and store errors onto HTTP statuses.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Errors,
		})
		return
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, service.ErrForbidden), errors.Is(err, auth.ErrInactiveAccount):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err)
	default:
		a.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// resourceID returns the single path segment after prefix, and the rest.
func resourceID(path string, prefix string) (string, string) {
	tail := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, rest, _ := strings.Cut(tail, "/")
	return strings.TrimSpace(id), strings.Trim(rest, "/")
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError hides the cause of 5xx responses from the client.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
