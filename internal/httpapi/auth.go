package httpapi

import (
	"errors"
	"net/http"
	"time"

	"tokoagen/backend/internal/access"
	"tokoagen/backend/internal/auth"
	"tokoagen/backend/internal/domain"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, _, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken hands out the token mutating requests must echo in
// X-CSRF-Token.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	a.auth.SignOut(r.Context(), token)
	if session, ok := access.FromContext(r.Context()); ok {
		session.SignOut()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	session, ok := access.FromContext(r.Context())
	if !ok || session.CurrentIdentity() == nil {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
		return
	}
	user := session.CurrentIdentity()

	writeJSON(w, http.StatusOK, domain.SessionResponse{
		User:        *user,
		RoleName:    session.RoleName(),
		Permissions: session.Permissions().List(),
		LandingPath: session.FirstAccessibleArea(),
		Areas:       session.AreaAccess(),
	})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	session, ok := access.FromContext(r.Context())
	if !ok || session.CurrentIdentity() == nil {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
		return
	}
	user := session.CurrentIdentity()

	var req domain.ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err := a.auth.ChangePassword(r.Context(), user.Email, req)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		err = domain.NewValidationError("current_password", "password saat ini salah")
	}
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
