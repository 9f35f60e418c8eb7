package httpapi

import (
	"net/http"
	"testing"

	"tokoagen/backend/internal/domain"
)

func TestLoginWithWrongPasswordIs401(t *testing.T) {
	api := newTestAPI(t)

	res := call(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: ownerEmail, Password: "salah"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}

	res = call(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "owner"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown fields, got %d", res.Code)
	}
}

func TestSessionDescribesAreas(t *testing.T) {
	api := newTestAPI(t)
	resp := login(t, api, ownerEmail, ownerPassword)
	if resp.LandingPath != "/dashboard" {
		t.Fatalf("expected owner landing /dashboard, got %s", resp.LandingPath)
	}

	res := call(t, api, http.MethodGet, "/api/v1/auth/session", resp.AccessToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("session: expected 200, got %d", res.Code)
	}
	var session domain.SessionResponse
	decodeBody(t, res, &session)
	if session.User.Email != ownerEmail || session.RoleName != "Owner" {
		t.Fatalf("unexpected session identity: %+v", session)
	}
	if len(session.Areas) != 9 {
		t.Fatalf("expected 9 areas, got %d", len(session.Areas))
	}
	for _, area := range session.Areas {
		if !area.Allowed {
			t.Fatalf("expected owner to reach %s", area.Path)
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)

	res := call(t, api, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", res.Code)
	}

	res = call(t, api, http.MethodGet, "/api/v1/auth/session", token, nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", res.Code)
	}
}

func TestChangePassword(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)

	res := call(t, api, http.MethodPost, "/api/v1/auth/password", token, domain.ChangePasswordRequest{
		CurrentPassword: "bukan-ini", NewPassword: "baru12345", ConfirmPassword: "baru12345",
	})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for wrong current password, got %d", res.Code)
	}

	res = call(t, api, http.MethodPost, "/api/v1/auth/password", token, domain.ChangePasswordRequest{
		CurrentPassword: ownerPassword, NewPassword: "baru12345", ConfirmPassword: "baru12345",
	})
	if res.Code != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d (body: %s)", res.Code, res.Body.String())
	}

	login(t, api, ownerEmail, "baru12345")
}

func TestDeactivatedUserLosesAccess(t *testing.T) {
	api := newTestAPI(t)
	owner := loginAsOwner(t, api)

	res := call(t, api, http.MethodPost, "/api/v1/users", owner, map[string]any{
		"email":            "kasir@toko.local",
		"display_name":     "Kasir",
		"password":         "kasir123",
		"confirm_password": "kasir123",
		"role_id":          "role-kasir",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d", res.Code)
	}
	var created struct {
		User domain.User `json:"user"`
	}
	decodeBody(t, res, &created)
	cashier := login(t, api, "kasir@toko.local", "kasir123").AccessToken

	res = call(t, api, http.MethodPatch, "/api/v1/users/"+created.User.ID, owner, map[string]any{"is_active": false})
	if res.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d", res.Code)
	}

	res = call(t, api, http.MethodGet, "/api/v1/auth/session", cashier, nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for deactivated user, got %d", res.Code)
	}

	res = call(t, api, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: "kasir@toko.local", Password: "kasir123"})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on login for deactivated user, got %d", res.Code)
	}

	res = call(t, api, http.MethodDelete, "/api/v1/users/user-owner", owner, nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when deleting yourself, got %d", res.Code)
	}
}
