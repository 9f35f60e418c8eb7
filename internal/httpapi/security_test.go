package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tokoagen/backend/internal/domain"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sales", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Fatalf("expected DELETE in allowed methods, got %q", got)
	}
}

func TestLoginRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	body, _ := json.Marshal(domain.LoginRequest{Email: ownerEmail, Password: "wrong-pass"})

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		api.Handler().ServeHTTP(res, req)

		if i < 5 && res.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d expected 401 before limit, got %d", i+1, res.Code)
		}
		if i == 5 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 6 expected 429, got %d", res.Code)
		}
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"email":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestMutationWithoutCSRFTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsOwner(t, api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader(`{"name":"Rokok"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/categories/cat-atk", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", "not-a-token")
	res = httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with a forged CSRF token, got %d", res.Code)
	}
}

func TestMissingBearerTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	res := call(t, api, http.MethodGet, "/api/v1/dashboard", "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}

	res = call(t, api, http.MethodGet, "/api/v1/dashboard", "garbage", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a malformed token, got %d", res.Code)
	}
}

func TestAreaGuardRedirectsToRoot(t *testing.T) {
	api := newTestAPI(t)
	owner := loginAsOwner(t, api)

	res := call(t, api, http.MethodPost, "/api/v1/users", owner, map[string]any{
		"email":            "kasir@toko.local",
		"display_name":     "Kasir Pagi",
		"password":         "kasir123",
		"confirm_password": "kasir123",
		"role_id":          "role-kasir",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("create cashier: expected 201, got %d (body: %s)", res.Code, res.Body.String())
	}

	cashier := login(t, api, "kasir@toko.local", "kasir123")
	if cashier.LandingPath != "/dashboard" {
		t.Fatalf("expected cashier landing /dashboard, got %s", cashier.LandingPath)
	}

	res = call(t, api, http.MethodGet, "/api/v1/reports/summary", cashier.AccessToken, nil)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for reports, got %d", res.Code)
	}
	var denied map[string]string
	decodeBody(t, res, &denied)
	if denied["error"] != "forbidden" || denied["redirect"] != "/" {
		t.Fatalf("unexpected denial body: %v", denied)
	}

	res = call(t, api, http.MethodGet, "/api/v1/sales", cashier.AccessToken, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected cashier to reach sales, got %d", res.Code)
	}
}

func TestParsePositiveLimitCaps(t *testing.T) {
	if got := parsePositiveLimit("9999", 50, 200); got != 200 {
		t.Fatalf("expected capped limit 200, got %d", got)
	}
	if got := parsePositiveLimit("", 50, 200); got != 50 {
		t.Fatalf("expected fallback limit 50, got %d", got)
	}
	if got := parsePositiveLimit("invalid", 50, 200); got != 50 {
		t.Fatalf("expected fallback on invalid input, got %d", got)
	}
}

func TestResourceIDSplitsPath(t *testing.T) {
	id, rest := resourceID("/api/v1/sales/sale-1/receipt", "/api/v1/sales/")
	if id != "sale-1" || rest != "receipt" {
		t.Fatalf("unexpected split: %q %q", id, rest)
	}
	id, rest = resourceID("/api/v1/sales/sale-1/", "/api/v1/sales/")
	if id != "sale-1" || rest != "" {
		t.Fatalf("unexpected split with trailing slash: %q %q", id, rest)
	}
}
