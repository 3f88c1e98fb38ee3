package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nlazzarini/vetclinic/libs/auth"
)

func issueToken(t *testing.T, role, vetID, secret string) string {
	t.Helper()
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:   "user-1",
		Role:  role,
		VetID: vetID,
		Iat:   now.Unix(),
		Exp:   now.Add(time.Hour).Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestMiddlewareAttachesContext(t *testing.T) {
	const secret = "test-secret"
	var got Context
	var ok bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, RoleVeterinarian, "vet-1", secret))
	rec := httptest.NewRecorder()
	Middleware(secret)(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !ok {
		t.Fatal("expected authz context on request")
	}
	if got.UserID != "user-1" || got.Role != RoleVeterinarian || got.VeterinarianID != "vet-1" {
		t.Fatalf("unexpected context: %+v", got)
	}
}

func TestMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	const secret = "test-secret"
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})
	h := Middleware(secret)(inner)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"wrong secret":   "Bearer " + issueToken(t, RoleReceptionist, "", "other-secret"),
		"garbage":        "Bearer not.a.token",
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestRequireRole(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireRole(RoleReceptionist)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req = req.WithContext(WithContext(req.Context(), Context{UserID: "u", Role: RoleReceptionist}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("receptionist: expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req = req.WithContext(WithContext(req.Context(), Context{UserID: "u", Role: RoleVeterinarian}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("veterinarian: expected 403, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no context: expected 401, got %d", rec.Code)
	}
}

func TestCanManageAppointment(t *testing.T) {
	cases := []struct {
		name string
		ctx  Context
		vet  string
		want bool
	}{
		{"receptionist any vet", Context{Role: RoleReceptionist}, "vet-9", true},
		{"vet own schedule", Context{Role: RoleVeterinarian, VeterinarianID: "vet-1"}, "vet-1", true},
		{"vet other schedule", Context{Role: RoleVeterinarian, VeterinarianID: "vet-1"}, "vet-2", false},
		{"vet without profile", Context{Role: RoleVeterinarian}, "", false},
		{"unknown role", Context{Role: "intern"}, "vet-1", false},
	}
	for _, tc := range cases {
		if got := tc.ctx.CanManageAppointment(tc.vet); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}
