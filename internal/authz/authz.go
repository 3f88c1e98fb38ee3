package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/nlazzarini/vetclinic/libs/auth"
	"github.com/nlazzarini/vetclinic/libs/httpx"
)

const (
	RoleReceptionist = "receptionist"
	RoleVeterinarian = "veterinarian"
)

// Context is the caller identity for a single request, built from verified
// token claims. VeterinarianID is empty unless the user is linked to a
// veterinarian profile.
type Context struct {
	UserID         string
	Role           string
	VeterinarianID string
}

// CanManageAppointment reports whether the caller may create, edit, cancel or
// complete an appointment assigned to the given veterinarian. Receptionists
// manage everything; veterinarians only their own schedule.
func (c Context) CanManageAppointment(vetID string) bool {
	switch c.Role {
	case RoleReceptionist:
		return true
	case RoleVeterinarian:
		return c.VeterinarianID != "" && c.VeterinarianID == vetID
	default:
		return false
	}
}

type ctxKey struct{}

func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(ctxKey{}).(Context)
	return ac, ok
}

// Middleware verifies the bearer token and attaches the caller identity to
// the request context. Requests without a valid token are rejected.
func Middleware(jwtSecret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			claims, err := auth.ParseAndVerifyHS256(token, jwtSecret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ac := Context{
				UserID:         claims.Sub,
				Role:           claims.Role,
				VeterinarianID: claims.VetID,
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
		})
	}
}

// RequireRole gates a handler to callers holding one of the given roles. It
// assumes Middleware already ran.
func RequireRole(roles ...string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if ac.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
