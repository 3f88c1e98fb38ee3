package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/nlazzarini/vetclinic/internal/authz"
	"github.com/nlazzarini/vetclinic/internal/storage"
	"github.com/nlazzarini/vetclinic/libs/auth"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenTTL = 8 * time.Hour

type AuthHandler struct {
	users     *storage.UserRepository
	vets      *storage.VeterinarianRepository
	jwtSecret string
}

func NewAuthHandler(users *storage.UserRepository, vets *storage.VeterinarianRepository, jwtSecret string) *AuthHandler {
	return &AuthHandler{users: users, vets: vets, jwtSecret: jwtSecret}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role"`
}

// Login verifies credentials and issues an access token. Veterinarian users
// get their profile id embedded so schedule ownership checks need no lookup.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		// Same response for unknown user and bad password.
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	vetID := ""
	if user.Role == authz.RoleVeterinarian {
		if vet, err := h.vets.GetByUserID(r.Context(), user.ID); err == nil {
			vetID = vet.ID
		}
	}

	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:   user.ID,
		Role:  user.Role,
		VetID: vetID,
		Iat:   now.Unix(),
		Exp:   now.Add(accessTokenTTL).Unix(),
	}, h.jwtSecret)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		Role:        user.Role,
	})
}
