package handlers

import (
	"net/http"
	"strings"

	"github.com/nlazzarini/vetclinic/internal/authz"
	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/internal/storage"
)

// DirectoryHandler manages the clinic roster: veterinarians and
// administrative staff.
type DirectoryHandler struct {
	vets  *storage.VeterinarianRepository
	staff *storage.StaffRepository
}

func NewDirectoryHandler(vets *storage.VeterinarianRepository, staff *storage.StaffRepository) *DirectoryHandler {
	return &DirectoryHandler{vets: vets, staff: staff}
}

// RouteVeterinarians dispatches the veterinarian roster endpoint. Listing is
// open to all staff; creating entries is a receptionist task.
func (h *DirectoryHandler) RouteVeterinarians(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListVeterinarians(w, r)
	case http.MethodPost:
		if ac, ok := authz.FromContext(r.Context()); !ok || ac.Role != authz.RoleReceptionist {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		h.CreateVeterinarian(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DirectoryHandler) RouteStaff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListStaff(w, r)
	case http.MethodPost:
		h.CreateStaff(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type veterinarianRequest struct {
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Specialty string `json:"specialty"`
	UserID    string `json:"user_id"`
}

func (h *DirectoryHandler) CreateVeterinarian(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req veterinarianRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v := model.Veterinarian{
		Name:      strings.TrimSpace(req.Name),
		Surname:   strings.TrimSpace(req.Surname),
		Specialty: strings.TrimSpace(req.Specialty),
		UserID:    strings.TrimSpace(req.UserID),
	}
	if v.Name == "" || v.Surname == "" {
		http.Error(w, "name and surname are required", http.StatusBadRequest)
		return
	}

	id, err := h.vets.Create(r.Context(), &v)
	if err != nil {
		http.Error(w, "failed to create veterinarian", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type veterinarianItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Specialty string `json:"specialty,omitempty"`
}

func (h *DirectoryHandler) ListVeterinarians(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vets, err := h.vets.List(r.Context(), queryLimit(r, 100, 200))
	if err != nil {
		http.Error(w, "failed to list veterinarians", http.StatusInternalServerError)
		return
	}

	items := make([]veterinarianItem, 0, len(vets))
	for _, v := range vets {
		items = append(items, veterinarianItem{
			ID:        v.ID,
			Name:      v.Name,
			Surname:   v.Surname,
			Specialty: v.Specialty,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type staffRequest struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Contact string `json:"contact"`
}

func (h *DirectoryHandler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req staffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s := model.StaffMember{
		Name:    strings.TrimSpace(req.Name),
		Surname: strings.TrimSpace(req.Surname),
		Contact: strings.TrimSpace(req.Contact),
	}
	if s.Name == "" || s.Surname == "" {
		http.Error(w, "name and surname are required", http.StatusBadRequest)
		return
	}

	id, err := h.staff.Create(r.Context(), &s)
	if err != nil {
		http.Error(w, "failed to create staff member", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type staffItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Contact string `json:"contact,omitempty"`
}

func (h *DirectoryHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	staff, err := h.staff.List(r.Context(), queryLimit(r, 100, 200))
	if err != nil {
		http.Error(w, "failed to list staff", http.StatusInternalServerError)
		return
	}

	items := make([]staffItem, 0, len(staff))
	for _, s := range staff {
		items = append(items, staffItem{
			ID:      s.ID,
			Name:    s.Name,
			Surname: s.Surname,
			Contact: s.Contact,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
