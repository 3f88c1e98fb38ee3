package handlers

import (
	"net/http"
	"strings"

	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/internal/storage"
)

type OwnerHandler struct {
	owners *storage.OwnerRepository
}

func NewOwnerHandler(owners *storage.OwnerRepository) *OwnerHandler {
	return &OwnerHandler{owners: owners}
}

type ownerRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type ownerItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email"`
}

func ownerFromRequest(w http.ResponseWriter, req ownerRequest) (model.Owner, bool) {
	o := model.Owner{
		ID:      strings.TrimSpace(req.ID),
		Name:    strings.TrimSpace(req.Name),
		Surname: strings.TrimSpace(req.Surname),
		Address: strings.TrimSpace(req.Address),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
	}
	if o.Name == "" || o.Email == "" {
		http.Error(w, "name and email are required", http.StatusBadRequest)
		return model.Owner{}, false
	}
	return o, true
}

// Route dispatches the owner collection endpoint.
func (h *OwnerHandler) Route(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodPut:
		h.Update(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *OwnerHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ownerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, ok := ownerFromRequest(w, req)
	if !ok {
		return
	}

	id, err := h.owners.Create(r.Context(), &o)
	if err != nil {
		if storage.IsConflict(err) {
			writeFieldError(w, http.StatusConflict, "email", "an owner with that email already exists")
			return
		}
		http.Error(w, "failed to create owner", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *OwnerHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ownerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, ok := ownerFromRequest(w, req)
	if !ok {
		return
	}
	if o.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	if err := h.owners.Update(r.Context(), &o); err != nil {
		switch {
		case storage.IsNotFound(err):
			http.Error(w, "owner not found", http.StatusNotFound)
		case storage.IsConflict(err):
			writeFieldError(w, http.StatusConflict, "email", "an owner with that email already exists")
		default:
			http.Error(w, "failed to update owner", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OwnerHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := queryLimit(r, 200, 200)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var owners []model.Owner
	var err error
	if q != "" {
		owners, err = h.owners.Search(r.Context(), q, limit)
	} else {
		owners, err = h.owners.List(r.Context(), limit)
	}
	if err != nil {
		http.Error(w, "failed to list owners", http.StatusInternalServerError)
		return
	}

	items := make([]ownerItem, 0, len(owners))
	for _, o := range owners {
		items = append(items, ownerItem{
			ID:      o.ID,
			Name:    o.Name,
			Surname: o.Surname,
			Address: o.Address,
			Phone:   o.Phone,
			Email:   o.Email,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
