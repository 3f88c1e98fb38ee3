package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/nlazzarini/vetclinic/internal/booking"
)

// SlotsHandler serves the public availability feed consumed by the booking
// form. It never fails the form: any bad input, unknown veterinarian or
// backend error degrades to an empty slot list with a 200.
type SlotsHandler struct {
	booking *booking.Service
	logger  *slog.Logger
}

func NewSlotsHandler(bookingSvc *booking.Service, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{booking: bookingSvc, logger: logger}
}

type slotsResponse struct {
	Slots []string `json:"slots"`
}

// Get handles GET /api/slots?vet_id=...&fecha=YYYY-MM-DD.
func (h *SlotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vetID := strings.TrimSpace(r.URL.Query().Get("vet_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("fecha"))
	if vetID == "" || dateStr == "" {
		writeJSON(w, http.StatusOK, slotsResponse{Slots: []string{}})
		return
	}

	date, err := parseDate(dateStr, h.booking.Location())
	if err != nil {
		writeJSON(w, http.StatusOK, slotsResponse{Slots: []string{}})
		return
	}

	slots, err := h.booking.AvailableSlots(r.Context(), vetID, date)
	if err != nil {
		h.logger.Error("availability lookup failed", "vet_id", vetID, "date", dateStr, "err", err)
		writeJSON(w, http.StatusOK, slotsResponse{Slots: []string{}})
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{Slots: slots})
}

// AvailabilityHandler is the authenticated variant that feeds the appointment
// form, including edit mode where the current slot stays offered.
type AvailabilityHandler struct {
	booking *booking.Service
}

func NewAvailabilityHandler(bookingSvc *booking.Service) *AvailabilityHandler {
	return &AvailabilityHandler{booking: bookingSvc}
}

type availabilityResponse struct {
	Slots    []string `json:"slots"`
	Selected string   `json:"selected,omitempty"`
}

// Get handles GET /api/v1/appointments/availability with vet_id, date and an
// optional appointment_id when editing.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vetID := strings.TrimSpace(r.URL.Query().Get("vet_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	apptID := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
	if vetID == "" || dateStr == "" {
		writeFieldError(w, http.StatusBadRequest, "date", "vet_id and date are required")
		return
	}

	date, err := parseDate(dateStr, h.booking.Location())
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "date", "date must be YYYY-MM-DD")
		return
	}

	if apptID == "" {
		slots, err := h.booking.AvailableSlots(r.Context(), vetID, date)
		if err != nil {
			http.Error(w, "failed to load availability", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{Slots: slots})
		return
	}

	choices, err := h.booking.SlotChoicesForEdit(r.Context(), vetID, date, apptID)
	if err != nil {
		http.Error(w, "failed to load availability", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Slots: choices.Slots, Selected: choices.Selected})
}
