package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nlazzarini/vetclinic/internal/authz"
	"github.com/nlazzarini/vetclinic/internal/booking"
	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/internal/outbox"
	"github.com/nlazzarini/vetclinic/internal/storage"
)

type AppointmentHandler struct {
	appts      *storage.AppointmentRepository
	records    *storage.RecordRepository
	outboxRepo *outbox.Repository
	booking    *booking.Service
	logger     *slog.Logger
}

func NewAppointmentHandler(
	appts *storage.AppointmentRepository,
	records *storage.RecordRepository,
	outboxRepo *outbox.Repository,
	bookingSvc *booking.Service,
	logger *slog.Logger,
) *AppointmentHandler {
	return &AppointmentHandler{
		appts:      appts,
		records:    records,
		outboxRepo: outboxRepo,
		booking:    bookingSvc,
		logger:     logger,
	}
}

type appointmentRequest struct {
	AppointmentID  string `json:"appointment_id,omitempty"`
	VeterinarianID string `json:"veterinarian_id"`
	PatientID      string `json:"patient_id"`
	StaffID        string `json:"staff_id"`
	Date           string `json:"date"`
	Slot           string `json:"slot"`
}

type appointmentResponse struct {
	AppointmentID string `json:"appointment_id"`
	StartsAt      string `json:"starts_at"`
	Status        string `json:"status"`
}

// writeSlotError maps booking validation failures to field-level responses so
// the form can render them inline instead of a generic failure page.
func writeSlotError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, booking.ErrInvalidSlotFormat):
		writeFieldError(w, http.StatusBadRequest, "slot", "slot must be HH:MM")
	case errors.Is(err, booking.ErrOutOfWorkingHours):
		writeFieldError(w, http.StatusUnprocessableEntity, "slot", "slot is outside working hours (09:00-17:30)")
	case errors.Is(err, booking.ErrSlotTaken):
		writeFieldError(w, http.StatusConflict, "slot", "the veterinarian already has an appointment at that time")
	default:
		return false
	}
	return true
}

// Route dispatches the appointment collection endpoint: GET lists, POST
// creates.
func (h *AppointmentHandler) Route(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, ok := h.decodeAndAuthorize(w, r, false)
	if !ok {
		return
	}

	ctx := r.Context()
	startsAt, err := h.booking.ValidateBooking(ctx, req.VeterinarianID, mustDate(req.Date, h.booking.Location()), req.Slot, "")
	if err != nil {
		if !writeSlotError(w, err) {
			http.Error(w, "failed to validate booking", http.StatusInternalServerError)
		}
		return
	}

	tx, err := h.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt := &model.Appointment{
		StartsAt:       startsAt,
		VeterinarianID: req.VeterinarianID,
		PatientID:      req.PatientID,
		StaffID:        req.StaffID,
	}
	id, err := h.appts.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			writeFieldError(w, http.StatusConflict, "slot", "the veterinarian already has an appointment at that time")
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	if err := h.insertEvent(ctx, tx, outbox.EventAppointmentScheduled, id, req.VeterinarianID, req.PatientID, startsAt, model.StatusScheduled); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, appointmentResponse{
		AppointmentID: id,
		StartsAt:      startsAt.UTC().Format(time.RFC3339),
		Status:        model.StatusScheduled,
	})
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, ok := h.decodeAndAuthorize(w, r, true)
	if !ok {
		return
	}

	ctx := r.Context()
	startsAt, err := h.booking.ValidateBooking(ctx, req.VeterinarianID, mustDate(req.Date, h.booking.Location()), req.Slot, req.AppointmentID)
	if err != nil {
		if !writeSlotError(w, err) {
			http.Error(w, "failed to validate booking", http.StatusInternalServerError)
		}
		return
	}

	tx, err := h.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = h.appts.Reschedule(ctx, tx, req.AppointmentID, startsAt, req.VeterinarianID, req.PatientID, req.StaffID)
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			http.Error(w, "appointment not found or not scheduled", http.StatusNotFound)
		case storage.IsConflict(err):
			writeFieldError(w, http.StatusConflict, "slot", "the veterinarian already has an appointment at that time")
		default:
			http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		}
		return
	}

	if err := h.insertEvent(ctx, tx, outbox.EventAppointmentScheduled, req.AppointmentID, req.VeterinarianID, req.PatientID, startsAt, model.StatusScheduled); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, appointmentResponse{
		AppointmentID: req.AppointmentID,
		StartsAt:      startsAt.UTC().Format(time.RFC3339),
		Status:        model.StatusScheduled,
	})
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	appt, err := h.appts.Get(ctx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if !callerMayManage(r, appt.VeterinarianID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if appt.Status != model.StatusScheduled {
		http.Error(w, "appointment cannot be cancelled", http.StatusConflict)
		return
	}

	tx, err := h.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cancelledAt, err := h.appts.Cancel(ctx, tx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment cannot be cancelled", http.StatusConflict)
			return
		}
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}

	if err := h.insertEvent(ctx, tx, outbox.EventAppointmentCancelled, appt.ID, appt.VeterinarianID, appt.PatientID, appt.StartsAt, model.StatusCancelled); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"appointment_id": appt.ID,
		"status":         model.StatusCancelled,
		"cancelled_at":   cancelledAt.UTC().Format(time.RFC3339),
	})
}

type completeRequest struct {
	AppointmentID string `json:"appointment_id"`
	Diagnosis     string `json:"diagnosis"`
	Treatment     string `json:"treatment"`
	VetNote       string `json:"vet_note"`
}

// Complete records the clinical encounter and marks the appointment completed
// in one transaction, so the slot frees only alongside its medical record.
func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req completeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Diagnosis = strings.TrimSpace(req.Diagnosis)
	req.Treatment = strings.TrimSpace(req.Treatment)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	if req.Diagnosis == "" || req.Treatment == "" {
		writeFieldError(w, http.StatusBadRequest, "diagnosis", "diagnosis and treatment are required")
		return
	}

	ctx := r.Context()
	appt, err := h.appts.Get(ctx, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if !callerMayManage(r, appt.VeterinarianID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	tx, err := h.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.appts.Complete(ctx, tx, req.AppointmentID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment cannot be completed", http.StatusConflict)
			return
		}
		http.Error(w, "failed to complete appointment", http.StatusInternalServerError)
		return
	}

	recordID, err := h.records.Insert(ctx, tx, &model.MedicalRecord{
		PatientID:     appt.PatientID,
		AppointmentID: appt.ID,
		ConsultedAt:   time.Now().UTC(),
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
		VetNote:       strings.TrimSpace(req.VetNote),
	})
	if err != nil {
		http.Error(w, "failed to record encounter", http.StatusInternalServerError)
		return
	}

	if err := h.insertEvent(ctx, tx, outbox.EventAppointmentCompleted, appt.ID, appt.VeterinarianID, appt.PatientID, appt.StartsAt, model.StatusCompleted); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"appointment_id": appt.ID,
		"record_id":      recordID,
		"status":         model.StatusCompleted,
	})
}

type listAppointmentItem struct {
	AppointmentID  string `json:"appointment_id"`
	VeterinarianID string `json:"veterinarian_id"`
	PatientID      string `json:"patient_id"`
	StaffID        string `json:"staff_id"`
	StartsAt       string `json:"starts_at"`
	Status         string `json:"status"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type listAppointmentsResponse struct {
	Appointments  []listAppointmentItem `json:"appointments"`
	TodayCount    int                   `json:"today_count"`
	TomorrowCount int                   `json:"tomorrow_count"`
}

// List returns the appointment book. Receptionists see every veterinarian;
// veterinarians only their own schedule. The today/tomorrow counters feed the
// dashboard alert badges.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ac, ok := authz.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := queryLimit(r, 100, 500)
	ctx := r.Context()

	var appts []model.Appointment
	var err error
	countVetID := ""
	switch ac.Role {
	case authz.RoleReceptionist:
		appts, err = h.appts.ListAll(ctx, limit)
	case authz.RoleVeterinarian:
		if ac.VeterinarianID == "" {
			http.Error(w, "no veterinarian profile linked", http.StatusForbidden)
			return
		}
		countVetID = ac.VeterinarianID
		appts, err = h.appts.ListByVeterinarian(ctx, ac.VeterinarianID, limit)
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	loc := h.booking.Location()
	now := time.Now().In(loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrowStart := todayStart.AddDate(0, 0, 1)
	dayAfterStart := todayStart.AddDate(0, 0, 2)

	todayCount, err := h.appts.CountScheduledBetween(ctx, countVetID, todayStart, tomorrowStart.Add(-time.Second))
	if err != nil {
		http.Error(w, "failed to count appointments", http.StatusInternalServerError)
		return
	}
	tomorrowCount, err := h.appts.CountScheduledBetween(ctx, countVetID, tomorrowStart, dayAfterStart.Add(-time.Second))
	if err != nil {
		http.Error(w, "failed to count appointments", http.StatusInternalServerError)
		return
	}

	items := make([]listAppointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := listAppointmentItem{
			AppointmentID:  appt.ID,
			VeterinarianID: appt.VeterinarianID,
			PatientID:      appt.PatientID,
			StaffID:        appt.StaffID,
			StartsAt:       appt.StartsAt.UTC().Format(time.RFC3339),
			Status:         appt.Status,
			CreatedAt:      appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, listAppointmentsResponse{
		Appointments:  items,
		TodayCount:    todayCount,
		TomorrowCount: tomorrowCount,
	})
}

// decodeAndAuthorize parses the shared create/reschedule body, validates the
// required fields and checks the caller may manage the target veterinarian's
// schedule.
func (h *AppointmentHandler) decodeAndAuthorize(w http.ResponseWriter, r *http.Request, needID bool) (appointmentRequest, bool) {
	var req appointmentRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.VeterinarianID = strings.TrimSpace(req.VeterinarianID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.Date = strings.TrimSpace(req.Date)
	req.Slot = strings.TrimSpace(req.Slot)

	if req.VeterinarianID == "" || req.PatientID == "" || req.StaffID == "" {
		http.Error(w, "veterinarian_id, patient_id and staff_id are required", http.StatusBadRequest)
		return req, false
	}
	if needID && req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return req, false
	}
	if _, err := parseDate(req.Date, h.booking.Location()); err != nil {
		writeFieldError(w, http.StatusBadRequest, "date", "date must be YYYY-MM-DD")
		return req, false
	}

	ac, ok := authz.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return req, false
	}
	if !ac.CanManageAppointment(req.VeterinarianID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return req, false
	}
	return req, true
}

func (h *AppointmentHandler) insertEvent(ctx context.Context, tx pgx.Tx, eventType, apptID, vetID, patientID string, startsAt time.Time, status string) error {
	evt, err := outbox.AppointmentEvent(eventType, outbox.AppointmentPayload{
		AppointmentID:  apptID,
		VeterinarianID: vetID,
		PatientID:      patientID,
		StartsAt:       startsAt.UTC(),
		Status:         status,
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, evt)
}

func callerMayManage(r *http.Request, vetID string) bool {
	ac, ok := authz.FromContext(r.Context())
	return ok && ac.CanManageAppointment(vetID)
}

func mustDate(raw string, loc *time.Location) time.Time {
	// Callers validate the date first; a second parse cannot fail here.
	t, _ := parseDate(raw, loc)
	return t
}
