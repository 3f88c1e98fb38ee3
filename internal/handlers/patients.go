package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/internal/storage"
)

type PatientHandler struct {
	patients *storage.PatientRepository
	records  *storage.RecordRepository
}

func NewPatientHandler(patients *storage.PatientRepository, records *storage.RecordRepository) *PatientHandler {
	return &PatientHandler{patients: patients, records: records}
}

type patientRequest struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Species      string `json:"species"`
	Breed        string `json:"breed"`
	Sex          string `json:"sex"`
	BirthDate    string `json:"birth_date"`
	MedicalNotes string `json:"medical_notes"`
	OwnerID      string `json:"owner_id"`
}

type patientItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Species      string `json:"species"`
	Breed        string `json:"breed,omitempty"`
	Sex          string `json:"sex"`
	BirthDate    string `json:"birth_date"`
	MedicalNotes string `json:"medical_notes,omitempty"`
	OwnerID      string `json:"owner_id"`
}

func patientFromRequest(w http.ResponseWriter, req patientRequest) (model.Patient, bool) {
	req.Name = strings.TrimSpace(req.Name)
	req.Surname = strings.TrimSpace(req.Surname)
	req.Species = strings.TrimSpace(req.Species)
	req.Sex = strings.ToUpper(strings.TrimSpace(req.Sex))
	req.OwnerID = strings.TrimSpace(req.OwnerID)

	if req.Name == "" || req.Species == "" || req.OwnerID == "" {
		http.Error(w, "name, species and owner_id are required", http.StatusBadRequest)
		return model.Patient{}, false
	}
	if req.Sex != "M" && req.Sex != "F" {
		writeFieldError(w, http.StatusBadRequest, "sex", "sex must be M or F")
		return model.Patient{}, false
	}
	birthDate, err := time.Parse("2006-01-02", strings.TrimSpace(req.BirthDate))
	if err != nil {
		writeFieldError(w, http.StatusBadRequest, "birth_date", "birth_date must be YYYY-MM-DD")
		return model.Patient{}, false
	}

	return model.Patient{
		ID:           req.ID,
		Name:         req.Name,
		Surname:      req.Surname,
		Species:      req.Species,
		Breed:        strings.TrimSpace(req.Breed),
		Sex:          req.Sex,
		BirthDate:    birthDate,
		MedicalNotes: strings.TrimSpace(req.MedicalNotes),
		OwnerID:      req.OwnerID,
	}, true
}

// Route dispatches the patient collection endpoint.
func (h *PatientHandler) Route(w http.ResponseWriter, r *http.Request) {
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

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req patientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, ok := patientFromRequest(w, req)
	if !ok {
		return
	}

	id, err := h.patients.Create(r.Context(), &p)
	if err != nil {
		http.Error(w, "failed to create patient", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req patientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	p, ok := patientFromRequest(w, req)
	if !ok {
		return
	}

	if err := h.patients.Update(r.Context(), &p); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update patient", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List serves both the full roster and the reception desk's free-text search
// via the optional q parameter.
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := queryLimit(r, 100, 100)
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var patients []model.Patient
	var err error
	if q != "" {
		patients, err = h.patients.Search(r.Context(), q, limit)
	} else {
		patients, err = h.patients.List(r.Context(), limit)
	}
	if err != nil {
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}

	items := make([]patientItem, 0, len(patients))
	for _, p := range patients {
		items = append(items, patientItem{
			ID:           p.ID,
			Name:         p.Name,
			Surname:      p.Surname,
			Species:      p.Species,
			Breed:        p.Breed,
			Sex:          p.Sex,
			BirthDate:    p.BirthDate.Format("2006-01-02"),
			MedicalNotes: p.MedicalNotes,
			OwnerID:      p.OwnerID,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type recordItem struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	ConsultedAt   string `json:"consulted_at"`
	Diagnosis     string `json:"diagnosis"`
	Treatment     string `json:"treatment"`
	VetNote       string `json:"vet_note,omitempty"`
}

// Records returns a patient's medical history, newest first.
func (h *PatientHandler) Records(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	patientID := strings.TrimSpace(r.URL.Query().Get("patient_id"))
	if patientID == "" {
		http.Error(w, "patient_id required", http.StatusBadRequest)
		return
	}

	records, err := h.records.ListByPatient(r.Context(), patientID, queryLimit(r, 100, 500))
	if err != nil {
		http.Error(w, "failed to list records", http.StatusInternalServerError)
		return
	}

	items := make([]recordItem, 0, len(records))
	for _, rec := range records {
		items = append(items, recordItem{
			ID:            rec.ID,
			AppointmentID: rec.AppointmentID,
			ConsultedAt:   rec.ConsultedAt.UTC().Format(time.RFC3339),
			Diagnosis:     rec.Diagnosis,
			Treatment:     rec.Treatment,
			VetNote:       rec.VetNote,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
