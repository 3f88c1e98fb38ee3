package model

import "time"

// MedicalRecord is the clinical outcome of a completed appointment.
type MedicalRecord struct {
	ID            string
	PatientID     string
	AppointmentID string
	ConsultedAt   time.Time
	Diagnosis     string
	Treatment     string
	VetNote       string
	CreatedAt     time.Time
}
