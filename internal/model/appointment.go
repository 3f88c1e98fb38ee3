package model

import "time"

// Appointment statuses. An appointment is created scheduled, becomes completed
// when a clinical encounter is recorded against it, or cancelled by staff.
// Only scheduled appointments occupy a slot.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID             string
	StartsAt       time.Time
	VeterinarianID string
	PatientID      string
	StaffID        string
	Status         string
	CancelledAt    *time.Time
	CreatedAt      time.Time
}
