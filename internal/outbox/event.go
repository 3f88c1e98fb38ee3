package outbox

import (
	"encoding/json"
	"time"
)

// Event types double as Kafka topic names.
const (
	EventAppointmentScheduled = "clinic.appointment.scheduled.v1"
	EventAppointmentCancelled = "clinic.appointment.cancelled.v1"
	EventAppointmentCompleted = "clinic.appointment.completed.v1"
	EventAppointmentReminder  = "clinic.appointment.reminder.v1"
)

// Event is the domain event envelope written to the outbox table in the same
// transaction as the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the body of every appointment lifecycle event.
type AppointmentPayload struct {
	AppointmentID  string    `json:"appointment_id"`
	VeterinarianID string    `json:"veterinarian_id"`
	PatientID      string    `json:"patient_id"`
	StartsAt       time.Time `json:"starts_at"`
	Status         string    `json:"status"`
}

func AppointmentEvent(eventType string, p AppointmentPayload) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   p.AppointmentID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
