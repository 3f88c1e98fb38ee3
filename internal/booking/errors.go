package booking

import "errors"

// Validation failures surfaced to the form boundary as field-level messages.
var (
	ErrInvalidSlotFormat = errors.New("slot must be an HH:MM label")
	ErrOutOfWorkingHours = errors.New("slot is outside working hours (09:00-18:00)")
	ErrSlotTaken         = errors.New("slot already taken for this veterinarian")
)
