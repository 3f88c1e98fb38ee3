package booking

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/nlazzarini/vetclinic/internal/schedule"
)

// VeterinarianFinder answers whether a veterinarian exists. Unknown vets make
// availability degrade to an empty result instead of failing.
type VeterinarianFinder interface {
	VeterinarianExists(ctx context.Context, id string) (bool, error)
}

// AppointmentStore is the slice of the appointment store the booking core
// reads. Occupancy is always scheduled-only; completed and cancelled
// appointments never block a slot.
type AppointmentStore interface {
	// ListScheduledStarts returns the start timestamps of scheduled
	// appointments for the veterinarian with starts_at in [from, to].
	ListScheduledStarts(ctx context.Context, vetID string, from, to time.Time) ([]time.Time, error)
	// ExistsScheduledAt reports whether a scheduled appointment exists for the
	// veterinarian at exactly at, ignoring the appointment with excludeID.
	ExistsScheduledAt(ctx context.Context, vetID string, at time.Time, excludeID string) (bool, error)
	// GetStartsAt returns the current start timestamp of an appointment.
	GetStartsAt(ctx context.Context, appointmentID string) (time.Time, error)
}

// Service computes availability and validates bookings against the store.
// All slot arithmetic happens in the clinic's location.
type Service struct {
	vets  VeterinarianFinder
	appts AppointmentStore
	loc   *time.Location
}

func NewService(vets VeterinarianFinder, appts AppointmentStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{vets: vets, appts: appts, loc: loc}
}

// Location returns the clinic location the service operates in.
func (s *Service) Location() *time.Location { return s.loc }

// AvailableSlots returns the free HH:MM labels for the veterinarian on the
// given calendar date. An unknown veterinarian yields an empty list, not an
// error. Read-only.
func (s *Service) AvailableSlots(ctx context.Context, vetID string, date time.Time) ([]string, error) {
	ok, err := s.vets.VeterinarianExists(ctx, vetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{}, nil
	}

	occupied, err := s.occupiedLabels(ctx, vetID, date)
	if err != nil {
		return nil, err
	}
	slots := schedule.Slots(s.localDate(date), occupied)
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

// SlotChoices is the slot list offered by the booking form, with the label to
// preselect when editing an existing appointment.
type SlotChoices struct {
	Slots    []string
	Selected string
}

// SlotChoicesForEdit returns the availability for (vetID, date) with the
// edited appointment's own slot guaranteed present and preselected, so the
// caller can keep the current value when rescheduling.
func (s *Service) SlotChoicesForEdit(ctx context.Context, vetID string, date time.Time, appointmentID string) (SlotChoices, error) {
	slots, err := s.AvailableSlots(ctx, vetID, date)
	if err != nil {
		return SlotChoices{}, err
	}

	current, err := s.appts.GetStartsAt(ctx, appointmentID)
	if err != nil {
		return SlotChoices{}, err
	}
	label := schedule.Label(current.In(s.loc))

	found := false
	for _, slot := range slots {
		if slot == label {
			found = true
			break
		}
	}
	if !found {
		slots = append(slots, label)
	}
	return SlotChoices{Slots: slots, Selected: label}, nil
}

// ValidateBooking is the authoritative gate run at submission time. It parses
// the slot label, range-checks it against working hours, resolves the exact
// clinic-local timestamp, and rejects the booking if another scheduled
// appointment for the veterinarian already holds that instant. excludeID
// (empty for new bookings) keeps an edited appointment from conflicting with
// itself. On success the returned timestamp is what gets persisted.
func (s *Service) ValidateBooking(ctx context.Context, vetID string, date time.Time, slot string, excludeID string) (time.Time, error) {
	hour, minute, err := parseSlotLabel(slot)
	if err != nil {
		return time.Time{}, err
	}
	if !schedule.InWorkingHours(hour, minute) {
		return time.Time{}, ErrOutOfWorkingHours
	}

	at := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, s.loc)

	taken, err := s.appts.ExistsScheduledAt(ctx, vetID, at, excludeID)
	if err != nil {
		return time.Time{}, err
	}
	if taken {
		return time.Time{}, ErrSlotTaken
	}
	return at, nil
}

func (s *Service) occupiedLabels(ctx context.Context, vetID string, date time.Time) (map[string]struct{}, error) {
	day := s.localDate(date)
	from := day
	to := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 0, 0, s.loc)

	starts, err := s.appts.ListScheduledStarts(ctx, vetID, from, to)
	if err != nil {
		return nil, err
	}
	occupied := make(map[string]struct{}, len(starts))
	for _, start := range starts {
		occupied[schedule.Label(start.In(s.loc))] = struct{}{}
	}
	return occupied, nil
}

func (s *Service) localDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
}

func parseSlotLabel(slot string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(slot), ":")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidSlotFormat
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, ErrInvalidSlotFormat
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrInvalidSlotFormat
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidSlotFormat
	}
	return hour, minute, nil
}
