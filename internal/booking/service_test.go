package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nlazzarini/vetclinic/internal/model"
)

type fakeAppointment struct {
	id     string
	vetID  string
	start  time.Time
	status string
}

// fakeStore is an in-memory stand-in for the appointment repository.
type fakeStore struct {
	appts []fakeAppointment
	vets  map[string]bool
}

func newFakeStore(vets ...string) *fakeStore {
	known := make(map[string]bool, len(vets))
	for _, v := range vets {
		known[v] = true
	}
	return &fakeStore{vets: known}
}

func (f *fakeStore) VeterinarianExists(_ context.Context, id string) (bool, error) {
	return f.vets[id], nil
}

func (f *fakeStore) ListScheduledStarts(_ context.Context, vetID string, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, a := range f.appts {
		if a.vetID != vetID || a.status != model.StatusScheduled {
			continue
		}
		if a.start.Before(from) || a.start.After(to) {
			continue
		}
		out = append(out, a.start)
	}
	return out, nil
}

func (f *fakeStore) ExistsScheduledAt(_ context.Context, vetID string, at time.Time, excludeID string) (bool, error) {
	for _, a := range f.appts {
		if a.id == excludeID {
			continue
		}
		if a.vetID == vetID && a.status == model.StatusScheduled && a.start.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetStartsAt(_ context.Context, appointmentID string) (time.Time, error) {
	for _, a := range f.appts {
		if a.id == appointmentID {
			return a.start, nil
		}
	}
	return time.Time{}, errors.New("not found")
}

var testDate = time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore) *Service {
	return NewService(store, store, time.UTC)
}

func TestValidateBooking_EmptyDay(t *testing.T) {
	store := newFakeStore("vet-1")
	svc := newTestService(store)

	at, err := svc.ValidateBooking(context.Background(), "vet-1", testDate, "09:00", "")
	if err != nil {
		t.Fatalf("ValidateBooking failed: %v", err)
	}
	want := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Fatalf("expected %s, got %s", want, at)
	}
}

func TestValidateBooking_ClosingTimeRejected(t *testing.T) {
	store := newFakeStore("vet-1")
	svc := newTestService(store)

	_, err := svc.ValidateBooking(context.Background(), "vet-1", testDate, "18:00", "")
	if !errors.Is(err, ErrOutOfWorkingHours) {
		t.Fatalf("expected ErrOutOfWorkingHours, got %v", err)
	}
}

func TestValidateBooking_BadLabels(t *testing.T) {
	store := newFakeStore("vet-1")
	svc := newTestService(store)

	for _, slot := range []string{"", "nine", "09", "09:3a", "9:99", "09:30:00"} {
		if _, err := svc.ValidateBooking(context.Background(), "vet-1", testDate, slot, ""); !errors.Is(err, ErrInvalidSlotFormat) {
			t.Fatalf("slot %q: expected ErrInvalidSlotFormat, got %v", slot, err)
		}
	}
}

func TestValidateBooking_Conflict(t *testing.T) {
	store := newFakeStore("vet-1")
	store.appts = append(store.appts, fakeAppointment{
		id:     "appt-1",
		vetID:  "vet-1",
		start:  time.Date(2026, 4, 20, 9, 30, 0, 0, time.UTC),
		status: model.StatusScheduled,
	})
	svc := newTestService(store)

	_, err := svc.ValidateBooking(context.Background(), "vet-1", testDate, "09:30", "")
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	// A cancelled appointment at the same instant does not block.
	store.appts[0].status = model.StatusCancelled
	if _, err := svc.ValidateBooking(context.Background(), "vet-1", testDate, "09:30", ""); err != nil {
		t.Fatalf("cancelled appointment should not block: %v", err)
	}
}

func TestValidateBooking_ExcludeSelf(t *testing.T) {
	store := newFakeStore("vet-1")
	store.appts = append(store.appts, fakeAppointment{
		id:     "appt-1",
		vetID:  "vet-1",
		start:  time.Date(2026, 4, 20, 11, 0, 0, 0, time.UTC),
		status: model.StatusScheduled,
	})
	svc := newTestService(store)

	// Resubmitting the appointment's own slot during an edit must succeed.
	if _, err := svc.ValidateBooking(context.Background(), "vet-1", testDate, "11:00", "appt-1"); err != nil {
		t.Fatalf("exclude-self failed: %v", err)
	}
	// Another appointment editing into that slot still conflicts.
	if _, err := svc.ValidateBooking(context.Background(), "vet-1", testDate, "11:00", "appt-2"); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestAvailableSlots_UnknownVet(t *testing.T) {
	store := newFakeStore("vet-1")
	svc := newTestService(store)

	slots, err := svc.AvailableSlots(context.Background(), "vet-ghost", testDate)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty slots for unknown vet, got %v", slots)
	}
}

func TestBookThenRebook(t *testing.T) {
	store := newFakeStore("vet-1")
	svc := newTestService(store)
	ctx := context.Background()

	at, err := svc.ValidateBooking(ctx, "vet-1", testDate, "10:00", "")
	if err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	store.appts = append(store.appts, fakeAppointment{
		id:     "appt-1",
		vetID:  "vet-1",
		start:  at,
		status: model.StatusScheduled,
	})

	slots, err := svc.AvailableSlots(ctx, "vet-1", testDate)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(slots) != 17 {
		t.Fatalf("expected 17 free slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s == "10:00" {
			t.Fatal("booked slot still listed as available")
		}
	}

	if _, err := svc.ValidateBooking(ctx, "vet-1", testDate, "10:00", ""); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken on rebook, got %v", err)
	}
}

func TestSlotChoicesForEdit_KeepsCurrentSlot(t *testing.T) {
	store := newFakeStore("vet-1")
	store.appts = append(store.appts, fakeAppointment{
		id:     "appt-1",
		vetID:  "vet-1",
		start:  time.Date(2026, 4, 20, 14, 0, 0, 0, time.UTC),
		status: model.StatusScheduled,
	})
	svc := newTestService(store)

	choices, err := svc.SlotChoicesForEdit(context.Background(), "vet-1", testDate, "appt-1")
	if err != nil {
		t.Fatalf("SlotChoicesForEdit failed: %v", err)
	}
	if choices.Selected != "14:00" {
		t.Fatalf("expected current slot preselected, got %q", choices.Selected)
	}
	found := false
	for _, s := range choices.Slots {
		if s == "14:00" {
			found = true
		}
	}
	if !found {
		t.Fatal("current slot missing from edit choices")
	}
	// 14:00 is occupied by the edited appointment itself, so the plain
	// availability list drops it and the edit variant appends it back once.
	count := 0
	for _, s := range choices.Slots {
		if s == "14:00" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("current slot appended %d times", count)
	}
}

func TestAvailableSlots_TimezoneLabels(t *testing.T) {
	loc := time.FixedZone("clinic", -3*3600)
	store := newFakeStore("vet-1")
	// Stored in UTC: 13:30Z is 10:30 clinic time.
	store.appts = append(store.appts, fakeAppointment{
		id:     "appt-1",
		vetID:  "vet-1",
		start:  time.Date(2026, 4, 20, 13, 30, 0, 0, time.UTC),
		status: model.StatusScheduled,
	})
	svc := NewService(store, store, loc)

	slots, err := svc.AvailableSlots(context.Background(), "vet-1", time.Date(2026, 4, 20, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	for _, s := range slots {
		if s == "10:30" {
			t.Fatal("expected 10:30 clinic-local to be occupied")
		}
	}
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(slots))
	}
}
