package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nlazzarini/vetclinic/internal/booking"
)

// fakeClinic backs the booking service with an in-memory schedule.
type fakeClinic struct {
	vets   map[string]bool
	starts map[string][]time.Time
	fail   bool
}

func newFakeClinic(vets ...string) *fakeClinic {
	f := &fakeClinic{vets: make(map[string]bool), starts: make(map[string][]time.Time)}
	for _, v := range vets {
		f.vets[v] = true
	}
	return f
}

func (f *fakeClinic) VeterinarianExists(ctx context.Context, id string) (bool, error) {
	if f.fail {
		return false, errors.New("db down")
	}
	return f.vets[id], nil
}

func (f *fakeClinic) ListScheduledStarts(ctx context.Context, vetID string, from, to time.Time) ([]time.Time, error) {
	if f.fail {
		return nil, errors.New("db down")
	}
	var out []time.Time
	for _, t := range f.starts[vetID] {
		if !t.Before(from) && !t.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeClinic) ExistsScheduledAt(ctx context.Context, vetID string, at time.Time, excludeID string) (bool, error) {
	if f.fail {
		return false, errors.New("db down")
	}
	for _, t := range f.starts[vetID] {
		if t.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeClinic) GetStartsAt(ctx context.Context, appointmentID string) (time.Time, error) {
	return time.Time{}, errors.New("not found")
}

func (f *fakeClinic) book(vetID string, at time.Time) {
	f.starts[vetID] = append(f.starts[vetID], at)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func getSlots(t *testing.T, h *SlotsHandler, target string) (int, []string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	var body struct {
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec.Code, body.Slots
}

func TestSlotsEndpointFullDay(t *testing.T) {
	clinic := newFakeClinic("vet-1")
	svc := booking.NewService(clinic, clinic, time.UTC)
	h := NewSlotsHandler(svc, testLogger())

	code, slots := getSlots(t, h, "/api/slots?vet_id=vet-1&fecha=2026-09-01")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" || slots[len(slots)-1] != "17:30" {
		t.Fatalf("unexpected slot bounds: %s .. %s", slots[0], slots[len(slots)-1])
	}
}

func TestSlotsEndpointDegradesToEmpty(t *testing.T) {
	clinic := newFakeClinic("vet-1")
	svc := booking.NewService(clinic, clinic, time.UTC)
	h := NewSlotsHandler(svc, testLogger())

	cases := map[string]string{
		"missing vet_id":  "/api/slots?fecha=2026-09-01",
		"missing fecha":   "/api/slots?vet_id=vet-1",
		"malformed fecha": "/api/slots?vet_id=vet-1&fecha=01-09-2026",
		"unknown vet":     "/api/slots?vet_id=vet-999&fecha=2026-09-01",
	}
	for name, target := range cases {
		code, slots := getSlots(t, h, target)
		if code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", name, code)
		}
		if len(slots) != 0 {
			t.Fatalf("%s: expected empty slots, got %v", name, slots)
		}
	}
}

func TestSlotsEndpointDegradesOnBackendError(t *testing.T) {
	clinic := newFakeClinic("vet-1")
	clinic.fail = true
	svc := booking.NewService(clinic, clinic, time.UTC)
	h := NewSlotsHandler(svc, testLogger())

	code, slots := getSlots(t, h, "/api/slots?vet_id=vet-1&fecha=2026-09-01")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty slots, got %v", slots)
	}
}

// Booking a slot removes it from the feed, and a second booking of the same
// slot fails validation.
func TestSlotsEndpointReflectsBooking(t *testing.T) {
	clinic := newFakeClinic("vet-1")
	svc := booking.NewService(clinic, clinic, time.UTC)
	h := NewSlotsHandler(svc, testLogger())

	date := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	startsAt, err := svc.ValidateBooking(context.Background(), "vet-1", date, "10:00", "")
	if err != nil {
		t.Fatalf("first booking rejected: %v", err)
	}
	clinic.book("vet-1", startsAt)

	code, slots := getSlots(t, h, "/api/slots?vet_id=vet-1&fecha=2026-09-01")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(slots) != 17 {
		t.Fatalf("expected 17 slots after booking, got %d", len(slots))
	}
	for _, s := range slots {
		if s == "10:00" {
			t.Fatal("booked slot still offered")
		}
	}

	if _, err := svc.ValidateBooking(context.Background(), "vet-1", date, "10:00", ""); !errors.Is(err, booking.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestAvailabilityEndpointValidation(t *testing.T) {
	clinic := newFakeClinic("vet-1")
	svc := booking.NewService(clinic, clinic, time.UTC)
	h := NewAvailabilityHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/availability?vet_id=vet-1&date=bad", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/appointments/availability?vet_id=vet-1&date=2026-09-01", nil)
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Slots    []string `json:"slots"`
		Selected string   `json:"selected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Slots) != 18 || body.Selected != "" {
		t.Fatalf("unexpected response: %+v", body)
	}
}
