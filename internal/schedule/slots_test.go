package schedule

import (
	"testing"
	"time"
)

func TestSlots_FullGrid(t *testing.T) {
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	slots := Slots(date, nil)
	if len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" {
		t.Fatalf("expected first slot 09:00, got %s", slots[0])
	}
	if slots[len(slots)-1] != "17:30" {
		t.Fatalf("expected last slot 17:30, got %s", slots[len(slots)-1])
	}
	for i := 1; i < len(slots); i++ {
		prev, err := time.Parse("15:04", slots[i-1])
		if err != nil {
			t.Fatalf("bad label %q: %v", slots[i-1], err)
		}
		cur, err := time.Parse("15:04", slots[i])
		if err != nil {
			t.Fatalf("bad label %q: %v", slots[i], err)
		}
		if cur.Sub(prev) != 30*time.Minute {
			t.Fatalf("slots %s and %s are not 30 minutes apart", slots[i-1], slots[i])
		}
	}
}

func TestSlots_FullDayYieldsNothing(t *testing.T) {
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	occupied := map[string]struct{}{}
	for _, s := range Slots(date, nil) {
		occupied[s] = struct{}{}
	}
	if got := Slots(date, occupied); len(got) != 0 {
		t.Fatalf("expected no slots for a full day, got %v", got)
	}
}

func TestSlots_SkipsOccupied(t *testing.T) {
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	occupied := map[string]struct{}{
		"09:30": {},
		"17:30": {},
	}
	slots := Slots(date, occupied)
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s == "09:30" || s == "17:30" {
			t.Fatalf("occupied slot %s leaked into output", s)
		}
	}
}

func TestSlots_IgnoresLabelsOutsideGrid(t *testing.T) {
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)

	occupied := map[string]struct{}{
		"08:00": {},
		"18:00": {},
		"09:17": {},
	}
	if got := Slots(date, occupied); len(got) != 18 {
		t.Fatalf("out-of-grid labels should not shrink the grid, got %d slots", len(got))
	}
}

func TestSlots_Deterministic(t *testing.T) {
	date := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	occupied := map[string]struct{}{"10:00": {}, "14:30": {}}

	first := Slots(date, occupied)
	second := Slots(date, occupied)
	if len(first) != len(second) {
		t.Fatalf("repeated calls disagree: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated calls disagree at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestInWorkingHours(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{9, 0, true},
		{17, 30, true},
		{18, 0, false},
		{8, 30, false},
		{17, 45, false},
		{12, 15, true},
	}
	for _, c := range cases {
		if got := InWorkingHours(c.hour, c.minute); got != c.want {
			t.Fatalf("InWorkingHours(%02d:%02d) = %v, want %v", c.hour, c.minute, got, c.want)
		}
	}
}
