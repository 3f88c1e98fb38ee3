package schedule

import "time"

// Fixed clinic working day: 30-minute slots between 09:00 and 18:00. The last
// bookable slot starts at 17:30 so a full interval fits before close.
const (
	DayStartHour = 9
	DayEndHour   = 18
	StepMinutes  = 30
)

const step = StepMinutes * time.Minute

const labelLayout = "15:04"

// Slots returns the ordered HH:MM labels still bookable on date, skipping any
// label present in occupied. Occupied labels outside the grid have no effect.
// Pure function; the date's location decides nothing beyond the label text.
func Slots(date time.Time, occupied map[string]struct{}) []string {
	t := time.Date(date.Year(), date.Month(), date.Day(), DayStartHour, 0, 0, 0, date.Location())
	last := time.Date(date.Year(), date.Month(), date.Day(), DayEndHour, 0, 0, 0, date.Location()).Add(-step)

	var out []string
	for ; !t.After(last); t = t.Add(step) {
		label := t.Format(labelLayout)
		if _, taken := occupied[label]; taken {
			continue
		}
		out = append(out, label)
	}
	return out
}

// Label formats a timestamp as the HH:MM slot label used across the schedule.
func Label(t time.Time) string {
	return t.Format(labelLayout)
}

// InWorkingHours reports whether an HH:MM time-of-day may start a slot:
// day start through day end minus one step, both inclusive. 18:00 itself is
// rejected because no full interval follows it.
func InWorkingHours(hour, minute int) bool {
	mins := hour*60 + minute
	return mins >= DayStartHour*60 && mins <= DayEndHour*60-StepMinutes
}
