package storage

import (
	"context"
	"time"

	"github.com/nlazzarini/vetclinic/libs/db"
)

// StatsRepository aggregates clinic activity over a recent window. The
// queries run independently; the overview is a snapshot, not a transaction.
type StatsRepository struct {
	pool *db.Pool
	loc  *time.Location
}

func NewStatsRepository(pool *db.Pool, loc *time.Location) *StatsRepository {
	if loc == nil {
		loc = time.Local
	}
	return &StatsRepository{pool: pool, loc: loc}
}

type VetCount struct {
	VeterinarianID string `json:"veterinarian_id"`
	Name           string `json:"name"`
	Surname        string `json:"surname"`
	Appointments   int    `json:"appointments"`
}

type SpeciesCount struct {
	Species  string `json:"species"`
	Patients int    `json:"patients"`
}

type OwnerCount struct {
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Patients int    `json:"patients"`
}

type HourCount struct {
	Hour         int `json:"hour"`
	Appointments int `json:"appointments"`
}

type Overview struct {
	WindowDays        int            `json:"window_days"`
	NewPatients       int            `json:"new_patients"`
	TotalAppointments int            `json:"total_appointments"`
	PerVeterinarian   []VetCount     `json:"per_veterinarian"`
	TopSpecies        []SpeciesCount `json:"top_species"`
	TopOwners         []OwnerCount   `json:"top_owners"`
	ByHour            []HourCount    `json:"by_hour"`
}

const overviewWindowDays = 60

func (r *StatsRepository) Overview(ctx context.Context) (Overview, error) {
	since := time.Now().AddDate(0, 0, -overviewWindowDays)
	ov := Overview{WindowDays: overviewWindowDays}

	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM patients WHERE created_at >= $1
	`, since).Scan(&ov.NewPatients)
	if err != nil {
		return Overview{}, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments WHERE starts_at >= $1
	`, since).Scan(&ov.TotalAppointments)
	if err != nil {
		return Overview{}, err
	}

	if ov.PerVeterinarian, err = r.perVeterinarian(ctx, since); err != nil {
		return Overview{}, err
	}
	if ov.TopSpecies, err = r.topSpecies(ctx, since); err != nil {
		return Overview{}, err
	}
	if ov.TopOwners, err = r.topOwners(ctx, since); err != nil {
		return Overview{}, err
	}
	if ov.ByHour, err = r.byHour(ctx, since); err != nil {
		return Overview{}, err
	}
	return ov, nil
}

func (r *StatsRepository) perVeterinarian(ctx context.Context, since time.Time) ([]VetCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.id::text, v.name, v.surname, count(a.id)
		FROM veterinarians v
		LEFT JOIN appointments a ON a.veterinarian_id = v.id AND a.starts_at >= $1
		GROUP BY v.id, v.name, v.surname
		ORDER BY count(a.id) DESC, v.surname, v.name
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VetCount
	for rows.Next() {
		var c VetCount
		if err := rows.Scan(&c.VeterinarianID, &c.Name, &c.Surname, &c.Appointments); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *StatsRepository) topSpecies(ctx context.Context, since time.Time) ([]SpeciesCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.species, count(DISTINCT p.id)
		FROM patients p
		JOIN appointments a ON a.patient_id = p.id
		WHERE a.starts_at >= $1
		GROUP BY p.species
		ORDER BY count(DISTINCT p.id) DESC, p.species
		LIMIT 5
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SpeciesCount
	for rows.Next() {
		var c SpeciesCount
		if err := rows.Scan(&c.Species, &c.Patients); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *StatsRepository) topOwners(ctx context.Context, since time.Time) ([]OwnerCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id::text, o.name, o.surname, count(DISTINCT p.id)
		FROM owners o
		JOIN patients p ON p.owner_id = o.id
		JOIN appointments a ON a.patient_id = p.id
		WHERE a.starts_at >= $1
		GROUP BY o.id, o.name, o.surname
		ORDER BY count(DISTINCT p.id) DESC, o.surname, o.name
		LIMIT 5
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OwnerCount
	for rows.Next() {
		var c OwnerCount
		if err := rows.Scan(&c.OwnerID, &c.Name, &c.Surname, &c.Patients); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// byHour buckets appointments by clinic-local hour of day. Every working hour
// appears in the result even when its count is zero, so charts stay aligned.
func (r *StatsRepository) byHour(ctx context.Context, since time.Time) ([]HourCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(HOUR FROM starts_at AT TIME ZONE $2)::int AS hour, count(*)
		FROM appointments
		WHERE starts_at >= $1
		GROUP BY hour
	`, since, r.loc.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var hour, n int
		if err := rows.Scan(&hour, &n); err != nil {
			return nil, err
		}
		counts[hour] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]HourCount, 0, 10)
	for h := 9; h <= 18; h++ {
		out = append(out, HourCount{Hour: h, Appointments: counts[h]})
	}
	return out, nil
}
