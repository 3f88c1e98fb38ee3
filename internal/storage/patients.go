package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/libs/db"
)

type PatientRepository struct {
	pool *db.Pool
}

func NewPatientRepository(pool *db.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

const patientColumns = `
	id::text, name, surname, species, COALESCE(breed, ''), sex, birth_date,
	COALESCE(medical_notes, ''), owner_id::text, created_at`

func scanPatient(row pgx.Row) (model.Patient, error) {
	var p model.Patient
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Surname,
		&p.Species,
		&p.Breed,
		&p.Sex,
		&p.BirthDate,
		&p.MedicalNotes,
		&p.OwnerID,
		&p.CreatedAt,
	)
	return p, err
}

func (r *PatientRepository) Create(ctx context.Context, p *model.Patient) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, name, surname, species, breed, sex, birth_date, medical_notes, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, p.Name, p.Surname, p.Species, p.Breed, p.Sex, p.BirthDate, p.MedicalNotes, p.OwnerID)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PatientRepository) Update(ctx context.Context, p *model.Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET name = $2,
			surname = $3,
			species = $4,
			breed = $5,
			sex = $6,
			birth_date = $7,
			medical_notes = $8,
			owner_id = $9
		WHERE id = $1
	`, p.ID, p.Name, p.Surname, p.Species, p.Breed, p.Sex, p.BirthDate, p.MedicalNotes, p.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PatientRepository) Get(ctx context.Context, id string) (model.Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PatientRepository) List(ctx context.Context, limit int) ([]model.Patient, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		ORDER BY surname, name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

// Search matches a substring against patient fields and the owner's contact
// details, mirroring the reception desk's free-text lookup.
func (r *PatientRepository) Search(ctx context.Context, q string, limit int) ([]model.Patient, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	pattern := "%" + q + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT p.id::text, p.name, p.surname, p.species, COALESCE(p.breed, ''), p.sex, p.birth_date,
			COALESCE(p.medical_notes, ''), p.owner_id::text, p.created_at
		FROM patients p
		JOIN owners o ON o.id = p.owner_id
		WHERE p.name ILIKE $1
			OR p.surname ILIKE $1
			OR p.species ILIKE $1
			OR p.breed ILIKE $1
			OR o.name ILIKE $1
			OR o.surname ILIKE $1
			OR o.email ILIKE $1
			OR o.phone ILIKE $1
		ORDER BY p.surname, p.name
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

// CountCreatedSince backs the new-patients statistic.
func (r *PatientRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM patients WHERE created_at >= $1
	`, since).Scan(&n)
	return n, err
}

func collectPatients(rows pgx.Rows) ([]model.Patient, error) {
	var patients []model.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}
