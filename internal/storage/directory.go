package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/libs/db"
)

// VeterinarianRepository holds the clinic's veterinarian roster.
type VeterinarianRepository struct {
	pool *db.Pool
}

func NewVeterinarianRepository(pool *db.Pool) *VeterinarianRepository {
	return &VeterinarianRepository{pool: pool}
}

func (r *VeterinarianRepository) Create(ctx context.Context, v *model.Veterinarian) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO veterinarians (id, name, surname, specialty, user_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
	`, id, v.Name, v.Surname, v.Specialty, v.UserID)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *VeterinarianRepository) Get(ctx context.Context, id string) (model.Veterinarian, error) {
	var v model.Veterinarian
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, surname, specialty, COALESCE(user_id::text, '')
		FROM veterinarians
		WHERE id = $1
	`, id).Scan(&v.ID, &v.Name, &v.Surname, &v.Specialty, &v.UserID)
	return v, err
}

// VeterinarianExists satisfies the booking availability query; unknown ids
// are a normal outcome there, not an error.
func (r *VeterinarianRepository) VeterinarianExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM veterinarians WHERE id::text = $1)
	`, id).Scan(&exists)
	return exists, err
}

// GetByUserID resolves the veterinarian profile linked to a system user, used
// when issuing tokens at login.
func (r *VeterinarianRepository) GetByUserID(ctx context.Context, userID string) (model.Veterinarian, error) {
	var v model.Veterinarian
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, surname, specialty, COALESCE(user_id::text, '')
		FROM veterinarians
		WHERE user_id = $1
	`, userID).Scan(&v.ID, &v.Name, &v.Surname, &v.Specialty, &v.UserID)
	return v, err
}

func (r *VeterinarianRepository) List(ctx context.Context, limit int) ([]model.Veterinarian, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, surname, specialty, COALESCE(user_id::text, '')
		FROM veterinarians
		ORDER BY surname, name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vets []model.Veterinarian
	for rows.Next() {
		var v model.Veterinarian
		if err := rows.Scan(&v.ID, &v.Name, &v.Surname, &v.Specialty, &v.UserID); err != nil {
			return nil, err
		}
		vets = append(vets, v)
	}
	return vets, rows.Err()
}

// StaffRepository holds the administrative staff roster.
type StaffRepository struct {
	pool *db.Pool
}

func NewStaffRepository(pool *db.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

func (r *StaffRepository) Create(ctx context.Context, s *model.StaffMember) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_members (id, name, surname, contact)
		VALUES ($1, $2, $3, $4)
	`, id, s.Name, s.Surname, s.Contact)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *StaffRepository) List(ctx context.Context, limit int) ([]model.StaffMember, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, surname, contact
		FROM staff_members
		ORDER BY surname, name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []model.StaffMember
	for rows.Next() {
		var s model.StaffMember
		if err := rows.Scan(&s.ID, &s.Name, &s.Surname, &s.Contact); err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}
