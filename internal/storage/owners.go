package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/libs/db"
)

type OwnerRepository struct {
	pool *db.Pool
}

func NewOwnerRepository(pool *db.Pool) *OwnerRepository {
	return &OwnerRepository{pool: pool}
}

func (r *OwnerRepository) Create(ctx context.Context, o *model.Owner) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO owners (id, name, surname, address, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, o.Name, o.Surname, o.Address, o.Phone, o.Email)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *OwnerRepository) Update(ctx context.Context, o *model.Owner) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE owners
		SET name = $2,
			surname = $3,
			address = $4,
			phone = $5,
			email = $6
		WHERE id = $1
	`, o.ID, o.Name, o.Surname, o.Address, o.Phone, o.Email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *OwnerRepository) Get(ctx context.Context, id string) (model.Owner, error) {
	var o model.Owner
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, surname, address, phone, email
		FROM owners
		WHERE id = $1
	`, id).Scan(&o.ID, &o.Name, &o.Surname, &o.Address, &o.Phone, &o.Email)
	return o, err
}

func (r *OwnerRepository) List(ctx context.Context, limit int) ([]model.Owner, error) {
	if limit <= 0 {
		limit = 200
	}
	return r.query(ctx, `
		SELECT id::text, name, surname, address, phone, email
		FROM owners
		ORDER BY surname, name
		LIMIT $1
	`, limit)
}

func (r *OwnerRepository) Search(ctx context.Context, q string, limit int) ([]model.Owner, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	pattern := "%" + q + "%"
	return r.query(ctx, `
		SELECT id::text, name, surname, address, phone, email
		FROM owners
		WHERE name ILIKE $1
			OR surname ILIKE $1
			OR email ILIKE $1
			OR phone ILIKE $1
			OR address ILIKE $1
		ORDER BY surname, name
		LIMIT $2
	`, pattern, limit)
}

func (r *OwnerRepository) query(ctx context.Context, sql string, args ...any) ([]model.Owner, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []model.Owner
	for rows.Next() {
		var o model.Owner
		if err := rows.Scan(&o.ID, &o.Name, &o.Surname, &o.Address, &o.Phone, &o.Email); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}
