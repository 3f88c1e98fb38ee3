package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/libs/db"
)

type RecordRepository struct {
	pool *db.Pool
}

func NewRecordRepository(pool *db.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

// Insert writes the clinical record inside the transaction that marks the
// appointment completed, so neither exists without the other.
func (r *RecordRepository) Insert(ctx context.Context, tx pgx.Tx, rec *model.MedicalRecord) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO medical_records (id, patient_id, appointment_id, consulted_at, diagnosis, treatment, vet_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, rec.PatientID, rec.AppointmentID, rec.ConsultedAt, rec.Diagnosis, rec.Treatment, rec.VetNote)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *RecordRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]model.MedicalRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, patient_id::text, COALESCE(appointment_id::text, ''), consulted_at,
			diagnosis, treatment, COALESCE(vet_note, ''), created_at
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY consulted_at DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.MedicalRecord
	for rows.Next() {
		var rec model.MedicalRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.PatientID,
			&rec.AppointmentID,
			&rec.ConsultedAt,
			&rec.Diagnosis,
			&rec.Treatment,
			&rec.VetNote,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
