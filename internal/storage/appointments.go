package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nlazzarini/vetclinic/internal/model"
	"github.com/nlazzarini/vetclinic/libs/db"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `
	id::text, starts_at, veterinarian_id::text, patient_id::text, staff_id::text,
	status, cancelled_at, created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.StartsAt,
		&appt.VeterinarianID,
		&appt.PatientID,
		&appt.StaffID,
		&appt.Status,
		&cancelledAt,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// Create inserts a scheduled appointment. The partial unique index on
// (veterinarian_id, starts_at) among scheduled rows makes concurrent
// submissions for the same slot fail with a conflict instead of silently
// double-booking.
func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments (id, starts_at, veterinarian_id, patient_id, staff_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, appt.StartsAt, appt.VeterinarianID, appt.PatientID, appt.StaffID, model.StatusScheduled)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Reschedule moves an existing appointment. Only scheduled appointments can
// be rescheduled; the same conflict mapping as Create applies.
func (r *AppointmentRepository) Reschedule(ctx context.Context, tx pgx.Tx, id string, startsAt time.Time, vetID, patientID, staffID string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET starts_at = $2,
			veterinarian_id = $3,
			patient_id = $4,
			staff_id = $5
		WHERE id = $1 AND status = $6
	`, id, startsAt, vetID, patientID, staffID, model.StatusScheduled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *AppointmentRepository) GetStartsAt(ctx context.Context, id string) (time.Time, error) {
	var startsAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT starts_at FROM appointments WHERE id = $1
	`, id).Scan(&startsAt)
	return startsAt, err
}

// ListScheduledStarts is the occupancy source for availability: start times
// of scheduled appointments for the veterinarian within [from, to].
func (r *AppointmentRepository) ListScheduledStarts(ctx context.Context, vetID string, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT starts_at
		FROM appointments
		WHERE veterinarian_id = $1
			AND status = $2
			AND starts_at BETWEEN $3 AND $4
		ORDER BY starts_at
	`, vetID, model.StatusScheduled, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		starts = append(starts, t)
	}
	return starts, rows.Err()
}

// ExistsScheduledAt backs the conflict validator: a scheduled appointment for
// the veterinarian at exactly at, ignoring excludeID when non-empty.
func (r *AppointmentRepository) ExistsScheduledAt(ctx context.Context, vetID string, at time.Time, excludeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE veterinarian_id = $1
				AND starts_at = $2
				AND status = $3
				AND ($4 = '' OR id::text <> $4)
		)
	`, vetID, at, model.StatusScheduled, excludeID).Scan(&exists)
	return exists, err
}

func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, id string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			cancelled_at = now()
		WHERE id = $1 AND status = $3
		RETURNING cancelled_at
	`, id, model.StatusCancelled, model.StatusScheduled).Scan(&cancelledAt)
	return cancelledAt, err
}

// Complete marks a scheduled appointment completed; the caller records the
// medical encounter in the same transaction.
func (r *AppointmentRepository) Complete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1 AND status = $3
	`, id, model.StatusCompleted, model.StatusScheduled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AppointmentRepository) ListByVeterinarian(ctx context.Context, vetID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE veterinarian_id = $1
		ORDER BY starts_at DESC
		LIMIT $2
	`, vetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *AppointmentRepository) ListAll(ctx context.Context, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY starts_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListDueReminders locks scheduled, not-yet-reminded appointments starting
// before horizon so the reminder worker can enqueue events exactly once.
func (r *AppointmentRepository) ListDueReminders(ctx context.Context, tx pgx.Tx, horizon time.Time, limit int) ([]model.Appointment, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = $1
			AND reminded_at IS NULL
			AND starts_at > now()
			AND starts_at <= $2
		ORDER BY starts_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`, model.StatusScheduled, horizon, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *AppointmentRepository) MarkReminded(ctx context.Context, tx pgx.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET reminded_at = now()
		WHERE id::text = ANY($1)
	`, ids)
	return err
}

// CountScheduledBetween backs the desk's today/tomorrow counters. vetID empty
// counts across all veterinarians.
func (r *AppointmentRepository) CountScheduledBetween(ctx context.Context, vetID string, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE status = $1
			AND starts_at BETWEEN $2 AND $3
			AND ($4 = '' OR veterinarian_id::text = $4)
	`, model.StatusScheduled, from, to, vetID).Scan(&n)
	return n, err
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

// IsConflict reports whether err is the unique/exclusion violation raised by
// the scheduled-slot index; callers surface it as a slot-taken failure.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
