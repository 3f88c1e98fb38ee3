package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/nlazzarini/vetclinic/internal/outbox"
	"github.com/nlazzarini/vetclinic/internal/storage"
	"github.com/nlazzarini/vetclinic/libs/db"
)

// Worker finds scheduled appointments starting within the reminder horizon
// that have not been reminded yet, and enqueues a reminder event for each.
// The select locks the rows, so a row is reminded at most once even with
// several replicas polling.
type Worker struct {
	pool      *db.Pool
	appts     *storage.AppointmentRepository
	outbox    *outbox.Repository
	logger    *slog.Logger
	interval  time.Duration
	horizon   time.Duration
	batchSize int
}

type WorkerConfig struct {
	Interval  time.Duration
	Horizon   time.Duration
	BatchSize int
}

func NewWorker(pool *db.Pool, appts *storage.AppointmentRepository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 24 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Worker{
		pool:      pool,
		appts:     appts,
		outbox:    outboxRepo,
		logger:    logger,
		interval:  cfg.Interval,
		horizon:   cfg.Horizon,
		batchSize: cfg.BatchSize,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("reminder batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	due, err := w.appts.ListDueReminders(ctx, tx, time.Now().Add(w.horizon), w.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return tx.Commit(ctx)
	}

	ids := make([]string, 0, len(due))
	for _, appt := range due {
		evt, err := outbox.AppointmentEvent(outbox.EventAppointmentReminder, outbox.AppointmentPayload{
			AppointmentID:  appt.ID,
			VeterinarianID: appt.VeterinarianID,
			PatientID:      appt.PatientID,
			StartsAt:       appt.StartsAt.UTC(),
			Status:         appt.Status,
		})
		if err != nil {
			return err
		}
		if err := w.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
		ids = append(ids, appt.ID)
	}

	if err := w.appts.MarkReminded(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	w.logger.Info("reminders enqueued", "count", len(ids))
	return nil
}
