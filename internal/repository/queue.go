package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rundownapp/rundown/internal/model"
)

var (
	ErrQueueEntryNotFound = errors.New("queue entry not found")
)

type QueueRepository interface {
	// Enqueue inserts the entry unless one exists for the same user, day and slot.
	Enqueue(ctx context.Context, entry *model.QueueEntry) (bool, error)
	ByID(ctx context.Context, id string) (*model.QueueEntry, error)
	ByStatus(ctx context.Context, status string) ([]*model.QueueEntry, error)
	// Claim moves up to limit due queued entries to processing and returns them by priority.
	Claim(ctx context.Context, now time.Time, limit int) ([]*model.QueueEntry, error)
	// Release returns a claimed entry to queued without counting an attempt.
	Release(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, attempts int, lastError string) error
	Resolve(ctx context.Context, id, status string, attempts int, resolution, lastError *string) error
	// ReapStale returns processing entries claimed before cutoff to queued.
	ReapStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type queueRepository struct {
	db *sqlx.DB
}

func NewQueueRepository(db *sqlx.DB) QueueRepository {
	return &queueRepository{db: db}
}

func (r *queueRepository) Enqueue(ctx context.Context, e *model.QueueEntry) (bool, error) {
	query := `INSERT INTO notification_queue (id, user_id, scheduled_for, scheduled_day, period, priority, status,
	              attempts, max_attempts, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          ON CONFLICT (user_id, scheduled_day, period) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.ScheduledFor.UTC(),
		e.ScheduledDay,
		e.Period,
		e.Priority,
		e.Status,
		e.Attempts,
		e.MaxAttempts,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *queueRepository) ByID(ctx context.Context, id string) (*model.QueueEntry, error) {
	entry := &model.QueueEntry{}
	err := r.db.GetContext(ctx, entry, `SELECT * FROM notification_queue WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQueueEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *queueRepository) ByStatus(ctx context.Context, status string) ([]*model.QueueEntry, error) {
	var entries []*model.QueueEntry
	query := `SELECT * FROM notification_queue WHERE status = $1 ORDER BY priority ASC, created_at ASC`
	err := r.db.SelectContext(ctx, &entries, query, status)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Claim is a single conditional update, so concurrent runs never claim the same entry.
func (r *queueRepository) Claim(ctx context.Context, now time.Time, limit int) ([]*model.QueueEntry, error) {
	now = now.UTC()
	query := `UPDATE notification_queue
	          SET status = $1, claimed_at = $2, updated_at = $2
	          WHERE id IN (
	              SELECT id FROM notification_queue
	              WHERE status = $3 AND scheduled_for <= $2
	              ORDER BY priority ASC, created_at ASC
	              LIMIT $4
	          )
	          AND status = $3
	          RETURNING *`

	var entries []*model.QueueEntry
	err := r.db.SelectContext(ctx, &entries, query, model.QueueStatusProcessing, now, model.QueueStatusQueued, limit)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (r *queueRepository) Release(ctx context.Context, id string) error {
	query := `UPDATE notification_queue SET status = $1, claimed_at = NULL, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, model.QueueStatusQueued, time.Now().UTC(), id, model.QueueStatusProcessing)
	if err != nil {
		return err
	}
	return requireRow(result, ErrQueueEntryNotFound)
}

func (r *queueRepository) Retry(ctx context.Context, id string, attempts int, lastError string) error {
	query := `UPDATE notification_queue
	          SET status = $1, attempts = $2, last_error = $3, claimed_at = NULL, updated_at = $4
	          WHERE id = $5 AND status = $6`
	result, err := r.db.ExecContext(ctx, query,
		model.QueueStatusQueued, attempts, lastError, time.Now().UTC(), id, model.QueueStatusProcessing)
	if err != nil {
		return err
	}
	return requireRow(result, ErrQueueEntryNotFound)
}

func (r *queueRepository) Resolve(ctx context.Context, id, status string, attempts int, resolution, lastError *string) error {
	query := `UPDATE notification_queue
	          SET status = $1, attempts = $2, resolution = $3, last_error = $4, updated_at = $5
	          WHERE id = $6 AND status = $7`
	result, err := r.db.ExecContext(ctx, query,
		status, attempts, resolution, lastError, time.Now().UTC(), id, model.QueueStatusProcessing)
	if err != nil {
		return err
	}
	return requireRow(result, ErrQueueEntryNotFound)
}

func (r *queueRepository) ReapStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE notification_queue
	          SET status = $1, claimed_at = NULL, updated_at = $2
	          WHERE status = $3 AND claimed_at < $4`
	result, err := r.db.ExecContext(ctx, query,
		model.QueueStatusQueued, time.Now().UTC(), model.QueueStatusProcessing, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
