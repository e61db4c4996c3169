package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rundownapp/rundown/internal/model"
)

type ActivityRepository interface {
	// InRange returns the user's activities starting within [start, end], optionally filtered by type.
	InRange(ctx context.Context, userID string, start, end time.Time, types []string) ([]*model.Activity, error)
	// Insert stores activities, skipping ones already synced. Returns the number inserted.
	Insert(ctx context.Context, activities []*model.Activity) (int, error)
}

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) InRange(ctx context.Context, userID string, start, end time.Time, types []string) ([]*model.Activity, error) {
	args := []any{userID, start.UTC(), end.UTC()}
	query := `SELECT * FROM activities WHERE user_id = $1 AND start_date >= $2 AND start_date <= $3`

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += ` AND type IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY start_date ASC`

	var activities []*model.Activity
	err := r.db.SelectContext(ctx, &activities, query, args...)
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *activityRepository) Insert(ctx context.Context, activities []*model.Activity) (int, error) {
	if len(activities) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO activities (id, user_id, source, external_id, type, name, start_date, distance_meters,
	              moving_time_seconds, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          ON CONFLICT (source, external_id) DO NOTHING`

	inserted := 0
	now := time.Now().UTC()
	for _, a := range activities {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		result, err := tx.ExecContext(ctx, query,
			a.ID,
			a.UserID,
			a.Source,
			a.ExternalID,
			a.Type,
			a.Name,
			a.StartDate.UTC(),
			a.DistanceMeters,
			a.MovingTimeSeconds,
			a.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert activity %s: %w", a.ExternalID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(rows)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit activities: %w", err)
	}
	return inserted, nil
}
