package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rundownapp/rundown/internal/model"
)

var (
	ErrGoalNotFound = errors.New("goal not found")
)

// GoalChangeFunc builds the new goal and its history row from the currently active goal (nil if none).
type GoalChangeFunc func(prior *model.Goal) (*model.Goal, *model.GoalHistory, error)

type GoalRepository interface {
	ByID(ctx context.Context, goalID string) (*model.Goal, error)
	Active(ctx context.Context, userID string) (*model.Goal, error)
	// HistoryAt returns the latest history entry effective at or before at.
	HistoryAt(ctx context.Context, userID string, at time.Time) (*model.GoalHistory, error)
	History(ctx context.Context, userID string) ([]*model.GoalHistory, error)
	// RecordChange atomically replaces the active goal and appends history.
	RecordChange(ctx context.Context, userID string, change GoalChangeFunc) (*model.Goal, error)
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) ByID(ctx context.Context, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	err := r.db.GetContext(ctx, goal, `SELECT * FROM goals WHERE id = $1`, goalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (r *goalRepository) Active(ctx context.Context, userID string) (*model.Goal, error) {
	return activeGoal(ctx, r.db, userID)
}

func activeGoal(ctx context.Context, q sqlx.QueryerContext, userID string) (*model.Goal, error) {
	goal := &model.Goal{}
	err := sqlx.GetContext(ctx, q, goal, `SELECT * FROM goals WHERE user_id = $1 AND is_active = $2`, userID, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (r *goalRepository) HistoryAt(ctx context.Context, userID string, at time.Time) (*model.GoalHistory, error) {
	entry := &model.GoalHistory{}
	query := `SELECT * FROM goal_history
	          WHERE user_id = $1 AND effective_date <= $2
	          ORDER BY effective_date DESC, created_at DESC
	          LIMIT 1`

	err := r.db.GetContext(ctx, entry, query, userID, at.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *goalRepository) History(ctx context.Context, userID string) ([]*model.GoalHistory, error) {
	var entries []*model.GoalHistory
	query := `SELECT * FROM goal_history WHERE user_id = $1 ORDER BY effective_date ASC, created_at ASC`
	err := r.db.SelectContext(ctx, &entries, query, userID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *goalRepository) RecordChange(ctx context.Context, userID string, change GoalChangeFunc) (*model.Goal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prior, err := activeGoal(ctx, tx, userID)
	if err != nil && !errors.Is(err, ErrGoalNotFound) {
		return nil, fmt.Errorf("failed to load active goal: %w", err)
	}

	goal, entry, err := change(prior)
	if err != nil {
		return nil, err
	}

	if prior != nil {
		_, err = tx.ExecContext(ctx, `UPDATE goals SET is_active = $1, updated_at = $2 WHERE id = $3`,
			false, goal.UpdatedAt, prior.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to deactivate goal: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, goal_type, metric, target_value, target_unit, activity_types, cadence,
		     custom_start, custom_end, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		goal.ID,
		goal.UserID,
		goal.GoalType,
		goal.Metric,
		goal.TargetValue,
		goal.TargetUnit,
		goal.ActivityTypes,
		goal.Cadence,
		goal.CustomStart,
		goal.CustomEnd,
		goal.IsActive,
		goal.CreatedAt,
		goal.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert goal: %w", err)
	}

	// a newer change supersedes changes that have not taken effect yet
	_, err = tx.ExecContext(ctx, `DELETE FROM goal_history WHERE user_id = $1 AND effective_date >= $2`,
		userID, entry.EffectiveDate)
	if err != nil {
		return nil, fmt.Errorf("failed to drop pending history: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO goal_history (id, user_id, goal_id, goal_type, goal_value, effective_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID,
		entry.UserID,
		entry.GoalID,
		entry.GoalType,
		entry.GoalValue,
		entry.EffectiveDate,
		entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert goal history: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit goal change: %w", err)
	}
	return goal, nil
}
