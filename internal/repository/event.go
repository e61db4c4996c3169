package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rundownapp/rundown/internal/model"
)

type EventRepository interface {
	Record(ctx context.Context, userID string, contactID *string, eventType string, metadata map[string]any) error
	ByUser(ctx context.Context, userID string) ([]*model.Event, error)
}

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Record(ctx context.Context, userID string, contactID *string, eventType string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO events (id, user_id, contact_id, event_type, metadata, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.ExecContext(ctx, query, uuid.New().String(), userID, contactID, eventType, string(raw), time.Now().UTC())
	return err
}

func (r *eventRepository) ByUser(ctx context.Context, userID string) ([]*model.Event, error) {
	var events []*model.Event
	err := r.db.SelectContext(ctx, &events, `SELECT * FROM events WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	return events, nil
}
