package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rundownapp/rundown/internal/model"
)

var (
	ErrStravaConnectionNotFound = errors.New("strava connection not found")
)

type StravaRepository interface {
	ByUser(ctx context.Context, userID string) (*model.StravaConnection, error)
	All(ctx context.Context) ([]*model.StravaConnection, error)
	// Save upserts the connection tokens.
	Save(ctx context.Context, conn *model.StravaConnection) error
	MarkSynced(ctx context.Context, userID string, at time.Time) error
}

type stravaRepository struct {
	db *sqlx.DB
}

func NewStravaRepository(db *sqlx.DB) StravaRepository {
	return &stravaRepository{db: db}
}

func (r *stravaRepository) ByUser(ctx context.Context, userID string) (*model.StravaConnection, error) {
	conn := &model.StravaConnection{}
	err := r.db.GetContext(ctx, conn, `SELECT * FROM strava_connections WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStravaConnectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *stravaRepository) All(ctx context.Context) ([]*model.StravaConnection, error) {
	var conns []*model.StravaConnection
	query := `SELECT c.* FROM strava_connections c
	          JOIN users u ON u.id = c.user_id
	          WHERE u.disabled_at IS NULL
	          ORDER BY c.user_id`
	err := r.db.SelectContext(ctx, &conns, query)
	if err != nil {
		return nil, err
	}
	return conns, nil
}

func (r *stravaRepository) Save(ctx context.Context, c *model.StravaConnection) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	query := `INSERT INTO strava_connections (user_id, athlete_id, access_token, refresh_token, expires_at,
	              last_synced_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (user_id) DO UPDATE SET
	              athlete_id = excluded.athlete_id,
	              access_token = excluded.access_token,
	              refresh_token = excluded.refresh_token,
	              expires_at = excluded.expires_at,
	              updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		c.UserID,
		c.AthleteID,
		c.AccessToken,
		c.RefreshToken,
		c.ExpiresAt.UTC(),
		c.LastSyncedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *stravaRepository) MarkSynced(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE strava_connections SET last_synced_at = $1, updated_at = $1 WHERE user_id = $2`
	result, err := r.db.ExecContext(ctx, query, at.UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrStravaConnectionNotFound)
}
