package model

import (
	"time"
)

type StravaConnection struct {
	UserID       string     `db:"user_id"`
	AthleteID    int64      `db:"athlete_id"`
	AccessToken  string     `db:"access_token"`
	RefreshToken string     `db:"refresh_token"`
	ExpiresAt    time.Time  `db:"expires_at"`
	LastSyncedAt *time.Time `db:"last_synced_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}
