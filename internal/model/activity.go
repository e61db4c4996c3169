package model

import (
	"time"
)

const ActivitySourceStrava = "strava"

type Activity struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	Source            string    `db:"source"`
	ExternalID        string    `db:"external_id"`
	Type              string    `db:"type"`
	Name              string    `db:"name"`
	StartDate         time.Time `db:"start_date"`
	DistanceMeters    float64   `db:"distance_meters"`
	MovingTimeSeconds int       `db:"moving_time_seconds"`
	CreatedAt         time.Time `db:"created_at"`
}
