package model

import (
	"time"
)

type GoalHistory struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	GoalID        *string   `db:"goal_id" json:"goal_id"`
	GoalType      string    `db:"goal_type" json:"goal_type"`
	GoalValue     float64   `db:"goal_value" json:"goal_value"`
	EffectiveDate time.Time `db:"effective_date" json:"effective_date"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
