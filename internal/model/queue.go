package model

import (
	"time"
)

const (
	QueueStatusQueued     = "queued"
	QueueStatusProcessing = "processing"
	QueueStatusSent       = "sent"
	QueueStatusFailed     = "failed"
	QueueStatusSkipped    = "skipped"
)

// Reasons recorded on entries resolved without a message.
const (
	ResolutionGoalMet         = "goal_met"
	ResolutionPartialProgress = "partial_progress"
	ResolutionNoGoal          = "no_goal"
	ResolutionNoContacts      = "no_contacts"
	ResolutionUserInactive    = "user_inactive"
	ResolutionPeriodCap       = "period_cap"
)

type QueueEntry struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	ScheduledFor time.Time  `db:"scheduled_for"`
	ScheduledDay string     `db:"scheduled_day"` // YYYY-MM-DD in the scheduler time zone
	Period       string     `db:"period"`        // evaluation slot
	Priority     int        `db:"priority"`
	Status       string     `db:"status"`
	Attempts     int        `db:"attempts"`
	MaxAttempts  int        `db:"max_attempts"`
	LastError    *string    `db:"last_error"`
	Resolution   *string    `db:"resolution"`
	ClaimedAt    *time.Time `db:"claimed_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}
