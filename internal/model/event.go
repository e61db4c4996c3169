package model

import (
	"time"
)

const (
	EventGoalChanged       = "goal_changed"
	EventContactAdded      = "contact_added"
	EventContactRemoved    = "contact_removed"
	EventContactInvited    = "contact_invited"
	EventContactOptedOut   = "contact_opted_out"
	EventQueueEntrySent    = "queue_entry_sent"
	EventQueueEntryFailed  = "queue_entry_failed"
	EventQueueEntrySkipped = "queue_entry_skipped"
)

// Event is an append-only audit record.
type Event struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	ContactID *string   `db:"contact_id"`
	EventType string    `db:"event_type"`
	Metadata  string    `db:"metadata"` // JSON object
	CreatedAt time.Time `db:"created_at"`
}
