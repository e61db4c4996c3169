package model

import (
	"time"
)

const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// Delivery is the per-contact outcome of a queue entry.
type Delivery struct {
	ID                string     `db:"id"`
	QueueEntryID      string     `db:"queue_entry_id"`
	UserID            string     `db:"user_id"`
	ContactID         string     `db:"contact_id"`
	Channel           string     `db:"channel"`
	Intent            string     `db:"intent"`
	Content           string     `db:"content"`
	ContentHash       string     `db:"content_hash"`
	Status            string     `db:"status"`
	ProviderMessageID *string    `db:"provider_message_id"`
	ErrorCode         *string    `db:"error_code"`
	Attempts          int        `db:"attempts"`
	SentAt            *time.Time `db:"sent_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}
