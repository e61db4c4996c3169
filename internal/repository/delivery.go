package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rundownapp/rundown/internal/model"
)

type DeliveryRepository interface {
	ByEntry(ctx context.Context, entryID string) ([]*model.Delivery, error)
	// Save inserts or updates the delivery for (queue entry, contact).
	Save(ctx context.Context, d *model.Delivery) error
	// CountSentEntries counts distinct queue entries of the user, other than excludeEntryID,
	// with a send inside [start, end].
	CountSentEntries(ctx context.Context, userID string, start, end time.Time, excludeEntryID string) (int, error)
}

type deliveryRepository struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) ByEntry(ctx context.Context, entryID string) ([]*model.Delivery, error) {
	var deliveries []*model.Delivery
	query := `SELECT * FROM deliveries WHERE queue_entry_id = $1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &deliveries, query, entryID)
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *deliveryRepository) Save(ctx context.Context, d *model.Delivery) error {
	query := `INSERT INTO deliveries (id, queue_entry_id, user_id, contact_id, channel, intent, content, content_hash,
	              status, provider_message_id, error_code, attempts, sent_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          ON CONFLICT (queue_entry_id, contact_id) DO UPDATE SET
	              channel = excluded.channel,
	              intent = excluded.intent,
	              content = excluded.content,
	              content_hash = excluded.content_hash,
	              status = excluded.status,
	              provider_message_id = excluded.provider_message_id,
	              error_code = excluded.error_code,
	              attempts = deliveries.attempts + 1,
	              sent_at = excluded.sent_at,
	              updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.QueueEntryID,
		d.UserID,
		d.ContactID,
		d.Channel,
		d.Intent,
		d.Content,
		d.ContentHash,
		d.Status,
		d.ProviderMessageID,
		d.ErrorCode,
		d.Attempts,
		d.SentAt,
		d.CreatedAt,
		d.UpdatedAt,
	)
	return err
}

func (r *deliveryRepository) CountSentEntries(ctx context.Context, userID string, start, end time.Time, excludeEntryID string) (int, error) {
	var count int
	query := `SELECT COUNT(DISTINCT queue_entry_id) FROM deliveries
	          WHERE user_id = $1 AND status = $2 AND sent_at >= $3 AND sent_at <= $4 AND queue_entry_id <> $5`
	err := r.db.QueryRowContext(ctx, query, userID, model.DeliveryStatusSent, start.UTC(), end.UTC(), excludeEntryID).Scan(&count)
	return count, err
}
