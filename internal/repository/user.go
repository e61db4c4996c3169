package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rundownapp/rundown/internal/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	// DueForSlot returns enabled users whose send day is day and whose slot is slot or unset.
	DueForSlot(ctx context.Context, day, slot string) ([]*model.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO users (id, email, name, message_style, notification_enabled, send_day, send_slot, timezone,
	              notify_on_success, notify_on_partial, max_messages_per_period, push_token, legacy_goal_type,
	              legacy_goal_value, disabled_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.MessageStyle,
		user.NotificationEnabled,
		user.SendDay,
		user.SendSlot,
		user.Timezone,
		user.NotifyOnSuccess,
		user.NotifyOnPartial,
		user.MaxMessagesPerPeriod,
		user.PushToken,
		user.LegacyGoalType,
		user.LegacyGoalValue,
		user.DisabledAt,
		user.CreatedAt,
	)
	return err
}

func (r *userRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) DueForSlot(ctx context.Context, day, slot string) ([]*model.User, error) {
	var users []*model.User
	query := `SELECT * FROM users
	          WHERE notification_enabled = $1
	          AND disabled_at IS NULL
	          AND send_day = $2
	          AND (send_slot = $3 OR send_slot IS NULL)
	          ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &users, query, true, day, slot)
	if err != nil {
		return nil, err
	}
	return users, nil
}
