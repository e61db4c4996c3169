package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rundownapp/rundown/internal/model"
)

var (
	ErrContactNotFound     = errors.New("contact not found")
	ErrContactLimitReached = errors.New("contact limit reached")
)

type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	ByID(ctx context.Context, contactID string) (*model.Contact, error)
	ByToken(ctx context.Context, token string) (*model.Contact, error)
	// ByAddress finds a contact of the user with the same email or phone, active or not.
	ByAddress(ctx context.Context, userID string, email, phone *string) (*model.Contact, error)
	Receivers(ctx context.Context, userID string) ([]*model.Contact, error)
	Contacts(ctx context.Context, userID string) ([]*model.Contact, error)
	CountActive(ctx context.Context, userID string) (int, error)
	// Activate creates the contact, or reactivates it when reactivate is set, as long as the
	// user has fewer than limit active contacts. Returns ErrContactLimitReached otherwise.
	Activate(ctx context.Context, contact *model.Contact, reactivate bool, limit int) error
	Deactivate(ctx context.Context, userID, contactID string) error
	// OptOut atomically opts out the contact holding token. Returns ErrContactNotFound
	// when no contact with that token is still opted in.
	OptOut(ctx context.Context, token string, at time.Time) (*model.Contact, error)
}

type contactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, c *model.Contact) error {
	return insertContact(ctx, r.db, c)
}

func insertContact(ctx context.Context, db sqlx.ExecerContext, c *model.Contact) error {
	query := `INSERT INTO contacts (id, user_id, name, email, phone, relationship, is_active, opt_out_token,
	              opted_out_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := db.ExecContext(ctx, query,
		c.ID,
		c.UserID,
		c.Name,
		c.Email,
		c.Phone,
		c.Relationship,
		c.IsActive,
		c.OptOutToken,
		c.OptedOutAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func (r *contactRepository) get(ctx context.Context, query string, args ...any) (*model.Contact, error) {
	c := &model.Contact{}
	err := r.db.GetContext(ctx, c, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *contactRepository) ByID(ctx context.Context, contactID string) (*model.Contact, error) {
	return r.get(ctx, `SELECT * FROM contacts WHERE id = $1`, contactID)
}

func (r *contactRepository) ByToken(ctx context.Context, token string) (*model.Contact, error) {
	return r.get(ctx, `SELECT * FROM contacts WHERE opt_out_token = $1`, token)
}

func (r *contactRepository) ByAddress(ctx context.Context, userID string, email, phone *string) (*model.Contact, error) {
	if email == nil && phone == nil {
		return nil, ErrContactNotFound
	}
	query := `SELECT * FROM contacts
	          WHERE user_id = $1 AND ((email IS NOT NULL AND email = $2) OR (phone IS NOT NULL AND phone = $3))
	          ORDER BY updated_at DESC
	          LIMIT 1`
	return r.get(ctx, query, userID, email, phone)
}

func (r *contactRepository) Receivers(ctx context.Context, userID string) ([]*model.Contact, error) {
	var contacts []*model.Contact
	query := `SELECT * FROM contacts
	          WHERE user_id = $1 AND is_active = $2 AND opted_out_at IS NULL
	          ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &contacts, query, userID, true)
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) Contacts(ctx context.Context, userID string) ([]*model.Contact, error) {
	var contacts []*model.Contact
	err := r.db.SelectContext(ctx, &contacts, `SELECT * FROM contacts WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *contactRepository) CountActive(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM contacts WHERE user_id = $1 AND is_active = $2`
	err := r.db.QueryRowContext(ctx, query, userID, true).Scan(&count)
	return count, err
}

func reactivateContact(ctx context.Context, db sqlx.ExecerContext, c *model.Contact) error {
	query := `UPDATE contacts
	          SET name = $1, email = $2, phone = $3, relationship = $4, is_active = $5, opt_out_token = $6,
	              opted_out_at = NULL, updated_at = $7
	          WHERE id = $8 AND user_id = $9`

	result, err := db.ExecContext(ctx, query,
		c.Name,
		c.Email,
		c.Phone,
		c.Relationship,
		true,
		c.OptOutToken,
		c.UpdatedAt,
		c.ID,
		c.UserID,
	)
	if err != nil {
		return err
	}
	return requireRow(result, ErrContactNotFound)
}

func (r *contactRepository) Activate(ctx context.Context, c *model.Contact, reactivate bool, limit int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// a no-op write on the owner serializes concurrent adds for the same user
	result, err := tx.ExecContext(ctx, `UPDATE users SET disabled_at = disabled_at WHERE id = $1`, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}
	if err := requireRow(result, ErrUserNotFound); err != nil {
		return err
	}

	var count int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE user_id = $1 AND is_active = $2 AND id <> $3`,
		c.UserID, true, c.ID).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count contacts: %w", err)
	}
	if count >= limit {
		return ErrContactLimitReached
	}

	if reactivate {
		err = reactivateContact(ctx, tx, c)
	} else {
		err = insertContact(ctx, tx, c)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *contactRepository) Deactivate(ctx context.Context, userID, contactID string) error {
	query := `UPDATE contacts SET is_active = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, false, time.Now().UTC(), contactID, userID)
	if err != nil {
		return err
	}
	return requireRow(result, ErrContactNotFound)
}

func (r *contactRepository) OptOut(ctx context.Context, token string, at time.Time) (*model.Contact, error) {
	query := `UPDATE contacts
	          SET is_active = $1, opted_out_at = $2, updated_at = $2
	          WHERE opt_out_token = $3 AND opted_out_at IS NULL
	          RETURNING *`
	return r.get(ctx, query, false, at.UTC(), token)
}

func requireRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
