package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/repository"
	"github.com/rundownapp/rundown/internal/validation"
)

var (
	ErrContactLimitReached = repository.ErrContactLimitReached
	ErrContactOptedOut     = errors.New("contact has opted out")
	ErrContactNoEmail      = errors.New("contact has no email address")
	ErrInvalidContact      = errors.New("invalid contact")
)

type ContactInput struct {
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

type OptOutStatus string

const (
	OptOutStatusOptedOut        OptOutStatus = "opted_out"
	OptOutStatusAlreadyOptedOut OptOutStatus = "already_opted_out"
	OptOutStatusNotFound        OptOutStatus = "not_found"
)

type OptOutResult struct {
	Status  OptOutStatus
	Contact *model.Contact
}

// inviteMailer is the slice of EmailService contacts need.
type inviteMailer interface {
	SendInviteEmail(ctx context.Context, email, contactName, ownerName, optOutURL string) error
	SendOptOutNotice(ctx context.Context, email, ownerName, contactName string) error
}

type ContactService struct {
	repo   repository.ContactRepository
	users  repository.UserRepository
	events repository.EventRepository
	mailer inviteMailer
	push   Transport
	appURL string
	now    func() time.Time
}

func NewContactService(
	repo repository.ContactRepository,
	users repository.UserRepository,
	events repository.EventRepository,
	mailer inviteMailer,
	push Transport,
	appURL string,
) *ContactService {
	return &ContactService{
		repo:   repo,
		users:  users,
		events: events,
		mailer: mailer,
		push:   push,
		appURL: strings.TrimSuffix(appURL, "/"),
		now:    time.Now,
	}
}

// Add creates a contact, or reactivates a removed or opted-out one with the same address
// under a fresh opt-out token.
func (s *ContactService) Add(ctx context.Context, userID string, input ContactInput) (*model.Contact, error) {
	if _, err := s.users.ByID(ctx, userID); err != nil {
		return nil, err
	}

	contact, err := buildContact(userID, input)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ByAddress(ctx, userID, contact.Email, contact.Phone)
	if err != nil && !errors.Is(err, repository.ErrContactNotFound) {
		return nil, fmt.Errorf("failed to look up contact: %w", err)
	}
	if existing != nil && existing.IsActive && existing.OptedOutAt == nil {
		return existing, nil
	}

	now := s.now().UTC()
	contact.OptOutToken = uuid.New().String()
	contact.UpdatedAt = now
	contact.ID = uuid.New().String()
	contact.CreatedAt = now
	if existing != nil {
		contact.ID = existing.ID
		contact.CreatedAt = existing.CreatedAt
	}

	err = s.repo.Activate(ctx, contact, existing != nil, model.MaxActiveContacts)
	if errors.Is(err, repository.ErrContactLimitReached) || errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save contact: %w", err)
	}

	s.record(ctx, userID, contact.ID, model.EventContactAdded, map[string]any{
		"relationship": contact.Relationship,
		"channel":      contact.Channel(),
	})
	slog.Info("contact added", "user_id", userID, "contact_id", contact.ID)
	return contact, nil
}

func (s *ContactService) Remove(ctx context.Context, userID, contactID string) error {
	if err := s.repo.Deactivate(ctx, userID, contactID); err != nil {
		return err
	}
	s.record(ctx, userID, contactID, model.EventContactRemoved, nil)
	return nil
}

func (s *ContactService) List(ctx context.Context, userID string) ([]*model.Contact, error) {
	return s.repo.Contacts(ctx, userID)
}

// Invite emails the contact an introduction with their opt-out link.
func (s *ContactService) Invite(ctx context.Context, contactID string) error {
	contact, err := s.repo.ByID(ctx, contactID)
	if err != nil {
		return err
	}
	if contact.OptedOutAt != nil {
		return ErrContactOptedOut
	}
	if contact.Email == nil || *contact.Email == "" {
		return ErrContactNoEmail
	}

	owner, err := s.users.ByID(ctx, contact.UserID)
	if err != nil {
		return fmt.Errorf("failed to load contact owner: %w", err)
	}

	err = s.mailer.SendInviteEmail(ctx, *contact.Email, contact.Name, owner.DisplayName(), s.OptOutURL(contact.OptOutToken))
	if err != nil {
		return fmt.Errorf("failed to send invite: %w", err)
	}

	s.record(ctx, owner.ID, contact.ID, model.EventContactInvited, map[string]any{
		"relationship": contact.Relationship,
	})
	return nil
}

func (s *ContactService) OptOutURL(token string) string {
	return s.appURL + "/buddy/opt-out?token=" + url.QueryEscape(token)
}

// OptOut stops all messages to the contact holding token. Repeat calls are harmless.
func (s *ContactService) OptOut(ctx context.Context, token string) (*OptOutResult, error) {
	if token == "" {
		return &OptOutResult{Status: OptOutStatusNotFound}, nil
	}

	contact, err := s.repo.OptOut(ctx, token, s.now())
	if errors.Is(err, repository.ErrContactNotFound) {
		existing, err := s.repo.ByToken(ctx, token)
		if errors.Is(err, repository.ErrContactNotFound) {
			return &OptOutResult{Status: OptOutStatusNotFound}, nil
		}
		if err != nil {
			return nil, err
		}
		return &OptOutResult{Status: OptOutStatusAlreadyOptedOut, Contact: existing}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to opt out contact: %w", err)
	}

	s.record(ctx, contact.UserID, contact.ID, model.EventContactOptedOut, map[string]any{"via": "email_link"})
	slog.Info("contact opted out", "user_id", contact.UserID, "contact_id", contact.ID)
	s.notifyOwner(ctx, contact)

	return &OptOutResult{Status: OptOutStatusOptedOut, Contact: contact}, nil
}

// notifyOwner tells the owner a contact left. Failures are logged only.
func (s *ContactService) notifyOwner(ctx context.Context, contact *model.Contact) {
	owner, err := s.users.ByID(ctx, contact.UserID)
	if err != nil {
		slog.Warn("failed to load owner for opt-out notice", "error", err, "contact_id", contact.ID)
		return
	}

	contactName := contact.Name
	if contactName == "" {
		contactName = "Your contact"
	}

	if err := s.mailer.SendOptOutNotice(ctx, owner.Email, owner.DisplayName(), contactName); err != nil {
		slog.Error("failed to send opt-out notice", "error", err, "user_id", owner.ID)
	}

	if s.push == nil || owner.PushToken == nil || *owner.PushToken == "" {
		return
	}
	result := s.push.Send(ctx, Recipient{Name: owner.DisplayName(), PushToken: *owner.PushToken}, Content{
		Subject: "Accountability contact opted out",
		Text:    contactName + " opted out of your accountability updates.",
	})
	if !result.Success {
		slog.Warn("failed to send opt-out push", "user_id", owner.ID, "code", result.ErrorCode, "error", result.Err)
	}
}

func (s *ContactService) record(ctx context.Context, userID, contactID, eventType string, meta map[string]any) {
	if err := s.events.Record(ctx, userID, &contactID, eventType, meta); err != nil {
		slog.Warn("failed to record contact event", "error", err, "event", eventType)
	}
}

func buildContact(userID string, input ContactInput) (*model.Contact, error) {
	if err := validation.ValidateName(input.Name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContact, err)
	}

	contact := &model.Contact{
		UserID:       userID,
		Name:         strings.TrimSpace(input.Name),
		Relationship: input.Relationship,
		IsActive:     true,
	}
	if contact.Relationship == "" {
		contact.Relationship = model.RelationshipFriend
	}
	switch contact.Relationship {
	case model.RelationshipFriend, model.RelationshipFamily, model.RelationshipPartner, model.RelationshipCoach:
	default:
		return nil, fmt.Errorf("%w: unknown relationship %q", ErrInvalidContact, contact.Relationship)
	}

	if input.Email != "" {
		email := validation.NormalizeEmail(input.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidContact, err)
		}
		contact.Email = &email
	}
	if input.Phone != "" {
		phone := validation.NormalizePhone(input.Phone)
		if err := validation.ValidatePhone(phone); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidContact, err)
		}
		contact.Phone = &phone
	}
	if contact.Email == nil && contact.Phone == nil {
		return nil, fmt.Errorf("%w: an email address or phone number is required", ErrInvalidContact)
	}

	return contact, nil
}
