package model

import (
	"time"
)

const MaxActiveContacts = 5

const (
	RelationshipFriend  = "friend"
	RelationshipFamily  = "family"
	RelationshipPartner = "partner"
	RelationshipCoach   = "coach"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
)

type Contact struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	Name         string     `db:"name" json:"name"`
	Email        *string    `db:"email" json:"email"`
	Phone        *string    `db:"phone" json:"phone"`
	Relationship string     `db:"relationship" json:"relationship"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	OptOutToken  string     `db:"opt_out_token" json:"-"`
	OptedOutAt   *time.Time `db:"opted_out_at" json:"opted_out_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// CanReceive reports whether the contact is eligible for accountability messages.
func (c *Contact) CanReceive() bool {
	return c.IsActive && c.OptedOutAt == nil
}

// Channel picks email when an address is present, otherwise SMS.
func (c *Contact) Channel() string {
	if c.Email != nil && *c.Email != "" {
		return ChannelEmail
	}
	return ChannelSMS
}
