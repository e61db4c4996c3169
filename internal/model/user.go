package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type User struct {
	ID                   string     `db:"id"`
	Email                string     `db:"email"`
	Name                 string     `db:"name"`
	MessageStyle         string     `db:"message_style"`
	NotificationEnabled  bool       `db:"notification_enabled"`
	SendDay              string     `db:"send_day"`  // lowercase weekday name, e.g. "sunday"
	SendSlot             *string    `db:"send_slot"` // nil matches every slot
	Timezone             string     `db:"timezone"`
	NotifyOnSuccess      bool       `db:"notify_on_success"`
	NotifyOnPartial      bool       `db:"notify_on_partial"`
	MaxMessagesPerPeriod int        `db:"max_messages_per_period"`
	PushToken            *string    `db:"push_token"`
	LegacyGoalType       *string    `db:"legacy_goal_type"`
	LegacyGoalValue      *float64   `db:"legacy_goal_value"`
	DisabledAt           *time.Time `db:"disabled_at"`
	CreatedAt            time.Time  `db:"created_at"`
}

func (u *User) IsDisabled() bool {
	return u.DisabledAt != nil
}

// DisplayName is the name contacts see in messages.
// Falls back to the capitalized local part of the email address.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	if local == "" {
		return "your friend"
	}
	return cases.Title(language.English).String(local)
}

// Location returns the user's time zone, UTC when unset or unknown.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
