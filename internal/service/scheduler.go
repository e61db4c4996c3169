package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/repository"
)

type Slot string

const (
	SlotMorning   Slot = "morning"
	SlotAfternoon Slot = "afternoon"
	SlotEvening   Slot = "evening"
)

var ErrUnknownSlot = errors.New("unknown slot")

var Slots = []Slot{SlotMorning, SlotAfternoon, SlotEvening}

// Priority orders delivery; earlier slots go first.
func (s Slot) Priority() int {
	switch s {
	case SlotMorning:
		return 1
	case SlotAfternoon:
		return 2
	default:
		return 3
	}
}

// Hour is the default evaluation hour of the slot.
func (s Slot) Hour() int {
	switch s {
	case SlotMorning:
		return 9
	case SlotAfternoon:
		return 15
	default:
		return 21
	}
}

func ParseSlot(s string) (Slot, error) {
	for _, slot := range Slots {
		if string(slot) == s {
			return slot, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, s)
}

type ScheduleResult struct {
	Slot     Slot   `json:"slot"`
	Day      string `json:"day"`
	Weekday  string `json:"weekday"`
	Matched  int    `json:"matched"`
	Queued   int    `json:"queued"`
	Existing int    `json:"existing"`
}

// SchedulerService queues one evaluation per user whose preferences match a slot.
type SchedulerService struct {
	users       repository.UserRepository
	queue       repository.QueueRepository
	loc         *time.Location
	maxAttempts int
}

func NewSchedulerService(users repository.UserRepository, queue repository.QueueRepository, loc *time.Location, maxAttempts int) *SchedulerService {
	if loc == nil {
		loc = time.UTC
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &SchedulerService{
		users:       users,
		queue:       queue,
		loc:         loc,
		maxAttempts: maxAttempts,
	}
}

// RunSlot is idempotent: a second run for the same day and slot queues nothing new.
func (s *SchedulerService) RunSlot(ctx context.Context, slot Slot, now time.Time) (*ScheduleResult, error) {
	local := now.In(s.loc)
	weekday := strings.ToLower(local.Weekday().String())
	result := &ScheduleResult{
		Slot:    slot,
		Day:     local.Format(time.DateOnly),
		Weekday: weekday,
	}

	users, err := s.users.DueForSlot(ctx, weekday, string(slot))
	if err != nil {
		return nil, fmt.Errorf("failed to load users for slot: %w", err)
	}
	result.Matched = len(users)

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entry := &model.QueueEntry{
			ID:           uuid.New().String(),
			UserID:       user.ID,
			ScheduledFor: now.UTC(),
			ScheduledDay: result.Day,
			Period:       string(slot),
			Priority:     slot.Priority(),
			Status:       model.QueueStatusQueued,
			MaxAttempts:  s.maxAttempts,
			CreatedAt:    now.UTC(),
			UpdatedAt:    now.UTC(),
		}
		queued, err := s.queue.Enqueue(ctx, entry)
		if err != nil {
			return result, fmt.Errorf("failed to enqueue user %s: %w", user.ID, err)
		}
		if queued {
			result.Queued++
		} else {
			result.Existing++
		}
	}

	slog.Info("slot scheduled",
		"slot", slot,
		"day", result.Day,
		"matched", result.Matched,
		"queued", result.Queued,
		"existing", result.Existing,
	)
	return result, nil
}
