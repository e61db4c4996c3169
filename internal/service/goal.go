package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/period"
	"github.com/rundownapp/rundown/internal/repository"
)

var (
	ErrInvalidGoal = errors.New("invalid goal")
)

type GoalInput struct {
	GoalType      string     `json:"goal_type"`
	TargetValue   float64    `json:"target_value"`
	Metric        string     `json:"metric,omitempty"`
	TargetUnit    string     `json:"target_unit,omitempty"`
	ActivityTypes []string   `json:"activity_types,omitempty"`
	Cadence       string     `json:"cadence,omitempty"`
	CustomStart   *time.Time `json:"custom_start,omitempty"`
	CustomEnd     *time.Time `json:"custom_end,omitempty"`
}

// GoalService keeps the goal ledger: the active goal plus its effective-dated history.
type GoalService struct {
	repo     repository.GoalRepository
	userRepo repository.UserRepository
	events   repository.EventRepository
	now      func() time.Time
}

func NewGoalService(repo repository.GoalRepository, userRepo repository.UserRepository, events repository.EventRepository) *GoalService {
	return &GoalService{
		repo:     repo,
		userRepo: userRepo,
		events:   events,
		now:      time.Now,
	}
}

// ResolveActiveGoal returns the goal in effect at the given instant, or nil if there is none.
func (s *GoalService) ResolveActiveGoal(ctx context.Context, userID string, at time.Time) (*model.Goal, error) {
	entry, err := s.repo.HistoryAt(ctx, userID, at)
	if err == nil {
		return s.goalFromHistory(ctx, userID, entry)
	}
	if !errors.Is(err, repository.ErrGoalNotFound) {
		return nil, fmt.Errorf("failed to load goal history: %w", err)
	}

	user, err := s.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return legacyGoal(user, at), nil
}

func (s *GoalService) goalFromHistory(ctx context.Context, userID string, entry *model.GoalHistory) (*model.Goal, error) {
	if entry.GoalID != nil {
		goal, err := s.repo.ByID(ctx, *entry.GoalID)
		if err == nil {
			resolved := *goal
			resolved.GoalType = entry.GoalType
			resolved.TargetValue = entry.GoalValue
			return &resolved, nil
		}
		if !errors.Is(err, repository.ErrGoalNotFound) {
			return nil, fmt.Errorf("failed to load goal: %w", err)
		}
	}

	goal, err := model.GoalFromPreset(userID, entry.GoalType, entry.GoalValue)
	if err != nil {
		return nil, fmt.Errorf("goal history %s: %w", entry.ID, err)
	}
	return goal, nil
}

// legacyGoal reads the pre-history user fields. They apply from account creation onward.
func legacyGoal(user *model.User, at time.Time) *model.Goal {
	if user.LegacyGoalType == nil && user.LegacyGoalValue == nil {
		return nil
	}
	if at.Before(user.CreatedAt) {
		return nil
	}

	goalType := model.DefaultGoalType
	if user.LegacyGoalType != nil {
		goalType = *user.LegacyGoalType
	}
	value := float64(model.DefaultGoalValue)
	if user.LegacyGoalValue != nil && *user.LegacyGoalValue > 0 {
		value = *user.LegacyGoalValue
	}

	goal, err := model.GoalFromPreset(user.ID, goalType, value)
	if err != nil {
		slog.Warn("unknown legacy goal type, using default", "user_id", user.ID, "goal_type", goalType)
		goal, _ = model.GoalFromPreset(user.ID, model.DefaultGoalType, value)
	}
	return goal
}

// RecordGoalChange replaces the user's active goal. A change made after the current
// period began takes effect at the next period boundary.
func (s *GoalService) RecordGoalChange(ctx context.Context, userID string, input GoalInput) (*model.Goal, error) {
	user, err := s.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := s.now().In(user.Location())
	candidate, err := buildGoal(userID, input, now)
	if err != nil {
		return nil, err
	}

	var effective time.Time
	goal, err := s.repo.RecordChange(ctx, userID, func(prior *model.Goal) (*model.Goal, *model.GoalHistory, error) {
		effective = effectiveDate(prior, candidate, now)
		entry := &model.GoalHistory{
			ID:            uuid.New().String(),
			UserID:        userID,
			GoalID:        &candidate.ID,
			GoalType:      candidate.GoalType,
			GoalValue:     candidate.TargetValue,
			EffectiveDate: effective.UTC(),
			CreatedAt:     now.UTC(),
		}
		return candidate, entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record goal change: %w", err)
	}

	err = s.events.Record(ctx, userID, nil, model.EventGoalChanged, map[string]any{
		"goal_id":        goal.ID,
		"goal_type":      goal.GoalType,
		"target_value":   goal.TargetValue,
		"effective_date": effective.UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Warn("failed to record goal event", "error", err, "user_id", userID)
	}

	slog.Info("goal changed", "user_id", userID, "goal_id", goal.ID, "effective_date", effective)
	return goal, nil
}

func (s *GoalService) History(ctx context.Context, userID string) ([]*model.GoalHistory, error) {
	return s.repo.History(ctx, userID)
}

func effectiveDate(prior, goal *model.Goal, now time.Time) time.Time {
	if goal.Cadence == model.CadenceCustom {
		cs := goal.CustomStart.In(now.Location())
		start := time.Date(cs.Year(), cs.Month(), cs.Day(), 0, 0, 0, 0, now.Location())
		if prior != nil && now.After(start) {
			return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
		}
		return start
	}

	current, _ := period.Current(goal, now)
	if prior != nil && now.After(current.Start) {
		return current.End.Add(time.Nanosecond)
	}
	return current.Start
}

func buildGoal(userID string, input GoalInput, now time.Time) (*model.Goal, error) {
	if input.TargetValue <= 0 {
		return nil, fmt.Errorf("%w: target value must be positive", ErrInvalidGoal)
	}

	goal := &model.Goal{
		ID:          uuid.New().String(),
		UserID:      userID,
		GoalType:    input.GoalType,
		TargetValue: input.TargetValue,
		Cadence:     input.Cadence,
		IsActive:    true,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if goal.Cadence == "" {
		goal.Cadence = model.CadenceWeekly
	}

	if preset, ok := model.GoalPresets[input.GoalType]; ok {
		goal.Metric = preset.Metric
		goal.TargetUnit = preset.Unit
		goal.ActivityTypes = preset.ActivityTypes
	} else if input.GoalType == model.GoalTypeCustom {
		goal.Metric = input.Metric
		goal.TargetUnit = input.TargetUnit
		goal.ActivityTypes = input.ActivityTypes
	} else {
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidGoal, model.ErrUnknownGoalType, input.GoalType)
	}
	if len(input.ActivityTypes) > 0 {
		goal.ActivityTypes = input.ActivityTypes
	}

	switch goal.Metric {
	case model.MetricCount, model.MetricStreak:
	case model.MetricDuration:
		goal.TargetUnit = model.UnitMinutes
	case model.MetricDistance:
		if goal.TargetUnit != model.UnitMiles && goal.TargetUnit != model.UnitKilometers {
			return nil, fmt.Errorf("%w: distance unit must be miles or kilometers", ErrInvalidGoal)
		}
	default:
		return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalidGoal, goal.Metric)
	}

	switch goal.Cadence {
	case model.CadenceDaily, model.CadenceWeekly, model.CadenceMonthly:
	case model.CadenceCustom:
		if input.CustomStart == nil || input.CustomEnd == nil || input.CustomEnd.Before(*input.CustomStart) {
			return nil, fmt.Errorf("%w: custom cadence needs a start before its end", ErrInvalidGoal)
		}
		start, end := input.CustomStart.UTC(), input.CustomEnd.UTC()
		goal.CustomStart, goal.CustomEnd = &start, &end
	default:
		return nil, fmt.Errorf("%w: unknown cadence %q", ErrInvalidGoal, goal.Cadence)
	}

	return goal, nil
}
