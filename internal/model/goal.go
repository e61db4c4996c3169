package model

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"
)

const (
	MetricCount    = "count"
	MetricDistance = "distance"
	MetricDuration = "duration"
	MetricStreak   = "streak"
)

const (
	CadenceDaily   = "daily"
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
	CadenceCustom  = "custom"
)

const (
	UnitActivities = "activities"
	UnitMiles      = "miles"
	UnitKilometers = "kilometers"
	UnitMinutes    = "minutes"
	UnitDays       = "days"
)

const (
	GoalTypeTotalActivities   = "total_activities"
	GoalTypeTotalRuns         = "total_runs"
	GoalTypeTotalMilesRunning = "total_miles_running"
	GoalTypeTotalRidesBiking  = "total_rides_biking"
	GoalTypeTotalMilesBiking  = "total_miles_biking"
	GoalTypeStreakDays        = "streak_days"
	GoalTypeTotalMinutes      = "total_minutes"
	GoalTypeCustom            = "custom"
)

// Fallbacks for users who predate goal history and never set a legacy goal.
const (
	DefaultGoalType  = GoalTypeTotalActivities
	DefaultGoalValue = 3
)

var ErrUnknownGoalType = errors.New("unknown goal type")

var (
	RunActivityTypes  = StringList{"Run", "VirtualRun", "TrailRun"}
	RideActivityTypes = StringList{"Ride", "VirtualRide", "EBikeRide", "MountainBikeRide", "GravelRide"}
)

// GoalPreset describes how a named goal type is measured.
type GoalPreset struct {
	Metric        string
	Unit          string
	ActivityTypes StringList
	// Label is the short key used for message display names.
	Label string
}

var GoalPresets = map[string]GoalPreset{
	GoalTypeTotalActivities:   {Metric: MetricCount, Unit: UnitActivities, Label: "activities"},
	GoalTypeTotalRuns:         {Metric: MetricCount, Unit: UnitActivities, ActivityTypes: RunActivityTypes, Label: "runs"},
	GoalTypeTotalMilesRunning: {Metric: MetricDistance, Unit: UnitMiles, ActivityTypes: RunActivityTypes, Label: "miles"},
	GoalTypeTotalRidesBiking:  {Metric: MetricCount, Unit: UnitActivities, ActivityTypes: RideActivityTypes, Label: "bike_activities"},
	GoalTypeTotalMilesBiking:  {Metric: MetricDistance, Unit: UnitMiles, ActivityTypes: RideActivityTypes, Label: "bike_miles"},
	GoalTypeStreakDays:        {Metric: MetricStreak, Unit: UnitDays, Label: "streak days"},
	GoalTypeTotalMinutes:      {Metric: MetricDuration, Unit: UnitMinutes, Label: "minutes"},
}

type Goal struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	GoalType      string     `db:"goal_type" json:"goal_type"`
	Metric        string     `db:"metric" json:"metric"`
	TargetValue   float64    `db:"target_value" json:"target_value"`
	TargetUnit    string     `db:"target_unit" json:"target_unit"`
	ActivityTypes StringList `db:"activity_types" json:"activity_types"`
	Cadence       string     `db:"cadence" json:"cadence"`
	CustomStart   *time.Time `db:"custom_start" json:"custom_start"`
	CustomEnd     *time.Time `db:"custom_end" json:"custom_end"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Label returns the display key for message templates.
func (g *Goal) Label() string {
	if p, ok := GoalPresets[g.GoalType]; ok {
		return p.Label
	}
	switch g.Metric {
	case MetricDistance:
		return g.TargetUnit
	case MetricDuration:
		return UnitMinutes
	case MetricStreak:
		return "streak days"
	}
	return "activities"
}

// GoalFromPreset builds an unsaved weekly goal for a preset type.
// Used for legacy user fields and history rows without a goal row.
func GoalFromPreset(userID, goalType string, value float64) (*Goal, error) {
	p, ok := GoalPresets[goalType]
	if !ok {
		return nil, ErrUnknownGoalType
	}
	return &Goal{
		UserID:        userID,
		GoalType:      goalType,
		Metric:        p.Metric,
		TargetValue:   value,
		TargetUnit:    p.Unit,
		ActivityTypes: p.ActivityTypes,
		Cadence:       CadenceWeekly,
		IsActive:      true,
	}, nil
}

// StringList is stored as a comma separated TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

func (l *StringList) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return errors.New("unsupported type for StringList")
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = strings.Split(s, ",")
	return nil
}
