package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/period"
)

const (
	metersPerMile      = 1609.34
	metersPerKilometer = 1000
)

var ErrActivityFetch = errors.New("activity fetch failed")

// ActivityReader lists stored activities for a user in a time range.
type ActivityReader interface {
	InRange(ctx context.Context, userID string, start, end time.Time, types []string) ([]*model.Activity, error)
}

type Progress struct {
	Current float64
	Target  float64
}

func (p Progress) Met() bool {
	return p.Current >= p.Target
}

func (p Progress) Remaining() float64 {
	return math.Max(0, round2(p.Target-p.Current))
}

// Percent is the rounded share of the target completed.
func (p Progress) Percent() float64 {
	if p.Target <= 0 {
		return 0
	}
	return math.Round(p.Current / p.Target * 100)
}

type ProgressService struct {
	activities ActivityReader
}

func NewProgressService(activities ActivityReader) *ProgressService {
	return &ProgressService{activities: activities}
}

func (s *ProgressService) CalculateProgress(ctx context.Context, userID string, goal *model.Goal, p period.Period) (Progress, error) {
	activities, err := s.activities.InRange(ctx, userID, p.Start, p.End, goal.ActivityTypes)
	if err != nil {
		return Progress{}, fmt.Errorf("%w: %w", ErrActivityFetch, err)
	}
	return Progress{
		Current: measure(goal, activities, p.Start.Location()),
		Target:  goal.TargetValue,
	}, nil
}

func measure(goal *model.Goal, activities []*model.Activity, loc *time.Location) float64 {
	switch goal.Metric {
	case model.MetricDistance:
		var meters float64
		for _, a := range activities {
			meters += a.DistanceMeters
		}
		if goal.TargetUnit == model.UnitKilometers {
			return round2(meters / metersPerKilometer)
		}
		return round2(meters / metersPerMile)
	case model.MetricDuration:
		var seconds int
		for _, a := range activities {
			seconds += a.MovingTimeSeconds
		}
		return round2(float64(seconds) / 60)
	case model.MetricStreak:
		return float64(longestStreak(activities, loc))
	default:
		return float64(len(activities))
	}
}

// longestStreak counts the longest run of consecutive calendar days with activity.
func longestStreak(activities []*model.Activity, loc *time.Location) int {
	days := make(map[int64]struct{}, len(activities))
	for _, a := range activities {
		t := a.StartDate.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
		days[day] = struct{}{}
	}
	if len(days) == 0 {
		return 0
	}

	sorted := make([]int64, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
