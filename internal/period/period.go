// Package period computes the evaluation windows of a goal.
package period

import (
	"time"

	"github.com/rundownapp/rundown/internal/model"
)

// Period is an inclusive time window. End is the last instant before the next period starts.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// IsFinalDay reports whether t falls on the calendar day the period ends.
func (p Period) IsFinalDay(t time.Time) bool {
	t = t.In(p.End.Location())
	return !t.Before(startOfDay(p.End)) && !t.After(p.End)
}

// Ended reports whether the period is entirely before t.
func (p Period) Ended(t time.Time) bool {
	return t.After(p.End)
}

// Generate returns the periods of goal that the reference time is evaluated against.
// Calendar cadences yield the single period containing ref, computed in ref's location.
// Custom cadence yields the goal's own window, unclamped to ref, or nothing when a bound is missing.
func Generate(goal *model.Goal, ref time.Time) []Period {
	switch goal.Cadence {
	case model.CadenceDaily:
		start := startOfDay(ref)
		return []Period{{Start: start, End: start.AddDate(0, 0, 1).Add(-time.Nanosecond)}}
	case model.CadenceMonthly:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		return []Period{{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}}
	case model.CadenceCustom:
		if goal.CustomStart == nil || goal.CustomEnd == nil {
			return nil
		}
		start := startOfDay(goal.CustomStart.In(ref.Location()))
		end := startOfDay(goal.CustomEnd.In(ref.Location())).AddDate(0, 0, 1).Add(-time.Nanosecond)
		return []Period{{Start: start, End: end}}
	default:
		start := WeekStart(ref)
		return []Period{{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}}
	}
}

// Current returns the first generated period, false when the goal has none.
func Current(goal *model.Goal, ref time.Time) (Period, bool) {
	periods := Generate(goal, ref)
	if len(periods) == 0 {
		return Period{}, false
	}
	return periods[0], true
}

// WeekStart returns Monday 00:00 of the week containing t.
func WeekStart(t time.Time) time.Time {
	offset := 1 - int(t.Weekday())
	if t.Weekday() == time.Sunday {
		offset = -6
	}
	return startOfDay(t).AddDate(0, 0, offset)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
