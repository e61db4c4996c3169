package message

import (
	"math"
	"strconv"
	"strings"
)

// FormatData carries placeholder values. Nil numbers leave their placeholder untouched.
type FormatData struct {
	User            string
	Contact         string
	GoalType        string
	Completed       *float64
	Goal            *float64
	Remaining       *float64
	ProgressPercent *float64
}

// Num is a convenience for optional FormatData numbers.
func Num(v float64) *float64 {
	return &v
}

var goalTypeNames = map[string]string{
	"runs":            "running",
	"miles":           "mile",
	"activities":      "activity",
	"bike_activities": "biking",
	"bike_miles":      "bike mile",
}

// GoalTypeName maps a goal label to the noun used in messages.
func GoalTypeName(label string) string {
	if name, ok := goalTypeNames[label]; ok {
		return name
	}
	return label
}

func Format(template string, data FormatData) string {
	pairs := []string{"{user}", data.User}
	if data.Contact != "" {
		pairs = append(pairs, "{contact}", data.Contact)
	}
	if data.GoalType != "" {
		pairs = append(pairs, "{goalType}", GoalTypeName(data.GoalType))
	}
	for _, n := range []struct {
		key string
		v   *float64
	}{
		{"{completed}", data.Completed},
		{"{goal}", data.Goal},
		{"{remaining}", data.Remaining},
		{"{progressPercent}", data.ProgressPercent},
	} {
		if n.v != nil {
			pairs = append(pairs, n.key, formatNumber(*n.v))
		}
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// formatNumber prints at most two decimals and drops trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
