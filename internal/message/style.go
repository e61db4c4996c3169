package message

import (
	"errors"
	"fmt"
)

type Style int

const (
	StyleSupportive Style = iota
	StyleSnarky
	StyleChaotic
	StyleCompetitive
	StyleAchievement
	numStyles
)

type Intent int

const (
	IntentMissedGoal Intent = iota
	IntentWeeklySummary
	IntentCongratulatory
	IntentMotivational
	IntentCheckIn
	numIntents
)

var (
	ErrUnknownStyle  = errors.New("unknown message style")
	ErrUnknownIntent = errors.New("unknown message intent")
)

var styleNames = [numStyles]string{
	StyleSupportive:  "supportive",
	StyleSnarky:      "snarky",
	StyleChaotic:     "chaotic",
	StyleCompetitive: "competitive",
	StyleAchievement: "achievement",
}

var intentNames = [numIntents]string{
	IntentMissedGoal:     "missed-goal",
	IntentWeeklySummary:  "weekly-summary",
	IntentCongratulatory: "congratulatory",
	IntentMotivational:   "motivational",
	IntentCheckIn:        "check-in",
}

func (s Style) String() string {
	if !s.valid() {
		return fmt.Sprintf("Style(%d)", int(s))
	}
	return styleNames[s]
}

func (s Style) valid() bool { return s >= 0 && s < numStyles }

func (i Intent) String() string {
	if !i.valid() {
		return fmt.Sprintf("Intent(%d)", int(i))
	}
	return intentNames[i]
}

func (i Intent) valid() bool { return i >= 0 && i < numIntents }

func ParseStyle(s string) (Style, error) {
	for i, name := range styleNames {
		if name == s {
			return Style(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStyle, s)
}

func ParseIntent(s string) (Intent, error) {
	for i, name := range intentNames {
		if name == s {
			return Intent(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIntent, s)
}

func Styles() []Style {
	out := make([]Style, 0, numStyles)
	for s := Style(0); s < numStyles; s++ {
		out = append(out, s)
	}
	return out
}

func Intents() []Intent {
	out := make([]Intent, 0, numIntents)
	for i := Intent(0); i < numIntents; i++ {
		out = append(out, i)
	}
	return out
}
