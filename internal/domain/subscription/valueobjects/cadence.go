package valueobjects

import (
	"fmt"
	"strings"
	"time"
)

// Cadence is the recurring billing interval of a subscription.
type Cadence string

const (
	CadenceWeekly    Cadence = "weekly"
	CadenceBiweekly  Cadence = "biweekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceAnnual    Cadence = "annual"
)

var ValidCadences = map[Cadence]bool{
	CadenceWeekly:    true,
	CadenceBiweekly:  true,
	CadenceMonthly:   true,
	CadenceQuarterly: true,
	CadenceAnnual:    true,
}

func ParseCadence(value string) (Cadence, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", fmt.Errorf("cadence cannot be empty")
	}

	cadence := Cadence(normalized)
	if !ValidCadences[cadence] {
		return "", fmt.Errorf("invalid cadence: %s", value)
	}

	return cadence, nil
}

func (c Cadence) String() string {
	return string(c)
}

func (c Cadence) IsValid() bool {
	return ValidCadences[c]
}

// NextBillingDate computes the following billing date from the given time.
// Month-based cadences use calendar months with the day clamped to the end
// of the target month, so monthly from Jan 31 lands on Feb 28/29 instead of
// overflowing into March.
func (c Cadence) NextBillingDate(from time.Time) time.Time {
	switch c {
	case CadenceWeekly:
		return from.AddDate(0, 0, 7)
	case CadenceBiweekly:
		return from.AddDate(0, 0, 14)
	case CadenceMonthly:
		return addMonthsClamped(from, 1)
	case CadenceQuarterly:
		return addMonthsClamped(from, 3)
	case CadenceAnnual:
		return addMonthsClamped(from, 12)
	default:
		return time.Time{}
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	// Normalize the target month by anchoring on day 1 first; AddDate from
	// day 31 would spill over into the month after the target.
	anchor := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)

	lastDay := time.Date(anchor.Year(), anchor.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(anchor.Year(), anchor.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
