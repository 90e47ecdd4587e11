package alarm

import (
	"fmt"
	"strings"
	"time"
)

// Repeat is the recurrence policy of an entry.
type Repeat int

// Repeat policies.
const (
	RepeatOnce Repeat = iota
	RepeatDaily
	RepeatWeekdays
	RepeatWeekends
	RepeatHourly
)

//nolint:gochecknoglobals // Immutable lookup table.
var repeatNames = [...]string{
	RepeatOnce:     "once",
	RepeatDaily:    "daily",
	RepeatWeekdays: "weekdays",
	RepeatWeekends: "weekends",
	RepeatHourly:   "hourly",
}

// String returns the settings name of the policy.
func (r Repeat) String() string {
	if r < 0 || int(r) >= len(repeatNames) {
		return "unknown"
	}

	return repeatNames[r]
}

// ParseRepeat converts a name into a Repeat. An empty name means once.
func ParseRepeat(name string) (Repeat, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return RepeatOnce, nil
	}

	for i, n := range repeatNames {
		if n == name {
			return Repeat(i), nil
		}
	}

	return RepeatOnce, fmt.Errorf("%w: %q", ErrUnknownRepeat, name)
}

// matchesDay reports whether the policy allows firing on weekday.
func (r Repeat) matchesDay(weekday time.Weekday) bool {
	switch r {
	case RepeatWeekdays:
		return weekday >= time.Monday && weekday <= time.Friday
	case RepeatWeekends:
		return weekday == time.Saturday || weekday == time.Sunday
	default:
		return true
	}
}
