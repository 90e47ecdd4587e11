package alarm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NeverTriggered marks an entry that has not fired yet.
const NeverTriggered int64 = -1

const (
	secondsPerDay = 24 * 60 * 60
	minutesPerDay = 24 * 60
)

// Moment is the wall-clock minute an entry is evaluated against.
type Moment struct {
	// Hour is 0-23.
	Hour int
	// Minute is 0-59.
	Minute int
	// Weekday is the local day of week.
	Weekday time.Weekday
	// Stamp is the number of whole minutes since the Unix epoch; it orders minutes.
	Stamp int64
	// Wall identifies the local calendar minute. The repeated hour of a
	// daylight saving fall-back maps to the same Wall twice.
	Wall int64
}

// MomentOf truncates t to its minute in t's location.
func MomentOf(t time.Time) Moment {
	m := Moment{
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Weekday: t.Weekday(),
		Stamp:   t.Unix() / 60,
	}

	year, month, day := t.Date()
	days := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
	m.Wall = days*minutesPerDay + int64(m.MinuteOfDay())

	return m
}

// Clock renders the moment as HH:MM.
func (m Moment) Clock() string {
	return fmt.Sprintf("%02d:%02d", m.Hour, m.Minute)
}

// MinuteOfDay returns minutes since local midnight.
func (m Moment) MinuteOfDay() int {
	return m.Hour*60 + m.Minute
}

// TimeOfDay is an HH:MM wall-clock time.
type TimeOfDay struct {
	// Hour is 0-23.
	Hour int
	// Minute is 0-59.
	Minute int
}

// ParseTimeOfDay parses a strict HH:MM (H:MM is accepted too).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 || hh == "" || len(hh) > 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// String renders HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Entry is one scheduled alarm.
type Entry struct {
	// Enabled gates evaluation.
	Enabled bool
	// Time is the wall-clock time of day.
	Time TimeOfDay
	// Repeat is the recurrence policy.
	Repeat Repeat
	// Action is what happens when the entry fires.
	Action Action
	// ActionParam is the action argument: a song, a reminder text or a message.
	ActionParam string
	// Description is a free-form label.
	Description string
	// LastTriggered is the Moment.Wall of the last firing, NeverTriggered before the first.
	LastTriggered int64
	// DueStamp is the earliest Moment.Stamp a relative entry may fire at; zero means none.
	DueStamp int64
}

// Validate checks that the entry can be stored.
func (e *Entry) Validate() error {
	if e.Time.Hour < 0 || e.Time.Hour > 23 || e.Time.Minute < 0 || e.Time.Minute > 59 {
		return fmt.Errorf("%w: %s", ErrInvalidTime, e.Time)
	}

	if e.Repeat < RepeatOnce || e.Repeat > RepeatHourly {
		return fmt.Errorf("%w: %d", ErrUnknownRepeat, e.Repeat)
	}

	if e.Action == ActionNone {
		return ErrNoAction
	}

	if e.Action < ActionNone || e.Action > ActionCustomMessage {
		return fmt.Errorf("%w: %d", ErrUnknownAction, e.Action)
	}

	if e.Action.NeedsParam() && strings.TrimSpace(e.ActionParam) == "" {
		return fmt.Errorf("%w: %s", ErrMissingParam, e.Action)
	}

	return nil
}

// ShouldTrigger reports whether the entry fires at m.
// Hourly entries compare the minute only; the others compare hour and minute.
func (e *Entry) ShouldTrigger(m Moment) bool {
	if !e.Enabled {
		return false
	}

	if e.LastTriggered == m.Wall {
		return false
	}

	if m.Stamp < e.DueStamp {
		return false
	}

	if e.Repeat == RepeatHourly {
		return e.Time.Minute == m.Minute
	}

	if e.Time.Hour != m.Hour || e.Time.Minute != m.Minute {
		return false
	}

	return e.Repeat.matchesDay(m.Weekday)
}

// MarkTriggered records a firing at m and disables one-shot entries.
func (e *Entry) MarkTriggered(m Moment) {
	e.LastTriggered = m.Wall
	if e.Repeat == RepeatOnce {
		e.Enabled = false
	}
}

// Message is the text used by reminder style actions:
// the parameter, else the description, else a generic reminder.
func (e *Entry) Message() string {
	if s := strings.TrimSpace(e.ActionParam); s != "" {
		return s
	}

	if s := strings.TrimSpace(e.Description); s != "" {
		return s
	}

	return fmt.Sprintf("It is %s, this is your scheduled reminder.", e.Time)
}

// Clone returns a copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	cloned := *e

	return &cloned
}
