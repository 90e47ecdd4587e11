package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(t *testing.T, value string) Moment {
	t.Helper()

	ts, err := time.ParseInLocation("2006-01-02 15:04", value, time.UTC)
	require.NoError(t, err)

	return MomentOf(ts)
}

// TestParseTimeOfDay covers accepted and rejected clock strings.
func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]TimeOfDay{
		"07:00":   {7, 0},
		"7:05":    {7, 5},
		"23:59":   {23, 59},
		" 00:00 ": {0, 0},
	} {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "24:00", "12:60", "7", "12:5", "aa:bb", "123:00", "-1:00"} {
		_, err := ParseTimeOfDay(in)
		require.ErrorIs(t, err, ErrInvalidTime, in)
	}
}

// TestDailyFiresOncePerMinute is the 07:00 open-light scenario.
func TestDailyFiresOncePerMinute(t *testing.T) {
	t.Parallel()

	e := &Entry{
		Enabled:       true,
		Time:          TimeOfDay{7, 0},
		Repeat:        RepeatDaily,
		Action:        ActionOpenLight,
		LastTriggered: NeverTriggered,
	}

	require.False(t, e.ShouldTrigger(at(t, "2026-03-02 06:59")))

	m := at(t, "2026-03-02 07:00")
	require.True(t, e.ShouldTrigger(m))
	e.MarkTriggered(m)

	// A second evaluation within the same minute does not fire.
	require.False(t, e.ShouldTrigger(m))
	require.True(t, e.Enabled)

	// The next day fires again.
	require.True(t, e.ShouldTrigger(at(t, "2026-03-03 07:00")))
}

// TestHourlyFiresEveryMatchingMinute checks hourly entries across a whole day.
func TestHourlyFiresEveryMatchingMinute(t *testing.T) {
	t.Parallel()

	e := &Entry{
		Enabled:       true,
		Time:          TimeOfDay{9, 15},
		Repeat:        RepeatHourly,
		Action:        ActionVoiceReminder,
		LastTriggered: NeverTriggered,
	}

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fired := 0

	for minute := range 24 * 60 {
		m := MomentOf(start.Add(time.Duration(minute) * time.Minute))

		// Evaluating twice in one minute must not double fire.
		for range 2 {
			if e.ShouldTrigger(m) {
				require.Equal(t, 15, m.Minute)
				e.MarkTriggered(m)

				fired++
			}
		}
	}

	require.Equal(t, 24, fired)
}

// TestRepeatDays checks weekday and weekend policies.
func TestRepeatDays(t *testing.T) {
	t.Parallel()

	monday := at(t, "2026-03-02 08:30")
	saturday := at(t, "2026-03-07 08:30")
	sunday := at(t, "2026-03-08 08:30")

	weekdays := &Entry{Enabled: true, Time: TimeOfDay{8, 30}, Repeat: RepeatWeekdays, Action: ActionOpenLED, LastTriggered: NeverTriggered}
	require.True(t, weekdays.ShouldTrigger(monday))
	require.False(t, weekdays.ShouldTrigger(saturday))
	require.False(t, weekdays.ShouldTrigger(sunday))

	weekends := &Entry{Enabled: true, Time: TimeOfDay{8, 30}, Repeat: RepeatWeekends, Action: ActionOpenLED, LastTriggered: NeverTriggered}
	require.False(t, weekends.ShouldTrigger(monday))
	require.True(t, weekends.ShouldTrigger(saturday))
	require.True(t, weekends.ShouldTrigger(sunday))
}

// TestOnceDisablesAfterFiring ensures one-shot entries disable themselves.
func TestOnceDisablesAfterFiring(t *testing.T) {
	t.Parallel()

	e := &Entry{Enabled: true, Time: TimeOfDay{12, 0}, Action: ActionStopMusic, LastTriggered: NeverTriggered}
	m := at(t, "2026-03-02 12:00")

	require.True(t, e.ShouldTrigger(m))
	e.MarkTriggered(m)
	require.False(t, e.Enabled)
	require.False(t, e.ShouldTrigger(at(t, "2026-03-03 12:00")))
}

// TestValidate rejects entries that cannot run.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&Entry{Time: TimeOfDay{25, 0}, Action: ActionOpenLight}).Validate(), ErrInvalidTime)
	require.ErrorIs(t, (&Entry{Time: TimeOfDay{7, 0}}).Validate(), ErrNoAction)
	require.ErrorIs(t, (&Entry{Time: TimeOfDay{7, 0}, Action: ActionPlayMusic}).Validate(), ErrMissingParam)
	require.ErrorIs(t, (&Entry{Time: TimeOfDay{7, 0}, Action: Action(99)}).Validate(), ErrUnknownAction)
	require.ErrorIs(t, (&Entry{Time: TimeOfDay{7, 0}, Action: ActionOpenFan, Repeat: Repeat(9)}).Validate(), ErrUnknownRepeat)
	require.NoError(t, (&Entry{Time: TimeOfDay{7, 0}, Action: ActionPlayMusic, ActionParam: "Morning"}).Validate())
}

// TestParseNames covers repeat and action parsing.
func TestParseNames(t *testing.T) {
	t.Parallel()

	r, err := ParseRepeat("Weekends")
	require.NoError(t, err)
	require.Equal(t, RepeatWeekends, r)

	r, err = ParseRepeat("")
	require.NoError(t, err)
	require.Equal(t, RepeatOnce, r)

	_, err = ParseRepeat("monthly")
	require.ErrorIs(t, err, ErrUnknownRepeat)

	a, err := ParseAction("voice_reminder")
	require.NoError(t, err)
	require.Equal(t, ActionVoiceReminder, a)

	_, err = ParseAction("open_window")
	require.ErrorIs(t, err, ErrUnknownAction)

	require.Len(t, ActionNames(), 13)
	require.NotContains(t, ActionNames(), "none")
}

// TestEntryMessageAndClone covers reminder text fallback and copying.
func TestEntryMessageAndClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Entry)(nil).Clone())

	e := &Entry{Time: TimeOfDay{7, 30}, Action: ActionVoiceReminder, Description: "Take medicine"}
	require.Equal(t, "Take medicine", e.Message())

	e.ActionParam = "Drink water"
	require.Equal(t, "Drink water", e.Message())

	c := e.Clone()
	require.Equal(t, e, c)
	require.NotSame(t, e, c)

	require.Contains(t, (&Entry{Time: TimeOfDay{7, 30}}).Message(), "07:30")
}

// TestDueStampHoldsRelativeEntries blocks a one-shot entry until its due minute.
func TestDueStampHoldsRelativeEntries(t *testing.T) {
	t.Parallel()

	due := at(t, "2026-03-03 11:00")
	e := &Entry{
		Enabled:       true,
		Time:          TimeOfDay{11, 0},
		Action:        ActionVoiceReminder,
		ActionParam:   "Call back",
		LastTriggered: NeverTriggered,
		DueStamp:      due.Stamp,
	}

	require.False(t, e.ShouldTrigger(at(t, "2026-03-02 11:00")))
	require.True(t, e.ShouldTrigger(due))
}

// TestMomentWallIgnoresOffset maps the same local minute to one key across offsets.
func TestMomentWallIgnoresOffset(t *testing.T) {
	t.Parallel()

	summer := time.FixedZone("EDT", -4*60*60)
	winter := time.FixedZone("EST", -5*60*60)

	first := MomentOf(time.Date(2026, time.November, 1, 1, 30, 0, 0, summer))
	second := MomentOf(time.Date(2026, time.November, 1, 1, 30, 0, 0, winter))

	require.Equal(t, first.Wall, second.Wall)
	require.Equal(t, first.Stamp+60, second.Stamp)
	require.Equal(t, 90, first.MinuteOfDay())
	require.Equal(t, at(t, "2026-11-02 01:30").Wall, first.Wall+minutesPerDay)
}
