package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/device-core/internal/domain/alarm"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/loop"
)

// everyMinute is the cron expression of the evaluation tick.
const everyMinute = "* * * * *"

// syncedYear is the first year treated as a synchronized clock.
const syncedYear = 2020

var (
	// ErrIndexOutOfRange is returned for an alarm index that does not exist.
	ErrIndexOutOfRange = errors.New("alarm index out of range")
	// ErrRelativeRepeat is returned when a relative alarm asks for a repeat policy.
	ErrRelativeRepeat = errors.New("relative alarms can only fire once")
	// ErrInvalidOffset is returned for a non-positive relative offset.
	ErrInvalidOffset = errors.New("relative offset must be positive")
)

// Submitter posts tasks to the control loop.
type Submitter interface {
	Submit(task loop.Task)
}

// Dispatcher runs the action of a fired alarm. It is called on the control loop.
type Dispatcher interface {
	DispatchAlarm(ctx context.Context, entry *alarm.Entry)
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the time zone alarms are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler owns the alarm list.
type Scheduler struct {
	// mu guards entries.
	mu sync.RWMutex
	// entries is the alarm list in creation order.
	entries []*alarm.Entry
	// submitter posts evaluations and dispatches to the loop.
	submitter Submitter
	// dispatcher runs fired actions.
	dispatcher Dispatcher
	// location is the evaluation time zone.
	location *time.Location
	// now returns the current time.
	now func() time.Time
	// lastChecked is the stamp of the last evaluated minute; only the loop touches it.
	lastChecked int64
	// cron drives the minute tick.
	cron *cron.Cron
}

// New builds a scheduler.
func New(submitter Submitter, dispatcher Dispatcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		submitter:  submitter,
		dispatcher: dispatcher,
		location:   time.Local,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now returns the current time in the evaluation time zone.
func (s *Scheduler) Now() time.Time {
	return s.now().In(s.location)
}

// Add validates and stores an enabled entry. It returns the entry index.
func (s *Scheduler) Add(ctx context.Context, entry alarm.Entry) (int, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}

	entry.Enabled = true
	entry.LastTriggered = alarm.NeverTriggered

	s.mu.Lock()
	s.entries = append(s.entries, &entry)
	index := len(s.entries) - 1
	s.mu.Unlock()

	logger.InfoKV(ctx, "alarm added",
		"index", index,
		"time", entry.Time.String(),
		"repeat", entry.Repeat.String(),
		"action", entry.Action.String(),
	)

	return index, nil
}

// AddAfter stores a one-shot entry firing offset from now, rounded to the minute.
func (s *Scheduler) AddAfter(ctx context.Context, offset time.Duration, entry alarm.Entry) (int, error) {
	if offset <= 0 {
		return 0, ErrInvalidOffset
	}

	if entry.Repeat != alarm.RepeatOnce {
		return 0, ErrRelativeRepeat
	}

	at := s.Now().Add(offset)
	entry.Time = alarm.TimeOfDay{Hour: at.Hour(), Minute: at.Minute()}
	entry.DueStamp = alarm.MomentOf(at).Stamp

	return s.Add(ctx, entry)
}

// List returns copies of every entry.
func (s *Scheduler) List() []*alarm.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*alarm.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}

	return out
}

// Remove deletes the entry at index.
func (s *Scheduler) Remove(ctx context.Context, index int) (*alarm.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	removed := s.entries[index]
	s.entries = append(s.entries[:index], s.entries[index+1:]...)

	logger.InfoKV(ctx, "alarm removed", "index", index, "time", removed.Time.String())

	return removed.Clone(), nil
}

// Clear deletes every entry and returns how many were removed.
func (s *Scheduler) Clear(ctx context.Context) int {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = nil
	s.mu.Unlock()

	logger.InfoKV(ctx, "alarms cleared", "count", n)

	return n
}

// SetEnabled toggles the entry at index.
func (s *Scheduler) SetEnabled(ctx context.Context, index int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	s.entries[index].Enabled = enabled

	logger.InfoKV(ctx, "alarm toggled", "index", index, "enabled", enabled)

	return nil
}

// Evaluate fires the entries due at now. It must run on the control loop.
// A minute is evaluated at most once; it returns how many entries fired.
func (s *Scheduler) Evaluate(ctx context.Context, now time.Time) int {
	now = now.In(s.location)
	if now.Year() < syncedYear {
		logger.DebugKV(ctx, "clock not synchronized, alarms paused", "now", now)

		return 0
	}

	m := alarm.MomentOf(now)

	switch {
	case m.Stamp == s.lastChecked:
		return 0
	case s.lastChecked != 0 && m.Stamp > s.lastChecked+1:
		logger.WarnKV(ctx, "clock skipped minutes, due alarms in the gap are dropped",
			"skipped", m.Stamp-s.lastChecked-1,
			"now", m.Clock(),
		)
	case m.Stamp < s.lastChecked:
		logger.WarnKV(ctx, "clock moved backwards", "now", m.Clock())
	}

	s.lastChecked = m.Stamp

	s.mu.Lock()

	fired := make([]*alarm.Entry, 0, 1)

	for _, e := range s.entries {
		if !e.ShouldTrigger(m) {
			continue
		}

		e.MarkTriggered(m)
		fired = append(fired, e.Clone())
	}

	s.mu.Unlock()

	for _, e := range fired {
		logger.InfoKV(ctx, "alarm fired",
			"time", e.Time.String(),
			"repeat", e.Repeat.String(),
			"action", e.Action.String(),
		)

		s.submitter.Submit(func(ctx context.Context) {
			s.dispatcher.DispatchAlarm(ctx, e)
		})
	}

	return len(fired)
}

// Tick submits an evaluation of the current minute to the loop.
// It is what the cron job runs and is safe from any goroutine.
func (s *Scheduler) Tick() {
	s.submitter.Submit(func(ctx context.Context) {
		s.Evaluate(ctx, s.now())
	})
}

// Start schedules the minute tick.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cron.PrintfLogger(logger.NewPrinter(ctx, zapcore.WarnLevel, "[cron] "))),
	)

	if _, err := c.AddFunc(everyMinute, s.Tick); err != nil {
		return fmt.Errorf("schedule alarm tick: %w", err)
	}

	c.Start()
	s.cron = c

	logger.InfoKV(ctx, "alarm scheduler started", "location", s.location.String())

	return nil
}

// Stop halts the minute tick and returns a context done when it has stopped.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		return ctx
	}

	return s.cron.Stop()
}
