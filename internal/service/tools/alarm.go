package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/device-core/internal/domain/alarm"
	"github.com/oshokin/device-core/internal/mcp"
)

// maxOffsetMinutes bounds relative alarms to one week.
const maxOffsetMinutes = 7 * 24 * 60

// ErrNoAlarmTime is returned when self.alarm.add has neither time nor offset.
var ErrNoAlarmTime = errors.New("either time or offset_minutes must be given")

// alarmView is one entry of self.alarm.list.
type alarmView struct {
	Index       int    `json:"index"`
	Time        string `json:"time"`
	Repeat      string `json:"repeat"`
	Action      string `json:"action"`
	ActionParam string `json:"action_param,omitempty"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

func (c *Catalog) alarmTools() []*mcp.Tool {
	return []*mcp.Tool{
		mcp.MustTool("self.alarm.add",
			"Schedules an alarm. Give either `time` (HH:MM, 24 hour clock) or `offset_minutes` "+
				"(fires once that many minutes from now).\n"+
				"`repeat`: once, daily, weekdays, weekends or hourly (hourly fires at the given minute of every hour).\n"+
				"`action`: "+strings.Join(alarm.ActionNames(), ", ")+".\n"+
				"`action_param`: the song for play_music, the text for voice_reminder and custom_message.",
			[]mcp.Property{
				mcp.MustProperty("time", mcp.KindString, mcp.WithDefault(mcp.Text(""))),
				mcp.MustProperty("offset_minutes", mcp.KindInt,
					mcp.WithDefault(mcp.Int(0)), mcp.WithRange(0, maxOffsetMinutes)),
				mcp.MustProperty("repeat", mcp.KindString, mcp.WithDefault(mcp.Text("once"))),
				mcp.MustProperty("action", mcp.KindString),
				mcp.MustProperty("action_param", mcp.KindString, mcp.WithDefault(mcp.Text(""))),
				mcp.MustProperty("description", mcp.KindString, mcp.WithDefault(mcp.Text(""))),
			},
			c.addAlarm,
		),
		mcp.MustTool("self.alarm.list",
			"Lists the scheduled alarms with their index.",
			nil,
			c.listAlarms,
		),
		mcp.MustTool("self.alarm.remove",
			"Removes the alarm at `index` as shown by self.alarm.list.",
			[]mcp.Property{mcp.MustProperty("index", mcp.KindInt)},
			c.removeAlarm,
		),
		mcp.MustTool("self.alarm.clear",
			"Removes every alarm.",
			nil,
			func(ctx context.Context, _ mcp.Arguments) (mcp.Value, error) {
				n := c.alarms.Clear(ctx)

				return result(true, fmt.Sprintf("Removed %d alarms", n)), nil
			},
		),
		mcp.MustTool("self.alarm.set_enabled",
			"Enables or disables the alarm at `index`.",
			[]mcp.Property{
				mcp.MustProperty("index", mcp.KindInt),
				mcp.MustProperty("enabled", mcp.KindBool),
			},
			func(ctx context.Context, args mcp.Arguments) (mcp.Value, error) {
				index, enabled := args.Int("index"), args.Bool("enabled")
				if err := c.alarms.SetEnabled(ctx, index, enabled); err != nil {
					return mcp.Value{}, err
				}

				state := "disabled"
				if enabled {
					state = "enabled"
				}

				return result(true, fmt.Sprintf("Alarm %d %s", index, state)), nil
			},
		),
	}
}

func (c *Catalog) addAlarm(ctx context.Context, args mcp.Arguments) (mcp.Value, error) {
	repeat, err := alarm.ParseRepeat(args.String("repeat"))
	if err != nil {
		return mcp.Value{}, err
	}

	action, err := alarm.ParseAction(args.String("action"))
	if err != nil {
		return mcp.Value{}, err
	}

	entry := alarm.Entry{
		Repeat:      repeat,
		Action:      action,
		ActionParam: strings.TrimSpace(args.String("action_param")),
		Description: strings.TrimSpace(args.String("description")),
	}

	var index int

	switch at, offset := strings.TrimSpace(args.String("time")), args.Int("offset_minutes"); {
	case offset > 0:
		index, err = c.alarms.AddAfter(ctx, time.Duration(offset)*time.Minute, entry)
	case at != "":
		entry.Time, err = alarm.ParseTimeOfDay(at)
		if err != nil {
			return mcp.Value{}, err
		}

		index, err = c.alarms.Add(ctx, entry)
	default:
		return mcp.Value{}, ErrNoAlarmTime
	}

	if err != nil {
		return mcp.Value{}, err
	}

	stored := &entry
	if entries := c.alarms.List(); index < len(entries) {
		stored = entries[index]
	}

	return result(true,
		fmt.Sprintf("Alarm set for %s (%s): %s", stored.Time, stored.Repeat, stored.Action.Summary()),
		"index", index,
	), nil
}

func (c *Catalog) listAlarms(_ context.Context, _ mcp.Arguments) (mcp.Value, error) {
	entries := c.alarms.List()

	views := make([]alarmView, 0, len(entries))
	for i, e := range entries {
		views = append(views, alarmView{
			Index:       i,
			Time:        e.Time.String(),
			Repeat:      e.Repeat.String(),
			Action:      e.Action.String(),
			ActionParam: e.ActionParam,
			Description: e.Description,
			Enabled:     e.Enabled,
		})
	}

	return result(true, fmt.Sprintf("%d alarms", len(views)), "alarms", views), nil
}

func (c *Catalog) removeAlarm(ctx context.Context, args mcp.Arguments) (mcp.Value, error) {
	removed, err := c.alarms.Remove(ctx, args.Int("index"))
	if err != nil {
		return mcp.Value{}, err
	}

	return result(true, fmt.Sprintf("Removed the %s alarm", removed.Time)), nil
}
