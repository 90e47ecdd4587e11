package alarm

import (
	"fmt"
	"strings"
)

// Action is the symbolic action run when an entry fires.
type Action int

// Actions.
const (
	ActionNone Action = iota
	ActionOpenLight
	ActionCloseLight
	ActionOpenFan
	ActionCloseFan
	ActionOpenLED
	ActionCloseLED
	ActionOpenBuzzer
	ActionCloseBuzzer
	ActionPlayMusic
	ActionStopMusic
	ActionReportStatus
	ActionVoiceReminder
	ActionCustomMessage
)

// actionInfo describes one action.
type actionInfo struct {
	// name is the settings and tool argument name.
	name string
	// summary is a short human description.
	summary string
}

//nolint:gochecknoglobals // Immutable lookup table.
var actions = [...]actionInfo{
	ActionNone:          {"none", "do nothing"},
	ActionOpenLight:     {"open_light", "turn the classroom light on"},
	ActionCloseLight:    {"close_light", "turn the classroom light off"},
	ActionOpenFan:       {"open_fan", "turn the fan plug on"},
	ActionCloseFan:      {"close_fan", "turn the fan plug off"},
	ActionOpenLED:       {"open_led", "turn the LED indicator on"},
	ActionCloseLED:      {"close_led", "turn the LED indicator off"},
	ActionOpenBuzzer:    {"open_buzzer", "turn the buzzer on"},
	ActionCloseBuzzer:   {"close_buzzer", "turn the buzzer off"},
	ActionPlayMusic:     {"play_music", "play a song"},
	ActionStopMusic:     {"stop_music", "stop the music"},
	ActionReportStatus:  {"report_status", "report the status of every device"},
	ActionVoiceReminder: {"voice_reminder", "speak a reminder"},
	ActionCustomMessage: {"custom_message", "send a custom message to the assistant"},
}

// String returns the settings name of the action.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actions) {
		return "unknown"
	}

	return actions[a].name
}

// Summary returns a short human description of the action.
func (a Action) Summary() string {
	if a < 0 || int(a) >= len(actions) {
		return ""
	}

	return actions[a].summary
}

// NeedsParam reports whether the action cannot run without a parameter.
func (a Action) NeedsParam() bool {
	return a == ActionPlayMusic
}

// ParseAction converts a name into an Action.
func ParseAction(name string) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, info := range actions {
		if info.name == name {
			return Action(i), nil
		}
	}

	return ActionNone, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

// ActionNames lists every action name except none.
func ActionNames() []string {
	names := make([]string, 0, len(actions)-1)
	for _, info := range actions[1:] {
		names = append(names, info.name)
	}

	return names
}
