package device

import (
	"encoding/json"
	"fmt"
)

// State is the device state. Exactly one value is active at any instant.
type State int

// Device states.
const (
	StateUnknown State = iota
	StateStarting
	StateConfiguring
	StateIdle
	StateConnecting
	StateListening
	StateSpeaking
	StateUpgrading
	StateActivating
	StateAudioTesting
	StateFatalError
)

//nolint:gochecknoglobals // Immutable lookup table.
var stateNames = [...]string{
	StateUnknown:      "unknown",
	StateStarting:     "starting",
	StateConfiguring:  "configuring",
	StateIdle:         "idle",
	StateConnecting:   "connecting",
	StateListening:    "listening",
	StateSpeaking:     "speaking",
	StateUpgrading:    "upgrading",
	StateActivating:   "activating",
	StateAudioTesting: "audio_testing",
	StateFatalError:   "fatal_error",
}

// String returns the wire name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return stateNames[StateUnknown]
	}

	return stateNames[s]
}

// ParseState converts a wire name into a State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}

	return StateUnknown, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler. Unknown names decode to StateUnknown.
func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}

	parsed, err := ParseState(name)
	if err != nil {
		parsed = StateUnknown
	}

	*s = parsed

	return nil
}

// IsConversation reports whether the device is in a voice session.
func (s State) IsConversation() bool {
	return s == StateConnecting || s == StateListening || s == StateSpeaking
}

// ListeningMode qualifies the behavior of StateListening.
type ListeningMode int

// Listening modes.
const (
	// ModeAutoStop ends the turn when the server detects end of speech.
	ModeAutoStop ListeningMode = iota
	// ModeManualStop ends the turn when the user releases the button.
	ModeManualStop
	// ModeRealtime keeps the microphone open while the device speaks.
	ModeRealtime
)

// String returns the wire name sent in listen/start messages.
func (m ListeningMode) String() string {
	switch m {
	case ModeRealtime:
		return "realtime"
	case ModeManualStop:
		return "manual"
	default:
		return "auto"
	}
}

// MarshalJSON implements json.Marshaler.
func (m ListeningMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// AbortReason is sent with abort notices.
type AbortReason int

// Abort reasons.
const (
	AbortReasonNone AbortReason = iota
	AbortReasonWakeWordDetected
)

// String returns the wire name or an empty string for AbortReasonNone.
func (r AbortReason) String() string {
	if r == AbortReasonWakeWordDetected {
		return "wake_word_detected"
	}

	return ""
}

// AecMode selects where echo cancellation runs.
type AecMode int

// AEC modes.
const (
	AecOff AecMode = iota
	AecOnDevice
	AecOnServer
)

// ParseAecMode converts a settings value into an AecMode.
func ParseAecMode(name string) (AecMode, error) {
	switch name {
	case "", "off":
		return AecOff, nil
	case "device":
		return AecOnDevice, nil
	case "server":
		return AecOnServer, nil
	default:
		return AecOff, fmt.Errorf("%w: %q", ErrUnknownAecMode, name)
	}
}

// String returns the settings name of the mode.
func (m AecMode) String() string {
	switch m {
	case AecOnDevice:
		return "device"
	case AecOnServer:
		return "server"
	default:
		return "off"
	}
}

// ConversationMode is the listening mode used for hands-free turns.
func (m AecMode) ConversationMode() ListeningMode {
	if m == AecOff {
		return ModeAutoStop
	}

	return ModeRealtime
}
