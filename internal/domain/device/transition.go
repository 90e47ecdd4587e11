package device

// Event is an input to the transition table.
type Event int

// Events consumed by the transition table.
const (
	// EventWakeWord is raised by the audio pipeline when the wake word is heard.
	EventWakeWord Event = iota + 1
	// EventSpeechStarted is the server's tts/start message.
	EventSpeechStarted
	// EventSpeechStopped is the server's tts/stop message.
	EventSpeechStopped
	// EventTransportError is a network failure reported by the transport.
	EventTransportError
	// EventChannelClosed is reported by the transport when the session channel closes.
	EventChannelClosed
	// EventToggleChat is the chat button press.
	EventToggleChat
	// EventStartListening is a push-to-talk press.
	EventStartListening
	// EventStopListening is a push-to-talk release.
	EventStopListening
)

//nolint:gochecknoglobals // Immutable lookup table.
var eventNames = map[Event]string{
	EventWakeWord:       "wake_word",
	EventSpeechStarted:  "speech_started",
	EventSpeechStopped:  "speech_stopped",
	EventTransportError: "transport_error",
	EventChannelClosed:  "channel_closed",
	EventToggleChat:     "toggle_chat",
	EventStartListening: "start_listening",
	EventStopListening:  "stop_listening",
}

// String returns a log friendly event name.
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}

	return "unknown"
}

// Effect is a side effect the control loop runs around a transition.
type Effect int

// Effects referenced by the transition table.
const (
	// EffectOpenChannel opens the session channel through StateConnecting.
	// When opening fails the rule stops and the device returns to Idle.
	EffectOpenChannel Effect = iota + 1
	// EffectSendWakeWord forwards the wake word audio and the detect message.
	EffectSendWakeWord
	// EffectAbortSpeaking sends an abort notice with the rule's reason.
	EffectAbortSpeaking
	// EffectAlert raises the user-visible error alert.
	EffectAlert
	// EffectClearChat clears the transient chat text.
	EffectClearChat
	// EffectCloseChannel closes the session channel.
	EffectCloseChannel
	// EffectSendStopListening sends listen/stop.
	EffectSendStopListening
)

// Target tells how a rule picks the next state.
type Target int

// Rule targets.
const (
	// TargetStay keeps the current state.
	TargetStay Target = iota
	// TargetState moves to Rule.To.
	TargetState
	// TargetAfterSpeech moves to Idle in manual mode and to Listening otherwise.
	TargetAfterSpeech
)

// ModeChange tells how a rule updates the listening mode before the transition.
type ModeChange int

// Listening mode updates.
const (
	// ModeKeep leaves the listening mode untouched.
	ModeKeep ModeChange = iota
	// ModeConversation selects the hands-free mode derived from the AEC setting.
	ModeConversation
	// ModeManual selects push-to-talk.
	ModeManual
)

// Rule is one row of the transition table.
type Rule struct {
	// Target selects the next state.
	Target Target
	// To is the next state when Target is TargetState.
	To State
	// Mode is applied before the state changes.
	Mode ModeChange
	// Reason accompanies EffectAbortSpeaking.
	Reason AbortReason
	// Before runs in order before the state changes.
	Before []Effect
	// After runs in order after the state changes.
	After []Effect
}

// Next resolves the state the rule moves to.
func (r Rule) Next(current State, mode ListeningMode) State {
	switch r.Target {
	case TargetState:
		return r.To
	case TargetAfterSpeech:
		if mode == ModeManualStop {
			return StateIdle
		}

		return StateListening
	default:
		return current
	}
}

// ResolveMode resolves the listening mode the rule leaves behind.
func (r Rule) ResolveMode(current ListeningMode, aec AecMode) ListeningMode {
	switch r.Mode {
	case ModeConversation:
		return aec.ConversationMode()
	case ModeManual:
		return ModeManualStop
	default:
		return current
	}
}

// Has reports whether the rule runs effect before or after the transition.
func (r Rule) Has(effect Effect) bool {
	for _, e := range r.Before {
		if e == effect {
			return true
		}
	}

	for _, e := range r.After {
		if e == effect {
			return true
		}
	}

	return false
}

// transitionKey indexes the transition table.
type transitionKey struct {
	from  State
	event Event
}

//nolint:gochecknoglobals // Built once, read-only afterwards.
var transitions = buildTransitions()

// Lookup returns the rule for event in state from.
// The second result is false when the event is ignored in that state.
func Lookup(from State, event Event) (Rule, bool) {
	rule, ok := transitions[transitionKey{from: from, event: event}]

	return rule, ok
}

func to(state State) Rule {
	return Rule{Target: TargetState, To: state}
}

func buildTransitions() map[transitionKey]Rule {
	table := map[transitionKey]Rule{
		{StateIdle, EventWakeWord}: {
			Target: TargetState,
			To:     StateListening,
			Mode:   ModeConversation,
			Before: []Effect{EffectOpenChannel, EffectSendWakeWord},
		},
		{StateSpeaking, EventWakeWord}: {
			Target: TargetAfterSpeech,
			Reason: AbortReasonWakeWordDetected,
			Before: []Effect{EffectAbortSpeaking},
		},
		{StateActivating, EventWakeWord}: to(StateIdle),

		{StateIdle, EventSpeechStarted}:      to(StateSpeaking),
		{StateListening, EventSpeechStarted}: to(StateSpeaking),
		{StateSpeaking, EventSpeechStopped}:  {Target: TargetAfterSpeech},

		{StateActivating, EventToggleChat}:   to(StateIdle),
		{StateConfiguring, EventToggleChat}:  to(StateAudioTesting),
		{StateAudioTesting, EventToggleChat}: to(StateConfiguring),
		{StateIdle, EventToggleChat}: {
			Target: TargetState,
			To:     StateListening,
			Mode:   ModeConversation,
			Before: []Effect{EffectOpenChannel},
		},
		{StateSpeaking, EventToggleChat}: {
			Target: TargetAfterSpeech,
			Before: []Effect{EffectAbortSpeaking},
		},
		{StateListening, EventToggleChat}: {
			Target: TargetStay,
			Before: []Effect{EffectCloseChannel},
		},

		{StateActivating, EventStartListening}:  to(StateIdle),
		{StateConfiguring, EventStartListening}: to(StateAudioTesting),
		{StateIdle, EventStartListening}: {
			Target: TargetState,
			To:     StateListening,
			Mode:   ModeManual,
			Before: []Effect{EffectOpenChannel},
		},
		{StateSpeaking, EventStartListening}: {
			Target: TargetState,
			To:     StateListening,
			Mode:   ModeManual,
			Before: []Effect{EffectAbortSpeaking},
		},

		{StateAudioTesting, EventStopListening}: to(StateConfiguring),
		{StateListening, EventStopListening}: {
			Target: TargetState,
			To:     StateIdle,
			Before: []Effect{EffectSendStopListening},
		},
	}

	for s := range stateNames {
		state := State(s)

		table[transitionKey{state, EventTransportError}] = Rule{
			Target: TargetState,
			To:     StateIdle,
			After:  []Effect{EffectAlert},
		}
		table[transitionKey{state, EventChannelClosed}] = Rule{
			Target: TargetState,
			To:     StateIdle,
			Before: []Effect{EffectClearChat},
		}
	}

	return table
}
