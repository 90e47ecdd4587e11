package device

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWakeWordWhileSpeaking checks that a wake word aborts speech and never stays in Speaking.
func TestWakeWordWhileSpeaking(t *testing.T) {
	t.Parallel()

	rule, ok := Lookup(StateSpeaking, EventWakeWord)
	require.True(t, ok)
	require.True(t, rule.Has(EffectAbortSpeaking))
	require.Equal(t, AbortReasonWakeWordDetected, rule.Reason)

	for _, mode := range []ListeningMode{ModeAutoStop, ModeRealtime, ModeManualStop} {
		next := rule.Next(StateSpeaking, mode)
		require.NotEqual(t, StateSpeaking, next, mode.String())
		require.Contains(t, []State{StateIdle, StateListening}, next)
	}

	require.Equal(t, StateIdle, rule.Next(StateSpeaking, ModeManualStop))
	require.Equal(t, StateListening, rule.Next(StateSpeaking, ModeAutoStop))
}

// TestWakeWordInIdleOpensChannel checks the hands-free start of a conversation.
func TestWakeWordInIdleOpensChannel(t *testing.T) {
	t.Parallel()

	rule, ok := Lookup(StateIdle, EventWakeWord)
	require.True(t, ok)
	require.Equal(t, []Effect{EffectOpenChannel, EffectSendWakeWord}, rule.Before)
	require.Equal(t, StateListening, rule.Next(StateIdle, ModeAutoStop))
	require.Equal(t, ModeAutoStop, rule.ResolveMode(ModeManualStop, AecOff))
	require.Equal(t, ModeRealtime, rule.ResolveMode(ModeManualStop, AecOnServer))
}

// TestSpeechEvents covers tts start and stop handling.
func TestSpeechEvents(t *testing.T) {
	t.Parallel()

	for _, from := range []State{StateIdle, StateListening} {
		rule, ok := Lookup(from, EventSpeechStarted)
		require.True(t, ok)
		require.Equal(t, StateSpeaking, rule.Next(from, ModeAutoStop))
	}

	_, ok := Lookup(StateConnecting, EventSpeechStarted)
	require.False(t, ok)

	rule, ok := Lookup(StateSpeaking, EventSpeechStopped)
	require.True(t, ok)
	require.Equal(t, StateIdle, rule.Next(StateSpeaking, ModeManualStop))
	require.Equal(t, StateListening, rule.Next(StateSpeaking, ModeRealtime))
}

// TestTransportErrorFromAnyState ensures every state recovers to Idle with an alert.
func TestTransportErrorFromAnyState(t *testing.T) {
	t.Parallel()

	for s := range stateNames {
		state := State(s)

		rule, ok := Lookup(state, EventTransportError)
		require.True(t, ok, state.String())
		require.Equal(t, StateIdle, rule.Next(state, ModeAutoStop))
		require.Equal(t, []Effect{EffectAlert}, rule.After)

		rule, ok = Lookup(state, EventChannelClosed)
		require.True(t, ok, state.String())
		require.Equal(t, StateIdle, rule.Next(state, ModeAutoStop))
	}
}

// TestListeningToggleStays verifies that toggling while listening only closes the channel.
func TestListeningToggleStays(t *testing.T) {
	t.Parallel()

	rule, ok := Lookup(StateListening, EventToggleChat)
	require.True(t, ok)
	require.Equal(t, StateListening, rule.Next(StateListening, ModeAutoStop))
	require.True(t, rule.Has(EffectCloseChannel))
	require.False(t, rule.Has(EffectOpenChannel))
}

// TestStateNames checks wire names round-trip through JSON.
func TestStateNames(t *testing.T) {
	t.Parallel()

	for s := range stateNames {
		state := State(s)

		data, err := state.MarshalJSON()
		require.NoError(t, err)

		var decoded State
		require.NoError(t, decoded.UnmarshalJSON(data))
		require.Equal(t, state, decoded)
	}

	require.Equal(t, "audio_testing", StateAudioTesting.String())
	require.Equal(t, "unknown", State(99).String())

	_, err := ParseState("dozing")
	require.ErrorIs(t, err, ErrUnknownState)
}

// TestAecMode covers settings parsing and the derived conversation mode.
func TestAecMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseAecMode("device")
	require.NoError(t, err)
	require.Equal(t, AecOnDevice, mode)
	require.Equal(t, ModeRealtime, mode.ConversationMode())

	mode, err = ParseAecMode("")
	require.NoError(t, err)
	require.Equal(t, ModeAutoStop, mode.ConversationMode())

	_, err = ParseAecMode("both")
	require.ErrorIs(t, err, ErrUnknownAecMode)

	require.Equal(t, "manual", ModeManualStop.String())
	require.Empty(t, AbortReasonNone.String())
}
