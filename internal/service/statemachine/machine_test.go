package statemachine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/device-core/internal/domain/device"
)

// journal records every collaborator call in order.
type journal struct {
	events     []string
	processing bool
}

func (j *journal) add(format string, args ...any) {
	j.events = append(j.events, fmt.Sprintf(format, args...))
}

func (j *journal) EnableVoiceProcessing(enable bool) {
	j.processing = enable
	j.add("voice_processing=%t", enable)
}

func (j *journal) EnableWakeWordDetection(enable bool) { j.add("wake_word=%t", enable) }
func (j *journal) IsVoiceProcessingRunning() bool      { return j.processing }
func (j *journal) ResetDecoder()                       { j.add("reset_decoder") }

func (j *journal) SendStartListening(_ context.Context, mode device.ListeningMode) bool {
	j.add("listen_start=%s", mode)

	return true
}

func (j *journal) SetStatus(status string)             { j.add("status=%s", status) }
func (j *journal) SetEmotion(emotion string)           { j.add("emotion=%s", emotion) }
func (j *journal) SetChatMessage(role, content string) { j.add("chat[%s]=%s", role, content) }
func (j *journal) OnStateChanged(state device.State)   { j.add("indicator=%s", state) }
func (j *journal) StopStreaming()                      { j.add("music_stop") }

func newMachine(wakeWhileSpeaking bool) (*Machine, *journal) {
	j := &journal{}
	m := New(Dependencies{
		Audio:                 j,
		Announcer:             j,
		Display:               j,
		Indicator:             j,
		Music:                 j,
		WakeWordWhileSpeaking: wakeWhileSpeaking,
	})
	m.Subscribe(func(_ context.Context, prev, next device.State) {
		j.add("observer=%s->%s", prev, next)
	})

	return m, j
}

// TestSameStateIsNoop verifies that re-entering the current state has no effect at all.
func TestSameStateIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, j := newMachine(false)

	require.True(t, m.Set(ctx, device.StateIdle))
	m.Tick()
	m.Tick()

	j.events = nil

	require.False(t, m.Set(ctx, device.StateIdle))
	require.Empty(t, j.events)
	require.Equal(t, int64(2), m.Age())
}

// TestIdleEntryAndMusicPreemption checks Idle effects and leaving Idle stops music.
func TestIdleEntryAndMusicPreemption(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, j := newMachine(false)

	m.Set(ctx, device.StateIdle)
	require.Equal(t, []string{
		"observer=unknown->idle",
		"indicator=idle",
		"status=Standby",
		"emotion=neutral",
		"voice_processing=false",
		"wake_word=true",
	}, j.events)

	m.Tick()

	j.events = nil

	m.Set(ctx, device.StateConnecting)
	require.Equal(t, []string{
		"observer=idle->connecting",
		"indicator=connecting",
		"music_stop",
		"status=Connecting...",
		"emotion=neutral",
		"chat[system]=",
	}, j.events)
	require.Zero(t, m.Age())
}

// TestListeningAnnouncesOnce starts capture only when it is not already running.
func TestListeningAnnouncesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, j := newMachine(false)

	m.SetMode(device.ModeManualStop)
	m.Set(ctx, device.StateListening)
	require.Contains(t, j.events, "listen_start=manual")
	require.Contains(t, j.events, "voice_processing=true")
	require.Contains(t, j.events, "wake_word=false")

	// Speaking in realtime mode keeps the microphone open.
	m.SetMode(device.ModeRealtime)
	m.Set(ctx, device.StateSpeaking)

	j.events = nil

	m.Set(ctx, device.StateListening)
	require.NotContains(t, j.events, "listen_start=realtime")
	require.Equal(t, device.StateListening, m.State())
}

// TestSpeakingEntry covers the non-realtime speaking effects and the wake word flag.
func TestSpeakingEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for _, wake := range []bool{false, true} {
		m, j := newMachine(wake)
		m.SetMode(device.ModeAutoStop)
		m.Set(ctx, device.StateListening)

		j.events = nil

		m.Set(ctx, device.StateSpeaking)
		require.Equal(t, []string{
			"observer=listening->speaking",
			"indicator=speaking",
			"status=Speaking...",
			"voice_processing=false",
			fmt.Sprintf("wake_word=%t", wake),
			"reset_decoder",
		}, j.events)
	}
}

// TestOtherStatesOnlyNotify ensures states without entry effects still notify.
func TestOtherStatesOnlyNotify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, j := newMachine(false)

	m.Set(ctx, device.StateFatalError)
	require.Equal(t, []string{"observer=unknown->fatal_error", "indicator=fatal_error"}, j.events)

	// Recovery back to Idle is allowed.
	require.True(t, m.Set(ctx, device.StateIdle))
	require.Equal(t, device.StateIdle, m.State())
}
