package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/device-core/internal/audio"
	"github.com/oshokin/device-core/internal/board"
	"github.com/oshokin/device-core/internal/domain/alarm"
	"github.com/oshokin/device-core/internal/domain/device"
	domain "github.com/oshokin/device-core/internal/domain/peripheral"
	"github.com/oshokin/device-core/internal/transport"
)

const testRate = 24000

// fakeTransport records everything the device sends.
type fakeTransport struct {
	mu        sync.Mutex
	callbacks transport.Callbacks
	open      bool
	timedOut  bool
	refuse    bool
	opened    int
	audio     int
	sent      [][]byte
}

func (f *fakeTransport) SetCallbacks(callbacks transport.Callbacks) { f.callbacks = callbacks }

func (f *fakeTransport) OpenChannel(ctx context.Context) bool {
	f.mu.Lock()
	if f.refuse {
		f.mu.Unlock()

		return false
	}

	// A lingering channel is closed before the new one opens.
	replaced := f.open
	f.open = true
	f.timedOut = false
	f.opened++
	f.mu.Unlock()

	if replaced {
		f.callbacks.OnChannelClosed(ctx)
	}

	f.callbacks.OnChannelOpened(ctx)

	return true
}

func (f *fakeTransport) CloseChannel(ctx context.Context) {
	f.mu.Lock()
	wasOpen := f.open
	f.open = false
	f.mu.Unlock()

	if wasOpen {
		f.callbacks.OnChannelClosed(ctx)
	}
}

func (f *fakeTransport) IsChannelOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.open && !f.timedOut
}

func (f *fakeTransport) SendAudio(context.Context, audio.Packet) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.audio++

	return f.open
}

func (f *fakeTransport) SendText(_ context.Context, message []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, message)

	return f.open
}

func (f *fakeTransport) SessionID() string     { return "session-1" }
func (f *fakeTransport) ServerSampleRate() int { return testRate }

func (f *fakeTransport) IsTimeout() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.timedOut
}

// sent is a decoded session message.
type sent struct {
	Type    string          `json:"type"`
	State   string          `json:"state"`
	Mode    string          `json:"mode"`
	Reason  string          `json:"reason"`
	Text    string          `json:"text"`
	Source  string          `json:"source"`
	Payload json.RawMessage `json:"payload"`
}

func (f *fakeTransport) messages(t *testing.T) []sent {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]sent, 0, len(f.sent))

	for _, raw := range f.sent {
		var m sent
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}

	return out
}

func (f *fakeTransport) last(t *testing.T) sent {
	t.Helper()

	msgs := f.messages(t)
	require.NotEmpty(t, msgs)

	return msgs[len(msgs)-1]
}

// fakeClassroom serves an empty snapshot and accepts every command.
type fakeClassroom struct {
	mu       sync.Mutex
	switches []string
}

func (f *fakeClassroom) Switch(_ context.Context, device domain.Device, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.switches = append(f.switches, device.Command(on))

	return nil
}

func (f *fakeClassroom) Query(context.Context, string) error { return nil }

func (f *fakeClassroom) Snapshot(context.Context) *domain.Snapshot { return &domain.Snapshot{} }

// rig is an application with inspectable collaborators.
type rig struct {
	app       *Application
	transport *fakeTransport
	audio     *audio.Headless
	board     *board.Board
	screen    *board.ConsoleScreen
	classroom *fakeClassroom
}

func newRig(t *testing.T, settings Settings, mutate ...func(*Dependencies)) *rig {
	t.Helper()

	ctx := t.Context()
	b := board.NewConsole(ctx, "test-board", testRate, board.WithScreen())
	r := &rig{
		transport: &fakeTransport{},
		audio:     audio.NewHeadless(audio.Notifier{}),
		board:     b,
		screen:    b.Display.(*board.ConsoleScreen),
		classroom: &fakeClassroom{},
	}

	deps := Dependencies{
		Board:     b,
		Transport: r.transport,
		Audio:     r.audio,
		Classroom: r.classroom,
	}

	for _, fn := range mutate {
		fn(&deps)
	}

	if settings.FirmwareVersion == "" {
		settings.FirmwareVersion = "1.0.0"
	}

	if settings.TotalStackBudget == 0 {
		settings.TotalStackBudget = 4 * 6144
	}

	r.app = New(ctx, deps, settings, WithClock(func() time.Time {
		return time.Date(2025, time.March, 3, 6, 58, 0, 0, time.UTC)
	}))
	r.app.start(ctx)

	return r
}

// settle services the loop until nothing is pending.
func (r *rig) settle(t *testing.T) {
	t.Helper()

	for r.app.loop.RunOnce(t.Context()) != 0 {
	}
}

func (r *rig) incoming(t *testing.T, message string) {
	t.Helper()

	r.transport.callbacks.OnIncomingJSON(t.Context(), []byte(message))
	r.settle(t)
}

// TestStartLeavesDeviceIdle arms the wake word and shows the version.
func TestStartLeavesDeviceIdle(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	require.Equal(t, device.StateIdle, r.app.State())
	require.True(t, r.audio.IsWakeWordArmed())
	require.True(t, r.app.CanEnterSleepMode())

	status, emotion, _, _ := r.screen.Status()
	require.Equal(t, "Standby", status)
	require.Equal(t, "neutral", emotion)
}

// TestWakeWordOpensConversation forwards the wake word audio and announces listening.
func TestWakeWordOpensConversation(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	wake := audio.Packet{SampleRate: 16000, Payload: []byte{1, 2}}
	require.True(t, r.audio.DetectWakeWord(t.Context(), "hi there", wake, wake))
	r.settle(t)

	require.Equal(t, device.StateListening, r.app.State())
	require.Equal(t, device.ModeAutoStop, r.app.Mode())
	require.Equal(t, 2, r.transport.audio)

	msgs := r.transport.messages(t)
	require.Len(t, msgs, 2)
	require.Equal(t, sent{Type: "listen", State: "detect", Text: "hi there"}, msgs[0])
	require.Equal(t, sent{Type: "listen", State: "start", Mode: "auto"}, msgs[1])
	require.False(t, r.app.CanEnterSleepMode())
}

// TestOpenChannelFailureReturnsToIdle skips the rest of the rule and re-arms the wake word.
func TestOpenChannelFailureReturnsToIdle(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})
	r.transport.refuse = true

	r.app.ToggleChatState()
	r.settle(t)

	require.Equal(t, device.StateIdle, r.app.State())
	require.True(t, r.audio.IsWakeWordArmed())
	require.Empty(t, r.transport.messages(t))
}

// TestSpeechRoundTrip walks Listening, Speaking and back in each listening mode.
func TestSpeechRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start func(a *Application)
		aec   device.AecMode
		after device.State
		mode  string
	}{
		{name: "auto", start: (*Application).ToggleChatState, after: device.StateListening, mode: "auto"},
		{
			name:  "realtime",
			start: (*Application).ToggleChatState,
			aec:   device.AecOnServer,
			after: device.StateListening,
			mode:  "realtime",
		},
		{name: "manual", start: (*Application).StartListening, after: device.StateIdle, mode: "manual"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRig(t, Settings{AecMode: tt.aec})

			tt.start(r.app)
			r.settle(t)
			require.Equal(t, device.StateListening, r.app.State())
			require.Equal(t, tt.mode, r.transport.last(t).Mode)

			r.incoming(t, `{"type":"tts","state":"start"}`)
			require.Equal(t, device.StateSpeaking, r.app.State())

			r.transport.callbacks.OnIncomingAudio(t.Context(), audio.Packet{Payload: []byte{9}})
			r.settle(t)

			packet, ok := r.audio.PopDecodePacket()
			require.True(t, ok)
			require.Equal(t, []byte{9}, packet.Payload)

			r.incoming(t, `{"type":"tts","state":"stop"}`)
			require.Equal(t, tt.after, r.app.State())
		})
	}
}

// TestWakeWordWhileSpeakingAborts sends an abort and leaves Idle in manual mode.
func TestWakeWordWhileSpeakingAborts(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{WakeWordWhileSpeaking: true})

	r.app.StartListening()
	r.settle(t)
	r.incoming(t, `{"type":"tts","state":"start"}`)
	require.True(t, r.audio.IsWakeWordArmed())

	require.True(t, r.audio.DetectWakeWord(t.Context(), "hi there"))
	r.settle(t)

	require.Equal(t, device.StateIdle, r.app.State())
	require.Equal(t, sent{Type: "abort", Reason: "wake_word_detected"}, r.transport.last(t))

	// Late audio of the aborted answer is dropped.
	r.transport.callbacks.OnIncomingAudio(t.Context(), audio.Packet{Payload: []byte{1}})
	r.settle(t)

	_, ok := r.audio.PopDecodePacket()
	require.False(t, ok)
}

// TestToggleChatWhileListeningClosesChannel returns to Idle through the close callback.
func TestToggleChatWhileListeningClosesChannel(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.app.ToggleChatState()
	r.settle(t)
	require.Equal(t, device.StateListening, r.app.State())

	r.app.ToggleChatState()
	r.settle(t)

	require.Equal(t, device.StateIdle, r.app.State())
	require.False(t, r.transport.IsChannelOpen())

	_, _, role, content := r.screen.Status()
	require.Equal(t, "system", role)
	require.Empty(t, content)
}

// TestReopenAfterTimeoutKeepsNewSession ignores the close of the replaced channel.
func TestReopenAfterTimeoutKeepsNewSession(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	// Push-to-talk turn leaves the channel open in Idle.
	r.app.StartListening()
	r.settle(t)
	r.app.StopListening()
	r.settle(t)
	require.Equal(t, device.StateIdle, r.app.State())

	r.transport.mu.Lock()
	r.transport.timedOut = true
	r.transport.mu.Unlock()
	require.False(t, r.transport.IsChannelOpen())

	r.app.ToggleChatState()
	r.settle(t)

	require.Equal(t, 2, r.transport.opened)
	require.True(t, r.transport.IsChannelOpen())
	require.Equal(t, device.StateListening, r.app.State())
	require.Equal(t, sent{Type: "listen", State: "start", Mode: "auto"}, r.transport.last(t))
}

// TestStopListeningSendsStop ends a push-to-talk turn.
func TestStopListeningSendsStop(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.app.StartListening()
	r.settle(t)
	r.app.StopListening()
	r.settle(t)

	require.Equal(t, device.StateIdle, r.app.State())
	require.Equal(t, sent{Type: "listen", State: "stop"}, r.transport.last(t))
}

// TestNetworkErrorForcesIdleWithAlert shows the transport message.
func TestNetworkErrorForcesIdleWithAlert(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.app.ToggleChatState()
	r.settle(t)

	r.transport.callbacks.OnNetworkError(t.Context(), "server unreachable")
	r.settle(t)

	require.Equal(t, device.StateIdle, r.app.State())

	status, emotion, role, content := r.screen.Status()
	require.Equal(t, "Error", status)
	require.Equal(t, "sad", emotion)
	require.Equal(t, "system", role)
	require.Equal(t, "server unreachable", content)

	r.app.DismissAlert()
	r.settle(t)

	status, _, _, content = r.screen.Status()
	require.Equal(t, "Standby", status)
	require.Empty(t, content)
}

// TestIncomingDisplayMessages routes text, emotions, alerts and custom payloads.
func TestIncomingDisplayMessages(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.incoming(t, `{"type":"stt","text":"turn on the light"}`)
	_, _, role, content := r.screen.Status()
	require.Equal(t, "user", role)
	require.Equal(t, "turn on the light", content)

	r.incoming(t, `{"type":"tts","state":"sentence_start","text":"Done."}`)
	_, _, role, content = r.screen.Status()
	require.Equal(t, "assistant", role)
	require.Equal(t, "Done.", content)

	r.incoming(t, `{"type":"llm","emotion":"happy"}`)
	_, emotion, _, _ := r.screen.Status()
	require.Equal(t, "happy", emotion)

	r.incoming(t, `{"type":"alert","status":"Warning"}`)
	status, _, _, _ := r.screen.Status()
	require.Equal(t, "Standby", status)

	r.incoming(t, `{"type":"alert","status":"Warning","message":"Low battery","emotion":"sad"}`)
	status, emotion, _, content = r.screen.Status()
	require.Equal(t, "Warning", status)
	require.Equal(t, "sad", emotion)
	require.Equal(t, "Low battery", content)

	r.incoming(t, `{"type":"custom","payload":{"note":"hello"}}`)
	_, _, role, content = r.screen.Status()
	require.Equal(t, "system", role)
	require.JSONEq(t, `{"note":"hello"}`, content)

	r.incoming(t, `not json`)
	r.incoming(t, `{"type":"mystery"}`)
}

// TestToolMessageRepliesThroughSession echoes the id of a failed call.
func TestToolMessageRepliesThroughSession(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.incoming(t, `{"type":"mcp","payload":{"jsonrpc":"2.0","id":7,"method":"tools/call",`+
		`"params":{"name":"self.none","arguments":{}}}}`)

	msg := r.transport.last(t)
	require.Equal(t, "mcp", msg.Type)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":7,"error":{"message":"Unknown tool: self.none"}}`, string(msg.Payload))

	r.incoming(t, `{"type":"mcp","payload":{"jsonrpc":"2.0","method":"notifications/initialized"}}`)
	require.Len(t, r.transport.messages(t), 1)
}

// TestSystemRebootHonorsConfiguration runs the reboot only when allowed.
func TestSystemRebootHonorsConfiguration(t *testing.T) {
	t.Parallel()

	var calls int

	withReboot := func(d *Dependencies) {
		d.Reboot = func(context.Context) error {
			calls++

			return nil
		}
	}

	disabled := newRig(t, Settings{}, withReboot)
	disabled.incoming(t, `{"type":"system","command":"reboot"}`)
	require.Zero(t, calls)
	require.ErrorIs(t, disabled.app.Reboot(t.Context()), ErrRebootDisabled)

	enabled := newRig(t, Settings{AllowReboot: true}, withReboot)
	enabled.incoming(t, `{"type":"system","command":"reboot"}`)
	require.Equal(t, 1, calls)

	missing := newRig(t, Settings{AllowReboot: true})
	require.ErrorIs(t, missing.app.Reboot(t.Context()), ErrNoRebooter)
}

// TestAlarmSwitchActionsCallTools turns the classroom light on through its tool.
func TestAlarmSwitchActionsCallTools(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.app.DispatchAlarm(t.Context(), &alarm.Entry{Action: alarm.ActionOpenLight})
	r.app.DispatchAlarm(t.Context(), &alarm.Entry{Action: alarm.ActionCloseFan})
	r.app.pool.Wait()

	require.ElementsMatch(t, []string{
		domain.DeviceLamp.Command(true),
		domain.DevicePlug.Command(false),
	}, r.classroom.switches)
}

// TestAlarmReminderOpensChannel sends the reminder as an alarm command and stays Idle.
func TestAlarmReminderOpensChannel(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.app.DispatchAlarm(t.Context(), &alarm.Entry{
		Action:      alarm.ActionVoiceReminder,
		Description: "Time for class",
	})

	require.Equal(t, device.StateIdle, r.app.State())
	require.True(t, r.transport.IsChannelOpen())
	require.Equal(t, sent{Type: "command", Source: "alarm", Text: "Time for class"}, r.transport.last(t))
}

// TestAlarmPlayMusicEndsConversation closes the channel before playing locally.
func TestAlarmPlayMusicEndsConversation(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})
	music := r.board.Music.(*board.ConsoleMusic)

	r.app.ToggleChatState()
	r.settle(t)

	r.app.DispatchAlarm(t.Context(), &alarm.Entry{Action: alarm.ActionPlayMusic, ActionParam: "Morning Song"})
	r.app.pool.Wait()
	r.settle(t)

	require.Equal(t, device.StateIdle, r.app.State())
	require.False(t, r.transport.IsChannelOpen())
	require.Equal(t, "Morning Song", music.Song())

	r.app.DispatchAlarm(t.Context(), &alarm.Entry{Action: alarm.ActionStopMusic})
	require.False(t, music.IsPlaying())
}

// TestAlarmReportStatusSendsSummary waits for the status sweep and forwards its message.
func TestAlarmReportStatusSendsSummary(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		r := newRig(t, Settings{})

		r.app.DispatchAlarm(t.Context(), &alarm.Entry{Action: alarm.ActionReportStatus})
		r.app.pool.Wait()
		r.settle(t)

		msg := r.transport.last(t)
		require.Equal(t, "command", msg.Type)
		require.Equal(t, "alarm", msg.Source)
		require.Contains(t, msg.Text, "Classroom status:")
	})
}

// TestAddAudioDataPlaysOnlyInIdle preempts the stream during a conversation.
func TestAddAudioDataPlaysOnlyInIdle(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})
	codec := r.board.Codec.(*board.ConsoleCodec)

	outcome, err := r.app.AddAudioData(t.Context(), audio.Packet{SampleRate: testRate, Payload: []byte{1, 0, 2, 0}})
	require.NoError(t, err)
	require.Equal(t, audio.OutcomePassthrough, outcome)
	require.Equal(t, 2, codec.Played())

	_, err = r.app.AddAudioData(t.Context(), audio.Packet{SampleRate: testRate, Payload: []byte{1}})
	require.ErrorIs(t, err, audio.ErrMisalignedPCM)

	r.app.ToggleChatState()
	r.settle(t)

	_, err = r.app.AddAudioData(t.Context(), audio.Packet{SampleRate: testRate, Payload: []byte{1, 0}})
	require.ErrorIs(t, err, ErrPreempted)

	r.settle(t)
	require.Equal(t, device.StateIdle, r.app.State())
	require.False(t, r.transport.IsChannelOpen())
}

// TestSetAecModeClosesChannel switches on-device AEC and realtime conversations.
func TestSetAecModeClosesChannel(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.app.ToggleChatState()
	r.settle(t)

	r.app.SetAecMode(device.AecOnDevice)
	r.settle(t)

	require.True(t, r.audio.DeviceAec())
	require.False(t, r.transport.IsChannelOpen())
	require.Equal(t, device.StateIdle, r.app.State())

	r.app.ToggleChatState()
	r.settle(t)
	require.Equal(t, device.ModeRealtime, r.app.Mode())
}

// TestWakeWordInvokeReportsText starts a conversation from Idle with the given wake word.
func TestWakeWordInvokeReportsText(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	r.app.WakeWordInvoke("hello device")
	r.settle(t)

	require.Equal(t, device.StateListening, r.app.State())
	require.Equal(t, sent{Type: "listen", State: "detect", Text: "hello device"}, r.transport.last(t))
}

// TestClockRefreshesStatusBar updates the clock every fifth tick.
func TestClockRefreshesStatusBar(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{Location: time.UTC})

	for range statusBarEvery - 1 {
		r.app.onClock(t.Context())
	}

	require.Empty(t, r.screen.Clock())

	r.app.onClock(t.Context())
	require.Equal(t, "06:58", r.screen.Clock())
	require.True(t, r.app.clockSynced)
}

// TestAdminSurface serves status, tool calls and control actions.
func TestAdminSurface(t *testing.T) {
	t.Parallel()

	r := newRig(t, Settings{})

	ctx, cancel := context.WithCancel(t.Context())
	defer func() {
		cancel()
		<-r.app.loop.Done()
	}()

	go func() { _ = r.app.loop.Run(ctx) }()

	status, err := r.app.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, device.StateIdle, status.State)
	require.False(t, status.ChannelOpen)
	require.NotNil(t, status.Snapshot)

	reply, err := r.app.CallTool(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	require.Contains(t, string(reply), `"name":"test-board"`)

	reply, err = r.app.CallTool(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/call",`+
		`"params":{"name":"self.get_device_status"}}`))
	require.NoError(t, err)
	require.Contains(t, string(reply), `audio_speaker`)

	_, err = r.app.CallTool(ctx, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.ErrorIs(t, err, ErrNoReply)

	require.ErrorIs(t, r.app.Control(ctx, "dance", ""), ErrUnknownAction)
	require.ErrorIs(t, r.app.Control(ctx, ActionSendText, ""), ErrTextRequired)
	require.NoError(t, r.app.Control(ctx, ActionToggleChat, ""))

	require.Eventually(t, func() bool {
		status, err := r.app.Status(ctx)

		return err == nil && status.State == device.StateListening
	}, time.Second, 10*time.Millisecond)
}
