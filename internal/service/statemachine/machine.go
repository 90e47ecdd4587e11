package statemachine

import (
	"context"
	"sync/atomic"

	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
)

// Audio is the part of the audio pipeline driven by transitions.
type Audio interface {
	EnableVoiceProcessing(enable bool)
	EnableWakeWordDetection(enable bool)
	IsVoiceProcessingRunning() bool
	ResetDecoder()
}

// Announcer tells the server that the device starts listening.
type Announcer interface {
	SendStartListening(ctx context.Context, mode device.ListeningMode) bool
}

// Display shows status, emotion and chat text.
type Display interface {
	SetStatus(status string)
	SetEmotion(emotion string)
	SetChatMessage(role, content string)
}

// Indicator reflects the state on a LED or similar.
type Indicator interface {
	OnStateChanged(state device.State)
}

// MusicStopper stops an externally injected audio stream.
type MusicStopper interface {
	StopStreaming()
}

// Observer is notified after every effective transition.
type Observer func(ctx context.Context, prev, next device.State)

// Status texts shown on the display.
const (
	StatusStandby    = "Standby"
	StatusConnecting = "Connecting..."
	StatusListening  = "Listening..."
	StatusSpeaking   = "Speaking..."
)

// Dependencies are the collaborators of a Machine.
type Dependencies struct {
	// Audio is the capture and playback pipeline.
	Audio Audio
	// Announcer sends listen/start.
	Announcer Announcer
	// Display shows status text.
	Display Display
	// Indicator reflects the state.
	Indicator Indicator
	// Music is stopped when leaving Idle.
	Music MusicStopper
	// WakeWordWhileSpeaking keeps wake word detection armed while speaking.
	WakeWordWhileSpeaking bool
}

// Machine is the device state machine.
type Machine struct {
	// state is the current device.State.
	state atomic.Int32
	// mode is the current device.ListeningMode.
	mode atomic.Int32
	// ticks counts clock ticks spent in the current state.
	ticks atomic.Int64
	// deps are the collaborators driven by transitions.
	deps Dependencies
	// observers are notified on every transition; appended only before the loop starts.
	observers []Observer
}

// New returns a machine in StateUnknown.
func New(deps Dependencies) *Machine {
	return &Machine{deps: deps}
}

// State returns the current state.
func (m *Machine) State() device.State {
	return device.State(m.state.Load())
}

// Mode returns the current listening mode.
func (m *Machine) Mode() device.ListeningMode {
	return device.ListeningMode(m.mode.Load())
}

// SetMode changes the listening mode without a transition.
func (m *Machine) SetMode(mode device.ListeningMode) {
	m.mode.Store(int32(mode))
}

// Subscribe adds an observer. Call it before the loop starts.
func (m *Machine) Subscribe(observer Observer) {
	m.observers = append(m.observers, observer)
}

// Tick advances the age counter and returns the new age.
func (m *Machine) Tick() int64 {
	return m.ticks.Add(1)
}

// Age returns how many ticks the machine has spent in the current state.
func (m *Machine) Age() int64 {
	return m.ticks.Load()
}

// Set moves to next and runs its side effects. A transition to the
// current state does nothing. It reports whether the state changed.
func (m *Machine) Set(ctx context.Context, next device.State) bool {
	prev := m.State()
	if prev == next {
		return false
	}

	m.ticks.Store(0)
	m.state.Store(int32(next))

	logger.InfoKV(ctx, "state changed", "from", prev.String(), "to", next.String())

	for _, observer := range m.observers {
		observer(ctx, prev, next)
	}

	m.deps.Indicator.OnStateChanged(next)

	if prev == device.StateIdle && m.deps.Music != nil {
		m.deps.Music.StopStreaming()
	}

	m.enter(ctx, next)

	return true
}

func (m *Machine) enter(ctx context.Context, state device.State) {
	display := m.deps.Display
	audio := m.deps.Audio

	switch state {
	case device.StateIdle:
		display.SetStatus(StatusStandby)
		display.SetEmotion("neutral")
		audio.EnableVoiceProcessing(false)
		audio.EnableWakeWordDetection(true)
	case device.StateConnecting:
		display.SetStatus(StatusConnecting)
		display.SetEmotion("neutral")
		display.SetChatMessage("system", "")
	case device.StateListening:
		display.SetStatus(StatusListening)
		display.SetEmotion("neutral")

		if audio.IsVoiceProcessingRunning() {
			return
		}

		if m.deps.Announcer != nil && !m.deps.Announcer.SendStartListening(ctx, m.Mode()) {
			logger.WarnKV(ctx, "failed to announce listening", "mode", m.Mode().String())
		}

		audio.EnableVoiceProcessing(true)
		audio.EnableWakeWordDetection(false)
	case device.StateSpeaking:
		display.SetStatus(StatusSpeaking)

		if m.Mode() != device.ModeRealtime {
			audio.EnableVoiceProcessing(false)
			audio.EnableWakeWordDetection(m.deps.WakeWordWhileSpeaking)
		}

		audio.ResetDecoder()
	default:
		// Other states have no entry effects of their own.
	}
}
