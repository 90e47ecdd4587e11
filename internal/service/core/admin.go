package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/device-core/internal/domain/device"
	domain "github.com/oshokin/device-core/internal/domain/peripheral"
	"github.com/oshokin/device-core/internal/transport"
)

// Control actions accepted by Control.
const (
	ActionToggleChat     = "toggle_chat"
	ActionStartListening = "start_listening"
	ActionStopListening  = "stop_listening"
	ActionWakeWord       = "wake_word"
	ActionAbort          = "abort"
	ActionDismissAlert   = "dismiss_alert"
	ActionSendText       = "send_text"
)

var (
	// ErrNoReply is returned when the tool server does not answer a message.
	ErrNoReply = errors.New("message gets no reply")
	// ErrUnknownAction is returned by Control for an unsupported action.
	ErrUnknownAction = errors.New("unknown control action")
	// ErrTextRequired is returned by Control when an action needs text.
	ErrTextRequired = errors.New("control action needs text")
)

// Status is a point-in-time view of the device.
type Status struct {
	// State is the device state.
	State device.State
	// Mode is the listening mode.
	Mode device.ListeningMode
	// AecMode is the echo cancellation mode.
	AecMode device.AecMode
	// ChannelOpen reports whether the session channel is open.
	ChannelOpen bool
	// SessionID is the server assigned session id.
	SessionID string
	// Alarms is the number of configured alarms.
	Alarms int
	// Snapshot is the last known peripheral state, nil without a classroom controller.
	Snapshot *domain.Snapshot
}

// Status reads the device state on the loop.
func (a *Application) Status(ctx context.Context) (Status, error) {
	var status Status

	err := a.loop.Call(ctx, func(context.Context) {
		status = Status{
			State:       a.machine.State(),
			Mode:        a.machine.Mode(),
			AecMode:     a.aecMode(),
			ChannelOpen: a.deps.Transport.IsChannelOpen(),
			SessionID:   a.deps.Transport.SessionID(),
		}
	})
	if err != nil {
		return Status{}, fmt.Errorf("read device state: %w", err)
	}

	status.Alarms = len(a.alarms.List())

	if a.deps.Classroom != nil {
		status.Snapshot = a.deps.Classroom.Snapshot(ctx)
	}

	return status, nil
}

// DeviceStatus describes the board for the device status tool.
func (a *Application) DeviceStatus(context.Context) map[string]any {
	b := a.deps.Board

	status := map[string]any{
		"device": map[string]any{
			"board":   b.Name,
			"version": a.settings.FirmwareVersion,
			"state":   a.machine.State().String(),
			"mode":    a.machine.Mode().String(),
			"aec":     a.aecMode().String(),
		},
		"network": map[string]any{
			"type":         "websocket",
			"channel_open": a.deps.Transport.IsChannelOpen(),
		},
	}

	if b.Codec != nil {
		status["audio_speaker"] = map[string]any{"volume": b.Codec.OutputVolume()}
	}

	if b.Backlight != nil || b.Themes != nil {
		screen := map[string]any{}

		if b.Backlight != nil {
			screen["brightness"] = b.Backlight.Brightness()
		}

		if b.Themes != nil {
			screen["theme"] = b.Themes.Theme()
		}

		status["screen"] = screen
	}

	return status
}

// CallTool hands one JSON-RPC message to the tool server and waits for its reply.
// The call keeps running when ctx ends; only the wait is abandoned.
func (a *Application) CallTool(ctx context.Context, payload []byte) ([]byte, error) {
	replies := make(chan []byte, 1)

	handled := a.tools.Handle(context.WithoutCancel(ctx), payload, func(_ context.Context, reply []byte) {
		replies <- reply
	})
	if !handled {
		return nil, ErrNoReply
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-replies:
		return reply, nil
	}
}

// Control simulates a button press or voice input.
func (a *Application) Control(_ context.Context, action, text string) error {
	switch action {
	case ActionToggleChat:
		a.ToggleChatState()
	case ActionStartListening:
		a.StartListening()
	case ActionStopListening:
		a.StopListening()
	case ActionWakeWord:
		if text == "" {
			return fmt.Errorf("%w: %s", ErrTextRequired, action)
		}

		a.WakeWordInvoke(text)
	case ActionAbort:
		a.AbortSpeaking(device.AbortReasonNone)
	case ActionDismissAlert:
		a.DismissAlert()
	case ActionSendText:
		if text == "" {
			return fmt.Errorf("%w: %s", ErrTextRequired, action)
		}

		a.SendText(transport.SourceUser, text)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	return nil
}
