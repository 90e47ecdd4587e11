package core

import (
	"context"
	"errors"

	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/service/statemachine"
	"github.com/oshokin/device-core/internal/transport"
)

// ToggleChatState is the chat button: it starts a hands-free conversation
// from Idle, interrupts speech and ends a listening session.
func (a *Application) ToggleChatState() {
	a.loop.Submit(func(ctx context.Context) {
		a.dispatch(ctx, device.EventToggleChat)
	})
}

// StartListening is a push-to-talk press.
func (a *Application) StartListening() {
	a.loop.Submit(func(ctx context.Context) {
		a.dispatch(ctx, device.EventStartListening)
	})
}

// StopListening is a push-to-talk release.
func (a *Application) StopListening() {
	a.loop.Submit(func(ctx context.Context) {
		a.dispatch(ctx, device.EventStopListening)
	})
}

// WakeWordInvoke behaves like the chat button and, when it starts a
// conversation, reports text as the detected wake word.
func (a *Application) WakeWordInvoke(text string) {
	a.loop.Submit(func(ctx context.Context) {
		wasIdle := a.machine.State() == device.StateIdle

		if !a.dispatch(ctx, device.EventToggleChat) || !wasIdle {
			return
		}

		if !a.session.SendWakeWordDetected(ctx, text) {
			logger.Warn(ctx, "failed to report wake word")
		}
	})
}

// AbortSpeaking sends an abort notice with reason.
func (a *Application) AbortSpeaking(reason device.AbortReason) {
	a.loop.Submit(func(ctx context.Context) {
		a.abortSpeaking(ctx, reason)
	})
}

// Alert shows a user visible alert.
func (a *Application) Alert(status, message, emotion string) {
	logger.WarnKV(context.Background(), "alert", "status", status, "message", message, "emotion", emotion)

	display := a.deps.Board.Display
	display.SetStatus(status)
	display.SetEmotion(emotion)
	display.SetChatMessage("system", message)
}

// DismissAlert restores the standby screen when the device is idle.
func (a *Application) DismissAlert() {
	a.loop.Submit(func(context.Context) {
		if a.machine.State() != device.StateIdle {
			return
		}

		display := a.deps.Board.Display
		display.SetStatus(statemachine.StatusStandby)
		display.SetEmotion("neutral")
		display.SetChatMessage("system", "")
	})
}

// SendText sends text to the server on behalf of source.
func (a *Application) SendText(source, text string) {
	a.loop.Submit(func(ctx context.Context) {
		if err := a.session.SendTextToServer(ctx, text, source); err != nil {
			logger.ErrorKV(ctx, "failed to send text to server", "source", source, "error", err)
		}
	})
}

// CanEnterSleepMode reports whether nothing is going on.
func (a *Application) CanEnterSleepMode() bool {
	if a.machine.State() != device.StateIdle {
		return false
	}

	if a.deps.Transport.IsChannelOpen() {
		return false
	}

	return a.deps.Audio.IsIdle()
}

// SetAecMode switches echo cancellation. An open channel is closed so the
// next session negotiates the new mode.
func (a *Application) SetAecMode(mode device.AecMode) {
	a.aec.Store(int32(mode))

	a.loop.Submit(func(ctx context.Context) {
		a.applyAecMode(ctx, mode, true)
	})
}

func (a *Application) applyAecMode(ctx context.Context, mode device.AecMode, notify bool) {
	a.deps.Audio.EnableDeviceAec(mode == device.AecOnDevice)

	if notify {
		message := "Realtime chat enabled"
		if mode == device.AecOff {
			message = "Realtime chat disabled"
		}

		a.deps.Board.Display.ShowNotification(message)
	}

	if a.deps.Transport.IsChannelOpen() {
		a.deps.Transport.CloseChannel(ctx)
	}

	logger.InfoKV(ctx, "aec mode set", "mode", mode.String())
}

// Reboot restarts the host when reboots are allowed.
func (a *Application) Reboot(ctx context.Context) error {
	if !a.settings.AllowReboot {
		logger.Warn(ctx, "reboot requested but disabled by configuration")

		return ErrRebootDisabled
	}

	if a.deps.Reboot == nil {
		return ErrNoRebooter
	}

	logger.Info(ctx, "rebooting")

	return a.deps.Reboot(ctx)
}

// State returns the current device state.
func (a *Application) State() device.State {
	return a.machine.State()
}

// Mode returns the current listening mode.
func (a *Application) Mode() device.ListeningMode {
	return a.machine.Mode()
}

// Call runs fn on the control loop and waits for it.
func (a *Application) Call(ctx context.Context, fn func(ctx context.Context)) error {
	return a.loop.Call(ctx, fn)
}

// errNoSession reports whether err means no conversation is open.
func errNoSession(err error) bool {
	return errors.Is(err, transport.ErrNoSession)
}
