package core

import (
	"context"

	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
)

// Alert status shown on network errors.
const statusError = "Error"

// dispatch looks up event in the transition table for the current state and
// applies the rule. It must run on the loop. It reports whether a rule applied.
func (a *Application) dispatch(ctx context.Context, event device.Event) bool {
	state := a.machine.State()

	rule, ok := device.Lookup(state, event)
	if !ok {
		logger.DebugKV(ctx, "event ignored", "event", event.String(), "state", state.String())

		return false
	}

	return a.apply(ctx, event, rule)
}

// apply runs the Before effects, updates the mode, moves to the next state
// and runs the After effects. A failing Before effect stops the rule.
func (a *Application) apply(ctx context.Context, event device.Event, rule device.Rule) bool {
	ctx = logger.WithKV(ctx, "event", event.String())

	for _, effect := range rule.Before {
		if !a.runEffect(ctx, effect, rule) {
			return false
		}
	}

	mode := rule.ResolveMode(a.machine.Mode(), a.aecMode())
	a.machine.SetMode(mode)
	a.machine.Set(ctx, rule.Next(a.machine.State(), mode))

	for _, effect := range rule.After {
		a.runEffect(ctx, effect, rule)
	}

	return true
}

func (a *Application) runEffect(ctx context.Context, effect device.Effect, rule device.Rule) bool {
	switch effect {
	case device.EffectOpenChannel:
		return a.openChannel(ctx)
	case device.EffectSendWakeWord:
		a.sendWakeWord(ctx)
	case device.EffectAbortSpeaking:
		a.abortSpeaking(ctx, rule.Reason)
	case device.EffectAlert:
		a.Alert(statusError, a.takeLastError(), "sad")
	case device.EffectClearChat:
		a.deps.Board.Display.SetChatMessage("system", "")
	case device.EffectCloseChannel:
		a.deps.Transport.CloseChannel(ctx)
	case device.EffectSendStopListening:
		if !a.session.SendStopListening(ctx) {
			logger.Warn(ctx, "failed to send listen stop")
		}
	}

	return true
}

// openChannel opens the session channel through Connecting. On failure the
// device returns to Idle, which re-arms the wake word detector.
func (a *Application) openChannel(ctx context.Context) bool {
	if a.deps.Transport.IsChannelOpen() {
		return true
	}

	a.machine.Set(ctx, device.StateConnecting)

	if !a.deps.Transport.OpenChannel(ctx) {
		logger.Warn(ctx, "failed to open session channel")
		a.machine.Set(ctx, device.StateIdle)

		return false
	}

	return true
}

func (a *Application) sendWakeWord(ctx context.Context) {
	for {
		packet, ok := a.deps.Audio.PopWakeWordPacket()
		if !ok {
			break
		}

		if !a.deps.Transport.SendAudio(ctx, packet) {
			break
		}
	}

	word := a.deps.Audio.LastWakeWord()
	logger.InfoKV(ctx, "wake word detected", "word", word)

	if !a.session.SendWakeWordDetected(ctx, word) {
		logger.Warn(ctx, "failed to report wake word")
	}
}

func (a *Application) abortSpeaking(ctx context.Context, reason device.AbortReason) {
	logger.InfoKV(ctx, "abort speaking", "reason", reason.String())

	a.aborted = true

	if !a.session.SendAbortSpeaking(ctx, reason) {
		logger.Warn(ctx, "failed to send abort")
	}
}

func (a *Application) onTransportError(ctx context.Context) {
	a.dispatch(ctx, device.EventTransportError)
}

func (a *Application) onAudioReadyToSend(ctx context.Context) {
	for {
		packet, ok := a.deps.Audio.PopSendPacket()
		if !ok {
			return
		}

		if !a.deps.Transport.SendAudio(ctx, packet) {
			return
		}
	}
}

func (a *Application) onWakeWordDetected(ctx context.Context) {
	if a.machine.State() == device.StateIdle {
		a.deps.Audio.EncodeWakeWord()
	}

	a.dispatch(ctx, device.EventWakeWord)
}

func (a *Application) onVoiceActivityChanged(_ context.Context) {
	if a.machine.State() == device.StateListening {
		a.deps.Board.Indicator.OnStateChanged(device.StateListening)
	}
}

func (a *Application) setLastError(message string) {
	a.errMu.Lock()
	a.lastError = message
	a.errMu.Unlock()
}

func (a *Application) takeLastError() string {
	a.errMu.Lock()
	defer a.errMu.Unlock()

	return a.lastError
}
