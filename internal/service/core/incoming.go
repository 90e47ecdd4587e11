package core

import (
	"context"
	"encoding/json"

	"github.com/oshokin/device-core/internal/audio"
	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/loop"
)

// incoming is the union of the session messages the device understands.
type incoming struct {
	// Type is the message kind.
	Type string `json:"type"`
	// State qualifies tts messages.
	State string `json:"state"`
	// Text is the recognized or synthesized text.
	Text string `json:"text"`
	// Emotion is set by llm messages.
	Emotion string `json:"emotion"`
	// Command is set by system messages.
	Command string `json:"command"`
	// Status is set by alert messages.
	Status *string `json:"status"`
	// Message is set by alert messages.
	Message *string `json:"message"`
	// Payload carries tool envelopes and custom messages.
	Payload json.RawMessage `json:"payload"`
}

// onIncomingJSON routes a session message. It runs on the transport goroutine,
// so everything that touches state is submitted to the loop.
func (a *Application) onIncomingJSON(ctx context.Context, data []byte) {
	var msg incoming
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.WarnKV(ctx, "dropping malformed session message", "error", err)

		return
	}

	ctx = logger.WithKV(ctx, "type", msg.Type)

	switch msg.Type {
	case "tts":
		a.onSpeech(msg)
	case "stt":
		logger.InfoKV(ctx, "recognized speech", "text", msg.Text)
		a.showChat("user", msg.Text)
	case "llm":
		if msg.Emotion != "" {
			a.loop.Submit(func(context.Context) {
				a.deps.Board.Display.SetEmotion(msg.Emotion)
			})
		}
	case "mcp":
		a.onToolMessage(ctx, msg.Payload)
	case "system":
		a.onSystem(ctx, msg.Command)
	case "alert":
		if msg.Status == nil || msg.Message == nil || msg.Emotion == "" {
			logger.Warn(ctx, "alert message needs status, message and emotion")

			return
		}

		status, message, emotion := *msg.Status, *msg.Message, msg.Emotion
		a.loop.Submit(func(context.Context) {
			a.Alert(status, message, emotion)
		})
	case "custom":
		if !isJSONObject(msg.Payload) {
			logger.Warn(ctx, "custom message without an object payload")

			return
		}

		a.showChat("system", string(msg.Payload))
	default:
		logger.Warn(ctx, "unknown session message type")
	}
}

func (a *Application) onSpeech(msg incoming) {
	switch msg.State {
	case "start":
		a.loop.Submit(func(ctx context.Context) {
			a.aborted = false
			a.dispatch(ctx, device.EventSpeechStarted)
		})
	case "stop":
		a.loop.Submit(func(ctx context.Context) {
			a.dispatch(ctx, device.EventSpeechStopped)
		})
	case "sentence_start":
		if msg.Text != "" {
			a.showChat("assistant", msg.Text)
		}
	}
}

func (a *Application) showChat(role, text string) {
	a.loop.Submit(func(context.Context) {
		a.deps.Board.Display.SetChatMessage(role, text)
	})
}

// onToolMessage hands a tool envelope to the tool server. Replies are sent
// from the loop because workers finish on their own goroutines.
func (a *Application) onToolMessage(ctx context.Context, payload json.RawMessage) {
	if !isJSONObject(payload) {
		logger.Warn(ctx, "tool message without an object payload")

		return
	}

	a.tools.Handle(ctx, payload, func(_ context.Context, reply []byte) {
		a.loop.Submit(func(ctx context.Context) {
			if !a.session.SendMCP(ctx, reply) {
				logger.Warn(ctx, "failed to send tool reply")
			}
		})
	})
}

func (a *Application) onSystem(ctx context.Context, command string) {
	if command != "reboot" {
		logger.WarnKV(ctx, "unknown system command", "command", command)

		return
	}

	a.loop.Submit(func(ctx context.Context) {
		if err := a.Reboot(ctx); err != nil {
			logger.ErrorKV(ctx, "reboot failed", "error", err)
		}
	})
}

// onIncomingAudio queues server speech. Audio arriving outside Speaking is late
// or belongs to an aborted answer.
func (a *Application) onIncomingAudio(_ context.Context, packet audio.Packet) {
	a.loop.Submit(func(context.Context) {
		if a.machine.State() != device.StateSpeaking || a.aborted {
			return
		}

		a.deps.Audio.PushDecodePacket(packet)
	})
}

func (a *Application) onChannelOpened(ctx context.Context) {
	codec := a.deps.Board.Codec
	if codec == nil {
		return
	}

	server := a.deps.Transport.ServerSampleRate()
	if server > 0 && server != codec.OutputSampleRate() {
		logger.WarnKV(ctx, "server sample rate differs from the codec, playback is resampled",
			"server", server,
			"codec", codec.OutputSampleRate(),
		)
	}
}

func (a *Application) onChannelClosed(context.Context) {
	a.loop.Submit(func(ctx context.Context) {
		// Reopening a timed out channel closes the old one first; its close
		// arrives after the new channel is up and must not end the new session.
		if a.deps.Transport.IsChannelOpen() {
			logger.DebugKV(ctx, "ignoring close of a replaced session channel",
				"session_id", a.deps.Transport.SessionID())

			return
		}

		a.dispatch(ctx, device.EventChannelClosed)
	})
}

func (a *Application) onNetworkError(ctx context.Context, message string) {
	logger.WarnKV(ctx, "network error", "message", message)

	a.setLastError(message)
	a.loop.Raise(loop.BitTransportError)
}

func isJSONObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}

	return false
}
