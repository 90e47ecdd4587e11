package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
)

// Text sources that are sent as commands rather than recognized speech.
const (
	SourceAlarm  = "alarm"
	SourceSystem = "system"
	SourceUser   = "user"
)

var (
	// ErrEmptyText is returned when there is nothing to send.
	ErrEmptyText = errors.New("text is empty")
	// ErrNoSession is returned before the server assigned a session id.
	ErrNoSession = errors.New("session id is empty")
	// ErrSendFailed is returned when the transport refused the message.
	ErrSendFailed = errors.New("transport refused the message")
)

// Session builds the session messages and sends them through a Transport.
type Session struct {
	// transport carries the messages.
	transport Transport
}

// NewSession wraps t.
func NewSession(t Transport) *Session {
	return &Session{transport: t}
}

// Transport returns the wrapped transport.
func (s *Session) Transport() Transport {
	return s.transport
}

// message is the envelope shared by every session message.
type message struct {
	// SessionID is always present.
	SessionID string `json:"session_id"`
	// Type is the message kind.
	Type string `json:"type"`
	// State qualifies listen messages.
	State string `json:"state,omitempty"`
	// Mode is the listening mode of listen/start.
	Mode string `json:"mode,omitempty"`
	// Reason accompanies abort.
	Reason string `json:"reason,omitempty"`
	// Text is the wake word or the text sent to the server.
	Text string `json:"text,omitempty"`
	// Source names who produced Text.
	Source string `json:"source,omitempty"`
	// Payload carries a raw tool envelope.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendAbortSpeaking asks the server to stop the current answer.
func (s *Session) SendAbortSpeaking(ctx context.Context, reason device.AbortReason) bool {
	return s.send(ctx, message{Type: "abort", Reason: reason.String()})
}

// SendWakeWordDetected reports the detected wake word.
func (s *Session) SendWakeWordDetected(ctx context.Context, wakeWord string) bool {
	return s.send(ctx, message{Type: "listen", State: "detect", Text: wakeWord})
}

// SendStartListening announces a listening turn.
func (s *Session) SendStartListening(ctx context.Context, mode device.ListeningMode) bool {
	return s.send(ctx, message{Type: "listen", State: "start", Mode: mode.String()})
}

// SendStopListening ends a manual listening turn.
func (s *Session) SendStopListening(ctx context.Context) bool {
	return s.send(ctx, message{Type: "listen", State: "stop"})
}

// SendMCP forwards one tool envelope.
func (s *Session) SendMCP(ctx context.Context, payload []byte) bool {
	if !json.Valid(payload) {
		logger.ErrorKV(ctx, "refusing to send invalid tool payload", "size", len(payload))

		return false
	}

	return s.send(ctx, message{Type: "mcp", Payload: payload})
}

// SendTextToServer sends text as if the user had said it. Alarm and system
// sources are sent as commands.
func (s *Session) SendTextToServer(ctx context.Context, text, source string) error {
	if text == "" {
		return ErrEmptyText
	}

	if s.transport.SessionID() == "" {
		return ErrNoSession
	}

	kind := "stt"
	if source == SourceAlarm || source == SourceSystem {
		kind = "command"
	}

	logger.InfoKV(ctx, "sending text to server", "type", kind, "source", source, "text", text)

	if !s.send(ctx, message{Type: kind, Source: source, Text: text}) {
		return ErrSendFailed
	}

	return nil
}

func (s *Session) send(ctx context.Context, m message) bool {
	m.SessionID = s.transport.SessionID()

	data, err := json.Marshal(m)
	if err != nil {
		logger.ErrorKV(ctx, "failed to encode session message", "type", m.Type, "error", err)

		return false
	}

	return s.transport.SendText(ctx, data)
}
