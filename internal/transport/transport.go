package transport

import (
	"context"

	"github.com/oshokin/device-core/internal/audio"
)

// Callbacks receive transport events. They run on transport goroutines and
// must only post work to the control loop.
type Callbacks struct {
	// OnIncomingJSON receives every text frame.
	OnIncomingJSON func(ctx context.Context, message []byte)
	// OnIncomingAudio receives every audio frame.
	OnIncomingAudio func(ctx context.Context, packet audio.Packet)
	// OnChannelOpened fires after a successful open.
	OnChannelOpened func(ctx context.Context)
	// OnChannelClosed fires once per opened channel.
	OnChannelClosed func(ctx context.Context)
	// OnNetworkError reports a failure with a user facing message.
	OnNetworkError func(ctx context.Context, message string)
}

// Transport is the session channel. Every method except the getters is
// called from the control loop only.
type Transport interface {
	// SetCallbacks installs the event receivers. Call it before OpenChannel.
	SetCallbacks(callbacks Callbacks)
	// OpenChannel connects and performs the handshake.
	OpenChannel(ctx context.Context) bool
	// CloseChannel closes the channel; OnChannelClosed fires.
	CloseChannel(ctx context.Context)
	// IsChannelOpen reports whether the channel is usable.
	IsChannelOpen() bool
	// SendAudio sends one encoded frame.
	SendAudio(ctx context.Context, packet audio.Packet) bool
	// SendText sends one JSON message.
	SendText(ctx context.Context, message []byte) bool
	// SessionID returns the id assigned by the server.
	SessionID() string
	// ServerSampleRate returns the playback rate announced by the server.
	ServerSampleRate() int
	// IsTimeout reports whether nothing was received for too long.
	IsTimeout() bool
}
