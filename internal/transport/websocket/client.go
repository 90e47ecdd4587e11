package websocket

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oshokin/device-core/internal/audio"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/transport"
)

// User facing network error messages.
const (
	MessageServerNotFound = "Server not found"
	MessageServerTimeout  = "Server timeout"
	MessageSendFailed     = "Sending failed"
)

// binaryHeaderSize is the size of the version 3 audio frame header.
const binaryHeaderSize = 4

// Defaults applied by New.
const (
	defaultProtocolVersion  = 1
	defaultHandshakeTimeout = 10 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultInputSampleRate  = 16000
	defaultFrameDuration    = 60
)

// errHelloTimeout is returned when the server does not answer the hello.
var errHelloTimeout = errors.New("server hello timeout")

// Config configures a Client.
type Config struct {
	// URL is the websocket endpoint.
	URL string
	// AccessToken is sent as a bearer token when set.
	AccessToken string
	// DeviceID identifies the device.
	DeviceID string
	// ClientID identifies this installation; a random id is used when empty.
	ClientID string
	// ProtocolVersion selects the audio framing: 3 adds a binary header.
	ProtocolVersion int
	// HandshakeTimeout bounds the dial and the hello exchange.
	HandshakeTimeout time.Duration
	// IdleTimeout is the inactivity limit reported by IsTimeout.
	IdleTimeout time.Duration
	// InputSampleRate is the capture rate announced in the hello.
	InputSampleRate int
	// FrameDuration is the capture frame length in milliseconds.
	FrameDuration int
}

// Client is a transport.Transport over gorilla websocket.
type Client struct {
	// cfg is the connection configuration.
	cfg Config
	// dialer opens connections.
	dialer *websocket.Dialer
	// now returns the current time.
	now func() time.Time

	// mu guards callbacks, current, sessionID and serverRate.
	mu sync.Mutex
	// callbacks receive events.
	callbacks transport.Callbacks
	// current is the active channel.
	current *channel
	// sessionID is assigned by the server hello.
	sessionID string
	// serverRate is the playback rate of the server hello.
	serverRate int

	// lastIncoming is the unix nano time of the last received frame.
	lastIncoming atomic.Int64
	// errorOccurred is set by a network error and cleared by OpenChannel.
	errorOccurred atomic.Bool
}

// channel is one websocket connection.
type channel struct {
	// conn is the websocket connection.
	conn *websocket.Conn
	// writeMu serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex
	// hello receives the server hello once.
	hello chan helloMessage
	// opened is set after a successful handshake.
	opened atomic.Bool
	// closeOnce guards the close callback.
	closeOnce sync.Once
}

// audioParams describes an audio stream in hello messages.
type audioParams struct {
	// Format is the codec name.
	Format string `json:"format,omitempty"`
	// SampleRate is in Hz.
	SampleRate int `json:"sample_rate,omitempty"`
	// Channels is the channel count.
	Channels int `json:"channels,omitempty"`
	// FrameDuration is in milliseconds.
	FrameDuration int `json:"frame_duration,omitempty"`
}

// helloMessage is exchanged once per channel.
type helloMessage struct {
	// Type is "hello".
	Type string `json:"type"`
	// Version is the protocol version.
	Version int `json:"version,omitempty"`
	// Transport is "websocket".
	Transport string `json:"transport,omitempty"`
	// SessionID is set by the server.
	SessionID string `json:"session_id,omitempty"`
	// Features lists client capabilities.
	Features map[string]bool `json:"features,omitempty"`
	// AudioParams describes the sender's audio.
	AudioParams *audioParams `json:"audio_params,omitempty"`
}

// New returns a client for cfg.
func New(cfg Config) *Client {
	if cfg.ProtocolVersion <= 0 {
		cfg.ProtocolVersion = defaultProtocolVersion
	}

	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}

	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	if cfg.InputSampleRate <= 0 {
		cfg.InputSampleRate = defaultInputSampleRate
	}

	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = defaultFrameDuration
	}

	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}

	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		now:    time.Now,
	}
}

// SetCallbacks implements transport.Transport.
func (c *Client) SetCallbacks(callbacks transport.Callbacks) {
	c.mu.Lock()
	c.callbacks = callbacks
	c.mu.Unlock()
}

// SessionID implements transport.Transport.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sessionID
}

// ServerSampleRate implements transport.Transport.
func (c *Client) ServerSampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.serverRate
}

// IsTimeout implements transport.Transport.
func (c *Client) IsTimeout() bool {
	last := c.lastIncoming.Load()
	if last == 0 {
		return false
	}

	idle := c.now().Sub(time.Unix(0, last))

	return idle > c.cfg.IdleTimeout
}

// IsChannelOpen implements transport.Transport.
func (c *Client) IsChannelOpen() bool {
	c.mu.Lock()
	ch := c.current
	c.mu.Unlock()

	return ch != nil && ch.opened.Load() && !c.errorOccurred.Load() && !c.IsTimeout()
}

// OpenChannel implements transport.Transport.
func (c *Client) OpenChannel(ctx context.Context) bool {
	ctx = logger.WithName(ctx, "websocket")

	c.CloseChannel(ctx)
	c.errorOccurred.Store(false)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(dialCtx, c.cfg.URL, c.headers())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		logger.ErrorKV(ctx, "failed to connect to server", "url", c.cfg.URL, "error", err)
		c.fail(ctx, MessageServerNotFound)

		return false
	}

	ch := &channel{conn: conn, hello: make(chan helloMessage, 1)}

	c.mu.Lock()
	c.current = ch
	c.mu.Unlock()

	c.lastIncoming.Store(c.now().UnixNano())

	go c.readLoop(ctx, ch)

	if err := c.handshake(dialCtx, ch); err != nil {
		logger.ErrorKV(ctx, "handshake failed", "error", err)
		c.fail(ctx, MessageServerTimeout)
		c.drop(ctx, ch)

		return false
	}

	ch.opened.Store(true)

	c.mu.Lock()
	onOpened := c.callbacks.OnChannelOpened
	c.mu.Unlock()

	logger.InfoKV(ctx, "channel opened", "session_id", c.SessionID(), "server_sample_rate", c.ServerSampleRate())

	if onOpened != nil {
		onOpened(ctx)
	}

	return true
}

// CloseChannel implements transport.Transport.
func (c *Client) CloseChannel(ctx context.Context) {
	c.mu.Lock()
	ch := c.current
	c.mu.Unlock()

	if ch == nil {
		return
	}

	ch.writeMu.Lock()
	deadline := c.now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

	if err := ch.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		logger.DebugKV(ctx, "close frame not sent", "error", err)
	}
	ch.writeMu.Unlock()

	c.drop(ctx, ch)
}

// SendText implements transport.Transport.
func (c *Client) SendText(ctx context.Context, message []byte) bool {
	return c.write(ctx, websocket.TextMessage, message)
}

// SendAudio implements transport.Transport.
func (c *Client) SendAudio(ctx context.Context, packet audio.Packet) bool {
	return c.write(ctx, websocket.BinaryMessage, c.encodeAudio(packet))
}

func (c *Client) write(ctx context.Context, kind int, data []byte) bool {
	c.mu.Lock()
	ch := c.current
	c.mu.Unlock()

	if ch == nil || c.errorOccurred.Load() {
		return false
	}

	ch.writeMu.Lock()
	err := ch.conn.WriteMessage(kind, data)
	ch.writeMu.Unlock()

	if err != nil {
		logger.ErrorKV(ctx, "failed to send frame", "error", err)
		c.fail(ctx, MessageSendFailed)

		return false
	}

	return true
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	if c.cfg.AccessToken != "" {
		h.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	h.Set("Protocol-Version", strconv.Itoa(c.cfg.ProtocolVersion))
	h.Set("Device-Id", c.cfg.DeviceID)
	h.Set("Client-Id", c.cfg.ClientID)

	return h
}

func (c *Client) handshake(ctx context.Context, ch *channel) error {
	hello := helloMessage{
		Type:      "hello",
		Version:   c.cfg.ProtocolVersion,
		Transport: "websocket",
		Features:  map[string]bool{"mcp": true},
		AudioParams: &audioParams{
			Format:        "opus",
			SampleRate:    c.cfg.InputSampleRate,
			Channels:      1,
			FrameDuration: c.cfg.FrameDuration,
		},
	}

	data, err := json.Marshal(hello)
	if err != nil {
		return fmt.Errorf("encode hello: %w", err)
	}

	ch.writeMu.Lock()
	err = ch.conn.WriteMessage(websocket.TextMessage, data)
	ch.writeMu.Unlock()

	if err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	select {
	case reply := <-ch.hello:
		c.mu.Lock()
		c.sessionID = reply.SessionID
		if reply.AudioParams != nil && reply.AudioParams.SampleRate > 0 {
			c.serverRate = reply.AudioParams.SampleRate
		}
		c.mu.Unlock()

		return nil
	case <-ctx.Done():
		return errHelloTimeout
	}
}

func (c *Client) readLoop(ctx context.Context, ch *channel) {
	defer c.drop(ctx, ch)

	for {
		kind, data, err := ch.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && ch.opened.Load() {
				logger.DebugKV(ctx, "read loop stopped", "error", err)
			}

			return
		}

		c.lastIncoming.Store(c.now().UnixNano())

		switch kind {
		case websocket.TextMessage:
			c.dispatchText(ctx, ch, data)
		case websocket.BinaryMessage:
			c.dispatchAudio(ctx, data)
		}
	}
}

func (c *Client) dispatchText(ctx context.Context, ch *channel, data []byte) {
	var head struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(data, &head); err != nil {
		logger.WarnKV(ctx, "dropping malformed message", "error", err)

		return
	}

	if head.Type == "hello" {
		var hello helloMessage
		if err := json.Unmarshal(data, &hello); err != nil {
			logger.WarnKV(ctx, "dropping malformed hello", "error", err)

			return
		}

		select {
		case ch.hello <- hello:
		default:
		}

		return
	}

	c.mu.Lock()
	onJSON := c.callbacks.OnIncomingJSON
	c.mu.Unlock()

	if onJSON != nil {
		onJSON(ctx, data)
	}
}

func (c *Client) dispatchAudio(ctx context.Context, data []byte) {
	c.mu.Lock()
	onAudio := c.callbacks.OnIncomingAudio
	rate := c.serverRate
	c.mu.Unlock()

	if onAudio == nil {
		return
	}

	packet, ok := c.decodeAudio(data, rate)
	if !ok {
		logger.WarnKV(ctx, "dropping malformed audio frame", "size", len(data))

		return
	}

	onAudio(ctx, packet)
}

// encodeAudio frames a packet; version 3 prefixes a type, reserved byte and length.
func (c *Client) encodeAudio(packet audio.Packet) []byte {
	if c.cfg.ProtocolVersion != 3 { //nolint:mnd // Protocol version with framed audio.
		return packet.Payload
	}

	frame := make([]byte, binaryHeaderSize+len(packet.Payload))
	binary.BigEndian.PutUint16(frame[2:], uint16(len(packet.Payload))) //nolint:gosec // Frames are far below 64 KiB.
	copy(frame[binaryHeaderSize:], packet.Payload)

	return frame
}

func (c *Client) decodeAudio(data []byte, rate int) (audio.Packet, bool) {
	packet := audio.Packet{SampleRate: rate, FrameDuration: c.cfg.FrameDuration}

	if c.cfg.ProtocolVersion != 3 { //nolint:mnd // Protocol version with framed audio.
		packet.Payload = data

		return packet, true
	}

	if len(data) < binaryHeaderSize {
		return packet, false
	}

	size := int(binary.BigEndian.Uint16(data[2:]))
	if len(data) < binaryHeaderSize+size {
		return packet, false
	}

	packet.Payload = data[binaryHeaderSize : binaryHeaderSize+size]

	return packet, true
}

// fail records a network error and reports it.
func (c *Client) fail(ctx context.Context, message string) {
	c.errorOccurred.Store(true)

	c.mu.Lock()
	onError := c.callbacks.OnNetworkError
	c.mu.Unlock()

	if onError != nil {
		onError(ctx, message)
	}
}

// drop closes ch and fires the close callback once for opened channels.
func (c *Client) drop(ctx context.Context, ch *channel) {
	ch.closeOnce.Do(func() {
		_ = ch.conn.Close()

		c.mu.Lock()
		if c.current == ch {
			c.current = nil
		}
		onClosed := c.callbacks.OnChannelClosed
		c.mu.Unlock()

		if ch.opened.Load() && onClosed != nil {
			onClosed(ctx)
		}
	})
}
