package board

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/logger"
)

// Console defaults.
const (
	defaultVolume     = 70
	defaultBrightness = 75
	defaultTheme      = "light"
)

// Music display modes.
const (
	DisplayModeSpectrum = "spectrum"
	DisplayModeLyrics   = "lyrics"
)

// ConsoleOption customizes NewConsole.
type ConsoleOption func(*consoleConfig)

// consoleConfig collects console options.
type consoleConfig struct {
	// screen adds a backlight and themes.
	screen bool
}

// WithScreen gives the console board a backlight and themes.
func WithScreen() ConsoleOption {
	return func(c *consoleConfig) {
		c.screen = true
	}
}

// NewConsole returns a board whose peripherals log through ctx.
func NewConsole(ctx context.Context, name string, sampleRate int, opts ...ConsoleOption) *Board {
	var cfg consoleConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx = logger.WithName(ctx, "board")
	screen := &ConsoleScreen{ctx: ctx, brightness: defaultBrightness, theme: defaultTheme}

	b := &Board{
		Name:      name,
		Display:   screen,
		Indicator: &ConsoleIndicator{ctx: ctx},
		Codec:     &ConsoleCodec{ctx: ctx, rate: sampleRate, volume: defaultVolume},
		Music:     &ConsoleMusic{ctx: ctx, mode: DisplayModeSpectrum},
	}

	if cfg.screen {
		b.Backlight = screen
		b.Themes = screen
	}

	return b
}

// ConsoleScreen is a Display, Backlight and Themer writing to the log.
type ConsoleScreen struct {
	// ctx carries the logger.
	ctx context.Context //nolint:containedctx // Peripherals log from loop callbacks without a context.
	// mu guards the fields below.
	mu sync.Mutex
	// status is the status bar text.
	status string
	// emotion is the face shown.
	emotion string
	// chatRole and chatContent are the last chat line.
	chatRole, chatContent string
	// clock is the status bar clock.
	clock string
	// brightness is 0-100.
	brightness int
	// theme is the active theme.
	theme string
}

// SetStatus implements Display.
func (s *ConsoleScreen) SetStatus(status string) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()

	if changed {
		logger.InfoKV(s.ctx, "status", "text", status)
	}
}

// SetEmotion implements Display.
func (s *ConsoleScreen) SetEmotion(emotion string) {
	s.mu.Lock()
	s.emotion = emotion
	s.mu.Unlock()

	logger.DebugKV(s.ctx, "emotion", "name", emotion)
}

// SetChatMessage implements Display.
func (s *ConsoleScreen) SetChatMessage(role, content string) {
	s.mu.Lock()
	s.chatRole, s.chatContent = role, content
	s.mu.Unlock()

	if content != "" {
		logger.InfoKV(s.ctx, "chat", "role", role, "content", content)
	}
}

// ShowNotification implements Display.
func (s *ConsoleScreen) ShowNotification(message string) {
	logger.InfoKV(s.ctx, "notification", "message", message)
}

// UpdateStatusBar implements Display.
func (s *ConsoleScreen) UpdateStatusBar(clock string) {
	s.mu.Lock()
	s.clock = clock
	s.mu.Unlock()
}

// Status returns the status text, the emotion and the last chat line.
func (s *ConsoleScreen) Status() (status, emotion, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status, s.emotion, s.chatRole, s.chatContent
}

// Clock returns the status bar clock.
func (s *ConsoleScreen) Clock() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clock
}

// Brightness implements Backlight.
func (s *ConsoleScreen) Brightness() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.brightness
}

// SetBrightness implements Backlight.
func (s *ConsoleScreen) SetBrightness(brightness int) {
	s.mu.Lock()
	s.brightness = brightness
	s.mu.Unlock()

	logger.InfoKV(s.ctx, "brightness", "value", brightness)
}

// Theme implements Themer.
func (s *ConsoleScreen) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.theme
}

// SetTheme implements Themer.
func (s *ConsoleScreen) SetTheme(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains([]string{"light", "dark"}, name) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}

	s.mu.Lock()
	s.theme = name
	s.mu.Unlock()

	logger.InfoKV(s.ctx, "theme", "name", name)

	return nil
}

// ConsoleIndicator logs state changes.
type ConsoleIndicator struct {
	// ctx carries the logger.
	ctx context.Context //nolint:containedctx // See ConsoleScreen.
}

// OnStateChanged implements Indicator.
func (i *ConsoleIndicator) OnStateChanged(state device.State) {
	logger.DebugKV(i.ctx, "indicator", "state", state.String())
}

// ConsoleCodec counts played samples instead of playing them.
type ConsoleCodec struct {
	// ctx carries the logger.
	ctx context.Context //nolint:containedctx // See ConsoleScreen.
	// mu guards the fields below.
	mu sync.Mutex
	// rate is the output sample rate.
	rate int
	// volume is 0-100.
	volume int
	// enabled is the output switch.
	enabled bool
	// played counts samples.
	played int
}

// OutputSampleRate implements audio.Codec.
func (c *ConsoleCodec) OutputSampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rate
}

// SetOutputSampleRate implements audio.Codec. The console codec has a fixed rate.
func (c *ConsoleCodec) SetOutputSampleRate(int) bool {
	return false
}

// OutputEnabled implements audio.Codec.
func (c *ConsoleCodec) OutputEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enabled
}

// EnableOutput implements audio.Codec.
func (c *ConsoleCodec) EnableOutput(enable bool) {
	c.mu.Lock()
	c.enabled = enable
	c.mu.Unlock()
}

// OutputData implements audio.Codec.
func (c *ConsoleCodec) OutputData(samples []int16) {
	c.mu.Lock()
	c.played += len(samples)
	c.mu.Unlock()
}

// Played returns the number of samples played so far.
func (c *ConsoleCodec) Played() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.played
}

// OutputVolume implements Codec.
func (c *ConsoleCodec) OutputVolume() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.volume
}

// SetOutputVolume implements Codec.
func (c *ConsoleCodec) SetOutputVolume(volume int) {
	c.mu.Lock()
	c.volume = volume
	c.mu.Unlock()

	logger.InfoKV(c.ctx, "volume", "value", volume)
}

// ConsoleMusic records what would be played.
type ConsoleMusic struct {
	// ctx carries the logger.
	ctx context.Context //nolint:containedctx // See ConsoleScreen.
	// mu guards the fields below.
	mu sync.Mutex
	// song is the current song, empty when stopped.
	song string
	// mode is the display mode.
	mode string
}

// PlaySong implements MusicPlayer.
func (m *ConsoleMusic) PlaySong(ctx context.Context, song, artist string) error {
	song = strings.TrimSpace(song)
	if song == "" {
		return ErrEmptySong
	}

	m.mu.Lock()
	m.song = song
	m.mu.Unlock()

	logger.InfoKV(ctx, "playing song", "song", song, "artist", artist)

	return nil
}

// StopStreaming implements MusicPlayer.
func (m *ConsoleMusic) StopStreaming() {
	m.mu.Lock()
	song := m.song
	m.song = ""
	m.mu.Unlock()

	if song != "" {
		logger.InfoKV(m.ctx, "music stopped", "song", song)
	}
}

// IsPlaying implements MusicPlayer.
func (m *ConsoleMusic) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.song != ""
}

// Song returns the current song.
func (m *ConsoleMusic) Song() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.song
}

// SetDisplayMode implements MusicPlayer.
func (m *ConsoleMusic) SetDisplayMode(mode string) error {
	if mode != DisplayModeSpectrum && mode != DisplayModeLyrics {
		return fmt.Errorf("%w: %q", ErrUnknownDisplayMode, mode)
	}

	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()

	return nil
}
