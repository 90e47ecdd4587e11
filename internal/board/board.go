package board

import (
	"context"
	"errors"

	"github.com/oshokin/device-core/internal/audio"
	"github.com/oshokin/device-core/internal/domain/device"
)

var (
	// ErrUnknownTheme is returned for a theme the display does not ship.
	ErrUnknownTheme = errors.New("unknown theme")
	// ErrUnknownDisplayMode is returned for an unsupported music display mode.
	ErrUnknownDisplayMode = errors.New("unknown display mode")
	// ErrEmptySong is returned when no song name is given.
	ErrEmptySong = errors.New("song name is empty")
)

// Display shows status text, emotions, chat lines and notifications.
type Display interface {
	SetStatus(status string)
	SetEmotion(emotion string)
	SetChatMessage(role, content string)
	ShowNotification(message string)
	UpdateStatusBar(clock string)
}

// Indicator mirrors the device state on a LED.
type Indicator interface {
	OnStateChanged(state device.State)
}

// Codec is the speaker codec with a volume control.
type Codec interface {
	audio.Codec
	OutputVolume() int
	SetOutputVolume(volume int)
}

// MusicPlayer plays songs outside the conversation.
type MusicPlayer interface {
	PlaySong(ctx context.Context, song, artist string) error
	StopStreaming()
	IsPlaying() bool
	SetDisplayMode(mode string) error
}

// Backlight is an optional screen backlight.
type Backlight interface {
	Brightness() int
	SetBrightness(brightness int)
}

// Themer is an optional display theme switch.
type Themer interface {
	Theme() string
	SetTheme(name string) error
}

// Board groups the peripherals of one board. Backlight and Themes are nil
// when the board has no screen.
type Board struct {
	// Name is the board identifier reported to the server.
	Name string
	// Display renders status and chat.
	Display Display
	// Indicator mirrors the device state.
	Indicator Indicator
	// Codec is the speaker.
	Codec Codec
	// Music plays songs.
	Music MusicPlayer
	// Backlight is nil without a screen.
	Backlight Backlight
	// Themes is nil without a screen.
	Themes Themer
}
