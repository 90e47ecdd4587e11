package board

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestConsoleScreenOptional only exposes backlight and themes with a screen.
func TestConsoleScreenOptional(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	bare := NewConsole(ctx, "console", 24000)
	require.Nil(t, bare.Backlight)
	require.Nil(t, bare.Themes)

	full := NewConsole(ctx, "console", 24000, WithScreen())
	require.NotNil(t, full.Backlight)
	require.NotNil(t, full.Themes)

	full.Backlight.SetBrightness(40)
	require.Equal(t, 40, full.Backlight.Brightness())

	require.NoError(t, full.Themes.SetTheme(" Dark "))
	require.Equal(t, "dark", full.Themes.Theme())
	require.ErrorIs(t, full.Themes.SetTheme("neon"), ErrUnknownTheme)
}

// TestConsoleDisplayState keeps the last status and chat line.
func TestConsoleDisplayState(t *testing.T) {
	t.Parallel()

	b := NewConsole(context.Background(), "console", 24000)
	b.Display.SetStatus("Listening...")
	b.Display.SetEmotion("happy")
	b.Display.SetChatMessage("user", "hi")

	screen, ok := b.Display.(*ConsoleScreen)
	require.True(t, ok)

	status, emotion, role, content := screen.Status()
	require.Equal(t, "Listening...", status)
	require.Equal(t, "happy", emotion)
	require.Equal(t, "user", role)
	require.Equal(t, "hi", content)
}

// TestConsoleMusic plays, stops and validates display modes.
func TestConsoleMusic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewConsole(ctx, "console", 24000)

	require.ErrorIs(t, b.Music.PlaySong(ctx, " ", ""), ErrEmptySong)
	require.NoError(t, b.Music.PlaySong(ctx, "Moonlight", ""))
	require.True(t, b.Music.IsPlaying())

	b.Music.StopStreaming()
	require.False(t, b.Music.IsPlaying())

	require.NoError(t, b.Music.SetDisplayMode(DisplayModeLyrics))
	require.ErrorIs(t, b.Music.SetDisplayMode("karaoke"), ErrUnknownDisplayMode)
}

// TestConsoleCodec has a fixed rate and counts samples.
func TestConsoleCodec(t *testing.T) {
	t.Parallel()

	b := NewConsole(context.Background(), "console", 16000)
	require.False(t, b.Codec.SetOutputSampleRate(48000))
	require.Equal(t, 16000, b.Codec.OutputSampleRate())

	b.Codec.SetOutputVolume(30)
	require.Equal(t, 30, b.Codec.OutputVolume())

	b.Codec.OutputData(make([]int16, 10))

	codec, ok := b.Codec.(*ConsoleCodec)
	require.True(t, ok)
	require.Equal(t, 10, codec.Played())
}
