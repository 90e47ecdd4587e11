package tools

import (
	"context"
	"strings"

	"github.com/oshokin/device-core/internal/mcp"
)

func (c *Catalog) boardTools() []*mcp.Tool {
	var tools []*mcp.Tool

	if codec := c.board.Codec; codec != nil {
		tools = append(tools, mcp.MustTool(ToolSetVolume,
			"Set the volume of the audio speaker. If the current volume is unknown, you must call "+
				"`self.get_device_status` tool first and then call this tool.",
			[]mcp.Property{mcp.MustProperty("volume", mcp.KindInt, mcp.WithRange(0, 100))},
			func(_ context.Context, args mcp.Arguments) (mcp.Value, error) {
				codec.SetOutputVolume(args.Int("volume"))

				return mcp.Bool(true), nil
			},
		))
	}

	if backlight := c.board.Backlight; backlight != nil {
		tools = append(tools, mcp.MustTool(ToolSetBrightness,
			"Set the brightness of the screen.",
			[]mcp.Property{mcp.MustProperty("brightness", mcp.KindInt, mcp.WithRange(0, 100))},
			func(_ context.Context, args mcp.Arguments) (mcp.Value, error) {
				backlight.SetBrightness(args.Int("brightness"))

				return mcp.Bool(true), nil
			},
		))
	}

	if themes := c.board.Themes; themes != nil {
		tools = append(tools, mcp.MustTool(ToolSetTheme,
			"Set the theme of the screen. The theme can be `light` or `dark`.",
			[]mcp.Property{mcp.MustProperty("theme", mcp.KindString)},
			func(_ context.Context, args mcp.Arguments) (mcp.Value, error) {
				if err := themes.SetTheme(args.String("theme")); err != nil {
					return mcp.Value{}, err
				}

				return mcp.Bool(true), nil
			},
		))
	}

	if music := c.board.Music; music != nil {
		tools = append(tools,
			mcp.MustTool(ToolPlaySong,
				"Plays the requested song. Use it when the user asks for music, playback starts right away "+
					"without confirmation.\n"+
					"Args:\n"+
					"  `song_name`: the song to play (required).\n"+
					"  `artist_name`: the artist (optional, empty by default).",
				[]mcp.Property{
					mcp.MustProperty("song_name", mcp.KindString),
					mcp.MustProperty("artist_name", mcp.KindString, mcp.WithDefault(mcp.Text(""))),
				},
				func(ctx context.Context, args mcp.Arguments) (mcp.Value, error) {
					if err := music.PlaySong(ctx, args.String("song_name"), args.String("artist_name")); err != nil {
						return result(false, "Failed to fetch the song: "+err.Error()), nil
					}

					return result(true, "Music started"), nil
				},
			),
			mcp.MustTool(ToolMusicDisplay,
				"Sets what the screen shows while music plays: 'spectrum' or 'lyrics'. Use it when the "+
					"user asks to show the spectrum or the lyrics.",
				[]mcp.Property{
					mcp.MustProperty("mode", mcp.KindString,
						mcp.WithDescription("Display mode: 'spectrum' or 'lyrics'.")),
				},
				func(_ context.Context, args mcp.Arguments) (mcp.Value, error) {
					mode := strings.ToLower(strings.TrimSpace(args.String("mode")))
					if err := music.SetDisplayMode(mode); err != nil {
						return result(false, "Invalid display mode, use 'spectrum' or 'lyrics'"), nil
					}

					return result(true, "Display mode switched to "+mode), nil
				},
			),
		)
	}

	return tools
}
