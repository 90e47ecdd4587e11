package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/device-core/internal/service/client"
)

var (
	// listAll follows nextCursor until the catalog ends.
	listAll bool

	// toolsCmd groups the tool subcommands.
	toolsCmd = &cobra.Command{
		Use:   "tools",
		Short: "List and call device tools.",
	}

	// toolsListCmd prints the tool catalog.
	toolsListCmd = &cobra.Command{
		Use:   "list",
		Short: "Print the tool catalog.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(func(ctx context.Context) error {
				return client.ListTools(ctx, options(), listAll)
			})
		},
	}

	// toolsCallCmd calls one tool.
	toolsCallCmd = &cobra.Command{
		Use:   "call <name> [json-arguments]",
		Short: "Call a tool and print its reply.",
		Long: `Calls a tool through the device tool dispatcher.

Arguments are a JSON object, for example:
  device-ctl tools call self.audio_speaker.set_volume '{"volume":40}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			var arguments string
			if len(args) > 1 {
				arguments = args[1]
			}

			return run(func(ctx context.Context) error {
				return client.CallTool(ctx, options(), args[0], arguments)
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	toolsListCmd.Flags().BoolVar(&listAll, "all", false, "follow cursors and print every page")

	toolsCmd.AddCommand(toolsListCmd, toolsCallCmd)
}
