package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/device-core/internal/service/client"
)

var (
	// waitFor is the state to wait for before printing.
	waitFor string

	// stateCmd prints the device status.
	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Print the device state, alarms and peripheral snapshot.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(func(ctx context.Context) error {
				return client.State(ctx, options(), waitFor)
			})
		},
	}

	// controlCmd simulates a button press.
	controlCmd = &cobra.Command{
		Use:   "control <action> [text]",
		Short: "Send a control action to the device.",
		Long: `Simulates device buttons and inputs.

Actions: toggle_chat, start_listening, stop_listening, wake_word, abort,
dismiss_alert, send_text. send_text needs the text to send and wake_word
needs the detected wake word.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			var text string
			if len(args) > 1 {
				text = args[1]
			}

			return run(func(ctx context.Context) error {
				return client.Control(ctx, options(), args[0], text)
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	stateCmd.Flags().StringVarP(&waitFor, "wait", "w", "", "poll until the device reaches this state")
}
