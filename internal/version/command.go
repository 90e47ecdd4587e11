package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand describing the root binary.
// With --json it prints Info as a JSON object for provisioning scripts.
func AttachCobraVersionCommand(root *cobra.Command) {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print the firmware version, commit hash, build timestamp and toolchain of this binary.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := Describe(root.Name())

			if !asJSON {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())

				return err
			}

			data, err := json.Marshal(info)
			if err != nil {
				return fmt.Errorf("encode version: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	root.AddCommand(cmd)
}
