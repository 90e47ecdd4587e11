package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/device-core/internal/config"
	"github.com/oshokin/device-core/internal/service/client"
	"github.com/oshokin/device-core/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string

	// address overrides the admin address from config.
	address string

	// rootCmd groups the admin subcommands.
	rootCmd = &cobra.Command{
		Use:   "device-ctl",
		Short: "Inspect and drive a running device core.",
		Long: `Talks to the admin gRPC endpoint of a running device core.

The endpoint address is read from the configuration file unless --address is given.`,
		SilenceUsage: true,
	}
)

// Execute runs the device-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// options builds client options from the persistent flags.
func options() *client.Options {
	return &client.Options{
		ConfigPath: cfgPath,
		Address:    address,
	}
}

// run executes fn with a context canceled on SIGTERM and SIGINT.
func run(fn func(ctx context.Context) error) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&address, "address", "a", "", "admin endpoint address (host:port)")

	rootCmd.AddCommand(toolsCmd, stateCmd, controlCmd)
}
