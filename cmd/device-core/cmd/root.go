package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/device-core/internal/config"
	"github.com/oshokin/device-core/internal/service/server"
	"github.com/oshokin/device-core/internal/version"
)

var (
	// configPath stores the configuration file path.
	configPath string

	// logLevel overrides the configured log level.
	logLevel string

	// allowMultiple disables the single instance guard.
	allowMultiple bool

	// rootCmd represents the base command for running the device core.
	rootCmd = &cobra.Command{
		Use:   "device-core [admin-listen-address]",
		Short: "Run the voice assistant device core.",
		Long: `Starts the device core: the control loop, the session channel to the
conversation server, the tool dispatcher, the alarm scheduler and the
peripheral links.

The admin gRPC endpoint listens on the address from the configuration file.
Listen address can be provided as argument to override config (e.g., :7070).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				LogLevel:      logLevel,
				AllowMultiple: allowMultiple,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the device-core CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "allow several instances on one host")
}
