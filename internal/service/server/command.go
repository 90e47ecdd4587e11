package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"

	api "github.com/oshokin/device-core/internal/api/grpc/device"
	"github.com/oshokin/device-core/internal/config"
	"github.com/oshokin/device-core/internal/logger"
	pb "github.com/oshokin/device-core/internal/pb/v1"
	"github.com/oshokin/device-core/internal/service/common"
	"github.com/oshokin/device-core/internal/service/core"
)

// Options controls the device-core process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional admin listen address override.
	ListenAddress string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// AllowMultiple skips the single instance guard.
	AllowMultiple bool
}

// Run wires the device core and blocks until ctx is canceled.
// Loads configuration first, then builds the board, the session transport,
// the peripheral links, the core and the optional admin endpoint.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "device-core")

	// Load configuration first to get device settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// CLI level wins over the configured one.
	level := settings.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}

	if !logger.Setup(level, logger.Format(settings.LogFormat)) && level != "" {
		logger.WarnKV(ctx, "Unknown log level, keeping the current one", "level", level)
	}

	// Refuse to share the audio device and session with another core.
	if !opts.AllowMultiple {
		if err := common.EnsureSingleInstance(); err != nil {
			return err
		}
	}

	// Build collaborators from configuration.
	dev, err := newComponents(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise device: %w", err)
	}

	defer dev.close()

	app := core.New(ctx, dev.deps, dev.settings)

	listenAddress := resolveListenAddress(settings.Admin.ListenAddress, opts.ListenAddress)

	var wg sync.WaitGroup

	errs := make(chan error, 1)

	// The admin endpoint is optional; the core runs without it.
	if listenAddress != "" {
		wg.Go(func() {
			if err := serveAdmin(ctx, listenAddress, app); err != nil {
				errs <- err
			}
		})
	}

	logger.InfoKV(ctx, "Device core starting",
		"board", dev.deps.Board.Name,
		"transport", settings.Transport.URL,
		"admin_address", listenAddress,
	)

	// Run the control loop until shutdown.
	runErr := app.Run(ctx)

	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return errors.Join(runErr, err)
	}

	return runErr
}

// serveAdmin runs the gRPC admin endpoint until ctx is canceled.
func serveAdmin(ctx context.Context, listenAddress string, svc api.Service) error {
	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Create and configure gRPC server with the device service.
	grpcServer := grpc.NewServer()
	pb.RegisterDeviceServiceServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Admin endpoint listening", "listen_address", listenAddress)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down admin endpoint")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Admin endpoint stopped")

	return nil
}

// resolveListenAddress determines the admin listen address.
// An override wins; an empty result disables the endpoint.
func resolveListenAddress(configAddr, override string) string {
	if override != "" {
		return override
	}

	return configAddr
}
