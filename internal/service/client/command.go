package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/device-core/internal/config"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/service/common"
)

// Options configures how device-ctl reaches the device core.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Address overrides the admin address from config when specified.
	Address string
	// Out receives command output; stdout when nil.
	Out io.Writer
}

// defaultPollInterval defines the delay between status polls while waiting for a state.
const defaultPollInterval = 1 * time.Second

var (
	// ErrNoAdminAddress is returned when neither config nor flags name the admin endpoint.
	ErrNoAdminAddress = errors.New("no admin address configured")
	// errInvalidArguments is returned when tool arguments are not a JSON object.
	errInvalidArguments = errors.New("tool arguments must be a JSON object")
)

// api is the part of common.Client the commands use.
type api interface {
	ListTools(ctx context.Context, cursor string) (map[string]any, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (map[string]any, error)
	Status(ctx context.Context) (map[string]any, error)
	Control(ctx context.Context, action, text string) error
	Close() error
}

// connect dials the admin endpoint named by opts or the settings file.
func connect(ctx context.Context, opts *Options) (api, error) {
	address := opts.Address
	timeout := config.DefaultAdminTimeout

	// The settings file is optional when the address is given on the command line.
	cfg, err := config.Load(opts.ConfigPath)
	switch {
	case err == nil:
		if address == "" {
			address = cfg.Admin.ListenAddress
		}

		timeout = cfg.Admin.Timeout
	case address == "":
		return nil, err
	default:
		logger.DebugKV(ctx, "Settings not loaded, using defaults", "error", err)
	}

	if address == "" {
		return nil, ErrNoAdminAddress
	}

	return common.Dial(ctx, address, common.WithCallTimeout(timeout))
}

// ListTools prints the tool catalog. With all set it follows nextCursor to the end.
func ListTools(ctx context.Context, opts *Options, all bool) error {
	return withClient(ctx, opts, func(c api) error {
		return listTools(ctx, c, output(opts), all)
	})
}

func listTools(ctx context.Context, c api, out io.Writer, all bool) error {
	cursor := ""

	for {
		reply, err := c.ListTools(ctx, cursor)
		if err != nil {
			return err
		}

		if err := printJSON(out, reply); err != nil {
			return err
		}

		result, _ := reply["result"].(map[string]any)
		next, _ := result["nextCursor"].(string)

		if !all || next == "" {
			return nil
		}

		cursor = next
	}
}

// CallTool calls a tool with JSON encoded arguments and prints the reply.
func CallTool(ctx context.Context, opts *Options, name, arguments string) error {
	args, err := parseArguments(arguments)
	if err != nil {
		return err
	}

	return withClient(ctx, opts, func(c api) error {
		reply, err := c.CallTool(ctx, name, args)
		if err != nil {
			return err
		}

		return printJSON(output(opts), reply)
	})
}

// State prints the device status. With waitFor set it polls until the device
// reaches that state or ctx ends.
func State(ctx context.Context, opts *Options, waitFor string) error {
	return withClient(ctx, opts, func(c api) error {
		return state(ctx, c, output(opts), waitFor, defaultPollInterval)
	})
}

func state(ctx context.Context, c api, out io.Writer, waitFor string, interval time.Duration) error {
	// attempt reads the status once, returns (completed, error).
	attempt := func() (bool, error) {
		status, err := c.Status(ctx)
		if err != nil {
			return false, err
		}

		if waitFor != "" && status["state"] != waitFor {
			logger.DebugKV(ctx, "Waiting for device state", "want", waitFor, "state", status["state"])

			return false, nil
		}

		return true, printJSON(out, status)
	}

	// Attempt immediately before starting the poll loop.
	if done, err := attempt(); err != nil || done {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := attempt()
			if err != nil || done {
				return err
			}
		}
	}
}

// Control sends a control action.
func Control(ctx context.Context, opts *Options, action, text string) error {
	return withClient(ctx, opts, func(c api) error {
		if err := c.Control(ctx, action, text); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Control action sent", "action", action)

		return nil
	})
}

func withClient(ctx context.Context, opts *Options, fn func(c api) error) error {
	c, err := connect(ctx, opts)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = c.Close()
	}()

	return fn(c)
}

func parseArguments(arguments string) (map[string]any, error) {
	if arguments == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args == nil {
		return nil, errInvalidArguments
	}

	return args, nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	_, err = fmt.Fprintln(out, string(data))

	return err
}

func output(opts *Options) io.Writer {
	if opts.Out != nil {
		return opts.Out
	}

	return os.Stdout
}
