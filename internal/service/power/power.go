package power

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// windowsRebootTimeout is the delay in seconds for the Windows reboot command.
const windowsRebootTimeout = "0"

// ErrUnsupportedOS indicates the current OS is not supported for reboot.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Reboot restarts the host using common, built-in tools:
// - Linux/macOS: `shutdown -r now`
// - Windows:     `shutdown.exe -r -f -t 0` (force, no delay)
// The command is started asynchronously; the OS takes over the rest.
func Reboot(ctx context.Context) error {
	name, args, err := rebootCommand(runtime.GOOS)
	if err != nil {
		return err
	}

	return exec.CommandContext(ctx, name, args...).Start()
}

// rebootCommand returns the reboot command line for goos.
func rebootCommand(goos string) (string, []string, error) {
	osName := strings.ToLower(goos)

	switch {
	case strings.Contains(osName, "linux") || strings.Contains(osName, "darwin"):
		return "shutdown", []string{"-r", "now"}, nil
	case strings.Contains(osName, "windows"):
		return "shutdown.exe", []string{"-r", "-f", "-t", windowsRebootTimeout}, nil
	default:
		return "", nil, fmt.Errorf("unsupported operating system: %s: %w", goos, ErrUnsupportedOS)
	}
}
