//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another process runs the same executable.
var ErrAlreadyRunning = errors.New("another instance is already running")

// processLister returns the processes of the host.
type processLister func() ([]ps.Process, error)

// EnsureSingleInstance fails when another process runs the current executable.
// Two cores would fight over the audio device and the session channel.
func EnsureSingleInstance() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	return ensureSingle(ps.Processes, os.Getpid(), filepath.Base(executable))
}

func ensureSingle(list processLister, self int, name string) error {
	processList, err := list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	for _, process := range processList {
		if process.Pid() == self {
			continue
		}

		if process.Executable() != name {
			continue
		}

		return fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, name, process.Pid())
	}

	return nil
}
