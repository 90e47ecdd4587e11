package power

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRebootCommand picks the platform reboot command.
func TestRebootCommand(t *testing.T) {
	t.Parallel()

	name, args, err := rebootCommand("linux")
	require.NoError(t, err)
	require.Equal(t, "shutdown", name)
	require.Equal(t, []string{"-r", "now"}, args)

	name, args, err = rebootCommand("windows")
	require.NoError(t, err)
	require.Equal(t, "shutdown.exe", name)
	require.Equal(t, []string{"-r", "-f", "-t", "0"}, args)

	_, _, err = rebootCommand("plan9")
	require.ErrorIs(t, err, ErrUnsupportedOS)
}
