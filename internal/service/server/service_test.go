package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/device-core/internal/config"
	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/version"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Device:    config.Device{Board: "classroom-kit", AecMode: config.AecServer, Timezone: "UTC"},
		Transport: config.Transport{URL: "ws://127.0.0.1:8000/device/"},
	}
	require.NoError(t, config.Validate(cfg))

	return cfg
}

// TestCoreSettings carries configuration into core settings.
func TestCoreSettings(t *testing.T) {
	t.Parallel()

	cfg := validConfig(t)
	cfg.Device.AllowReboot = true

	settings, err := coreSettings(cfg)
	require.NoError(t, err)
	require.Equal(t, version.Short(), settings.FirmwareVersion)
	require.Equal(t, device.AecOnServer, settings.AecMode)
	require.True(t, settings.AllowReboot)
	require.Equal(t, time.UTC.String(), settings.Location.String())
	require.Equal(t, config.DefaultMaxListPayload, settings.ListBudget)
	require.Equal(t, config.DefaultQueryDelay, settings.QueryDelay)

	cfg.Device.AecMode = "sideways"

	_, err = coreSettings(cfg)
	require.ErrorIs(t, err, device.ErrUnknownAecMode)
}

// TestNewComponentsWithoutPeripherals builds a core with only the board and transport.
func TestNewComponentsWithoutPeripherals(t *testing.T) {
	t.Parallel()

	cfg := validConfig(t)
	cfg.Device.Screen = true
	cfg.Transport.DeviceID = "aa:bb:cc"

	d, err := newComponents(t.Context(), cfg)
	require.NoError(t, err)

	defer d.close()

	require.Nil(t, d.deps.Classroom)
	require.Nil(t, d.deps.Car)
	require.NotNil(t, d.deps.Board.Backlight)
	require.Equal(t, "classroom-kit", d.deps.Board.Name)
	require.NotNil(t, d.deps.Reboot)
}

// TestResolveListenAddress prefers the override and allows disabling.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	require.Equal(t, ":9090", resolveListenAddress("127.0.0.1:7070", ":9090"))
	require.Equal(t, "127.0.0.1:7070", resolveListenAddress("127.0.0.1:7070", ""))
	require.Empty(t, resolveListenAddress("", ""))
}

// TestResolveDeviceID falls back to the hostname.
func TestResolveDeviceID(t *testing.T) {
	t.Parallel()

	id, err := resolveDeviceID("aa:bb:cc")
	require.NoError(t, err)
	require.Equal(t, "aa:bb:cc", id)

	id, err = resolveDeviceID("")
	require.NoError(t, err)
	require.NotEmpty(t, id)
}
