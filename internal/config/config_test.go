package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing transport URL.
	require.ErrorIs(t, Validate(new(Config)), errTransportURLRequired)

	// Nil config.
	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	// Unknown AEC mode.
	cfg := &Config{
		Transport: Transport{URL: "ws://127.0.0.1:8000/xiaozhi/v1/"},
		Device:    Device{AecMode: "loud"},
	}
	require.ErrorIs(t, Validate(cfg), errUnknownAecMode)

	// Peripherals without a broker.
	cfg = &Config{
		Transport:   Transport{URL: "ws://127.0.0.1:8000/xiaozhi/v1/"},
		Peripherals: Peripherals{Enabled: true},
	}
	require.ErrorIs(t, Validate(cfg), errBrokerURLRequired)

	// Bad admin address.
	cfg = &Config{
		Transport: Transport{URL: "ws://127.0.0.1:8000/xiaozhi/v1/"},
		Admin:     Admin{ListenAddress: "bad:address"},
	}
	require.Error(t, Validate(cfg))

	// Budget smaller than one worker.
	cfg = &Config{
		Transport: Transport{URL: "ws://127.0.0.1:8000/xiaozhi/v1/"},
		Tools:     Tools{DefaultStackSize: 8192, TotalStackBudget: 4096},
	}
	require.ErrorIs(t, Validate(cfg), errInvalidToolBudget)
}

// TestValidateDefaults ensures a minimal file gets every default filled in.
func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{Transport: Transport{URL: "wss://api.example.com/v1/"}}
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultTimezone, cfg.Device.Timezone)
	require.Equal(t, AecOff, cfg.Device.AecMode)
	require.Equal(t, DefaultIdleTimeout, cfg.Transport.IdleTimeout)
	require.Equal(t, DefaultMaxListPayload, cfg.Tools.MaxListPayload)
	require.Equal(t, DefaultStackSize, cfg.Tools.DefaultStackSize)
	require.Equal(t, DefaultTopicPrefix, cfg.Peripherals.TopicPrefix)
	require.Equal(t, DefaultCarTopicPrefix, cfg.Peripherals.CarTopicPrefix)
	require.Equal(t, DefaultQueryDelay, cfg.Peripherals.QueryDelay)
	require.Equal(t, "Asia/Shanghai", cfg.Location().String())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "device-core.yaml")

	cfg := &Config{
		Device: Device{
			Board:           "classroom-s3",
			FirmwareVersion: "2.1.0",
			AecMode:         AecServer,
		},
		Transport: Transport{URL: "ws://10.0.0.2:8000/xiaozhi/v1/"},
		Peripherals: Peripherals{
			Enabled:   true,
			BrokerURL: "ws://itmojun.com:8083/mqtt",
		},
		Admin: Admin{ListenAddress: "127.0.0.1:50051"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Device.Board, loaded.Device.Board)
	require.Equal(t, AecServer, loaded.Device.AecMode)
	require.Equal(t, cfg.Transport.URL, loaded.Transport.URL)
	require.Equal(t, cfg.Peripherals.BrokerURL, loaded.Peripherals.BrokerURL)
	require.Equal(t, cfg.Admin.ListenAddress, loaded.Admin.ListenAddress)

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.ErrorIs(t, Save(path, nil), errConfigIsNotSet)
}
