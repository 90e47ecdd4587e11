package server

import (
	"context"
	"fmt"
	"os"

	"github.com/oshokin/device-core/internal/audio"
	"github.com/oshokin/device-core/internal/board"
	"github.com/oshokin/device-core/internal/config"
	"github.com/oshokin/device-core/internal/domain/device"
	"github.com/oshokin/device-core/internal/peripheral"
	"github.com/oshokin/device-core/internal/repository/snapshot"
	"github.com/oshokin/device-core/internal/service/core"
	"github.com/oshokin/device-core/internal/service/power"
	"github.com/oshokin/device-core/internal/transport/websocket"
	"github.com/oshokin/device-core/internal/version"
)

// components bundles the collaborators built from configuration.
type components struct {
	// deps are handed to the core.
	deps core.Dependencies
	// settings are handed to the core.
	settings core.Settings
	// links are the broker links to close on shutdown.
	links []*peripheral.Link
}

// newComponents builds the board, transport, audio pipeline and peripheral links.
func newComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	settings, err := coreSettings(cfg)
	if err != nil {
		return nil, err
	}

	deviceID, err := resolveDeviceID(cfg.Transport.DeviceID)
	if err != nil {
		return nil, err
	}

	var boardOpts []board.ConsoleOption
	if cfg.Device.Screen {
		boardOpts = append(boardOpts, board.WithScreen())
	}

	d := &components{
		settings: settings,
		deps: core.Dependencies{
			Board: board.NewConsole(ctx, cfg.Device.Board, cfg.Device.OutputSampleRate, boardOpts...),
			Transport: websocket.New(websocket.Config{
				URL:              cfg.Transport.URL,
				AccessToken:      cfg.Transport.AccessToken,
				DeviceID:         deviceID,
				ProtocolVersion:  cfg.Transport.ProtocolVersion,
				HandshakeTimeout: cfg.Transport.HandshakeTimeout,
				IdleTimeout:      cfg.Transport.IdleTimeout,
			}),
			Audio:  audio.NewHeadless(audio.Notifier{}),
			Reboot: power.Reboot,
		},
	}

	if !cfg.Peripherals.Enabled {
		return d, nil
	}

	// Classroom and car share one snapshot so status tools see both.
	repo := snapshot.NewMemoryRepository()
	p := cfg.Peripherals

	classroom := peripheral.NewClassroom(p.TopicPrefix, repo)
	link := peripheral.Dial(ctx, peripheral.LinkConfig{
		Name:      "classroom",
		BrokerURL: p.BrokerURL,
		ClientID:  deviceID + "-classroom",
		Username:  p.Username,
		Password:  p.Password,
	}, classroom)
	classroom.Attach(link)

	d.deps.Classroom = classroom
	d.links = append(d.links, link)

	if p.CarBrokerURL == "" {
		return d, nil
	}

	car := peripheral.NewCar(p.CarTopicPrefix, repo)
	carLink := peripheral.Dial(ctx, peripheral.LinkConfig{
		Name:      "car",
		BrokerURL: p.CarBrokerURL,
		ClientID:  deviceID + "-car",
		Username:  p.Username,
		Password:  p.Password,
	}, car)
	car.Attach(carLink)

	d.deps.Car = car
	d.links = append(d.links, carLink)

	return d, nil
}

// close disconnects the broker links.
func (d *components) close() {
	for _, link := range d.links {
		link.Close()
	}
}

// coreSettings converts configuration into core settings.
func coreSettings(cfg *config.Config) (core.Settings, error) {
	aec, err := device.ParseAecMode(cfg.Device.AecMode)
	if err != nil {
		return core.Settings{}, fmt.Errorf("aec mode: %w", err)
	}

	firmware := cfg.Device.FirmwareVersion
	if firmware == "" {
		firmware = version.Short()
	}

	return core.Settings{
		FirmwareVersion:       firmware,
		Location:              cfg.Location(),
		AecMode:               aec,
		WakeWordWhileSpeaking: cfg.Device.WakeWordWhileSpeaking,
		AllowReboot:           cfg.Device.AllowReboot,
		QueryDelay:            cfg.Peripherals.QueryDelay,
		ListBudget:            cfg.Tools.MaxListPayload,
		DefaultStackSize:      cfg.Tools.DefaultStackSize,
		TotalStackBudget:      cfg.Tools.TotalStackBudget,
	}, nil
}

// resolveDeviceID falls back to the hostname.
func resolveDeviceID(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	return hostname, nil
}
