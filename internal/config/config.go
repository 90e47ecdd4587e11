package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // Devices ship without a zoneinfo database.

	"gopkg.in/yaml.v3"
)

// Config is the device-core settings file.
type Config struct {
	// LogLevel is the initial zap level; the CLI flag overrides it.
	LogLevel string `yaml:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format"`
	// Device describes the board and its conversation behavior.
	Device Device `yaml:"device"`
	// Transport configures the session channel to the conversation server.
	Transport Transport `yaml:"transport"`
	// Peripherals configures the MQTT peripheral controllers.
	Peripherals Peripherals `yaml:"peripherals"`
	// Tools configures the tool dispatcher.
	Tools Tools `yaml:"tools"`
	// Admin configures the local gRPC admin endpoint.
	Admin Admin `yaml:"admin"`
}

// Device holds board identity and conversation behavior.
type Device struct {
	// Board is reported as serverInfo.name during tool initialization.
	Board string `yaml:"board"`
	// FirmwareVersion is reported as serverInfo.version.
	FirmwareVersion string `yaml:"firmware_version"`
	// Timezone is the IANA zone used for alarm evaluation.
	Timezone string `yaml:"timezone"`
	// AecMode is one of "off", "device" or "server".
	AecMode string `yaml:"aec_mode"`
	// WakeWordWhileSpeaking keeps wake word detection armed while speaking.
	WakeWordWhileSpeaking bool `yaml:"wake_word_while_speaking"`
	// AllowReboot lets the server's system/reboot command restart the host.
	AllowReboot bool `yaml:"allow_reboot"`
	// OutputSampleRate is the speaker codec rate in Hz.
	OutputSampleRate int `yaml:"output_sample_rate"`
	// Screen enables the backlight and theme tools.
	Screen bool `yaml:"screen"`
}

// Transport holds session channel parameters.
type Transport struct {
	// URL is the websocket endpoint of the conversation server.
	URL string `yaml:"url"`
	// AccessToken is sent as a bearer token when set.
	AccessToken string `yaml:"access_token"`
	// DeviceID identifies the device to the server; defaults to the hostname.
	DeviceID string `yaml:"device_id"`
	// ProtocolVersion is sent in the hello message and the handshake headers.
	ProtocolVersion int `yaml:"protocol_version"`
	// HandshakeTimeout bounds the websocket dial and the hello exchange.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	// IdleTimeout marks a channel unusable once nothing was received for this long;
	// the next conversation reopens it.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Peripherals holds MQTT controller parameters.
type Peripherals struct {
	// Enabled turns the MQTT controllers on.
	Enabled bool `yaml:"enabled"`
	// BrokerURL is the broker of the classroom controller (lamp, plug, LED, buzzer, sensors).
	BrokerURL string `yaml:"broker_url"`
	// TopicPrefix is the classroom controller topic root.
	TopicPrefix string `yaml:"topic_prefix"`
	// CarBrokerURL is the broker of the smart car; empty disables car tools.
	CarBrokerURL string `yaml:"car_broker_url"`
	// CarTopicPrefix is the smart car topic root.
	CarTopicPrefix string `yaml:"car_topic_prefix"`
	// Username authenticates both brokers when set.
	Username string `yaml:"username"`
	// Password authenticates both brokers when set.
	Password string `yaml:"password"`
	// QueryDelay is how long sensor tools wait for a fresh reading after a query.
	QueryDelay time.Duration `yaml:"query_delay"`
}

// Tools holds tool dispatcher parameters.
type Tools struct {
	// MaxListPayload is the byte budget of one tools/list page.
	MaxListPayload int `yaml:"max_list_payload"`
	// DefaultStackSize is the worker budget used when tools/call omits stackSize.
	DefaultStackSize int `yaml:"default_stack_size"`
	// TotalStackBudget bounds the summed budget of concurrently running workers.
	TotalStackBudget int `yaml:"total_stack_budget"`
}

// Admin holds the gRPC admin endpoint parameters.
type Admin struct {
	// ListenAddress is the gRPC listen address; empty disables the endpoint.
	ListenAddress string `yaml:"listen_address"`
	// Timeout bounds admin calls made by device-ctl.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default settings filename.
	DefaultConfigFilename = "device-core.yaml"

	// DefaultTimezone matches the deployment region of the classroom kits.
	DefaultTimezone = "Asia/Shanghai"

	// DefaultProtocolVersion is the session protocol version.
	DefaultProtocolVersion = 1

	// DefaultHandshakeTimeout bounds the session handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	// DefaultIdleTimeout is the session channel inactivity limit.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultOutputSampleRate is the codec playback rate.
	DefaultOutputSampleRate = 24000

	// DefaultTopicPrefix is the classroom controller topic root.
	DefaultTopicPrefix = "itmojun"

	// DefaultCarTopicPrefix is the smart car topic root.
	DefaultCarTopicPrefix = "itmoqing1"

	// DefaultQueryDelay is the settle time after a sensor query.
	DefaultQueryDelay = 300 * time.Millisecond

	// DefaultMaxListPayload is the tools/list page budget in bytes.
	DefaultMaxListPayload = 8000

	// DefaultStackSize is the per-call worker budget.
	DefaultStackSize = 6144

	// DefaultTotalStackBudget allows a handful of concurrent tool workers.
	DefaultTotalStackBudget = 16 * DefaultStackSize

	// DefaultAdminTimeout bounds admin RPCs.
	DefaultAdminTimeout = 5 * time.Second

	// DefaultFilePermissions is the permission used when saving settings.
	DefaultFilePermissions = 0o600
)

// AEC modes accepted by Device.AecMode.
const (
	AecOff    = "off"
	AecDevice = "device"
	AecServer = "server"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errTransportURLRequired is returned when the session endpoint is missing.
	errTransportURLRequired = errors.New("transport url must be provided")
	// errBrokerURLRequired is returned when peripherals are enabled without a broker.
	errBrokerURLRequired = errors.New("peripherals broker url must be provided")
	// errUnknownAecMode is returned for an unsupported AEC mode.
	errUnknownAecMode = errors.New("unknown aec mode")
	// errInvalidToolBudget is returned when tool budgets are inconsistent.
	errInvalidToolBudget = errors.New("tool stack budget is smaller than the default stack size")
)

// Load reads configuration from the provided path, applies defaults and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks required fields and formatting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if cfg.Transport.URL == "" {
		return errTransportURLRequired
	}

	if _, err := url.ParseRequestURI(cfg.Transport.URL); err != nil {
		return fmt.Errorf("invalid transport url: %w", err)
	}

	switch cfg.Device.AecMode {
	case AecOff, AecDevice, AecServer:
	default:
		return fmt.Errorf("%w: %q", errUnknownAecMode, cfg.Device.AecMode)
	}

	if _, err := time.LoadLocation(cfg.Device.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	if cfg.Tools.TotalStackBudget < cfg.Tools.DefaultStackSize {
		return errInvalidToolBudget
	}

	if cfg.Peripherals.Enabled {
		if cfg.Peripherals.BrokerURL == "" {
			return errBrokerURLRequired
		}

		if _, err := url.ParseRequestURI(cfg.Peripherals.BrokerURL); err != nil {
			return fmt.Errorf("invalid broker url: %w", err)
		}
	}

	if cfg.Admin.ListenAddress == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.Admin.ListenAddress); err != nil {
		return fmt.Errorf("invalid admin listen address: %w", err)
	}

	return nil
}

// Location returns the configured alarm time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Device.Timezone)
	if err != nil {
		return time.Local
	}

	return loc
}

func applyDefaults(cfg *Config) {
	if cfg.Device.Timezone == "" {
		cfg.Device.Timezone = DefaultTimezone
	}

	if cfg.Device.AecMode == "" {
		cfg.Device.AecMode = AecOff
	}

	if cfg.Device.OutputSampleRate <= 0 {
		cfg.Device.OutputSampleRate = DefaultOutputSampleRate
	}

	if cfg.Transport.ProtocolVersion <= 0 {
		cfg.Transport.ProtocolVersion = DefaultProtocolVersion
	}

	if cfg.Transport.HandshakeTimeout <= 0 {
		cfg.Transport.HandshakeTimeout = DefaultHandshakeTimeout
	}

	if cfg.Transport.IdleTimeout <= 0 {
		cfg.Transport.IdleTimeout = DefaultIdleTimeout
	}

	if cfg.Peripherals.TopicPrefix == "" {
		cfg.Peripherals.TopicPrefix = DefaultTopicPrefix
	}

	if cfg.Peripherals.CarTopicPrefix == "" {
		cfg.Peripherals.CarTopicPrefix = DefaultCarTopicPrefix
	}

	if cfg.Peripherals.QueryDelay <= 0 {
		cfg.Peripherals.QueryDelay = DefaultQueryDelay
	}

	if cfg.Tools.MaxListPayload <= 0 {
		cfg.Tools.MaxListPayload = DefaultMaxListPayload
	}

	if cfg.Tools.DefaultStackSize <= 0 {
		cfg.Tools.DefaultStackSize = DefaultStackSize
	}

	if cfg.Tools.TotalStackBudget <= 0 {
		cfg.Tools.TotalStackBudget = DefaultTotalStackBudget
	}

	if cfg.Admin.Timeout <= 0 {
		cfg.Admin.Timeout = DefaultAdminTimeout
	}
}
