package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oshokin/device-core/internal/board"
	"github.com/oshokin/device-core/internal/domain/alarm"
	domain "github.com/oshokin/device-core/internal/domain/peripheral"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/mcp"
)

// Tool names referenced outside the catalog.
const (
	ToolClassroomLight = "self.classroom_light.set_status"
	ToolSmartPlug      = "self.smart_plug1.set_status"
	ToolLEDIndicator   = "self.led_indicator.set_status"
	ToolBuzzer         = "self.buzzer.set_status"
	ToolClimate        = "self.dht11_sensor.get_data"
	ToolLightSensor    = "self.light_sensor.get_intensity"
	ToolDeviceStatus   = "self.devices.get_status"
	ToolAllStatus      = "self.devices.get_all_status"
	ToolDeviceInfo     = "self.get_device_status"
	ToolSetVolume      = "self.audio_speaker.set_volume"
	ToolSetBrightness  = "self.screen.set_brightness"
	ToolSetTheme       = "self.screen.set_theme"
	ToolPlaySong       = "self.music.play_song"
	ToolMusicDisplay   = "self.music.set_display_mode"
)

// Status sweep timings of the all-devices query.
const (
	sweepGap    = 50 * time.Millisecond
	sweepSettle = 400 * time.Millisecond
)

// ErrInvalidStatus is returned for a switch status other than on or off.
var ErrInvalidStatus = errors.New("status must be 'on' or 'off'")

// Classroom is the classroom controller.
type Classroom interface {
	Switch(ctx context.Context, device domain.Device, on bool) error
	Query(ctx context.Context, what string) error
	Snapshot(ctx context.Context) *domain.Snapshot
}

// Car is the smart car controller.
type Car interface {
	Move(ctx context.Context, move domain.CarMove) error
	Status(ctx context.Context) (domain.CarStatus, bool)
}

// Alarms is the alarm list.
type Alarms interface {
	Add(ctx context.Context, entry alarm.Entry) (int, error)
	AddAfter(ctx context.Context, offset time.Duration, entry alarm.Entry) (int, error)
	List() []*alarm.Entry
	Remove(ctx context.Context, index int) (*alarm.Entry, error)
	Clear(ctx context.Context) int
	SetEnabled(ctx context.Context, index int, enabled bool) error
}

// StatusReporter describes the device for self.get_device_status.
type StatusReporter interface {
	DeviceStatus(ctx context.Context) map[string]any
}

// Option customizes a Catalog.
type Option func(*Catalog)

// WithClassroom enables the classroom tools. Sensor tools wait queryDelay
// for a fresh reading after asking the controller.
func WithClassroom(classroom Classroom, queryDelay time.Duration) Option {
	return func(c *Catalog) {
		c.classroom = classroom
		c.queryDelay = queryDelay
	}
}

// WithCar enables the smart car tools.
func WithCar(car Car) Option {
	return func(c *Catalog) {
		c.car = car
	}
}

// WithBoard enables the board tools its peripherals support.
func WithBoard(b *board.Board) Option {
	return func(c *Catalog) {
		c.board = b
	}
}

// WithAlarms enables the alarm tools.
func WithAlarms(alarms Alarms) Option {
	return func(c *Catalog) {
		c.alarms = alarms
	}
}

// WithStatusReporter enables self.get_device_status.
func WithStatusReporter(status StatusReporter) Option {
	return func(c *Catalog) {
		c.status = status
	}
}

// Catalog assembles the tools of the enabled components.
type Catalog struct {
	// classroom is nil when the classroom controller is disabled.
	classroom Classroom
	// queryDelay is the settle time after a sensor query.
	queryDelay time.Duration
	// car is nil without a car broker.
	car Car
	// board provides speaker, screen and music tools.
	board *board.Board
	// alarms is nil when alarms are disabled.
	alarms Alarms
	// status describes the device.
	status StatusReporter
}

// New builds a catalog.
func New(opts ...Option) *Catalog {
	c := new(Catalog)
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Common returns the frequently used tools, listed first.
func (c *Catalog) Common() []*mcp.Tool {
	var tools []*mcp.Tool

	if c.classroom != nil {
		tools = append(tools, c.classroomTools()...)
	}

	if c.car != nil {
		tools = append(tools, c.carTools()...)
	}

	if c.status != nil {
		tools = append(tools, mcp.MustTool(ToolDeviceInfo,
			"Provides the real-time information of the device, including the current status of the "+
				"audio speaker, screen and network.\n"+
				"Use this tool for: \n"+
				"1. Answering questions about current condition (e.g. what is the current volume of the audio speaker?)\n"+
				"2. As the first step to control the device (e.g. turn up / down the volume of the audio speaker, etc.)",
			nil,
			c.deviceInfo,
		))
	}

	if c.board != nil {
		tools = append(tools, c.boardTools()...)
	}

	return tools
}

// Alarm returns the alarm configuration tools.
func (c *Catalog) Alarm() []*mcp.Tool {
	if c.alarms == nil {
		return nil
	}

	return c.alarmTools()
}

// Register puts the common tools at the front of registry and appends the
// alarm tools. It returns how many tools were added.
func (c *Catalog) Register(ctx context.Context, registry *mcp.Registry) int {
	added := registry.Prepend(ctx, c.Common()...)
	added += registry.Register(ctx, c.Alarm()...)

	logger.InfoKV(ctx, "tool catalog registered", "added", added, "total", registry.Len())

	return added
}

func (c *Catalog) deviceInfo(ctx context.Context, _ mcp.Arguments) (mcp.Value, error) {
	data, err := json.Marshal(c.status.DeviceStatus(ctx))
	if err != nil {
		return mcp.Value{}, err
	}

	return mcp.Text(string(data)), nil
}

// result renders a tool reply object.
func result(success bool, message string, extra ...any) mcp.Value {
	fields := map[string]any{
		"success": success,
		"message": message,
	}

	for i := 0; i+1 < len(extra); i += 2 {
		if key, ok := extra[i].(string); ok {
			fields[key] = extra[i+1]
		}
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return mcp.Text(`{"success": false, "message": "failed to encode reply"}`)
	}

	return mcp.Text(string(data))
}

// pause waits d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
