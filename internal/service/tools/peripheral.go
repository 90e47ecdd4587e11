package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/oshokin/device-core/internal/domain/peripheral"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/mcp"
	"github.com/oshokin/device-core/internal/peripheral"
)

// sweepQueries are asked in order by the all-devices status tool.
//
//nolint:gochecknoglobals // Immutable lookup table.
var sweepQueries = []string{"lamp", "led", "beep", "dht11", "light"}

// switchTool describes one switchable device tool.
type switchTool struct {
	// name is the tool name.
	name string
	// device is the controlled peripheral.
	device domain.Device
	// description is shown to the agent.
	description string
}

//nolint:gochecknoglobals // Immutable lookup table.
var switchTools = []switchTool{
	{
		name:   ToolClassroomLight,
		device: domain.DeviceLamp,
		description: "Turns the classroom main light on or off. Call this tool whenever the user asks " +
			"to switch the light, a spoken reply alone does not change anything.",
	},
	{
		name:   ToolSmartPlug,
		device: domain.DevicePlug,
		description: "Turns smart plug 1 (usually the fan) on or off. Call this tool whenever the user " +
			"asks to control the fan or plug 1.",
	},
	{
		name:   ToolLEDIndicator,
		device: domain.DeviceLED,
		description: "Turns the LED indicator on or off. Call this tool whenever the user asks " +
			"to control the LED.",
	},
	{
		name:   ToolBuzzer,
		device: domain.DeviceBuzzer,
		description: "Turns the buzzer alarm on or off. Call this tool whenever the user asks to sound " +
			"the alarm, switch the buzzer or silence it.",
	},
}

func (c *Catalog) classroomTools() []*mcp.Tool {
	tools := make([]*mcp.Tool, 0, len(switchTools)+4)

	for _, st := range switchTools {
		tools = append(tools, mcp.MustTool(st.name, st.description,
			[]mcp.Property{
				mcp.MustProperty("status", mcp.KindString,
					mcp.WithDescription("'on' switches the device on, 'off' switches it off.")),
			},
			c.switchHandler(st.device),
		))
	}

	return append(tools,
		mcp.MustTool(ToolClimate,
			"Reads the current classroom temperature and humidity. The hardware is asked for a fresh reading.",
			nil,
			c.climate,
		),
		mcp.MustTool(ToolLightSensor,
			"Reads the current classroom light intensity. The hardware is asked for a fresh reading.",
			nil,
			c.light,
		),
		mcp.MustTool(ToolDeviceStatus,
			"Reads the current state of one classroom device. The hardware is asked for a fresh reading.",
			[]mcp.Property{
				mcp.MustProperty("device", mcp.KindString,
					mcp.WithDescription("Device name: lamp, smart_plug1, led, beep")),
			},
			c.deviceState,
		),
		mcp.MustTool(ToolAllStatus,
			"Reads the state of every classroom device and sensor. The hardware is asked for fresh readings.",
			nil,
			c.allStatus,
		),
	)
}

// ParseStatus converts an on/off argument.
func ParseStatus(status string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
}

func (c *Catalog) switchHandler(device domain.Device) mcp.Handler {
	return func(ctx context.Context, args mcp.Arguments) (mcp.Value, error) {
		on, err := ParseStatus(args.String("status"))
		if err != nil {
			return mcp.Value{}, err
		}

		logger.InfoKV(ctx, "switching device", "device", string(device), "status", domain.OnOff(on))

		if err := c.classroom.Switch(ctx, device, on); err != nil {
			return notReady(err)
		}

		return result(true, fmt.Sprintf("OK, the %s is now %s", device.Label(), domain.OnOff(on))), nil
	}
}

func (c *Catalog) climate(ctx context.Context, _ mcp.Arguments) (mcp.Value, error) {
	c.query(ctx, "dht11")

	s := c.classroom.Snapshot(ctx)
	if !s.HasClimate {
		return result(false, "No temperature and humidity data yet, check the hardware"), nil
	}

	return result(true, fmt.Sprintf("The temperature is %.1f degrees (%s), the humidity is %.1f%% (%s)",
		s.Temperature, domain.TemperatureNote(s.Temperature),
		s.Humidity, domain.HumidityNote(s.Humidity),
	)), nil
}

func (c *Catalog) light(ctx context.Context, _ mcp.Arguments) (mcp.Value, error) {
	c.query(ctx, "light")

	s := c.classroom.Snapshot(ctx)
	if !s.HasLight {
		return result(false, "No light data yet, check the hardware"), nil
	}

	return result(true, fmt.Sprintf("The light intensity is %d (%s)",
		s.LightIntensity, domain.LightNote(s.LightIntensity))), nil
}

func (c *Catalog) deviceState(ctx context.Context, args mcp.Arguments) (mcp.Value, error) {
	device, ok := domain.ParseDevice(args.String("device"))
	if !ok {
		return result(false, "Unknown device type"), nil
	}

	c.query(ctx, string(device))

	s := c.classroom.Snapshot(ctx)

	return result(true, fmt.Sprintf("The %s is currently %s", device.Label(), domain.OnOff(device.IsOn(s)))), nil
}

func (c *Catalog) allStatus(ctx context.Context, _ mcp.Arguments) (mcp.Value, error) {
	for _, q := range sweepQueries {
		if err := c.classroom.Query(ctx, q); err != nil {
			logger.WarnKV(ctx, "status sweep query failed", "query", q, "error", err)

			break
		}

		pause(ctx, sweepGap)
	}

	if err := c.classroom.Query(ctx, string(domain.DevicePlug)); err == nil {
		pause(ctx, sweepSettle)
	}

	return result(true, Summary(c.classroom.Snapshot(ctx))), nil
}

// Summary renders every device and sensor of s, one per line.
func Summary(s *domain.Snapshot) string {
	var b strings.Builder

	b.WriteString("Classroom status:\n")

	for _, d := range domain.Devices() {
		fmt.Fprintf(&b, "%s: %s\n", d.Label(), domain.OnOff(d.IsOn(s)))
	}

	if s.HasClimate {
		fmt.Fprintf(&b, "temperature: %.1f, humidity: %.1f%%\n", s.Temperature, s.Humidity)
	}

	if s.HasLight {
		fmt.Fprintf(&b, "light intensity: %d\n", s.LightIntensity)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// query asks for a fresh reading and waits for it to settle.
func (c *Catalog) query(ctx context.Context, what string) {
	if err := c.classroom.Query(ctx, what); err != nil {
		logger.WarnKV(ctx, "peripheral query failed", "query", what, "error", err)

		return
	}

	pause(ctx, c.queryDelay)
}

// carMove describes one smart car drive tool.
type carMove struct {
	// name is the tool name.
	name string
	// move is the car command.
	move domain.CarMove
	// description is shown to the agent.
	description string
	// reply is the success message.
	reply string
}

//nolint:gochecknoglobals // Immutable lookup table.
var carMoves = []carMove{
	{
		name:        "self.smart_car.forward",
		move:        domain.CarForward,
		description: "Drives the smart car forward until a stop command. Call it when the user says 'go forward'.",
		reply:       "OK, the car is moving forward until told to stop",
	},
	{
		name:        "self.smart_car.backward",
		move:        domain.CarBackward,
		description: "Drives the smart car backward until a stop command. Call it when the user says 'back up'.",
		reply:       "OK, the car is moving backward until told to stop",
	},
	{
		name:        "self.smart_car.turn_left",
		move:        domain.CarTurnLeft,
		description: "Turns the smart car left until a stop command. Call it when the user says 'turn left'.",
		reply:       "OK, the car is turning left until told to stop",
	},
	{
		name:        "self.smart_car.turn_right",
		move:        domain.CarTurnRight,
		description: "Turns the smart car right until a stop command. Call it when the user says 'turn right'.",
		reply:       "OK, the car is turning right until told to stop",
	},
	{
		name:        "self.smart_car.stop",
		move:        domain.CarStop,
		description: "Stops the smart car. Call it when the user says 'stop' or 'halt'.",
		reply:       "OK, the car has stopped",
	},
}

func (c *Catalog) carTools() []*mcp.Tool {
	tools := make([]*mcp.Tool, 0, len(carMoves)+2)

	for _, cm := range carMoves {
		tools = append(tools, mcp.MustTool(cm.name, cm.description, nil,
			func(ctx context.Context, _ mcp.Arguments) (mcp.Value, error) {
				if err := c.car.Move(ctx, cm.move); err != nil {
					return notReady(err)
				}

				return result(true, cm.reply), nil
			},
		))
	}

	return append(tools,
		mcp.MustTool("self.smart_car.get_status",
			"Reads the smart car status. Use it when the user asks whether the car is ready to drive.",
			nil,
			c.carStatus,
		),
		mcp.MustTool("self.smart_car.check_ready",
			"Checks whether the smart car can be driven. Call it before moving the car.",
			nil,
			c.carReady,
		),
	)
}

func (c *Catalog) carStatus(ctx context.Context, _ mcp.Arguments) (mcp.Value, error) {
	status, fresh := c.car.Status(ctx)
	if !fresh {
		return result(false, "The car status is stale, try again later", "status", "unknown"), nil
	}

	if status.Ready {
		return result(true, "The car is ready for commands", "status", "ready"), nil
	}

	return result(true, "The car is not ready, wait for it to finish starting", "status", "not_ready"), nil
}

func (c *Catalog) carReady(ctx context.Context, _ mcp.Arguments) (mcp.Value, error) {
	status, fresh := c.car.Status(ctx)

	switch {
	case !fresh:
		return result(false, "The car status is stale, readiness is unknown", "ready", false), nil
	case status.Ready:
		return result(true, "The car is ready", "ready", true), nil
	default:
		return result(false, "The car is not ready, wait for it to finish starting", "ready", false), nil
	}
}

// notReady turns a broker failure into a reply. Only a missing link is an
// expected condition; anything else fails the call.
func notReady(err error) (mcp.Value, error) {
	if errors.Is(err, peripheral.ErrNotReady) {
		return result(false, err.Error()), nil
	}

	return mcp.Value{}, err
}
