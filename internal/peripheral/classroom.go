package peripheral

import (
	"context"
	"strings"
	"sync"

	domain "github.com/oshokin/device-core/internal/domain/peripheral"
	"github.com/oshokin/device-core/internal/logger"
	"github.com/oshokin/device-core/internal/repository/snapshot"
)

// plugQuery asks smart plug 1 to report its state.
const plugQuery = "q1"

// Classroom controls the classroom controller: lamp, plug, LED, buzzer and sensors.
type Classroom struct {
	// prefix is the controller topic root.
	prefix string
	// repo receives state updates.
	repo snapshot.Repository
	// mu guards publisher.
	mu sync.RWMutex
	// publisher is the broker link, nil until attached.
	publisher Publisher
}

// NewClassroom returns a controller for topic root prefix.
func NewClassroom(prefix string, repo snapshot.Repository) *Classroom {
	return &Classroom{prefix: prefix, repo: repo}
}

// Attach sets the broker link.
func (c *Classroom) Attach(publisher Publisher) {
	c.mu.Lock()
	c.publisher = publisher
	c.mu.Unlock()
}

// Snapshot returns the last known state.
func (c *Classroom) Snapshot(ctx context.Context) *domain.Snapshot {
	return c.repo.Load(ctx)
}

// Switch turns device on or off.
func (c *Classroom) Switch(ctx context.Context, device domain.Device, on bool) error {
	topic := c.prefix + "/cmd"
	if device == domain.DevicePlug {
		topic = c.plugTopic()
	}

	return c.publish(ctx, topic, device.Command(on))
}

// Query asks the controller to report a sensor or device state.
func (c *Classroom) Query(ctx context.Context, what string) error {
	if what == string(domain.DevicePlug) {
		return c.publish(ctx, c.plugTopic(), plugQuery)
	}

	return c.publish(ctx, c.prefix+"/cmd/query", what)
}

// Subscriptions implements Handler.
func (c *Classroom) Subscriptions() []string {
	return []string{
		c.prefix + "/sensor/+",
		c.prefix + "/state/+",
		c.prefix + "/cmd",
		c.plugTopic(),
	}
}

// OnConnect implements Handler.
func (c *Classroom) OnConnect(ctx context.Context, publisher Publisher) {
	c.Attach(publisher)

	if err := c.Query(ctx, string(domain.DevicePlug)); err != nil {
		logger.WarnKV(ctx, "failed to query smart plug", "error", err)
	}
}

// HandleMessage implements Handler.
func (c *Classroom) HandleMessage(ctx context.Context, topic, payload string) {
	name, ok := strings.CutPrefix(topic, c.prefix+"/")
	if !ok {
		return
	}

	switch {
	case name == "sensor/dht11":
		temperature, humidity, err := domain.ParseClimate(payload)
		if err != nil {
			logger.WarnKV(ctx, "failed to parse climate reading", "error", err)

			return
		}

		c.repo.Update(ctx, func(s *domain.Snapshot) {
			s.Temperature, s.Humidity, s.HasClimate = temperature, humidity, true
		})
	case name == "sensor/light":
		intensity, err := domain.ParseLight(payload)
		if err != nil {
			logger.WarnKV(ctx, "failed to parse light reading", "error", err)

			return
		}

		c.repo.Update(ctx, func(s *domain.Snapshot) {
			s.LightIntensity, s.HasLight = intensity, true
		})
	case strings.HasPrefix(name, "state/"):
		c.applyState(ctx, strings.TrimPrefix(name, "state/"), payload)
	case name == "cmd", topic == c.plugTopic():
		c.repo.Update(ctx, func(s *domain.Snapshot) {
			if domain.ApplyEcho(s, payload) {
				logger.DebugKV(ctx, "state synced from command", "payload", payload)
			}
		})
	}
}

func (c *Classroom) applyState(ctx context.Context, name, payload string) {
	var (
		device domain.Device
		on     bool
	)

	switch name {
	case "lamp":
		device, on = domain.DeviceLamp, payload == "1"
	case "smart_plug_1":
		device, on = domain.DevicePlug, payload == "n1"
	case "led":
		device, on = domain.DeviceLED, payload == "1"
	case "beep":
		device, on = domain.DeviceBuzzer, payload == "1"
	default:
		return
	}

	c.repo.Update(ctx, func(s *domain.Snapshot) {
		if device.IsOn(s) != on {
			logger.InfoKV(ctx, "peripheral state changed", "device", string(device), "on", on)
		}

		device.Set(s, on)
	})
}

func (c *Classroom) plugTopic() string {
	return c.prefix + "/smart_plug/cmd/1"
}

func (c *Classroom) publish(ctx context.Context, topic, payload string) error {
	c.mu.RLock()
	p := c.publisher
	c.mu.RUnlock()

	if p == nil {
		return ErrNotReady
	}

	return p.Publish(ctx, topic, payload)
}
