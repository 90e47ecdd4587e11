package peripheral

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LightScale is the full scale of the light sensor ADC; intensity is inverted.
const LightScale = 4095

// CarStatusTTL is how long a car readiness report stays valid.
const CarStatusTTL = 10 * time.Second

// ErrMalformedPayload is returned for a controller payload that cannot be parsed.
var ErrMalformedPayload = errors.New("malformed peripheral payload")

// Snapshot is the last known peripheral state. Every field is last-write-wins.
type Snapshot struct {
	// LampOn is the classroom light.
	LampOn bool
	// PlugOn is smart plug 1 (the fan).
	PlugOn bool
	// LEDOn is the LED indicator.
	LEDOn bool
	// BuzzerOn is the buzzer.
	BuzzerOn bool
	// Temperature is in degrees Celsius.
	Temperature float64
	// Humidity is relative humidity in percent.
	Humidity float64
	// HasClimate is set once a DHT11 reading arrived.
	HasClimate bool
	// LightIntensity is 0 (dark) to LightScale (bright).
	LightIntensity int
	// HasLight is set once a light reading arrived.
	HasLight bool
	// Car is the smart car readiness.
	Car CarStatus
	// UpdatedAt is the time of the last change.
	UpdatedAt time.Time
}

// CarStatus is the smart car readiness report.
type CarStatus struct {
	// Ready is true when the car reported a numeric reading.
	Ready bool
	// UpdatedAt is the time of the report, zero before the first one.
	UpdatedAt time.Time
}

// Fresh reports whether the status is recent enough to trust at now.
func (c CarStatus) Fresh(now time.Time) bool {
	return !c.UpdatedAt.IsZero() && now.Sub(c.UpdatedAt) < CarStatusTTL
}

// Clone returns a copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// OnOff renders a switch state for tool replies.
func OnOff(on bool) string {
	if on {
		return "on"
	}

	return "off"
}

// ParseClimate parses a DHT11 "T_H" payload.
func ParseClimate(data string) (temperature, humidity float64, err error) {
	t, h, ok := strings.Cut(strings.TrimSpace(data), "_")
	if !ok {
		return 0, 0, fmt.Errorf("%w: climate %q", ErrMalformedPayload, data)
	}

	temperature, err = strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: climate %q", ErrMalformedPayload, data)
	}

	humidity, err = strconv.ParseFloat(h, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: climate %q", ErrMalformedPayload, data)
	}

	return temperature, humidity, nil
}

// ParseLight converts a raw ADC reading into an intensity.
func ParseLight(data string) (int, error) {
	raw, err := strconv.Atoi(strings.TrimSpace(data))
	if err != nil {
		return 0, fmt.Errorf("%w: light %q", ErrMalformedPayload, data)
	}

	return LightScale - raw, nil
}

// ParseCarReadiness reads a car sensor payload. A payload mentioning
// "waiting" means not ready; otherwise the last space separated field must
// be a number.
func ParseCarReadiness(data string) bool {
	if strings.Contains(strings.ToLower(data), "waiting") {
		return false
	}

	field := strings.TrimSpace(data)
	if _, tail, ok := strings.Cut(field, " "); ok {
		field = strings.TrimSpace(tail)
	}

	_, err := strconv.ParseFloat(field, 64)

	return err == nil
}

// TemperatureNote qualifies a temperature reading for spoken replies.
func TemperatureNote(celsius float64) string {
	if celsius > 30 {
		return "too hot"
	}

	return "normal"
}

// HumidityNote qualifies a humidity reading for spoken replies.
func HumidityNote(percent float64) string {
	switch {
	case percent > 70:
		return "too humid"
	case percent < 30:
		return "too dry"
	default:
		return "normal"
	}
}

// LightNote qualifies a light intensity for spoken replies.
func LightNote(intensity int) string {
	switch {
	case intensity < 100:
		return "too dark"
	case intensity > 1000:
		return "too bright"
	default:
		return "normal"
	}
}
