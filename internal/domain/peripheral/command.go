package peripheral

// Device is a switchable classroom peripheral.
type Device string

// Switchable devices.
const (
	DeviceLamp   Device = "lamp"
	DevicePlug   Device = "smart_plug1"
	DeviceLED    Device = "led"
	DeviceBuzzer Device = "beep"
)

// Devices lists every switchable device in status report order.
func Devices() []Device {
	return []Device{DeviceLamp, DevicePlug, DeviceLED, DeviceBuzzer}
}

// Label is the human name of the device.
func (d Device) Label() string {
	switch d {
	case DeviceLamp:
		return "classroom light"
	case DevicePlug:
		return "smart plug 1"
	case DeviceLED:
		return "LED indicator"
	case DeviceBuzzer:
		return "buzzer"
	default:
		return string(d)
	}
}

// Command returns the controller payload switching d on or off.
func (d Device) Command(on bool) string {
	switch d {
	case DeviceLamp:
		return pick(on, "e", "f")
	case DevicePlug:
		return pick(on, "a1", "b1")
	case DeviceLED:
		return pick(on, "a", "b")
	case DeviceBuzzer:
		return pick(on, "c", "d")
	default:
		return ""
	}
}

// IsOn reads the device from s.
func (d Device) IsOn(s *Snapshot) bool {
	switch d {
	case DeviceLamp:
		return s.LampOn
	case DevicePlug:
		return s.PlugOn
	case DeviceLED:
		return s.LEDOn
	case DeviceBuzzer:
		return s.BuzzerOn
	default:
		return false
	}
}

// Set writes the device into s.
func (d Device) Set(s *Snapshot, on bool) {
	switch d {
	case DeviceLamp:
		s.LampOn = on
	case DevicePlug:
		s.PlugOn = on
	case DeviceLED:
		s.LEDOn = on
	case DeviceBuzzer:
		s.BuzzerOn = on
	}
}

// ParseDevice converts a name into a Device.
func ParseDevice(name string) (Device, bool) {
	for _, d := range Devices() {
		if string(d) == name {
			return d, true
		}
	}

	return "", false
}

// ApplyEcho syncs s from a command seen on the command topic.
// It reports whether the payload was a known command.
func ApplyEcho(s *Snapshot, payload string) bool {
	for _, d := range Devices() {
		switch payload {
		case d.Command(true):
			d.Set(s, true)

			return true
		case d.Command(false):
			d.Set(s, false)

			return true
		}
	}

	return false
}

// CarMove is a smart car command.
type CarMove string

// Car commands.
const (
	CarForward   CarMove = "e"
	CarBackward  CarMove = "b"
	CarTurnLeft  CarMove = "l"
	CarTurnRight CarMove = "r"
	CarStop      CarMove = "c"
)

func pick(on bool, yes, no string) string {
	if on {
		return yes
	}

	return no
}
