package device

import "errors"

var (
	// ErrUnknownState is returned when a state name cannot be parsed.
	ErrUnknownState = errors.New("unknown device state")
	// ErrUnknownAecMode is returned when an AEC mode name cannot be parsed.
	ErrUnknownAecMode = errors.New("unknown aec mode")
)
