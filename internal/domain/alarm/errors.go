package alarm

import "errors"

var (
	// ErrInvalidTime is returned for a time of day that is not HH:MM.
	ErrInvalidTime = errors.New("invalid alarm time")
	// ErrUnknownRepeat is returned for an unsupported repeat policy.
	ErrUnknownRepeat = errors.New("unknown repeat policy")
	// ErrUnknownAction is returned for an unsupported action.
	ErrUnknownAction = errors.New("unknown alarm action")
	// ErrMissingParam is returned when an action requires a parameter.
	ErrMissingParam = errors.New("alarm action requires a parameter")
	// ErrNoAction is returned when an entry has no action.
	ErrNoAction = errors.New("alarm action must be set")
)
