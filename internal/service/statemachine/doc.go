// Package statemachine owns the current device state and runs the side
// effects of every transition: observer notification, display and
// indicator updates, music pre-emption and per-state entry effects.
//
// Set must only be called from the control loop. State and Mode may be
// read from any goroutine.
package statemachine
