// Package device contains the device state vocabulary: the State and
// ListeningMode enums, abort reasons, AEC modes, and the closed transition
// table that maps a state and an event to the next state and the side
// effects the control loop must run.
package device
