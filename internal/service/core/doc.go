// Package core is the device application. It owns the control loop and the
// state machine, routes session messages and runs fired alarms. Every
// public operation is safe from any goroutine: it posts work to the loop.
package core
