// Package client implements the device-ctl commands.
//
// The commands connect to the device core admin endpoint, list and call
// tools, read the device status and simulate button presses.
package client
