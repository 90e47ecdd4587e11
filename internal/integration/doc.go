// Package integration runs the device core end to end against a local
// conversation server and drives it through the admin endpoint.
package integration
