// Package transport defines the session channel contract between the device
// and the conversation server, and the session messages sent over it.
package transport
