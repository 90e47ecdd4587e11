// Package peripheral drives the classroom controller and the smart car over
// MQTT. Commands are fire-and-forget; inbound sensor and state topics update
// the snapshot repository.
package peripheral
