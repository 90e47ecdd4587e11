// Package board describes the peripherals of a device board and provides a
// console board that renders them through the logger, for hosts without a
// screen or speaker.
package board
