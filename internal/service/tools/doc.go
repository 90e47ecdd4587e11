// Package tools builds the device tool catalog: classroom peripherals, the
// smart car, board controls and the alarm configuration surface.
package tools
