// Package peripheral models the last known state of the classroom peripherals
// (lamp, smart plug, LED, buzzer, climate and light sensors) and of the smart
// car, together with the rules that turn controller payloads into state.
package peripheral
