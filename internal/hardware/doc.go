// Package hardware connects the monitor to the relay and the two proximity
// sensors.
//
// RPIO drives BCM GPIO pins through go-rpio; Simulator models a barrier in
// memory for development and integration tests. Both satisfy the monitor's
// Sensors and Relay interfaces.
package hardware
