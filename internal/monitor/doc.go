// Package monitor implements the gate lifecycle monitor.
//
// A Monitor owns the last observed physical state, the in-flight operation and
// the auto-close timer. The host calls Tick at a fixed cadence; every tick
// classifies the sensors, handles a state transition, checks the operation
// deadline and checks auto-close, always in that order. Commands fire the relay
// and start an operation. A Monitor is not safe for concurrent use: the host
// must serialize Tick, commands and Snapshot.
package monitor
