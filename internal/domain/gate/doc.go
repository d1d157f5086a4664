// Package gate contains the core domain types of the barrier controller.
//
// It defines the physical state inferred from the two proximity sensors, the
// commanded operation with its deadline, the auto-close timer and the status
// snapshot, together with one pure transition function per concern:
// classification, completion, timeout, arming and auto-close. None of them
// touch hardware or read a clock; time is always passed in.
package gate
