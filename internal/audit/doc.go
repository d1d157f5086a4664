// Package audit publishes gate actions to NATS.
//
// Authorized actions, including the autonomous auto-close and deadline alerts,
// go to the main subject. Rejected requests go to a separate subject with the
// bearer token shortened to its first and last characters.
package audit
