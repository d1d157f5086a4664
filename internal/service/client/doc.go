// Package client implements gate-ctl: it connects to the gate controller,
// runs one command (open, close, status or clear-alert) and prints the
// resulting status document.
package client
