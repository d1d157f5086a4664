// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper with timeouts and bearer
// credentials, and utilities to detect the local operator (username@hostname)
// that gate-ctl reports to the controller for the audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
