// Package config defines the settings used by gate-server and gate-ctl and
// provides helpers to load, validate and save them in YAML format.
//
// Validate fills defaults for every omitted timing, pin and subject, so a
// minimal file only needs grpc_addr.
package config
