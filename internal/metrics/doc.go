// Package metrics exposes the gate lifecycle as Prometheus metrics.
package metrics
