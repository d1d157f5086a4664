package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gate-controller/internal/config"
	"github.com/oshokin/gate-controller/internal/service/server"
)

// startServer runs a simulated controller with fast timings and returns its
// bound addresses. The server is stopped when the test ends.
func startServer(t *testing.T, mutate func(*config.Config)) server.Endpoints {
	t.Helper()

	cfg := &config.Config{
		GRPCAddress: "127.0.0.1:50051",
		LogLevel:    "warn",
		Timeout:     3 * time.Second,
		Gate: config.Gate{
			OpeningTimeout: 2 * time.Second,
			ClosingTimeout: 2 * time.Second,
			AutoCloseDelay: time.Hour,
			TickPeriod:     10 * time.Millisecond,
			RelayPulse:     10 * time.Millisecond,
		},
		Hardware: config.Hardware{
			Driver:          config.DriverSimulated,
			SimulatedTravel: 200 * time.Millisecond,
		},
	}

	if mutate != nil {
		mutate(cfg)
	}

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan server.Endpoints, 1)
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath:             cfgPath,
			ListenAddress:          "127.0.0.1:0",
			HTTPAddress:            "127.0.0.1:0",
			AllowMultipleInstances: true,
			Ready: func(e server.Endpoints) {
				ready <- e
			},
		})
	}()

	var endpoints server.Endpoints

	select {
	case endpoints = <-ready:
	case err := <-done:
		cancel()
		require.FailNow(t, "server exited before becoming ready", "error: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		require.FailNow(t, "server did not become ready")
	}

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})

	return endpoints
}
