package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/gate-controller/internal/domain/gate"
)

// TestRecorder records every lifecycle event and reads it back.
func TestRecorder(t *testing.T) {
	t.Parallel()

	reg := prom.NewRegistry()
	r := NewRecorder(reg)

	r.SetPhysicalState(gate.StateOpen)
	r.SetOperationInFlight(true)
	r.IncRelayPulse(gate.TriggerCommand)
	r.IncRelayPulse(gate.TriggerAutoClose)
	r.IncRelayPulse(gate.TriggerAutoClose)
	r.IncAlert(gate.OperationClosing)
	r.IncOperationCompleted(gate.OperationOpening)
	r.IncAutoClose()
	r.ObserveTick(time.Millisecond)
	r.IncCommand("open", "started")
	r.IncCommand("clear_alert", "cleared")

	require.InDelta(t, 2, testutil.ToFloat64(r.physicalState), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.operationInFlight), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.relayPulses.WithLabelValues("command")), 0)
	require.InDelta(t, 2, testutil.ToFloat64(r.relayPulses.WithLabelValues("auto_close")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.alerts.WithLabelValues("closing")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.operationsCompleted.WithLabelValues("opening")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.autoCloses), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.commands.WithLabelValues("open", "started")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(r.commands.WithLabelValues("clear_alert", "cleared")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

// TestRecorder_Nil ensures a nil recorder is inert.
func TestRecorder_Nil(t *testing.T) {
	t.Parallel()

	var r *Recorder

	r.SetPhysicalState(gate.StateOpen)
	r.IncAlert(gate.OperationOpening)
	r.ObserveTick(time.Second)
	require.Nil(t, r.Registry())
}

// TestRecorder_Handler scrapes the exposition endpoint.
func TestRecorder_Handler(t *testing.T) {
	t.Parallel()

	r := NewRecorder(nil)
	r.IncAutoClose()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // Test scrape.
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "gate_auto_close_total 1")
}
