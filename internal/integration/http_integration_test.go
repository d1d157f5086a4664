package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec,noctx // Test server URL.
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

// TestHTTP_Surface exercises every public route of a running controller.
func TestHTTP_Surface(t *testing.T) {
	endpoints := startServer(t, nil)
	base := "http://" + endpoints.HTTP

	code, body := get(t, base+"/health")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OK", body)

	code, body = get(t, base+"/gate/status")
	require.Equal(t, http.StatusOK, code)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	require.Equal(t, "closed", fields["status"])
	require.Equal(t, true, fields["sensor_closed"])
	require.Equal(t, false, fields["sensor_open"])

	code, body = get(t, base+"/gate/close")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	require.Equal(t, false, fields["started"])

	code, body = get(t, base+"/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "gate_physical_state 1")
	require.Contains(t, body, `gate_commands_total{action="close",outcome="noop"} 1`)
}
