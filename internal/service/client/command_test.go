package client

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeClient struct {
	resp  *structpb.Struct
	calls []string
}

func (f *fakeClient) OpenGate(context.Context) (*structpb.Struct, error) {
	f.calls = append(f.calls, "open")

	return f.resp, nil
}

func (f *fakeClient) CloseGate(context.Context) (*structpb.Struct, error) {
	f.calls = append(f.calls, "close")

	return f.resp, nil
}

func (f *fakeClient) Status(context.Context) (*structpb.Struct, error) {
	f.calls = append(f.calls, "status")

	return f.resp, nil
}

func (f *fakeClient) ClearAlert(context.Context) (*structpb.Struct, error) {
	f.calls = append(f.calls, "clear_alert")

	return f.resp, nil
}

// TestExecute dispatches each action to its RPC.
func TestExecute(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: &structpb.Struct{}}

	for _, action := range []Action{ActionOpen, ActionClose, ActionStatus, ActionClearAlert} {
		_, err := execute(context.Background(), client, action)
		require.NoError(t, err)
	}

	require.Equal(t, []string{"open", "close", "status", "clear_alert"}, client.calls)

	_, err := execute(context.Background(), client, "reboot")
	require.ErrorIs(t, err, errUnknownAction)
}

// TestFormatStatus renders the summary line.
func TestFormatStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		"gate opening, relay pulsed, moving for 1.5s, 13.5s before alert",
		formatStatus(map[string]any{
			"status":            "opening",
			"started":           true,
			"operation_time":    float64(1500),
			"timeout_remaining": float64(13500),
			"alert_active":      false,
		}))

	require.Equal(t,
		"gate open, already there, nothing to do, auto-close in 2m0s",
		formatStatus(map[string]any{
			"status":               "open",
			"started":              false,
			"auto_close_remaining": float64(120000),
		}))

	require.Equal(t,
		"gate closing, moving for 25s, 0s before alert, ALERT: operation timed out",
		formatStatus(map[string]any{
			"status":            "closing",
			"operation_time":    float64(25000),
			"timeout_remaining": float64(0),
			"alert_active":      true,
		}))

	require.Equal(t, "gate unknown", formatStatus(map[string]any{}))
}

// TestRender_JSON prints the status document as JSON.
func TestRender_JSON(t *testing.T) {
	t.Parallel()

	resp, err := structpb.NewStruct(map[string]any{"status": "closed", "sensor_closed": true})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, render(&out, resp, true))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, "closed", decoded["status"])
	require.Equal(t, true, decoded["sensor_closed"])

	out.Reset()
	require.NoError(t, render(&out, resp, false))
	require.Equal(t, "gate closed\n", out.String())
}
