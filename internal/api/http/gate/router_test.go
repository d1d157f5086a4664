package gate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/gate-controller/internal/domain/gate"
)

type fakeService struct {
	snapshot domain.Snapshot
	started  bool
	err      error
	calls    []string
}

func (f *fakeService) Open(context.Context) (domain.Snapshot, bool, error) {
	f.calls = append(f.calls, "open")

	return f.snapshot, f.started, f.err
}

func (f *fakeService) Close(context.Context) (domain.Snapshot, bool, error) {
	f.calls = append(f.calls, "close")

	return f.snapshot, f.started, f.err
}

func (f *fakeService) Status(context.Context) domain.Snapshot {
	f.calls = append(f.calls, "status")

	return f.snapshot
}

// denyGuard rejects every protected request.
type denyGuard struct{}

func (denyGuard) Middleware(string) func(http.Handler) http.Handler {
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
}

func serve(t *testing.T, h http.Handler, method, path string) (int, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	return rec.Code, string(body)
}

// TestRouter_Public covers the banner, health and status routes.
func TestRouter_Public(t *testing.T) {
	t.Parallel()

	remaining := 90 * time.Second
	svc := &fakeService{snapshot: domain.Snapshot{
		Status:             domain.StatusOpen,
		Reading:            domain.Reading{OpenActive: true},
		AutoCloseEnabled:   true,
		AutoCloseRemaining: &remaining,
	}}
	router := NewRouter(svc, Options{Guard: denyGuard{}})

	code, body := serve(t, router, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, Banner, body)

	code, body = serve(t, router, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OK", body)

	code, body = serve(t, router, http.MethodGet, "/gate/status")
	require.Equal(t, http.StatusOK, code)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	require.Equal(t, "open", fields["status"])
	require.Equal(t, true, fields["sensor_open"])
	require.Equal(t, true, fields["auto_close_enabled"])
	require.InDelta(t, 90000, fields["auto_close_remaining"], 0)
	require.NotContains(t, fields, "operation_time")
}

// TestRouter_Commands run the service and answer with the status document.
func TestRouter_Commands(t *testing.T) {
	t.Parallel()

	svc := &fakeService{snapshot: domain.Snapshot{Status: domain.StatusClosing}, started: true}
	router := NewRouter(svc, Options{})

	code, body := serve(t, router, http.MethodPost, "/gate/close")
	require.Equal(t, http.StatusOK, code)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &fields))
	require.Equal(t, "closing", fields["status"])
	require.Equal(t, true, fields["started"])

	code, _ = serve(t, router, http.MethodGet, "/gate/open")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"close", "open"}, svc.calls)
}

// TestRouter_GuardedCommands never reach the service when refused.
func TestRouter_GuardedCommands(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	router := NewRouter(svc, Options{Guard: denyGuard{}})

	code, _ := serve(t, router, http.MethodGet, "/gate/open")
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = serve(t, router, http.MethodPost, "/gate/close")
	require.Equal(t, http.StatusUnauthorized, code)

	require.Empty(t, svc.calls)
}

// TestRouter_CommandError maps a cancelled request to 503.
func TestRouter_CommandError(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakeService{err: context.Canceled}, Options{})

	code, body := serve(t, router, http.MethodGet, "/gate/open")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Contains(t, body, "context canceled")
}

// TestRouter_Metrics mounts the handler only when provided.
func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	code, _ := serve(t, NewRouter(&fakeService{}, Options{}), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusNotFound, code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("gate_auto_close_total 0\n"))
	})

	code, body := serve(t, NewRouter(&fakeService{}, Options{Metrics: metrics}), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "gate_auto_close_total")
}
