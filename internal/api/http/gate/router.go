package gate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	domain "github.com/oshokin/gate-controller/internal/domain/gate"
	"github.com/oshokin/gate-controller/internal/logger"
)

const (
	// Banner is the body of the root route.
	Banner = "gate controller online!"

	// ActionOpen and ActionClose name the protected routes for the auth guard.
	ActionOpen  = "open"
	ActionClose = "close"
)

// Service abstracts the controller operations the routes depend on.
type Service interface {
	Open(ctx context.Context) (domain.Snapshot, bool, error)
	Close(ctx context.Context) (domain.Snapshot, bool, error)
	Status(ctx context.Context) domain.Snapshot
}

// Guard wraps a protected route. It is satisfied by the auth guard.
type Guard interface {
	Middleware(action string) func(http.Handler) http.Handler
}

// Options configures the router.
type Options struct {
	// Guard protects the open and close routes. Nil leaves them public.
	Guard Guard
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

type handler struct {
	service Service
}

// NewRouter builds the HTTP surface over the service.
func NewRouter(service Service, opts Options) http.Handler {
	h := &handler{service: service}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/gate/status", h.status)

	r.Group(func(r chi.Router) {
		if opts.Guard != nil {
			r.Use(opts.Guard.Middleware(ActionOpen))
		}

		r.Get("/gate/open", h.open)
		r.Post("/gate/open", h.open)
	})

	r.Group(func(r chi.Router) {
		if opts.Guard != nil {
			r.Use(opts.Guard.Middleware(ActionClose))
		}

		r.Get("/gate/close", h.close)
		r.Post("/gate/close", h.close)
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	return r
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, Banner)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.Status(r.Context())

	writeJSON(w, http.StatusOK, snapshot.Fields())
}

func (h *handler) open(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.service.Open)
}

func (h *handler) close(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, h.service.Close)
}

func (h *handler) command(
	w http.ResponseWriter,
	r *http.Request,
	run func(context.Context) (domain.Snapshot, bool, error),
) {
	snapshot, started, err := run(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]any{"error": err.Error()})

		return
	}

	fields := snapshot.Fields()
	fields["started"] = started

	writeJSON(w, http.StatusOK, fields)
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.ErrorKV(context.Background(), "Failed to write response", "error", err)
	}
}

// requestLogger writes one debug line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.DebugKV(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"remote", r.RemoteAddr,
			"duration", time.Since(started),
		)
	})
}
