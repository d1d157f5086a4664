package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mitchellh/go-ps"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/gate-controller/internal/api/grpc/gate"
	httpapi "github.com/oshokin/gate-controller/internal/api/http/gate"
	"github.com/oshokin/gate-controller/internal/audit"
	"github.com/oshokin/gate-controller/internal/auth"
	"github.com/oshokin/gate-controller/internal/config"
	"github.com/oshokin/gate-controller/internal/domain/gate"
	"github.com/oshokin/gate-controller/internal/logger"
	"github.com/oshokin/gate-controller/internal/metrics"
	"github.com/oshokin/gate-controller/internal/monitor"
	"github.com/oshokin/gate-controller/internal/version"
)

// Options controls the gate-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress overrides the HTTP listen address; empty keeps the configured one.
	HTTPAddress string
	// Driver overrides the configured hardware driver.
	Driver string
	// AllowMultipleInstances skips the running-process check.
	AllowMultipleInstances bool
	// Clock replaces the wall clock of the monitor and the scheduler.
	Clock clockwork.Clock
	// Ready is called with the bound addresses once both servers accept connections.
	Ready func(Endpoints)
}

// Endpoints are the addresses the servers are bound to.
type Endpoints struct {
	GRPC string
	HTTP string
}

const (
	// shutdownTimeout bounds the graceful HTTP shutdown.
	shutdownTimeout = 5 * time.Second
	// readHeaderTimeout bounds slow HTTP clients.
	readHeaderTimeout = 5 * time.Second
)

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// protectedMethods maps guarded RPCs to their audit action.
//
//nolint:gochecknoglobals // Read-only lookup table.
var protectedMethods = map[string]string{
	grpcapi.OpenMethod:       string(audit.ActionOpen),
	grpcapi.CloseMethod:      string(audit.ActionClose),
	grpcapi.ClearAlertMethod: string(audit.ActionClearAlert),
}

// Run starts the monitor loop and the gRPC and HTTP servers, and blocks until
// the context is canceled or a server fails.
//
//nolint:cyclop,funlen // Wiring of every component lives in one place.
func Run(ctx context.Context, opts *Options) error {
	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	format, _ := logger.ParseFormat(settings.LogFormat)
	levelOK := logger.Setup(settings.LogLevel, format)

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "gate-server")

	if !levelOK && settings.LogLevel != "" {
		logger.WarnKV(ctx, "Unknown log level, keeping default", "log_level", settings.LogLevel)
	}

	if opts.Driver != "" {
		settings.Hardware.Driver = opts.Driver
	}

	if !opts.AllowMultipleInstances {
		if err = ensureSingleInstance(ps.Processes); err != nil {
			return err
		}
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	listenAddress, err := resolveListenAddress(settings.GRPCAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	httpAddress := settings.HTTPAddress
	if opts.HTTPAddress != "" {
		httpAddress = opts.HTTPAddress
	}

	recorder := metrics.NewRecorder(nil)

	var publisher *audit.Publisher
	if settings.Audit.AuditEnabled() {
		publisher, err = audit.Connect(ctx, settings.Audit)
		if err != nil {
			return err
		}

		defer publisher.Close(ctx)
	}

	hw, err := openHardware(ctx, settings, clock)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}

	defer func() {
		if closeErr := hw.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to release hardware", "error", closeErr)
		}
	}()

	mon := monitor.New(
		monitor.Config{
			Timings: gate.Timings{
				OpeningTimeout: settings.Gate.OpeningTimeout,
				ClosingTimeout: settings.Gate.ClosingTimeout,
				AutoCloseDelay: settings.Gate.AutoCloseDelay,
			},
		},
		hw,
		hw,
		monitor.WithClock(clock),
		monitor.WithRecorder(recorder),
		monitor.WithNotifier(publisher),
	)

	ctrl := newController(mon, publisher, recorder)

	var guard *auth.Guard
	if settings.Auth.AuthEnabled() {
		introspector := auth.NewIntrospector(settings.Auth)
		guard = auth.NewGuard(introspector, ctrl.Reject)

		logger.InfoKV(ctx, "Bearer authentication enabled", "introspection_url", introspector.Endpoint())
	} else {
		logger.Warn(ctx, "Authentication disabled, open and close are public")
	}

	ctrl.Begin(logger.WithName(ctx, "monitor"))

	scheduler, err := newTickScheduler(logger.WithName(ctx, "monitor"), ctrl, settings.Gate.TickPeriod, clock)
	if err != nil {
		return err
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		_ = scheduler.Shutdown()

		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			loggingInterceptor(logger.WithName(ctx, "grpc")),
			guard.UnaryServerInterceptor(protectedMethods),
		),
	)
	grpcapi.RegisterGateServiceServer(grpcServer, grpcapi.NewServer(ctrl))

	endpoints := Endpoints{GRPC: grpcListener.Addr().String()}
	errs := make(chan error, 2)

	var httpServer *http.Server

	if httpAddress != "" {
		httpListener, listenErr := lc.Listen(ctx, "tcp", httpAddress)
		if listenErr != nil {
			_ = scheduler.Shutdown()
			_ = grpcListener.Close()

			return fmt.Errorf("listen on %s: %w", httpAddress, listenErr)
		}

		var httpGuard httpapi.Guard
		if guard != nil {
			httpGuard = guard
		}

		httpServer = &http.Server{
			Handler: httpapi.NewRouter(ctrl, httpapi.Options{
				Guard:   httpGuard,
				Metrics: recorder.Handler(),
			}),
			ReadHeaderTimeout: readHeaderTimeout,
			BaseContext: func(net.Listener) context.Context {
				return logger.WithName(ctx, "http")
			},
		}

		endpoints.HTTP = httpListener.Addr().String()

		go func() {
			if serveErr := httpServer.Serve(httpListener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
				errs <- fmt.Errorf("serve HTTP: %w", serveErr)
			}
		}()
	}

	go func() {
		if serveErr := grpcServer.Serve(grpcListener); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			errs <- fmt.Errorf("serve gRPC: %w", serveErr)
		}
	}()

	scheduler.Start()

	logger.InfoKV(ctx, "Gate controller started",
		"grpc_address", endpoints.GRPC,
		"http_address", endpoints.HTTP,
		"driver", settings.Hardware.Driver,
		"tick_period", settings.Gate.TickPeriod,
		"version", version.Short(),
	)

	if opts.Ready != nil {
		opts.Ready(endpoints)
	}

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errs:
		logger.ErrorKV(ctx, "Server failed, shutting down", "error", runErr)
	}

	logger.Info(ctx, "Shutting down gate controller")

	// Stop ticking first so no pulse is issued while the servers drain.
	if err := scheduler.Shutdown(); err != nil {
		logger.ErrorKV(ctx, "Failed to stop tick scheduler", "error", err)
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "Failed to stop HTTP server", "error", err)
		}

		cancel()
	}

	grpcServer.GracefulStop()
	logger.Info(ctx, "Gate controller stopped")

	return runErr
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":50051" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces.
	return ":" + port, nil
}
