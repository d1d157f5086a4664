package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/gate-controller/internal/config"
	"github.com/oshokin/gate-controller/internal/logger"
	"github.com/oshokin/gate-controller/internal/service/common"
)

// DefaultPollInterval is the status polling interval of the watch command.
const DefaultPollInterval = 2 * time.Second

// ErrAlertActive is returned by Watch when ExitOnAlert is set and an
// operation has timed out.
var ErrAlertActive = errors.New("gate alert active")

// WatchOptions controls the status polling loop.
type WatchOptions struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between status checks.
	PollInterval time.Duration
	// ExitOnAlert stops watching with ErrAlertActive once an alert is seen.
	ExitOnAlert bool
	// Output receives one line per change, stdout when nil.
	Output io.Writer
	// Clock drives the polling ticker.
	Clock clockwork.Clock
}

// statusGetter is the status RPC of common.Client.
type statusGetter interface {
	Status(ctx context.Context) (*structpb.Struct, error)
}

// Watch polls the controller and prints the status whenever it changes.
// It returns nil when the context is canceled.
func Watch(ctx context.Context, opts *WatchOptions) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "gate-ctl-watch")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	serverAddress := cfg.GRPCAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Watching gate status", "server_address", serverAddress, "interval", opts.PollInterval)

	return watch(ctx, client, opts)
}

func watch(ctx context.Context, client statusGetter, opts *WatchOptions) error {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	var last string

	for {
		line, alert, err := poll(ctx, client)
		if err != nil {
			logger.ErrorKV(ctx, "Status check failed", "error", err)
		} else if line != last {
			last = line

			if _, err = fmt.Fprintf(out, "%s %s\n", clock.Now().Format(time.RFC3339), line); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}

		if alert && opts.ExitOnAlert {
			return ErrAlertActive
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.Chan():
		}
	}
}

// poll returns the summary line and whether an alert is active.
func poll(ctx context.Context, client statusGetter) (string, bool, error) {
	resp, err := client.Status(ctx)
	if err != nil {
		return "", false, err
	}

	fields := resp.AsMap()

	// Countdowns change on every poll; only the state and the alert matter here.
	status, _ := fields["status"].(string)
	alert, _ := fields["alert_active"].(bool)

	return formatStatus(map[string]any{"status": status, "alert_active": alert}), alert, nil
}
