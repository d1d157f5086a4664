package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/gate-controller/internal/config"
	"github.com/oshokin/gate-controller/internal/logger"
	"github.com/oshokin/gate-controller/internal/service/common"
)

// Action is the gate-ctl subcommand.
type Action string

const (
	ActionOpen       Action = "open"
	ActionClose      Action = "close"
	ActionStatus     Action = "status"
	ActionClearAlert Action = "clear-alert"
)

// Options configures one gate-ctl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Token is the bearer token sent with commands.
	Token string
	// Action selects the RPC.
	Action Action
	// JSON prints the raw status document instead of a summary.
	JSON bool
	// Output receives the result, stdout when nil.
	Output io.Writer
}

// statusClient is the part of common.Client gate-ctl uses.
type statusClient interface {
	OpenGate(ctx context.Context) (*structpb.Struct, error)
	CloseGate(ctx context.Context) (*structpb.Struct, error)
	Status(ctx context.Context) (*structpb.Struct, error)
	ClearAlert(ctx context.Context) (*structpb.Struct, error)
}

var errUnknownAction = errors.New("unknown action")

// Run executes the requested action against the controller.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "gate-ctl")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.GRPCAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for the audit trail.
	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect local actor", "error", err)
	}

	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithToken(opts.Token),
		common.WithActor(actor),
	)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.DebugKV(ctx, "Sending gate command", "server_address", serverAddress, "action", opts.Action)

	resp, err := execute(ctx, client, opts.Action)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	return render(out, resp, opts.JSON)
}

func execute(ctx context.Context, client statusClient, action Action) (*structpb.Struct, error) {
	switch action {
	case ActionOpen:
		return client.OpenGate(ctx)
	case ActionClose:
		return client.CloseGate(ctx)
	case ActionStatus:
		return client.Status(ctx)
	case ActionClearAlert:
		return client.ClearAlert(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownAction, action)
	}
}

func render(out io.Writer, resp *structpb.Struct, asJSON bool) error {
	var text string

	if asJSON {
		data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
		if err != nil {
			return fmt.Errorf("encode status: %w", err)
		}

		text = string(data)
	} else {
		text = formatStatus(resp.AsMap())
	}

	if _, err := fmt.Fprintln(out, text); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

// formatStatus renders the status document as one readable line.
func formatStatus(fields map[string]any) string {
	status, _ := fields["status"].(string)
	if status == "" {
		status = "unknown"
	}

	parts := []string{"gate " + status}

	if started, ok := fields["started"].(bool); ok {
		if started {
			parts = append(parts, "relay pulsed")
		} else {
			parts = append(parts, "already there, nothing to do")
		}
	}

	if cleared, ok := fields["cleared"].(bool); ok && !cleared {
		parts = append(parts, "no alert to clear")
	}

	if elapsed, ok := millis(fields, "operation_time"); ok {
		parts = append(parts, "moving for "+elapsed.String())
	}

	if remaining, ok := millis(fields, "timeout_remaining"); ok {
		parts = append(parts, remaining.String()+" before alert")
	}

	if alert, _ := fields["alert_active"].(bool); alert {
		parts = append(parts, "ALERT: operation timed out")
	}

	if remaining, ok := millis(fields, "auto_close_remaining"); ok {
		parts = append(parts, "auto-close in "+remaining.String())
	}

	return strings.Join(parts, ", ")
}

func millis(fields map[string]any, key string) (time.Duration, bool) {
	v, ok := fields[key].(float64)
	if !ok {
		return 0, false
	}

	return time.Duration(v) * time.Millisecond, true
}
