package server

import (
	"context"
	"strings"
	"sync"

	"github.com/oshokin/gate-controller/internal/audit"
	"github.com/oshokin/gate-controller/internal/auth"
	"github.com/oshokin/gate-controller/internal/domain/gate"
	"github.com/oshokin/gate-controller/internal/logger"
	"github.com/oshokin/gate-controller/internal/monitor"
	"github.com/oshokin/gate-controller/internal/service/common"
)

// Command outcomes reported to the metrics recorder.
const (
	outcomeStarted      = "started"
	outcomeNoop         = "noop"
	outcomeUnauthorized = "unauthorized"
	outcomeCleared      = "cleared"
)

// auditor receives accepted and rejected requests.
type auditor interface {
	Authorized(ctx context.Context, action audit.Action, actor audit.Actor, operationID string)
	Unauthorized(ctx context.Context, action audit.Action, actor audit.Actor, token string)
}

// commandRecorder counts transport commands.
type commandRecorder interface {
	IncCommand(action, outcome string)
}

// controller serializes every tick and command on the monitor. It is the only
// place the monitor is touched after Begin.
type controller struct {
	// mu guards monitor.
	mu sync.Mutex
	// monitor owns the gate lifecycle state.
	monitor *monitor.Monitor
	// audit records who asked for what.
	audit auditor
	// recorder counts commands.
	recorder commandRecorder
}

// newController wraps the monitor. auditor and recorder may be nil.
func newController(m *monitor.Monitor, a auditor, r commandRecorder) *controller {
	c := &controller{
		monitor:  m,
		audit:    a,
		recorder: r,
	}

	if c.audit == nil {
		c.audit = (*audit.Publisher)(nil)
	}

	if c.recorder == nil {
		c.recorder = nopCommandRecorder{}
	}

	return c
}

// Begin seeds the monitor from the sensors.
func (c *controller) Begin(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.monitor.Begin(ctx)
}

// Tick runs one monitor evaluation.
func (c *controller) Tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.monitor.Tick(ctx)
}

// Open pulses the relay unless the barrier already reads open.
func (c *controller) Open(ctx context.Context) (gate.Snapshot, bool, error) {
	return c.command(ctx, audit.ActionOpen, c.monitor.CommandOpen)
}

// Close pulses the relay unless the barrier already reads closed.
func (c *controller) Close(ctx context.Context) (gate.Snapshot, bool, error) {
	return c.command(ctx, audit.ActionClose, c.monitor.CommandClose)
}

// Status returns a fresh snapshot.
func (c *controller) Status(ctx context.Context) gate.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.monitor.Snapshot(ctx)
}

// ClearAlert acknowledges the active alert, if any.
func (c *controller) ClearAlert(ctx context.Context) (gate.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cleared := c.monitor.ClearAlert(ctx)
	if cleared {
		c.recorder.IncCommand(string(audit.ActionClearAlert), outcomeCleared)
		c.audit.Authorized(ctx, audit.ActionClearAlert, actorFromContext(ctx), c.monitor.Operation().ID)
	}

	return c.monitor.Snapshot(ctx), cleared
}

// Reject is the auth guard hook for refused requests.
func (c *controller) Reject(ctx context.Context, action, token string, _ error) {
	c.recorder.IncCommand(action, outcomeUnauthorized)
	c.audit.Unauthorized(ctx, audit.Action(action), audit.Actor{}, token)
}

func (c *controller) command(
	ctx context.Context,
	action audit.Action,
	run func(context.Context) bool,
) (gate.Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The caller may have gone away while waiting for a pulse in progress.
	if err := ctx.Err(); err != nil {
		return gate.Snapshot{}, false, err
	}

	actor := actorFromContext(ctx)
	ctx = logger.WithFields(ctx, "action", string(action), "actor", actorName(actor))

	started := run(ctx)

	outcome := outcomeNoop
	operationID := ""

	if started {
		outcome = outcomeStarted
		operationID = c.monitor.Operation().ID
	}

	c.recorder.IncCommand(string(action), outcome)
	c.audit.Authorized(ctx, action, actor, operationID)

	return c.monitor.Snapshot(ctx), started, nil
}

// actorFromContext prefers the authenticated identity over a declared one.
func actorFromContext(ctx context.Context) audit.Actor {
	if id, ok := auth.FromContext(ctx); ok {
		return audit.Actor{Subject: id.Subject, Name: id.Username}
	}

	if declared, ok := common.ActorFromIncoming(ctx); ok {
		return audit.Actor{Name: strings.TrimSpace(declared)}
	}

	return audit.Actor{}
}

func actorName(actor audit.Actor) string {
	if actor.Name == "" {
		return "anonymous"
	}

	return actor.Name
}

type nopCommandRecorder struct{}

func (nopCommandRecorder) IncCommand(string, string) {}
