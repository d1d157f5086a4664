package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"

	"github.com/oshokin/gate-controller/internal/config"
	"github.com/oshokin/gate-controller/internal/domain/gate"
	"github.com/oshokin/gate-controller/internal/logger"
)

// reconnectWait matches the broker retry cadence of the controller.
const reconnectWait = 5 * time.Second

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Publisher sends audit events. A nil *Publisher discards everything, which is
// how a controller without a broker runs.
type Publisher struct {
	conn                Conn
	subject             string
	unauthorizedSubject string
	deviceID            string
	timeout             time.Duration
	clock               clockwork.Clock
	newID               func() string
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock replaces the timestamp source.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithIDGenerator replaces the event ID source.
func WithIDGenerator(newID func() string) Option {
	return func(p *Publisher) {
		if newID != nil {
			p.newID = newID
		}
	}
}

// New wraps an established connection.
func New(conn Conn, cfg config.Audit, opts ...Option) *Publisher {
	p := &Publisher{
		conn:                conn,
		subject:             cfg.Subject,
		unauthorizedSubject: cfg.UnauthorizedSubject,
		deviceID:            cfg.DeviceID,
		timeout:             cfg.Timeout,
		clock:               clockwork.NewRealClock(),
		newID:               uuid.NewString,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Connect dials the broker. The connection keeps retrying in the background,
// so a broker that is down at boot does not stop the controller.
func Connect(ctx context.Context, cfg config.Audit, opts ...Option) (*Publisher, error) {
	ctx = logger.WithName(ctx, "audit")

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name(cfg.DeviceID),
		nats.Timeout(cfg.Timeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WarnKV(ctx, "Audit broker disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.InfoKV(ctx, "Audit broker reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to audit broker: %w", err)
	}

	logger.InfoKV(ctx, "Audit publisher initialized",
		"url", cfg.NATSURL,
		"subject", cfg.Subject,
		"unauthorized_subject", cfg.UnauthorizedSubject,
	)

	return New(conn, cfg, opts...), nil
}

// Authorized records an accepted request.
func (p *Publisher) Authorized(ctx context.Context, action Action, actor Actor, operationID string) {
	if p == nil {
		return
	}

	p.publish(ctx, p.subject, Event{
		Action:      action,
		Authorized:  true,
		Sub:         actor.Subject,
		Name:        actor.Name,
		OperationID: operationID,
	})
}

// Unauthorized records a rejected request together with a shortened token.
func (p *Publisher) Unauthorized(ctx context.Context, action Action, actor Actor, token string) {
	if p == nil {
		return
	}

	p.publish(ctx, p.unauthorizedSubject, Event{
		Action:     action,
		Authorized: false,
		Sub:        actor.Subject,
		Name:       actor.Name,
		Token:      TruncateToken(token),
	})
}

// AlertRaised records a missed deadline.
func (p *Publisher) AlertRaised(ctx context.Context, alert gate.Alert) {
	if p == nil {
		return
	}

	p.publish(ctx, p.subject, Event{
		Action:      ActionAlert,
		Authorized:  true,
		Name:        SystemActor,
		OperationID: alert.Operation.ID,
		Detail: fmt.Sprintf("%s exceeded %s (elapsed %s)",
			alert.Operation.Kind, alert.Timeout, alert.Elapsed.Truncate(time.Millisecond)),
	})
}

// AutoClosed records the autonomous close.
func (p *Publisher) AutoClosed(ctx context.Context, op gate.Operation) {
	if p == nil {
		return
	}

	p.publish(ctx, p.subject, Event{
		Action:      ActionAutoClose,
		Authorized:  true,
		Name:        SystemActor,
		OperationID: op.ID,
	})
}

// Close flushes buffered events and closes the connection.
func (p *Publisher) Close(ctx context.Context) {
	if p == nil || p.conn == nil {
		return
	}

	if err := p.conn.FlushTimeout(p.timeout); err != nil {
		logger.WarnKV(ctx, "Failed to flush audit events", "error", err)
	}

	p.conn.Close()
}

// publish never blocks on the broker: core NATS buffers while reconnecting.
// Failures are logged and dropped.
func (p *Publisher) publish(ctx context.Context, subject string, event Event) {
	event.ID = p.newID()
	event.Timestamp = p.clock.Now().UTC()
	event.DeviceID = p.deviceID

	data, err := json.Marshal(event)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to marshal audit event", "action", event.Action, "error", err)

		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		logger.ErrorKV(ctx, "Failed to publish audit event",
			"subject", subject,
			"action", event.Action,
			"error", err,
		)

		return
	}

	logger.DebugKV(ctx, "Audit event published",
		"subject", subject,
		"action", event.Action,
		"authorized", event.Authorized,
	)
}
