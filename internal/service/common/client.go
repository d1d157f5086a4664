//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/gate-controller/internal/api/grpc/gate"
	"github.com/oshokin/gate-controller/internal/auth"
	"github.com/oshokin/gate-controller/internal/config"
)

// Client wraps the gRPC GateService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the controller.
	conn *grpc.ClientConn
	// api is the GateService client.
	api *api.GateServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// token is the bearer token sent with commands.
	token string
	// actor is declared on every call for the audit trail.
	actor Actor
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithToken sets the bearer token used to authenticate commands.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithActor declares the local operator on every call.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the gate controller.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gate controller: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewGateServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// OpenGate asks the controller to open the barrier.
func (c *Client) OpenGate(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, "open gate", c.api.Open)
}

// CloseGate asks the controller to close the barrier.
func (c *Client) CloseGate(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, "close gate", c.api.Close)
}

// Status retrieves the status document.
func (c *Client) Status(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, "get status", c.api.GetStatus)
}

// ClearAlert acknowledges an active alert.
func (c *Client) ClearAlert(ctx context.Context) (*structpb.Struct, error) {
	return c.call(ctx, "clear alert", c.api.ClearAlert)
}

func (c *Client) call(
	ctx context.Context,
	what string,
	rpc func(context.Context, ...grpc.CallOption) (*structpb.Struct, error),
) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	callCtx = auth.WithToken(callCtx, c.token)
	callCtx = ContextWithActor(callCtx, c.actor)

	resp, err := rpc(callCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	return resp, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
