//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"google.golang.org/grpc/metadata"
)

// ActorMetadataKey carries the caller's self-declared identity over gRPC.
const ActorMetadataKey = "x-gate-actor"

// Actor is the local operator running gate-ctl.
type Actor struct {
	Hostname string
	Username string
}

// String renders the actor as username@hostname.
func (a Actor) String() string {
	return a.Username + "@" + a.Hostname
}

// DetectActor gathers host and user information for the audit trail.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// ContextWithActor returns an outgoing context declaring the actor.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	if actor.Username == "" && actor.Hostname == "" {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, ActorMetadataKey, actor.String())
}

// ActorFromIncoming returns the actor declared by a gRPC caller, if any.
func ActorFromIncoming(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	values := md.Get(ActorMetadataKey)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", false
	}

	return values[0], true
}
