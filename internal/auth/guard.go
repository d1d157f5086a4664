package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oshokin/gate-controller/internal/logger"
)

// authorizationKey is the gRPC metadata key carrying the bearer credential.
const authorizationKey = "authorization"

// RejectFunc is told about every refused request. token is empty when the
// request carried none.
type RejectFunc func(ctx context.Context, action, token string, err error)

// Guard enforces bearer authentication on protected actions.
// A nil *Guard lets everything through, which is how auth is disabled.
type Guard struct {
	verifier Verifier
	onReject RejectFunc
}

// NewGuard creates a guard over the verifier. onReject may be nil.
func NewGuard(verifier Verifier, onReject RejectFunc) *Guard {
	if onReject == nil {
		onReject = func(context.Context, string, string, error) {}
	}

	return &Guard{
		verifier: verifier,
		onReject: onReject,
	}
}

// Check authenticates a raw Authorization value and returns a context carrying
// the identity.
func (g *Guard) Check(ctx context.Context, action, header string) (context.Context, error) {
	if g == nil {
		return ctx, nil
	}

	token, err := ExtractBearer(header)
	if err != nil {
		g.reject(ctx, action, "", err)

		return ctx, err
	}

	id, err := g.verifier.Verify(ctx, token)
	if err != nil {
		g.reject(ctx, action, token, err)

		return ctx, err
	}

	logger.InfoKV(ctx, "Auth attempt succeeded", "action", action, "user", id.Username)

	return ToContext(ctx, id), nil
}

// UnaryServerInterceptor protects the gRPC methods listed in actions, keyed by
// full method name. Other methods pass through.
func (g *Guard) UnaryServerInterceptor(actions map[string]string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		action, ok := actions[info.FullMethod]
		if !ok || g == nil {
			return handler(ctx, req)
		}

		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(authorizationKey); len(values) > 0 {
				header = values[0]
			}
		}

		ctx, err := g.Check(ctx, action, header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(ctx, req)
	}
}

// Middleware protects an HTTP route. Refused requests get a 401 JSON body.
func (g *Guard) Middleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if g == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := g.Check(r.Context(), action, r.Header.Get("Authorization"))
			if err != nil {
				writeUnauthorized(w, err)

				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guard) reject(ctx context.Context, action, token string, err error) {
	logger.WarnKV(ctx, "Auth attempt failed", "action", action, "error", err)
	g.onReject(ctx, action, token, err)
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="gate"`)
	w.WriteHeader(http.StatusUnauthorized)

	//nolint:errchkjson // The payload is a fixed shape.
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   "Unauthorized",
		"message": err.Error(),
		"code":    http.StatusUnauthorized,
	})
}

// WithToken returns an outgoing gRPC context carrying the bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, authorizationKey, bearerPrefix+token)
}
