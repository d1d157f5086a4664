package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/oshokin/gate-controller/internal/logger"
)

// loggingInterceptor writes one line per RPC and scopes the request context to
// the transport logger.
func loggingInterceptor(base context.Context) grpc.UnaryServerInterceptor {
	named := logger.FromContext(base)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.ToContext(ctx, named.With("method", info.FullMethod))
		started := time.Now()

		resp, err := handler(ctx, req)

		code := status.Code(err)
		if err != nil {
			logger.WarnKV(ctx, "RPC failed", "code", code.String(), "error", err, "duration", time.Since(started))
		} else {
			logger.DebugKV(ctx, "RPC served", "code", code.String(), "duration", time.Since(started))
		}

		return resp, err
	}
}
