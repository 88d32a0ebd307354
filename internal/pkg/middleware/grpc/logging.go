package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/autopeer-io/motwatch/pkg/log"
)

// UnaryServerLogging logs every unary call at debug level, and failures at error level.
func UnaryServerLogging(logger log.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		kv := []any{"method", info.FullMethod, "code", status.Code(err).String(), "took", time.Since(start)}
		if err != nil {
			logger.Error(err, "gRPC call failed", kv...)
		} else {
			logger.Debug("gRPC call", kv...)
		}
		return resp, err
	}
}
