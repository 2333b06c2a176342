package auth

import (
	"context"
	"time"

	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ContextInterceptor stamps the API version header on every response and
// moves the operator id from metadata into the context.
func ContextInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		_ = grpc.SetHeader(ctx, metadata.Pairs(APIVersionHeader, APIVersion))

		operatorID := GetOperatorID(ctx)
		ctx = WithOperatorID(ctx, operatorID)

		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("gRPC call failed",
				zap.String("method", info.FullMethod),
				zap.String("operator_id", operatorID),
				zap.String("code", status.Code(err).String()),
				zap.Duration("took", time.Since(start)),
			)
			return resp, err
		}
		log.Debug("gRPC call",
			zap.String("method", info.FullMethod),
			zap.String("operator_id", operatorID),
			zap.Duration("took", time.Since(start)),
		)
		return resp, nil
	}
}
