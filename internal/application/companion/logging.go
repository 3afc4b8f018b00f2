package companion

import (
	"context"

	"github.com/companiondir/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// requestLogger prefers the request-scoped logger carried by ctx, so service
// logs share the request_id and trace fields of the HTTP access log
func requestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if _, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); ok {
		return logger.L(ctx)
	}
	return logger.WithTraceContext(ctx, fallback)
}
