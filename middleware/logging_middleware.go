package middleware

import (
	"context"
	"log/slog"
	"time"

	"ev3-dog/message"
	"ev3-dog/telemetry"
)

// LoggingMiddleware logs every call with its status and duration.
// Successful calls are logged at debug level, classified failures at warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.Call) *message.Response {
			start := time.Now()
			resp := next(ctx, call)
			attrs := []any{
				telemetry.LabelPath.L(call.Path),
				telemetry.LabelStatus.L(resp.Status),
				telemetry.LabelDuration.L(time.Since(start)),
			}
			if resp.Status == message.StatusOK {
				logger.DebugContext(ctx, "call served", attrs...)
				return resp
			}
			attrs = append(attrs, telemetry.LabelKind.L(resp.Kind.String()), telemetry.LabelError.L(resp.Data))
			logger.WarnContext(ctx, "call failed: "+resp.Message, attrs...)
			return resp
		}
	}
}
