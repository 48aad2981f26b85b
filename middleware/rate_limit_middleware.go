package middleware

import (
	"context"
	"time"

	"github.com/hashicorp/go-metrics"
	"golang.org/x/time/rate"

	"ev3-dog/message"
	"ev3-dog/telemetry"
)

// RateLimitMiddleware paces calls with a token bucket (r tokens per second, burst tokens).
//
// A call that finds the bucket empty waits for a token, it is never rejected.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.Call) *message.Response {
			start := time.Now()
			if err := limiter.Wait(ctx); err != nil {
				return message.Failure(message.KindHandler, message.StatusHandlerError, "RateLimitError", err.Error())
			}
			if waited := time.Since(start); waited > time.Millisecond {
				metrics.AddSample(telemetry.MetricThrottleWaitMs, float32(waited.Milliseconds()))
			}
			return next(ctx, call)
		}
	}
}
