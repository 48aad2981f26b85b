package middleware

import (
	"context"
	"time"

	"github.com/hashicorp/go-metrics"

	"ev3-dog/message"
	"ev3-dog/telemetry"
)

// MetricsMiddleware counts calls per path and status class and samples their latency.
// A nil sink means the global go-metrics instance.
func MetricsMiddleware(sink metrics.MetricSink) Middleware {
	if sink == nil {
		sink = metrics.Default()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, call *message.Call) *message.Response {
			start := time.Now()
			resp := next(ctx, call)
			labels := []metrics.Label{
				telemetry.LabelPath.M(call.Path),
				telemetry.LabelStatus.M(telemetry.StatusClass(resp.Status)),
			}
			sink.IncrCounterWithLabels(telemetry.MetricCallCount, 1, labels)
			sink.AddSampleWithLabels(telemetry.MetricCallLatencyMs,
				float32(time.Since(start).Seconds()*1000), labels)
			if resp.Status != message.StatusOK {
				sink.IncrCounterWithLabels(telemetry.MetricCallErrorCount, 1,
					append(labels, telemetry.LabelKind.M(resp.Kind.String())))
			}
			return resp
		}
	}
}
