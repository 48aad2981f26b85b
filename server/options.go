package server

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"

	"ev3-dog/transport"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for session events and handler faults.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithLinkOptions passes options to every link the server opens.
func WithLinkOptions(opts ...transport.Option) Option {
	return func(s *Server) { s.linkOpts = append(s.linkOpts, opts...) }
}

// WithMetricSink chooses where session metrics go. The sink is also handed to each link.
func WithMetricSink(sink metrics.MetricSink) Option {
	return func(s *Server) {
		if sink == nil {
			sink = &metrics.BlackholeSink{}
		}
		s.sink = sink
	}
}
