package transport

import (
	"log/slog"
	"time"

	"github.com/hashicorp/go-metrics"

	"ev3-dog/codec"
)

type config struct {
	codec     codec.CodecType
	heartbeat time.Duration
	inboxSize int
	logger    *slog.Logger
	sink      metrics.MetricSink
}

// Option configures a Link.
type Option func(*config)

// WithCodec selects the codec used for outgoing frames. Incoming frames are decoded
// with whatever codec their header names.
func WithCodec(ct codec.CodecType) Option {
	return func(c *config) { c.codec = ct }
}

// WithHeartbeat sends an empty heartbeat frame every interval. Zero disables it.
func WithHeartbeat(interval time.Duration) Option {
	return func(c *config) { c.heartbeat = interval }
}

// WithInboxSize bounds how many undelivered frames a mailbox buffers before the
// reader stops pulling from the connection.
func WithInboxSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.inboxSize = size
		}
	}
}

// WithLogger sets the logger used by the link.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMetricSink chooses where frame metrics go.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(c *config) {
		if ms == nil {
			ms = &metrics.BlackholeSink{}
		}
		c.sink = ms
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		codec:     codec.CodecTypeJSON,
		inboxSize: 16,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.sink == nil {
		cfg.sink = metrics.Default()
	}
	return cfg
}
