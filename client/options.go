package client

import (
	"log/slog"

	"ev3-dog/transport"
)

// Option configures a Client.
type Option func(*Client)

// WithLinkOptions passes options to the link opened by Connect.
func WithLinkOptions(opts ...transport.Option) Option {
	return func(c *Client) { c.linkOpts = append(c.linkOpts, opts...) }
}

// WithLogger sets the logger used by the client and its link.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}
