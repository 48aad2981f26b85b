// Package client is the controller side of the link. A Client owns one connection to the
// remote brick; a Proxy names a path in the remote graph and turns invocation into a
// blocking call.
//
//	c := client.NewClient(client.Dial("tcp", "ev3dev.local:9000"))
//	_ = c.Connect(ctx)
//	defer c.Disconnect()
//	v, err := c.Attr("legs").Attr("StandUp").Call(50.0)
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"ev3-dog/message"
	"ev3-dog/telemetry"
	"ev3-dog/transport"
)

// DialFunc opens the connection the link runs over.
type DialFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// Dial returns a DialFunc for a stream network such as "tcp".
func Dial(network, addr string) DialFunc {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}
}

// DialWebSocket returns a DialFunc for a brick serving the link over WebSocket.
func DialWebSocket(url string, header http.Header) DialFunc {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		return transport.DialWebSocket(ctx, url, header)
	}
}

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Terminating
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Terminating:
		return "Terminating"
	default:
		return "Disconnected"
	}
}

type Client struct {
	dial     DialFunc
	linkOpts []transport.Option
	logger   *slog.Logger
	state    atomic.Int32

	// Held for a whole round trip: a command is never sent before the previous
	// result has been received.
	callMu sync.Mutex

	mu   sync.Mutex
	link *transport.Link
	cmd  *transport.Mailbox
	res  *transport.Mailbox
}

func NewClient(dial DialFunc, opts ...Option) *Client {
	c := &Client{dial: dial}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.linkOpts = append([]transport.Option{transport.WithLogger(c.logger)}, c.linkOpts...)
	return c
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// Connect dials the brick and binds the command and result mailboxes.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(Disconnected), int32(Connecting)) {
		return ErrAlreadyConnected
	}
	conn, err := c.dial(ctx)
	if err != nil {
		c.state.Store(int32(Disconnected))
		return err
	}
	link := transport.NewLink(conn, c.linkOpts...)
	cmd, _ := link.Mailbox(transport.CommandMailbox)
	res, _ := link.Mailbox(transport.ResultMailbox)

	c.mu.Lock()
	c.link, c.cmd, c.res = link, cmd, res
	c.mu.Unlock()
	c.state.Store(int32(Connected))
	return nil
}

// Disconnect sends QUIT without waiting for any acknowledgement and closes the link.
func (c *Client) Disconnect() error {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	link, cmd, _ := c.current()
	if link == nil {
		return ErrNotConnected
	}
	c.state.Store(int32(Terminating))
	err := cmd.Send(link.NextSeq(), message.NewCall(message.PathQuit, nil, nil))
	c.drop(link)
	return err
}

// Attr returns the proxy for a top-level name of the remote graph.
func (c *Client) Attr(name string) Proxy {
	return Proxy{client: c, path: name}
}

// Ping round-trips the liveness probe.
func (c *Client) Ping(ctx context.Context) error {
	v, err := c.call(ctx, message.NewCall(message.PathPing, nil, nil))
	if err != nil {
		return err
	}
	if v != message.Pong {
		return fmt.Errorf("%w: %v", ErrUnexpectedPong, v)
	}
	return nil
}

func (c *Client) current() (*transport.Link, *transport.Mailbox, *transport.Mailbox) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link, c.cmd, c.res
}

// drop closes link and forgets it, unless a newer link already replaced it.
func (c *Client) drop(link *transport.Link) {
	link.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.link == link {
		c.link, c.cmd, c.res = nil, nil, nil
		c.state.Store(int32(Disconnected))
	}
}

// call applies the status policy to one round trip:
// 200 returns the data, 4xx degrades to a descriptive string, 5xx raises a RemoteError.
func (c *Client) call(ctx context.Context, call *message.Call) (any, error) {
	resp, err := c.roundTrip(ctx, call)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.IsPathError():
		return fmt.Sprintf("%s: %v", resp.Message, resp.Data), nil
	case resp.IsFault():
		return nil, remoteError(resp)
	default:
		return resp.Data, nil
	}
}

// roundTrip sends one call and blocks for its response. Transport errors come back unmodified.
func (c *Client) roundTrip(ctx context.Context, call *message.Call) (*message.Response, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()

	link, cmd, res := c.current()
	if link == nil {
		return nil, ErrNotConnected
	}
	seq := link.NextSeq()
	if err := cmd.Send(seq, call); err != nil {
		if link.Err() != nil {
			c.drop(link)
		}
		return nil, err
	}

	var resp message.Response
	got, err := res.Read(ctx, &resp)
	if err != nil {
		if link.Err() == nil {
			// The reply is still owed. Pairing it with the next call would be wrong, so the
			// link cannot be reused.
			c.logger.Warn("abandoning link with a pending call",
				telemetry.LabelPath.L(call.Path), telemetry.LabelSeq.L(seq), telemetry.LabelError.L(err))
		}
		c.drop(link)
		return nil, err
	}
	if got != seq {
		c.drop(link)
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrSequenceMismatch, seq, got)
	}
	return &resp, nil
}

