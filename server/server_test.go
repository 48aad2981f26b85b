package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/require"

	"ev3-dog/codec"
	"ev3-dog/message"
	"ev3-dog/middleware"
	"ev3-dog/transport"
)

type countingRoot struct {
	connects    atomic.Int32
	disconnects atomic.Int32
}

func (r *countingRoot) Connect() error    { r.connects.Add(1); return nil }
func (r *countingRoot) Disconnect() error { r.disconnects.Add(1); return nil }

type arm struct{}

func (arm) String() string             { return "<arm left>" }
func (arm) Raise(angle float64) string { return fmt.Sprintf("raised to %g", angle) }
func (arm) Jam() error                 { return errors.New("gear jammed") }
func (arm) Snap()                      { panic("snapped") }

func newTestServer(t *testing.T, root Root) *Server {
	t.Helper()
	svr := NewServer(root,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetricSink(&metrics.BlackholeSink{}),
	)
	require.NoError(t, svr.Register("a", arm{}))
	return svr
}

// peer drives a session from the controller side with raw mailboxes.
type peer struct {
	t    *testing.T
	link *transport.Link
	cmd  *transport.Mailbox
	res  *transport.Mailbox
}

func startSession(t *testing.T, svr *Server, opts ...transport.Option) (*peer, <-chan error) {
	t.Helper()
	a, b := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- svr.ServeConn(context.Background(), b) }()

	link := transport.NewLink(a, opts...)
	t.Cleanup(func() { link.Close() })
	cmd, err := link.Mailbox(transport.CommandMailbox)
	require.NoError(t, err)
	res, err := link.Mailbox(transport.ResultMailbox)
	require.NoError(t, err)
	return &peer{t: t, link: link, cmd: cmd, res: res}, done
}

func (p *peer) call(path string, args ...any) *message.Response {
	p.t.Helper()
	seq := p.link.NextSeq()
	require.NoError(p.t, p.cmd.Send(seq, message.NewCall(path, args, nil)))
	var resp message.Response
	got, err := p.res.Read(context.Background(), &resp)
	require.NoError(p.t, err)
	require.Equal(p.t, seq, got)
	return &resp
}

func TestServerDispatch(t *testing.T) {
	svr := newTestServer(t, NopRoot{})
	p, _ := startSession(t, svr)

	resp := p.call(message.PathPing)
	require.Equal(t, message.StatusOK, resp.Status)
	require.Equal(t, message.Pong, resp.Data)

	resp = p.call("a.Raise", 30.0)
	require.Equal(t, message.StatusOK, resp.Status)
	require.Equal(t, "raised to 30", resp.Data)

	resp = p.call(message.PathRepr, "a")
	require.Equal(t, message.StatusOK, resp.Status)
	require.Equal(t, arm{}.String(), resp.Data)
}

func TestServerMissingSegment(t *testing.T) {
	svr := newTestServer(t, NopRoot{})
	p, _ := startSession(t, svr)

	resp := p.call("a.b.c")
	require.Equal(t, message.StatusPathError, resp.Status)
	require.Equal(t, message.KindPath, resp.Kind)
	require.Equal(t, "AttributeError", resp.Message)
	require.Contains(t, resp.Data, `"b"`)

	resp = p.call(message.PathRepr, "nowhere")
	require.Equal(t, message.StatusPathError, resp.Status)
}

func TestServerFaultsKeepSessionAlive(t *testing.T) {
	svr := newTestServer(t, NopRoot{})
	p, _ := startSession(t, svr, transport.WithCodec(codec.CodecTypeProto))

	resp := p.call("a.Jam")
	require.Equal(t, message.StatusHandlerError, resp.Status)
	require.Equal(t, message.KindHandler, resp.Kind)
	require.Equal(t, "gear jammed", resp.Data)

	resp = p.call("a.Snap")
	require.Equal(t, message.StatusHandlerError, resp.Status)
	require.Equal(t, "PanicError", resp.Message)

	resp = p.call("a.Raise")
	require.Equal(t, "ArgumentError", resp.Message)

	resp = p.call("a")
	require.Equal(t, "NotCallableError", resp.Message)

	require.Equal(t, message.Pong, p.call(message.PathPing).Data)
}

func TestServerQuit(t *testing.T) {
	root := &countingRoot{}
	svr := newTestServer(t, root)
	p, done := startSession(t, svr)

	require.Equal(t, message.Pong, p.call(message.PathPing).Data)
	require.NoError(t, p.cmd.Send(p.link.NextSeq(), message.NewCall(message.PathQuit, nil, nil)))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not end after QUIT")
	}
	require.EqualValues(t, 1, root.connects.Load())
	require.EqualValues(t, 1, root.disconnects.Load())

	// The link is closed without a reply.
	<-p.link.Done()

	// The slot is free again for the next peer.
	p2, _ := startSession(t, svr)
	require.Equal(t, message.Pong, p2.call(message.PathPing).Data)
	require.EqualValues(t, 2, root.connects.Load())
}

func TestServerPeerHangUp(t *testing.T) {
	root := &countingRoot{}
	svr := newTestServer(t, root)
	p, done := startSession(t, svr)

	require.Equal(t, message.Pong, p.call(message.PathPing).Data)
	p.link.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session did not end after hang-up")
	}
	require.EqualValues(t, 1, root.disconnects.Load())
}

func TestServerMiddleware(t *testing.T) {
	svr := newTestServer(t, NopRoot{})
	var seen []string
	svr.Use(func(next middleware.HandlerFunc) middleware.HandlerFunc {
		return func(ctx context.Context, call *message.Call) *message.Response {
			seen = append(seen, call.Path)
			return next(ctx, call)
		}
	})
	p, _ := startSession(t, svr)

	p.call(message.PathPing)
	p.call("a.Raise", 1.0)
	require.Equal(t, []string{message.PathPing, "a.Raise"}, seen)
}

func TestServerReservedPaths(t *testing.T) {
	svr := NewServer(nil)
	require.ErrorIs(t, svr.Handle("PING", func() {}), ErrReserved)
	require.ErrorIs(t, svr.Handle("QUIT.now", func() {}), ErrReserved)
	require.ErrorIs(t, svr.Register("REPR", arm{}), ErrReserved)
	require.NoError(t, svr.Handle("ping", func() {}))
}

func TestServerServeAndShutdown(t *testing.T) {
	root := &countingRoot{}
	svr := newTestServer(t, root)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- svr.Serve(listener) }()

	conn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	link := transport.NewLink(conn)
	defer link.Close()
	p := &peer{t: t, link: link}
	p.cmd, _ = link.Mailbox(transport.CommandMailbox)
	p.res, _ = link.Mailbox(transport.ResultMailbox)
	require.Equal(t, message.Pong, p.call(message.PathPing).Data)

	require.NoError(t, svr.Shutdown())
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
	<-link.Done()
	require.EqualValues(t, 1, root.disconnects.Load())
}

func TestServerWebSocketSingleSlot(t *testing.T) {
	svr := newTestServer(t, NopRoot{})
	ts := httptest.NewServer(svr.WebSocketHandler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	ctx := context.Background()
	conn, err := transport.DialWebSocket(ctx, url, nil)
	require.NoError(t, err)
	link := transport.NewLink(conn, transport.WithCodec(codec.CodecTypeBinary))
	defer link.Close()
	p := &peer{t: t, link: link}
	p.cmd, _ = link.Mailbox(transport.CommandMailbox)
	p.res, _ = link.Mailbox(transport.ResultMailbox)
	require.Equal(t, "raised to 5", p.call("a.Raise", 5.0).Data)

	_, err = transport.DialWebSocket(ctx, url, nil)
	require.Error(t, err)
}
