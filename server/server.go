// Package server runs the remote side of the link: it owns the registration table and
// answers calls arriving on the command mailbox, one at a time.
//
// Session pipeline:
//
//	Accept conn → root.Connect()
//	  → loop: cmd.Read → QUIT? → Middleware Chain → dispatch (PING / REPR / table lookup) → res.Send
//	  → QUIT or transport failure → root.Disconnect() → back to Accept
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-metrics"

	"ev3-dog/message"
	"ev3-dog/middleware"
	"ev3-dog/telemetry"
	"ev3-dog/transport"
)

// Root is the object the server exposes. Its hooks bracket every session.
type Root interface {
	Connect() error
	Disconnect() error
}

// NopRoot is a Root with empty hooks.
type NopRoot struct{}

func (NopRoot) Connect() error    { return nil }
func (NopRoot) Disconnect() error { return nil }

func (NopRoot) String() string { return "<root>" }

// Server answers calls for a single paired peer at a time.
type Server struct {
	root        Root
	ns          *Namespace
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc // Built once: middleware(middleware(...(dispatch)))
	logger      *slog.Logger
	sink        metrics.MetricSink
	linkOpts    []transport.Option

	listener net.Listener
	shutdown atomic.Bool   // Set before the listener is closed so Accept errors read as intentional
	slot     chan struct{} // One session at a time, whatever the transport

	mu     sync.Mutex
	active *transport.Link
}

// NewServer creates a server exposing root. root becomes the value of the top-level namespace.
func NewServer(root Root, opts ...Option) *Server {
	if root == nil {
		root = NopRoot{}
	}
	s := &Server{
		root: root,
		ns:   NewNamespace(root),
		slot: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.sink == nil {
		s.sink = metrics.Default()
	}
	s.linkOpts = append([]transport.Option{transport.WithLogger(s.logger), transport.WithMetricSink(s.sink)}, s.linkOpts...)
	return s
}

// Use registers a middleware. Middlewares are applied in the order they are added.
// It must be called before the first session starts.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
	s.handler = nil
}

// Handle binds a typed function at path, e.g. "legs.StandUp".
func (s *Server) Handle(path string, fn any) error {
	if err := checkReserved(path); err != nil {
		return err
	}
	return s.ns.Handle(path, fn)
}

// Register exposes every exported method of rcvr under path.
func (s *Server) Register(path string, rcvr any) error {
	if err := checkReserved(path); err != nil {
		return err
	}
	return s.ns.Register(path, rcvr)
}

// Mount attaches a prepared namespace at path.
func (s *Server) Mount(path string, ns *Namespace) error {
	if err := checkReserved(path); err != nil {
		return err
	}
	return s.ns.Mount(path, ns)
}

func checkReserved(path string) error {
	switch first, _, _ := strings.Cut(path, "."); first {
	case message.PathQuit, message.PathPing, message.PathRepr:
		return fmt.Errorf("%w: %s", ErrReserved, first)
	}
	return nil
}

// Serve accepts connections on listener and runs their sessions one after the other.
// It returns nil after Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	if s.shutdown.Load() {
		listener.Close()
		return nil
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		peer := conn.RemoteAddr().String()
		if err := s.ServeConn(context.Background(), conn); err != nil {
			s.logger.Warn("session ended with error", telemetry.LabelPeer.L(peer), telemetry.LabelError.L(err))
		}
	}
}

// ServeConn runs one session over conn and returns when it ends. It waits for the slot
// if another session is active. conn is closed on return.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriteCloser) error {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
	defer func() { <-s.slot }()
	return s.session(ctx, conn)
}

// WebSocketHandler serves sessions over WebSocket. A request arriving while another
// session holds the slot is refused with 503.
func (s *Server) WebSocketHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case s.slot <- struct{}{}:
		default:
			http.Error(w, "session already active", http.StatusServiceUnavailable)
			return
		}
		defer func() { <-s.slot }()

		conn, err := transport.UpgradeWebSocket(w, r)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", telemetry.LabelPeer.L(r.RemoteAddr), telemetry.LabelError.L(err))
			return
		}
		if err := s.session(r.Context(), conn); err != nil {
			s.logger.Warn("session ended with error", telemetry.LabelPeer.L(r.RemoteAddr), telemetry.LabelError.L(err))
		}
	})
}

// Shutdown stops accepting connections and closes the active session's link.
func (s *Server) Shutdown() error {
	s.shutdown.Store(true)
	s.mu.Lock()
	listener, active := s.listener, s.active
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	if active != nil {
		active.Close()
	}
	return err
}

func (s *Server) setActive(link *transport.Link) {
	s.mu.Lock()
	s.active = link
	s.mu.Unlock()
}

func (s *Server) chain() middleware.HandlerFunc {
	if s.handler == nil {
		s.handler = middleware.Chain(s.middlewares...)(s.dispatch)
	}
	return s.handler
}

// session serves calls until QUIT or a transport failure. Connect and Disconnect are
// called exactly once each, unless Connect fails.
func (s *Server) session(ctx context.Context, conn io.ReadWriteCloser) error {
	link := transport.NewLink(conn, s.linkOpts...)
	defer link.Close()
	s.setActive(link)
	defer s.setActive(nil)
	if s.shutdown.Load() {
		return nil
	}

	cmd, _ := link.Mailbox(transport.CommandMailbox)
	res, _ := link.Mailbox(transport.ResultMailbox)
	handle := s.chain()

	if err := s.root.Connect(); err != nil {
		return fmt.Errorf("server: connect hook: %w", err)
	}
	s.sink.IncrCounter(telemetry.MetricSessionCount, 1)
	s.logger.Info("session started")

	for {
		var call message.Call
		seq, err := cmd.Read(ctx, &call)
		if err != nil {
			if link.Err() == nil && ctx.Err() == nil {
				// The frame arrived intact but its body did not decode. Answer it so the
				// peer is not left waiting, and keep serving.
				s.logger.Warn("undecodable call", telemetry.LabelSeq.L(seq), telemetry.LabelError.L(err))
				if err := res.Send(seq, message.Failure(message.KindTransport, message.StatusHandlerError, "DecodeError", err.Error())); err != nil {
					return s.abort(err)
				}
				continue
			}
			return s.abort(err)
		}

		if call.Path == message.PathQuit {
			s.logger.Info("session closed by peer")
			s.disconnect()
			return nil
		}

		resp := handle(ctx, &call)
		if err := res.Send(seq, resp); err != nil {
			if link.Err() != nil {
				return s.abort(err)
			}
			// The link is fine, the return value is not encodable.
			s.logger.Error("cannot encode result", telemetry.LabelPath.L(call.Path), telemetry.LabelError.L(err))
			fallback := message.Failure(message.KindHandler, message.StatusHandlerError, "EncodeError", err.Error())
			if err := res.Send(seq, fallback); err != nil {
				return s.abort(err)
			}
		}
	}
}

// abort ends a session that lost its link. Shutdown is not an error.
func (s *Server) abort(err error) error {
	s.disconnect()
	if s.shutdown.Load() || errors.Is(err, transport.ErrLinkClosed) {
		return nil
	}
	if errors.Is(err, io.EOF) {
		s.logger.Info("peer hung up without QUIT")
		return nil
	}
	return err
}

func (s *Server) disconnect() {
	if err := s.root.Disconnect(); err != nil {
		s.logger.Warn("disconnect hook failed", telemetry.LabelError.L(err))
	}
}

// dispatch answers PING and REPR and invokes handlers from the registration table.
// It never panics and never returns nil.
func (s *Server) dispatch(ctx context.Context, call *message.Call) (resp *message.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = s.fault(call, &PanicError{Value: r, Stack: debug.Stack()})
		}
	}()

	switch call.Path {
	case message.PathPing:
		return message.OK(message.Pong)
	case message.PathRepr:
		target, ok := reprTarget(call)
		if !ok {
			return s.fault(call, &ArgumentError{Handler: message.PathRepr, Reason: "takes the target path as its only argument"})
		}
		text, err := s.ns.Repr(target)
		if err != nil {
			return s.classify(call, err)
		}
		return message.OK(text)
	}

	h, err := s.ns.lookup(call.Path)
	if err != nil {
		return s.classify(call, err)
	}
	value, err := h.call(ctx, call.Args, call.Kwargs)
	if err != nil {
		return s.fault(call, err)
	}
	return message.OK(value)
}

func reprTarget(call *message.Call) (string, bool) {
	if len(call.Args) != 1 || len(call.Kwargs) > 0 {
		return "", false
	}
	target, ok := call.Args[0].(string)
	return target, ok
}

// classify turns a resolution failure into a response. Only a missing segment is a path error.
func (s *Server) classify(call *message.Call, err error) *message.Response {
	var attrErr *AttributeError
	if errors.As(err, &attrErr) {
		return message.Failure(message.KindPath, message.StatusPathError, errorClass(attrErr), err.Error())
	}
	return s.fault(call, err)
}

func (s *Server) fault(call *message.Call, err error) *message.Response {
	attrs := []any{telemetry.LabelPath.L(call.Path), telemetry.LabelError.L(err)}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		attrs = append(attrs, slog.String("stack", string(panicErr.Stack)))
	}
	s.logger.Error("handler failed", attrs...)
	return message.Failure(message.KindHandler, message.StatusHandlerError, errorClass(err), err.Error())
}
