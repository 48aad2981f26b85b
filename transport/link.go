// Package transport implements the transport pair: two named, ordered mailboxes with
// blocking receive, sharing one point-to-point connection.
//
// A Link owns the connection. A background goroutine (recvLoop) reads frames and
// routes each one to the mailbox named by its message type:
//
//	controller ──cmd──┐                    ┌──cmd──→ brick
//	                  ├──→ single conn ───→┤
//	controller ←─res──┘                    └──res─── brick
//
// Heartbeat frames keep idle links alive and are dropped on receipt.
package transport

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-metrics"

	"ev3-dog/codec"
	"ev3-dog/protocol"
	"ev3-dog/telemetry"
)

// Mailbox names, fixed for every session.
const (
	CommandMailbox = "cmd"
	ResultMailbox  = "res"
)

var (
	ErrLinkClosed     = errors.New("transport: link closed")
	ErrUnknownMailbox = errors.New("transport: unknown mailbox")
)

// Link manages the connection shared by the command and result mailboxes.
type Link struct {
	conn    io.ReadWriteCloser
	cfg     config
	logger  *slog.Logger
	seq     atomic.Uint32
	sending sync.Mutex // Whole frames only: header and body of one frame are never split
	boxes   map[protocol.MsgType]*Mailbox

	done      chan struct{}
	closeOnce sync.Once
	err       error // Set once before done is closed
}

// NewLink wraps conn and starts the background reader and, if configured, the heartbeat.
func NewLink(conn io.ReadWriteCloser, opts ...Option) *Link {
	cfg := newConfig(opts)
	l := &Link{
		conn:   conn,
		cfg:    cfg,
		logger: cfg.logger,
		done:   make(chan struct{}),
	}
	l.boxes = map[protocol.MsgType]*Mailbox{
		protocol.MsgTypeCommand: newMailbox(CommandMailbox, protocol.MsgTypeCommand, l),
		protocol.MsgTypeResult:  newMailbox(ResultMailbox, protocol.MsgTypeResult, l),
	}
	go l.recvLoop()
	if cfg.heartbeat > 0 {
		go l.heartbeatLoop(cfg.heartbeat)
	}
	return l
}

// Mailbox returns the mailbox bound to name ("cmd" or "res").
func (l *Link) Mailbox(name string) (*Mailbox, error) {
	for _, box := range l.boxes {
		if box.name == name {
			return box, nil
		}
	}
	return nil, ErrUnknownMailbox
}

// NextSeq hands out the sequence number for a new command.
func (l *Link) NextSeq() uint32 {
	return l.seq.Add(1)
}

// Codec returns the codec used for outgoing frames.
func (l *Link) Codec() codec.CodecType {
	return l.cfg.codec
}

// Done is closed once the link stopped, either by Close or by a connection failure.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// Err returns why the link stopped, or nil while it is running.
// A peer hang-up surfaces as io.EOF, unmodified.
func (l *Link) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// Close stops the link and closes the connection.
func (l *Link) Close() error {
	l.shutdown(ErrLinkClosed)
	return nil
}

func (l *Link) shutdown(err error) {
	l.closeOnce.Do(func() {
		l.err = err
		close(l.done)
		if cerr := l.conn.Close(); cerr != nil && !errors.Is(err, ErrLinkClosed) {
			l.logger.Debug("closing connection", telemetry.LabelError.L(cerr))
		}
	})
}

// send encodes v with the link codec and writes it as one frame.
func (l *Link) send(msgType protocol.MsgType, seq uint32, v any) error {
	if err := l.Err(); err != nil {
		return err
	}
	body, err := codec.GetCodec(l.cfg.codec).Encode(v)
	if err != nil {
		return err
	}
	header := protocol.Header{
		CodecType: byte(l.cfg.codec),
		MsgType:   msgType,
		Seq:       seq,
		BodyLen:   uint32(len(body)),
	}

	l.sending.Lock()
	err = protocol.Encode(l.conn, &header, body)
	l.sending.Unlock()
	if err != nil {
		return err
	}
	l.cfg.sink.IncrCounterWithLabels(telemetry.MetricFrameOutBytes, float32(protocol.HeaderSize+len(body)),
		[]metrics.Label{telemetry.LabelMailbox.M(msgType.String())})
	return nil
}

// recvLoop runs in a dedicated goroutine and is the only reader of the connection.
// Frames keep their order inside each mailbox.
func (l *Link) recvLoop() {
	for {
		header, body, err := protocol.Decode(l.conn)
		if err != nil {
			select {
			case <-l.done:
			default:
				l.logger.Debug("link reader stopped", telemetry.LabelError.L(err))
			}
			l.shutdown(err)
			return
		}
		l.cfg.sink.IncrCounterWithLabels(telemetry.MetricFrameInBytes, float32(protocol.HeaderSize+len(body)),
			[]metrics.Label{telemetry.LabelMailbox.M(header.MsgType.String())})

		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}
		box := l.boxes[header.MsgType]
		select {
		case box.inbox <- &Envelope{Seq: header.Seq, Codec: codec.CodecType(header.CodecType), Body: body}:
		case <-l.done:
			return
		}
	}
}

// heartbeatLoop sends periodic heartbeat frames so a silent peer is noticed by the write failing.
func (l *Link) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
		}
		header := &protocol.Header{
			CodecType: byte(l.cfg.codec),
			MsgType:   protocol.MsgTypeHeartbeat,
		}
		l.sending.Lock()
		err := protocol.Encode(l.conn, header, nil)
		l.sending.Unlock()
		if err != nil {
			l.shutdown(err)
			return
		}
		l.cfg.sink.IncrCounter(telemetry.MetricHeartbeatCount, 1)
	}
}
