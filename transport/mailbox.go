package transport

import (
	"context"

	"ev3-dog/codec"
	"ev3-dog/protocol"
)

// Envelope is one received frame, not yet decoded.
type Envelope struct {
	Seq   uint32
	Codec codec.CodecType
	Body  []byte
}

// Mailbox is a named, ordered channel with blocking receive.
type Mailbox struct {
	name    string
	msgType protocol.MsgType
	link    *Link
	inbox   chan *Envelope
}

func newMailbox(name string, msgType protocol.MsgType, link *Link) *Mailbox {
	return &Mailbox{
		name:    name,
		msgType: msgType,
		link:    link,
		inbox:   make(chan *Envelope, link.cfg.inboxSize),
	}
}

func (m *Mailbox) Name() string {
	return m.name
}

// Send encodes v (a *message.Call or *message.Response) and writes it under seq.
func (m *Mailbox) Send(seq uint32, v any) error {
	return m.link.send(m.msgType, seq, v)
}

// Wait blocks until the next frame arrives, the link stops, or ctx is done.
// Frames already buffered are still delivered after the link stopped.
func (m *Mailbox) Wait(ctx context.Context) (*Envelope, error) {
	select {
	case env := <-m.inbox:
		return env, nil
	default:
	}
	select {
	case env := <-m.inbox:
		return env, nil
	case <-m.link.done:
		return nil, m.link.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Read waits for the next frame and decodes it into v with the codec the frame names.
func (m *Mailbox) Read(ctx context.Context, v any) (uint32, error) {
	env, err := m.Wait(ctx)
	if err != nil {
		return 0, err
	}
	if err := codec.GetCodec(env.Codec).Decode(env.Body, v); err != nil {
		return env.Seq, err
	}
	return env.Seq, nil
}
