package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	"ev3-dog/message"
)

var ErrShortBuffer = errors.New("BinaryCodec: short buffer")

// BinaryCodec lays the envelope fields out as length-prefixed binary fields.
// Only the free-form values (args, kwargs, data) are JSON encoded.
//
// Call:     [2 pathLen][path][4 argsLen][args][4 kwargsLen][kwargs]
// Response: [2 status][1 kind][2 msgLen][message][4 dataLen][data]
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	switch msg := v.(type) {
	case *message.Call:
		args, err := json.Marshal(msg.Args)
		if err != nil {
			return nil, err
		}
		kwargs, err := json.Marshal(msg.Kwargs)
		if err != nil {
			return nil, err
		}
		w := &binaryWriter{buf: make([]byte, 0, 2+len(msg.Path)+4+len(args)+4+len(kwargs))}
		w.str16(msg.Path)
		w.bytes32(args)
		w.bytes32(kwargs)
		return w.buf, nil
	case *message.Response:
		data, err := json.Marshal(msg.Data)
		if err != nil {
			return nil, err
		}
		w := &binaryWriter{buf: make([]byte, 0, 2+1+2+len(msg.Message)+4+len(data))}
		w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(msg.Status))
		w.buf = append(w.buf, byte(msg.Kind))
		w.str16(msg.Message)
		w.bytes32(data)
		return w.buf, nil
	}
	return nil, ErrUnsupportedValue
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	r := &binaryReader{buf: data}
	switch msg := v.(type) {
	case *message.Call:
		msg.Path = r.str16()
		args := r.bytes32()
		kwargs := r.bytes32()
		if r.err != nil {
			return r.err
		}
		msg.Args = nil
		msg.Kwargs = nil
		if err := json.Unmarshal(args, &msg.Args); err != nil {
			return err
		}
		return json.Unmarshal(kwargs, &msg.Kwargs)
	case *message.Response:
		status := r.readUint16()
		kind := r.readByte()
		msg.Message = r.str16()
		payload := r.bytes32()
		if r.err != nil {
			return r.err
		}
		msg.Status = int(status)
		msg.Kind = message.ErrorKind(kind)
		msg.Data = nil
		return json.Unmarshal(payload, &msg.Data)
	}
	return ErrUnsupportedValue
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}

type binaryWriter struct {
	buf []byte
}

func (w *binaryWriter) str16(s string) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *binaryWriter) bytes32(b []byte) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// binaryReader remembers the first error so fields can be read without checking each step.
type binaryReader struct {
	buf []byte
	off int
	err error
}

func (r *binaryReader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *binaryReader) readByte() byte {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *binaryReader) readUint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *binaryReader) str16() string {
	return string(r.next(int(r.readUint16())))
}

func (r *binaryReader) bytes32() []byte {
	b := r.next(4)
	if b == nil {
		return nil
	}
	return r.next(int(binary.BigEndian.Uint32(b)))
}
