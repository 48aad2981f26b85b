// Package codec turns message envelopes into frame bodies and back.
//
// Every codec accepts *message.Call and *message.Response. Values inside the envelopes
// (arguments, return data) are JSON-shaped after decoding: numbers arrive as float64,
// objects as map[string]any, lists as []any.
package codec

import (
	"errors"
	"fmt"

	"ev3-dog/message"
)

type CodecType byte

const (
	CodecTypeJSON   CodecType = 0
	CodecTypeBinary CodecType = 1
	CodecTypeProto  CodecType = 2
)

var ErrUnsupportedValue = errors.New("codec: value must be *message.Call or *message.Response")

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=JSON, 1=Binary, 2=Proto
}

func GetCodec(codecType CodecType) Codec {
	switch codecType {
	case CodecTypeBinary:
		return &BinaryCodec{}
	case CodecTypeProto:
		return &ProtoCodec{}
	default:
		return &JSONCodec{}
	}
}

// ParseCodecType maps a configuration name onto a codec type.
func ParseCodecType(name string) (CodecType, error) {
	switch name {
	case "", "json":
		return CodecTypeJSON, nil
	case "binary":
		return CodecTypeBinary, nil
	case "proto", "protobuf":
		return CodecTypeProto, nil
	}
	return 0, fmt.Errorf("codec: unknown codec %q", name)
}

func (t CodecType) String() string {
	switch t {
	case CodecTypeJSON:
		return "json"
	case CodecTypeBinary:
		return "binary"
	case CodecTypeProto:
		return "proto"
	}
	return fmt.Sprintf("codec(%d)", byte(t))
}

// Valid reports whether t names a known codec.
func (t CodecType) Valid() bool {
	return t <= CodecTypeProto
}

func isEnvelope(v any) bool {
	switch v.(type) {
	case *message.Call, *message.Response:
		return true
	}
	return false
}
