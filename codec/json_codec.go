package codec

import (
	"encoding/json"
)

// JSONCodec uses Go's standard library encoding/json for serialization.
// Pros: human-readable, easy to debug on a serial console.
// Cons: field names are repeated in every frame, which costs bandwidth on a slow link.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	if !isEnvelope(v) {
		return nil, ErrUnsupportedValue
	}
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	if !isEnvelope(v) {
		return ErrUnsupportedValue
	}
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
