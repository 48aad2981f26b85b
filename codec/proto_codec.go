package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"ev3-dog/message"
)

// ProtoCodec encodes envelopes as a google.protobuf.Struct.
// It needs no generated code, and values keep the same JSON-shaped types as JSONCodec.
type ProtoCodec struct{}

func (c *ProtoCodec) Encode(v any) ([]byte, error) {
	var fields map[string]any
	switch msg := v.(type) {
	case *message.Call:
		args, err := normalize(msg.Args)
		if err != nil {
			return nil, err
		}
		kwargs, err := normalize(msg.Kwargs)
		if err != nil {
			return nil, err
		}
		fields = map[string]any{"path": msg.Path, "args": args, "kwargs": kwargs}
	case *message.Response:
		data, err := normalize(msg.Data)
		if err != nil {
			return nil, err
		}
		fields = map[string]any{
			"status":  msg.Status,
			"message": msg.Message,
			"data":    data,
			"kind":    int(msg.Kind),
		}
	default:
		return nil, ErrUnsupportedValue
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("ProtoCodec: %w", err)
	}
	return proto.Marshal(st)
}

func (c *ProtoCodec) Decode(data []byte, v any) error {
	if !isEnvelope(v) {
		return ErrUnsupportedValue
	}
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return err
	}
	fields := st.AsMap()
	switch msg := v.(type) {
	case *message.Call:
		msg.Path, _ = fields["path"].(string)
		msg.Args, _ = fields["args"].([]any)
		kwargs, _ := fields["kwargs"].(map[string]any)
		msg.Kwargs = message.Kwargs(kwargs)
	case *message.Response:
		status, _ := fields["status"].(float64)
		kind, _ := fields["kind"].(float64)
		msg.Status = int(status)
		msg.Kind = message.ErrorKind(kind)
		msg.Message, _ = fields["message"].(string)
		msg.Data = fields["data"]
	}
	return nil
}

func (c *ProtoCodec) Type() CodecType {
	return CodecTypeProto
}

// normalize reduces an arbitrary value to the types structpb accepts by passing it through JSON.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
