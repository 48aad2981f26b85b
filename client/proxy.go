package client

import (
	"context"
	"encoding/json"
	"fmt"

	"ev3-dog/message"
)

// Proxy names a path in the remote graph. Building one never touches the link;
// every invocation is one blocking call.
type Proxy struct {
	client *Client
	path   string
}

// Attr returns a new proxy for path + "." + name.
func (p Proxy) Attr(name string) Proxy {
	return Proxy{client: p.client, path: p.path + "." + name}
}

func (p Proxy) Path() string {
	return p.path
}

func (p Proxy) String() string {
	return "<proxy " + p.path + ">"
}

// Call invokes the path with positional arguments.
//
// A path-resolution failure (4xx) is not an error: the result is a string combining the
// failure class and its detail. Handler faults (5xx) return a *RemoteError.
func (p Proxy) Call(args ...any) (any, error) {
	return p.CallKw(context.Background(), nil, args...)
}

// CallContext is Call with a context. Cancelling ctx while the reply is pending closes the link.
func (p Proxy) CallContext(ctx context.Context, args ...any) (any, error) {
	return p.CallKw(ctx, nil, args...)
}

// CallKw invokes the path with positional and named arguments.
func (p Proxy) CallKw(ctx context.Context, kwargs message.Kwargs, args ...any) (any, error) {
	return p.client.call(ctx, message.NewCall(p.path, args, kwargs))
}

// Repr asks the brick for the textual representation of the object at this path.
func (p Proxy) Repr(ctx context.Context) (string, error) {
	v, err := p.client.call(ctx, message.NewCall(message.PathRepr, []any{p.path}, nil))
	if err != nil {
		return "", err
	}
	text, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), nil
	}
	return text, nil
}

// Task binds the call for a task group. The result is discarded; faults and transport
// errors fail the task.
func (p Proxy) Task(args ...any) func() error {
	return func() error {
		_, err := p.Call(args...)
		return err
	}
}

// CallAs invokes p and decodes the result into T. Unlike Call, a path-resolution failure
// is returned as a *RemoteError, since it cannot be represented as a T.
func CallAs[T any](ctx context.Context, p Proxy, args ...any) (T, error) {
	var out T
	resp, err := p.client.roundTrip(ctx, message.NewCall(p.path, args, nil))
	if err != nil {
		return out, err
	}
	if resp.IsPathError() || resp.IsFault() {
		return out, remoteError(resp)
	}
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("client: decoding result of %s: %w", p.path, err)
	}
	return out, nil
}
