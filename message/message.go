// Package message defines the envelopes exchanged between the controller and the remote brick.
//
// A Call travels on the command mailbox, a Response travels back on the result mailbox.
// Both get serialized by the codec layer and wrapped in a protocol frame for transmission.
package message

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Reserved top-level paths. They are intercepted by the server before generic dispatch.
const (
	PathQuit = "QUIT" // Graceful end of the session, fire-and-forget
	PathPing = "PING" // Liveness probe
	PathRepr = "REPR" // Textual representation of the path passed as argument 0
)

// Pong is the canonical reply to a PING call.
const Pong = "PONG"

// Status conventions carried by every Response.
const (
	StatusOK           = 200
	StatusPathError    = 400 // 400-499: path resolution failure, returned to the caller as a value
	StatusHandlerError = 500 // 500-599: handler fault, raised to the caller
)

// Kwargs carries named arguments. Names are unique by construction.
type Kwargs map[string]any

// Call carries one remote invocation: a dotted path into the remote graph plus its arguments.
//
// A Call is built once per invocation and never mutated afterwards.
type Call struct {
	Path   string `json:"path"`   // Format: "legs.StandUp", or one of the reserved paths
	Args   []any  `json:"args"`   // Positional arguments
	Kwargs Kwargs `json:"kwargs"` // Named arguments
}

// NewCall builds a Call, normalizing nil arguments to empty collections.
func NewCall(path string, args []any, kwargs Kwargs) *Call {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = Kwargs{}
	}
	return &Call{Path: path, Args: args, Kwargs: kwargs}
}

// String renders the call as `path(arg, ..., key=value)` with kwargs sorted by name.
func (c *Call) String() string {
	parts := make([]string, 0, len(c.Args)+len(c.Kwargs))
	for _, arg := range c.Args {
		parts = append(parts, formatValue(arg))
	}
	keys := make([]string, 0, len(c.Kwargs))
	for key := range c.Kwargs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, key+"="+formatValue(c.Kwargs[key]))
	}
	return c.Path + "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprint(v)
}

// ErrorKind is the stable classification of a failed call, carried alongside the status.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindPath
	KindHandler
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindPath:
		return "PathError"
	case KindHandler:
		return "HandlerError"
	case KindTransport:
		return "TransportError"
	default:
		return "None"
	}
}

// Response carries the outcome of one Call.
//
//   - Status 200: Data is the handler's return value, Message is "Ok".
//   - Status 4xx/5xx: Message is the class name of the failure, Data its text.
type Response struct {
	Status  int       `json:"status"`
	Message string    `json:"message"`
	Data    any       `json:"data"`
	Kind    ErrorKind `json:"kind"`
}

// OK builds a successful response.
func OK(data any) *Response {
	return &Response{Status: StatusOK, Message: "Ok", Data: data}
}

// Failure builds a classified failure response.
func Failure(kind ErrorKind, status int, class string, data any) *Response {
	return &Response{Status: status, Message: class, Data: data, Kind: kind}
}

// IsPathError reports whether the response is in the non-fatal 400 class.
func (r *Response) IsPathError() bool {
	return r.Status >= 400 && r.Status < 500
}

// IsFault reports whether the response is in the fatal 500 class.
func (r *Response) IsFault() bool {
	return r.Status >= 500 && r.Status < 600
}
