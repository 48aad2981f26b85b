package server

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrInvalidPath = errors.New("rpc: path segments must be identifiers")
	ErrDuplicate   = errors.New("rpc: path already registered")
	ErrReserved    = errors.New("rpc: path is reserved")
	ErrNoMethods   = errors.New("rpc: receiver exposes no callable methods")
)

// AttributeError reports a path segment missing from the registration table.
// It is the only failure classified as a path error (status 400).
type AttributeError struct {
	Parent string // Path resolved so far, empty for the root
	Name   string // The missing segment
}

func (e *AttributeError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("root has no attribute %q", e.Name)
	}
	return fmt.Sprintf("%q has no attribute %q", e.Parent, e.Name)
}

// ArgumentError reports arguments that do not fit the handler's signature.
type ArgumentError struct {
	Handler string
	Reason  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Handler, e.Reason)
}

// NotCallableError reports a call addressed to a namespace rather than a handler.
type NotCallableError struct {
	Path string
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("%q is not callable", e.Path)
}

// PanicError carries a panic recovered from a handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// errorClass names the concrete type of err, the way the caller sees it in Response.Message.
func errorClass(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "error"
	}
	return t.Name()
}
