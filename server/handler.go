package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"ev3-dog/message"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	kwargsType  = reflect.TypeOf(message.Kwargs(nil))
)

// handler is one typed function bound into the registration table.
//
// Accepted shapes:
//
//	func([ctx context.Context,] p1 T1, ..., [pn ...Tn | kw message.Kwargs]) [R] [error]
type handler struct {
	name     string
	fn       reflect.Value
	params   []reflect.Type // Positional parameters; the last one is a slice if variadic
	variadic bool
	withCtx  bool
	withKw   bool
	hasValue bool
	hasErr   bool
}

func newHandler(name string, fn any) (*handler, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("rpc: handler %q must be a function, got %T", name, fn)
	}
	return newHandlerValue(name, v)
}

// newHandlerValue inspects a function (or bound method) value.
func newHandlerValue(name string, v reflect.Value) (*handler, error) {
	typ := v.Type()
	h := &handler{name: name, fn: v, variadic: typ.IsVariadic()}

	params := make([]reflect.Type, typ.NumIn())
	for i := range params {
		params[i] = typ.In(i)
	}
	if len(params) > 0 && params[0] == contextType {
		h.withCtx = true
		params = params[1:]
	}
	if !h.variadic && len(params) > 0 && params[len(params)-1] == kwargsType {
		h.withKw = true
		params = params[:len(params)-1]
	}
	h.params = params

	switch typ.NumOut() {
	case 0:
	case 1:
		if typ.Out(0) == errorType {
			h.hasErr = true
		} else {
			h.hasValue = true
		}
	case 2:
		if typ.Out(1) != errorType {
			return nil, fmt.Errorf("rpc: handler %q: second result must be error, got %s", name, typ.Out(1))
		}
		h.hasValue, h.hasErr = true, true
	default:
		return nil, fmt.Errorf("rpc: handler %q returns %d results, at most (value, error) is supported", name, typ.NumOut())
	}
	return h, nil
}

// call binds args and kwargs to the parameters and invokes the function.
func (h *handler) call(ctx context.Context, args []any, kwargs message.Kwargs) (any, error) {
	fixed := len(h.params)
	if h.variadic {
		fixed--
	}
	if len(args) < fixed || (!h.variadic && len(args) > fixed) {
		return nil, &ArgumentError{
			Handler: h.name,
			Reason:  fmt.Sprintf("takes %d positional arguments but %d were given", fixed, len(args)),
		}
	}
	if len(kwargs) > 0 && !h.withKw {
		return nil, &ArgumentError{Handler: h.name, Reason: "does not accept keyword arguments"}
	}

	in := make([]reflect.Value, 0, len(args)+2)
	if h.withCtx {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}
	for i := 0; i < fixed; i++ {
		v, err := h.convert(i, args[i], h.params[i])
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}
	if h.variadic {
		elem := h.params[fixed].Elem()
		for i := fixed; i < len(args); i++ {
			v, err := h.convert(i, args[i], elem)
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
	}
	if h.withKw {
		if kwargs == nil {
			kwargs = message.Kwargs{}
		}
		in = append(in, reflect.ValueOf(kwargs))
	}

	out := h.fn.Call(in)

	var value any
	if h.hasValue {
		value = out[0].Interface()
	}
	if h.hasErr {
		if errv := out[len(out)-1]; !errv.IsNil() {
			return value, errv.Interface().(error)
		}
	}
	return value, nil
}

// convert turns a decoded argument into the parameter type. Values that are not directly
// assignable are passed through JSON, the shape every codec decodes into.
func (h *handler) convert(pos int, arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	raw, err := json.Marshal(arg)
	if err == nil {
		ptr := reflect.New(t)
		if err = json.Unmarshal(raw, ptr.Interface()); err == nil {
			return ptr.Elem(), nil
		}
	}
	return reflect.Value{}, &ArgumentError{
		Handler: h.name,
		Reason:  fmt.Sprintf("argument %d: cannot use %T as %s", pos, arg, t),
	}
}

func (h *handler) String() string {
	return fmt.Sprintf("<handler %s %s>", h.name, h.fn.Type())
}
