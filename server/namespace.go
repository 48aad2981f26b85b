package server

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Namespace is one node of the registration table. Every remotely callable function is
// registered explicitly; resolution walks namespaces segment by segment and never looks
// at anything that was not registered.
type Namespace struct {
	value    any // Rendered by REPR, may be nil
	children map[string]*Namespace
	handlers map[string]*handler
}

// NewNamespace creates an empty namespace. value is what REPR renders for it.
func NewNamespace(value any) *Namespace {
	return &Namespace{
		value:    value,
		children: make(map[string]*Namespace),
		handlers: make(map[string]*handler),
	}
}

// Handle binds fn at the dotted path, creating intermediate namespaces as needed.
func (ns *Namespace) Handle(path string, fn any) error {
	parent, name, err := ns.parentOf(path)
	if err != nil {
		return err
	}
	h, err := newHandler(path, fn)
	if err != nil {
		return err
	}
	if parent.taken(name) {
		return fmt.Errorf("%w: %s", ErrDuplicate, path)
	}
	parent.handlers[name] = h
	return nil
}

// Mount attaches child at the dotted path.
func (ns *Namespace) Mount(path string, child *Namespace) error {
	parent, name, err := ns.parentOf(path)
	if err != nil {
		return err
	}
	if parent.taken(name) {
		return fmt.Errorf("%w: %s", ErrDuplicate, path)
	}
	parent.children[name] = child
	return nil
}

// Register mounts a namespace at path holding every exported method of rcvr whose
// signature a handler supports. rcvr itself becomes the namespace's REPR value.
func (ns *Namespace) Register(path string, rcvr any) error {
	child := NewNamespace(rcvr)
	val := reflect.ValueOf(rcvr)
	typ := val.Type()
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		if !method.IsExported() {
			continue
		}
		h, err := newHandlerValue(path+"."+method.Name, val.Method(i))
		if err != nil {
			continue
		}
		child.handlers[method.Name] = h
	}
	if len(child.handlers) == 0 {
		return fmt.Errorf("%w: %T", ErrNoMethods, rcvr)
	}
	return ns.Mount(path, child)
}

// Repr renders the namespace or handler at path.
func (ns *Namespace) Repr(path string) (string, error) {
	target, h, err := ns.resolve(path)
	if err != nil {
		return "", err
	}
	if h != nil {
		return h.String(), nil
	}
	return target.String(), nil
}

func (ns *Namespace) String() string {
	if ns.value != nil {
		return fmt.Sprint(ns.value)
	}
	names := make([]string, 0, len(ns.children)+len(ns.handlers))
	for name := range ns.children {
		names = append(names, name)
	}
	for name := range ns.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return "<namespace " + strings.Join(names, " ") + ">"
}

// lookup returns the handler bound at path. A namespace is not callable.
func (ns *Namespace) lookup(path string) (*handler, error) {
	_, h, err := ns.resolve(path)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &NotCallableError{Path: path}
	}
	return h, nil
}

// resolve walks path segment by segment. Exactly one of the namespace or the handler is set
// on success. The empty path names ns itself.
func (ns *Namespace) resolve(path string) (*Namespace, *handler, error) {
	if path == "" {
		return ns, nil, nil
	}
	segs := strings.Split(path, ".")
	cur := ns
	for i, seg := range segs {
		if h, ok := cur.handlers[seg]; ok {
			if i == len(segs)-1 {
				return nil, h, nil
			}
			return nil, nil, &AttributeError{Parent: strings.Join(segs[:i+1], "."), Name: segs[i+1]}
		}
		child, ok := cur.children[seg]
		if !ok {
			return nil, nil, &AttributeError{Parent: strings.Join(segs[:i], "."), Name: seg}
		}
		cur = child
	}
	return cur, nil, nil
}

// parentOf validates path and returns the namespace that will hold its last segment,
// creating intermediate namespaces.
func (ns *Namespace) parentOf(path string) (*Namespace, string, error) {
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if !isIdentifier(seg) {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	cur := ns
	for _, seg := range segs[:len(segs)-1] {
		if _, ok := cur.handlers[seg]; ok {
			return nil, "", fmt.Errorf("%w: %s is a handler", ErrDuplicate, seg)
		}
		child, ok := cur.children[seg]
		if !ok {
			child = NewNamespace(nil)
			cur.children[seg] = child
		}
		cur = child
	}
	return cur, segs[len(segs)-1], nil
}

func (ns *Namespace) taken(name string) bool {
	_, isChild := ns.children[name]
	_, isHandler := ns.handlers[name]
	return isChild || isHandler
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
