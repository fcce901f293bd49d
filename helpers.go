package resonance

import (
	"fmt"
	"maps"
	"reflect"
	"sync"
	"text/template"
	"unicode"
)

// HelperRegistry holds named functions prompt content can call while
// rendering. It grows monotonically: helpers are registered at any time,
// never removed, and each registration is visible to every subsequent render
// that uses the registry. Safe for concurrent use.
//
// Most callers use the process-wide DefaultHelpers through RegisterHelper;
// pass a dedicated registry to New via WithHelpers to scope helpers to one
// client.
type HelperRegistry struct {
	mu    sync.RWMutex
	funcs template.FuncMap
	gen   uint64
}

// DefaultHelpers is shared by every client that does not set WithHelpers.
// It starts empty.
var DefaultHelpers = NewHelperRegistry()

// NewHelperRegistry returns an empty registry.
func NewHelperRegistry() *HelperRegistry {
	return &HelperRegistry{funcs: make(template.FuncMap)}
}

// RegisterHelper adds fn to DefaultHelpers under name, making it callable
// from the content of every prompt rendered through the default registry,
// including by clients created before the call.
func RegisterHelper(name string, fn any) error {
	return DefaultHelpers.Register(name, fn)
}

// Register adds fn under name, replacing any previous helper with that name.
// The checks text/template applies to a FuncMap run here instead, because a
// violation would otherwise panic at parse time inside Render: name must be
// a non-empty identifier, fn a function returning one value, or two where
// the second is an error.
func (r *HelperRegistry) Register(name string, fn any) error {
	if !goodHelperName(name) {
		return fmt.Errorf("%w: name %q is not a valid identifier", ErrHelper, name)
	}
	typ := reflect.TypeOf(fn)
	if typ == nil || typ.Kind() != reflect.Func {
		return fmt.Errorf("%w: %q is %T, not a function", ErrHelper, name, fn)
	}
	if !goodHelperSignature(typ) {
		return fmt.Errorf("%w: %q must return one value, or two where the second is an error", ErrHelper, name)
	}
	r.mu.Lock()
	r.funcs[name] = fn
	r.gen++
	r.mu.Unlock()
	return nil
}

// Len returns the number of registered helpers.
func (r *HelperRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}

// snapshot returns a copy of the current helpers and the generation that
// produced it. The generation moves on every Register; the renderer keys its
// compiled-template cache on it so new helpers invalidate older compiles,
// including cached parse failures that a new helper may fix.
func (r *HelperRegistry) snapshot() (template.FuncMap, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	funcs := make(template.FuncMap, len(r.funcs))
	maps.Copy(funcs, r.funcs)
	return funcs, r.gen
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// goodHelperName mirrors text/template's identifier rule for function names.
func goodHelperName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case i == 0 && !unicode.IsLetter(r):
			return false
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			return false
		}
	}
	return true
}

// goodHelperSignature mirrors text/template's return-shape rule.
func goodHelperSignature(typ reflect.Type) bool {
	switch {
	case typ.NumOut() == 1:
		return true
	case typ.NumOut() == 2 && typ.Out(1) == errType:
		return true
	}
	return false
}
