package resource

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/terrane/terrane/suggest"
)

// A Registry maintains the set of registered resource definitions.
type Registry struct {
	types map[string]reflect.Type
}

// RegistryFromDefinitions creates a new registry from a predefined list of
// definitions. It is primarily used in tests.
func RegistryFromDefinitions(defs ...Definition) *Registry {
	r := &Registry{}
	for _, def := range defs {
		r.Register(def)
	}
	return r
}

// Register adds a new resource type, keyed by the definition's type name.
//
// The Definition interface must be implemented on a pointer receiver on a
// struct. Panics otherwise. If another resource with the same type name is
// already registered, it is overwritten.
//
// Not safe for concurrent access.
func (r *Registry) Register(def Definition) {
	t := reflect.TypeOf(def)
	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("Definition must be a pointer to a struct, not %s", t.Kind()))
	}
	if r.types == nil {
		r.types = make(map[string]reflect.Type)
	}
	r.types[def.Type()] = t.Elem()
}

// Type returns the registered struct type with a certain name. Returns nil
// if the type has not been registered.
func (r *Registry) Type(typename string) reflect.Type {
	return r.types[typename]
}

// New creates a new zero value instance of a registered definition.
//
// Returns a NotSupportedError if the type has not been registered.
func (r *Registry) New(typename string) (Definition, error) {
	t, ok := r.types[typename]
	if !ok {
		return nil, NotSupportedError{Type: typename}
	}
	return reflect.New(t).Interface().(Definition), nil
}

// Types returns the type names that have been registered. The results are
// lexicographically sorted.
func (r *Registry) Types() []string {
	tt := make([]string, 0, len(r.types))
	for k := range r.types {
		tt = append(tt, k)
	}
	sort.Strings(tt)
	return tt
}

// SuggestType suggests a registered type name that closely matches the
// requested name. Returns an empty string if no close match was found.
func (r *Registry) SuggestType(typename string) string {
	return suggest.String(typename, r.Types())
}

// NotSupportedError is returned when a resource type has not been
// registered.
type NotSupportedError struct {
	Type string
}

func (e NotSupportedError) Error() string {
	return fmt.Sprintf("resource type not supported: %q", e.Type)
}

// NotSupported marks the error as a not supported error.
func (e NotSupportedError) NotSupported() {}
