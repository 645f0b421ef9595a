package registry

import (
	"sort"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/slot"
)

// boundMethod is one bound foreign method.
type boundMethod struct {
	Fn  slot.MethodFn
	Key MethodKey
}

// boundClass is one bound foreign class.
type boundClass struct {
	Methods slot.ClassMethods
	Key     ClassKey
}

// Registry is an immutable table of foreign bindings.
type Registry struct {
	methods map[string]boundMethod
	classes map[string]boundClass
}

// Empty returns a registry with no bindings.
func Empty() *Registry {
	return &Registry{
		methods: map[string]boundMethod{},
		classes: map[string]boundClass{},
	}
}

// LookupMethod resolves a foreign method. A miss returns nil, false.
func (r *Registry) LookupMethod(module, class, signature string, static bool) (slot.MethodFn, bool) {
	if r == nil {
		return nil, false
	}
	key := MethodKey{Module: module, Class: class, Signature: signature, Static: static}
	m, ok := r.methods[key.String()]
	if !ok || m.Key != key {
		return nil, false
	}
	return m.Fn, true
}

// LookupClass resolves a foreign class. A miss returns the fatal
// unbound-class error.
func (r *Registry) LookupClass(module, class string) (slot.ClassMethods, error) {
	if r != nil {
		key := ClassKey{Module: module, Class: class}
		if c, ok := r.classes[key.String()]; ok && c.Key == key {
			return c.Methods, nil
		}
	}
	return slot.ClassMethods{}, errors.UnboundClass(module, class)
}

// Methods returns every bound method key in lookup-key order.
func (r *Registry) Methods() []MethodKey {
	if r == nil {
		return nil
	}
	keys := make([]MethodKey, 0, len(r.methods))
	for _, m := range r.methods {
		keys = append(keys, m.Key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Classes returns every bound class key in lookup-key order.
func (r *Registry) Classes() []ClassKey {
	if r == nil {
		return nil
	}
	keys := make([]ClassKey, 0, len(r.classes))
	for _, c := range r.classes {
		keys = append(keys, c.Key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Len returns the number of bound methods and classes.
func (r *Registry) Len() (methods, classes int) {
	if r == nil {
		return 0, 0
	}
	return len(r.methods), len(r.classes)
}
