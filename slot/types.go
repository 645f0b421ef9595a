package slot

import (
	"context"

	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/value"
)

// MethodFn is a native function callable from script code. A returned error
// aborts the calling fiber with a runtime error.
type MethodFn func(f *Frame) error

// FinalizeFn releases what a foreign value owns. It runs during collection
// and receives only the stored value.
type FinalizeFn = foreign.Finalizer

// ClassMethods is the allocate/finalize pair bound to a foreign class.
// Allocate runs with the class in slot 0 and the constructor arguments in
// slots 1..N and must call SetNewForeign before returning. Finalize is
// optional.
type ClassMethods struct {
	Allocate MethodFn
	Finalize FinalizeFn
}

// Host is what a Frame needs from the VM that owns it.
type Host interface {
	// Store returns the VM's foreign object store.
	Store() *foreign.Store

	// NewForeign creates a foreign instance of class backed by v.
	NewForeign(class value.ClassRef, v any) (value.Value, error)

	// Variable looks up a module-level variable.
	Variable(module, name string) (value.Value, error)

	// Context returns the context of the operation driving the VM.
	Context() context.Context
}
