package vm

import (
	"context"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/slot"
	"github.com/wippyai/wren-bridge/value"
)

// Handle keeps a script value alive outside any slot frame until released.
type Handle struct {
	value    value.Value
	released bool
}

// Value returns the held value.
func (h *Handle) Value() value.Value {
	return h.value
}

// CallHandle is a compiled method signature for Call.
type CallHandle struct {
	sig      registry.Signature
	str      string
	released bool
}

// Signature returns the wire-format signature.
func (h *CallHandle) Signature() string {
	return h.str
}

// Slots returns the API slot frame used by Call, GetVariable and the handle
// operations. Slot 0 holds the receiver before a call and the result after.
func (vm *VM) Slots() *slot.Frame {
	return vm.api
}

// EnsureSlots grows the API frame to at least n slots.
func (vm *VM) EnsureSlots(n int) {
	vm.api.Ensure(n)
}

// GetVariable stores a top-level variable of a loaded module in API slot i.
func (vm *VM) GetVariable(module, name string, i int) error {
	return vm.api.GetVariable(module, name, i)
}

// MakeCallHandle compiles signature for use with Call.
func (vm *VM) MakeCallHandle(signature string) (*CallHandle, error) {
	sig, err := registry.ParseSignature(signature)
	if err != nil {
		return nil, err
	}
	return &CallHandle{sig: sig, str: sig.String()}, nil
}

// ReleaseCallHandle invalidates h.
func (vm *VM) ReleaseCallHandle(h *CallHandle) {
	if h != nil {
		h.released = true
	}
}

// Call invokes h on the receiver in API slot 0 with the arguments in the
// following slots and stores the result in slot 0. It must not be called
// from inside a foreign method.
func (vm *VM) Call(ctx context.Context, h *CallHandle) (Result, error) {
	if err := vm.enter("Call"); err != nil {
		return ResultRuntimeError, err
	}
	if h == nil || h.released {
		return ResultRuntimeError, errors.InvalidInput(errors.PhaseHost, "call handle is nil or released")
	}

	n := h.sig.ArgCount()
	if vm.api.Count() < n+1 {
		return ResultRuntimeError, errors.OutOfBounds(errors.PhaseHost, n, vm.api.Count())
	}
	vals := vm.api.Values()
	recv := vals[0]
	args := append([]value.Value(nil), vals[1:n+1]...)

	var result value.Value
	err := vm.run(ctx, func() error {
		var err error
		result, err = vm.call(recv, h.str, args)
		return err
	})
	if err != nil {
		return ResultRuntimeError, err
	}
	vm.api.Values()[0] = result
	return ResultSuccess, nil
}

// GetSlotHandle creates a handle for the value in API slot i.
func (vm *VM) GetSlotHandle(i int) (*Handle, error) {
	v, err := vm.api.Get(i)
	if err != nil {
		return nil, err
	}
	if vm.closed {
		return nil, errors.NotInitialized(errors.PhaseHost, "vm (closed)")
	}
	h := &Handle{value: v}
	vm.handles[h] = struct{}{}
	return h, nil
}

// SetSlotHandle stores the value held by h in API slot i.
func (vm *VM) SetSlotHandle(i int, h *Handle) error {
	if h == nil || h.released {
		return errors.StaleHandle(h)
	}
	return vm.api.Set(i, h.value)
}

// ReleaseHandle drops h. The value may be collected afterwards.
func (vm *VM) ReleaseHandle(h *Handle) {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.value = value.Null
	delete(vm.handles, h)
}
