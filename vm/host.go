package vm

import (
	"context"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/value"
)

// host is the slot.Host view of a VM handed to native code.
type host struct {
	vm *VM
}

func (h *host) Store() *foreign.Store {
	return h.vm.store
}

func (h *host) Context() context.Context {
	return h.vm.ctx
}

func (h *host) Variable(module, name string) (value.Value, error) {
	return h.vm.variable(module, name)
}

// NewForeign allocates a foreign instance of class backed by v.
func (h *host) NewForeign(ref value.ClassRef, v any) (value.Value, error) {
	vm := h.vm
	c, ok := ref.(*class)
	if !ok || c == nil || !c.foreign || c.desc == nil {
		return value.Null, errors.New(errors.PhaseAllocate, errors.KindInvalidInput).
			Detail("%v is not a bound foreign class of this VM", ref).
			Build()
	}
	if vm.store.Finalizing() {
		return value.Null, errors.New(errors.PhaseAllocate, errors.KindReentrant).
			Class(c.name).
			Detail("cannot allocate during finalization").
			Build()
	}

	handle, err := vm.store.Insert(c.desc, v)
	if err != nil {
		return value.Null, errors.Wrap(errors.PhaseAllocate, errors.KindInvalidInput, err, "insert foreign value")
	}
	vm.allocSince++
	return value.FromForeign(&value.Foreign{Class: c, Handle: handle}), nil
}
