package vm

import (
	"github.com/wippyai/wren-bridge/binding"
	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/value"
	"go.uber.org/zap"
)

// marker walks the object graph from the VM roots.
type marker struct {
	live map[foreign.Handle]bool
	seen map[any]bool
}

func (m *marker) value(v value.Value) {
	switch v.Kind() {
	case value.KindForeign:
		obj := v.AsForeign()
		m.live[obj.Handle] = true
		if c, ok := obj.Class.(*class); ok {
			m.class(c)
		}
	case value.KindList:
		l := v.AsList()
		if l == nil || m.seen[l] {
			return
		}
		m.seen[l] = true
		for _, e := range l.Elems {
			m.value(e)
		}
	case value.KindInstance:
		inst, ok := v.Ref().(*instance)
		if !ok || m.seen[inst] {
			return
		}
		m.seen[inst] = true
		for _, f := range inst.fields {
			m.value(f)
		}
		m.class(inst.class)
	case value.KindClass:
		if c, ok := v.AsClass().(*class); ok {
			m.class(c)
		}
	}
}

func (m *marker) class(c *class) {
	for ; c != nil; c = c.super {
		if m.seen[c] {
			return
		}
		m.seen[c] = true
		for _, v := range c.staticFields {
			m.value(v)
		}
	}
}

func (m *marker) env(e *env) {
	for ; e != nil; e = e.parent {
		for _, v := range e.vars {
			m.value(v)
		}
	}
}

// collect finalizes every foreign object unreachable from the roots and
// returns how many were finalized.
func (vm *VM) collect() int {
	if vm.store.Finalizing() || vm.closed {
		return 0
	}

	m := &marker{
		live: make(map[foreign.Handle]bool),
		seen: make(map[any]bool),
	}

	m.class(vm.core.object)
	for _, c := range vm.core.module.vars {
		m.value(c)
	}
	for _, mod := range vm.modules {
		for _, v := range mod.vars {
			m.value(v)
		}
	}
	for _, v := range vm.stack {
		m.value(v)
	}
	for _, f := range vm.frames {
		m.value(f.this)
		m.env(f.env)
	}
	for _, f := range vm.natives {
		for _, v := range f.Values() {
			m.value(v)
		}
	}
	for _, v := range vm.api.Values() {
		m.value(v)
	}
	for h := range vm.handles {
		m.value(h.value)
	}

	var dead []foreign.Handle
	vm.store.Each(func(h foreign.Handle, _ *foreign.Class, _ any) bool {
		if !m.live[h] {
			dead = append(dead, h)
		}
		return true
	})
	for _, h := range dead {
		if _, err := vm.store.Finalize(h); err != nil {
			vm.reportFinalize(err)
		}
	}

	vm.allocSince = 0
	Logger().Debug("garbage collected",
		zap.Int("finalized", len(dead)),
		zap.Int("live", vm.store.Len()))
	return len(dead)
}

// reportFinalize logs a finalizer failure and passes it to the error
// callback. The object stays finalized and the script keeps running.
func (vm *VM) reportFinalize(err error) {
	Logger().Warn("finalizer failed", zap.Error(err))
	if vm.cfg.ErrorFn != nil {
		vm.cfg.ErrorFn(binding.ErrorRuntime, "", 0, err.Error())
	}
}

// CollectGarbage runs a collection now and returns the number of foreign
// objects finalized.
func (vm *VM) CollectGarbage() int {
	return vm.collect()
}
