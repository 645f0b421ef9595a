package vm

import (
	"fmt"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/slot"
	"github.com/wippyai/wren-bridge/value"
)

// classOf returns the class that handles method calls on v. Class objects
// answer to the core Class class; their static methods are looked up first
// by call.
func (vm *VM) classOf(v value.Value) *class {
	switch v.Kind() {
	case value.KindNull:
		return vm.core.null
	case value.KindBool:
		return vm.core.boolean
	case value.KindNum:
		return vm.core.num
	case value.KindString:
		return vm.core.str
	case value.KindList:
		return vm.core.list
	case value.KindRange:
		return vm.core.rng
	case value.KindClass:
		return vm.core.class
	case value.KindInstance:
		if inst, ok := v.Ref().(*instance); ok {
			return inst.class
		}
	case value.KindForeign:
		if c, ok := v.AsForeign().Class.(*class); ok {
			return c
		}
	}
	return vm.core.object
}

// call dispatches sig on recv.
func (vm *VM) call(recv value.Value, sig string, args []value.Value) (value.Value, error) {
	if recv.Kind() == value.KindClass {
		c, _ := recv.AsClass().(*class)
		if c != nil {
			if m, ok := c.statics[sig]; ok {
				return vm.invoke(m, recv, args)
			}
		}
		if m := vm.core.class.lookup(sig); m != nil {
			return vm.invoke(m, recv, args)
		}
		name := "?"
		if c != nil {
			name = c.name
		}
		return value.Null, vm.runtimeError(nil, "%s metaclass does not implement '%s'.", name, sig)
	}

	c := vm.classOf(recv)
	if m := c.lookup(sig); m != nil {
		return vm.invoke(m, recv, args)
	}
	return value.Null, vm.runtimeError(nil, "%s does not implement '%s'.", c.name, sig)
}

func (vm *VM) invoke(m *method, recv value.Value, args []value.Value) (value.Value, error) {
	switch {
	case m.prim != nil:
		return m.prim(vm, recv, args)
	case m.ctor:
		return vm.construct(m, recv, args)
	case m.foreign:
		if m.native == nil {
			return value.Null, vm.runtimeError(
				errors.UnboundMethod(m.owner.module, m.owner.name, m.sig),
				"Could not find foreign method '%s' for class %s in module '%s'.",
				m.sig, m.owner.name, m.owner.module)
		}
		return vm.callNative(m.native, recv, args)
	default:
		return vm.runBody(m, recv, args)
	}
}

// callNative runs fn with recv in slot 0 and args in slots 1..N and returns
// slot 0.
func (vm *VM) callNative(fn slot.MethodFn, recv value.Value, args []value.Value) (result value.Value, err error) {
	f := slot.NewFrame(vm.host, len(args)+1)
	s := f.Values()
	s[0] = recv
	copy(s[1:], args)

	vm.natives = append(vm.natives, f)
	vm.nativeDepth++
	defer func() {
		vm.nativeDepth--
		vm.natives = vm.natives[:len(vm.natives)-1]
		if r := recover(); r != nil {
			result = value.Null
			err = vm.runtimeError(fmt.Errorf("%v", r), "Foreign method panicked: %v", r)
		}
	}()

	if err := fn(f); err != nil {
		return value.Null, vm.asRuntime(err)
	}
	return f.Values()[0], nil
}

// construct creates an instance of the class in recv and runs the
// constructor body on it.
func (vm *VM) construct(m *method, recv value.Value, args []value.Value) (value.Value, error) {
	c, _ := recv.AsClass().(*class)
	if c == nil || c != m.owner {
		return value.Null, vm.runtimeError(nil, "Constructor '%s' must be called on its class.", m.sig)
	}

	var this value.Value
	if c.foreign {
		v, err := vm.callNative(c.alloc, recv, args)
		if err != nil {
			return value.Null, err
		}
		obj := v.AsForeign()
		if v.Kind() != value.KindForeign || obj.Class != value.ClassRef(c) {
			return value.Null, vm.runtimeError(
				errors.New(errors.PhaseAllocate, errors.KindInvalidData).
					Module(c.module).
					Class(c.name).
					Detail("allocator left %s in slot 0", v.Kind()).
					Build(),
				"Foreign class %s allocator did not create an instance.", c.name)
		}
		this = v
	} else {
		this = value.FromInstance(&instance{class: c, fields: make(map[string]value.Value)})
	}

	base := vm.push(this)
	defer vm.truncate(base)
	if _, err := vm.runBody(m, this, args); err != nil {
		return value.Null, err
	}
	return this, nil
}

// runBody executes the script body of m with this bound.
func (vm *VM) runBody(m *method, this value.Value, args []value.Value) (value.Value, error) {
	d := m.decl
	f := &frame{
		module: vm.modules[m.owner.module],
		class:  m.owner,
		method: m,
		this:   this,
		env:    newEnv(nil),
		line:   d.Line,
	}
	if f.module == nil {
		f.module = vm.core.module
	}
	for i, p := range d.Params {
		if i < len(args) {
			f.env.vars[p] = args[i]
		} else {
			f.env.vars[p] = value.Null
		}
	}

	if err := vm.pushFrame(f); err != nil {
		return value.Null, err
	}
	defer vm.popFrame()

	if d.ExprBody != nil {
		return vm.eval(f, d.ExprBody)
	}
	if d.Body == nil {
		return value.Null, nil
	}
	c, v, err := vm.execBlock(f, d.Body.Stmts)
	if err != nil {
		return value.Null, err
	}
	if c == ctlReturn {
		return v, nil
	}
	return value.Null, nil
}

// toString converts v with its toString method.
func (vm *VM) toString(v value.Value) (string, error) {
	if v.Kind() == value.KindString {
		return v.AsString(), nil
	}
	s, err := vm.call(v, "toString", nil)
	if err != nil {
		return "", err
	}
	if s.Kind() != value.KindString {
		return "", vm.runtimeError(nil, "toString must return a string.")
	}
	return s.AsString(), nil
}
