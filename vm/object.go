package vm

import (
	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/slot"
	"github.com/wippyai/wren-bridge/value"
	"github.com/wippyai/wren-bridge/vm/internal/syntax"
)

// primitive is a method implemented by the VM itself.
type primitive func(vm *VM, recv value.Value, args []value.Value) (value.Value, error)

// method is one entry of a class method table.
type method struct {
	prim   primitive
	native slot.MethodFn
	decl   *syntax.MethodDecl
	owner  *class
	sig    string
	// foreign is set for methods declared foreign; native is nil when
	// nothing was bound.
	foreign bool
	ctor    bool
	static  bool
}

// qualified names the method in stack traces, for example "Vec3.dot(_)".
func (m *method) qualified() string {
	if m.owner == nil {
		return m.sig
	}
	if m.static || m.ctor {
		return m.owner.name + " static " + m.sig
	}
	return m.owner.name + "." + m.sig
}

// class is a script class. It implements value.ClassRef.
type class struct {
	super        *class
	methods      map[string]*method
	statics      map[string]*method
	staticFields map[string]value.Value
	alloc        slot.MethodFn
	desc         *foreign.Class
	name         string
	module       string
	foreign      bool
	builtin      bool
}

func newClass(name, module string, super *class) *class {
	return &class{
		name:         name,
		module:       module,
		super:        super,
		methods:      make(map[string]*method),
		statics:      make(map[string]*method),
		staticFields: make(map[string]value.Value),
	}
}

func (c *class) Name() string    { return c.name }
func (c *class) Module() string  { return c.module }
func (c *class) IsForeign() bool { return c.foreign }

// lookup finds an instance method, walking the superclass chain.
func (c *class) lookup(sig string) *method {
	for k := c; k != nil; k = k.super {
		if m, ok := k.methods[sig]; ok {
			return m
		}
	}
	return nil
}

// inherits reports whether c is other or a subclass of it.
func (c *class) inherits(other *class) bool {
	for k := c; k != nil; k = k.super {
		if k == other {
			return true
		}
	}
	return false
}

// instance is an object of a non-foreign script class.
type instance struct {
	class  *class
	fields map[string]value.Value
}

// module is a named set of top-level variables.
type module struct {
	vars  map[string]value.Value
	name  string
	order []string
}

func newModule(name string) *module {
	return &module{name: name, vars: make(map[string]value.Value)}
}

func (m *module) define(name string, v value.Value) {
	if _, ok := m.vars[name]; !ok {
		m.order = append(m.order, name)
	}
	m.vars[name] = v
}

// env is a block scope.
type env struct {
	vars   map[string]value.Value
	parent *env
}

func newEnv(parent *env) *env {
	return &env{vars: make(map[string]value.Value), parent: parent}
}

func (e *env) lookup(name string) (value.Value, bool) {
	for s := e; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return value.Null, false
}

func (e *env) assign(name string, v value.Value) bool {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.vars[name]; ok {
			s.vars[name] = v
			return true
		}
	}
	return false
}

// frame is one active script call.
type frame struct {
	module *module
	class  *class
	method *method
	env    *env
	this   value.Value
	line   int
}

// function names the frame in stack traces.
func (f *frame) function() string {
	if f.method == nil {
		return "(script)"
	}
	return f.method.qualified()
}
