package vm

import (
	"strings"
	"unicode"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/value"
	"github.com/wippyai/wren-bridge/vm/internal/syntax"
	"go.uber.org/zap"
)

// ctl is how a statement finished.
type ctl uint8

const (
	ctlNone ctl = iota
	ctlBreak
	ctlContinue
	ctlReturn
)

func (vm *VM) pushFrame(f *frame) error {
	if len(vm.frames) >= maxFrames {
		return vm.runtimeError(nil, "Stack overflow.")
	}
	vm.frames = append(vm.frames, f)
	return nil
}

func (vm *VM) popFrame() {
	vm.frames = vm.frames[:len(vm.frames)-1]
}

// push roots a temporary for the duration of an expression and returns the
// stack height to restore.
func (vm *VM) push(v value.Value) int {
	vm.stack = append(vm.stack, v)
	return len(vm.stack) - 1
}

func (vm *VM) truncate(base int) {
	for i := base; i < len(vm.stack); i++ {
		vm.stack[i] = value.Null
	}
	vm.stack = vm.stack[:base]
}

// safepoint runs between statements: it honours cancellation and runs a
// pending collection.
func (vm *VM) safepoint() error {
	if err := vm.ctx.Err(); err != nil {
		e := vm.runtimeError(err, "Execution cancelled.")
		e.Kind = errors.KindCancelled
		return e
	}
	if t := vm.cfg.GCThreshold; t > 0 && vm.allocSince >= t {
		vm.collect()
	}
	return nil
}

func (vm *VM) execModule(m *module, ast *syntax.Module) error {
	f := &frame{module: m}
	if len(ast.Stmts) > 0 {
		f.line = ast.Stmts[0].Pos()
	}
	if err := vm.pushFrame(f); err != nil {
		return err
	}
	defer vm.popFrame()

	for _, s := range ast.Stmts {
		c, _, err := vm.exec(f, s)
		if err != nil {
			return err
		}
		if c == ctlReturn {
			break
		}
	}
	return nil
}

func (vm *VM) exec(f *frame, s syntax.Stmt) (ctl, value.Value, error) {
	f.line = s.Pos()
	if err := vm.safepoint(); err != nil {
		return ctlNone, value.Null, err
	}

	switch s := s.(type) {
	case *syntax.ExprStmt:
		_, err := vm.eval(f, s.X)
		return ctlNone, value.Null, err

	case *syntax.VarStmt:
		v := value.Null
		if s.Init != nil {
			var err error
			if v, err = vm.eval(f, s.Init); err != nil {
				return ctlNone, value.Null, err
			}
		}
		vm.declare(f, s.Name, v)
		return ctlNone, value.Null, nil

	case *syntax.BlockStmt:
		return vm.execBlock(f, s.Stmts)

	case *syntax.IfStmt:
		cond, err := vm.eval(f, s.Cond)
		if err != nil {
			return ctlNone, value.Null, err
		}
		if cond.Truthy() {
			return vm.execScoped(f, s.Then)
		}
		if s.Else != nil {
			return vm.execScoped(f, s.Else)
		}
		return ctlNone, value.Null, nil

	case *syntax.WhileStmt:
		for {
			cond, err := vm.eval(f, s.Cond)
			if err != nil {
				return ctlNone, value.Null, err
			}
			if !cond.Truthy() {
				return ctlNone, value.Null, nil
			}
			c, v, err := vm.execScoped(f, s.Body)
			if err != nil || c == ctlReturn {
				return c, v, err
			}
			if c == ctlBreak {
				return ctlNone, value.Null, nil
			}
			f.line = s.Line
		}

	case *syntax.ForStmt:
		return vm.execFor(f, s)

	case *syntax.BreakStmt:
		return ctlBreak, value.Null, nil

	case *syntax.ContinueStmt:
		return ctlContinue, value.Null, nil

	case *syntax.ReturnStmt:
		if s.Value == nil {
			return ctlReturn, value.Null, nil
		}
		v, err := vm.eval(f, s.Value)
		return ctlReturn, v, err

	case *syntax.ImportStmt:
		return ctlNone, value.Null, vm.execImport(f, s)

	case *syntax.ClassStmt:
		return ctlNone, value.Null, vm.execClass(f, s)
	}

	return ctlNone, value.Null, vm.runtimeError(nil, "Unsupported statement.")
}

// execScoped runs a branch or loop body in its own scope.
func (vm *VM) execScoped(f *frame, s syntax.Stmt) (ctl, value.Value, error) {
	if b, ok := s.(*syntax.BlockStmt); ok {
		return vm.execBlock(f, b.Stmts)
	}
	return vm.execBlock(f, []syntax.Stmt{s})
}

func (vm *VM) execBlock(f *frame, stmts []syntax.Stmt) (ctl, value.Value, error) {
	saved := f.env
	f.env = newEnv(saved)
	defer func() { f.env = saved }()

	for _, s := range stmts {
		c, v, err := vm.exec(f, s)
		if err != nil || c != ctlNone {
			return c, v, err
		}
	}
	return ctlNone, value.Null, nil
}

func (vm *VM) execFor(f *frame, s *syntax.ForStmt) (ctl, value.Value, error) {
	seq, err := vm.eval(f, s.Seq)
	if err != nil {
		return ctlNone, value.Null, err
	}
	base := vm.push(seq)
	iterSlot := vm.push(value.Null)
	defer vm.truncate(base)

	iter := value.Null
	for {
		iter, err = vm.call(seq, "iterate(_)", []value.Value{iter})
		if err != nil {
			return ctlNone, value.Null, err
		}
		vm.stack[iterSlot] = iter
		if !iter.Truthy() {
			return ctlNone, value.Null, nil
		}
		elem, err := vm.call(seq, "iteratorValue(_)", []value.Value{iter})
		if err != nil {
			return ctlNone, value.Null, err
		}

		saved := f.env
		f.env = newEnv(saved)
		f.env.vars[s.Name] = elem
		c, v, err := vm.execScoped(f, s.Body)
		f.env = saved

		if err != nil || c == ctlReturn {
			return c, v, err
		}
		if c == ctlBreak {
			return ctlNone, value.Null, nil
		}
		f.line = s.Line
	}
}

// declare defines a variable in the innermost scope.
func (vm *VM) declare(f *frame, name string, v value.Value) {
	if f.env == nil {
		f.module.define(name, v)
		return
	}
	f.env.vars[name] = v
}

func (vm *VM) execImport(f *frame, s *syntax.ImportStmt) error {
	name := s.Module
	if vm.cfg.ResolveModuleFn != nil {
		name = vm.cfg.ResolveModuleFn(f.module.name, name)
	}

	m, err := vm.importModule(name)
	if err != nil {
		return err
	}

	for _, v := range s.Names {
		val, ok := m.vars[v]
		if !ok {
			return vm.runtimeError(errors.NotFound(errors.PhaseLoad, "variable", v),
				"Could not find a variable named '%s' in module '%s'.", v, name)
		}
		vm.declare(f, v, val)
	}
	return nil
}

func (vm *VM) importModule(name string) (*module, error) {
	if m, ok := vm.modules[name]; ok {
		return m, nil
	}

	if vm.cfg.LoadModuleFn == nil {
		return nil, vm.runtimeError(errors.ModuleNotFound(name, nil), "Could not load module '%s'.", name)
	}
	src, err := vm.cfg.LoadModuleFn(name)
	if err != nil {
		return nil, vm.runtimeError(err, "Could not load module '%s'.", name)
	}

	ast, err := syntax.Parse(name, src)
	if err != nil {
		vm.reportCompile(err)
		return nil, vm.runtimeError(err, "Could not compile module '%s'.", name)
	}

	Logger().Debug("module imported", zap.String("module", name))

	m := newModule(name)
	vm.modules[name] = m
	if err := vm.execModule(m, ast); err != nil {
		return nil, err
	}
	return m, nil
}

func (vm *VM) execClass(f *frame, s *syntax.ClassStmt) error {
	super := vm.core.object
	if s.Super != nil {
		sv, err := vm.eval(f, s.Super)
		if err != nil {
			return err
		}
		sc, ok := sv.AsClass().(*class)
		if !ok || sc == nil {
			return vm.runtimeError(nil, "Class '%s' cannot inherit from a non-class object.", s.Name)
		}
		switch {
		case sc.builtin && sc != vm.core.object:
			return vm.runtimeError(nil, "Class '%s' cannot inherit from built-in class '%s'.", s.Name, sc.name)
		case sc.foreign && !s.Foreign:
			return vm.runtimeError(nil, "Class '%s' cannot inherit from foreign class '%s'.", s.Name, sc.name)
		}
		super = sc
	}

	c := newClass(s.Name, f.module.name, super)
	c.foreign = s.Foreign

	if s.Foreign {
		if err := vm.bindForeignClass(c); err != nil {
			return err
		}
	}

	for _, d := range s.Methods {
		m := &method{
			decl:    d,
			owner:   c,
			sig:     d.Signature,
			foreign: d.Foreign,
			ctor:    d.Kind == syntax.MethodConstructor,
			static:  d.Static,
		}
		if m.foreign && vm.cfg.BindForeignMethodFn != nil {
			m.native = vm.cfg.BindForeignMethodFn(f.module.name, s.Name, d.Static, d.Signature)
			if m.native == nil {
				Logger().Debug("foreign method left unbound",
					zap.String("module", f.module.name),
					zap.String("class", s.Name),
					zap.String("signature", d.Signature))
			}
		}
		if m.ctor || m.static {
			c.statics[m.sig] = m
		} else {
			c.methods[m.sig] = m
		}
	}

	vm.declare(f, s.Name, value.FromClass(c))
	return nil
}

// bindForeignClass resolves the allocator of a foreign class. Failure is
// fatal.
func (vm *VM) bindForeignClass(c *class) error {
	var err error
	if vm.cfg.BindForeignClassFn == nil {
		err = errors.UnboundClass(c.module, c.name)
	} else {
		cm, berr := vm.cfg.BindForeignClassFn(c.module, c.name)
		switch {
		case berr != nil:
			err = berr
			if !errors.IsFatal(err) {
				err = errors.New(errors.PhaseBind, errors.KindUnboundClass).
					Module(c.module).
					Class(c.name).
					Cause(berr).
					Detail("foreign class binding failed").
					Build()
			}
		case cm.Allocate == nil:
			err = errors.UnboundClass(c.module, c.name)
		default:
			vm.nextClassID++
			c.alloc = cm.Allocate
			c.desc = &foreign.Class{
				ID:       vm.nextClassID,
				Name:     registry.ClassKey{Module: c.module, Class: c.name}.Qualified(),
				Finalize: cm.Finalize,
			}
			Logger().Debug("foreign class bound", zap.String("class", c.desc.Name))
			return nil
		}
	}
	return vm.runtimeError(err, "Could not find foreign class '%s' in module '%s'.", c.name, c.module)
}

// ---------------------------------------------------------------------------
// Expressions

func (vm *VM) eval(f *frame, x syntax.Expr) (value.Value, error) {
	switch x := x.(type) {
	case *syntax.NumLit:
		return value.Num(x.Value), nil
	case *syntax.StrLit:
		return value.String(x.Value), nil
	case *syntax.BoolLit:
		return value.Bool(x.Value), nil
	case *syntax.NullLit:
		return value.Null, nil
	case *syntax.ThisExpr:
		if f.class == nil {
			return value.Null, vm.runtimeError(nil, "Cannot use 'this' outside of a method.")
		}
		return f.this, nil
	case *syntax.InterpExpr:
		return vm.evalInterp(f, x)
	case *syntax.ListLit:
		return vm.evalList(f, x)
	case *syntax.Ident:
		return vm.evalIdent(f, x)
	case *syntax.FieldExpr:
		return vm.evalField(f, x)
	case *syntax.CallExpr:
		return vm.evalCall(f, x)
	case *syntax.SuperCall:
		return vm.evalSuper(f, x)
	case *syntax.UnaryExpr:
		v, err := vm.eval(f, x.X)
		if err != nil {
			return value.Null, err
		}
		return vm.call(v, x.Op, nil)
	case *syntax.BinaryExpr:
		return vm.evalBinary(f, x)
	case *syntax.IsExpr:
		return vm.evalIs(f, x)
	case *syntax.LogicalExpr:
		l, err := vm.eval(f, x.L)
		if err != nil {
			return value.Null, err
		}
		if l.Truthy() != x.And {
			return l, nil
		}
		return vm.eval(f, x.R)
	case *syntax.CondExpr:
		c, err := vm.eval(f, x.Cond)
		if err != nil {
			return value.Null, err
		}
		if c.Truthy() {
			return vm.eval(f, x.Then)
		}
		return vm.eval(f, x.Else)
	case *syntax.AssignExpr:
		return vm.evalAssign(f, x)
	}
	return value.Null, vm.runtimeError(nil, "Unsupported expression.")
}

func (vm *VM) evalInterp(f *frame, x *syntax.InterpExpr) (value.Value, error) {
	var b strings.Builder
	for i, e := range x.Exprs {
		b.WriteString(x.Parts[i])
		v, err := vm.eval(f, e)
		if err != nil {
			return value.Null, err
		}
		base := vm.push(v)
		s, err := vm.toString(v)
		vm.truncate(base)
		if err != nil {
			return value.Null, err
		}
		b.WriteString(s)
	}
	b.WriteString(x.Parts[len(x.Parts)-1])
	return value.String(b.String()), nil
}

func (vm *VM) evalList(f *frame, x *syntax.ListLit) (value.Value, error) {
	list := &value.List{Elems: make([]value.Value, 0, len(x.Elems))}
	base := vm.push(value.FromList(list))
	defer vm.truncate(base)
	for _, e := range x.Elems {
		v, err := vm.eval(f, e)
		if err != nil {
			return value.Null, err
		}
		list.Elems = append(list.Elems, v)
	}
	return value.FromList(list), nil
}

// isLocalName reports whether name resolves against this inside methods.
func isLocalName(name string) bool {
	for _, r := range name {
		return unicode.IsLower(r)
	}
	return false
}

func (vm *VM) evalIdent(f *frame, x *syntax.Ident) (value.Value, error) {
	if v, ok := f.env.lookup(x.Name); ok {
		return v, nil
	}
	if f.class != nil && isLocalName(x.Name) {
		return vm.call(f.this, x.Name, nil)
	}
	if v, ok := vm.lookupGlobal(f, x.Name); ok {
		return v, nil
	}
	return value.Null, vm.runtimeError(nil, "Variable '%s' is not defined.", x.Name)
}

func (vm *VM) lookupGlobal(f *frame, name string) (value.Value, bool) {
	if v, ok := f.module.vars[name]; ok {
		return v, true
	}
	v, ok := vm.core.module.vars[name]
	return v, ok
}

func (vm *VM) fieldOwner(f *frame, static bool) (map[string]value.Value, error) {
	if f.class == nil {
		return nil, vm.runtimeError(nil, "Cannot reference a field outside of a class definition.")
	}
	if static {
		return f.class.staticFields, nil
	}
	inst, ok := f.this.Ref().(*instance)
	if !ok || f.this.Kind() != value.KindInstance {
		if f.class.foreign {
			return nil, vm.runtimeError(nil, "Cannot define fields in a foreign class.")
		}
		return nil, vm.runtimeError(nil, "Cannot use an instance field in a static method.")
	}
	return inst.fields, nil
}

func (vm *VM) evalField(f *frame, x *syntax.FieldExpr) (value.Value, error) {
	fields, err := vm.fieldOwner(f, x.Static)
	if err != nil {
		return value.Null, err
	}
	return fields[x.Name], nil
}

func (vm *VM) evalAssign(f *frame, x *syntax.AssignExpr) (value.Value, error) {
	v, err := vm.eval(f, x.Value)
	if err != nil {
		return value.Null, err
	}

	switch t := x.Target.(type) {
	case *syntax.FieldExpr:
		fields, err := vm.fieldOwner(f, t.Static)
		if err != nil {
			return value.Null, err
		}
		fields[t.Name] = v
		return v, nil

	case *syntax.Ident:
		if f.env.assign(t.Name, v) {
			return v, nil
		}
		if f.class != nil && isLocalName(t.Name) {
			return vm.call(f.this, registry.Setter(t.Name).String(), []value.Value{v})
		}
		if _, ok := f.module.vars[t.Name]; ok {
			f.module.vars[t.Name] = v
			return v, nil
		}
		return value.Null, vm.runtimeError(nil, "Variable '%s' is not defined.", t.Name)
	}
	return value.Null, vm.runtimeError(nil, "Invalid assignment target.")
}

// evalArgs evaluates args onto the temporary stack after recv. The caller
// must truncate to the returned base.
func (vm *VM) evalArgs(f *frame, recv value.Value, exprs []syntax.Expr) (int, []value.Value, error) {
	base := vm.push(recv)
	for _, e := range exprs {
		v, err := vm.eval(f, e)
		if err != nil {
			return base, nil, err
		}
		vm.push(v)
	}
	args := append([]value.Value(nil), vm.stack[base+1:]...)
	return base, args, nil
}

func (vm *VM) evalCall(f *frame, x *syntax.CallExpr) (value.Value, error) {
	var recv value.Value
	if x.Recv == nil {
		if f.class == nil {
			return value.Null, vm.runtimeError(nil, "Undefined function '%s'.", x.Name)
		}
		recv = f.this
	} else {
		var err error
		if recv, err = vm.eval(f, x.Recv); err != nil {
			return value.Null, err
		}
	}

	base, args, err := vm.evalArgs(f, recv, x.Args)
	defer vm.truncate(base)
	if err != nil {
		return value.Null, err
	}
	return vm.call(recv, x.Signature, args)
}

func (vm *VM) evalSuper(f *frame, x *syntax.SuperCall) (value.Value, error) {
	if f.class == nil || f.method == nil {
		return value.Null, vm.runtimeError(nil, "Cannot use 'super' outside of a method.")
	}
	super := f.class.super

	base, args, err := vm.evalArgs(f, f.this, x.Args)
	defer vm.truncate(base)
	if err != nil {
		return value.Null, err
	}

	sig := x.Signature
	if sig == "" {
		sig = registry.Method(f.method.decl.Name, len(args)).String()
	}

	if f.method.ctor {
		if x.Signature != "" {
			return value.Null, vm.runtimeError(nil, "Cannot call super methods from a constructor.")
		}
		if super == nil || super == vm.core.object {
			return value.Null, nil
		}
		m, ok := super.statics[sig]
		if !ok || !m.ctor {
			return value.Null, vm.runtimeError(nil, "%s does not have a constructor '%s'.", super.name, sig)
		}
		_, err := vm.runBody(m, f.this, args)
		return value.Null, err
	}

	if f.this.Kind() == value.KindClass {
		for k := super; k != nil; k = k.super {
			if m, ok := k.statics[sig]; ok {
				return vm.invoke(m, f.this, args)
			}
		}
	} else if super != nil {
		if m := super.lookup(sig); m != nil {
			return vm.invoke(m, f.this, args)
		}
	}
	return value.Null, vm.runtimeError(nil, "%s does not implement '%s'.", super.name, sig)
}

func (vm *VM) evalBinary(f *frame, x *syntax.BinaryExpr) (value.Value, error) {
	l, err := vm.eval(f, x.L)
	if err != nil {
		return value.Null, err
	}
	base := vm.push(l)
	defer vm.truncate(base)
	r, err := vm.eval(f, x.R)
	if err != nil {
		return value.Null, err
	}
	return vm.call(l, x.Op+"(_)", []value.Value{r})
}

func (vm *VM) evalIs(f *frame, x *syntax.IsExpr) (value.Value, error) {
	v, err := vm.eval(f, x.X)
	if err != nil {
		return value.Null, err
	}
	base := vm.push(v)
	defer vm.truncate(base)
	cv, err := vm.eval(f, x.Class)
	if err != nil {
		return value.Null, err
	}
	c, ok := cv.AsClass().(*class)
	if !ok || c == nil {
		return value.Null, vm.runtimeError(nil, "Right operand must be a class.")
	}
	return value.Bool(vm.classOf(v).inherits(c)), nil
}
