package vm

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/wippyai/wren-bridge/binding"
	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/slot"
	"github.com/wippyai/wren-bridge/value"
	"github.com/wippyai/wren-bridge/vm/internal/syntax"
	"go.uber.org/zap"
)

// Result is the outcome of Interpret or Call.
type Result int

const (
	ResultSuccess Result = iota
	ResultCompileError
	ResultRuntimeError
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// maxFrames bounds script call depth.
const maxFrames = 2048

// VM is one interpreter instance.
type VM struct {
	cfg     binding.Config
	store   *foreign.Store
	host    *host
	ctx     context.Context
	core    *coreClasses
	modules map[string]*module
	api     *slot.Frame
	handles map[*Handle]struct{}
	fatal   error

	frames  []*frame
	stack   []value.Value
	natives []*slot.Frame

	nativeDepth int
	allocSince  int
	nextClassID uint32
	closed      bool
}

// New creates a VM. The configuration is fixed for the VM's lifetime.
func New(cfg binding.Config) *VM {
	vm := &VM{
		cfg:     cfg,
		store:   foreign.NewStore(),
		modules: make(map[string]*module),
		handles: make(map[*Handle]struct{}),
		ctx:     context.Background(),
	}
	vm.host = &host{vm: vm}
	vm.api = slot.NewFrame(vm.host, 1)
	for _, o := range cfg.Observers {
		vm.store.Subscribe(o)
	}
	vm.defineCore()
	return vm
}

// Store returns the VM's foreign object store.
func (vm *VM) Store() *foreign.Store {
	return vm.store
}

// Fatal returns the fatal error that stopped the VM, if any.
func (vm *VM) Fatal() error {
	return vm.fatal
}

// Interpret compiles source as module and runs it. Running into an
// existing module adds to its variables. Compile errors carry the module
// and line; runtime errors carry a stack trace.
func (vm *VM) Interpret(ctx context.Context, moduleName, source string) (Result, error) {
	if err := vm.enter("Interpret"); err != nil {
		return ResultRuntimeError, err
	}

	ast, err := syntax.Parse(moduleName, source)
	if err != nil {
		vm.reportCompile(err)
		return ResultCompileError, err
	}

	m, ok := vm.modules[moduleName]
	if !ok {
		m = newModule(moduleName)
		vm.modules[moduleName] = m
	}

	err = vm.run(ctx, func() error {
		return vm.execModule(m, ast)
	})
	if err != nil {
		return ResultRuntimeError, err
	}
	return ResultSuccess, nil
}

// enter rejects host calls the VM cannot accept right now.
func (vm *VM) enter(op string) error {
	switch {
	case vm.fatal != nil:
		return vm.fatal
	case vm.closed:
		return errors.NotInitialized(errors.PhaseHost, "vm (closed)")
	case vm.nativeDepth > 0, vm.store.Finalizing():
		return errors.Reentrant(op)
	}
	return nil
}

// run executes fn with ctx installed and reports a runtime error.
func (vm *VM) run(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	prev := vm.ctx
	vm.ctx = ctx
	defer func() {
		vm.ctx = prev
		vm.frames = vm.frames[:0]
		vm.stack = vm.stack[:0]
	}()

	err := fn()
	if err == nil {
		return nil
	}
	if errors.IsFatal(err) {
		vm.fatal = err
		Logger().Error("vm halted", zap.Error(err))
	}
	vm.reportRuntime(err)
	return err
}

func (vm *VM) reportCompile(err error) {
	if vm.cfg.ErrorFn == nil {
		return
	}
	var e *errors.Error
	if stderrors.As(err, &e) {
		vm.cfg.ErrorFn(binding.ErrorCompile, e.Module, e.Line, e.Detail)
		return
	}
	vm.cfg.ErrorFn(binding.ErrorCompile, "", 0, err.Error())
}

func (vm *VM) reportRuntime(err error) {
	if vm.cfg.ErrorFn == nil {
		return
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		vm.cfg.ErrorFn(binding.ErrorRuntime, "", 0, err.Error())
		return
	}
	vm.cfg.ErrorFn(binding.ErrorRuntime, "", 0, e.Detail)
	for _, f := range e.Trace {
		vm.cfg.ErrorFn(binding.ErrorStackTrace, f.Module, f.Line, f.Function)
	}
}

// runtimeError builds a script runtime error with the current stack trace.
func (vm *VM) runtimeError(cause error, format string, args ...any) *errors.Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	e := errors.Runtime(msg, cause)
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		e.Trace = append(e.Trace, errors.Frame{
			Module:   f.module.name,
			Function: f.function(),
			Line:     f.line,
		})
	}
	if len(vm.frames) > 0 {
		top := vm.frames[len(vm.frames)-1]
		e.Module = top.module.name
		e.Line = top.line
	}
	return e
}

// asRuntime converts an error returned by native code into a runtime error.
func (vm *VM) asRuntime(err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Phase == errors.PhaseRuntime && len(e.Trace) > 0 {
		return err
	}
	return vm.runtimeError(err, "%s", err.Error())
}

func (vm *VM) write(s string) {
	if vm.cfg.WriteFn != nil {
		vm.cfg.WriteFn(s)
	}
}

// HasModule reports whether a module has been loaded.
func (vm *VM) HasModule(name string) bool {
	_, ok := vm.modules[name]
	return ok
}

// HasVariable reports whether module defines a top-level variable name.
func (vm *VM) HasVariable(moduleName, name string) bool {
	m, ok := vm.modules[moduleName]
	if !ok {
		return false
	}
	_, ok = m.vars[name]
	return ok
}

// Variables returns the top-level variable names of a module in
// declaration order.
func (vm *VM) Variables(moduleName string) []string {
	m, ok := vm.modules[moduleName]
	if !ok {
		return nil
	}
	return append([]string(nil), m.order...)
}

// variable resolves a top-level variable for the host API.
func (vm *VM) variable(moduleName, name string) (value.Value, error) {
	m, ok := vm.modules[moduleName]
	if !ok {
		return value.Null, errors.New(errors.PhaseHost, errors.KindNotFound).
			Module(moduleName).
			Detail("module %q is not loaded", moduleName).
			Build()
	}
	v, ok := m.vars[name]
	if !ok {
		return value.Null, errors.New(errors.PhaseHost, errors.KindNotFound).
			Module(moduleName).
			Detail("variable %q not defined", name).
			Build()
	}
	return v, nil
}

// Close finalizes every remaining foreign object. The VM cannot be used
// afterwards. Panics from finalizers are returned as joined finalize errors.
func (vm *VM) Close() error {
	if vm.closed {
		return nil
	}
	if vm.nativeDepth > 0 {
		return errors.Reentrant("Close")
	}
	vm.closed = true
	for h := range vm.handles {
		h.released = true
	}
	vm.handles = nil
	Logger().Debug("vm closed", zap.Int("live_foreign", vm.store.Len()))
	return vm.store.Close()
}
