package binding

import (
	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/slot"
	"go.uber.org/zap"
)

// DefaultGCThreshold is the number of foreign allocations between
// automatic collections.
const DefaultGCThreshold = 1024

// MethodResolver returns the native function bound to a foreign method, or
// nil when none is.
type MethodResolver func(module, class string, static bool, signature string) slot.MethodFn

// ClassResolver returns the allocate/finalize pair of a foreign class. An
// error is fatal to the VM.
type ClassResolver func(module, class string) (slot.ClassMethods, error)

// ModuleLoader returns the full source text of a module. A miss must be
// reported with errors.ModuleNotFound.
type ModuleLoader func(name string) (string, error)

// ModuleResolver maps an import name as written in importer to the
// canonical module name passed to the loader.
type ModuleResolver func(importer, name string) string

// WriteFn receives text printed by script code.
type WriteFn func(text string)

// ErrorKind classifies a report passed to ErrorFn.
type ErrorKind uint8

const (
	ErrorCompile ErrorKind = iota
	ErrorRuntime
	ErrorStackTrace
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorCompile:
		return "compile"
	case ErrorRuntime:
		return "runtime"
	case ErrorStackTrace:
		return "stack trace"
	default:
		return "unknown"
	}
}

// ErrorFn receives compile errors, runtime errors and each stack trace line
// of a runtime error. Line is zero for runtime errors.
type ErrorFn func(kind ErrorKind, module string, line int, message string)

// Config is the set of callbacks a VM is created with.
type Config struct {
	BindForeignMethodFn MethodResolver
	BindForeignClassFn  ClassResolver
	LoadModuleFn        ModuleLoader
	ResolveModuleFn     ModuleResolver
	WriteFn             WriteFn
	ErrorFn             ErrorFn
	Observers           []foreign.Observer
	GCThreshold         int
}

// DefaultConfig returns a configuration with no bindings and no loader.
func DefaultConfig() Config {
	return Config{
		GCThreshold: DefaultGCThreshold,
	}
}

// Option adjusts a Config built by New.
type Option func(*Config)

// WithLoader sets the module loader.
func WithLoader(l ModuleLoader) Option {
	return func(c *Config) { c.LoadModuleFn = l }
}

// WithResolver sets the import name resolver.
func WithResolver(r ModuleResolver) Option {
	return func(c *Config) { c.ResolveModuleFn = r }
}

// WithWriter sets the sink for System.print and System.write.
func WithWriter(w WriteFn) Option {
	return func(c *Config) { c.WriteFn = w }
}

// WithErrorFn sets the error sink.
func WithErrorFn(fn ErrorFn) Option {
	return func(c *Config) { c.ErrorFn = fn }
}

// WithObserver subscribes o to the VM's foreign object store.
func WithObserver(o foreign.Observer) Option {
	return func(c *Config) { c.Observers = append(c.Observers, o) }
}

// WithGCThreshold sets how many foreign allocations trigger a collection.
// Zero or less disables automatic collection.
func WithGCThreshold(n int) Option {
	return func(c *Config) { c.GCThreshold = n }
}

// New returns a configuration whose resolvers read reg.
func New(reg *registry.Registry, opts ...Option) Config {
	cfg := DefaultConfig()
	cfg.BindForeignMethodFn = MethodsFrom(reg)
	cfg.BindForeignClassFn = ClassesFrom(reg)
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// MethodsFrom adapts a registry to a MethodResolver.
func MethodsFrom(reg *registry.Registry) MethodResolver {
	return func(module, class string, static bool, signature string) slot.MethodFn {
		fn, ok := reg.LookupMethod(module, class, signature, static)
		if !ok {
			Logger().Debug("foreign method unbound",
				zap.String("module", module),
				zap.String("class", class),
				zap.String("signature", signature),
				zap.Bool("static", static))
			return nil
		}
		return fn
	}
}

// ClassesFrom adapts a registry to a ClassResolver.
func ClassesFrom(reg *registry.Registry) ClassResolver {
	return func(module, class string) (slot.ClassMethods, error) {
		cm, err := reg.LookupClass(module, class)
		if err != nil {
			Logger().Error("foreign class unbound",
				zap.String("module", module),
				zap.String("class", class))
			return slot.ClassMethods{}, err
		}
		return cm, nil
	}
}
