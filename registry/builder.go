package registry

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/slot"
)

// Middleware wraps every bound method when the registry is built.
type Middleware func(key MethodKey, next slot.MethodFn) slot.MethodFn

// Exporter is a native type that describes its own bindings.
//
// Export keys name a class and signature: "Vec3.dot(_)" for an instance
// method, "static Vec3.new(_,_,_)" for a static one, and a bare "Vec3" for
// the class itself. Method values are slot.MethodFn (or a plain
// func(*slot.Frame) error); class values are slot.ClassMethods.
type Exporter interface {
	Module() string
	Exports() map[string]any
}

// Option configures a Builder.
type Option func(*Builder)

// WithMiddleware adds middleware applied to every method, outermost first.
func WithMiddleware(mw ...Middleware) Option {
	return func(b *Builder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// Builder accumulates bindings. Errors are collected and reported by Build.
// A Builder is not safe for concurrent use.
type Builder struct {
	methods    map[MethodKey]slot.MethodFn
	classes    map[ClassKey]*slot.ClassMethods
	middleware []Middleware
	errs       []error
}

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		methods: make(map[MethodKey]slot.MethodFn),
		classes: make(map[ClassKey]*slot.ClassMethods),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefineMethod binds fn to a foreign method. The signature is validated and
// normalized to the wire format.
func (b *Builder) DefineMethod(module, class string, static bool, signature string, fn slot.MethodFn) *Builder {
	sig, err := ParseSignature(signature)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	key := MethodKey{Module: module, Class: class, Signature: sig.String(), Static: static}
	if module == "" || class == "" {
		b.errs = append(b.errs, errors.InvalidInput(errors.PhaseRegister,
			fmt.Sprintf("method %s needs a module and a class", key.Qualified())))
		return b
	}
	if fn == nil {
		b.errs = append(b.errs, errors.InvalidInput(errors.PhaseRegister,
			fmt.Sprintf("method %s has a nil function", key.Qualified())))
		return b
	}
	if _, dup := b.methods[key]; dup {
		b.errs = append(b.errs, errors.Collision(key.String()))
		return b
	}
	b.methods[key] = fn
	return b
}

// DefineClass binds the allocate/finalize pair of a foreign class.
func (b *Builder) DefineClass(module, class string, methods slot.ClassMethods) *Builder {
	key := ClassKey{Module: module, Class: class}
	if module == "" || class == "" {
		b.errs = append(b.errs, errors.InvalidInput(errors.PhaseRegister,
			fmt.Sprintf("class %q needs a module and a name", key.Qualified())))
		return b
	}
	if existing, ok := b.classes[key]; ok && existing.Allocate != nil {
		b.errs = append(b.errs, errors.Collision(key.String()))
		return b
	}
	m := methods
	b.classes[key] = &m
	return b
}

// Class starts a fluent definition of one foreign class.
func (b *Builder) Class(module, name string) *ClassBuilder {
	return &ClassBuilder{b: b, module: module, name: name}
}

// Register adds every binding an Exporter describes.
func (b *Builder) Register(e Exporter) *Builder {
	module := e.Module()
	if module == "" {
		b.errs = append(b.errs, errors.InvalidInput(errors.PhaseRegister, "exporter module cannot be empty"))
		return b
	}

	for name, v := range e.Exports() {
		static := false
		if rest, ok := strings.CutPrefix(name, "static "); ok {
			static = true
			name = rest
		}
		class, sig, hasSig := strings.Cut(name, ".")

		switch fn := v.(type) {
		case slot.ClassMethods:
			if hasSig || static {
				b.errs = append(b.errs, errors.InvalidInput(errors.PhaseRegister,
					fmt.Sprintf("export %q: class methods must use a bare class name", name)))
				continue
			}
			b.DefineClass(module, class, fn)
		case *slot.ClassMethods:
			if hasSig || static || fn == nil {
				b.errs = append(b.errs, errors.InvalidInput(errors.PhaseRegister,
					fmt.Sprintf("export %q: invalid class methods", name)))
				continue
			}
			b.DefineClass(module, class, *fn)
		case slot.MethodFn:
			b.defineExport(module, class, sig, hasSig, static, fn)
		case func(*slot.Frame) error:
			b.defineExport(module, class, sig, hasSig, static, fn)
		default:
			b.errs = append(b.errs, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Module(module).
				Value(v).
				Detail("export %q has unsupported type %T", name, v).
				Build())
		}
	}
	return b
}

func (b *Builder) defineExport(module, class, sig string, hasSig, static bool, fn slot.MethodFn) {
	if !hasSig {
		b.errs = append(b.errs, errors.InvalidInput(errors.PhaseRegister,
			fmt.Sprintf("export %q: method needs Class.signature", class)))
		return
	}
	b.DefineMethod(module, class, static, sig, fn)
}

// Build validates the accumulated bindings and returns an immutable
// Registry. Beyond the errors recorded while defining, Build rejects
// classes without an allocator and distinct keys whose concatenated lookup
// strings coincide.
func (b *Builder) Build() (*Registry, error) {
	errs := append([]error(nil), b.errs...)

	r := &Registry{
		methods: make(map[string]boundMethod, len(b.methods)),
		classes: make(map[string]boundClass, len(b.classes)),
	}

	for key, fn := range b.methods {
		s := key.String()
		if other, ok := r.methods[s]; ok {
			errs = append(errs, errors.New(errors.PhaseRegister, errors.KindCollision).
				Value(s).
				Detail("%s and %s share key %q", other.Key.Qualified(), key.Qualified(), s).
				Build())
			continue
		}
		for i := len(b.middleware) - 1; i >= 0; i-- {
			fn = b.middleware[i](key, fn)
		}
		r.methods[s] = boundMethod{Key: key, Fn: fn}
	}

	for key, cm := range b.classes {
		if cm.Allocate == nil {
			errs = append(errs, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
				Module(key.Module).
				Class(key.Class).
				Detail("foreign class has no allocator").
				Build())
			continue
		}
		s := key.String()
		if other, ok := r.classes[s]; ok {
			errs = append(errs, errors.New(errors.PhaseRegister, errors.KindCollision).
				Value(s).
				Detail("%s and %s share key %q", other.Key.Qualified(), key.Qualified(), s).
				Build())
			continue
		}
		r.classes[s] = boundClass{Key: key, Methods: *cm}
	}

	if len(errs) > 0 {
		return nil, stderrors.Join(errs...)
	}
	return r, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// ClassBuilder defines the bindings of one foreign class.
type ClassBuilder struct {
	b      *Builder
	module string
	name   string
}

func (c *ClassBuilder) entry() *slot.ClassMethods {
	key := ClassKey{Module: c.module, Class: c.name}
	cm, ok := c.b.classes[key]
	if !ok {
		cm = &slot.ClassMethods{}
		c.b.classes[key] = cm
	}
	return cm
}

// Allocate sets the allocator.
func (c *ClassBuilder) Allocate(fn slot.MethodFn) *ClassBuilder {
	cm := c.entry()
	if cm.Allocate != nil {
		c.b.errs = append(c.b.errs, errors.Collision(ClassKey{c.module, c.name}.String()))
		return c
	}
	cm.Allocate = fn
	return c
}

// Finalize sets the finalizer.
func (c *ClassBuilder) Finalize(fn slot.FinalizeFn) *ClassBuilder {
	c.entry().Finalize = fn
	return c
}

// Method binds an instance method.
func (c *ClassBuilder) Method(signature string, fn slot.MethodFn) *ClassBuilder {
	c.b.DefineMethod(c.module, c.name, false, signature, fn)
	return c
}

// Static binds a method invoked on the class object.
func (c *ClassBuilder) Static(signature string, fn slot.MethodFn) *ClassBuilder {
	c.b.DefineMethod(c.module, c.name, true, signature, fn)
	return c
}

// Done returns the parent builder.
func (c *ClassBuilder) Done() *Builder {
	return c.b
}
