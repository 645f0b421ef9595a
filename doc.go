// Package wrenbridge connects native Go code to an embedded script VM.
//
// Script classes declare methods `foreign`; the host supplies their bodies
// as Go functions. Arguments and results travel through numbered slots, and
// Go values backing foreign objects live in a handle table that the VM's
// collector finalizes.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wrenbridge/
//	├── slot/           Slot frames and typed accessors handed to native functions
//	├── foreign/        Foreign object store: handles, finalizers, lifecycle events
//	├── registry/       Signature wire format and the method/class lookup tables
//	├── binding/        VM configuration: resolvers, module loaders, output sinks
//	├── vm/             The embedded interpreter that honours the binding contract
//	├── value/          Dynamic values shared by the VM and slot frames
//	├── errors/         Structured error types for debugging
//	├── wasmforeign/    WebAssembly exports as static foreign methods
//	├── metrics/        Prometheus call and object lifetime metrics
//	├── config/         wren.toml, .env and WREN_* configuration
//	└── examples/       The Vec3 payload and a runnable demo
//
// # Quick Start
//
// Bind a Go type and run a script that uses it:
//
//	reg := registry.NewBuilder().
//	    Register(vector.Exports{}).
//	    MustBuild()
//
//	machine := vm.New(binding.New(reg,
//	    binding.WithLoader(vector.Loader()),
//	    binding.WithWriter(func(s string) { fmt.Print(s) }),
//	))
//	defer machine.Close()
//
//	_, err := machine.Interpret(ctx, "main", `
//	    import "vector" for Vec3
//	    System.print(Vec3.new(1, 2, 3).norm())
//	`)
//
// # Native Functions
//
// A foreign method receives a *slot.Frame. Slot 0 holds the receiver and
// later the result; arguments follow in slots 1..N:
//
//	func dot(f *slot.Frame) error {
//	    a, err := slot.Foreign[*Vec3](f, 0)
//	    if err != nil {
//	        return err
//	    }
//	    b, err := slot.Foreign[*Vec3](f, 1)
//	    if err != nil {
//	        return err
//	    }
//	    return f.SetDouble(0, a.Dot(*b))
//	}
//
// An allocator creates the instance with SetNewForeign(0, 0, value). A
// finalizer receives only the Go value and must not call back into the VM.
//
// # Binding Failures
//
// A foreign method with no Go function is reported when script code calls
// it. A foreign class with no allocator is a configuration error that halts
// the VM.
package wrenbridge
