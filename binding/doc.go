// Package binding assembles the callbacks a VM consults while compiling and
// running script code: the foreign method and class resolvers, the module
// loader, and the output and error sinks.
//
// A Config is fixed when the VM is created. Every callback is optional;
// a missing resolver behaves as if nothing were bound.
//
//	reg := registry.NewBuilder().Register(vector.Exports{}).MustBuild()
//	cfg := binding.New(reg,
//		binding.WithLoader(binding.DirLoader("scripts", ".wren")),
//		binding.WithWriter(func(s string) { fmt.Print(s) }),
//	)
//	machine := vm.New(cfg)
package binding
