// Package wasmforeign exposes the exported functions of a core WebAssembly
// module as static foreign methods of a script class.
//
// Each export whose parameters and results are numeric becomes one
// static method taking Num arguments. A call with no results returns null,
// one result returns a Num and several results return a List.
//
//	b, err := wasmforeign.Load(ctx, wasmBytes, wasmforeign.Options{Module: "math", Class: "Math"})
//	reg := registry.NewBuilder().Register(b).MustBuild()
//	cfg := binding.New(reg, binding.WithLoader(binding.ChainLoader(b.Loader(), fileLoader)))
//
// Script code then writes:
//
//	import "math" for Math
//	System.print(Math.add(1, 2))
//
// The wazero runtime behind a Binding is closed with Close.
package wasmforeign
