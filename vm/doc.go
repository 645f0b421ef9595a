// Package vm is a small interpreter for a Wren-like scripting language that
// honours the foreign binding contract: foreign methods and classes are
// resolved through a binding.Config, foreign values live in a
// foreign.Store, and native code talks to scripts only through slot frames.
//
// # Contract
//
// Foreign methods are resolved once, when their class declaration runs. A
// method nothing is bound to raises a runtime error only when a script calls
// it. A foreign class nothing is bound to is fatal: the VM stops and every
// later Interpret or Call returns the same error.
//
// A foreign constructor runs the class allocator with the class in slot 0
// and the arguments in slots 1..N. The allocator must leave a new instance of
// that class in slot 0, normally with slot.Frame.SetNewForeign.
//
// Foreign instances are collected by a mark and sweep pass over module
// variables, active call frames, in-flight temporaries, native slot frames,
// the API slots and live handles. Finalizers run during the sweep and when
// the VM is closed.
//
// # Concurrency
//
// A VM must only be used from one goroutine at a time. Independent VMs may
// share a registry.Registry.
package vm
