// Package errors provides structured error types for the host/script bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the script location involved: module,
// class, method signature and source line, plus a cause chain and, for
// runtime errors, the script stack trace.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSlot, errors.KindTypeMismatch).
//		Signature("dot(_)").
//		Detail("slot 1 holds String, want Vec3").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(1, "String", "Num")
//	err := errors.UnboundClass("vector", "Vec3")
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is compares Phase and Kind only, so the exported Err* values work as
// match targets:
//
//	if errors.Is(err, errors.ErrModuleNotFound) { ... }
//
// An unbound foreign class is fatal: IsFatal reports it anywhere in a cause
// chain and the embedding must stop using the VM that produced it.
package errors
