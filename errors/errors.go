package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseSlot     Phase = "slot"     // slot reads and writes
	PhaseBind     Phase = "bind"     // foreign method/class resolution
	PhaseAllocate Phase = "allocate" // foreign instance allocation
	PhaseFinalize Phase = "finalize" // foreign instance finalization
	PhaseRegister Phase = "register" // registry construction
	PhaseLoad     Phase = "load"     // module source loading
	PhaseCompile  Phase = "compile"  // script parsing
	PhaseRuntime  Phase = "runtime"  // script execution
	PhaseHost     Phase = "host"     // host-side API calls
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindUnboundMethod  Kind = "unbound_method"
	KindUnboundClass   Kind = "unbound_class"
	KindModuleNotFound Kind = "module_not_found"
	KindStaleHandle    Kind = "stale_handle"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindCollision      Kind = "collision"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindReentrant      Kind = "reentrant"
	KindSyntax         Kind = "syntax"
	KindAbort          Kind = "abort"
	KindCancelled      Kind = "cancelled"
)

// Error is the structured error type used across the bridge
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Module    string
	Class     string
	Signature string
	Detail    string
	Trace     []Frame
	Line      int
}

// Frame is one entry of a script stack trace, innermost first.
type Frame struct {
	Module   string
	Function string
	Line     int
}

// String formats the frame as "[module line N] in function".
func (f Frame) String() string {
	return "[" + f.Module + " line " + strconv.Itoa(f.Line) + "] in " + f.Function
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if loc := e.location(); loc != "" {
		b.WriteString(" at ")
		b.WriteString(loc)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func (e *Error) location() string {
	var parts []string
	if e.Module != "" {
		parts = append(parts, e.Module)
	}
	if e.Class != "" {
		parts = append(parts, e.Class)
	}
	loc := strings.Join(parts, ".")
	if e.Signature != "" {
		if loc != "" {
			loc += " "
		}
		loc += e.Signature
	}
	if e.Line > 0 {
		if loc != "" {
			loc += " "
		}
		loc += "line " + strconv.Itoa(e.Line)
	}
	return loc
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Module sets the script module name
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Class sets the script class name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

// Signature sets the method signature
func (b *Builder) Signature(sig string) *Builder {
	b.err.Signature = sig
	return b
}

// Line sets the source line
func (b *Builder) Line(line int) *Builder {
	b.err.Line = line
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Match targets for errors.Is. Only Phase and Kind are compared.
var (
	ErrTypeMismatch   = &Error{Phase: PhaseSlot, Kind: KindTypeMismatch}
	ErrOutOfBounds    = &Error{Phase: PhaseSlot, Kind: KindOutOfBounds}
	ErrStaleHandle    = &Error{Phase: PhaseSlot, Kind: KindStaleHandle}
	ErrUnboundMethod  = &Error{Phase: PhaseBind, Kind: KindUnboundMethod}
	ErrUnboundClass   = &Error{Phase: PhaseBind, Kind: KindUnboundClass}
	ErrModuleNotFound = &Error{Phase: PhaseLoad, Kind: KindModuleNotFound}
	ErrCompile        = &Error{Phase: PhaseCompile, Kind: KindSyntax}
	ErrRuntime        = &Error{Phase: PhaseRuntime, Kind: KindAbort}
	ErrReentrant      = &Error{Phase: PhaseHost, Kind: KindReentrant}
	ErrFinalize       = &Error{Phase: PhaseFinalize, Kind: KindAbort}
)

// IsFatal reports whether err is a configuration error the embedding must
// not continue past. An unbound foreign class is the only such error.
func IsFatal(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindUnboundClass {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Convenience constructors for common error patterns

// TypeMismatch creates a slot type mismatch error
func TypeMismatch(slot int, got, want string) *Error {
	return &Error{
		Phase:  PhaseSlot,
		Kind:   KindTypeMismatch,
		Value:  slot,
		Detail: fmt.Sprintf("slot %d holds %s, want %s", slot, got, want),
	}
}

// OutOfBounds creates a slot index error
func OutOfBounds(phase Phase, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Value:  index,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
	}
}

// StaleHandle creates an error for a foreign handle that no longer names a
// live object
func StaleHandle(handle any) *Error {
	return &Error{
		Phase:  PhaseSlot,
		Kind:   KindStaleHandle,
		Value:  handle,
		Detail: fmt.Sprintf("foreign handle %v is not live", handle),
	}
}

// UnboundMethod creates an error for a foreign method with no native binding
func UnboundMethod(module, class, signature string) *Error {
	return &Error{
		Phase:     PhaseBind,
		Kind:      KindUnboundMethod,
		Module:    module,
		Class:     class,
		Signature: signature,
		Detail:    "no native function bound",
	}
}

// UnboundClass creates the fatal error for a foreign class with no
// allocator registered
func UnboundClass(module, class string) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindUnboundClass,
		Module: module,
		Class:  class,
		Detail: "no allocator registered for foreign class",
	}
}

// ModuleNotFound creates a module loading miss
func ModuleNotFound(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindModuleNotFound,
		Module: name,
		Detail: fmt.Sprintf("module %q not found", name),
		Cause:  cause,
	}
}

// Compile creates a compile error at a source line
func Compile(module string, line int, msg string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindSyntax,
		Module: module,
		Line:   line,
		Detail: msg,
	}
}

// Runtime creates a script runtime error
func Runtime(msg string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindAbort,
		Detail: msg,
		Cause:  cause,
	}
}

// Collision creates a registry key collision error
func Collision(key string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindCollision,
		Detail: fmt.Sprintf("signature key %q registered twice", key),
		Value:  key,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Reentrant creates the error returned when the host calls into a VM that
// is already executing a native function
func Reentrant(op string) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindReentrant,
		Detail: fmt.Sprintf("%s called while a foreign method is running", op),
	}
}

// FinalizerPanic creates an error for a finalizer that panicked with r.
func FinalizerPanic(class string, r any) *Error {
	return &Error{
		Phase:  PhaseFinalize,
		Kind:   KindAbort,
		Class:  class,
		Value:  r,
		Detail: fmt.Sprintf("finalizer panicked: %v", r),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Config creates a configuration loading error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
