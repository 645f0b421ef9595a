// Package value defines the dynamic value representation shared by the VM
// and the slot layer.
package value

import (
	"math"
	"strconv"

	"github.com/wippyai/wren-bridge/foreign"
)

// Kind is the logical type of a Value as seen across the slot boundary.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNum
	KindString
	KindList
	KindRange
	KindClass
	KindInstance
	KindForeign
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindNum:
		return "Num"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindRange:
		return "Range"
	case KindClass:
		return "Class"
	case KindInstance:
		return "Instance"
	case KindForeign:
		return "Foreign"
	default:
		return "Unknown"
	}
}

// ClassRef is the view of a script class that code outside the VM needs.
type ClassRef interface {
	Name() string
	Module() string
	IsForeign() bool
}

// Foreign is the script-side half of a foreign object: its class and the
// store handle of the Go value backing it.
type Foreign struct {
	Class  ClassRef
	Handle foreign.Handle
}

// List is a mutable script list.
type List struct {
	Elems []Value
}

// Range is a numeric range, `from..to` or `from...to`.
type Range struct {
	From      float64
	To        float64
	Inclusive bool
}

// Value is a dynamically typed script value. The zero Value is null.
type Value struct {
	ref  any
	str  string
	num  float64
	kind Kind
}

var (
	Null  = Value{}
	True  = Value{kind: KindBool, num: 1}
	False = Value{kind: KindBool}
)

// Bool wraps b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Num wraps n.
func Num(n float64) Value {
	return Value{kind: KindNum, num: n}
}

// String wraps s. Strings are immutable, so the VM and the binding can both
// hold the same text.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// NewList wraps elems in a fresh list.
func NewList(elems ...Value) Value {
	return Value{kind: KindList, ref: &List{Elems: elems}}
}

// FromList wraps an existing list.
func FromList(l *List) Value {
	return Value{kind: KindList, ref: l}
}

// FromRange wraps r.
func FromRange(r *Range) Value {
	return Value{kind: KindRange, ref: r}
}

// FromClass wraps a class object.
func FromClass(c ClassRef) Value {
	return Value{kind: KindClass, ref: c}
}

// FromInstance wraps a plain script instance. The VM owns the concrete type.
func FromInstance(inst any) Value {
	return Value{kind: KindInstance, ref: inst}
}

// FromForeign wraps a foreign object.
func FromForeign(f *Foreign) Value {
	return Value{kind: KindForeign, ref: f}
}

// Kind returns the logical type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. Only meaningful for KindBool.
func (v Value) AsBool() bool { return v.kind == KindBool && v.num != 0 }

// AsNum returns the numeric payload. Only meaningful for KindNum.
func (v Value) AsNum() float64 { return v.num }

// AsString returns the string payload. Only meaningful for KindString.
func (v Value) AsString() string { return v.str }

// AsList returns the list, or nil.
func (v Value) AsList() *List {
	l, _ := v.ref.(*List)
	return l
}

// AsRange returns the range, or nil.
func (v Value) AsRange() *Range {
	r, _ := v.ref.(*Range)
	return r
}

// AsClass returns the class, or nil.
func (v Value) AsClass() ClassRef {
	if v.kind != KindClass {
		return nil
	}
	c, _ := v.ref.(ClassRef)
	return c
}

// AsForeign returns the foreign object, or nil.
func (v Value) AsForeign() *Foreign {
	f, _ := v.ref.(*Foreign)
	return f
}

// Ref returns the object payload of reference kinds.
func (v Value) Ref() any { return v.ref }

// Truthy reports script truthiness: only false and null are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.num != 0
	default:
		return true
	}
}

// Equal implements script `==`: value equality for null, bools, numbers,
// strings and ranges, identity for everything else.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool, KindNum:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindRange:
		ra, rb := a.AsRange(), b.AsRange()
		return *ra == *rb
	default:
		return a.ref == b.ref
	}
}

// FormatNum renders a number the way the script language prints it: integers
// without a fraction, everything else with up to 14 significant digits.
func FormatNum(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "infinity"
	case math.IsInf(n, -1):
		return "-infinity"
	case n == math.Trunc(n) && math.Abs(n) < 1e15:
		return strconv.FormatFloat(n, 'f', 0, 64)
	default:
		return strconv.FormatFloat(n, 'g', 14, 64)
	}
}
