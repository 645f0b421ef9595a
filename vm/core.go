package vm

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wippyai/wren-bridge/value"
)

// coreClasses holds the built-in classes every module can see.
type coreClasses struct {
	module  *module
	started time.Time

	object  *class
	class   *class
	boolean *class
	null    *class
	num     *class
	str     *class
	list    *class
	rng     *class
	system  *class
	fiber   *class
}

func (c *class) prim(sig string, fn primitive) {
	c.methods[sig] = &method{sig: sig, prim: fn, owner: c}
}

func (c *class) staticPrim(sig string, fn primitive) {
	c.statics[sig] = &method{sig: sig, prim: fn, owner: c, static: true}
}

func (vm *VM) defineCore() {
	core := &coreClasses{module: newModule("core"), started: time.Now()}
	vm.core = core

	def := func(name string, super *class) *class {
		c := newClass(name, "core", super)
		c.builtin = true
		core.module.define(name, value.FromClass(c))
		return c
	}

	core.object = def("Object", nil)
	core.class = def("Class", core.object)
	core.boolean = def("Bool", core.object)
	core.null = def("Null", core.object)
	core.num = def("Num", core.object)
	core.str = def("String", core.object)
	core.list = def("List", core.object)
	core.rng = def("Range", core.object)
	core.system = def("System", core.object)
	core.fiber = def("Fiber", core.object)

	vm.defineObject(core.object)
	vm.defineClassClass(core.class)
	vm.defineBool(core.boolean)
	vm.defineNull(core.null)
	vm.defineNum(core.num)
	vm.defineString(core.str)
	vm.defineList(core.list)
	vm.defineRange(core.rng)
	vm.defineSystem(core.system)
	vm.defineFiber(core.fiber)
}

// ---------------------------------------------------------------------------
// Argument helpers

func (vm *VM) numArg(args []value.Value, i int, what string) (float64, error) {
	if i >= len(args) || args[i].Kind() != value.KindNum {
		return 0, vm.runtimeError(nil, "%s must be a number.", what)
	}
	return args[i].AsNum(), nil
}

func (vm *VM) strArg(args []value.Value, i int, what string) (string, error) {
	if i >= len(args) || args[i].Kind() != value.KindString {
		return "", vm.runtimeError(nil, "%s must be a string.", what)
	}
	return args[i].AsString(), nil
}

// indexArg validates an integer index into a sequence of count elements.
// Negative indices count from the end.
func (vm *VM) indexArg(v value.Value, count int, what string) (int, error) {
	if v.Kind() != value.KindNum {
		return 0, vm.runtimeError(nil, "%s must be a number.", what)
	}
	n := v.AsNum()
	if n != math.Trunc(n) {
		return 0, vm.runtimeError(nil, "%s must be an integer.", what)
	}
	i := int(n)
	if i < 0 {
		i += count
	}
	if i < 0 || i >= count {
		return 0, vm.runtimeError(nil, "%s out of bounds.", what)
	}
	return i, nil
}

// seqIterate implements iterate(_) over count positional elements.
func (vm *VM) seqIterate(iter value.Value, count int) (value.Value, error) {
	if iter.IsNull() {
		if count == 0 {
			return value.False, nil
		}
		return value.Num(0), nil
	}
	if iter.Kind() != value.KindNum {
		return value.Null, vm.runtimeError(nil, "Iterator must be a number.")
	}
	next := iter.AsNum() + 1
	if next < 0 || int(next) >= count {
		return value.False, nil
	}
	return value.Num(next), nil
}

// ---------------------------------------------------------------------------
// Object and Class

func (vm *VM) defineObject(c *class) {
	c.prim("==(_)", func(_ *VM, recv value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(value.Equal(recv, args[0])), nil
	})
	c.prim("!=(_)", func(_ *VM, recv value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(!value.Equal(recv, args[0])), nil
	})
	c.prim("!", func(*VM, value.Value, []value.Value) (value.Value, error) {
		return value.False, nil
	})
	c.prim("is(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		k, ok := args[0].AsClass().(*class)
		if !ok || k == nil {
			return value.Null, vm.runtimeError(nil, "Right operand must be a class.")
		}
		return value.Bool(vm.classOf(recv).inherits(k)), nil
	})
	c.prim("type", func(vm *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.FromClass(vm.classOf(recv)), nil
	})
	c.prim("toString", func(vm *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.String("instance of " + vm.classOf(recv).name), nil
	})
}

func (vm *VM) defineClassClass(c *class) {
	c.prim("name", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.String(recv.AsClass().Name()), nil
	})
	c.prim("toString", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.String(recv.AsClass().Name()), nil
	})
	c.prim("supertype", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		k, _ := recv.AsClass().(*class)
		if k == nil || k.super == nil {
			return value.Null, nil
		}
		return value.FromClass(k.super), nil
	})
}

func (vm *VM) defineBool(c *class) {
	c.prim("!", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.Bool(!recv.AsBool()), nil
	})
	c.prim("toString", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.String(strconv.FormatBool(recv.AsBool())), nil
	})
}

func (vm *VM) defineNull(c *class) {
	c.prim("!", func(*VM, value.Value, []value.Value) (value.Value, error) {
		return value.True, nil
	})
	c.prim("toString", func(*VM, value.Value, []value.Value) (value.Value, error) {
		return value.String("null"), nil
	})
}

// ---------------------------------------------------------------------------
// Num

func (vm *VM) defineNum(c *class) {
	infix := func(fn func(a, b float64) value.Value) primitive {
		return func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
			b, err := vm.numArg(args, 0, "Right operand")
			if err != nil {
				return value.Null, err
			}
			return fn(recv.AsNum(), b), nil
		}
	}
	unary := func(fn func(a float64) float64) primitive {
		return func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
			return value.Num(fn(recv.AsNum())), nil
		}
	}
	bits := func(fn func(a, b uint32) uint32) primitive {
		return infix(func(a, b float64) value.Value {
			return value.Num(float64(fn(uint32(int64(a)), uint32(int64(b)))))
		})
	}

	c.prim("+(_)", infix(func(a, b float64) value.Value { return value.Num(a + b) }))
	c.prim("-(_)", infix(func(a, b float64) value.Value { return value.Num(a - b) }))
	c.prim("*(_)", infix(func(a, b float64) value.Value { return value.Num(a * b) }))
	c.prim("/(_)", infix(func(a, b float64) value.Value { return value.Num(a / b) }))
	c.prim("%(_)", infix(func(a, b float64) value.Value { return value.Num(math.Mod(a, b)) }))
	c.prim("<(_)", infix(func(a, b float64) value.Value { return value.Bool(a < b) }))
	c.prim(">(_)", infix(func(a, b float64) value.Value { return value.Bool(a > b) }))
	c.prim("<=(_)", infix(func(a, b float64) value.Value { return value.Bool(a <= b) }))
	c.prim(">=(_)", infix(func(a, b float64) value.Value { return value.Bool(a >= b) }))
	c.prim("pow(_)", infix(func(a, b float64) value.Value { return value.Num(math.Pow(a, b)) }))
	c.prim("atan(_)", infix(func(a, b float64) value.Value { return value.Num(math.Atan2(a, b)) }))
	c.prim("min(_)", infix(func(a, b float64) value.Value { return value.Num(math.Min(a, b)) }))
	c.prim("max(_)", infix(func(a, b float64) value.Value { return value.Num(math.Max(a, b)) }))
	c.prim("..(_)", infix(func(a, b float64) value.Value {
		return value.FromRange(&value.Range{From: a, To: b, Inclusive: true})
	}))
	c.prim("...(_)", infix(func(a, b float64) value.Value {
		return value.FromRange(&value.Range{From: a, To: b})
	}))
	c.prim("&(_)", bits(func(a, b uint32) uint32 { return a & b }))
	c.prim("|(_)", bits(func(a, b uint32) uint32 { return a | b }))
	c.prim("^(_)", bits(func(a, b uint32) uint32 { return a ^ b }))
	c.prim("<<(_)", bits(func(a, b uint32) uint32 { return a << b }))
	c.prim(">>(_)", bits(func(a, b uint32) uint32 { return a >> b }))

	c.prim("-", unary(func(a float64) float64 { return -a }))
	c.prim("~", unary(func(a float64) float64 { return float64(^uint32(int64(a))) }))
	c.prim("abs", unary(math.Abs))
	c.prim("sqrt", unary(math.Sqrt))
	c.prim("floor", unary(math.Floor))
	c.prim("ceil", unary(math.Ceil))
	c.prim("round", unary(math.Round))
	c.prim("truncate", unary(math.Trunc))
	c.prim("sin", unary(math.Sin))
	c.prim("cos", unary(math.Cos))
	c.prim("tan", unary(math.Tan))
	c.prim("atan", unary(math.Atan))
	c.prim("log", unary(math.Log))
	c.prim("exp", unary(math.Exp))
	c.prim("fraction", unary(func(a float64) float64 {
		_, frac := math.Modf(a)
		return frac
	}))
	c.prim("sign", unary(func(a float64) float64 {
		switch {
		case a > 0:
			return 1
		case a < 0:
			return -1
		}
		return 0
	}))
	c.prim("isInteger", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		n := recv.AsNum()
		return value.Bool(!math.IsInf(n, 0) && n == math.Trunc(n)), nil
	})
	c.prim("isNan", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.Bool(math.IsNaN(recv.AsNum())), nil
	})
	c.prim("isInfinity", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.Bool(math.IsInf(recv.AsNum(), 0)), nil
	})
	c.prim("toString", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.String(value.FormatNum(recv.AsNum())), nil
	})
	c.prim("clamp(_,_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		lo, err := vm.numArg(args, 0, "Min value")
		if err != nil {
			return value.Null, err
		}
		hi, err := vm.numArg(args, 1, "Max value")
		if err != nil {
			return value.Null, err
		}
		return value.Num(math.Min(math.Max(recv.AsNum(), lo), hi)), nil
	})

	c.staticPrim("fromString(_)", func(vm *VM, _ value.Value, args []value.Value) (value.Value, error) {
		s, err := vm.strArg(args, 0, "Argument")
		if err != nil {
			return value.Null, err
		}
		n, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			return value.Null, nil
		}
		return value.Num(n), nil
	})
	constant := func(n float64) primitive {
		return func(*VM, value.Value, []value.Value) (value.Value, error) {
			return value.Num(n), nil
		}
	}
	c.staticPrim("pi", constant(math.Pi))
	c.staticPrim("tau", constant(2*math.Pi))
	c.staticPrim("infinity", constant(math.Inf(1)))
	c.staticPrim("nan", constant(math.NaN()))
	c.staticPrim("largest", constant(math.MaxFloat64))
	c.staticPrim("smallest", constant(math.SmallestNonzeroFloat64))
	c.staticPrim("maxSafeInteger", constant(9007199254740991))
	c.staticPrim("minSafeInteger", constant(-9007199254740991))
}

// ---------------------------------------------------------------------------
// String

func (vm *VM) defineString(c *class) {
	runes := func(v value.Value) []rune { return []rune(v.AsString()) }
	predicate := func(fn func(s, arg string) bool) primitive {
		return func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
			arg, err := vm.strArg(args, 0, "Argument")
			if err != nil {
				return value.Null, err
			}
			return value.Bool(fn(recv.AsString(), arg)), nil
		}
	}

	c.prim("+(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		s, err := vm.strArg(args, 0, "Right operand")
		if err != nil {
			return value.Null, err
		}
		return value.String(recv.AsString() + s), nil
	})
	c.prim("*(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		n, err := vm.numArg(args, 0, "Count")
		if err != nil {
			return value.Null, err
		}
		if n < 0 || n != math.Trunc(n) {
			return value.Null, vm.runtimeError(nil, "Count must be a non-negative integer.")
		}
		return value.String(strings.Repeat(recv.AsString(), int(n))), nil
	})
	c.prim("count", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.Num(float64(utf8.RuneCountInString(recv.AsString()))), nil
	})
	c.prim("byteCount", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.Num(float64(len(recv.AsString()))), nil
	})
	c.prim("isEmpty", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.Bool(recv.AsString() == ""), nil
	})
	c.prim("toString", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return recv, nil
	})
	c.prim("contains(_)", predicate(strings.Contains))
	c.prim("startsWith(_)", predicate(strings.HasPrefix))
	c.prim("endsWith(_)", predicate(strings.HasSuffix))
	c.prim("indexOf(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		arg, err := vm.strArg(args, 0, "Argument")
		if err != nil {
			return value.Null, err
		}
		s := recv.AsString()
		i := strings.Index(s, arg)
		if i < 0 {
			return value.Num(-1), nil
		}
		return value.Num(float64(utf8.RuneCountInString(s[:i]))), nil
	})
	c.prim("[_]", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		rs := runes(recv)
		i, err := vm.indexArg(args[0], len(rs), "Subscript")
		if err != nil {
			return value.Null, err
		}
		return value.String(string(rs[i])), nil
	})
	c.prim("iterate(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		return vm.seqIterate(args[0], utf8.RuneCountInString(recv.AsString()))
	})
	c.prim("iteratorValue(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		rs := runes(recv)
		i, err := vm.indexArg(args[0], len(rs), "Iterator")
		if err != nil {
			return value.Null, err
		}
		return value.String(string(rs[i])), nil
	})
	c.prim("split(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		sep, err := vm.strArg(args, 0, "Delimiter")
		if err != nil {
			return value.Null, err
		}
		if sep == "" {
			return value.Null, vm.runtimeError(nil, "Delimiter cannot be empty.")
		}
		parts := strings.Split(recv.AsString(), sep)
		elems := make([]value.Value, len(parts))
		for i, p := range parts {
			elems[i] = value.String(p)
		}
		return value.NewList(elems...), nil
	})
	c.prim("replace(_,_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		from, err := vm.strArg(args, 0, "From")
		if err != nil {
			return value.Null, err
		}
		to, err := vm.strArg(args, 1, "To")
		if err != nil {
			return value.Null, err
		}
		if from == "" {
			return value.Null, vm.runtimeError(nil, "From must be a non-empty string.")
		}
		return value.String(strings.ReplaceAll(recv.AsString(), from, to)), nil
	})
	c.prim("trim()", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.String(strings.TrimSpace(recv.AsString())), nil
	})
}

// ---------------------------------------------------------------------------
// List

func (vm *VM) joinList(l *value.List, sep string) (string, error) {
	parts := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		s, err := vm.toString(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func (vm *VM) defineList(c *class) {
	c.staticPrim("new()", func(*VM, value.Value, []value.Value) (value.Value, error) {
		return value.NewList(), nil
	})
	c.staticPrim("filled(_,_)", func(vm *VM, _ value.Value, args []value.Value) (value.Value, error) {
		n, err := vm.numArg(args, 0, "Size")
		if err != nil {
			return value.Null, err
		}
		if n < 0 || n != math.Trunc(n) {
			return value.Null, vm.runtimeError(nil, "Size cannot be negative.")
		}
		elems := make([]value.Value, int(n))
		for i := range elems {
			elems[i] = args[1]
		}
		return value.NewList(elems...), nil
	})

	c.prim("add(_)", func(_ *VM, recv value.Value, args []value.Value) (value.Value, error) {
		l := recv.AsList()
		l.Elems = append(l.Elems, args[0])
		return args[0], nil
	})
	c.prim("addAll(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		other := args[0].AsList()
		if args[0].Kind() != value.KindList || other == nil {
			return value.Null, vm.runtimeError(nil, "Argument must be a list.")
		}
		l := recv.AsList()
		l.Elems = append(l.Elems, other.Elems...)
		return args[0], nil
	})
	c.prim("+(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		other := args[0].AsList()
		if args[0].Kind() != value.KindList || other == nil {
			return value.Null, vm.runtimeError(nil, "Right operand must be a list.")
		}
		l := recv.AsList()
		elems := make([]value.Value, 0, len(l.Elems)+len(other.Elems))
		elems = append(append(elems, l.Elems...), other.Elems...)
		return value.NewList(elems...), nil
	})
	c.prim("clear()", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		recv.AsList().Elems = nil
		return value.Null, nil
	})
	c.prim("count", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.Num(float64(len(recv.AsList().Elems))), nil
	})
	c.prim("isEmpty", func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		return value.Bool(len(recv.AsList().Elems) == 0), nil
	})
	c.prim("insert(_,_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		l := recv.AsList()
		i, err := vm.indexArg(args[0], len(l.Elems)+1, "Index")
		if err != nil {
			return value.Null, err
		}
		l.Elems = append(l.Elems, value.Null)
		copy(l.Elems[i+1:], l.Elems[i:])
		l.Elems[i] = args[1]
		return args[1], nil
	})
	c.prim("removeAt(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		l := recv.AsList()
		i, err := vm.indexArg(args[0], len(l.Elems), "Index")
		if err != nil {
			return value.Null, err
		}
		removed := l.Elems[i]
		l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
		return removed, nil
	})
	c.prim("remove(_)", func(_ *VM, recv value.Value, args []value.Value) (value.Value, error) {
		l := recv.AsList()
		for i, e := range l.Elems {
			if value.Equal(e, args[0]) {
				l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
				return e, nil
			}
		}
		return value.Null, nil
	})
	c.prim("indexOf(_)", func(_ *VM, recv value.Value, args []value.Value) (value.Value, error) {
		for i, e := range recv.AsList().Elems {
			if value.Equal(e, args[0]) {
				return value.Num(float64(i)), nil
			}
		}
		return value.Num(-1), nil
	})
	c.prim("contains(_)", func(_ *VM, recv value.Value, args []value.Value) (value.Value, error) {
		for _, e := range recv.AsList().Elems {
			if value.Equal(e, args[0]) {
				return value.True, nil
			}
		}
		return value.False, nil
	})
	c.prim("[_]", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		l := recv.AsList()
		i, err := vm.indexArg(args[0], len(l.Elems), "Subscript")
		if err != nil {
			return value.Null, err
		}
		return l.Elems[i], nil
	})
	c.prim("[_]=(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		l := recv.AsList()
		i, err := vm.indexArg(args[0], len(l.Elems), "Subscript")
		if err != nil {
			return value.Null, err
		}
		l.Elems[i] = args[1]
		return args[1], nil
	})
	c.prim("iterate(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		return vm.seqIterate(args[0], len(recv.AsList().Elems))
	})
	c.prim("iteratorValue(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		l := recv.AsList()
		i, err := vm.indexArg(args[0], len(l.Elems), "Iterator")
		if err != nil {
			return value.Null, err
		}
		return l.Elems[i], nil
	})
	c.prim("toString", func(vm *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		s, err := vm.joinList(recv.AsList(), ", ")
		if err != nil {
			return value.Null, err
		}
		return value.String("[" + s + "]"), nil
	})
	c.prim("join()", func(vm *VM, recv value.Value, _ []value.Value) (value.Value, error) {
		s, err := vm.joinList(recv.AsList(), "")
		if err != nil {
			return value.Null, err
		}
		return value.String(s), nil
	})
	c.prim("join(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		sep, err := vm.strArg(args, 0, "Separator")
		if err != nil {
			return value.Null, err
		}
		s, err := vm.joinList(recv.AsList(), sep)
		if err != nil {
			return value.Null, err
		}
		return value.String(s), nil
	})
}

// ---------------------------------------------------------------------------
// Range

func (vm *VM) defineRange(c *class) {
	field := func(fn func(r *value.Range) value.Value) primitive {
		return func(_ *VM, recv value.Value, _ []value.Value) (value.Value, error) {
			return fn(recv.AsRange()), nil
		}
	}
	c.prim("from", field(func(r *value.Range) value.Value { return value.Num(r.From) }))
	c.prim("to", field(func(r *value.Range) value.Value { return value.Num(r.To) }))
	c.prim("min", field(func(r *value.Range) value.Value { return value.Num(math.Min(r.From, r.To)) }))
	c.prim("max", field(func(r *value.Range) value.Value { return value.Num(math.Max(r.From, r.To)) }))
	c.prim("isInclusive", field(func(r *value.Range) value.Value { return value.Bool(r.Inclusive) }))
	c.prim("toString", field(func(r *value.Range) value.Value {
		op := "..."
		if r.Inclusive {
			op = ".."
		}
		return value.String(value.FormatNum(r.From) + op + value.FormatNum(r.To))
	}))

	c.prim("iterate(_)", func(vm *VM, recv value.Value, args []value.Value) (value.Value, error) {
		r := recv.AsRange()
		if r.From == r.To && !r.Inclusive {
			return value.False, nil
		}
		if args[0].IsNull() {
			return value.Num(r.From), nil
		}
		if args[0].Kind() != value.KindNum {
			return value.Null, vm.runtimeError(nil, "Iterator must be a number.")
		}
		n := args[0].AsNum()
		switch {
		case r.From < r.To:
			n++
			if n > r.To || (!r.Inclusive && n == r.To) {
				return value.False, nil
			}
		case r.From > r.To:
			n--
			if n < r.To || (!r.Inclusive && n == r.To) {
				return value.False, nil
			}
		default:
			return value.False, nil
		}
		return value.Num(n), nil
	})
	c.prim("iteratorValue(_)", func(_ *VM, _ value.Value, args []value.Value) (value.Value, error) {
		return args[0], nil
	})
}

// ---------------------------------------------------------------------------
// System and Fiber

func (vm *VM) defineSystem(c *class) {
	c.staticPrim("print()", func(vm *VM, _ value.Value, _ []value.Value) (value.Value, error) {
		vm.write("\n")
		return value.Null, nil
	})
	c.staticPrim("print(_)", func(vm *VM, _ value.Value, args []value.Value) (value.Value, error) {
		s, err := vm.toString(args[0])
		if err != nil {
			return value.Null, err
		}
		vm.write(s + "\n")
		return args[0], nil
	})
	c.staticPrim("printAll(_)", func(vm *VM, _ value.Value, args []value.Value) (value.Value, error) {
		l := args[0].AsList()
		if args[0].Kind() != value.KindList || l == nil {
			return value.Null, vm.runtimeError(nil, "Argument must be a list.")
		}
		s, err := vm.joinList(l, "")
		if err != nil {
			return value.Null, err
		}
		vm.write(s + "\n")
		return value.Null, nil
	})
	c.staticPrim("write(_)", func(vm *VM, _ value.Value, args []value.Value) (value.Value, error) {
		s, err := vm.toString(args[0])
		if err != nil {
			return value.Null, err
		}
		vm.write(s)
		return args[0], nil
	})
	c.staticPrim("gc()", func(vm *VM, _ value.Value, _ []value.Value) (value.Value, error) {
		vm.collect()
		return value.Null, nil
	})
	c.staticPrim("clock", func(vm *VM, _ value.Value, _ []value.Value) (value.Value, error) {
		return value.Num(time.Since(vm.core.started).Seconds()), nil
	})
}

func (vm *VM) defineFiber(c *class) {
	c.staticPrim("abort(_)", func(vm *VM, _ value.Value, args []value.Value) (value.Value, error) {
		if args[0].IsNull() {
			return value.Null, nil
		}
		msg, err := vm.toString(args[0])
		if err != nil {
			return value.Null, err
		}
		return value.Null, vm.runtimeError(nil, "%s", msg)
	})
}
