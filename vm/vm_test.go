package vm

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/wippyai/wren-bridge/binding"
	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/slot"
	"github.com/wippyai/wren-bridge/value"
)

const vectorModule = `
foreign class Vec3 {
  construct new(x, y, z) {}

  foreign toString
  foreign norm()
  foreign dot(other)
  foreign cross(other)
  foreign x
  foreign x=(value)
}
`

const vectorScenario = `
import "vector" for Vec3
var vec = Vec3.new(1, 2, 3)
var vec2 = Vec3.new(45, 30, 15)
System.print("vec = %(vec)")
System.print("vec2 = %(vec2)")
System.print("vec.norm() = %(vec.norm())")
System.print("vec.dot(vec2) = %(vec.dot(vec2))")
System.print("vec.cross(vec2) = %(vec.cross(vec2))")
`

type vec3 struct {
	x, y, z float64
}

// vectorRegistry binds Vec3 and counts finalizations in *finalized.
func vectorRegistry(t *testing.T, finalized *int) *registry.Registry {
	t.Helper()

	self := func(f *slot.Frame) *vec3 {
		v, err := slot.Foreign[*vec3](f, 0)
		if err != nil {
			t.Fatalf("receiver: %v", err)
		}
		return v
	}

	b := registry.NewBuilder()
	b.Class("vector", "Vec3").
		Allocate(func(f *slot.Frame) error {
			var c [3]float64
			for i := range c {
				n, err := f.GetDouble(i + 1)
				if err != nil {
					return err
				}
				c[i] = n
			}
			return f.SetNewForeign(0, 0, &vec3{c[0], c[1], c[2]})
		}).
		Finalize(func(any) { *finalized++ }).
		Method("toString", func(f *slot.Frame) error {
			v := self(f)
			return f.SetString(0, fmt.Sprintf("%s, %s, %s",
				value.FormatNum(v.x), value.FormatNum(v.y), value.FormatNum(v.z)))
		}).
		Method("norm()", func(f *slot.Frame) error {
			v := self(f)
			return f.SetDouble(0, math.Sqrt(v.x*v.x+v.y*v.y+v.z*v.z))
		}).
		Method("dot(_)", func(f *slot.Frame) error {
			a := self(f)
			b, err := slot.Foreign[*vec3](f, 1)
			if err != nil {
				return err
			}
			return f.SetDouble(0, a.x*b.x+a.y*b.y+a.z*b.z)
		}).
		Method("cross(_)", func(f *slot.Frame) error {
			a := self(f)
			b, err := slot.Foreign[*vec3](f, 1)
			if err != nil {
				return err
			}
			f.Ensure(3)
			if err := f.GetVariable("vector", "Vec3", 2); err != nil {
				return err
			}
			return f.SetNewForeign(2, 0, &vec3{
				a.y*b.z - a.z*b.y,
				a.z*b.x - a.x*b.z,
				a.x*b.y - a.y*b.x,
			})
		}).
		Method("x", func(f *slot.Frame) error {
			return f.SetDouble(0, self(f).x)
		}).
		Method("x=(_)", func(f *slot.Frame) error {
			n, err := f.GetDouble(1)
			if err != nil {
				return err
			}
			self(f).x = n
			return nil
		})

	reg, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return reg
}

type harness struct {
	vm        *VM
	out       strings.Builder
	errs      []string
	finalized int
}

func newHarness(t *testing.T, modules map[string]string, opts ...binding.Option) *harness {
	t.Helper()
	h := &harness{}
	base := []binding.Option{
		binding.WithLoader(binding.MapLoader(modules)),
		binding.WithWriter(func(s string) { h.out.WriteString(s) }),
		binding.WithErrorFn(func(kind binding.ErrorKind, module string, line int, msg string) {
			h.errs = append(h.errs, fmt.Sprintf("%s %s:%d %s", kind, module, line, msg))
		}),
		binding.WithGCThreshold(0),
	}
	cfg := binding.New(vectorRegistry(t, &h.finalized), append(base, opts...)...)
	h.vm = New(cfg)
	t.Cleanup(func() { _ = h.vm.Close() })
	return h
}

func (h *harness) run(t *testing.T, src string) {
	t.Helper()
	res, err := h.vm.Interpret(context.Background(), "main", src)
	if err != nil || res != ResultSuccess {
		t.Fatalf("Interpret = %v, %v (errors: %v)", res, err, h.errs)
	}
}

func TestInterpret_VectorScenario(t *testing.T) {
	h := newHarness(t, map[string]string{"vector": vectorModule})
	h.run(t, vectorScenario)

	want := strings.Join([]string{
		"vec = 1, 2, 3",
		"vec2 = 45, 30, 15",
		"vec.norm() = 3.7416573867739",
		"vec.dot(vec2) = 150",
		"vec.cross(vec2) = -60, 120, -60",
	}, "\n") + "\n"
	if got := h.out.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
	if live := h.vm.Store().Len(); live != 3 {
		t.Errorf("live foreign objects = %d, want 3 before collection", live)
	}
}

func TestInterpret_ForeignAccessors(t *testing.T) {
	h := newHarness(t, map[string]string{"vector": vectorModule})
	h.run(t, `
import "vector" for Vec3
var v = Vec3.new(1, 2, 3)
v.x = 10
System.print(v.x)
System.print(v is Vec3)
System.print(Vec3.name)
`)
	if got, want := h.out.String(), "10\ntrue\nVec3\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestInterpret_Language(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"arithmetic", `System.print(1 + 2 * 3)`, "7\n"},
		{"fraction", `System.print(1 / 4)`, "0.25\n"},
		{"string concat", `System.print("a" + "b")`, "ab\n"},
		{"interpolation", `
var n = 3
System.print("n = %(n), twice %(n * 2)")`, "n = 3, twice 6\n"},
		{"inclusive range", `for (i in 1..3) System.write(i)`, "123"},
		{"exclusive range", `for (i in 0...3) System.write(i)`, "012"},
		{"descending range", `for (i in 3..1) System.write(i)`, "321"},
		{"empty range", `for (i in 2...2) System.write(i)`, ""},
		{"list", `
var l = [1, 2, 3]
l.add(4)
System.print(l)
System.print(l[-1])
System.print(l.count)`, "[1, 2, 3, 4]\n4\n4\n"},
		{"list iteration", `
var sum = 0
for (x in [1, 2, 3]) sum = sum + x
System.print(sum)`, "6\n"},
		{"while break", `
var i = 0
while (true) {
  i = i + 1
  if (i == 5) break
}
System.print(i)`, "5\n"},
		{"logic", `System.print(null || "x")
System.print(false && 1)`, "x\nfalse\n"},
		{"conditional", `System.print(1 < 2 ? "yes" : "no")`, "yes\n"},
		{"string methods", `
System.print("hello".count)
System.print("hello".contains("ell"))
System.print("a,b".split(","))`, "5\ntrue\n[a, b]\n"},
		{"inheritance", `
class Animal {
  construct new(name) { _name = name }
  name { _name }
  speak() { "..." }
  describe() { "%(name) says %(speak())" }
}
class Dog is Animal {
  construct new(name) {
    super(name)
  }
  speak() { "woof" }
  describe() { super.describe() + "!" }
}
System.print(Dog.new("rex").describe())
System.print(Dog.new("rex") is Animal)`, "rex says woof!\ntrue\n"},
		{"static fields", `
class Counter {
  static next() {
    if (__n == null) __n = 0
    __n = __n + 1
    return __n
  }
}
Counter.next()
System.print(Counter.next())`, "2\n"},
		{"default toString", `
class Foo {
  construct new() {}
}
System.print(Foo.new())`, "instance of Foo\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.run(t, tt.src)
			if got := h.out.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInterpret_UnboundMethod(t *testing.T) {
	mod := `
foreign class Vec3 {
  construct new(x, y, z) {}
  foreign length()
}
`
	h := newHarness(t, map[string]string{"vector": mod})
	h.run(t, `
import "vector" for Vec3
var v = Vec3.new(1, 2, 3)
`)

	res, err := h.vm.Interpret(context.Background(), "main", `v.length()`)
	if res != ResultRuntimeError {
		t.Fatalf("result = %v, want runtime error", res)
	}
	if !stderrors.Is(err, errors.ErrUnboundMethod) {
		t.Errorf("error = %v, want unbound method", err)
	}
	if h.vm.Fatal() != nil {
		t.Errorf("unbound method must not halt the VM")
	}
	h.run(t, `System.print("still running")`)
}

func TestInterpret_UnboundClassIsFatal(t *testing.T) {
	h := newHarness(t, map[string]string{"shapes": `foreign class Circle {}`})

	res, err := h.vm.Interpret(context.Background(), "main", `import "shapes" for Circle`)
	if res != ResultRuntimeError {
		t.Fatalf("result = %v, want runtime error", res)
	}
	if !stderrors.Is(err, errors.ErrUnboundClass) {
		t.Fatalf("error = %v, want unbound class", err)
	}
	if h.vm.Fatal() == nil {
		t.Fatal("VM not halted")
	}

	_, err = h.vm.Interpret(context.Background(), "main", `System.print(1)`)
	if !stderrors.Is(err, errors.ErrUnboundClass) {
		t.Errorf("later Interpret error = %v, want sticky fatal error", err)
	}
	if h.out.Len() != 0 {
		t.Errorf("halted VM wrote %q", h.out.String())
	}
}

func TestInterpret_ModuleNotFound(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.vm.Interpret(context.Background(), "main", `import "missing" for Thing`)
	if res != ResultRuntimeError {
		t.Fatalf("result = %v", res)
	}
	if !stderrors.Is(err, errors.ErrModuleNotFound) {
		t.Errorf("error = %v, want module not found", err)
	}
	if len(h.errs) == 0 || !strings.Contains(h.errs[0], "Could not load module 'missing'.") {
		t.Errorf("reported errors = %v", h.errs)
	}
}

func TestInterpret_CompileError(t *testing.T) {
	h := newHarness(t, nil)
	res, err := h.vm.Interpret(context.Background(), "main", "var a = 1\nvar = 2\n")
	if res != ResultCompileError {
		t.Fatalf("result = %v, want compile error", res)
	}
	if !stderrors.Is(err, errors.ErrCompile) {
		t.Errorf("error = %v", err)
	}
	if len(h.errs) != 1 || !strings.HasPrefix(h.errs[0], "compile main:2 ") {
		t.Errorf("reported errors = %v", h.errs)
	}
	if h.vm.HasVariable("main", "a") {
		t.Error("a module with a compile error must not run")
	}
}

func TestInterpret_RuntimeErrorTrace(t *testing.T) {
	h := newHarness(t, nil)
	src := `class Foo {
  static bar() {
    Fiber.abort("boom")
  }
}
Foo.bar()
`
	res, err := h.vm.Interpret(context.Background(), "main", src)
	if res != ResultRuntimeError {
		t.Fatalf("result = %v", res)
	}

	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error %T is not structured", err)
	}
	if e.Detail != "boom" || e.Line != 3 {
		t.Errorf("error = %+v", e)
	}

	want := []string{
		"runtime :0 boom",
		"stack trace main:3 Foo static bar()",
		"stack trace main:6 (script)",
	}
	if strings.Join(h.errs, "|") != strings.Join(want, "|") {
		t.Errorf("reported:\n%s\nwant:\n%s", strings.Join(h.errs, "\n"), strings.Join(want, "\n"))
	}
}

func TestGC_FinalizesUnreachable(t *testing.T) {
	h := newHarness(t, map[string]string{"vector": vectorModule})
	h.run(t, `
import "vector" for Vec3
var keep = Vec3.new(1, 2, 3)
for (i in 1..10) {
  var tmp = Vec3.new(i, i, i)
}
System.gc()
`)
	if h.finalized != 10 {
		t.Errorf("finalized = %d, want 10", h.finalized)
	}
	if n := h.vm.CollectGarbage(); n != 0 {
		t.Errorf("second collection finalized %d", n)
	}
	if err := h.vm.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if h.finalized != 11 {
		t.Errorf("finalized after Close = %d, want 11", h.finalized)
	}
}

func TestGC_Threshold(t *testing.T) {
	h := newHarness(t, map[string]string{"vector": vectorModule}, binding.WithGCThreshold(4))
	h.run(t, `
import "vector" for Vec3
for (i in 1..20) {
  var tmp = Vec3.new(i, i, i)
}
`)
	if h.finalized == 0 {
		t.Error("threshold never triggered a collection")
	}
	if live := h.vm.Store().Len(); live > 5 {
		t.Errorf("live = %d, want at most threshold+1", live)
	}
}

func TestCallHandle(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t, `
class Greeter {
  static greet(name) {
    return "hi " + name
  }
}
`)

	v := h.vm
	v.EnsureSlots(2)
	if err := v.GetVariable("main", "Greeter", 0); err != nil {
		t.Fatalf("GetVariable: %v", err)
	}
	if err := v.Slots().SetString(1, "bob"); err != nil {
		t.Fatal(err)
	}

	ch, err := v.MakeCallHandle("greet(_)")
	if err != nil {
		t.Fatalf("MakeCallHandle: %v", err)
	}
	if res, err := v.Call(context.Background(), ch); err != nil || res != ResultSuccess {
		t.Fatalf("Call = %v, %v", res, err)
	}
	got, err := v.Slots().GetString(0)
	if err != nil || got != "hi bob" {
		t.Errorf("result = %q, %v", got, err)
	}

	v.ReleaseCallHandle(ch)
	if _, err := v.Call(context.Background(), ch); err == nil {
		t.Error("Call with a released handle succeeded")
	}
}

func TestSlotHandle_KeepsValueAlive(t *testing.T) {
	h := newHarness(t, map[string]string{"vector": vectorModule})
	h.run(t, `import "vector" for Vec3`)

	v := h.vm
	v.EnsureSlots(4)
	if err := v.GetVariable("main", "Vec3", 0); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		if err := v.Slots().SetDouble(i, float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	ctor, err := v.MakeCallHandle("new(_,_,_)")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Call(context.Background(), ctor); err != nil {
		t.Fatalf("Call: %v", err)
	}

	handle, err := v.GetSlotHandle(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Slots().SetNull(0); err != nil {
		t.Fatal(err)
	}
	if n := v.CollectGarbage(); n != 0 {
		t.Errorf("collected %d objects held by a handle", n)
	}

	if err := v.SetSlotHandle(1, handle); err != nil {
		t.Fatal(err)
	}
	if k, _ := v.Slots().Type(1); k != value.KindForeign {
		t.Errorf("slot 1 kind = %v", k)
	}
	if err := v.Slots().SetNull(1); err != nil {
		t.Fatal(err)
	}

	v.ReleaseHandle(handle)
	if n := v.CollectGarbage(); n != 1 {
		t.Errorf("collected %d after release, want 1", n)
	}
	if err := v.SetSlotHandle(0, handle); !stderrors.Is(err, errors.ErrStaleHandle) {
		t.Errorf("SetSlotHandle after release = %v", err)
	}
}

func TestReentrancy(t *testing.T) {
	var machine *VM
	var inner error

	b := registry.NewBuilder()
	b.Class("host", "Probe").
		Allocate(func(f *slot.Frame) error { return f.SetNewForeign(0, 0, struct{}{}) }).
		Static("poke()", func(f *slot.Frame) error {
			_, inner = machine.Interpret(context.Background(), "other", `System.print(1)`)
			return nil
		})
	reg, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	machine = New(binding.New(reg, binding.WithLoader(binding.MapLoader(map[string]string{
		"host": `foreign class Probe {
  foreign static poke()
}`,
	}))))
	defer machine.Close()

	if _, err := machine.Interpret(context.Background(), "main", "import \"host\" for Probe\nProbe.poke()"); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if !stderrors.Is(inner, errors.ErrReentrant) {
		t.Errorf("nested Interpret error = %v, want reentrant", inner)
	}
}

func TestInterpret_Cancelled(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.vm.Interpret(ctx, "main", `while (true) {}`)
	if res != ResultRuntimeError {
		t.Fatalf("result = %v", res)
	}
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestForeignMethodPanic(t *testing.T) {
	b := registry.NewBuilder()
	b.Class("host", "Boom").
		Allocate(func(f *slot.Frame) error { return f.SetNewForeign(0, 0, 1) }).
		Static("go()", func(*slot.Frame) error { panic("kaboom") })
	reg := b.MustBuild()

	v := New(binding.New(reg, binding.WithLoader(binding.MapLoader(map[string]string{
		"host": "foreign class Boom {\n  foreign static go()\n}",
	}))))
	defer v.Close()

	res, err := v.Interpret(context.Background(), "main", "import \"host\" for Boom\nBoom.go()")
	if res != ResultRuntimeError || err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("Interpret = %v, %v", res, err)
	}
	if _, err := v.Interpret(context.Background(), "main", "System.print(1)"); err != nil {
		t.Errorf("VM unusable after a recovered panic: %v", err)
	}
}

func TestGC_FinalizerPanic(t *testing.T) {
	b := registry.NewBuilder()
	b.Class("host", "Fragile").
		Allocate(func(f *slot.Frame) error { return f.SetNewForeign(0, 0, 1) }).
		Finalize(func(any) { panic("boom") })
	reg := b.MustBuild()

	var reported []string
	v := New(binding.New(reg,
		binding.WithLoader(binding.MapLoader(map[string]string{
			"host": "foreign class Fragile {\n  construct new() {}\n}",
		})),
		binding.WithErrorFn(func(kind binding.ErrorKind, _ string, _ int, msg string) {
			reported = append(reported, kind.String()+": "+msg)
		}),
		binding.WithGCThreshold(1),
	))

	res, err := v.Interpret(context.Background(), "main", `
import "host" for Fragile
for (i in 1..3) {
  var tmp = Fragile.new()
}
System.gc()
`)
	if res != ResultSuccess || err != nil {
		t.Fatalf("Interpret = %v, %v", res, err)
	}
	if v.Store().Finalizing() {
		t.Fatal("store left in finalizing state")
	}
	if len(reported) == 0 || !strings.Contains(reported[0], "finalizer panicked: boom") {
		t.Errorf("reported = %v", reported)
	}
	if _, err := v.Interpret(context.Background(), "main", "System.print(1)"); err != nil {
		t.Errorf("Interpret after finalizer panic: %v", err)
	}
	if _, err := v.Interpret(context.Background(), "main", "var keep = Fragile.new()"); err != nil {
		t.Errorf("allocation after finalizer panic: %v", err)
	}
	if err := v.Close(); !stderrors.Is(err, errors.ErrFinalize) {
		t.Errorf("Close = %v, want finalize error", err)
	}
}

func TestClose(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.vm.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.vm.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := h.vm.Interpret(context.Background(), "main", "1"); err == nil {
		t.Error("Interpret after Close succeeded")
	}
}
