package registry

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/slot"
)

func nop(*slot.Frame) error { return nil }

func setter(n float64) slot.MethodFn {
	return func(f *slot.Frame) error { return f.SetDouble(0, n) }
}

func TestBuilder_LookupMethod(t *testing.T) {
	reg, err := NewBuilder().
		Class("vector", "Vec3").
		Allocate(nop).
		Method("norm()", setter(1)).
		Method("x", setter(2)).
		Static("zero()", setter(3)).
		Done().
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		sig    string
		static bool
		want   float64
	}{
		{"norm()", false, 1},
		{"x", false, 2},
		{"zero()", true, 3},
	}
	for _, tt := range tests {
		fn, ok := reg.LookupMethod("vector", "Vec3", tt.sig, tt.static)
		if !ok {
			t.Fatalf("LookupMethod(%q, static=%v) missed", tt.sig, tt.static)
		}
		f := slot.NewFrame(nil, 1)
		if err := fn(f); err != nil {
			t.Fatalf("call: %v", err)
		}
		if got, _ := f.GetDouble(0); got != tt.want {
			t.Errorf("%s returned %v, want %v", tt.sig, got, tt.want)
		}
	}
}

func TestRegistry_UnboundMethod(t *testing.T) {
	reg := NewBuilder().
		Class("vector", "Vec3").Allocate(nop).Method("norm()", nop).Done().
		MustBuild()

	misses := []struct {
		module, class, sig string
		static             bool
	}{
		{"vector", "Vec3", "length()", false},
		{"vector", "Vec3", "norm()", true},
		{"vector", "Vec2", "norm()", false},
		{"other", "Vec3", "norm()", false},
	}
	for _, m := range misses {
		fn, ok := reg.LookupMethod(m.module, m.class, m.sig, m.static)
		if ok || fn != nil {
			t.Errorf("LookupMethod(%+v) = bound, want unbound", m)
		}
	}

	var nilReg *Registry
	if _, ok := nilReg.LookupMethod("a", "b", "c", false); ok {
		t.Error("nil registry should have no methods")
	}
}

func TestRegistry_UnboundClassIsFatal(t *testing.T) {
	reg := Empty()

	_, err := reg.LookupClass("vector", "Vec3")
	if err == nil {
		t.Fatal("LookupClass on empty registry should fail")
	}
	if !stderrors.Is(err, errors.ErrUnboundClass) {
		t.Errorf("error = %v, want unbound class", err)
	}
	if !errors.IsFatal(err) {
		t.Error("unbound class must be fatal")
	}
}

func TestRegistry_LookupClass(t *testing.T) {
	finalized := false
	reg := NewBuilder().
		DefineClass("vector", "Vec3", slot.ClassMethods{
			Allocate: nop,
			Finalize: func(any) { finalized = true },
		}).
		MustBuild()

	cm, err := reg.LookupClass("vector", "Vec3")
	if err != nil {
		t.Fatalf("LookupClass: %v", err)
	}
	if cm.Allocate == nil || cm.Finalize == nil {
		t.Fatal("class methods incomplete")
	}
	cm.Finalize(nil)
	if !finalized {
		t.Error("finalizer not the registered one")
	}
}

func TestBuilder_Duplicate(t *testing.T) {
	_, err := NewBuilder().
		DefineMethod("m", "C", false, "f(_)", nop).
		DefineMethod("m", "C", false, "f(_)", nop).
		Build()
	if err == nil {
		t.Fatal("duplicate method should fail")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindCollision {
		t.Errorf("error = %v, want collision", err)
	}

	_, err = NewBuilder().
		Class("m", "C").Allocate(nop).Allocate(nop).Done().
		Build()
	if err == nil {
		t.Fatal("duplicate allocator should fail")
	}
}

func TestBuilder_ConcatenatedKeyCollision(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
	}{
		{
			name: "module and class boundary",
			b: NewBuilder().
				DefineMethod("ab", "C", false, "f()", nop).
				DefineMethod("a", "bC", false, "f()", nop),
		},
		{
			name: "static marker",
			b: NewBuilder().
				DefineMethod("m", "C", true, "x", nop).
				DefineMethod("m", "C", false, "xs", nop),
		},
		{
			name: "classes",
			b: NewBuilder().
				DefineClass("ab", "C", slot.ClassMethods{Allocate: nop}).
				DefineClass("a", "bC", slot.ClassMethods{Allocate: nop}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Kind != errors.KindCollision {
				t.Errorf("Build() = %v, want collision", err)
			}
		})
	}
}

func TestBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		b    *Builder
	}{
		{"bad signature", NewBuilder().DefineMethod("m", "C", false, "f(", nop)},
		{"nil function", NewBuilder().DefineMethod("m", "C", false, "f()", nil)},
		{"empty module", NewBuilder().DefineMethod("", "C", false, "f()", nop)},
		{"class without allocator", NewBuilder().Class("m", "C").Finalize(func(any) {}).Done()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); err == nil {
				t.Error("Build should fail")
			}
		})
	}
}

func TestBuilder_NormalizesSignature(t *testing.T) {
	reg := NewBuilder().
		DefineMethod("m", "C", false, "init new(_)", nop).
		MustBuild()
	if _, ok := reg.LookupMethod("m", "C", "init new(_)", false); !ok {
		t.Error("constructor signature not found")
	}
}

func TestBuilder_Middleware(t *testing.T) {
	var order []string
	mw := func(tag string) Middleware {
		return func(key MethodKey, next slot.MethodFn) slot.MethodFn {
			return func(f *slot.Frame) error {
				order = append(order, tag+":"+key.Signature)
				return next(f)
			}
		}
	}

	reg := NewBuilder(WithMiddleware(mw("outer"), mw("inner"))).
		DefineMethod("m", "C", false, "f()", func(*slot.Frame) error {
			order = append(order, "call")
			return nil
		}).
		MustBuild()

	fn, _ := reg.LookupMethod("m", "C", "f()", false)
	if err := fn(slot.NewFrame(nil, 1)); err != nil {
		t.Fatal(err)
	}

	want := []string{"outer:f()", "inner:f()", "call"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

type testExporter struct {
	exports map[string]any
}

func (e testExporter) Module() string          { return "geo" }
func (e testExporter) Exports() map[string]any { return e.exports }

func TestBuilder_Register(t *testing.T) {
	reg, err := NewBuilder().Register(testExporter{exports: map[string]any{
		"Point":                 slot.ClassMethods{Allocate: nop},
		"Point.x":               slot.MethodFn(nop),
		"Point.distance(_)":     func(*slot.Frame) error { return nil },
		"static Point.origin()": nop,
	}}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := reg.LookupClass("geo", "Point"); err != nil {
		t.Errorf("class: %v", err)
	}
	for _, tc := range []struct {
		sig    string
		static bool
	}{{"x", false}, {"distance(_)", false}, {"origin()", true}} {
		if _, ok := reg.LookupMethod("geo", "Point", tc.sig, tc.static); !ok {
			t.Errorf("method %s (static=%v) not registered", tc.sig, tc.static)
		}
	}

	methods, classes := reg.Len()
	if methods != 3 || classes != 1 {
		t.Errorf("Len = %d, %d", methods, classes)
	}
}

func TestBuilder_RegisterInvalid(t *testing.T) {
	tests := []map[string]any{
		{"Point.x": 42},
		{"Point": nop},
		{"static Point": slot.ClassMethods{Allocate: nop}},
	}
	for _, exports := range tests {
		if _, err := NewBuilder().Register(testExporter{exports: exports}).Build(); err == nil {
			t.Errorf("Register(%v) should fail", exports)
		}
	}
}

func TestRegistry_Listings(t *testing.T) {
	reg := NewBuilder().
		Class("b", "B").Allocate(nop).Method("g()", nop).Done().
		Class("a", "A").Allocate(nop).Method("f()", nop).Static("h()", nop).Done().
		MustBuild()

	methods := reg.Methods()
	want := []string{"aAf()", "aAh()s", "bBg()"}
	if len(methods) != len(want) {
		t.Fatalf("Methods() = %v", methods)
	}
	for i, k := range methods {
		if k.String() != want[i] {
			t.Errorf("Methods()[%d] = %q, want %q", i, k.String(), want[i])
		}
	}

	classes := reg.Classes()
	if len(classes) != 2 || classes[0].Qualified() != "a.A" || classes[1].Qualified() != "b.B" {
		t.Errorf("Classes() = %v", classes)
	}
}

func TestBuilder_SignatureHelpers(t *testing.T) {
	reg := NewBuilder().
		DefineMethod("vector", "Vec3", false, Method("dot", 1).String(), setter(3)).
		DefineMethod("vector", "Vec3", true, Method("new", 3).String(), nop).
		DefineMethod("vector", "Vec3", false, Setter("x").String(), nop).
		MustBuild()

	for _, sig := range []string{"dot(_)", "x=(_)"} {
		if _, ok := reg.LookupMethod("vector", "Vec3", sig, false); !ok {
			t.Errorf("LookupMethod(%q) missed", sig)
		}
	}
	if _, ok := reg.LookupMethod("vector", "Vec3", "new(_,_,_)", true); !ok {
		t.Error("static method missed")
	}
	if methods, _ := reg.Len(); methods != 3 {
		t.Errorf("methods = %d, want 3", methods)
	}
}
