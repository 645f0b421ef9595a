package wasmforeign

import (
	"context"
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wren-bridge/binding"
	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/vm"
)

// mathWASM exports add(i32, i32) -> i32 and mul(f64, f64) -> f64.
var mathWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	// Type section: (i32, i32) -> i32, (f64, f64) -> f64
	0x01, 0x0d, 0x02,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f,
	0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c,
	// Function section: func 0 type 0, func 1 type 1
	0x03, 0x03, 0x02, 0x00, 0x01,
	// Export section: "add" -> func 0, "mul" -> func 1
	0x07, 0x0d, 0x02,
	0x03, 0x61, 0x64, 0x64, 0x00, 0x00,
	0x03, 0x6d, 0x75, 0x6c, 0x00, 0x01,
	// Code section
	0x0a, 0x11, 0x02,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b, // i32.add
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0xa2, 0x0b, // f64.mul
}

func load(t *testing.T) *Binding {
	t.Helper()
	ctx := context.Background()
	b, err := Load(ctx, mathWASM, Options{Module: "math", Class: "Math"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(ctx) })
	return b
}

func TestLoad_Functions(t *testing.T) {
	b := load(t)

	fns := b.Functions()
	if len(fns) != 2 {
		t.Fatalf("functions = %d, want 2", len(fns))
	}
	want := []string{"add(_,_)", "mul(_,_)"}
	for i, fn := range fns {
		if fn.Signature != want[i] {
			t.Errorf("function %d signature = %q, want %q", i, fn.Signature, want[i])
		}
	}

	exports := b.Exports()
	for _, key := range []string{"static Math.add(_,_)", "static Math.mul(_,_)"} {
		if _, ok := exports[key]; !ok {
			t.Errorf("missing export %q", key)
		}
	}
}

func TestLoad_Source(t *testing.T) {
	b := load(t)
	want := "class Math {\n  foreign static add(a0, a1)\n  foreign static mul(a0, a1)\n}\n"
	if got := b.Source(); got != want {
		t.Errorf("Source:\n%s\nwant:\n%s", got, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		wasm []byte
		opts Options
	}{
		{"missing class", mathWASM, Options{Module: "math"}},
		{"garbage", []byte("not wasm"), DefaultOptions()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Load(ctx, tt.wasm, tt.opts)
			if err == nil {
				_ = b.Close(ctx)
				t.Fatal("Load succeeded")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseLoad {
				t.Errorf("error = %v, want load phase", err)
			}
		})
	}
}

func TestBinding_Script(t *testing.T) {
	b := load(t)
	reg, err := registry.NewBuilder().Register(b).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var out strings.Builder
	machine := vm.New(binding.New(reg,
		binding.WithLoader(b.Loader()),
		binding.WithWriter(func(s string) { out.WriteString(s) }),
	))
	defer machine.Close()

	src := `
import "math" for Math
System.print(Math.add(40, 2))
System.print(Math.add(-5, 3))
System.print(Math.mul(1.5, 4))
`
	if res, err := machine.Interpret(context.Background(), "main", src); err != nil {
		t.Fatalf("Interpret = %v, %v", res, err)
	}
	if got, want := out.String(), "42\n-2\n6\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestBinding_ArgumentType(t *testing.T) {
	b := load(t)
	reg := registry.NewBuilder().Register(b).MustBuild()
	machine := vm.New(binding.New(reg, binding.WithLoader(b.Loader())))
	defer machine.Close()

	_, err := machine.Interpret(context.Background(), "main", "import \"math\" for Math\nMath.add(\"a\", 1)")
	if !stderrors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("error = %v, want type mismatch", err)
	}
}

func TestBinding_IntegerArguments(t *testing.T) {
	b := load(t)
	reg := registry.NewBuilder().Register(b).MustBuild()
	machine := vm.New(binding.New(reg, binding.WithLoader(b.Loader())))
	defer machine.Close()

	invalid := &errors.Error{Phase: errors.PhaseSlot, Kind: errors.KindInvalidInput}
	tests := []struct {
		name string
		call string
	}{
		{"fraction", "Math.add(1.5, 1)"},
		{"above range", "Math.add(3000000000, 1)"},
		{"below range", "Math.add(1, -2147483649)"},
		{"nan", "Math.add(0 / 0, 1)"},
		{"infinity", "Math.add(1 / 0, 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := machine.Interpret(context.Background(), "main", "import \"math\" for Math\n"+tt.call)
			if !stderrors.Is(err, invalid) {
				t.Errorf("error = %v, want invalid input", err)
			}
		})
	}

	var out strings.Builder
	edge := vm.New(binding.New(reg,
		binding.WithLoader(b.Loader()),
		binding.WithWriter(func(s string) { out.WriteString(s) }),
	))
	defer edge.Close()
	src := "import \"math\" for Math\nSystem.print(Math.add(2147483647, 0))\nSystem.print(Math.add(-2147483648, 0))\nSystem.print(Math.mul(1.5, 0.5))"
	if _, err := edge.Interpret(context.Background(), "main", src); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got, want := out.String(), "2147483647\n-2147483648\n0.75\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFits(t *testing.T) {
	tests := []struct {
		name string
		typ  api.ValueType
		n    float64
		want bool
	}{
		{"i32 whole", api.ValueTypeI32, 7, true},
		{"i32 fraction", api.ValueTypeI32, 7.25, false},
		{"i32 max", api.ValueTypeI32, math.MaxInt32, true},
		{"i32 overflow", api.ValueTypeI32, math.MaxInt32 + 1, false},
		{"i64 large", api.ValueTypeI64, 1 << 52, true},
		{"i64 overflow", api.ValueTypeI64, 1 << 63, false},
		{"i64 nan", api.ValueTypeI64, math.NaN(), false},
		{"i64 infinity", api.ValueTypeI64, math.Inf(-1), false},
		{"f64 fraction", api.ValueTypeF64, 0.5, true},
		{"f32 nan", api.ValueTypeF32, math.NaN(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fits(tt.typ, tt.n); got != tt.want {
				t.Errorf("fits(%s, %v) = %v, want %v", api.ValueTypeName(tt.typ), tt.n, got, tt.want)
			}
		})
	}
}
