package wasmforeign

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wren-bridge/binding"
	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/slot"
	"github.com/wippyai/wren-bridge/value"
)

// Options controls how a WebAssembly module is exposed.
type Options struct {
	// Module is the script module name the class is imported from.
	Module string

	// Class is the script class holding the static methods.
	Class string

	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32

	// CloseOnContextDone aborts a running guest call when the VM context
	// is cancelled.
	CloseOnContextDone bool
}

// DefaultOptions returns options for module "wasm", class "Wasm".
func DefaultOptions() Options {
	return Options{
		Module:             "wasm",
		Class:              "Wasm",
		CloseOnContextDone: true,
	}
}

// Func describes one exported function bound as a static method.
type Func struct {
	Name      string
	Signature string
	Params    []api.ValueType
	Results   []api.ValueType
}

// Binding is an instantiated WebAssembly module and the static methods
// backed by its exports. It implements registry.Exporter.
type Binding struct {
	runtime  wazero.Runtime
	instance api.Module
	module   string
	class    string
	funcs    []Func
}

var _ registry.Exporter = (*Binding)(nil)

// Load compiles and instantiates wasm and collects its numeric exports.
// Exports whose names are not valid method names or that use reference or
// vector types are skipped.
func Load(ctx context.Context, wasm []byte, opts Options) (*Binding, error) {
	if opts.Module == "" || opts.Class == "" {
		return nil, errors.InvalidInput(errors.PhaseLoad, "wasm binding needs a module and a class name")
	}

	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(opts.CloseOnContextDone)
	if opts.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(opts.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "compile wasm module")
	}
	inst, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(opts.Module))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "instantiate wasm module")
	}

	b := &Binding{
		runtime:  rt,
		instance: inst,
		module:   opts.Module,
		class:    opts.Class,
	}

	for name, def := range inst.ExportedFunctionDefinitions() {
		params, results := def.ParamTypes(), def.ResultTypes()
		if !numeric(params) || !numeric(results) {
			Logger().Debug("wasm export skipped: non-numeric type", zap.String("export", name))
			continue
		}
		sig, err := registry.ParseSignature(registry.Method(name, len(params)).String())
		if err != nil || sig.Kind != registry.SigMethod {
			Logger().Debug("wasm export skipped: invalid method name", zap.String("export", name))
			continue
		}
		b.funcs = append(b.funcs, Func{
			Name:      name,
			Signature: sig.String(),
			Params:    params,
			Results:   results,
		})
	}
	sort.Slice(b.funcs, func(i, j int) bool { return b.funcs[i].Name < b.funcs[j].Name })

	Logger().Debug("wasm module bound",
		zap.String("module", opts.Module),
		zap.String("class", opts.Class),
		zap.Int("functions", len(b.funcs)))
	return b, nil
}

func numeric(types []api.ValueType) bool {
	for _, t := range types {
		switch t {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return false
		}
	}
	return true
}

// Module implements registry.Exporter.
func (b *Binding) Module() string {
	return b.module
}

// Class returns the script class name.
func (b *Binding) Class() string {
	return b.class
}

// Functions returns the bound exports sorted by name.
func (b *Binding) Functions() []Func {
	return append([]Func(nil), b.funcs...)
}

// Exports implements registry.Exporter.
func (b *Binding) Exports() map[string]any {
	out := make(map[string]any, len(b.funcs))
	for _, fn := range b.funcs {
		out["static "+b.class+"."+fn.Signature] = slot.MethodFn(b.method(fn))
	}
	return out
}

// Source returns the script declaration of the class.
func (b *Binding) Source() string {
	var s strings.Builder
	fmt.Fprintf(&s, "class %s {\n", b.class)
	for _, fn := range b.funcs {
		params := make([]string, len(fn.Params))
		for i := range params {
			params[i] = fmt.Sprintf("a%d", i)
		}
		fmt.Fprintf(&s, "  foreign static %s(%s)\n", fn.Name, strings.Join(params, ", "))
	}
	s.WriteString("}\n")
	return s.String()
}

// Loader serves Source under the binding's module name.
func (b *Binding) Loader() binding.ModuleLoader {
	return binding.MapLoader(map[string]string{b.module: b.Source()})
}

// Close releases the wazero runtime.
func (b *Binding) Close(ctx context.Context) error {
	return b.runtime.Close(ctx)
}

func (b *Binding) method(fn Func) slot.MethodFn {
	export := b.instance.ExportedFunction(fn.Name)
	return func(f *slot.Frame) error {
		params := make([]uint64, len(fn.Params))
		for i, t := range fn.Params {
			n, err := f.GetDouble(i + 1)
			if err != nil {
				return err
			}
			if !fits(t, n) {
				return errors.New(errors.PhaseSlot, errors.KindInvalidInput).
					Module(b.module).
					Class(b.class).
					Signature(fn.Signature).
					Value(n).
					Detail("argument %d: %s is not a valid %s", i+1, value.FormatNum(n), api.ValueTypeName(t)).
					Build()
			}
			params[i] = encode(t, n)
		}

		results, err := export.Call(f.Context(), params...)
		if err != nil {
			return errors.New(errors.PhaseHost, errors.KindAbort).
				Module(b.module).
				Class(b.class).
				Signature(fn.Signature).
				Cause(err).
				Detail("wasm call failed").
				Build()
		}

		switch len(results) {
		case 0:
			return f.SetNull(0)
		case 1:
			return f.SetDouble(0, decode(fn.Results[0], results[0]))
		}
		elems := make([]value.Value, len(results))
		for i, r := range results {
			elems[i] = value.Num(decode(fn.Results[i], r))
		}
		return f.Set(0, value.NewList(elems...))
	}
}

// fits reports whether n converts to t without losing its value. Integer
// parameters take whole numbers in their signed range.
func fits(t api.ValueType, n float64) bool {
	switch t {
	case api.ValueTypeI32:
		return n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32
	case api.ValueTypeI64:
		return n == math.Trunc(n) && n >= -(1<<63) && n < 1<<63
	}
	return true
}

func encode(t api.ValueType, n float64) uint64 {
	switch t {
	case api.ValueTypeI32:
		return api.EncodeI32(int32(n))
	case api.ValueTypeI64:
		return api.EncodeI64(int64(n))
	case api.ValueTypeF32:
		return api.EncodeF32(float32(n))
	default:
		return api.EncodeF64(n)
	}
}

func decode(t api.ValueType, v uint64) float64 {
	switch t {
	case api.ValueTypeI32:
		return float64(api.DecodeI32(v))
	case api.ValueTypeI64:
		return float64(int64(v))
	case api.ValueTypeF32:
		return float64(api.DecodeF32(v))
	default:
		return api.DecodeF64(v)
	}
}
