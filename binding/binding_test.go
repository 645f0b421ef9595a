package binding

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/slot"
)

func nop(*slot.Frame) error { return nil }

func TestNew_Resolvers(t *testing.T) {
	reg := registry.NewBuilder().
		Class("vector", "Vec3").Allocate(nop).Method("norm()", nop).Static("zero()", nop).Done().
		MustBuild()

	cfg := New(reg)

	if cfg.GCThreshold != DefaultGCThreshold {
		t.Errorf("GCThreshold = %d, want default", cfg.GCThreshold)
	}
	if fn := cfg.BindForeignMethodFn("vector", "Vec3", false, "norm()"); fn == nil {
		t.Error("norm() should be bound")
	}
	if fn := cfg.BindForeignMethodFn("vector", "Vec3", true, "zero()"); fn == nil {
		t.Error("static zero() should be bound")
	}
	if fn := cfg.BindForeignMethodFn("vector", "Vec3", false, "zero()"); fn != nil {
		t.Error("instance zero() should be unbound")
	}

	if _, err := cfg.BindForeignClassFn("vector", "Vec3"); err != nil {
		t.Errorf("class: %v", err)
	}
	_, err := cfg.BindForeignClassFn("vector", "Vec2")
	if !errors.IsFatal(err) {
		t.Errorf("missing class error = %v, want fatal", err)
	}
}

func TestNew_Options(t *testing.T) {
	var written string
	var reported ErrorKind = 99
	obs := foreign.ObserverFunc(func(foreign.Event) {})

	cfg := New(registry.Empty(),
		WithLoader(MapLoader(map[string]string{"m": "x"})),
		WithResolver(func(_, name string) string { return "lib/" + name }),
		WithWriter(func(s string) { written = s }),
		WithErrorFn(func(k ErrorKind, _ string, _ int, _ string) { reported = k }),
		WithObserver(obs),
		WithGCThreshold(0),
	)

	if src, err := cfg.LoadModuleFn("m"); err != nil || src != "x" {
		t.Errorf("loader = %q, %v", src, err)
	}
	if got := cfg.ResolveModuleFn("main", "json"); got != "lib/json" {
		t.Errorf("resolver = %q", got)
	}
	cfg.WriteFn("hi")
	if written != "hi" {
		t.Errorf("writer got %q", written)
	}
	cfg.ErrorFn(ErrorRuntime, "", 0, "boom")
	if reported != ErrorRuntime {
		t.Errorf("error fn got %v", reported)
	}
	if len(cfg.Observers) != 1 {
		t.Errorf("observers = %d", len(cfg.Observers))
	}
	if cfg.GCThreshold != 0 {
		t.Errorf("GCThreshold = %d", cfg.GCThreshold)
	}
}

func TestErrorKind_String(t *testing.T) {
	for k, want := range map[ErrorKind]string{
		ErrorCompile:    "compile",
		ErrorRuntime:    "runtime",
		ErrorStackTrace: "stack trace",
		ErrorKind(42):   "unknown",
	} {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}

func TestDirLoader(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "vector.wren"), []byte("class Vec3 {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "lib"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "lib", "util.wren"), []byte("var x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	load := DirLoader(dir, DefaultExtension)

	src, err := load("vector")
	if err != nil {
		t.Fatalf("load vector: %v", err)
	}
	if src != "class Vec3 {}" {
		t.Errorf("source = %q", src)
	}

	if src, err := load("lib/util"); err != nil || src != "var x = 1" {
		t.Errorf("load lib/util = %q, %v", src, err)
	}

	for _, name := range []string{"missing", "", "../etc/passwd", "/abs"} {
		_, err := load(name)
		if !stderrors.Is(err, errors.ErrModuleNotFound) {
			t.Errorf("load(%q) = %v, want module not found", name, err)
		}
	}
}

func TestFSLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"scripts/vector.wren": {Data: []byte("foreign class Vec3 {}")},
	}
	load := FSLoader(fsys, "scripts", ".wren")

	if src, err := load("vector"); err != nil || src != "foreign class Vec3 {}" {
		t.Errorf("load = %q, %v", src, err)
	}
	if _, err := load("nope"); !stderrors.Is(err, errors.ErrModuleNotFound) {
		t.Errorf("miss = %v, want module not found", err)
	}
}

func TestChainLoader(t *testing.T) {
	first := MapLoader(map[string]string{"a": "first"})
	second := MapLoader(map[string]string{"a": "second", "b": "second"})
	broken := func(string) (string, error) {
		return "", errors.InvalidInput(errors.PhaseLoad, "broken")
	}

	load := ChainLoader(nil, first, second)
	if src, _ := load("a"); src != "first" {
		t.Errorf("a = %q, want first", src)
	}
	if src, _ := load("b"); src != "second" {
		t.Errorf("b = %q, want second", src)
	}
	if _, err := load("c"); !stderrors.Is(err, errors.ErrModuleNotFound) {
		t.Errorf("c = %v, want module not found", err)
	}

	_, err := ChainLoader(broken, second)("b")
	if err == nil || stderrors.Is(err, errors.ErrModuleNotFound) {
		t.Errorf("broken loader error = %v, want it surfaced", err)
	}
}
