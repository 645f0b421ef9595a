package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wren-bridge/binding"
	"github.com/wippyai/wren-bridge/config"
	"github.com/wippyai/wren-bridge/errors"
	"github.com/wippyai/wren-bridge/examples/vector"
	"github.com/wippyai/wren-bridge/metrics"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/vm"
	"github.com/wippyai/wren-bridge/wasmforeign"
)

// Exit codes follow sysexits.h.
const (
	exitOK       = 0
	exitUsage    = 64
	exitCompile  = 65
	exitNoInput  = 66
	exitSoftware = 70
)

// app is one configured VM with its bindings.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	reg     *registry.Registry
	vm      *vm.VM
	metrics *metrics.Metrics
	server  *http.Server
	wasm    []*wasmforeign.Binding
	stdout  io.Writer
	stderr  io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	l, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	binding.SetLogger(l.Named("binding"))
	vm.SetLogger(l.Named("vm"))
	wasmforeign.SetLogger(l.Named("wasm"))

	a := &app{cfg: cfg, log: l, stdout: stdout, stderr: stderr}

	var opts []registry.Option
	if cfg.Metrics.Addr != "" {
		a.metrics = metrics.New()
		opts = append(opts, registry.WithMiddleware(a.metrics.Middleware()))
	}

	b := registry.NewBuilder(opts...).Register(vector.Exports{})
	loaders := []binding.ModuleLoader{vector.Loader()}
	for _, w := range cfg.Wasm {
		data, err := os.ReadFile(cfg.WasmPath(w))
		if err != nil {
			a.Close(ctx)
			return nil, errors.Config("read wasm module "+w.Path, err)
		}
		wb, err := wasmforeign.Load(ctx, data, wasmforeign.Options{
			Module:             w.Module,
			Class:              w.Class,
			MemoryLimitPages:   w.MemoryLimitPages,
			CloseOnContextDone: true,
		})
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.wasm = append(a.wasm, wb)
		b.Register(wb)
		loaders = append(loaders, wb.Loader())
	}
	loaders = append(loaders, cfg.Loader())

	a.reg, err = b.Build()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	bopts := []binding.Option{
		binding.WithLoader(binding.ChainLoader(loaders...)),
		binding.WithGCThreshold(cfg.VM.GCThreshold),
		binding.WithWriter(func(s string) { io.WriteString(a.stdout, s) }),
		binding.WithErrorFn(a.reportError),
	}
	if a.metrics != nil {
		bopts = append(bopts, binding.WithObserver(a.metrics))
		a.serveMetrics()
	}
	a.vm = vm.New(binding.New(a.reg, bopts...))
	return a, nil
}

func (a *app) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	a.server = &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", a.cfg.Metrics.Addr))
}

func (a *app) reportError(kind binding.ErrorKind, module string, line int, msg string) {
	switch kind {
	case binding.ErrorCompile:
		fmt.Fprintf(a.stderr, "[%s line %d] %s\n", module, line, msg)
	case binding.ErrorRuntime:
		fmt.Fprintln(a.stderr, msg)
	case binding.ErrorStackTrace:
		fmt.Fprintf(a.stderr, "[%s line %d] in %s\n", module, line, msg)
	}
}

// runFile interprets path as the main module and returns the exit code.
func (a *app) runFile(ctx context.Context, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(a.stderr, "Could not read %s: %v\n", path, err)
		return exitNoInput
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	res, err := a.vm.Interpret(ctx, name, string(src))
	if err != nil {
		a.log.Debug("script failed", zap.String("module", name), zap.Stringer("result", res), zap.Error(err))
	}
	return exitCode(res, err)
}

func exitCode(res vm.Result, err error) int {
	switch {
	case res == vm.ResultCompileError:
		return exitCompile
	case res == vm.ResultRuntimeError, err != nil:
		return exitSoftware
	}
	return exitOK
}

// list writes the bound classes and methods.
func (a *app) list(w io.Writer) {
	fmt.Fprintln(w, "Foreign classes:")
	for _, c := range a.reg.Classes() {
		fmt.Fprintf(w, "  %s\n", c.Qualified())
	}
	fmt.Fprintln(w, "\nForeign methods:")
	for _, m := range a.reg.Methods() {
		fmt.Fprintf(w, "  %s\n", m.Qualified())
	}
}

func (a *app) Close(ctx context.Context) {
	if a.vm != nil {
		if err := a.vm.Close(); err != nil {
			a.log.Warn("close vm", zap.Error(err))
		}
	}
	for _, wb := range a.wasm {
		if err := wb.Close(ctx); err != nil {
			a.log.Warn("close wasm module", zap.String("module", wb.Module()), zap.Error(err))
		}
	}
	if a.server != nil {
		sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = a.server.Shutdown(sctx)
	}
	_ = a.log.Sync()
}
