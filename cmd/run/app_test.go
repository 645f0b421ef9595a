package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/wren-bridge/config"
)

func newTestApp(t *testing.T, dir string) (*app, *strings.Builder, *strings.Builder) {
	t.Helper()
	cfg := config.Default()
	cfg.Dir = dir

	var stdout, stderr strings.Builder
	a, err := newApp(context.Background(), cfg, &stdout, &stderr)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { a.Close(context.Background()) })
	return a, &stdout, &stderr
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name       string
		src        string
		code       int
		wantOut    string
		wantStderr string
	}{
		{
			name:    "dot product",
			src:     "import \"vector\" for Vec3\nSystem.print(Vec3.new(1, 2, 3).dot(Vec3.new(1, 1, 1)))\n",
			code:    exitOK,
			wantOut: "6\n",
		},
		{
			name:    "local module",
			src:     "import \"util\" for greeting\nSystem.print(greeting)\n",
			code:    exitOK,
			wantOut: "hello\n",
		},
		{
			name:       "compile error",
			src:        "var = 1\n",
			code:       exitCompile,
			wantStderr: "[compile_error line 1]",
		},
		{
			name:       "runtime error",
			src:        "Fiber.abort(\"bad\")\n",
			code:       exitSoftware,
			wantStderr: "bad\n[runtime_error line 1] in (script)",
		},
	}
	write("util.wren", "var greeting = \"hello\"\n")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, stdout, stderr := newTestApp(t, dir)
			path := write(strings.ReplaceAll(tt.name, " ", "_")+".wren", tt.src)

			if code := a.runFile(context.Background(), path); code != tt.code {
				t.Errorf("exit code = %d, want %d (stderr %q)", code, tt.code, stderr.String())
			}
			if tt.wantOut != "" && stdout.String() != tt.wantOut {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantOut)
			}
			if tt.wantStderr != "" && !strings.Contains(stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestRunFile_Missing(t *testing.T) {
	a, _, _ := newTestApp(t, t.TempDir())
	if code := a.runFile(context.Background(), filepath.Join(t.TempDir(), "nope.wren")); code != exitNoInput {
		t.Errorf("exit code = %d, want %d", code, exitNoInput)
	}
}

func TestList(t *testing.T) {
	a, _, _ := newTestApp(t, t.TempDir())
	var b strings.Builder
	a.list(&b)

	out := b.String()
	for _, want := range []string{"vector.Vec3\n", "vector.Vec3.dot(_)", "vector.Vec3 static zero()"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestRunLines(t *testing.T) {
	a, stdout, _ := newTestApp(t, t.TempDir())
	in := strings.NewReader("var x = 20\n\nSystem.print(x + 1)\n")
	if err := runLines(context.Background(), a, in, &strings.Builder{}); err != nil {
		t.Fatalf("runLines: %v", err)
	}
	if got := stdout.String(); got != "21\n" {
		t.Errorf("stdout = %q", got)
	}
}
