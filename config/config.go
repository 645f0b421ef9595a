// Package config loads wren.toml project configuration, applies .env and
// WREN_* environment overrides and builds the runtime pieces it describes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wren-bridge/binding"
	"github.com/wippyai/wren-bridge/errors"
)

// FileName is the project configuration file searched for by FindAndLoad.
const FileName = "wren.toml"

// Config represents a wren.toml file.
type Config struct {
	Scripts Scripts      `toml:"scripts"`
	VM      VM           `toml:"vm"`
	Log     Log          `toml:"log"`
	Metrics Metrics      `toml:"metrics"`
	Wasm    []WasmModule `toml:"wasm"`

	// Dir is the directory containing wren.toml, or the start directory
	// when no file was found (set at load time).
	Dir string `toml:"-"`
}

// Scripts configures where imported modules are read from.
type Scripts struct {
	Dirs      []string `toml:"dirs"`
	Extension string   `toml:"extension"`
	Entry     string   `toml:"entry"`
}

// VM holds interpreter knobs.
type VM struct {
	GCThreshold int `toml:"gc_threshold"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `toml:"level"`
	Format      string `toml:"format"`
	Development bool   `toml:"development"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `toml:"addr"`
}

// WasmModule exposes a WebAssembly file as a script class.
type WasmModule struct {
	Module           string `toml:"module"`
	Class            string `toml:"class"`
	Path             string `toml:"path"`
	MemoryLimitPages uint32 `toml:"memory_limit_pages"`
}

// Default returns the configuration used when no wren.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if len(c.Scripts.Dirs) == 0 {
		c.Scripts.Dirs = []string{"."}
	}
	if c.Scripts.Extension == "" {
		c.Scripts.Extension = binding.DefaultExtension
	}
	if c.VM.GCThreshold == 0 {
		c.VM.GCThreshold = binding.DefaultGCThreshold
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Load parses the wren.toml file in dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config("cannot read "+path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, errors.Config("parse error in "+path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, errors.Config("cannot resolve path "+dir, err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a wren.toml file and loads
// it. Without a file it returns Default with Dir set to startDir.
func FindAndLoad(startDir string) (*Config, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return nil, errors.Config("cannot resolve path "+startDir, err)
	}

	for dir := start; ; {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	c := Default()
	c.Dir = start
	return c, nil
}

// Resolve loads startDir/.env when present, finds wren.toml and applies
// WREN_* variables from the process environment.
func Resolve(startDir string) (*Config, error) {
	if err := LoadEnvFile(filepath.Join(startDir, ".env")); err != nil {
		return nil, err
	}
	c, err := FindAndLoad(startDir)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadEnvFile loads variables from .env files that exist. Variables already
// set in the environment win.
func LoadEnvFile(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Config("load env file", err)
	}
	return nil
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from WREN_* variables:
//
//	WREN_SCRIPT_DIRS       comma-separated module directories
//	WREN_SCRIPT_EXTENSION  module file extension
//	WREN_GC_THRESHOLD      foreign allocations between collections, negative disables
//	WREN_LOG_LEVEL         debug, info, warn or error
//	WREN_LOG_FORMAT        console or json
//	WREN_LOG_DEVELOPMENT   development logger
//	WREN_METRICS_ADDR      Prometheus listen address
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if v, ok := lookup("WREN_SCRIPT_DIRS"); ok && v != "" {
		var dirs []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		c.Scripts.Dirs = dirs
	}
	if v, ok := lookup("WREN_SCRIPT_EXTENSION"); ok && v != "" {
		c.Scripts.Extension = v
	}
	if v, ok := lookup("WREN_GC_THRESHOLD"); ok {
		n, err := cast.ToIntE(strings.TrimSpace(v))
		if err != nil {
			return errors.Config("WREN_GC_THRESHOLD", err)
		}
		c.VM.GCThreshold = n
	}
	if v, ok := lookup("WREN_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("WREN_LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := lookup("WREN_LOG_DEVELOPMENT"); ok {
		b, err := cast.ToBoolE(strings.TrimSpace(v))
		if err != nil {
			return errors.Config("WREN_LOG_DEVELOPMENT", err)
		}
		c.Log.Development = b
	}
	if v, ok := lookup("WREN_METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
	c.applyDefaults()
	return c.validate()
}

func (c *Config) validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Config("log format must be console or json, got "+c.Log.Format, nil)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Config("log level", err)
	}
	for i, w := range c.Wasm {
		if w.Module == "" || w.Class == "" || w.Path == "" {
			return errors.Config(fmt.Sprintf("wasm entry %d needs module, class and path", i), nil)
		}
	}
	return nil
}

// path resolves p against Dir.
func (c *Config) path(p string) string {
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ScriptDirPaths returns absolute paths for the module directories.
func (c *Config) ScriptDirPaths() []string {
	paths := make([]string, 0, len(c.Scripts.Dirs))
	for _, d := range c.Scripts.Dirs {
		paths = append(paths, c.path(d))
	}
	return paths
}

// WasmPath returns the resolved file path of w.
func (c *Config) WasmPath(w WasmModule) string {
	return c.path(w.Path)
}

// Loader reads modules from the script directories in order.
func (c *Config) Loader() binding.ModuleLoader {
	var loaders []binding.ModuleLoader
	for _, d := range c.ScriptDirPaths() {
		loaders = append(loaders, binding.DirLoader(d, c.Scripts.Extension))
	}
	return binding.ChainLoader(loaders...)
}

// Logger builds the configured zap logger.
func (c *Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Config("log level", err)
	}
	zc.Level = lvl
	zc.Encoding = c.Log.Format
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, errors.Config("build logger", err)
	}
	return l, nil
}
