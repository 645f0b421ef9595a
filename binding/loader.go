package binding

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/wippyai/wren-bridge/errors"
	"go.uber.org/zap"
)

// DefaultExtension is the script source file extension.
const DefaultExtension = ".wren"

// DirLoader loads module name from dir/name+ext on the local filesystem.
// Names that would escape dir are treated as missing.
func DirLoader(dir, ext string) ModuleLoader {
	return func(name string) (string, error) {
		rel := filepath.FromSlash(name + ext)
		if name == "" || !filepath.IsLocal(rel) {
			return "", errors.ModuleNotFound(name, nil)
		}
		p := filepath.Join(dir, rel)
		data, err := os.ReadFile(p)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return "", errors.ModuleNotFound(name, err)
			}
			return "", errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Module(name).
				Cause(err).
				Detail("read %s", p).
				Build()
		}
		Logger().Debug("module loaded", zap.String("module", name), zap.String("path", p))
		return string(data), nil
	}
}

// FSLoader loads module name from dir/name+ext in fsys.
func FSLoader(fsys fs.FS, dir, ext string) ModuleLoader {
	return func(name string) (string, error) {
		p := path.Join(dir, name+ext)
		if name == "" || !fs.ValidPath(p) {
			return "", errors.ModuleNotFound(name, nil)
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				return "", errors.ModuleNotFound(name, err)
			}
			return "", errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Module(name).
				Cause(err).
				Detail("read %s", p).
				Build()
		}
		Logger().Debug("module loaded", zap.String("module", name), zap.String("path", p))
		return string(data), nil
	}
}

// MapLoader serves modules from memory.
func MapLoader(sources map[string]string) ModuleLoader {
	return func(name string) (string, error) {
		src, ok := sources[name]
		if !ok {
			return "", errors.ModuleNotFound(name, nil)
		}
		return src, nil
	}
}

// ChainLoader tries each loader in order and returns the first hit. Errors
// other than a miss stop the search.
func ChainLoader(loaders ...ModuleLoader) ModuleLoader {
	return func(name string) (string, error) {
		for _, l := range loaders {
			if l == nil {
				continue
			}
			src, err := l(name)
			if err == nil {
				return src, nil
			}
			if !stderrors.Is(err, errors.ErrModuleNotFound) {
				return "", err
			}
		}
		return "", errors.ModuleNotFound(name, nil)
	}
}
