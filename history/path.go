package history

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	// DefaultFile is the history file name used when none is given.
	DefaultFile = "__microbench.last"

	// EnvPrefix prefixes the environment variables read by LocateFromEnv:
	// MICROBENCH_HISTORY and MICROBENCH_NO_HISTORY.
	EnvPrefix = "MICROBENCH"
)

// Locate resolves the history file. An explicit path must not be a
// directory; its parent is created if missing, falling back to the working
// directory, and an empty file name becomes DefaultFile. Without a path the
// file lives in tempDir. ok is false when no usable location exists.
func Locate(fs afero.Fs, path, tempDir string) (string, bool) {
	if path == "" {
		dir, ok := tryDir(fs, tempDir)
		if !ok {
			return "", false
		}
		return filepath.Join(dir, DefaultFile), true
	}

	if isDir, _ := afero.IsDir(fs, path); isDir {
		return "", false
	}

	dir, ok := tryDir(fs, filepath.Dir(path))
	if !ok {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		if dir, ok = tryDir(fs, wd); !ok {
			return "", false
		}
	}

	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = DefaultFile
	}
	return filepath.Join(dir, name), true
}

// LocateFromEnv resolves the history file from the environment.
// MICROBENCH_NO_HISTORY=1 disables history; MICROBENCH_HISTORY picks a file.
func LocateFromEnv(fs afero.Fs) (string, bool) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if strings.TrimSpace(v.GetString("no_history")) == "1" {
		return "", false
	}
	return Locate(fs, strings.TrimSpace(v.GetString("history")), os.TempDir())
}

// OpenDefault opens the file history chosen by the environment, or an
// empty discarding history when it is disabled.
func OpenDefault(logger *slog.Logger) *History {
	fs := afero.NewOsFs()
	path, ok := LocateFromEnv(fs)
	if !ok {
		return Open(Discard{}, WithLogger(logger))
	}
	return Open(NewFileBackend(fs, path), WithLogger(logger))
}

// tryDir creates dir if needed and returns its absolute form, provided it
// is a directory.
func tryDir(fs afero.Fs, dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	if exists, _ := afero.Exists(fs, dir); !exists {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return "", false
		}
	}
	if isDir, _ := afero.IsDir(fs, dir); !isDir {
		return "", false
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	return abs, true
}
