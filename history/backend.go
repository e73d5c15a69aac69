package history

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/attunehq/microbench/stats"
)

// Backend is durable storage for a History.
type Backend interface {
	// Load returns every stored entry that validates against floor.
	Load(floor int) (map[string]stats.RunStats, error)

	// Store replaces the stored entries.
	Store(entries map[string]stats.RunStats) error

	Close() error
}

// Discard is a Backend that stores nothing.
type Discard struct{}

func (Discard) Load(int) (map[string]stats.RunStats, error) { return nil, nil }
func (Discard) Store(map[string]stats.RunStats) error       { return nil }
func (Discard) Close() error                                 { return nil }
func (Discard) String() string                               { return "discard" }

// FileBackend keeps the whole history in one file, in the Encode format.
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend returns a backend for path on fs. A nil fs means the OS
// filesystem.
func NewFileBackend(fs afero.Fs, path string) *FileBackend {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileBackend{fs: fs, path: path}
}

// Path returns the history file location.
func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) String() string { return "file:" + b.path }

// Load reads and decodes the history file.
func (b *FileBackend) Load(floor int) (map[string]stats.RunStats, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		return nil, errors.Wrap(err, "read history")
	}
	entries, err := Decode(data, floor)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", b.path)
	}
	return entries, nil
}

// Store encodes entries and overwrites the history file.
func (b *FileBackend) Store(entries map[string]stats.RunStats) error {
	if err := b.fs.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return errors.Wrap(err, "create history directory")
	}
	if err := afero.WriteFile(b.fs, b.path, Encode(entries), 0o644); err != nil {
		return errors.Wrap(err, "write history")
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

// Clear removes the history file. A missing file is not an error.
func (b *FileBackend) Clear() error {
	err := b.fs.Remove(b.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove history")
	}
	return nil
}
