// Package history keeps the last valid RunStats for each benchmark name so
// that the next run can report meaningful changes.
//
// Loading and saving are best-effort: missing or corrupt storage behaves
// like an empty history, and failures to persist are logged, never
// returned.
package history

import (
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/attunehq/microbench/stats"
)

// History maps benchmark names to their last recorded stats.
type History struct {
	backend Backend
	floor   int
	logger  *slog.Logger
	entries map[string]stats.RunStats
}

// Option configures a History.
type Option func(*History)

// WithLogger sets the logger used for load and save diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithFloor sets the sample floor records must meet to be loaded.
func WithFloor(floor int) Option {
	return func(h *History) { h.floor = floor }
}

// Open loads whatever the backend holds. A nil backend behaves like
// Discard.
func Open(backend Backend, opts ...Option) *History {
	if backend == nil {
		backend = Discard{}
	}
	h := &History{
		backend: backend,
		floor:   stats.MinSamples,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		entries: make(map[string]stats.RunStats),
	}
	for _, opt := range opts {
		opt(h)
	}

	entries, err := backend.Load(h.floor)
	if err != nil {
		h.logger.Debug("history unavailable, starting empty", "backend", backend, "error", err)
		return h
	}
	for name, s := range entries {
		h.insert(name, s)
	}
	h.logger.Debug("history loaded", "backend", backend, "entries", len(h.entries))

	return h
}

// Get returns the stats recorded for name, if any.
func (h *History) Get(name string) (stats.RunStats, bool) {
	s, ok := h.entries[normalizeName(name)]
	return s, ok
}

// Insert records s under name, replacing any previous entry. Empty names
// and stats that fail validation are ignored.
func (h *History) Insert(name string, s stats.RunStats) {
	h.insert(name, s)
}

func (h *History) insert(name string, s stats.RunStats) {
	name = normalizeName(name)
	if name == "" || !s.IsValid(h.floor) {
		return
	}
	h.entries[name] = s
}

// Remove deletes the entry for name and reports whether it existed.
func (h *History) Remove(name string) bool {
	name = normalizeName(name)
	_, ok := h.entries[name]
	delete(h.entries, name)
	return ok
}

// Names returns the recorded benchmark names in sorted order.
func (h *History) Names() []string {
	names := make([]string, 0, len(h.entries))
	for name := range h.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Save persists the entries. Errors are logged and otherwise ignored.
func (h *History) Save() {
	entries := make(map[string]stats.RunStats, len(h.entries))
	for name, s := range h.entries {
		entries[name] = s
	}
	if err := h.backend.Store(entries); err != nil {
		h.logger.Warn("failed to save history", "backend", h.backend, "error", err)
		return
	}
	h.logger.Debug("history saved", "backend", h.backend, "entries", len(entries))
}

// Close releases the backend.
func (h *History) Close() error {
	return h.backend.Close()
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
