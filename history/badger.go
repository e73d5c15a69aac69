package history

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/attunehq/microbench/stats"
)

// keyPrefix namespaces stats entries inside the database.
const keyPrefix = "runstats/"

// BadgerConfig configures a BadgerBackend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database in RAM; useful for tests.
	InMemory bool

	// Logger receives badger's internal logging. Nil silences it.
	Logger *slog.Logger
}

// BadgerBackend stores one key per benchmark in an embedded BadgerDB.
type BadgerBackend struct {
	db   *badger.DB
	path string
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens (creating if needed) a badger-backed history store.
func OpenBadger(cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, errors.Wrapf(err, "create database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger database")
	}
	return &BadgerBackend{db: db, path: cfg.Path}, nil
}

func (b *BadgerBackend) String() string {
	if b.path == "" {
		return "badger:memory"
	}
	return "badger:" + b.path
}

// Load reads every entry under the stats prefix.
func (b *BadgerBackend) Load(floor int) (map[string]stats.RunStats, error) {
	out := make(map[string]stats.RunStats)
	prefix := []byte(keyPrefix)

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := normalizeName(string(item.Key()[len(prefix):]))

			err := item.Value(func(val []byte) error {
				if len(val) != recordSize {
					return nil
				}
				if s, err := decodeRecord(val).Stats(floor); err == nil && name != "" {
					out[name] = s
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "load badger history")
	}
	return out, nil
}

// Store writes entries and deletes any stored name not among them, in a
// single transaction.
func (b *BadgerBackend) Store(entries map[string]stats.RunStats) error {
	prefix := []byte(keyPrefix)

	err := b.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte

		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := entries[string(key[len(prefix):])]; !ok {
				stale = append(stale, key)
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for name, s := range entries {
			if err := txn.Set([]byte(keyPrefix+name), encodeRecord(s.Record())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "store badger history")
	}
	return nil
}

// Close closes the database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
