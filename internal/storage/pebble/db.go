package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each committed batch/write.
	FsyncModeAlways
	// FsyncModeInterval enables group-commit by allowing Pebble to coalesce WAL
	// syncs for operations within the configured interval.
	FsyncModeInterval
	// FsyncModeNever avoids forcing WAL syncs from the application.
	FsyncModeNever
)

// ParseFsyncMode maps a config string to a mode. Empty is Unspecified.
func ParseFsyncMode(s string) (FsyncMode, error) {
	switch s {
	case "":
		return FsyncModeUnspecified, nil
	case "always":
		return FsyncModeAlways, nil
	case "interval":
		return FsyncModeInterval, nil
	case "never":
		return FsyncModeNever, nil
	}
	return FsyncModeUnspecified, fmt.Errorf("pebble: unknown fsync mode %q", s)
}

// Options configures the Pebble store wrapper.
type Options struct {
	// DataDir is the path to the Pebble database directory. Ignored when InMemory.
	DataDir string
	// InMemory backs the database with a memory VFS.
	InMemory bool
	// Scratch wipes DataDir before opening; the contents never outlive the process.
	Scratch bool
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning of Pebble. If nil, defaults are used.
	PebbleOptions *pebble.Options
	// Metrics observes read/write/commit latencies and sizes. Optional.
	Metrics MetricsHook
}

// MetricsHook is a minimal hook surface for storage observations.
type MetricsHook interface {
	ObserveWrite(elapsed time.Duration, bytes int)
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveWrite(time.Duration, int)            {}
func (NoopMetrics) ObserveRead(time.Duration, int)             {}
func (NoopMetrics) ObserveBatchCommit(time.Duration, int, int) {}

// DB wraps a Pebble database instance with fsync policy and basic helpers.
type DB struct {
	inner     *pebble.DB
	writeSync bool
	metrics   MetricsHook
}

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" && !opts.InMemory {
		return nil, errors.New("pebble: Options.DataDir is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	dir := opts.DataDir
	if opts.InMemory {
		po.FS = vfs.NewMem()
		if dir == "" {
			dir = "mem"
		}
	} else if opts.Scratch {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("pebble: wipe %s: %w", dir, err)
		}
	}

	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync is requested per commit below.
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return opts.FsyncInterval }
	case FsyncModeNever:
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(dir, po)
	if err != nil {
		return nil, err
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &DB{
		inner:     inner,
		writeSync: opts.Fsync == FsyncModeAlways,
		metrics:   metrics,
	}, nil
}

// Close closes the Pebble database.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// NewBatch creates a new batch for atomic multi-key updates.
func (db *DB) NewBatch() *pebble.Batch {
	return db.inner.NewBatch()
}

func (db *DB) syncMode() *pebble.WriteOptions {
	if db.writeSync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// CommitBatch commits the provided batch with the configured fsync policy.
func (db *DB) CommitBatch(ctx context.Context, b *pebble.Batch) error {
	if b == nil {
		return errors.New("pebble: nil batch")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	size := b.Len()
	ops := int(b.Count())
	err := b.Commit(db.syncMode())
	db.metrics.ObserveBatchCommit(time.Since(start), ops, size)
	return err
}

// Set sets a key to a value respecting the fsync policy.
func (db *DB) Set(key, value []byte) error {
	start := time.Now()
	err := db.inner.Set(key, value, db.syncMode())
	db.metrics.ObserveWrite(time.Since(start), len(key)+len(value))
	return err
}

// DeleteRange removes every key in [start, end).
func (db *DB) DeleteRange(start, end []byte) error {
	return db.inner.DeleteRange(start, end, db.syncMode())
}

// Get copies the value for the given key. Missing keys return pebble.ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	start := time.Now()
	val, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	buf := append([]byte(nil), val...)
	db.metrics.ObserveRead(time.Since(start), len(buf))
	return buf, nil
}

// NewIter creates a raw Pebble iterator with the provided options.
func (db *DB) NewIter(opts *pebble.IterOptions) (*pebble.Iterator, error) {
	return db.inner.NewIter(opts)
}

// CompactRange requests compaction of the key range [start, end).
func (db *DB) CompactRange(start, end []byte) error {
	return db.inner.Compact(start, end, true)
}
