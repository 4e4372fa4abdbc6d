package pebblestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
)

type testMetrics struct {
	wrote        int
	read         int
	batchCommits int
	batchOps     int
	batchBytes   int
}

func (m *testMetrics) ObserveWrite(d time.Duration, bytes int) { m.wrote += bytes }
func (m *testMetrics) ObserveRead(d time.Duration, bytes int)  { m.read += bytes }
func (m *testMetrics) ObserveBatchCommit(d time.Duration, numOps int, bytes int) {
	m.batchCommits++
	m.batchOps += numOps
	m.batchBytes += bytes
}

func newTestDB(t *testing.T, opts Options) (*DB, *testMetrics) {
	t.Helper()
	metrics := &testMetrics{}
	opts.Metrics = metrics
	db, err := Open(opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

func TestCRUD(t *testing.T) {
	db, metrics := newTestDB(t, Options{DataDir: t.TempDir(), Fsync: FsyncModeInterval, FsyncInterval: 2 * time.Millisecond})

	key := []byte("k1")
	val := []byte("v1")
	if err := db.Set(key, val); err != nil {
		t.Fatalf("set: %v", err)
	}
	if metrics.wrote == 0 {
		t.Fatalf("expected write metrics to record bytes")
	}
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(val) {
		t.Fatalf("got %q want %q", got, val)
	}
	if metrics.read == 0 {
		t.Fatalf("expected read metrics to record bytes")
	}
	if _, err := db.Get([]byte("missing")); !errors.Is(err, pebble.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestBatchCommitMetrics(t *testing.T) {
	db, metrics := newTestDB(t, Options{InMemory: true})

	b := db.NewBatch()
	if err := b.Set([]byte("a"), []byte("1"), nil); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	if err := b.Set([]byte("b"), []byte("2"), nil); err != nil {
		t.Fatalf("batch set: %v", err)
	}
	if err := db.CommitBatch(context.Background(), b); err != nil {
		t.Fatalf("commit: %v", err)
	}
	b.Close()

	if metrics.batchCommits != 1 || metrics.batchOps != 2 {
		t.Fatalf("want 1 commit of 2 ops, got %d/%d", metrics.batchCommits, metrics.batchOps)
	}
	if metrics.batchBytes <= 0 {
		t.Fatalf("expected positive batch bytes")
	}
}

func TestCommitBatchCanceled(t *testing.T) {
	db, _ := newTestDB(t, Options{InMemory: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := db.NewBatch()
	defer b.Close()
	_ = b.Set([]byte("a"), []byte("1"), nil)
	if err := db.CommitBatch(ctx, b); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestDeleteRange(t *testing.T) {
	db, _ := newTestDB(t, Options{InMemory: true})
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := db.Set([]byte(k), []byte(k)); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := db.DeleteRange([]byte("a"), []byte("c")); err != nil {
		t.Fatalf("delete range: %v", err)
	}
	for k, want := range map[string]bool{"a": false, "b": false, "c": true, "d": true} {
		_, err := db.Get([]byte(k))
		if (err == nil) != want {
			t.Fatalf("key %s present=%v want %v", k, err == nil, want)
		}
	}
}

func TestScratchWipesDataDir(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, _ = newTestDB(t, Options{DataDir: dir, Scratch: true})
	if _, err := db.Get([]byte("k")); !errors.Is(err, pebble.ErrNotFound) {
		t.Fatalf("scratch open kept old data: %v", err)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error without DataDir")
	}
}

func TestParseFsyncMode(t *testing.T) {
	cases := map[string]FsyncMode{"": FsyncModeUnspecified, "always": FsyncModeAlways, "interval": FsyncModeInterval, "never": FsyncModeNever}
	for in, want := range cases {
		got, err := ParseFsyncMode(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v/%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseFsyncMode("sometimes"); err == nil {
		t.Fatalf("expected error")
	}
}
