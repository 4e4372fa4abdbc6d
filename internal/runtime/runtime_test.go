package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/geyserd/internal/config"
	"github.com/rzbill/geyserd/internal/engine"
	"github.com/rzbill/geyserd/internal/message"
	"github.com/rzbill/geyserd/internal/replay"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

func quietLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
}

func TestOpenRunHealth(t *testing.T) {
	rt, err := Open(Options{Config: cfgpkg.Default(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()
	if _, ok := rt.Replay().(*replay.Memory); !ok {
		t.Fatalf("default backend should be memory, got %T", rt.Replay())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := rt.Engine().Ingest(message.NewSlot(&message.SlotInfo{Slot: 1})); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
	if err := rt.CheckHealth(context.Background()); err == nil {
		t.Fatalf("health should fail after stop")
	}
}

func TestOpenPebbleBackend(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Replay.Backend = cfgpkg.ReplayBackendPebble
	cfg.Replay.DataDir = t.TempDir()
	rt, err := Open(Options{Config: cfg, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if _, ok := rt.Replay().(*replay.Pebble); !ok {
		t.Fatalf("expected pebble store, got %T", rt.Replay())
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Replay.Backend = "nope"
	if _, err := Open(Options{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatalf("expected validation error")
	}
	cfg = cfgpkg.Default()
	cfg.Replay.Backend = cfgpkg.ReplayBackendPebble
	cfg.Replay.DataDir = t.TempDir()
	cfg.Replay.Fsync = "sometimes"
	if _, err := Open(Options{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatalf("expected fsync error")
	}
}

func TestHealthDuringShutdown(t *testing.T) {
	rt, err := Open(Options{Config: cfgpkg.Default(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	rt.Engine().Shutdown()
	if err := rt.CheckHealth(context.Background()); !errors.Is(err, engine.ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
}
