package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/geyserd/internal/config"
	"github.com/rzbill/geyserd/internal/engine"
	"github.com/rzbill/geyserd/internal/replay"
	pebblestore "github.com/rzbill/geyserd/internal/storage/pebble"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// compactEvery paces background compaction of the Pebble replay window.
const compactEvery = time.Minute

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Replay overrides the store built from Config.Replay.
	Replay replay.Store
}

// Runtime wires config, the replay window and the engine for one process.
type Runtime struct {
	config cfgpkg.Config
	logger logpkg.Logger
	replay replay.Store
	engine *engine.Engine
}

// Open validates the config and builds the replay store and engine. The
// engine is started by Run.
func Open(opts Options) (*Runtime, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	store := opts.Replay
	if store == nil {
		var err error
		if store, err = openReplay(opts.Config); err != nil {
			return nil, err
		}
	}
	cfg := opts.Config
	eng := engine.New(engine.Options{
		IngestCapacity:   cfg.Engine.IngestCapacity,
		SessionQueueSize: cfg.Engine.SessionQueueSize,
		PendingLimit:     cfg.Commitment.PendingLimit,
		MaxTrackedSlots:  cfg.Commitment.MaxTrackedSlots,
		PingInterval:     cfg.Engine.PingInterval.D(),
		ShutdownGrace:    cfg.Engine.ShutdownGrace.D(),
		Limits:           cfg.Filters,
		Replay:           store,
		Logger:           logger,
	})
	logger.Info("runtime opened",
		logpkg.Str("replay_backend", cfg.Replay.Backend),
		logpkg.Uint64("replay_stored_slots", cfg.Replay.StoredSlots))
	return &Runtime{config: cfg, logger: logger, replay: store, engine: eng}, nil
}

func openReplay(cfg cfgpkg.Config) (replay.Store, error) {
	switch cfg.Replay.Backend {
	case cfgpkg.ReplayBackendPebble:
		mode, err := pebblestore.ParseFsyncMode(cfg.Replay.Fsync)
		if err != nil {
			return nil, fmt.Errorf("runtime: replay fsync: %w", err)
		}
		return replay.OpenPebble(replay.PebbleOptions{
			StoredSlots: cfg.Replay.StoredSlots,
			MaxMessages: cfg.Replay.MaxMessages,
			DataDir:     cfg.ReplayDir(),
			Fsync:       mode,
		})
	default:
		return replay.NewMemory(cfg.Replay.StoredSlots, cfg.Replay.MaxMessages), nil
	}
}

// Run drives the dispatcher until ctx ends or the engine faults. The Pebble
// backend is compacted in the background meanwhile.
func (r *Runtime) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.engine.Run(gctx) })
	if p, ok := r.replay.(*replay.Pebble); ok {
		g.Go(func() error {
			t := time.NewTicker(compactEvery)
			defer t.Stop()
			for {
				select {
				case <-r.engine.Done():
					return nil
				case <-gctx.Done():
					return nil
				case <-t.C:
					if err := p.Compact(gctx); err != nil && !errors.Is(err, context.Canceled) {
						r.logger.Warn("replay compaction failed", logpkg.Err(err))
					}
				}
			}
		})
	}
	return g.Wait()
}

// Close releases the replay store. Call after Run has returned.
func (r *Runtime) Close() error {
	if r.replay == nil {
		return nil
	}
	return r.replay.Close()
}

// CheckHealth reports whether the dispatcher is still accepting events.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-r.engine.Done():
		return errors.New("dispatcher stopped")
	case <-r.engine.ShuttingDown():
		return engine.ErrShutdown
	default:
		return nil
	}
}

// Engine exposes the fan-out engine.
func (r *Runtime) Engine() *engine.Engine { return r.engine }

// Replay exposes the history window.
func (r *Runtime) Replay() replay.Store { return r.replay }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the process logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }
