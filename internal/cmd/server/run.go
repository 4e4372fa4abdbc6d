package serverrun

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/geyserd/internal/config"
	"github.com/rzbill/geyserd/internal/runtime"
	grpcserver "github.com/rzbill/geyserd/internal/server/grpc"
	httpserver "github.com/rzbill/geyserd/internal/server/http"
	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
	"github.com/rzbill/geyserd/internal/source"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

type Options struct {
	Config cfgpkg.Config
	// FakeSource forces the synthetic event generator on.
	FakeSource bool
	// Logger overrides the process logger built from Config.Log.
	Logger logpkg.Logger
	// Ready, if set, receives the gRPC server once it is built.
	Ready func(*grpcserver.Server)
}

// LoadConfig reads path (may be empty) and overlays GEYSER_* variables.
func LoadConfig(path string) (cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)
	return cfg, nil
}

// Run starts the engine, the gRPC and HTTP servers and, when enabled, the
// fake source. It blocks until ctx is cancelled, a signal arrives or the
// engine faults. An ingest overflow is returned as an error.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		l, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			lvl := logpkg.InfoLevel
			if parsed, e := logpkg.ParseLevel(cfg.Log.Level); e == nil {
				lvl = parsed
			}
			l = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
		}
		logger = l
		// Pebble and grpc log through the stdlib logger.
		logpkg.RedirectStdLog(logger)
	}

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	fake := opts.FakeSource || cfg.Source.Fake
	logger.Info("starting geyserd",
		logpkg.Str("version", runtime.Version),
		logpkg.Str("grpc", cfg.GRPC.Address),
		logpkg.Str("unix", cfg.GRPC.UnixSocketPath),
		logpkg.Str("http", cfg.HTTP.Address),
		logpkg.Str("replay", cfg.Replay.Backend),
		logpkg.Bool("fake_source", fake),
	)

	svc := geysersvc.NewWithLogger(rt, logger)
	gsrv, err := grpcserver.NewWithService(rt, svc, logger)
	if err != nil {
		return err
	}
	if opts.Ready != nil {
		opts.Ready(gsrv)
	}

	g, gctx := errgroup.WithContext(sctx)
	// serveCtx ends with the dispatcher so transports never outlive it.
	serveCtx, cancelServe := context.WithCancel(gctx)
	defer cancelServe()

	g.Go(func() error {
		defer cancelServe()
		return rt.Run(gctx)
	})
	g.Go(func() error {
		gsrv.WatchHealth(serveCtx)
		return nil
	})
	g.Go(func() error { return gsrv.ListenAndServe(serveCtx) })
	if cfg.HTTP.Address != "" {
		hsrv := httpserver.NewWithService(rt, svc, logger)
		g.Go(func() error { return hsrv.ListenAndServe(serveCtx, cfg.HTTP.Address) })
	}
	if fake {
		gen := source.NewFake(rt.Engine(), source.Config{
			SlotInterval: cfg.Source.SlotInterval.D(),
			Accounts:     cfg.Source.Accounts,
			Transactions: cfg.Source.Transactions,
		}, logger)
		g.Go(func() error { return gen.Run(serveCtx) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("geyserd stopped", logpkg.Err(err))
		return err
	}
	logger.Info("geyserd stopped")
	return nil
}
