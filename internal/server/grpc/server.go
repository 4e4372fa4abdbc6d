package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	_ "google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"

	geyserv1 "github.com/rzbill/geyserd/api/geyser/v1"
	cfgpkg "github.com/rzbill/geyserd/internal/config"
	"github.com/rzbill/geyserd/internal/runtime"
	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

// stopGrace bounds GracefulStop before open streams are cut.
const stopGrace = 5 * time.Second

// Server owns the gRPC server instance and its listeners.
type Server struct {
	rt     *runtime.Runtime
	svc    *geysersvc.Service
	cfg    cfgpkg.GRPCConfig
	logger logpkg.Logger
	grpc   *grpc.Server
	health *health.Server
}

// New builds a server from the runtime's gRPC config using a fresh service.
func New(rt *runtime.Runtime) (*Server, error) {
	return NewWithService(rt, geysersvc.New(rt), rt.Logger())
}

// NewWithService constructs the server around a shared service. Extra
// options are appended after the ones derived from config.
func NewWithService(rt *runtime.Runtime, svc *geysersvc.Service, logger logpkg.Logger, extra ...grpc.ServerOption) (*Server, error) {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	logger = logger.With(logpkg.Component("grpc"))
	cfg := rt.Config().GRPC
	opts, err := ServerOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	s := &Server{
		rt:     rt,
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		grpc:   grpc.NewServer(append(opts, extra...)...),
		health: health.NewServer(),
	}
	geyserv1.RegisterGeyserServer(s.grpc, &geyserSvc{svc: svc, gzip: gzipEnabled(cfg), logger: logger})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(geyserv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, nil
}

// ServerOptions translates the gRPC config into server options.
func ServerOptions(cfg cfgpkg.GRPCConfig, logger logpkg.Logger) ([]grpc.ServerOption, error) {
	var opts []grpc.ServerOption
	if cfg.TLSCertFile != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("grpc: tls: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}
	if cfg.MaxDecodingMessageSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.MaxDecodingMessageSize))
	}
	if cfg.Keepalive.Time > 0 {
		opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.Keepalive.Time.D(),
			Timeout: cfg.Keepalive.Timeout.D(),
		}))
	}
	unary := []grpc.UnaryServerInterceptor{metricsUnary, tokenUnary(cfg.XToken)}
	unary = append(unary, unaryGate(cfg.UnaryDisabled, cfg.UnaryConcurrencyLimit))
	opts = append(opts,
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(metricsStream, tokenStream(cfg.XToken)),
	)
	logger.Debug("grpc options",
		logpkg.Bool("tls", cfg.TLSCertFile != ""),
		logpkg.Bool("x_token", cfg.XToken != ""),
		logpkg.Bool("unary_disabled", cfg.UnaryDisabled),
		logpkg.Int64("unary_concurrency_limit", cfg.UnaryConcurrencyLimit))
	return opts, nil
}

func gzipEnabled(cfg cfgpkg.GRPCConfig) bool {
	for _, c := range cfg.Compression {
		if c == "gzip" {
			return true
		}
	}
	return false
}

// ListenAndServe binds the TCP address and, when configured, the unix
// socket, then serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listeners, err := s.listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, listeners...)
}

// listen opens every configured listener. On failure the ones already
// opened are closed again.
func (s *Server) listen() (listeners []net.Listener, err error) {
	defer func() {
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			listeners = nil
		}
	}()
	if s.cfg.Address != "" {
		l, err := net.Listen("tcp", s.cfg.Address)
		if err != nil {
			return listeners, err
		}
		listeners = append(listeners, l)
	}
	if p := s.cfg.UnixSocketPath; p != "" {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return listeners, fmt.Errorf("grpc: stale socket %s: %w", p, err)
		}
		l, err := net.Listen("unix", p)
		if err != nil {
			return listeners, err
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}

// Serve serves on the given listeners until ctx is done.
func (s *Server) Serve(ctx context.Context, listeners ...net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		s.logger.Info("grpc listening", logpkg.Str("network", l.Addr().Network()), logpkg.Str("addr", l.Addr().String()))
		g.Go(func() error {
			if err := s.grpc.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.Close()
		return nil
	})
	return g.Wait()
}

// Close marks the server not serving and stops it, cutting streams that
// outlive the grace period.
func (s *Server) Close() {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopGrace):
		s.logger.Warn("graceful stop timed out")
		s.grpc.Stop()
	}
}
