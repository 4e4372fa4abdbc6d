package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/geyserd/internal/runtime"
	"github.com/rzbill/geyserd/internal/server/http/controllers"
	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

// Server serves health, metrics and debug endpoints.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New builds a server with its own geyser service.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	return NewWithService(rt, geysersvc.New(rt), logger)
}

// NewWithService builds a server sharing svc with the gRPC transport.
func NewWithService(rt *runtime.Runtime, svc *geysersvc.Service, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt, svc).RegisterAllRoutes(mux)
	return &Server{
		rt:     rt,
		srv:    &http.Server{Handler: cors(mux), ReadHeaderTimeout: 10 * time.Second},
		logger: logger.With(logpkg.Component("http")),
	}
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close stops accepting connections.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
