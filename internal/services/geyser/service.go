package geysersvc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	goruntime "runtime"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/engine"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/runtime"
	logpkg "github.com/rzbill/geyserd/pkg/log"
)

// ErrNoBlock is returned by block queries before any block metadata reached
// the requested commitment level.
var ErrNoBlock = errors.New("no block observed at requested commitment")

// Frame is one decoded request frame. Request is nil for a keepalive-only
// frame.
type Frame struct {
	Request *filter.Request
	Ping    *int32
}

// FrameSource yields request frames until io.EOF (client half-close) or a
// transport error.
type FrameSource interface {
	Recv() (Frame, error)
}

// Service exposes subscribe and chain queries over one runtime.
type Service struct {
	rt     *runtime.Runtime
	eng    *engine.Engine
	logger logpkg.Logger
}

// New returns a Service using the runtime's logger.
func New(rt *runtime.Runtime) *Service {
	return NewWithLogger(rt, rt.Logger().With(logpkg.Component("geyser")))
}

// NewWithLogger returns a Service using the provided logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("geyser"))
	}
	return &Service{rt: rt, eng: rt.Engine(), logger: logger}
}

// Subscribe attaches a session and streams its items into sink until the
// client goes away, the session is terminated, or shutdown completes.
//
// The first request frame must compile; any error closes the stream. Later
// frames that fail validation are reported with an error frame and the
// previous subscription stays in force. Replay and overflow errors always
// close the stream.
func (s *Service) Subscribe(ctx context.Context, remote string, src FrameSource, sink engine.Sink) error {
	sess := s.eng.Open(ctx, engine.WithRemote(remote))
	defer s.eng.Close(sess)
	log := s.logger.With(logpkg.SessionID(sess.ID()), logpkg.Str("remote", remote))
	log.Info("subscriber connected")

	serveCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go s.readFrames(serveCtx, sess, src, cancel, log)

	err := sess.Serve(serveCtx, sink)
	if cause := context.Cause(serveCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		err = cause
	}
	log.Info("subscriber disconnected", logpkg.Err(err))
	return err
}

func (s *Service) readFrames(ctx context.Context, sess *engine.Session, src FrameSource, fail context.CancelCauseFunc, log logpkg.Logger) {
	subscribed := false
	for {
		f, err := src.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("client closed send side")
				return
			}
			fail(err)
			return
		}
		if f.Ping != nil {
			sess.Pong(*f.Ping)
		}
		if f.Request == nil {
			continue
		}
		if err := s.eng.Update(ctx, sess, f.Request); err != nil {
			if subscribed && errors.Is(err, filter.ErrFilterValidation) {
				log.Debug("subscription update rejected", logpkg.Err(err))
				sess.Reject(err)
				continue
			}
			log.Warn("subscription failed", logpkg.Err(err))
			fail(err)
			return
		}
		subscribed = true
	}
}

// Ping echoes count.
func (s *Service) Ping(count int32) int32 { return count }

// GetSlot returns the highest slot observed at level.
func (s *Service) GetSlot(level commitment.Level) uint64 {
	return s.eng.Tracker().Snapshot().Get(level)
}

// GetBlockHeight returns the height of the latest block at level.
func (s *Service) GetBlockHeight(level commitment.Level) (uint64, error) {
	ref, ok := s.eng.Chain().Latest(level)
	if !ok {
		return 0, ErrNoBlock
	}
	return ref.BlockHeight, nil
}

// GetLatestBlockhash returns the latest block at level.
func (s *Service) GetLatestBlockhash(level commitment.Level) (engine.BlockRef, error) {
	ref, ok := s.eng.Chain().Latest(level)
	if !ok {
		return engine.BlockRef{}, ErrNoBlock
	}
	return ref, nil
}

// IsBlockhashValid reports whether hash is still usable at level and the
// slot the answer refers to.
func (s *Service) IsBlockhashValid(hash string, level commitment.Level) (bool, uint64) {
	return s.eng.Chain().IsBlockhashValid(hash, level)
}

// VersionInfo is returned by GetVersion as JSON.
type VersionInfo struct {
	Package   string `json:"package"`
	Version   string `json:"version"`
	GoVersion string `json:"go"`
}

// Version returns the build version as a JSON document.
func (s *Service) Version() string {
	b, _ := json.Marshal(VersionInfo{Package: "geyserd", Version: runtime.Version, GoVersion: goruntime.Version()})
	return string(b)
}

// Sessions lists connected subscribers for the debug endpoint.
func (s *Service) Sessions() []engine.SessionInfo { return s.eng.Sessions() }

// Health reports whether the runtime accepts events.
func (s *Service) Health(ctx context.Context) error { return s.rt.CheckHealth(ctx) }
