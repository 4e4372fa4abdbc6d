package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rzbill/geyserd/internal/engine"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/replay"
	geysersvc "github.com/rzbill/geyserd/internal/services/geyser"
)

// toStatus maps domain errors onto gRPC statuses. Status errors pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, filter.ErrFilterValidation), errors.Is(err, replay.ErrReplayUnavailable):
		code = codes.InvalidArgument
	case errors.Is(err, engine.ErrSessionOverflow), errors.Is(err, engine.ErrCommitmentOverflow):
		code = codes.ResourceExhausted
	case errors.Is(err, engine.ErrShutdown):
		code = codes.Unavailable
	case errors.Is(err, engine.ErrSessionClosed), errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, geysersvc.ErrNoBlock):
		code = codes.NotFound
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
