package grpcserver

import (
	"context"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	geyserv1 "github.com/rzbill/geyserd/api/geyser/v1"
)

// WatchHealth flips the health status to NOT_SERVING once the runtime stops
// accepting events. It returns when that happens or ctx ends.
func (s *Server) WatchHealth(ctx context.Context) {
	eng := s.rt.Engine()
	select {
	case <-ctx.Done():
		return
	case <-eng.ShuttingDown():
	case <-eng.Done():
	}
	s.logger.Info("marking grpc health not serving")
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(geyserv1.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}
