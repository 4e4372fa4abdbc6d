package grpcserver

import (
	"context"
	"crypto/subtle"
	"strings"

	"golang.org/x/sync/semaphore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	geyserv1 "github.com/rzbill/geyserd/api/geyser/v1"
)

// xTokenHeader carries the shared secret when x_token is configured.
const xTokenHeader = "x-token"

const healthPrefix = "/grpc.health.v1.Health/"

func checkToken(ctx context.Context, token, method string) error {
	if token == "" || strings.HasPrefix(method, healthPrefix) {
		return nil
	}
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get(xTokenHeader) {
		if subtle.ConstantTimeCompare([]byte(v), []byte(token)) == 1 {
			return nil
		}
	}
	return status.Error(codes.Unauthenticated, "missing or invalid x-token")
}

func tokenUnary(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := checkToken(ctx, token, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func tokenStream(token string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := checkToken(ss.Context(), token, info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// unaryGate disables or bounds the Geyser unary queries. Health checks are
// never gated.
func unaryGate(disabled bool, limit int64) grpc.UnaryServerInterceptor {
	var sem *semaphore.Weighted
	if limit > 0 {
		sem = semaphore.NewWeighted(limit)
	}
	prefix := "/" + geyserv1.ServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return handler(ctx, req)
		}
		if disabled {
			return nil, status.Error(codes.Unimplemented, "unary methods are disabled")
		}
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil, status.FromContextError(err).Err()
			}
			defer sem.Release(1)
		}
		return handler(ctx, req)
	}
}

func metricsUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	grpcRequests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	return resp, err
}

func metricsStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	grpcStreamsActive.Inc()
	defer grpcStreamsActive.Dec()
	err := handler(srv, ss)
	grpcRequests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
	return err
}
