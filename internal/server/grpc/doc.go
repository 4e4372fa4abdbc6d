// Package grpcserver hosts the geyser.v1.Geyser gRPC service and the
// standard gRPC health service, delegating to the shared geyser service
// layer. Listener setup, TLS, keepalive, compression, x-token auth and the
// unary concurrency limit are all driven by config.GRPCConfig.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s, _ := grpcserver.New(rt)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx)
package grpcserver
