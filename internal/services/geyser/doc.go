// Package geysersvc implements the Geyser facade on top of the fan-out
// engine: the subscribe loop (request frames in, updates out) and the unary
// chain-state queries consumed by the gRPC and HTTP transports.
//
// Example:
//
//	svc := geysersvc.NewWithLogger(rt, logger)
//	// src yields decoded request frames, sink receives engine items
//	err := svc.Subscribe(ctx, "10.0.0.7:51234", src, sink)
//	slot := svc.GetSlot(commitment.Confirmed)
package geysersvc
