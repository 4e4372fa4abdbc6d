// Package httpserver serves geyserd's operational HTTP surface: health,
// Prometheus metrics, chain-state lookups, the connected-clients debug view
// and an SSE slot tail.
//
// Example:
//
//	s := httpserver.NewWithService(rt, svc, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, "127.0.0.1:8999")
package httpserver
