// Package serverrun exposes the Run entrypoint used by the CLI to start
// geyserd: the fan-out engine, the gRPC and HTTP servers and the optional
// fake event source, with signal handling and ordered shutdown.
//
// Example:
//
//	cfg, _ := serverrun.LoadConfig("geyserd.yaml")
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{Config: cfg, FakeSource: true})
package serverrun
