// Package runtime wires configuration, the replay window and the fan-out
// engine into a single geyserd process. Transports and the event source
// reach the engine through it.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default(), Logger: logger})
//	defer rt.Close()
//	go func() { _ = rt.Run(ctx) }()
//	_ = rt.CheckHealth(ctx)
package runtime
