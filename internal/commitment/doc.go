// Package commitment tracks slot status promotion and decides when a message
// tagged with a slot becomes deliverable at a requested commitment level.
//
// The Tracker is written by a single goroutine (the engine dispatcher).
// Level counters are atomics and may be read from any goroutine through
// Snapshot; per-slot state is guarded by a mutex so debug readers stay safe.
//
// Pending is the per-session holding area for matched messages whose gate is
// still closed. It is bounded; a session that overflows it is unserviceable.
package commitment
