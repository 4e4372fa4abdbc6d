// Package engine is the filter-matching fan-out core.
//
// A single dispatcher goroutine (Engine.Run) owns the ingest queue. For every
// message it assigns a sequence number, advances the commitment tracker and
// chain state, appends to the replay window, and offers the message to every
// live session: match against the session's filter set, gate on the session's
// commitment level, then enqueue without blocking. A session whose queue or
// pending buffer is full is evicted; nothing a session does can stall the
// dispatcher.
//
// Subscription updates are control operations executed by the same goroutine,
// so each update lands between two messages and replay plus live delivery are
// seamless. Each session is drained by its own Serve loop into a Sink
// supplied by the transport.
//
// Shutdown is a broadcast: a closed channel observed by the dispatcher at the
// ingest pull and by every Serve loop, which flushes for a bounded grace
// period and then returns ErrShutdown.
package engine
