// Package id provides the 96-bit sortable identifier assigned to subscriber
// sessions.
//
// # Format
//
// [6 bytes ms timestamp][6 bytes sequence], big-endian, rendered as 20
// lowercase Crockford base32 characters so the string form sorts like the
// bytes. Session listings ordered by id are therefore ordered by connect time.
//
// # Monotonicity
//
// The Generator pins to the last seen millisecond when the clock regresses
// and waits for the next millisecond when the sequence is exhausted.
//
// Usage
//
//	g := id.NewGenerator()
//	sid := g.Next().String()
package id
