// Package filter validates, compiles and stores the per-session filter sets
// that decide which messages a subscriber receives.
//
// A Request names filters per message kind. Criteria inside one filter are
// AND-combined, filters of one kind are OR-combined, and a kind with no
// filters is never delivered. An empty filter matches everything of its kind.
//
// Compiled sets are immutable; Registry.Upsert swaps a whole set at once so a
// failed update never leaves a session with a partial filter set.
package filter
