// Package source produces synthetic chain events for geyserd. The fake
// generator emits a plausible slot lifecycle (interslot statuses, account
// writes, transactions, entries, block meta and block, then commitment
// promotions of older slots) so the server can run without a validator.
package source
