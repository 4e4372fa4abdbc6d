// Package pebblestore is a thin wrapper around Pebble with an fsync policy,
// an in-memory mode, batches, range deletes and minimal metrics hooks.
//
// The replay window uses it as a scratch store:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "/var/lib/geyserd/replay",
//	    Scratch: true,
//	    Fsync:   pebblestore.FsyncModeNever,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	b := db.NewBatch()
//	_ = b.Set(key, value, nil)
//	_ = db.CommitBatch(ctx, b)
//	b.Close()
//
//	_ = db.DeleteRange(lo, hi)
package pebblestore
