package replay

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/geyserd/internal/message"
	pebblestore "github.com/rzbill/geyserd/internal/storage/pebble"
)

// Keyspace: r/e/{seq_be8}. Sequence numbers are local to the store.
var entryPrefix = []byte("r/e/")

func entryKey(seq uint64) []byte {
	k := make([]byte, 0, len(entryPrefix)+8)
	k = append(k, entryPrefix...)
	return binary.BigEndian.AppendUint64(k, seq)
}

// PebbleOptions configures OpenPebble.
type PebbleOptions struct {
	StoredSlots uint64
	MaxMessages int
	// DataDir is wiped at open. Empty means an in-memory VFS.
	DataDir string
	Fsync   pebblestore.FsyncMode
}

// Pebble is a Store backed by a scratch Pebble database. Messages are
// msgpack-encoded, so Range hands out decoded copies rather than the
// pointers given to Append.
type Pebble struct {
	mu  sync.RWMutex
	db  *pebblestore.DB
	win window
	seq uint64
}

// OpenPebble opens a fresh store; previous contents of DataDir are discarded.
func OpenPebble(opts PebbleOptions) (*Pebble, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:  opts.DataDir,
		InMemory: opts.DataDir == "",
		Scratch:  true,
		Fsync:    opts.Fsync,
		Metrics:  storeMetrics{},
	})
	if err != nil {
		return nil, fmt.Errorf("replay: open pebble: %w", err)
	}
	return &Pebble{db: db, win: newWindow(opts.StoredSlots, opts.MaxMessages)}, nil
}

func (p *Pebble) Append(m *message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.win.enabled() {
		return nil
	}
	val, err := message.Encode(m)
	if err != nil {
		return fmt.Errorf("replay: encode: %w", err)
	}
	p.seq++
	if err := p.db.Set(entryKey(p.seq), val); err != nil {
		return fmt.Errorf("replay: append: %w", err)
	}
	dropped := p.win.push(entry{seq: p.seq, slot: m.Slot})
	if len(dropped) == 0 {
		return nil
	}
	lo := entryKey(dropped[0].seq)
	hi := entryKey(dropped[len(dropped)-1].seq + 1)
	if err := p.db.DeleteRange(lo, hi); err != nil {
		return fmt.Errorf("replay: trim: %w", err)
	}
	return nil
}

func (p *Pebble) Range(fromSlot uint64, fn func(*message.Message) bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.win.check(fromSlot); err != nil {
		return err
	}
	front := p.win.entries[p.win.head]
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: entryKey(front.seq),
		UpperBound: entryKey(p.seq + 1),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	for ok := iter.First(); ok; ok = iter.Next() {
		m, err := message.Decode(iter.Value())
		if err != nil {
			return fmt.Errorf("replay: decode: %w", err)
		}
		if m.Slot < fromSlot {
			continue
		}
		if !fn(m) {
			return nil
		}
	}
	return iter.Error()
}

func (p *Pebble) FirstSlot() (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.win.firstSlot()
}

func (p *Pebble) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.win.len()
}

// Compact asks Pebble to reclaim space left behind by trimmed ranges.
func (p *Pebble) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	hi := entryKey(p.seq + 1)
	p.mu.RUnlock()
	return p.db.CompactRange(entryPrefix, hi)
}

func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db.Close()
}
