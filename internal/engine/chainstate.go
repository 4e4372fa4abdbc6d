package engine

import (
	"sync"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/message"
)

const (
	// blockhashes stay valid for this many blocks after the block they name
	maxProcessingAge = 150
	// block metadata retained while waiting for slot promotion
	chainMetaWindow = 512
)

// BlockRef is the latest block seen at one commitment level.
type BlockRef struct {
	Slot                 uint64
	Blockhash            string
	BlockHeight          uint64
	LastValidBlockHeight uint64
}

// ChainState answers unary chain queries. It is written by the dispatcher and
// read by any goroutine.
type ChainState struct {
	mu     sync.RWMutex
	metas  map[uint64]*message.BlockMetaInfo
	order  []uint64
	latest [3]BlockRef
	valid  map[string]uint64 // blockhash -> last valid block height
}

func newChainState() *ChainState {
	return &ChainState{
		metas: make(map[uint64]*message.BlockMetaInfo),
		valid: make(map[string]uint64),
	}
}

func (c *ChainState) observeBlockMeta(meta *message.BlockMetaInfo, t *commitment.Tracker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.metas[meta.Slot]; !ok {
		c.order = append(c.order, meta.Slot)
	}
	c.metas[meta.Slot] = meta
	if meta.BlockHeight != nil && meta.Blockhash != "" {
		c.valid[meta.Blockhash] = *meta.BlockHeight + maxProcessingAge
	}
	for l := commitment.Processed; l <= commitment.Finalized; l++ {
		if t.Open(meta.Slot, l) {
			c.promote(l, meta)
		}
	}
	c.prune()
}

func (c *ChainState) observeSlot(slot uint64, status message.SlotStatus) {
	lvl, ok := commitment.LevelOf(status)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[slot]
	if !ok {
		return
	}
	for l := commitment.Processed; l <= lvl; l++ {
		c.promote(l, meta)
	}
}

func (c *ChainState) promote(l commitment.Level, meta *message.BlockMetaInfo) {
	if meta.Slot < c.latest[l].Slot {
		return
	}
	ref := BlockRef{Slot: meta.Slot, Blockhash: meta.Blockhash}
	if meta.BlockHeight != nil {
		ref.BlockHeight = *meta.BlockHeight
		ref.LastValidBlockHeight = *meta.BlockHeight + maxProcessingAge
	}
	c.latest[l] = ref
}

func (c *ChainState) prune() {
	for len(c.order) > chainMetaWindow {
		delete(c.metas, c.order[0])
		c.order = c.order[1:]
	}
	floor := c.latest[commitment.Finalized].BlockHeight
	if floor == 0 || len(c.valid) <= chainMetaWindow {
		return
	}
	for h, last := range c.valid {
		if last < floor {
			delete(c.valid, h)
		}
	}
}

// Latest returns the newest block at level, if any.
func (c *ChainState) Latest(level commitment.Level) (BlockRef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref := c.latest[level]
	return ref, ref.Blockhash != ""
}

// IsBlockhashValid reports whether hash can still be used at level, together
// with the slot the answer was computed at.
func (c *ChainState) IsBlockhashValid(hash string, level commitment.Level) (bool, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref := c.latest[level]
	last, ok := c.valid[hash]
	return ok && ref.BlockHeight <= last, ref.Slot
}
