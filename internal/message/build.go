package message

import "time"

// The constructors below stamp CreatedAt and keep Slot/Kind consistent with
// the payload; producers should prefer them over struct literals.

func NewSlot(info *SlotInfo) *Message {
	return &Message{Slot: info.Slot, Kind: KindSlot, CreatedAt: time.Now(), SlotInfo: info}
}

func NewAccount(slot uint64, info *AccountInfo) *Message {
	return &Message{Slot: slot, Kind: KindAccount, CreatedAt: time.Now(), Account: info}
}

func NewTransaction(slot uint64, info *TransactionInfo) *Message {
	return &Message{Slot: slot, Kind: KindTransaction, CreatedAt: time.Now(), Transaction: info}
}

func NewBlock(info *BlockInfo) *Message {
	return &Message{Slot: info.Slot, Kind: KindBlock, CreatedAt: time.Now(), Block: info}
}

func NewBlockMeta(info *BlockMetaInfo) *Message {
	return &Message{Slot: info.Slot, Kind: KindBlockMeta, CreatedAt: time.Now(), BlockMeta: info}
}

func NewEntry(info *EntryInfo) *Message {
	return &Message{Slot: info.Slot, Kind: KindEntry, CreatedAt: time.Now(), Entry: info}
}

// WithBlock returns a shallow copy of m carrying block b. Used when a filter
// trims block contents for one subscriber; m itself is left untouched.
func (m *Message) WithBlock(b *BlockInfo) *Message {
	cp := *m
	cp.Block = b
	return &cp
}

// WithAccount returns a shallow copy of m carrying account a.
func (m *Message) WithAccount(a *AccountInfo) *Message {
	cp := *m
	cp.Account = a
	return &cp
}
