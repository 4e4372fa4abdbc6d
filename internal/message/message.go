// Package message defines the immutable event records flowing from the ingest
// boundary through the dispatcher to every subscriber session.
//
// A Message is a tagged union: Kind selects which one of the payload pointers
// is set. Messages are shared by pointer across session queues and the replay
// window and must never be mutated after Engine.Ingest.
package message

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Kind tags the payload carried by a Message.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindSlot
	KindAccount
	KindTransaction
	KindBlock
	KindBlockMeta
	KindEntry
)

func (k Kind) String() string {
	switch k {
	case KindSlot:
		return "slot"
	case KindAccount:
		return "account"
	case KindTransaction:
		return "transaction"
	case KindBlock:
		return "block"
	case KindBlockMeta:
		return "block_meta"
	case KindEntry:
		return "entry"
	default:
		return "unknown"
	}
}

// Kinds lists every concrete kind, in wire order.
var Kinds = []Kind{KindSlot, KindAccount, KindTransaction, KindBlock, KindBlockMeta, KindEntry}

// Message is one ingest event.
type Message struct {
	// Seq is assigned by the dispatcher in arrival order; zero until ingested.
	Seq       uint64    `msgpack:"seq"`
	Slot      uint64    `msgpack:"slot"`
	Kind      Kind      `msgpack:"kind"`
	CreatedAt time.Time `msgpack:"created_at"`

	SlotInfo    *SlotInfo        `msgpack:"slot_info,omitempty"`
	Account     *AccountInfo     `msgpack:"account,omitempty"`
	Transaction *TransactionInfo `msgpack:"transaction,omitempty"`
	Block       *BlockInfo       `msgpack:"block,omitempty"`
	BlockMeta   *BlockMetaInfo   `msgpack:"block_meta,omitempty"`
	Entry       *EntryInfo       `msgpack:"entry,omitempty"`
}

// Validate checks that exactly the payload selected by Kind is present and
// that its slot agrees with the envelope.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("message: nil")
	}
	set := 0
	for _, p := range []bool{m.SlotInfo != nil, m.Account != nil, m.Transaction != nil, m.Block != nil, m.BlockMeta != nil, m.Entry != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("message: expected exactly one payload, got %d", set)
	}
	var ok bool
	switch m.Kind {
	case KindSlot:
		ok = m.SlotInfo != nil && m.SlotInfo.Slot == m.Slot
	case KindAccount:
		ok = m.Account != nil
	case KindTransaction:
		ok = m.Transaction != nil
	case KindBlock:
		ok = m.Block != nil && m.Block.Slot == m.Slot
	case KindBlockMeta:
		ok = m.BlockMeta != nil && m.BlockMeta.Slot == m.Slot
	case KindEntry:
		ok = m.Entry != nil && m.Entry.Slot == m.Slot
	}
	if !ok {
		return fmt.Errorf("message: kind %s does not match payload", m.Kind)
	}
	return nil
}

// SlotStatus is the commitment-relevant status carried by slot updates.
type SlotStatus uint8

const (
	SlotProcessed SlotStatus = iota
	SlotConfirmed
	SlotFinalized
	SlotFirstShredReceived
	SlotCompleted
	SlotCreatedBank
	SlotDead
)

func (s SlotStatus) String() string {
	switch s {
	case SlotProcessed:
		return "processed"
	case SlotConfirmed:
		return "confirmed"
	case SlotFinalized:
		return "finalized"
	case SlotFirstShredReceived:
		return "first_shred_received"
	case SlotCompleted:
		return "completed"
	case SlotCreatedBank:
		return "created_bank"
	case SlotDead:
		return "dead"
	default:
		return fmt.Sprintf("slot_status(%d)", uint8(s))
	}
}

// IsInterslot reports statuses emitted while a slot is still being built.
func (s SlotStatus) IsInterslot() bool {
	return s == SlotFirstShredReceived || s == SlotCompleted || s == SlotCreatedBank
}

// SlotInfo is a slot status transition.
type SlotInfo struct {
	Slot      uint64     `msgpack:"slot"`
	Parent    *uint64    `msgpack:"parent,omitempty"`
	Status    SlotStatus `msgpack:"status"`
	DeadError string     `msgpack:"dead_error,omitempty"`
}

// AccountInfo is a single account write.
type AccountInfo struct {
	Pubkey       solana.PublicKey  `msgpack:"pubkey"`
	Owner        solana.PublicKey  `msgpack:"owner"`
	Lamports     uint64            `msgpack:"lamports"`
	Executable   bool              `msgpack:"executable"`
	RentEpoch    uint64            `msgpack:"rent_epoch"`
	Data         []byte            `msgpack:"data,omitempty"`
	WriteVersion uint64            `msgpack:"write_version"`
	TxnSignature *solana.Signature `msgpack:"txn_signature,omitempty"`
	IsStartup    bool              `msgpack:"is_startup"`
}

// TransactionInfo is an executed transaction.
type TransactionInfo struct {
	Signature solana.Signature `msgpack:"signature"`
	IsVote    bool             `msgpack:"is_vote"`
	Index     uint64           `msgpack:"index"`
	// Err is the execution error; empty for successful transactions.
	Err         string             `msgpack:"err,omitempty"`
	AccountKeys []solana.PublicKey `msgpack:"account_keys,omitempty"`
	// Raw is the opaque encoded transaction forwarded untouched.
	Raw []byte `msgpack:"raw,omitempty"`
}

// Failed reports whether the transaction carried an execution error.
func (t *TransactionInfo) Failed() bool { return t.Err != "" }

// HasAccount reports whether key is referenced by the transaction.
func (t *TransactionInfo) HasAccount(key solana.PublicKey) bool {
	for _, k := range t.AccountKeys {
		if k == key {
			return true
		}
	}
	return false
}

// BlockMetaInfo is the block header without contents.
type BlockMetaInfo struct {
	Slot                     uint64  `msgpack:"slot"`
	Blockhash                string  `msgpack:"blockhash,omitempty"`
	ParentSlot               uint64  `msgpack:"parent_slot"`
	ParentBlockhash          string  `msgpack:"parent_blockhash,omitempty"`
	BlockHeight              *uint64 `msgpack:"block_height,omitempty"`
	BlockTime                *int64  `msgpack:"block_time,omitempty"`
	ExecutedTransactionCount uint64  `msgpack:"executed_transaction_count"`
	EntriesCount             uint64  `msgpack:"entries_count"`
}

// BlockInfo is a full block.
type BlockInfo struct {
	Slot                     uint64             `msgpack:"slot"`
	Blockhash                string             `msgpack:"blockhash,omitempty"`
	ParentSlot               uint64             `msgpack:"parent_slot"`
	ParentBlockhash          string             `msgpack:"parent_blockhash,omitempty"`
	BlockHeight              *uint64            `msgpack:"block_height,omitempty"`
	BlockTime                *int64             `msgpack:"block_time,omitempty"`
	ExecutedTransactionCount uint64             `msgpack:"executed_transaction_count"`
	UpdatedAccountCount      uint64             `msgpack:"updated_account_count"`
	EntriesCount             uint64             `msgpack:"entries_count"`
	Transactions             []*TransactionInfo `msgpack:"transactions,omitempty"`
	Accounts                 []*AccountInfo     `msgpack:"accounts,omitempty"`
	Entries                  []*EntryInfo       `msgpack:"entries,omitempty"`
}

// EntryInfo is a ledger entry.
type EntryInfo struct {
	Slot                     uint64 `msgpack:"slot"`
	Index                    uint64 `msgpack:"index"`
	NumHashes                uint64 `msgpack:"num_hashes"`
	Hash                     []byte `msgpack:"hash,omitempty"`
	ExecutedTransactionCount uint64 `msgpack:"executed_transaction_count"`
	StartingTransactionIndex uint64 `msgpack:"starting_transaction_index"`
}
