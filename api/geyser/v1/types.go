package geyserv1

import (
	"time"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/filter"
	"github.com/rzbill/geyserd/internal/message"
)

// Filter and payload types are shared with the engine.
type (
	CommitmentLevel    = commitment.Level
	AccountsFilter     = filter.AccountsFilter
	AccountsFilterItem = filter.AccountsFilterItem
	Memcmp             = filter.Memcmp
	Lamports           = filter.Lamports
	SlotsFilter        = filter.SlotsFilter
	TransactionsFilter = filter.TransactionsFilter
	BlocksFilter       = filter.BlocksFilter
	BlocksMetaFilter   = filter.BlocksMetaFilter
	EntryFilter        = filter.EntryFilter
	DataSlice          = filter.DataSlice

	AccountInfo     = message.AccountInfo
	TransactionInfo = message.TransactionInfo
	SlotStatus      = message.SlotStatus

	SubscribeUpdateSlot      = message.SlotInfo
	SubscribeUpdateBlock     = message.BlockInfo
	SubscribeUpdateBlockMeta = message.BlockMetaInfo
	SubscribeUpdateEntry     = message.EntryInfo
)

const (
	CommitmentProcessed = commitment.Processed
	CommitmentConfirmed = commitment.Confirmed
	CommitmentFinalized = commitment.Finalized
)

// SubscribeRequest is one frame on the Subscribe stream. The first frame
// opens the subscription; every later frame carrying filters replaces it. A
// frame carrying only Ping is answered with a pong and changes nothing.
type SubscribeRequest struct {
	Accounts           map[string]*AccountsFilter     `msgpack:"accounts,omitempty"`
	Slots              map[string]*SlotsFilter        `msgpack:"slots,omitempty"`
	Transactions       map[string]*TransactionsFilter `msgpack:"transactions,omitempty"`
	TransactionsStatus map[string]*TransactionsFilter `msgpack:"transactions_status,omitempty"`
	Blocks             map[string]*BlocksFilter       `msgpack:"blocks,omitempty"`
	BlocksMeta         map[string]*BlocksMetaFilter   `msgpack:"blocks_meta,omitempty"`
	Entry              map[string]*EntryFilter        `msgpack:"entry,omitempty"`

	Commitment        *CommitmentLevel      `msgpack:"commitment,omitempty"`
	AccountsDataSlice []DataSlice           `msgpack:"accounts_data_slice,omitempty"`
	FromSlot          *uint64               `msgpack:"from_slot,omitempty"`
	Ping              *SubscribeRequestPing `msgpack:"ping,omitempty"`
}

type SubscribeRequestPing struct {
	ID int32 `msgpack:"id"`
}

// PingOnly reports whether the frame is a keepalive without subscription
// content.
func (r *SubscribeRequest) PingOnly() bool {
	return r.Ping != nil && r.FilterRequest().FilterCount() == 0 &&
		r.Commitment == nil && r.FromSlot == nil && len(r.AccountsDataSlice) == 0
}

// FilterRequest converts the frame to the engine's subscription request.
func (r *SubscribeRequest) FilterRequest() *filter.Request {
	req := &filter.Request{
		Accounts:           r.Accounts,
		Slots:              r.Slots,
		Transactions:       r.Transactions,
		TransactionsStatus: r.TransactionsStatus,
		Blocks:             r.Blocks,
		BlocksMeta:         r.BlocksMeta,
		Entry:              r.Entry,
		FromSlot:           r.FromSlot,
		AccountsDataSlice:  r.AccountsDataSlice,
	}
	if r.Commitment != nil {
		req.Commitment = *r.Commitment
	}
	return req
}

// SubscribeUpdate is one frame sent to the subscriber. Exactly one payload
// field is set.
type SubscribeUpdate struct {
	Filters   []string  `msgpack:"filters,omitempty"`
	CreatedAt time.Time `msgpack:"created_at"`

	Account           *SubscribeUpdateAccount           `msgpack:"account,omitempty"`
	Slot              *SubscribeUpdateSlot              `msgpack:"slot,omitempty"`
	Transaction       *SubscribeUpdateTransaction       `msgpack:"transaction,omitempty"`
	TransactionStatus *SubscribeUpdateTransactionStatus `msgpack:"transaction_status,omitempty"`
	Block             *SubscribeUpdateBlock             `msgpack:"block,omitempty"`
	BlockMeta         *SubscribeUpdateBlockMeta         `msgpack:"block_meta,omitempty"`
	Entry             *SubscribeUpdateEntry             `msgpack:"entry,omitempty"`
	Ping              *SubscribeUpdatePing              `msgpack:"ping,omitempty"`
	Pong              *SubscribeUpdatePong              `msgpack:"pong,omitempty"`
	Error             *SubscribeUpdateError             `msgpack:"error,omitempty"`
}

type SubscribeUpdateAccount struct {
	Account   *AccountInfo `msgpack:"account"`
	Slot      uint64       `msgpack:"slot"`
	IsStartup bool         `msgpack:"is_startup"`
}

type SubscribeUpdateTransaction struct {
	Transaction *TransactionInfo `msgpack:"transaction"`
	Slot        uint64           `msgpack:"slot"`
}

// SubscribeUpdateTransactionStatus is a transaction without its body.
type SubscribeUpdateTransactionStatus struct {
	Slot      uint64 `msgpack:"slot"`
	Signature []byte `msgpack:"signature"`
	IsVote    bool   `msgpack:"is_vote"`
	Index     uint64 `msgpack:"index"`
	Err       string `msgpack:"err,omitempty"`
}

type SubscribeUpdatePing struct{}

type SubscribeUpdatePong struct {
	ID int32 `msgpack:"id"`
}

// SubscribeUpdateError reports a request frame that was rejected; the
// stream and the previous subscription stay in place.
type SubscribeUpdateError struct {
	Message string `msgpack:"message"`
}

type PingRequest struct {
	Count int32 `msgpack:"count"`
}

type PongResponse struct {
	Count int32 `msgpack:"count"`
}

type GetLatestBlockhashRequest struct {
	Commitment *CommitmentLevel `msgpack:"commitment,omitempty"`
}

type GetLatestBlockhashResponse struct {
	Slot                 uint64 `msgpack:"slot"`
	Blockhash            string `msgpack:"blockhash"`
	LastValidBlockHeight uint64 `msgpack:"last_valid_block_height"`
}

type GetBlockHeightRequest struct {
	Commitment *CommitmentLevel `msgpack:"commitment,omitempty"`
}

type GetBlockHeightResponse struct {
	BlockHeight uint64 `msgpack:"block_height"`
}

type GetSlotRequest struct {
	Commitment *CommitmentLevel `msgpack:"commitment,omitempty"`
}

type GetSlotResponse struct {
	Slot uint64 `msgpack:"slot"`
}

type IsBlockhashValidRequest struct {
	Blockhash  string           `msgpack:"blockhash"`
	Commitment *CommitmentLevel `msgpack:"commitment,omitempty"`
}

type IsBlockhashValidResponse struct {
	Slot  uint64 `msgpack:"slot"`
	Valid bool   `msgpack:"valid"`
}

type GetVersionRequest struct{}

type GetVersionResponse struct {
	Version string `msgpack:"version"`
}

// LevelOrDefault returns *l, or processed when l is nil.
func LevelOrDefault(l *CommitmentLevel) CommitmentLevel {
	if l == nil {
		return CommitmentProcessed
	}
	return *l
}

// Level returns a pointer to l, for optional request fields.
func Level(l CommitmentLevel) *CommitmentLevel { return &l }
