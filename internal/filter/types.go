package filter

import "github.com/rzbill/geyserd/internal/commitment"

// Request is a full subscription: named filters per kind plus delivery options.
type Request struct {
	Accounts           map[string]*AccountsFilter     `msgpack:"accounts,omitempty"`
	Slots              map[string]*SlotsFilter        `msgpack:"slots,omitempty"`
	Transactions       map[string]*TransactionsFilter `msgpack:"transactions,omitempty"`
	TransactionsStatus map[string]*TransactionsFilter `msgpack:"transactions_status,omitempty"`
	Blocks             map[string]*BlocksFilter       `msgpack:"blocks,omitempty"`
	BlocksMeta         map[string]*BlocksMetaFilter   `msgpack:"blocks_meta,omitempty"`
	Entry              map[string]*EntryFilter        `msgpack:"entry,omitempty"`

	Commitment        commitment.Level `msgpack:"commitment"`
	FromSlot          *uint64          `msgpack:"from_slot,omitempty"`
	AccountsDataSlice []DataSlice      `msgpack:"accounts_data_slice,omitempty"`
}

// AccountsFilter selects account writes.
type AccountsFilter struct {
	Account              []string             `msgpack:"account,omitempty"`
	Owner                []string             `msgpack:"owner,omitempty"`
	Filters              []AccountsFilterItem `msgpack:"filters,omitempty"`
	NonemptyTxnSignature *bool                `msgpack:"nonempty_txn_signature,omitempty"`
	// Expr is an optional CEL predicate over the account.
	Expr string `msgpack:"expr,omitempty"`
}

// AccountsFilterItem is one byte-level sub-filter; exactly one field is set.
type AccountsFilterItem struct {
	Memcmp            *Memcmp   `msgpack:"memcmp,omitempty"`
	Datasize          *uint64   `msgpack:"datasize,omitempty"`
	TokenAccountState *bool     `msgpack:"token_account_state,omitempty"`
	Lamports          *Lamports `msgpack:"lamports,omitempty"`
}

// Memcmp compares account data at Offset; exactly one encoding is set.
type Memcmp struct {
	Offset uint64 `msgpack:"offset"`
	Bytes  []byte `msgpack:"bytes,omitempty"`
	Base58 string `msgpack:"base58,omitempty"`
	Base64 string `msgpack:"base64,omitempty"`
}

// Lamports compares the account balance; exactly one field is set.
type Lamports struct {
	Eq *uint64 `msgpack:"eq,omitempty"`
	Ne *uint64 `msgpack:"ne,omitempty"`
	Lt *uint64 `msgpack:"lt,omitempty"`
	Gt *uint64 `msgpack:"gt,omitempty"`
}

// SlotsFilter selects slot status updates.
type SlotsFilter struct {
	FilterByCommitment *bool `msgpack:"filter_by_commitment,omitempty"`
	InterslotUpdates   *bool `msgpack:"interslot_updates,omitempty"`
}

// TransactionsFilter selects transactions; also used for transaction statuses.
type TransactionsFilter struct {
	Vote            *bool    `msgpack:"vote,omitempty"`
	Failed          *bool    `msgpack:"failed,omitempty"`
	Signature       string   `msgpack:"signature,omitempty"`
	AccountInclude  []string `msgpack:"account_include,omitempty"`
	AccountExclude  []string `msgpack:"account_exclude,omitempty"`
	AccountRequired []string `msgpack:"account_required,omitempty"`
	Expr            string   `msgpack:"expr,omitempty"`
}

// BlocksFilter selects blocks and trims their contents.
type BlocksFilter struct {
	AccountInclude      []string `msgpack:"account_include,omitempty"`
	IncludeTransactions *bool    `msgpack:"include_transactions,omitempty"`
	IncludeAccounts     *bool    `msgpack:"include_accounts,omitempty"`
	IncludeEntries      *bool    `msgpack:"include_entries,omitempty"`
}

type BlocksMetaFilter struct{}

type EntryFilter struct{}

// DataSlice selects a byte range of account data for delivery.
type DataSlice struct {
	Offset uint64 `msgpack:"offset"`
	Length uint64 `msgpack:"length"`
}

// FilterCount returns the number of named filters across every kind.
func (r *Request) FilterCount() int {
	return len(r.Accounts) + len(r.Slots) + len(r.Transactions) + len(r.TransactionsStatus) +
		len(r.Blocks) + len(r.BlocksMeta) + len(r.Entry)
}

// Names returns every filter name across kinds. A name used by two kinds is
// listed twice.
func (r *Request) Names() []string {
	out := make([]string, 0, r.FilterCount())
	for k := range r.Accounts {
		out = append(out, k)
	}
	for k := range r.Slots {
		out = append(out, k)
	}
	for k := range r.Transactions {
		out = append(out, k)
	}
	for k := range r.TransactionsStatus {
		out = append(out, k)
	}
	for k := range r.Blocks {
		out = append(out, k)
	}
	for k := range r.BlocksMeta {
		out = append(out, k)
	}
	for k := range r.Entry {
		out = append(out, k)
	}
	return out
}
