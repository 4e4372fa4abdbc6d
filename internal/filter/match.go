package filter

import (
	"bytes"

	"github.com/rzbill/geyserd/internal/commitment"
	"github.com/rzbill/geyserd/internal/message"
)

// Match is one deliverable result of matching a message against a Set.
type Match struct {
	// Filters are the names of the filters that selected the message.
	Filters []string
	// Message is the original message, or a trimmed copy for blocks.
	Message *message.Message
	// Status marks a transaction selected by a transactions_status filter.
	Status bool
}

// Matches reports whether m is selected by at least one filter.
func (s *Set) Matches(m *message.Message) bool {
	return len(s.Match(m)) > 0
}

// Match evaluates m against every filter of its kind. It never mutates m.
// Blocks produce one result per matching filter since each filter trims the
// block differently; transactions may additionally produce a status result.
func (s *Set) Match(m *message.Message) []Match {
	if s == nil || m == nil {
		return nil
	}
	switch m.Kind {
	case message.KindSlot:
		return single(m, s.matchSlot(m.SlotInfo))
	case message.KindAccount:
		return single(m, s.matchAccount(m.Slot, m.Account))
	case message.KindTransaction:
		var out []Match
		if names := matchTransaction(s.transactions, m.Slot, m.Transaction); len(names) > 0 {
			out = append(out, Match{Filters: names, Message: m})
		}
		if names := matchTransaction(s.txStatus, m.Slot, m.Transaction); len(names) > 0 {
			out = append(out, Match{Filters: names, Message: m, Status: true})
		}
		return out
	case message.KindBlock:
		var out []Match
		for i := range s.blocks {
			b := &s.blocks[i]
			out = append(out, Match{Filters: []string{b.name}, Message: m.WithBlock(b.trim(m.Block))})
		}
		return out
	case message.KindBlockMeta:
		return single(m, s.blocksMeta)
	case message.KindEntry:
		return single(m, s.entry)
	}
	return nil
}

func single(m *message.Message, names []string) []Match {
	if len(names) == 0 {
		return nil
	}
	return []Match{{Filters: names, Message: m}}
}

func (s *Set) matchSlot(info *message.SlotInfo) []string {
	var names []string
	for _, f := range s.slots {
		if !f.interslotUpdates && info.Status.IsInterslot() {
			continue
		}
		if f.filterByCommitment {
			lvl, ok := commitment.LevelOf(info.Status)
			if info.Status != message.SlotDead && (!ok || lvl != s.commitment) {
				continue
			}
		}
		names = append(names, f.name)
	}
	return names
}

func (s *Set) matchAccount(slot uint64, a *message.AccountInfo) []string {
	var names []string
	for i := range s.accounts {
		if s.accounts[i].match(slot, a) {
			names = append(names, s.accounts[i].name)
		}
	}
	return names
}

func (f *accountsMatcher) match(slot uint64, a *message.AccountInfo) bool {
	if f.accounts != nil && !f.accounts.has(a.Pubkey) {
		return false
	}
	if f.owners != nil && !f.owners.has(a.Owner) {
		return false
	}
	if f.nonemptyTxnSignature != nil && *f.nonemptyTxnSignature != (a.TxnSignature != nil) {
		return false
	}
	for i := range f.items {
		if !f.items[i].match(a) {
			return false
		}
	}
	return f.expr.evalAccount(slot, a)
}

func (it *accountItem) match(a *message.AccountInfo) bool {
	switch it.kind {
	case itemMemcmp:
		size := uint64(len(a.Data))
		if it.offset > size || size-it.offset < uint64(len(it.bytes)) {
			return false
		}
		return bytes.Equal(a.Data[it.offset:it.offset+uint64(len(it.bytes))], it.bytes)
	case itemDatasize:
		return uint64(len(a.Data)) == it.size
	case itemTokenAccountState:
		return validTokenAccount(a.Data) == it.state
	case itemLamports:
		switch it.op {
		case lamportsEq:
			return a.Lamports == it.value
		case lamportsNe:
			return a.Lamports != it.value
		case lamportsLt:
			return a.Lamports < it.value
		case lamportsGt:
			return a.Lamports > it.value
		}
	}
	return false
}

// validTokenAccount reports whether data is an initialized SPL token account:
// 165 bytes (or an extended account tagged as such) with a non-zero state.
func validTokenAccount(data []byte) bool {
	const stateOffset, accountType = 108, 2
	switch {
	case len(data) == tokenAccountLen:
	case len(data) > tokenAccountLen && data[tokenAccountLen] == accountType:
	default:
		return false
	}
	return data[stateOffset] != 0
}

func matchTransaction(filters []transactionsMatcher, slot uint64, tx *message.TransactionInfo) []string {
	var names []string
	for i := range filters {
		if filters[i].match(slot, tx) {
			names = append(names, filters[i].name)
		}
	}
	return names
}

func (f *transactionsMatcher) match(slot uint64, tx *message.TransactionInfo) bool {
	if f.vote != nil && *f.vote != tx.IsVote {
		return false
	}
	if f.failed != nil && *f.failed != tx.Failed() {
		return false
	}
	if f.signature != nil && *f.signature != tx.Signature {
		return false
	}
	if f.include != nil && !anyKey(f.include, tx) {
		return false
	}
	if f.exclude != nil && anyKey(f.exclude, tx) {
		return false
	}
	if f.required != nil {
		n := 0
		for k := range f.required {
			if tx.HasAccount(k) {
				n++
			}
		}
		if n != len(f.required) {
			return false
		}
	}
	return f.expr.evalTransaction(slot, tx)
}

func anyKey(set keySet, tx *message.TransactionInfo) bool {
	for _, k := range tx.AccountKeys {
		if set.has(k) {
			return true
		}
	}
	return false
}

// trim returns a copy of b holding only the contents the filter asked for.
func (f *blocksMatcher) trim(b *message.BlockInfo) *message.BlockInfo {
	cp := *b
	cp.Transactions, cp.Accounts, cp.Entries = nil, nil, nil
	if f.includeTransactions {
		for _, tx := range b.Transactions {
			if f.include == nil || anyKey(f.include, tx) {
				cp.Transactions = append(cp.Transactions, tx)
			}
		}
	}
	if f.includeAccounts {
		for _, a := range b.Accounts {
			if f.include == nil || f.include.has(a.Pubkey) {
				cp.Accounts = append(cp.Accounts, a)
			}
		}
	}
	if f.includeEntries {
		cp.Entries = b.Entries
	}
	return &cp
}
