package filter

import (
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rzbill/geyserd/internal/commitment"
)

type keySet map[solana.PublicKey]struct{}

func (k keySet) has(p solana.PublicKey) bool {
	_, ok := k[p]
	return ok
}

type itemKind uint8

const (
	itemMemcmp itemKind = iota + 1
	itemDatasize
	itemTokenAccountState
	itemLamports
)

type lamportsOp uint8

const (
	lamportsEq lamportsOp = iota + 1
	lamportsNe
	lamportsLt
	lamportsGt
)

type accountItem struct {
	kind   itemKind
	offset uint64
	bytes  []byte
	size   uint64
	state  bool
	op     lamportsOp
	value  uint64
}

type accountsMatcher struct {
	name                 string
	accounts             keySet
	owners               keySet
	items                []accountItem
	nonemptyTxnSignature *bool
	expr                 celFilter
}

type slotsMatcher struct {
	name               string
	filterByCommitment bool
	interslotUpdates   bool
}

type transactionsMatcher struct {
	name      string
	vote      *bool
	failed    *bool
	signature *solana.Signature
	include   keySet
	exclude   keySet
	required  keySet
	expr      celFilter
}

type blocksMatcher struct {
	name                string
	include             keySet
	includeTransactions bool
	includeAccounts     bool
	includeEntries      bool
}

// Set is a compiled, immutable subscription.
type Set struct {
	commitment commitment.Level
	fromSlot   *uint64

	accounts     []accountsMatcher
	slots        []slotsMatcher
	transactions []transactionsMatcher
	txStatus     []transactionsMatcher
	blocks       []blocksMatcher
	blocksMeta   []string
	entry        []string
	dataSlices   []DataSlice

	names []string
}

// Commitment returns the requested commitment level.
func (s *Set) Commitment() commitment.Level { return s.commitment }

// FromSlot returns the requested replay start, if any.
func (s *Set) FromSlot() (uint64, bool) {
	if s.fromSlot == nil {
		return 0, false
	}
	return *s.fromSlot, true
}

// Names returns the sorted filter names of the set.
func (s *Set) Names() []string { return s.names }

// Empty reports whether the set selects nothing.
func (s *Set) Empty() bool { return len(s.names) == 0 }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Compile validates req against limits and builds a Set.
func Compile(req *Request, limits Limits) (*Set, error) {
	if req == nil {
		return nil, invalid("", "empty request")
	}
	if limits.MaxFilters > 0 && req.FilterCount() > limits.MaxFilters {
		return nil, invalid("filters", "too many filters: %d > %d", req.FilterCount(), limits.MaxFilters)
	}
	for _, name := range req.Names() {
		if limits.NameSizeLimit > 0 && len(name) > limits.NameSizeLimit {
			return nil, invalid("filters", "filter name %.32q too long: %d > %d", name, len(name), limits.NameSizeLimit)
		}
	}
	if limits.MaxEncodedSize > 0 {
		b, err := msgpack.Marshal(req)
		if err != nil {
			return nil, invalid("", "encode request: %v", err)
		}
		if len(b) > limits.MaxEncodedSize {
			return nil, invalid("", "encoded filter size %d exceeds %d", len(b), limits.MaxEncodedSize)
		}
	}
	if req.Commitment > commitment.Finalized {
		return nil, invalid("commitment", "unknown level %d", req.Commitment)
	}

	s := &Set{commitment: req.Commitment, fromSlot: req.FromSlot}
	if err := s.compileAccounts(req.Accounts, limits.Accounts); err != nil {
		return nil, err
	}
	if err := checkMax("slots", len(req.Slots), limits.Slots.Max); err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(req.Slots) {
		f := req.Slots[name]
		m := slotsMatcher{name: name}
		if f != nil {
			m.filterByCommitment = f.FilterByCommitment != nil && *f.FilterByCommitment
			m.interslotUpdates = f.InterslotUpdates != nil && *f.InterslotUpdates
		}
		s.slots = append(s.slots, m)
	}
	var err error
	if s.transactions, err = compileTransactions("transactions", req.Transactions, limits.Transactions); err != nil {
		return nil, err
	}
	if s.txStatus, err = compileTransactions("transactions_status", req.TransactionsStatus, limits.TransactionsStatus); err != nil {
		return nil, err
	}
	if err := s.compileBlocks(req.Blocks, limits.Blocks); err != nil {
		return nil, err
	}
	if err := checkMax("blocks_meta", len(req.BlocksMeta), limits.BlocksMeta.Max); err != nil {
		return nil, err
	}
	s.blocksMeta = sortedKeys(req.BlocksMeta)
	if err := checkMax("entry", len(req.Entry), limits.Entry.Max); err != nil {
		return nil, err
	}
	s.entry = sortedKeys(req.Entry)

	if err := validateDataSlices(req.AccountsDataSlice, limits.Accounts.DataSliceMax); err != nil {
		return nil, err
	}
	s.dataSlices = append([]DataSlice(nil), req.AccountsDataSlice...)

	s.names = req.Names()
	sort.Strings(s.names)
	return s, nil
}

func checkMax(field string, n, max int) error {
	if max > 0 && n > max {
		return invalid(field, "too many filters: %d > %d", n, max)
	}
	return nil
}

func parseKeys(field string, in []string, max int, reject []string) (keySet, error) {
	if max > 0 && len(in) > max {
		return nil, invalid(field, "too many keys: %d > %d", len(in), max)
	}
	if len(in) == 0 {
		return nil, nil
	}
	out := make(keySet, len(in))
	for _, s := range in {
		pk, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return nil, invalid(field, "invalid pubkey %q: %v", s, err)
		}
		out[pk] = struct{}{}
	}
	for _, r := range reject {
		if pk, err := solana.PublicKeyFromBase58(r); err == nil && out.has(pk) {
			return nil, invalid(field, "pubkey %s is not allowed", r)
		}
	}
	return out, nil
}

func (s *Set) compileAccounts(in map[string]*AccountsFilter, l AccountsLimits) error {
	if err := checkMax("accounts", len(in), l.Max); err != nil {
		return err
	}
	for _, name := range sortedKeys(in) {
		f := in[name]
		if f == nil {
			f = &AccountsFilter{}
		}
		field := "accounts." + name
		if !l.Any && len(f.Account) == 0 && len(f.Owner) == 0 && len(f.Filters) == 0 {
			return invalid(field, "match-all accounts filter is not allowed")
		}
		m := accountsMatcher{name: name, nonemptyTxnSignature: f.NonemptyTxnSignature}
		var err error
		if m.accounts, err = parseKeys(field+".account", f.Account, l.AccountMax, l.AccountReject); err != nil {
			return err
		}
		if m.owners, err = parseKeys(field+".owner", f.Owner, l.OwnerMax, l.OwnerReject); err != nil {
			return err
		}
		if len(f.Filters) > maxAccountsFilterItems {
			return invalid(field+".filters", "too many sub-filters: %d > %d", len(f.Filters), maxAccountsFilterItems)
		}
		for i, it := range f.Filters {
			item, err := compileAccountItem(it)
			if err != nil {
				return invalid(fmt.Sprintf("%s.filters[%d]", field, i), "%v", err)
			}
			m.items = append(m.items, item)
		}
		if m.expr, err = newCELFilter(f.Expr, accountsEnv); err != nil {
			return invalid(field+".expr", "%v", err)
		}
		s.accounts = append(s.accounts, m)
	}
	return nil
}

func compileAccountItem(it AccountsFilterItem) (accountItem, error) {
	set := 0
	for _, p := range []bool{it.Memcmp != nil, it.Datasize != nil, it.TokenAccountState != nil, it.Lamports != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return accountItem{}, fmt.Errorf("exactly one of memcmp, datasize, token_account_state, lamports must be set")
	}
	switch {
	case it.Memcmp != nil:
		b, err := it.Memcmp.decode()
		if err != nil {
			return accountItem{}, err
		}
		if it.Memcmp.Offset > MaxAccountDataLen {
			return accountItem{}, fmt.Errorf("memcmp: offset %d exceeds max account data size", it.Memcmp.Offset)
		}
		return accountItem{kind: itemMemcmp, offset: it.Memcmp.Offset, bytes: b}, nil
	case it.Datasize != nil:
		return accountItem{kind: itemDatasize, size: *it.Datasize}, nil
	case it.TokenAccountState != nil:
		return accountItem{kind: itemTokenAccountState, state: *it.TokenAccountState}, nil
	default:
		return it.Lamports.compile()
	}
}

func (m *Memcmp) decode() ([]byte, error) {
	set := 0
	for _, p := range []bool{m.Bytes != nil, m.Base58 != "", m.Base64 != ""} {
		if p {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("memcmp: exactly one of bytes, base58, base64 must be set")
	}
	switch {
	case m.Base58 != "":
		if len(m.Base58) > maxMemcmpBase58 {
			return nil, fmt.Errorf("memcmp: base58 data too long")
		}
		b, err := base58.Decode(m.Base58)
		if err != nil {
			return nil, fmt.Errorf("memcmp: %w", err)
		}
		return b, nil
	case m.Base64 != "":
		if len(m.Base64) > maxMemcmpBase64 {
			return nil, fmt.Errorf("memcmp: base64 data too long")
		}
		b, err := base64.StdEncoding.DecodeString(m.Base64)
		if err != nil {
			return nil, fmt.Errorf("memcmp: %w", err)
		}
		return b, nil
	default:
		if len(m.Bytes) > maxMemcmpBytes {
			return nil, fmt.Errorf("memcmp: data too long")
		}
		return m.Bytes, nil
	}
}

func (l *Lamports) compile() (accountItem, error) {
	var ops []accountItem
	if l.Eq != nil {
		ops = append(ops, accountItem{kind: itemLamports, op: lamportsEq, value: *l.Eq})
	}
	if l.Ne != nil {
		ops = append(ops, accountItem{kind: itemLamports, op: lamportsNe, value: *l.Ne})
	}
	if l.Lt != nil {
		ops = append(ops, accountItem{kind: itemLamports, op: lamportsLt, value: *l.Lt})
	}
	if l.Gt != nil {
		ops = append(ops, accountItem{kind: itemLamports, op: lamportsGt, value: *l.Gt})
	}
	if len(ops) != 1 {
		return accountItem{}, fmt.Errorf("lamports: exactly one of eq, ne, lt, gt must be set")
	}
	return ops[0], nil
}

func compileTransactions(kind string, in map[string]*TransactionsFilter, l TransactionsLimits) ([]transactionsMatcher, error) {
	if err := checkMax(kind, len(in), l.Max); err != nil {
		return nil, err
	}
	var out []transactionsMatcher
	for _, name := range sortedKeys(in) {
		f := in[name]
		if f == nil {
			f = &TransactionsFilter{}
		}
		field := kind + "." + name
		if !l.Any && f.Signature == "" && len(f.AccountInclude) == 0 && len(f.AccountRequired) == 0 {
			return nil, invalid(field, "match-all transactions filter is not allowed")
		}
		m := transactionsMatcher{name: name, vote: f.Vote, failed: f.Failed}
		if f.Signature != "" {
			sig, err := solana.SignatureFromBase58(f.Signature)
			if err != nil {
				return nil, invalid(field+".signature", "invalid signature: %v", err)
			}
			m.signature = &sig
		}
		var err error
		if m.include, err = parseKeys(field+".account_include", f.AccountInclude, l.AccountIncludeMax, l.AccountIncludeReject); err != nil {
			return nil, err
		}
		if m.exclude, err = parseKeys(field+".account_exclude", f.AccountExclude, l.AccountExcludeMax, nil); err != nil {
			return nil, err
		}
		if m.required, err = parseKeys(field+".account_required", f.AccountRequired, l.AccountRequiredMax, nil); err != nil {
			return nil, err
		}
		if m.expr, err = newCELFilter(f.Expr, transactionsEnv); err != nil {
			return nil, invalid(field+".expr", "%v", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Set) compileBlocks(in map[string]*BlocksFilter, l BlocksLimits) error {
	if err := checkMax("blocks", len(in), l.Max); err != nil {
		return err
	}
	for _, name := range sortedKeys(in) {
		f := in[name]
		if f == nil {
			f = &BlocksFilter{}
		}
		field := "blocks." + name
		if !l.AccountIncludeAny && len(f.AccountInclude) == 0 {
			return invalid(field+".account_include", "match-all blocks filter is not allowed")
		}
		m := blocksMatcher{
			name:                name,
			includeTransactions: boolOr(f.IncludeTransactions, true),
			includeAccounts:     boolOr(f.IncludeAccounts, false),
			includeEntries:      boolOr(f.IncludeEntries, false),
		}
		if m.includeTransactions && !l.IncludeTransactions {
			return invalid(field+".include_transactions", "not allowed")
		}
		if m.includeAccounts && !l.IncludeAccounts {
			return invalid(field+".include_accounts", "not allowed")
		}
		if m.includeEntries && !l.IncludeEntries {
			return invalid(field+".include_entries", "not allowed")
		}
		var err error
		if m.include, err = parseKeys(field+".account_include", f.AccountInclude, l.AccountIncludeMax, l.AccountIncludeReject); err != nil {
			return err
		}
		s.blocks = append(s.blocks, m)
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func validateDataSlices(in []DataSlice, max int) error {
	if max > 0 && len(in) > max {
		return invalid("accounts_data_slice", "too many slices: %d > %d", len(in), max)
	}
	for i, sl := range in {
		if sl.Offset > MaxAccountDataLen || sl.Length > MaxAccountDataLen {
			return invalid("accounts_data_slice", "slice %d exceeds max account data size", i)
		}
		if i == 0 {
			continue
		}
		prev := in[i-1]
		// both ends are bounded above, so the sum cannot wrap
		if prev.Offset+prev.Length > sl.Offset {
			return invalid("accounts_data_slice", "slices must be sorted and must not overlap")
		}
	}
	return nil
}
