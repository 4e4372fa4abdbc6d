package filter

// Limits bounds what one subscription may ask for. A zero Max means no
// per-kind bound beyond MaxFilters.
type Limits struct {
	NameSizeLimit  int `json:"name_size_limit" yaml:"name_size_limit"`
	MaxFilters     int `json:"max_filters" yaml:"max_filters"`
	MaxEncodedSize int `json:"max_encoded_size" yaml:"max_encoded_size"`

	Accounts           AccountsLimits     `json:"accounts" yaml:"accounts"`
	Slots              KindLimits         `json:"slots" yaml:"slots"`
	Transactions       TransactionsLimits `json:"transactions" yaml:"transactions"`
	TransactionsStatus TransactionsLimits `json:"transactions_status" yaml:"transactions_status"`
	Blocks             BlocksLimits       `json:"blocks" yaml:"blocks"`
	BlocksMeta         KindLimits         `json:"blocks_meta" yaml:"blocks_meta"`
	Entry              KindLimits         `json:"entry" yaml:"entry"`
}

type KindLimits struct {
	Max int `json:"max" yaml:"max"`
}

type AccountsLimits struct {
	Max           int      `json:"max" yaml:"max"`
	Any           bool     `json:"any" yaml:"any"`
	AccountMax    int      `json:"account_max" yaml:"account_max"`
	AccountReject []string `json:"account_reject" yaml:"account_reject"`
	OwnerMax      int      `json:"owner_max" yaml:"owner_max"`
	OwnerReject   []string `json:"owner_reject" yaml:"owner_reject"`
	DataSliceMax  int      `json:"data_slice_max" yaml:"data_slice_max"`
}

type TransactionsLimits struct {
	Max                  int      `json:"max" yaml:"max"`
	Any                  bool     `json:"any" yaml:"any"`
	AccountIncludeMax    int      `json:"account_include_max" yaml:"account_include_max"`
	AccountIncludeReject []string `json:"account_include_reject" yaml:"account_include_reject"`
	AccountExcludeMax    int      `json:"account_exclude_max" yaml:"account_exclude_max"`
	AccountRequiredMax   int      `json:"account_required_max" yaml:"account_required_max"`
}

type BlocksLimits struct {
	Max                  int      `json:"max" yaml:"max"`
	AccountIncludeMax    int      `json:"account_include_max" yaml:"account_include_max"`
	AccountIncludeAny    bool     `json:"account_include_any" yaml:"account_include_any"`
	AccountIncludeReject []string `json:"account_include_reject" yaml:"account_include_reject"`
	IncludeTransactions  bool     `json:"include_transactions" yaml:"include_transactions"`
	IncludeAccounts      bool     `json:"include_accounts" yaml:"include_accounts"`
	IncludeEntries       bool     `json:"include_entries" yaml:"include_entries"`
}

const (
	// memcmp payloads are capped the same way for every encoding
	maxMemcmpBytes  = 128
	maxMemcmpBase58 = 175
	maxMemcmpBase64 = 172
	// MaxAccountDataLen is the largest account data size the chain allows;
	// memcmp offsets and data slices beyond it can never match.
	MaxAccountDataLen = 10 * 1024 * 1024
	// sub-filters per accounts filter
	maxAccountsFilterItems = 4
	tokenAccountLen        = 165
)

// DefaultLimits returns permissive limits suitable for development.
func DefaultLimits() Limits {
	return Limits{
		NameSizeLimit:  128,
		MaxFilters:     64,
		MaxEncodedSize: 64 << 10,
		Accounts: AccountsLimits{
			Any:          true,
			DataSliceMax: 16,
		},
		Transactions:       TransactionsLimits{Any: true},
		TransactionsStatus: TransactionsLimits{Any: true},
		Blocks: BlocksLimits{
			AccountIncludeAny:   true,
			IncludeTransactions: true,
			IncludeAccounts:     true,
			IncludeEntries:      true,
		},
	}
}
