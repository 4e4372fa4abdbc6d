package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	geyserv1 "github.com/rzbill/geyserd/api/geyser/v1"
)

// errLimitReached stops the stream once --limit updates were printed.
var errLimitReached = errors.New("limit reached")

type subscribeFlags struct {
	accounts     []string
	owners       []string
	accountExpr  string
	txAccounts   []string
	txExpr       string
	txStatus     bool
	vote         string
	failed       string
	slots        bool
	interslot    bool
	byCommitment bool
	blocks       bool
	blocksMeta   bool
	entries      bool
	commitment   string
	fromSlot     int64
	dataSlices   []string
	limit        int
}

// newSubscribeCommand constructs the `subscribe` command.
func newSubscribeCommand(conn *connOptions) *cobra.Command {
	var f subscribeFlags
	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe to filtered account, transaction, slot and block updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			seen := 0
			err = conn.transport().Subscribe(cmd.Context(), req, func(u *geyserv1.SubscribeUpdate) error {
				if u.Ping != nil {
					return nil
				}
				if err := enc.Encode(renderUpdate(u)); err != nil {
					return err
				}
				seen++
				if f.limit > 0 && seen >= f.limit {
					return errLimitReached
				}
				return nil
			})
			if errors.Is(err, errLimitReached) {
				return nil
			}
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVar(&f.accounts, "accounts", nil, "Account pubkeys (base58)")
	fl.StringSliceVar(&f.owners, "owner", nil, "Owner program pubkeys (base58)")
	fl.StringVar(&f.accountExpr, "account-expr", "", "CEL predicate over accounts")
	fl.StringSliceVar(&f.txAccounts, "tx-account", nil, "Transactions touching any of these accounts")
	fl.StringVar(&f.txExpr, "tx-expr", "", "CEL predicate over transactions")
	fl.BoolVar(&f.txStatus, "tx-status", false, "Deliver transaction statuses instead of full transactions")
	fl.StringVar(&f.vote, "vote", "", "Vote transactions: true|false (default: both)")
	fl.StringVar(&f.failed, "failed", "", "Failed transactions: true|false (default: both)")
	fl.BoolVar(&f.slots, "slots", false, "Subscribe to slot updates")
	fl.BoolVar(&f.interslot, "interslot", false, "Include interslot slot statuses")
	fl.BoolVar(&f.byCommitment, "slots-by-commitment", false, "Only slot updates matching --commitment")
	fl.BoolVar(&f.blocks, "blocks", false, "Subscribe to full blocks")
	fl.BoolVar(&f.blocksMeta, "blocks-meta", false, "Subscribe to block meta")
	fl.BoolVar(&f.entries, "entries", false, "Subscribe to entries")
	fl.StringVar(&f.commitment, "commitment", "processed", "Commitment: processed|confirmed|finalized")
	fl.Int64Var(&f.fromSlot, "from-slot", -1, "Replay from this slot before live updates")
	fl.StringSliceVar(&f.dataSlices, "data-slice", nil, "Account data slices as offset:length")
	fl.IntVar(&f.limit, "limit", 0, "Stop after N updates (0 = infinite)")
	return cmd
}

// request builds the first Subscribe frame from the flags. Every filter is
// named "cli".
func (f *subscribeFlags) request() (*geyserv1.SubscribeRequest, error) {
	level, err := parseCommitment(f.commitment)
	if err != nil {
		return nil, err
	}
	req := &geyserv1.SubscribeRequest{Commitment: geyserv1.Level(level)}
	if len(f.accounts) > 0 || len(f.owners) > 0 || f.accountExpr != "" {
		req.Accounts = map[string]*geyserv1.AccountsFilter{
			"cli": {Account: f.accounts, Owner: f.owners, Expr: f.accountExpr},
		}
	}
	if len(f.txAccounts) > 0 || f.txExpr != "" || f.vote != "" || f.failed != "" {
		tf := &geyserv1.TransactionsFilter{AccountInclude: f.txAccounts, Expr: f.txExpr}
		if tf.Vote, err = optionalBool("vote", f.vote); err != nil {
			return nil, err
		}
		if tf.Failed, err = optionalBool("failed", f.failed); err != nil {
			return nil, err
		}
		if f.txStatus {
			req.TransactionsStatus = map[string]*geyserv1.TransactionsFilter{"cli": tf}
		} else {
			req.Transactions = map[string]*geyserv1.TransactionsFilter{"cli": tf}
		}
	}
	if f.slots || f.interslot || f.byCommitment {
		interslot, byCommitment := f.interslot, f.byCommitment
		req.Slots = map[string]*geyserv1.SlotsFilter{
			"cli": {InterslotUpdates: &interslot, FilterByCommitment: &byCommitment},
		}
	}
	if f.blocks {
		req.Blocks = map[string]*geyserv1.BlocksFilter{"cli": {}}
	}
	if f.blocksMeta {
		req.BlocksMeta = map[string]*geyserv1.BlocksMetaFilter{"cli": {}}
	}
	if f.entries {
		req.Entry = map[string]*geyserv1.EntryFilter{"cli": {}}
	}
	if f.fromSlot >= 0 {
		from := uint64(f.fromSlot)
		req.FromSlot = &from
	}
	for _, s := range f.dataSlices {
		ds, err := parseDataSlice(s)
		if err != nil {
			return nil, err
		}
		req.AccountsDataSlice = append(req.AccountsDataSlice, ds)
	}
	if req.FilterRequest().FilterCount() == 0 {
		return nil, errors.New("nothing to subscribe to; pass --accounts, --owner, --tx-account, --slots, --blocks, --blocks-meta or --entries")
	}
	return req, nil
}

func parseCommitment(s string) (geyserv1.CommitmentLevel, error) {
	switch strings.ToLower(s) {
	case "", "processed":
		return geyserv1.CommitmentProcessed, nil
	case "confirmed":
		return geyserv1.CommitmentConfirmed, nil
	case "finalized":
		return geyserv1.CommitmentFinalized, nil
	}
	return 0, fmt.Errorf("invalid --commitment %q; use processed|confirmed|finalized", s)
}

func optionalBool(name, s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q", name, s)
	}
	return &v, nil
}

func parseDataSlice(s string) (geyserv1.DataSlice, error) {
	off, length, ok := strings.Cut(s, ":")
	if !ok {
		return geyserv1.DataSlice{}, fmt.Errorf("invalid --data-slice %q; expected offset:length", s)
	}
	o, err := strconv.ParseUint(off, 10, 64)
	if err != nil {
		return geyserv1.DataSlice{}, fmt.Errorf("invalid --data-slice offset %q", off)
	}
	l, err := strconv.ParseUint(length, 10, 64)
	if err != nil {
		return geyserv1.DataSlice{}, fmt.Errorf("invalid --data-slice length %q", length)
	}
	return geyserv1.DataSlice{Offset: o, Length: l}, nil
}
