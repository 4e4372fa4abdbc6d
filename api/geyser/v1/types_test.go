package geyserv1

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestPingOnly(t *testing.T) {
	ping := &SubscribeRequest{Ping: &SubscribeRequestPing{ID: 3}}
	require.True(t, ping.PingOnly())

	withSlots := &SubscribeRequest{Ping: &SubscribeRequestPing{ID: 3}, Slots: map[string]*SlotsFilter{"s": {}}}
	require.False(t, withSlots.PingOnly())

	withLevel := &SubscribeRequest{Ping: &SubscribeRequestPing{}, Commitment: Level(CommitmentFinalized)}
	require.False(t, withLevel.PingOnly())

	require.False(t, (&SubscribeRequest{}).PingOnly())
}

func TestFilterRequestCarriesOptions(t *testing.T) {
	from := uint64(9)
	r := &SubscribeRequest{
		Accounts:          map[string]*AccountsFilter{"a": {Owner: []string{solana.TokenProgramID.String()}}},
		Commitment:        Level(CommitmentConfirmed),
		FromSlot:          &from,
		AccountsDataSlice: []DataSlice{{Offset: 0, Length: 32}},
	}
	req := r.FilterRequest()
	require.Equal(t, CommitmentConfirmed, req.Commitment)
	require.Equal(t, &from, req.FromSlot)
	require.Len(t, req.Accounts, 1)
	require.Len(t, req.AccountsDataSlice, 1)

	require.Equal(t, CommitmentProcessed, (&SubscribeRequest{}).FilterRequest().Commitment)
}

func TestCodecUpdate(t *testing.T) {
	var c Codec
	require.Equal(t, "msgpack", c.Name())
	sig := solana.Signature{1, 2, 3}
	in := &SubscribeUpdate{
		Filters:   []string{"acc"},
		CreatedAt: time.Unix(1700000000, 0).UTC(),
		Account: &SubscribeUpdateAccount{
			Slot: 42,
			Account: &AccountInfo{
				Pubkey:       solana.SystemProgramID,
				Owner:        solana.TokenProgramID,
				Lamports:     5,
				Data:         []byte{1, 2},
				TxnSignature: &sig,
			},
		},
	}
	b, err := c.Marshal(in)
	require.NoError(t, err)
	var out SubscribeUpdate
	require.NoError(t, c.Unmarshal(b, &out))
	require.Equal(t, in.Filters, out.Filters)
	require.True(t, in.CreatedAt.Equal(out.CreatedAt))
	require.Equal(t, in.Account.Account.Owner, out.Account.Account.Owner)
	require.Equal(t, sig, *out.Account.Account.TxnSignature)
	require.Nil(t, out.Slot)

	require.Error(t, c.Unmarshal([]byte{0xc1}, &out))
}
