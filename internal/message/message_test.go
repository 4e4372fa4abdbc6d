package message

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, NewSlot(&SlotInfo{Slot: 3, Status: SlotConfirmed}).Validate())
	require.NoError(t, NewBlockMeta(&BlockMetaInfo{Slot: 9}).Validate())

	bad := NewAccount(1, &AccountInfo{})
	bad.Kind = KindEntry
	require.Error(t, bad.Validate())

	two := NewAccount(1, &AccountInfo{})
	two.Entry = &EntryInfo{}
	require.Error(t, two.Validate())

	for _, m := range []*Message{
		NewBlock(&BlockInfo{Slot: 4}),
		NewSlot(&SlotInfo{Slot: 4}),
		NewEntry(&EntryInfo{Slot: 4}),
	} {
		m.Slot = 5
		require.Error(t, m.Validate(), "kind %s", m.Kind)
	}
}

func TestWithBlockLeavesOriginal(t *testing.T) {
	orig := NewBlock(&BlockInfo{Slot: 4, Transactions: []*TransactionInfo{{Index: 1}}})
	trimmed := orig.WithBlock(&BlockInfo{Slot: 4})
	require.Len(t, orig.Block.Transactions, 1)
	require.Empty(t, trimmed.Block.Transactions)
	require.Equal(t, orig.Seq, trimmed.Seq)
}

func TestSlotStatusInterslot(t *testing.T) {
	require.True(t, SlotCompleted.IsInterslot())
	require.False(t, SlotConfirmed.IsInterslot())
	require.Equal(t, "first_shred_received", SlotFirstShredReceived.String())
}

func TestEncodeDecode(t *testing.T) {
	var sig solana.Signature
	sig[0], sig[63] = 7, 9
	parent := uint64(41)
	in := []*Message{
		NewSlot(&SlotInfo{Slot: 42, Parent: &parent, Status: SlotDead, DeadError: "fork"}),
		NewAccount(42, &AccountInfo{Pubkey: solana.SystemProgramID, Owner: solana.TokenProgramID, Lamports: 5, Data: []byte{1, 2}, TxnSignature: &sig}),
		NewTransaction(42, &TransactionInfo{Signature: sig, AccountKeys: []solana.PublicKey{solana.SystemProgramID}, Err: "x"}),
	}
	for _, m := range in {
		m.Seq = 3
		b, err := Encode(m)
		require.NoError(t, err)
		out, err := Decode(b)
		require.NoError(t, err)
		require.NoError(t, out.Validate())
		require.Equal(t, m.Seq, out.Seq)
		require.Equal(t, m.Kind, out.Kind)
		require.True(t, m.CreatedAt.Equal(out.CreatedAt))
	}
}

func TestDecodeKeys(t *testing.T) {
	var sig solana.Signature
	sig[1] = 1
	m := NewAccount(1, &AccountInfo{Pubkey: solana.TokenProgramID, TxnSignature: &sig})
	b, err := Encode(m)
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, solana.TokenProgramID, out.Account.Pubkey)
	require.Equal(t, sig, *out.Account.TxnSignature)
}
