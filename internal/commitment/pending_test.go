package commitment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rzbill/geyserd/internal/message"
)

func acct(slot uint64) *message.Message {
	return message.NewAccount(slot, &message.AccountInfo{})
}

func push(t *testing.T, p *Pending[*message.Message], m *message.Message) {
	t.Helper()
	require.NoError(t, p.Push(m.Slot, m))
}

func TestPendingReleaseOrder(t *testing.T) {
	tr := NewTracker(0)
	p := NewPending[*message.Message](8)
	a, b, c := acct(50), acct(51), acct(50)
	for _, m := range []*message.Message{a, b, c} {
		push(t, p, m)
	}
	require.Empty(t, p.Release(tr, Finalized))

	tr.Observe(50, message.SlotFinalized)
	out := p.Release(tr, Finalized)
	require.Equal(t, []*message.Message{a}, out, "c arrived after the still gated b")
	require.Equal(t, 2, p.Len())

	tr.Observe(51, message.SlotFinalized)
	require.Equal(t, []*message.Message{b, c}, p.Release(tr, Finalized))
	require.Zero(t, p.Len())
}

func TestPendingDeadDoesNotBlock(t *testing.T) {
	tr := NewTracker(0)
	p := NewPending[*message.Message](4)
	a, b := acct(60), acct(59)
	push(t, p, a)
	push(t, p, b)
	tr.Observe(59, message.SlotConfirmed)
	require.Empty(t, p.Release(tr, Confirmed))

	tr.Observe(60, message.SlotDead)
	require.Equal(t, []*message.Message{b}, p.Release(tr, Confirmed))
	require.Zero(t, p.Len())
}

func TestPendingDropsDead(t *testing.T) {
	tr := NewTracker(0)
	p := NewPending[*message.Message](4)
	push(t, p, acct(9))
	tr.Observe(9, message.SlotDead)
	require.Empty(t, p.Release(tr, Confirmed))
	require.Zero(t, p.Len())
}

func TestPendingOverflow(t *testing.T) {
	p := NewPending[string](1)
	require.NoError(t, p.Push(1, "a"))
	err := p.Push(2, "b")
	require.True(t, errors.Is(err, ErrPendingOverflow))
	require.Equal(t, 1, p.Len())
	p.Reset()
	require.Zero(t, p.Len())
}
