package commitment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/geyserd/internal/message"
)

func TestObserveMonotonic(t *testing.T) {
	tr := NewTracker(0)
	require.True(t, tr.Observe(10, message.SlotFinalized))
	// confirmed after finalized is tolerated and ignored
	require.False(t, tr.Observe(10, message.SlotConfirmed))
	st, ok := tr.Status(10)
	require.True(t, ok)
	require.Equal(t, message.SlotFinalized, st)

	snap := tr.Snapshot()
	assert.Equal(t, uint64(10), snap.Processed)
	assert.Equal(t, uint64(10), snap.Confirmed)
	assert.Equal(t, uint64(10), snap.Finalized)

	require.True(t, tr.Observe(5, message.SlotConfirmed))
	assert.Equal(t, uint64(10), tr.Snapshot().Confirmed, "counters never decrease")
}

func TestDeadIsTerminal(t *testing.T) {
	tr := NewTracker(0)
	tr.Observe(7, message.SlotProcessed)
	require.True(t, tr.Observe(7, message.SlotDead))
	require.False(t, tr.Observe(7, message.SlotConfirmed))
	require.True(t, tr.IsDead(7))

	tr.Observe(8, message.SlotFinalized)
	require.False(t, tr.Observe(8, message.SlotDead), "finalized slots cannot die")
	require.False(t, tr.IsDead(8))
}

func TestOpen(t *testing.T) {
	tr := NewTracker(0)
	require.True(t, tr.Open(50, Processed))
	require.False(t, tr.Open(50, Finalized))

	tr.Observe(50, message.SlotConfirmed)
	require.True(t, tr.Open(50, Confirmed))
	require.False(t, tr.Open(50, Finalized))

	// a later finalized slot opens earlier ones through the counter
	tr.Observe(52, message.SlotFinalized)
	require.True(t, tr.Open(50, Finalized))
	require.True(t, tr.Open(51, Finalized))
	require.False(t, tr.Open(53, Finalized))

	tr.Observe(53, message.SlotDead)
	require.False(t, tr.Open(53, Processed))
}

func TestPrune(t *testing.T) {
	tr := NewTracker(4)
	for s := uint64(1); s <= 6; s++ {
		tr.Observe(s, message.SlotProcessed)
	}
	tr.Observe(2, message.SlotFinalized)
	tr.Observe(7, message.SlotProcessed)
	require.LessOrEqual(t, tr.Len(), 4)
	_, ok := tr.Status(7)
	require.True(t, ok)
}

func TestPruneKeepsDeadMarkers(t *testing.T) {
	tr := NewTracker(3)
	tr.Observe(10, message.SlotDead)
	tr.Observe(11, message.SlotProcessed)
	tr.Observe(12, message.SlotProcessed)
	tr.Observe(13, message.SlotConfirmed)
	tr.Observe(14, message.SlotConfirmed)

	require.Equal(t, 3, tr.Len())
	require.True(t, tr.IsDead(10))
	require.False(t, tr.Open(10, Confirmed), "confirmed counter passed 10 but it stays dead")
	_, ok := tr.Status(11)
	require.False(t, ok)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": Processed, "Confirmed": Confirmed, "finalized": Finalized} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseLevel("rooted")
	require.Error(t, err)
}
