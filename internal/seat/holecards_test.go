package seat

import (
	"testing"

	"github.com/llmholdem/server/pkg/poker"
	"github.com/stretchr/testify/require"
)

func TestHoleCardMap_SetAndSnapshot(t *testing.T) {
	m := NewHoleCardMap()
	hole := []poker.Card{
		poker.NewCardFromSuitValue(poker.Hearts, poker.Queen),
		poker.NewCardFromSuitValue(poker.Clubs, poker.Jack),
	}

	m.Set("seat-1", hole)
	snap := m.Snapshot()

	require.Equal(t, hole, snap["seat-1"])
}

func TestHoleCardMap_SnapshotIsADeepCopy(t *testing.T) {
	m := NewHoleCardMap()
	hole := []poker.Card{poker.NewCardFromSuitValue(poker.Hearts, poker.Queen)}
	m.Set("seat-1", hole)

	snap := m.Snapshot()
	snap["seat-1"][0] = poker.NewCardFromSuitValue(poker.Spades, poker.Ace)

	again := m.Snapshot()
	require.Equal(t, poker.Queen, poker.Value(again["seat-1"][0].GetValue()))
}

func TestHoleCardMap_SnapshotEmptyWhenUnset(t *testing.T) {
	m := NewHoleCardMap()
	snap := m.Snapshot()
	require.Empty(t, snap)
}
