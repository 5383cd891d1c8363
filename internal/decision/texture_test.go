package decision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmholdem/server/pkg/poker"
)

func TestClassifyBoard_TooFewCardsIsDry(t *testing.T) {
	texture, paired, flushPossible, flushDraw, straightPossible, straightDraw := ClassifyBoard([]poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Ace),
		poker.NewCardFromSuitValue(poker.Hearts, poker.King),
	})

	require.Equal(t, TextureDry, texture)
	require.False(t, paired)
	require.False(t, flushPossible)
	require.False(t, flushDraw)
	require.False(t, straightPossible)
	require.False(t, straightDraw)
}

func TestClassifyBoard_RainbowDisconnectedIsDry(t *testing.T) {
	texture, paired, flushPossible, _, straightPossible, _ := ClassifyBoard([]poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Two),
		poker.NewCardFromSuitValue(poker.Hearts, poker.Seven),
		poker.NewCardFromSuitValue(poker.Clubs, poker.King),
	})

	require.Equal(t, TextureDry, texture)
	require.False(t, paired)
	require.False(t, flushPossible)
	require.False(t, straightPossible)
}

func TestClassifyBoard_MonotoneConnectedIsWet(t *testing.T) {
	texture, _, flushPossible, _, straightPossible, _ := ClassifyBoard([]poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Seven),
		poker.NewCardFromSuitValue(poker.Spades, poker.Eight),
		poker.NewCardFromSuitValue(poker.Spades, poker.Nine),
	})

	require.True(t, flushPossible)
	require.True(t, straightPossible)
	require.Equal(t, TextureWet, texture)
}

func TestClassifyBoard_MonotoneDisconnectedIsSemiWet(t *testing.T) {
	texture, _, flushPossible, _, _, _ := ClassifyBoard([]poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Two),
		poker.NewCardFromSuitValue(poker.Spades, poker.Seven),
		poker.NewCardFromSuitValue(poker.Spades, poker.King),
	})

	require.True(t, flushPossible)
	require.Equal(t, TextureSemiWet, texture)
}

func TestClassifyBoard_PairedBoardSetsPairedFlag(t *testing.T) {
	_, paired, _, _, _, _ := ClassifyBoard([]poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Seven),
		poker.NewCardFromSuitValue(poker.Hearts, poker.Seven),
		poker.NewCardFromSuitValue(poker.Clubs, poker.King),
	})

	require.True(t, paired)
}

func TestClassifyBoard_ConnectedRanksAreStraightPossible(t *testing.T) {
	_, _, _, _, straightPossible, straightDraw := ClassifyBoard([]poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Seven),
		poker.NewCardFromSuitValue(poker.Hearts, poker.Eight),
		poker.NewCardFromSuitValue(poker.Clubs, poker.Nine),
	})

	require.True(t, straightPossible)
	require.True(t, straightDraw)
}

func TestClassifyBoard_TwoToneSetsFlushDrawNotFlushPossible(t *testing.T) {
	_, _, flushPossible, flushDraw, _, _ := ClassifyBoard([]poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Two),
		poker.NewCardFromSuitValue(poker.Spades, poker.Nine),
		poker.NewCardFromSuitValue(poker.Clubs, poker.King),
	})

	require.False(t, flushPossible)
	require.True(t, flushDraw)
}
