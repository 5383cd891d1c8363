package seat

import (
	"context"
	"math/rand"
	"testing"

	"github.com/llmholdem/server/internal/decision"
	"github.com/llmholdem/server/internal/persona"
	"github.com/llmholdem/server/pkg/poker"
	"github.com/stretchr/testify/require"
)

func TestBotSeat_GameStartCapturesBigBlind(t *testing.T) {
	holeMap := NewHoleCardMap()
	kernel := decision.NewKernel(nil, rand.New(rand.NewSource(1)))
	b := NewBotSeat("bot-1", persona.Persona{Difficulty: persona.Medium}, kernel, holeMap, nil)

	table := poker.NewTable(poker.TableConfig{ID: "t1", SmallBlind: 5, BigBlind: 10, MinPlayers: 2, MaxPlayers: 6})
	b.GameStart(table)

	require.Equal(t, int64(10), b.bigBlind)
}

func TestBotSeat_RoundStartWritesHoleCardsToMap(t *testing.T) {
	holeMap := NewHoleCardMap()
	kernel := decision.NewKernel(nil, rand.New(rand.NewSource(1)))
	b := NewBotSeat("bot-1", persona.Persona{Difficulty: persona.Medium}, kernel, holeMap, nil)

	hole := []poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Ace),
		poker.NewCardFromSuitValue(poker.Spades, poker.King),
	}
	public := poker.PublicState{Players: []poker.PlayerUpdate{
		{ID: "bot-1", Hand: hole},
		{ID: "bot-2"},
	}}

	b.RoundStart(public)

	snap := holeMap.Snapshot()
	require.Equal(t, hole, snap["bot-1"])
	_, ok := snap["bot-2"]
	require.False(t, ok)
}

func TestBotSeat_RoundStartSkipsWhenHandEmpty(t *testing.T) {
	holeMap := NewHoleCardMap()
	kernel := decision.NewKernel(nil, rand.New(rand.NewSource(1)))
	b := NewBotSeat("bot-1", persona.Persona{Difficulty: persona.Medium}, kernel, holeMap, nil)

	public := poker.PublicState{Players: []poker.PlayerUpdate{{ID: "bot-1"}}}
	b.RoundStart(public)

	require.Empty(t, holeMap.Snapshot())
}

// TestBotSeat_DeclareActionChecksWhenOnlyCheckIsLegal drives the kernel with
// no LLM configured (forcing the rule-based Fallback) and a legal-action set
// containing only fold and a free check. The fallback's only reachable
// branch in that shape is call(0); BotSeat must translate that into an
// engine-facing check rather than a call.
func TestBotSeat_DeclareActionChecksWhenOnlyCheckIsLegal(t *testing.T) {
	holeMap := NewHoleCardMap()
	kernel := decision.NewKernel(nil, rand.New(rand.NewSource(1)))
	b := NewBotSeat("bot-1", persona.Persona{Difficulty: persona.Medium}, kernel, holeMap, nil)
	b.bigBlind = 2

	legal := []poker.LegalAction{
		{Action: poker.ActionFold},
		{Action: poker.ActionCheck},
	}
	public := poker.PublicState{
		CurrentBet: 0,
		Players: []poker.PlayerUpdate{
			{ID: "bot-1", Balance: 100},
			{ID: "bot-2", Balance: 100},
		},
	}

	action, amount := b.DeclareAction(context.Background(), legal, nil, public)

	require.Equal(t, poker.ActionCheck, action)
	require.Equal(t, int64(0), amount)
}

func TestToDecisionPublicState_ComputesToCallAndActiveOpponents(t *testing.T) {
	public := poker.PublicState{
		Pot:        100,
		CurrentBet: 40,
		Players: []poker.PlayerUpdate{
			{ID: "hero", Balance: 300, CurrentBet: 10},
			{ID: "villain-1", Balance: 200, Folded: false},
			{ID: "villain-2", Balance: 150, Folded: true},
		},
	}

	out := toDecisionPublicState(public, "hero")

	require.Equal(t, int64(30), out.ToCall)
	require.Equal(t, int64(300), out.MyStack)
	require.Equal(t, 1, out.ActiveOpponents)
	require.Equal(t, []int64{200}, out.OpponentStacks)
}

func TestToDecisionPublicState_ToCallNeverNegative(t *testing.T) {
	public := poker.PublicState{
		CurrentBet: 10,
		Players: []poker.PlayerUpdate{
			{ID: "hero", Balance: 300, CurrentBet: 50},
		},
	}

	out := toDecisionPublicState(public, "hero")

	require.Equal(t, int64(0), out.ToCall)
}
