package seat

import (
	"context"
	"testing"

	"github.com/llmholdem/server/internal/events"
	"github.com/llmholdem/server/pkg/poker"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	envelopes []events.Envelope
}

func (p *recordingPublisher) Publish(env events.Envelope) {
	p.envelopes = append(p.envelopes, env)
}

// TestHumanSeat_DeclareActionDoesNotRemapFold asserts the Human Seat passes a
// declared fold straight through even when a free check was legal. Unlike
// the Decision Kernel's validate(), HumanSeat never turns the player's
// fold into a check or call.
func TestHumanSeat_DeclareActionDoesNotRemapFold(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	stop := make(chan struct{})
	h := NewHumanSeat("hero", pub, holeMap, nil, stop)

	legal := []poker.LegalAction{
		{Action: poker.ActionFold},
		{Action: poker.ActionCheck},
		{Action: poker.ActionBet, MinAmount: 2, MaxAmount: 400},
	}
	public := poker.PublicState{}

	h.In <- events.PlayerAction{Action: string(poker.ActionFold), Amount: 0}
	action, amount := h.DeclareAction(context.Background(), legal, nil, public)

	require.Equal(t, poker.ActionFold, action)
	require.Equal(t, int64(0), amount)
	require.Len(t, pub.envelopes, 1)
	require.Equal(t, events.TypeActionRequest, pub.envelopes[0].Type)
}

func TestHumanSeat_DeclareActionReturnsDeclaredRaiseVerbatim(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	stop := make(chan struct{})
	h := NewHumanSeat("hero", pub, holeMap, nil, stop)

	legal := []poker.LegalAction{
		{Action: poker.ActionFold},
		{Action: poker.ActionCall, MinAmount: 20, MaxAmount: 20},
		{Action: poker.ActionRaise, MinAmount: 40, MaxAmount: 400},
	}
	public := poker.PublicState{}

	h.In <- events.PlayerAction{Action: string(poker.ActionRaise), Amount: 120}
	action, amount := h.DeclareAction(context.Background(), legal, nil, public)

	require.Equal(t, poker.ActionRaise, action)
	require.Equal(t, int64(120), amount)
}

func TestHumanSeat_DeclareActionClampsRaiseAboveMax(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	stop := make(chan struct{})
	h := NewHumanSeat("hero", pub, holeMap, nil, stop)

	legal := []poker.LegalAction{
		{Action: poker.ActionFold},
		{Action: poker.ActionCall, MinAmount: 20, MaxAmount: 20},
		{Action: poker.ActionRaise, MinAmount: 40, MaxAmount: 400},
	}
	public := poker.PublicState{}

	h.In <- events.PlayerAction{Action: string(poker.ActionRaise), Amount: 10_000}
	action, amount := h.DeclareAction(context.Background(), legal, nil, public)

	require.Equal(t, poker.ActionRaise, action)
	require.Equal(t, int64(400), amount)
}

func TestHumanSeat_DeclareActionRejectsIllegalActionFallsBackToCall(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	stop := make(chan struct{})
	h := NewHumanSeat("hero", pub, holeMap, nil, stop)

	legal := []poker.LegalAction{
		{Action: poker.ActionFold},
		{Action: poker.ActionCall, MinAmount: 20, MaxAmount: 20},
	}
	public := poker.PublicState{}

	h.In <- events.PlayerAction{Action: string(poker.ActionBet), Amount: 50}
	action, amount := h.DeclareAction(context.Background(), legal, nil, public)

	require.Equal(t, poker.ActionCall, action)
	require.Equal(t, int64(20), amount)
}

func TestHumanSeat_DeclareActionFoldsWhenStopClosed(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	stop := make(chan struct{})
	close(stop)
	h := NewHumanSeat("hero", pub, holeMap, nil, stop)

	legal := []poker.LegalAction{{Action: poker.ActionFold}, {Action: poker.ActionCheck}}
	action, amount := h.DeclareAction(context.Background(), legal, nil, poker.PublicState{})

	require.Equal(t, poker.ActionFold, action)
	require.Equal(t, int64(0), amount)
}

func TestHumanSeat_DeclareActionFoldsWhenContextCanceled(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	stop := make(chan struct{})
	h := NewHumanSeat("hero", pub, holeMap, nil, stop)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	legal := []poker.LegalAction{{Action: poker.ActionFold}, {Action: poker.ActionCheck}}
	action, amount := h.DeclareAction(ctx, legal, nil, poker.PublicState{})

	require.Equal(t, poker.ActionFold, action)
	require.Equal(t, int64(0), amount)
}

func TestHumanSeat_RoundResultUnblocksOnSignalNextRound(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	stop := make(chan struct{})
	h := NewHumanSeat("hero", pub, holeMap, nil, stop)

	done := make(chan struct{})
	go func() {
		h.RoundResult(nil)
		close(done)
	}()

	h.Gate.Open()
	<-done

	require.Len(t, pub.envelopes, 1)
	require.Equal(t, events.TypeRoundResult, pub.envelopes[0].Type)
}

func TestHumanSeat_RoundResultUnblocksOnStop(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	stop := make(chan struct{})
	h := NewHumanSeat("hero", pub, holeMap, nil, stop)

	done := make(chan struct{})
	go func() {
		h.RoundResult(nil)
		close(done)
	}()

	close(stop)
	<-done
}

func TestHumanSeat_GameStartPublishesTableID(t *testing.T) {
	pub := &recordingPublisher{}
	holeMap := NewHoleCardMap()
	h := NewHumanSeat("hero", pub, holeMap, nil, make(chan struct{}))

	table := poker.NewTable(poker.TableConfig{ID: "table-1", SmallBlind: 1, BigBlind: 2, MinPlayers: 2, MaxPlayers: 6})
	h.GameStart(table)

	require.Len(t, pub.envelopes, 1)
	gs, ok := pub.envelopes[0].Data.(events.GameStart)
	require.True(t, ok)
	require.Equal(t, "table-1", gs.TableID)
}
