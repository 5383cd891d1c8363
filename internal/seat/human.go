package seat

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/llmholdem/server/internal/decision"
	"github.com/llmholdem/server/internal/events"
	"github.com/llmholdem/server/pkg/poker"
)

// Publisher is the capability a Human Seat needs from the Session Runtime:
// push one event toward every transport of the owning user.
type Publisher interface {
	Publish(events.Envelope)
}

// HintProvider computes a copilot hint for the human's own hand. The
// Decision Kernel itself satisfies a narrower shape; session wires one in
// per seat so hints use the human's own persona-free heuristic analysis.
type HintProvider interface {
	Hint(ctx context.Context, legal []poker.LegalAction, hole []poker.Card, public poker.PublicState) events.Advice
}

// HumanSeat implements poker.Seat for the connected player. DeclareAction
// publishes an action_request and blocks on In until a response arrives;
// RoundResult blocks on the NextRoundGate. Unlike the Decision Kernel, it
// never remaps a human's declared fold into a call; other actions still go
// through decision.ValidateHumanAction, which clamps or degrades illegal ones.
type HumanSeat struct {
	id      string
	out     Publisher
	In      chan events.PlayerAction
	holeMap *HoleCardMap
	hints   HintProvider

	CopilotEnabled atomic.Bool
	Gate           *NextRoundGate
	stop           chan struct{}

	lastHole []poker.Card
}

// NewHumanSeat builds a human seat. stop is closed by the session runtime
// on teardown to unblock any pending In/Gate wait.
func NewHumanSeat(id string, out Publisher, holeMap *HoleCardMap, hints HintProvider, stop chan struct{}) *HumanSeat {
	return &HumanSeat{
		id:      id,
		out:     out,
		In:      make(chan events.PlayerAction, 1),
		holeMap: holeMap,
		hints:   hints,
		Gate:    NewNextRoundGate(),
		stop:    stop,
	}
}

func (h *HumanSeat) PlayerID() string { return h.id }

func (h *HumanSeat) GameStart(table *poker.Table) {
	h.out.Publish(events.Envelope{Type: events.TypeGameStart, Data: events.GameStart{TableID: table.GetConfig().ID}})
}

func (h *HumanSeat) RoundStart(public poker.PublicState) {
	h.Gate.Reset()

	seats := make([]events.SeatInfo, 0, len(public.Players))
	for _, p := range public.Players {
		seats = append(seats, events.SeatInfo{PlayerID: p.ID, Balance: p.Balance})
	}
	for _, p := range public.Players {
		if p.ID == h.id {
			h.lastHole = p.Hand
		}
	}

	h.out.Publish(events.Envelope{
		Type: events.TypeRoundStart,
		Data: events.RoundStart{
			HeroHole: h.lastHole,
			Seats:    seats,
		},
	})
}

func (h *HumanSeat) StreetStart(public poker.PublicState) {
	h.out.Publish(events.Envelope{
		Type: events.TypeStreetStart,
		Data: events.StreetStart{
			Street: public.Phase.String(),
			Board:  public.CommunityCards,
		},
	})
}

func (h *HumanSeat) GameUpdate(public poker.PublicState) {
	pub := toPokerGameUpdate(public)
	h.out.Publish(events.Envelope{Type: events.TypeGameUpdate, Data: events.GameUpdate{Public: pub}})
}

// DeclareAction publishes an action_request and blocks until a response
// arrives on In or the session is torn down, in which case it folds. A
// response that arrives still runs through decision.ValidateHumanAction, the
// same clamping/legality pipeline the Decision Kernel applies to LLM seats,
// as defense in depth against a client sending an out-of-range or illegal
// action.
func (h *HumanSeat) DeclareAction(ctx context.Context, legal []poker.LegalAction, hole []poker.Card, public poker.PublicState) (poker.ActionTag, int64) {
	callAmount := int64(0)
	legalInfo := make([]events.LegalActionInfo, 0, len(legal))
	for _, la := range legal {
		legalInfo = append(legalInfo, events.LegalActionInfo{
			Action:    string(la.Action),
			MinAmount: la.MinAmount,
			MaxAmount: la.MaxAmount,
		})
		if la.Action == poker.ActionCall {
			callAmount = la.MinAmount
		}
	}

	var advice *events.Advice
	if h.CopilotEnabled.Load() && h.hints != nil {
		a := h.hints.Hint(ctx, legal, hole, public)
		advice = &a
	}

	h.out.Publish(events.Envelope{
		Type: events.TypeActionRequest,
		Data: events.ActionRequest{
			LegalActions: legalInfo,
			HeroHole:     hole,
			Public:       toPokerGameUpdate(public),
			CallAmount:   callAmount,
			AIAdvice:     advice,
		},
	})

	select {
	case action := <-h.In:
		return decision.ValidateHumanAction(poker.ActionTag(action.Action), action.Amount, legal)
	case <-h.stop:
		return poker.ActionFold, 0
	case <-ctx.Done():
		return poker.ActionFold, 0
	}
}

func (h *HumanSeat) RoundResult(result *poker.ShowdownResult) {
	var winners []poker.Winner
	handInfo := ""
	if result != nil {
		for _, w := range result.WinnerInfo {
			if w != nil {
				winners = append(winners, *w)
			}
		}
		if len(result.WinnerInfo) > 0 && result.WinnerInfo[0] != nil {
			handInfo = result.WinnerInfo[0].HandRank.String()
		}
	}

	h.out.Publish(events.Envelope{
		Type: events.TypeRoundResult,
		Data: events.RoundResult{
			Winners:       winners,
			HandInfo:      handInfo,
			RevealedHoles: h.holeMap.Snapshot(),
		},
	})

	for {
		if h.Gate.WaitTimeout(h.stop, 2*time.Second) {
			return
		}
		select {
		case <-h.stop:
			return
		default:
		}
	}
}

func toPokerGameUpdate(public poker.PublicState) *poker.GameUpdate {
	return &poker.GameUpdate{
		Phase:          public.Phase,
		Players:        public.Players,
		CommunityCards: public.CommunityCards,
		Pot:            public.Pot,
		CurrentBet:     public.CurrentBet,
		CurrentPlayer:  public.CurrentPlayer,
	}
}
