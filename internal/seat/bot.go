package seat

import (
	"context"

	"github.com/llmholdem/server/internal/decision"
	"github.com/llmholdem/server/internal/events"
	"github.com/llmholdem/server/internal/persona"
	"github.com/llmholdem/server/pkg/poker"
)

// DebugSink receives one entry per LLM interaction when debug mode is
// enabled and the seat's bot id passes the runtime's filter.
type DebugSink interface {
	LogDebug(entry events.DebugLog)
}

// BotSeat implements poker.Seat for one LLM-driven opponent. It writes its
// hole cards into the shared HoleCardMap on every round_start so the human
// seat's round_result can reveal them, and otherwise runs decisions through
// the Decision Kernel.
type BotSeat struct {
	id       string
	persona  persona.Persona
	kernel   *decision.Kernel
	holeMap  *HoleCardMap
	debug    DebugSink
	bigBlind int64
}

// NewBotSeat builds a bot seat. debug may be nil to disable debug logging.
func NewBotSeat(id string, p persona.Persona, kernel *decision.Kernel, holeMap *HoleCardMap, debug DebugSink) *BotSeat {
	return &BotSeat{id: id, persona: p, kernel: kernel, holeMap: holeMap, debug: debug}
}

func (b *BotSeat) PlayerID() string { return b.id }

func (b *BotSeat) GameStart(table *poker.Table) {
	b.bigBlind = table.GetBigBlind()
}

func (b *BotSeat) RoundStart(public poker.PublicState) {
	for _, p := range public.Players {
		if p.ID == b.id && len(p.Hand) > 0 {
			b.holeMap.Set(b.id, p.Hand)
			return
		}
	}
}

func (b *BotSeat) StreetStart(public poker.PublicState) {}

func (b *BotSeat) GameUpdate(public poker.PublicState) {}

func (b *BotSeat) RoundResult(result *poker.ShowdownResult) {}

// DeclareAction runs the Decision Kernel and translates its {fold, call,
// raise} answer back into the engine's {fold, check, call, bet, raise}
// action space.
func (b *BotSeat) DeclareAction(ctx context.Context, legal []poker.LegalAction, hole []poker.Card, public poker.PublicState) (poker.ActionTag, int64) {
	pub := toDecisionPublicState(public, b.id)
	pub.BigBlind = b.bigBlind
	tag, amount := b.kernel.Decide(ctx, b.persona, legal, hole, pub)

	if b.debug != nil {
		b.debug.LogDebug(events.DebugLog{
			BotID:     b.id,
			ActionOut: string(tag),
		})
	}

	switch tag {
	case decision.Fold:
		return poker.ActionFold, 0
	case decision.Call:
		if amount == 0 {
			return poker.ActionCheck, 0
		}
		return poker.ActionCall, amount
	case decision.Raise:
		if public.CurrentBet == 0 {
			return poker.ActionBet, amount
		}
		return poker.ActionRaise, amount
	default:
		return poker.ActionFold, 0
	}
}

// toDecisionPublicState narrows the engine's PublicState (every seat's
// info) down to the kernel's self-centric view.
func toDecisionPublicState(public poker.PublicState, selfID string) decision.PublicState {
	toCall := int64(0)
	myStack := int64(0)
	var oppStacks []int64
	active := 0

	for _, p := range public.Players {
		if p.ID == selfID {
			myStack = p.Balance
			toCall = public.CurrentBet - p.CurrentBet
			if toCall < 0 {
				toCall = 0
			}
			continue
		}
		if !p.Folded {
			active++
			oppStacks = append(oppStacks, p.Balance)
		}
	}

	return decision.PublicState{
		Pot:             public.Pot,
		CurrentBet:      public.CurrentBet,
		ToCall:          toCall,
		BigBlind:        0,
		CommunityCards:  public.CommunityCards,
		MyStack:         myStack,
		OpponentStacks:  oppStacks,
		ActiveOpponents: active,
	}
}
