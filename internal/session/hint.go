package session

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/llmholdem/server/internal/decision"
	"github.com/llmholdem/server/internal/events"
	"github.com/llmholdem/server/pkg/poker"
)

// heuristicHintProvider computes a copilot hint for the human seat using
// the same math the Decision Kernel runs for bots, without an LLM call or
// a persona: the advice is the raw equity/pot-odds picture plus a suggested
// action: fold when calling a bet has negative EV, a minimum raise when
// equity is above 65% and a raise is legal, otherwise call.
type heuristicHintProvider struct {
	rng *rand.Rand
}

func newHeuristicHintProvider() *heuristicHintProvider {
	return &heuristicHintProvider{rng: rand.New(rand.NewSource(7))}
}

func (h *heuristicHintProvider) Hint(ctx context.Context, legal []poker.LegalAction, hole []poker.Card, public poker.PublicState) events.Advice {
	pub := toDecisionPublicStateForHint(public, hole)
	analysis := decision.Analyze(h.rng, decision.DefaultEquityConfig(), hole, pub)

	suggested := "call"
	amount := int64(0)
	rationale := fmt.Sprintf("equity %.0f%%, pot odds %.0f%%", analysis.Equity*100, analysis.PotOdds*100)

	switch {
	case analysis.EVCall < 0 && pub.ToCall > 0:
		suggested = "fold"
	case analysis.Equity > 0.65:
		for _, la := range legal {
			if la.Action == poker.ActionBet || la.Action == poker.ActionRaise {
				suggested = "raise"
				amount = la.MinAmount
				break
			}
		}
	}

	return events.Advice{
		Suggested: suggested,
		Amount:    amount,
		Equity:    analysis.Equity,
		Rationale: rationale,
	}
}

func toDecisionPublicStateForHint(public poker.PublicState, hole []poker.Card) decision.PublicState {
	toCall := public.CurrentBet
	var oppStacks []int64
	active := 0
	for _, p := range public.Players {
		if !p.Folded {
			active++
			oppStacks = append(oppStacks, p.Balance)
		}
	}
	return decision.PublicState{
		Pot:             public.Pot,
		CurrentBet:      public.CurrentBet,
		ToCall:          toCall,
		CommunityCards:  public.CommunityCards,
		OpponentStacks:  oppStacks,
		ActiveOpponents: active,
	}
}
