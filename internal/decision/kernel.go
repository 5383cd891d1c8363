// Package decision implements the Decision Kernel: a pure-ish function
// mapping persona, legal actions, hole cards, and public game state to a
// validated (action, amount) pair, wrapping an LLM call with math analysis
// and a safety-net validation/clamping layer.
package decision

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/llmholdem/server/internal/llmclient"
	"github.com/llmholdem/server/internal/persona"
	"github.com/llmholdem/server/pkg/poker"
)

// ActionTag is the normalized action space the kernel returns:
// fold, call (amount 0 means check), raise.
type ActionTag string

const (
	Fold  ActionTag = "fold"
	Call  ActionTag = "call"
	Raise ActionTag = "raise"
)

// LegalAction is one action the kernel is permitted to return right now.
// A Call entry with MinAmount==MaxAmount==0 represents a free check.
type LegalAction struct {
	Action    ActionTag
	MinAmount int64
	MaxAmount int64
}

// legalActionsFromEngine converts the rules engine's seat-facing legal
// action list into the kernel's {fold, call, raise} space.
func legalActionsFromEngine(engineLegal []poker.LegalAction) []LegalAction {
	out := make([]LegalAction, 0, len(engineLegal))
	for _, la := range engineLegal {
		switch la.Action {
		case poker.ActionFold:
			out = append(out, LegalAction{Action: Fold})
		case poker.ActionCheck:
			out = append(out, LegalAction{Action: Call, MinAmount: 0, MaxAmount: 0})
		case poker.ActionCall:
			out = append(out, LegalAction{Action: Call, MinAmount: la.MinAmount, MaxAmount: la.MaxAmount})
		case poker.ActionBet, poker.ActionRaise:
			out = append(out, LegalAction{Action: Raise, MinAmount: la.MinAmount, MaxAmount: la.MaxAmount})
		}
	}
	return out
}

// PublicState is the information visible to every seat: pot, current bet,
// board, and every opponent's stack/bet/folded status (never their cards).
type PublicState struct {
	Pot             int64
	CurrentBet      int64
	ToCall          int64
	BigBlind        int64
	CommunityCards  []poker.Card
	MyStack         int64
	OpponentStacks  []int64
	ActiveOpponents int
}

// Kernel evaluates decisions for one bot seat.
type Kernel struct {
	LLM          llmclient.Client
	EquityConfig EquityConfig
	RNG          *rand.Rand
}

// NewKernel builds a Kernel. rng may be nil, in which case a fresh
// generator seeded with the fixed value 1 is used, so rollouts are
// deterministic per Kernel.
func NewKernel(llm llmclient.Client, rng *rand.Rand) *Kernel {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Kernel{LLM: llm, EquityConfig: DefaultEquityConfig(), RNG: rng}
}

// Decide implements decide(persona, legal_actions, hole_cards, public_state,
// llm_client) -> (action_tag, amount). legal is the engine's seat-facing
// legal-action list for this turn.
func (k *Kernel) Decide(ctx context.Context, p persona.Persona, engineLegal []poker.LegalAction, hole []poker.Card, pub PublicState) (ActionTag, int64) {
	legal := legalActionsFromEngine(engineLegal)
	analysis := Analyze(k.RNG, k.EquityConfig, hole, pub)

	action, amount, err := k.askLLM(ctx, p, legal, hole, pub, analysis)
	if err != nil {
		action, amount = Fallback(p.Difficulty, legal, analysis, k.RNG)
	}

	return validate(action, amount, legal, pub)
}

func (k *Kernel) askLLM(ctx context.Context, p persona.Persona, legal []LegalAction, hole []poker.Card, pub PublicState, analysis Analysis) (ActionTag, int64, error) {
	if k.LLM == nil {
		return "", 0, fmt.Errorf("no llm client configured")
	}
	prompt := BuildPrompt(p, legal, hole, pub, analysis, k.RNG.Float64()*100)
	reply, err := k.LLM.Chat(ctx, []llmclient.Message{
		{Role: "system", Content: systemInstruction(p)},
		{Role: "user", Content: prompt},
	}, 0.7, 200)
	if err != nil {
		return "", 0, err
	}
	return ParseDecision(reply)
}

func systemInstruction(p persona.Persona) string {
	return fmt.Sprintf(
		"You are simulating a poker opponent with the following style: %s. %s Respond with exactly one line: ACTION=<fold|call|raise> AMOUNT=<integer>.",
		p.Name, p.Description,
	)
}
