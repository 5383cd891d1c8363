package decision

import (
	"fmt"
	"math/rand"

	"github.com/llmholdem/server/pkg/poker"
)

// EquityConfig tunes the Monte Carlo equity rollout.
type EquityConfig struct {
	Iterations int
}

func DefaultEquityConfig() EquityConfig {
	return EquityConfig{Iterations: 300}
}

// BoardTexture classifies the wetness of the community cards.
type BoardTexture string

const (
	TextureDry     BoardTexture = "dry"
	TextureSemiWet BoardTexture = "semi_wet"
	TextureWet     BoardTexture = "wet"
)

// Analysis bundles every math sub-contract the Harrington prompt needs; the
// Standard prompt uses only Equity/PotOdds/EVCall.
type Analysis struct {
	Equity           float64
	PotOdds          float64
	EVCall           float64
	EffectiveStack   int64
	EffectiveStackBB float64
	SPR              float64
	SPRValid         bool
	Texture          BoardTexture
	Paired          bool
	FlushPossible   bool
	FlushDraw       bool
	StraightPossible bool
	StraightDraw    bool
	MadeHand        string
	ToCall          int64
}

// Analyze computes every math sub-contract for the current decision point.
func Analyze(rng *rand.Rand, cfg EquityConfig, hole []poker.Card, pub PublicState) Analysis {
	a := Analysis{ToCall: pub.ToCall}

	a.Equity = MonteCarloEquity(rng, cfg, hole, pub.CommunityCards, pub.ActiveOpponents)
	a.PotOdds = PotOdds(pub.ToCall, pub.Pot)
	a.EVCall = EVCall(a.Equity, pub.Pot, pub.ToCall)

	a.EffectiveStack = EffectiveStack(pub.MyStack, pub.OpponentStacks)
	if pub.BigBlind > 0 {
		a.EffectiveStackBB = float64(a.EffectiveStack) / float64(pub.BigBlind)
	}
	if pub.Pot > 0 {
		a.SPR = float64(a.EffectiveStack) / float64(pub.Pot)
		a.SPRValid = true
	}

	a.Texture, a.Paired, a.FlushPossible, a.FlushDraw, a.StraightPossible, a.StraightDraw = ClassifyBoard(pub.CommunityCards)
	a.MadeHand = MadeHandDescription(hole, pub.CommunityCards)

	return a
}

// PotOdds is to_call / (pot + to_call), 0 if to_call <= 0.
func PotOdds(toCall, pot int64) float64 {
	if toCall <= 0 {
		return 0
	}
	return float64(toCall) / float64(pot+toCall)
}

// EVCall is equity*pot - (1-equity)*to_call.
func EVCall(equity float64, pot, toCall int64) float64 {
	if toCall <= 0 {
		return 0
	}
	return equity*float64(pot) - (1-equity)*float64(toCall)
}

// EffectiveStack is min(my_stack, min(active opponent stacks)).
func EffectiveStack(my int64, opponents []int64) int64 {
	min := my
	for _, s := range opponents {
		if s < min {
			min = s
		}
	}
	return min
}

// SPRString renders the stack-to-pot ratio, "N/A" if pot is 0.
func (a Analysis) SPRString() string {
	if !a.SPRValid {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", a.SPR)
}
