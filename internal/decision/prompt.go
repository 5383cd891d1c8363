package decision

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/llmholdem/server/internal/persona"
	"github.com/llmholdem/server/pkg/poker"
)

// BuildPrompt renders the Standard or Harrington prompt shape depending on
// the persona's style.
func BuildPrompt(p persona.Persona, legal []LegalAction, hole []poker.Card, pub PublicState, a Analysis, rngValue float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your hole cards: %s\n", cardsString(hole))
	fmt.Fprintf(&b, "Board: %s\n", cardsString(pub.CommunityCards))
	fmt.Fprintf(&b, "Pot: %d, current bet: %d, to call: %d\n", pub.Pot, pub.CurrentBet, pub.ToCall)
	fmt.Fprintf(&b, "Your stack: %d\n", pub.MyStack)
	fmt.Fprintf(&b, "Equity: %.1f%%, pot odds: %.1f%%, EV(call): %.1f\n", a.Equity*100, a.PotOdds*100, a.EVCall)

	if p.Style == persona.Harrington {
		fmt.Fprintf(&b, "Effective stack: %.1f BB\n", a.EffectiveStackBB)
		fmt.Fprintf(&b, "SPR: %s\n", a.SPRString())
		fmt.Fprintf(&b, "Board texture: %s (paired=%v flush_possible=%v flush_draw=%v straight_possible=%v straight_draw=%v)\n",
			a.Texture, a.Paired, a.FlushPossible, a.FlushDraw, a.StraightPossible, a.StraightDraw)
		fmt.Fprintf(&b, "Made hand: %s\n", a.MadeHand)
		fmt.Fprintf(&b, "rng_value: %.2f\n", rngValue)
	}

	fmt.Fprintf(&b, "Legal actions: %s\n", legalActionsString(legal))
	b.WriteString("Choose your action.")

	return b.String()
}

func cardsString(cards []poker.Card) string {
	if len(cards) == 0 {
		return "none"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func legalActionsString(legal []LegalAction) string {
	parts := make([]string, 0, len(legal))
	for _, la := range legal {
		switch la.Action {
		case Fold:
			parts = append(parts, "fold")
		case Call:
			if la.MaxAmount == 0 {
				parts = append(parts, "call(0)=check")
			} else {
				parts = append(parts, fmt.Sprintf("call(%d)", la.MaxAmount))
			}
		case Raise:
			parts = append(parts, fmt.Sprintf("raise(%d-%d)", la.MinAmount, la.MaxAmount))
		}
	}
	return strings.Join(parts, ", ")
}

var decisionLine = regexp.MustCompile(`(?i)ACTION\s*=\s*([a-z_\-]+)\s+AMOUNT\s*=\s*(-?\d+)`)

// ParseDecision parses an LLM reply of the form
// "ACTION=<fold|call|raise|check|all_in> AMOUNT=<integer>" into an action
// tag and amount. Returns an error if the reply is unparseable.
func ParseDecision(reply string) (ActionTag, int64, error) {
	m := decisionLine.FindStringSubmatch(reply)
	if m == nil {
		return "", 0, fmt.Errorf("unparseable decision reply: %q", reply)
	}
	amount, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("unparseable amount: %w", err)
	}
	return ActionTag(strings.ToLower(m[1])), amount, nil
}
