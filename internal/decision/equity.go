package decision

import (
	"math/rand"

	"github.com/llmholdem/server/pkg/poker"
)

// fullDeck52 returns every card in a standard deck, in a fixed order so that
// callers can shuffle a copy deterministically with a seeded rng.
func fullDeck52() []poker.Card {
	suits := []poker.Suit{poker.Spades, poker.Hearts, poker.Diamonds, poker.Clubs}
	values := []poker.Value{poker.Ace, poker.Two, poker.Three, poker.Four, poker.Five, poker.Six, poker.Seven,
		poker.Eight, poker.Nine, poker.Ten, poker.Jack, poker.Queen, poker.King}
	cards := make([]poker.Card, 0, 52)
	for _, s := range suits {
		for _, v := range values {
			cards = append(cards, poker.NewCardFromSuitValue(s, v))
		}
	}
	return cards
}

func cardKey(c poker.Card) string {
	return c.String()
}

// MonteCarloEquity estimates the hero's equity against `opponents` random
// hands via a full-information rollout over cfg.Iterations trials. It is
// deterministic given the same rng state and inputs, using the chehsunliu-
// backed 7-card evaluator for showdown comparisons.
func MonteCarloEquity(rng *rand.Rand, cfg EquityConfig, hole []poker.Card, board []poker.Card, opponents int) float64 {
	if opponents <= 0 {
		return 1
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 300
	}

	dead := make(map[string]bool, len(hole)+len(board))
	for _, c := range hole {
		dead[cardKey(c)] = true
	}
	for _, c := range board {
		dead[cardKey(c)] = true
	}

	remaining := make([]poker.Card, 0, 52)
	for _, c := range fullDeck52() {
		if !dead[cardKey(c)] {
			remaining = append(remaining, c)
		}
	}

	cardsNeeded := (5 - len(board)) + opponents*2

	wins := 0.0
	trials := 0
	for i := 0; i < iterations; i++ {
		if cardsNeeded > len(remaining) {
			break
		}
		shuffled := append([]poker.Card{}, remaining...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		draw := shuffled[:cardsNeeded]
		fullBoard := append(append([]poker.Card{}, board...), draw[:5-len(board)]...)
		oppHoles := draw[5-len(board):]

		heroValue, err := poker.EvaluateHand(hole, fullBoard)
		if err != nil {
			continue
		}

		won := true
		tied := false
		for o := 0; o < opponents; o++ {
			oppHole := oppHoles[o*2 : o*2+2]
			oppValue, err := poker.EvaluateHand(oppHole, fullBoard)
			if err != nil {
				continue
			}
			cmp := poker.CompareHands(heroValue, oppValue)
			if cmp < 0 {
				won = false
				break
			}
			if cmp == 0 {
				tied = true
			}
		}

		trials++
		if won {
			if tied {
				wins += 0.5
			} else {
				wins += 1
			}
		}
	}

	if trials == 0 {
		return 0.5
	}
	return wins / float64(trials)
}
