package decision

import (
	"fmt"

	"github.com/llmholdem/server/pkg/poker"
)

// MadeHandDescription classifies the hero's made hand in human-readable
// terms, distinguishing hole-pair vs board-pair, top/middle/bottom pair, and
// trips vs set — the distinctions the rank class alone does not carry.
func MadeHandDescription(hole []poker.Card, board []poker.Card) string {
	if len(board) == 0 {
		return "preflop"
	}
	if len(hole)+len(board) < 5 {
		return "incomplete board"
	}

	value, err := poker.EvaluateHand(hole, board)
	if err != nil {
		return "unknown"
	}

	switch value.Rank {
	case poker.Pair:
		return describePair(hole, board, value)
	case poker.ThreeOfAKind:
		return describeTrips(hole, board)
	default:
		return poker.GetHandDescription(value)
	}
}

func boardRanks(board []poker.Card) []int {
	ranks := make([]int, 0, len(board))
	for _, c := range board {
		ranks = append(ranks, rankOf(poker.Value(c.GetValue())))
	}
	return ranks
}

func describePair(hole []poker.Card, board []poker.Card, value poker.HandValue) string {
	if len(hole) == 2 && hole[0].GetValue() == hole[1].GetValue() {
		return "pocket pair"
	}

	holeRanks := map[int]bool{}
	for _, c := range hole {
		holeRanks[rankOf(poker.Value(c.GetValue()))] = true
	}
	br := boardRanks(board)

	for _, r := range br {
		if holeRanks[r] {
			sorted := append([]int{}, br...)
			maxBoard := sorted[0]
			for _, x := range sorted[1:] {
				if x > maxBoard {
					maxBoard = x
				}
			}
			minBoard := sorted[0]
			for _, x := range sorted[1:] {
				if x < minBoard {
					minBoard = x
				}
			}
			switch {
			case r == maxBoard:
				return "top pair"
			case r == minBoard:
				return "bottom pair"
			default:
				return "middle pair"
			}
		}
	}
	return fmt.Sprintf("board pair (%s)", poker.GetHandDescription(value))
}

func describeTrips(hole []poker.Card, board []poker.Card) string {
	if len(hole) == 2 && hole[0].GetValue() == hole[1].GetValue() {
		return "set"
	}
	return "trips"
}
