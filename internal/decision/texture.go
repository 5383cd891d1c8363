package decision

import "github.com/llmholdem/server/pkg/poker"

func rankOf(v poker.Value) int {
	switch v {
	case poker.Two:
		return 2
	case poker.Three:
		return 3
	case poker.Four:
		return 4
	case poker.Five:
		return 5
	case poker.Six:
		return 6
	case poker.Seven:
		return 7
	case poker.Eight:
		return 8
	case poker.Nine:
		return 9
	case poker.Ten:
		return 10
	case poker.Jack:
		return 11
	case poker.Queen:
		return 12
	case poker.King:
		return 13
	case poker.Ace:
		return 14
	}
	return 0
}

// ClassifyBoard buckets the community cards into dry/semi_wet/wet, along
// with the raw flags that drove the classification.
func ClassifyBoard(board []poker.Card) (texture BoardTexture, paired, flushPossible, flushDraw, straightPossible, straightDraw bool) {
	if len(board) < 3 {
		return TextureDry, false, false, false, false, false
	}

	suitCounts := map[string]int{}
	valueCounts := map[int]int{}
	ranks := make([]int, 0, len(board))
	for _, c := range board {
		suitCounts[c.GetSuit()]++
		r := rankOf(poker.Value(c.GetValue()))
		valueCounts[r]++
		ranks = append(ranks, r)
	}

	for _, n := range valueCounts {
		if n >= 2 {
			paired = true
		}
	}
	for _, n := range suitCounts {
		if n >= 3 {
			flushPossible = true
		}
		if n == 2 {
			flushDraw = true
		}
	}

	// 3-card sliding window rank-span check for straight possibility/draw.
	for i := 0; i+2 < len(ranks); i++ {
		window := []int{ranks[i], ranks[i+1], ranks[i+2]}
		span := maxInt(window) - minInt(window)
		if span <= 4 {
			straightPossible = true
		}
		if span <= 3 {
			straightDraw = true
		}
	}

	wetness := 0
	if paired {
		wetness++
	}
	if flushPossible {
		wetness += 2
	} else if flushDraw {
		wetness++
	}
	if straightPossible {
		wetness += 2
	} else if straightDraw {
		wetness++
	}

	switch {
	case wetness >= 3:
		texture = TextureWet
	case wetness >= 1:
		texture = TextureSemiWet
	default:
		texture = TextureDry
	}
	return
}

func maxInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
