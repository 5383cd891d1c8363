// Package review implements the post-hand AI review service: given a
// completed hand, ask an LLM for per-street commentary, then replace
// whatever community cards it hallucinated with the cards actually dealt.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/decred/slog"

	"github.com/llmholdem/server/internal/events"
	"github.com/llmholdem/server/internal/llmclient"
	"github.com/llmholdem/server/internal/store"
	"github.com/llmholdem/server/pkg/poker"
)

// LLMFactory builds an llmclient.Client for a resolved API key.
type LLMFactory func(key string) (llmclient.Client, bool)

// Service produces review_result payloads. It satisfies hub.Reviewer
// structurally.
type Service struct {
	store      *store.Store
	envLLMKey  string
	llmFactory LLMFactory
	log        slog.Logger
}

// NewService builds a review service. envLLMKey is the environment-default
// tier used when neither the user nor (in a future extension) the session
// carries a key.
func NewService(st *store.Store, envLLMKey string, llmFactory LLMFactory, log slog.Logger) *Service {
	if log == nil {
		log = slog.Disabled
	}
	return &Service{store: st, envLLMKey: envLLMKey, llmFactory: llmFactory, log: log}
}

var streets = []string{"preflop", "flop", "turn", "river"}

// Review loads the hand, asks an LLM for commentary, and returns a
// review_result whose per-street community cards are forced to match the
// persisted board exactly, regardless of what the model claims.
func (s *Service) Review(ctx context.Context, userID, roundID string) events.ReviewResult {
	hand, err := s.store.GetRound(userID, roundID)
	if err != nil {
		return events.ReviewResult{Error: fmt.Sprintf("round not found: %v", err)}
	}

	var board []poker.Card
	if err := json.Unmarshal([]byte(hand.BoardJSON), &board); err != nil {
		return events.ReviewResult{Error: "stored board is unreadable"}
	}

	key, tier := s.resolveLLMKey(userID)
	if key == "" {
		return events.ReviewResult{Error: "no LLM key configured at any tier"}
	}
	llm, ok := s.llmFactory(key)
	if !ok {
		return events.ReviewResult{Error: fmt.Sprintf("llm provider unavailable (tier=%s)", tier)}
	}

	reply, err := llm.Chat(ctx, []llmclient.Message{
		{Role: "system", Content: "You are reviewing a completed hand of a simulated poker game for a game-theory study. Comment briefly on each street: preflop, flop, turn, river."},
		{Role: "user", Content: s.buildPrompt(hand, board)},
	}, 0.3, 400)
	if err != nil {
		return events.ReviewResult{Error: fmt.Sprintf("llm call failed (tier=%s): %v", tier, err)}
	}

	commentary := splitByStreet(reply)

	out := make([]events.StreetReview, 0, len(streets))
	for i, street := range streets {
		out = append(out, events.StreetReview{
			Street:         street,
			CommunityCards: actualBoardThroughStreet(board, i),
			Commentary:     commentary[street],
		})
	}
	return events.ReviewResult{Streets: out}
}

func (s *Service) resolveLLMKey(userID string) (string, string) {
	u, err := s.store.UserByID(userID)
	if err == nil && u.LLMKey.Valid && u.LLMKey.String != "" {
		return u.LLMKey.String, "user"
	}
	if s.envLLMKey != "" {
		return s.envLLMKey, "environment"
	}
	return "", "none"
}

func (s *Service) buildPrompt(hand store.Hand, board []poker.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hand #%d. Final board: %v. Pot: %d. Hero profit: %d.\n", hand.RoundNumber, board, hand.Pot, hand.HeroProfit)
	fmt.Fprintf(&b, "Action log: %s\n", hand.ActionLogJSON)
	fmt.Fprintf(&b, "Winners: %s\n", hand.WinnersJSON)
	b.WriteString("Respond with one short paragraph per line, prefixed exactly with 'PREFLOP:', 'FLOP:', 'TURN:', 'RIVER:'.")
	return b.String()
}

// actualBoardThroughStreet returns the prefix of the persisted board that
// was actually visible at the given street index (0=preflop..3=river).
func actualBoardThroughStreet(board []poker.Card, streetIdx int) []poker.Card {
	switch streetIdx {
	case 0:
		return nil
	case 1:
		return firstN(board, 3)
	case 2:
		return firstN(board, 4)
	default:
		return firstN(board, 5)
	}
}

func firstN(cards []poker.Card, n int) []poker.Card {
	if len(cards) < n {
		n = len(cards)
	}
	return append([]poker.Card{}, cards[:n]...)
}

// splitByStreet parses the model's PREFLOP:/FLOP:/TURN:/RIVER: lines into a
// per-street commentary map; any street the model skipped gets an empty
// string rather than failing the whole review.
func splitByStreet(reply string) map[string]string {
	out := map[string]string{"preflop": "", "flop": "", "turn": "", "river": ""}
	prefixes := map[string]string{
		"PREFLOP:": "preflop",
		"FLOP:":    "flop",
		"TURN:":    "turn",
		"RIVER:":   "river",
	}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		for prefix, key := range prefixes {
			if strings.HasPrefix(strings.ToUpper(line), prefix) {
				out[key] = strings.TrimSpace(line[len(prefix):])
			}
		}
	}
	return out
}
