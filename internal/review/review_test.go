package review

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmholdem/server/internal/llmclient"
	"github.com/llmholdem/server/internal/store"
	"github.com/llmholdem/server/pkg/poker"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llmclient.Message, temperature float32, maxTokens int) (string, error) {
	return f.reply, f.err
}

func newTestStoreWithRound(t *testing.T, boardLen int) (*store.Store, string, string) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	u, err := st.CreateUser("hero", "hero@example.com", "hash")
	require.NoError(t, err)
	sess, err := st.CreateSession(u.ID, "{}")
	require.NoError(t, err)

	board := []poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Ace),
		poker.NewCardFromSuitValue(poker.Hearts, poker.King),
		poker.NewCardFromSuitValue(poker.Clubs, poker.Queen),
		poker.NewCardFromSuitValue(poker.Diamonds, poker.Jack),
		poker.NewCardFromSuitValue(poker.Spades, poker.Ten),
	}[:boardLen]
	boardJSON, err := json.Marshal(board)
	require.NoError(t, err)

	h, err := st.CreateRound(sess.ID, 1, store.Hand{
		HeroHoleJSON:  "[]",
		BoardJSON:     string(boardJSON),
		ActionLogJSON: "{}",
		WinnersJSON:   "[]",
		HandInfoJSON:  `""`,
		HeroProfit:    10,
		Pot:           50,
	})
	require.NoError(t, err)

	return st, u.ID, h.ID
}

func TestReview_OverridesHallucinatedBoardWithActualCards(t *testing.T) {
	st, userID, roundID := newTestStoreWithRound(t, 5)
	require.NoError(t, st.SetLLMKey(userID, "sk-user-key"))

	reply := "PREFLOP: looked strong.\nFLOP: hit top pair.\nTURN: picked up a flush draw.\nRIVER: missed but value bet.\n"
	factory := func(key string) (llmclient.Client, bool) {
		return &fakeLLM{reply: "PREFLOP: board was [2c 2d 2h]\n" + reply}, true
	}

	svc := NewService(st, "", factory, nil)
	result := svc.Review(context.Background(), userID, roundID)

	require.Empty(t, result.Error)
	require.Len(t, result.Streets, 4)
	require.Equal(t, "preflop", result.Streets[0].Street)
	require.Empty(t, result.Streets[0].CommunityCards)
	require.Len(t, result.Streets[1].CommunityCards, 3)
	require.Len(t, result.Streets[2].CommunityCards, 4)
	require.Len(t, result.Streets[3].CommunityCards, 5)
}

func TestReview_FallsBackToEnvironmentKeyWhenUserHasNone(t *testing.T) {
	st, userID, roundID := newTestStoreWithRound(t, 3)

	factory := func(key string) (llmclient.Client, bool) {
		require.Equal(t, "env-key", key)
		return &fakeLLM{reply: "PREFLOP: ok\nFLOP: ok\nTURN: ok\nRIVER: ok"}, true
	}

	svc := NewService(st, "env-key", factory, nil)
	result := svc.Review(context.Background(), userID, roundID)

	require.Empty(t, result.Error)
}

func TestReview_ErrorsWhenNoKeyAvailable(t *testing.T) {
	st, userID, roundID := newTestStoreWithRound(t, 3)

	factory := func(key string) (llmclient.Client, bool) { return nil, true }
	svc := NewService(st, "", factory, nil)
	result := svc.Review(context.Background(), userID, roundID)

	require.NotEmpty(t, result.Error)
}

func TestReview_ErrorsWhenRoundNotFound(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	factory := func(key string) (llmclient.Client, bool) { return &fakeLLM{}, true }
	svc := NewService(st, "env-key", factory, nil)
	result := svc.Review(context.Background(), "user-x", "round-x")

	require.NotEmpty(t, result.Error)
}

func TestActualBoardThroughStreet(t *testing.T) {
	board := []poker.Card{
		poker.NewCardFromSuitValue(poker.Spades, poker.Ace),
		poker.NewCardFromSuitValue(poker.Hearts, poker.King),
		poker.NewCardFromSuitValue(poker.Clubs, poker.Queen),
		poker.NewCardFromSuitValue(poker.Diamonds, poker.Jack),
		poker.NewCardFromSuitValue(poker.Spades, poker.Ten),
	}

	require.Empty(t, actualBoardThroughStreet(board, 0))
	require.Len(t, actualBoardThroughStreet(board, 1), 3)
	require.Len(t, actualBoardThroughStreet(board, 2), 4)
	require.Len(t, actualBoardThroughStreet(board, 3), 5)
}

func TestSplitByStreet_ParsesAllFourPrefixesCaseInsensitively(t *testing.T) {
	reply := "preflop: solid open\nFlop: continuation bet\nTURN: checked back\nriver: value bet thin"
	out := splitByStreet(reply)

	require.Equal(t, "solid open", out["preflop"])
	require.Equal(t, "continuation bet", out["flop"])
	require.Equal(t, "checked back", out["turn"])
	require.Equal(t, "value bet thin", out["river"])
}

func TestSplitByStreet_MissingStreetDefaultsToEmpty(t *testing.T) {
	out := splitByStreet("PREFLOP: only this one")
	require.Equal(t, "only this one", out["preflop"])
	require.Empty(t, out["flop"])
	require.Empty(t, out["turn"])
	require.Empty(t, out["river"])
}
