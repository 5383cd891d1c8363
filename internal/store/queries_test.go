package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUser_AndLookupByNameAndID(t *testing.T) {
	s := newTestStore(t)

	u, err := s.CreateUser("alice", "alice@example.com", "hash")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.True(t, u.Active)
	require.False(t, u.IsAdmin)

	byName, err := s.UserByName("alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	byID, err := s.UserByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Name)
}

func TestUserByName_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UserByName("nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetAndClearLLMKey(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("bob", "bob@example.com", "hash")
	require.NoError(t, err)

	require.NoError(t, s.SetLLMKey(u.ID, "sk-test"))
	got, err := s.UserByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, "sk-test", got.LLMKey.String)
	require.True(t, got.LLMKey.Valid)

	require.NoError(t, s.ClearLLMKey(u.ID))
	got, err = s.UserByID(u.ID)
	require.NoError(t, err)
	require.False(t, got.LLMKey.Valid)
}

func TestCreateSession_AndGetScopedToUser(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("carol", "carol@example.com", "hash")
	require.NoError(t, err)

	sess, err := s.CreateSession(u.ID, `{"small_blind":1}`)
	require.NoError(t, err)
	require.Equal(t, u.ID, sess.UserID)

	got, err := s.GetSession(u.ID, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)

	_, err = s.GetSession("someone-else", sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListSessions_MostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("dave", "dave@example.com", "hash")
	require.NoError(t, err)

	_, err = s.CreateSession(u.ID, "{}")
	require.NoError(t, err)
	newer, err := s.CreateSession(u.ID, "{}")
	require.NoError(t, err)

	sessions, err := s.ListSessions(u.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, newer.ID, sessions[0].ID)
}

func TestUpdateSessionStats_PartialUpdate(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("erin", "erin@example.com", "hash")
	require.NoError(t, err)
	sess, err := s.CreateSession(u.ID, "{}")
	require.NoError(t, err)

	hands := 5
	profit := int64(-120)
	require.NoError(t, s.UpdateSessionStats(u.ID, sess.ID, SessionUpdate{HandsPlayed: &hands, NetProfit: &profit}))

	got, err := s.GetSession(u.ID, sess.ID)
	require.NoError(t, err)
	require.Equal(t, 5, got.HandsPlayed)
	require.Equal(t, int64(-120), got.NetProfit)
}

func TestCreateRound_AndGetRoundScopedToUser(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("frank", "frank@example.com", "hash")
	require.NoError(t, err)
	sess, err := s.CreateSession(u.ID, "{}")
	require.NoError(t, err)

	h, err := s.CreateRound(sess.ID, 1, Hand{
		HeroHoleJSON:  "[]",
		BoardJSON:     "[]",
		ActionLogJSON: `{"hero_vpip":true}`,
		WinnersJSON:   "[]",
		HandInfoJSON:  `"pair"`,
		HeroProfit:    50,
		Pot:           100,
	})
	require.NoError(t, err)

	got, err := s.GetRound(u.ID, h.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), got.HeroProfit)

	_, err = s.GetRound("someone-else", h.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetSessionRounds_OrderedByRoundNumber(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("gina", "gina@example.com", "hash")
	require.NoError(t, err)
	sess, err := s.CreateSession(u.ID, "{}")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, err := s.CreateRound(sess.ID, i, Hand{HeroHoleJSON: "[]", BoardJSON: "[]", ActionLogJSON: "{}", WinnersJSON: "[]", HandInfoJSON: `""`})
		require.NoError(t, err)
	}

	rounds, err := s.GetSessionRounds(u.ID, sess.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	require.Equal(t, 1, rounds[0].RoundNumber)
	require.Equal(t, 3, rounds[2].RoundNumber)
}

func TestUpdateRoundReview_PersistsAndScoped(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("hank", "hank@example.com", "hash")
	require.NoError(t, err)
	sess, err := s.CreateSession(u.ID, "{}")
	require.NoError(t, err)
	h, err := s.CreateRound(sess.ID, 1, Hand{HeroHoleJSON: "[]", BoardJSON: "[]", ActionLogJSON: "{}", WinnersJSON: "[]", HandInfoJSON: `""`})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRoundReview(u.ID, h.ID, `{"streets":[]}`))

	got, err := s.GetRound(u.ID, h.ID)
	require.NoError(t, err)
	require.True(t, got.ReviewJSON.Valid)
	require.Equal(t, `{"streets":[]}`, got.ReviewJSON.String)

	err = s.UpdateRoundReview("someone-else", h.ID, `{}`)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecomputeStats_AggregatesAcrossSessionsAndHands(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("iris", "iris@example.com", "hash")
	require.NoError(t, err)

	sess1, err := s.CreateSession(u.ID, "{}")
	require.NoError(t, err)
	sess2, err := s.CreateSession(u.ID, "{}")
	require.NoError(t, err)

	_, err = s.CreateRound(sess1.ID, 1, Hand{
		HeroHoleJSON: "[]", BoardJSON: "[]", WinnersJSON: "[]", HandInfoJSON: `""`,
		ActionLogJSON: `{"hero_vpip":true}`, HeroProfit: 100,
	})
	require.NoError(t, err)
	_, err = s.CreateRound(sess1.ID, 2, Hand{
		HeroHoleJSON: "[]", BoardJSON: "[]", WinnersJSON: "[]", HandInfoJSON: `""`,
		ActionLogJSON: `{"hero_vpip":false}`, HeroProfit: -40,
	})
	require.NoError(t, err)
	_, err = s.CreateRound(sess2.ID, 1, Hand{
		HeroHoleJSON: "[]", BoardJSON: "[]", WinnersJSON: "[]", HandInfoJSON: `""`,
		ActionLogJSON: `{"hero_vpip":true}`, HeroProfit: 20,
	})
	require.NoError(t, err)

	stats, err := s.RecomputeStats(u.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalSessions)
	require.Equal(t, 3, stats.TotalHands)
	require.Equal(t, int64(80), stats.TotalProfit)
	require.InDelta(t, 200.0/3.0, stats.WinRate, 0.01)
	require.InDelta(t, 200.0/3.0, stats.VPIP, 0.01)

	cached, err := s.GetOrCreateStats(u.ID)
	require.NoError(t, err)
	require.Equal(t, stats.TotalHands, cached.TotalHands)
}

func TestGetOrCreateStats_CreatesZeroedRowWhenAbsent(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("jack", "jack@example.com", "hash")
	require.NoError(t, err)

	st, err := s.GetOrCreateStats(u.ID)
	require.NoError(t, err)
	require.Equal(t, 0, st.TotalSessions)
	require.Equal(t, 0, st.TotalHands)
}

func TestHeroVPIP_FalseOnMalformedActionLog(t *testing.T) {
	s := newTestStore(t)
	u, err := s.CreateUser("kara", "kara@example.com", "hash")
	require.NoError(t, err)
	sess, err := s.CreateSession(u.ID, "{}")
	require.NoError(t, err)
	_, err = s.CreateRound(sess.ID, 1, Hand{
		HeroHoleJSON: "[]", BoardJSON: "[]", WinnersJSON: "[]", HandInfoJSON: `""`,
		ActionLogJSON: "not json", HeroProfit: 10,
	})
	require.NoError(t, err)

	stats, err := s.RecomputeStats(u.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, stats.VPIP)
}
