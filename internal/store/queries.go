package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateUser inserts a new user row. Uniqueness on name/email is enforced by
// the schema's UNIQUE constraints; auth.Service also checks the name before
// calling this.
func (s *Store) CreateUser(name, email, passwordHash string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    time.Now(),
	}
	_, err := s.db.Exec(
		`INSERT INTO users (id, name, email, password_hash, active, is_admin, created_at) VALUES (?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Active, u.IsAdmin, u.CreatedAt,
	)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (User, error) {
	var u User
	var active, admin int
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &active, &admin, &u.LLMKey, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.Active = active != 0
	u.IsAdmin = admin != 0
	return u, nil
}

const userColumns = "id, name, email, password_hash, active, is_admin, llm_key, created_at"

// UserByID returns a user by id, ErrNotFound if absent.
func (s *Store) UserByID(id string) (User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	return u, err
}

// UserByName returns a user by display name, ErrNotFound if absent.
func (s *Store) UserByName(name string) (User, error) {
	row := s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE name = ?`, name)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	return u, err
}

// SetLLMKey sets the user's account-scoped LLM API key.
func (s *Store) SetLLMKey(userID, key string) error {
	_, err := s.db.Exec(`UPDATE users SET llm_key = ? WHERE id = ?`, key, userID)
	return err
}

// ClearLLMKey clears the user's account-scoped LLM API key.
func (s *Store) ClearLLMKey(userID string) error {
	_, err := s.db.Exec(`UPDATE users SET llm_key = NULL WHERE id = ?`, userID)
	return err
}

// CreateSession creates a new session for user with the given opaque config
// blob (blinds, initial stack, optional in-session LLM key).
func (s *Store) CreateSession(userID, configJSON string) (Session, error) {
	sess := Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		StartedAt:  time.Now(),
		ConfigJSON: configJSON,
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, user_id, started_at, config_json) VALUES (?,?,?,?)`,
		sess.ID, sess.UserID, sess.StartedAt, sess.ConfigJSON,
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

const sessionColumns = "id, user_id, started_at, ended_at, hands_played, net_profit, win_rate, vpip, config_json"

func scanSession(row interface {
	Scan(dest ...interface{}) error
}) (Session, error) {
	var sess Session
	var endedAt sql.NullTime
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.StartedAt, &endedAt, &sess.HandsPlayed,
		&sess.NetProfit, &sess.WinRate, &sess.VPIP, &sess.ConfigJSON); err != nil {
		return Session{}, err
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return sess, nil
}

// GetSession returns a session scoped to userID, ErrNotFound otherwise.
func (s *Store) GetSession(userID, sessionID string) (Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	return sess, err
}

// ListSessions returns a user's sessions, most recent first.
func (s *Store) ListSessions(userID string, limit, offset int) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// UpdateSessionStats applies a partial update to a session's rolling
// totals, scoped to userID.
func (s *Store) UpdateSessionStats(userID, sessionID string, u SessionUpdate) error {
	if _, err := s.GetSession(userID, sessionID); err != nil {
		return err
	}
	if u.HandsPlayed != nil {
		if _, err := s.db.Exec(`UPDATE sessions SET hands_played = ? WHERE id = ?`, *u.HandsPlayed, sessionID); err != nil {
			return err
		}
	}
	if u.NetProfit != nil {
		if _, err := s.db.Exec(`UPDATE sessions SET net_profit = ? WHERE id = ?`, *u.NetProfit, sessionID); err != nil {
			return err
		}
	}
	if u.WinRate != nil {
		if _, err := s.db.Exec(`UPDATE sessions SET win_rate = ? WHERE id = ?`, *u.WinRate, sessionID); err != nil {
			return err
		}
	}
	if u.VPIP != nil {
		if _, err := s.db.Exec(`UPDATE sessions SET vpip = ? WHERE id = ?`, *u.VPIP, sessionID); err != nil {
			return err
		}
	}
	if u.EndedAt != nil {
		if _, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, *u.EndedAt, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// CreateRound inserts a new Hand row under session.
func (s *Store) CreateRound(sessionID string, roundNumber int, h Hand) (Hand, error) {
	h.ID = uuid.NewString()
	h.SessionID = sessionID
	h.RoundNumber = roundNumber
	h.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO hands (id, session_id, round_number, hero_hole_json, board_json, action_log_json,
			winners_json, hand_info_json, hero_profit, pot, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		h.ID, h.SessionID, h.RoundNumber, h.HeroHoleJSON, h.BoardJSON, h.ActionLogJSON,
		h.WinnersJSON, h.HandInfoJSON, h.HeroProfit, h.Pot, h.CreatedAt,
	)
	if err != nil {
		return Hand{}, fmt.Errorf("create round: %w", err)
	}
	return h, nil
}

const handColumns = "h.id, h.session_id, h.round_number, h.hero_hole_json, h.board_json, h.action_log_json, h.winners_json, h.hand_info_json, h.hero_profit, h.pot, h.review_json, h.created_at"

func scanHand(row interface {
	Scan(dest ...interface{}) error
}) (Hand, error) {
	var h Hand
	if err := row.Scan(&h.ID, &h.SessionID, &h.RoundNumber, &h.HeroHoleJSON, &h.BoardJSON,
		&h.ActionLogJSON, &h.WinnersJSON, &h.HandInfoJSON, &h.HeroProfit, &h.Pot, &h.ReviewJSON, &h.CreatedAt); err != nil {
		return Hand{}, err
	}
	return h, nil
}

// GetRound returns a hand scoped to userID via a join on sessions.
func (s *Store) GetRound(userID, roundID string) (Hand, error) {
	row := s.db.QueryRow(
		`SELECT `+handColumns+` FROM hands h JOIN sessions se ON se.id = h.session_id
		 WHERE h.id = ? AND se.user_id = ?`,
		roundID, userID,
	)
	h, err := scanHand(row)
	if err == sql.ErrNoRows {
		return Hand{}, ErrNotFound
	}
	return h, err
}

// GetSessionRounds returns every hand in a session scoped to userID.
func (s *Store) GetSessionRounds(userID, sessionID string) ([]Hand, error) {
	if _, err := s.GetSession(userID, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT `+handColumns+` FROM hands h WHERE h.session_id = ? ORDER BY h.round_number ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("get session rounds: %w", err)
	}
	defer rows.Close()

	var out []Hand
	for rows.Next() {
		h, err := scanHand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpdateRoundReview sets the AI review blob on a hand scoped to userID.
func (s *Store) UpdateRoundReview(userID, roundID, reviewJSON string) error {
	if _, err := s.GetRound(userID, roundID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE hands SET review_json = ? WHERE id = ?`, reviewJSON, roundID)
	return err
}

// GetOrCreateStats returns the cached UserStatistics row, creating a zeroed
// one if absent.
func (s *Store) GetOrCreateStats(userID string) (UserStatistics, error) {
	row := s.db.QueryRow(
		`SELECT user_id, total_sessions, total_hands, total_profit, win_rate, vpip, updated_at
		 FROM user_statistics WHERE user_id = ?`, userID)
	var st UserStatistics
	err := row.Scan(&st.UserID, &st.TotalSessions, &st.TotalHands, &st.TotalProfit, &st.WinRate, &st.VPIP, &st.UpdatedAt)
	if err == nil {
		return st, nil
	}
	if err != sql.ErrNoRows {
		return UserStatistics{}, err
	}

	st = UserStatistics{UserID: userID, UpdatedAt: time.Now()}
	_, err = s.db.Exec(
		`INSERT INTO user_statistics (user_id, total_sessions, total_hands, total_profit, win_rate, vpip, updated_at)
		 VALUES (?,0,0,0,0,0,?)`, userID, st.UpdatedAt,
	)
	return st, err
}

// UpdateStats overwrites the cached UserStatistics row.
func (s *Store) UpdateStats(st UserStatistics) error {
	st.UpdatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO user_statistics (user_id, total_sessions, total_hands, total_profit, win_rate, vpip, updated_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_sessions=excluded.total_sessions, total_hands=excluded.total_hands,
			total_profit=excluded.total_profit, win_rate=excluded.win_rate,
			vpip=excluded.vpip, updated_at=excluded.updated_at`,
		st.UserID, st.TotalSessions, st.TotalHands, st.TotalProfit, st.WinRate, st.VPIP, st.UpdatedAt,
	)
	return err
}

// RecomputeStats rebuilds UserStatistics from Sessions/Hands and persists
// the result. This is the ground truth; GetOrCreateStats/UpdateStats are
// advisory caches of its output.
func (s *Store) RecomputeStats(userID string) (UserStatistics, error) {
	sessions, err := s.ListSessions(userID, 1_000_000, 0)
	if err != nil {
		return UserStatistics{}, err
	}

	st := UserStatistics{UserID: userID, TotalSessions: len(sessions)}

	var totalHands int
	var totalProfit int64
	var winningHands, vpipHands int

	for _, sess := range sessions {
		hands, err := s.GetSessionRounds(userID, sess.ID)
		if err != nil {
			return UserStatistics{}, err
		}
		for _, h := range hands {
			totalHands++
			totalProfit += h.HeroProfit
			if h.HeroProfit > 0 {
				winningHands++
			}
			if HeroVPIP(h) {
				vpipHands++
			}
		}
	}

	st.TotalHands = totalHands
	st.TotalProfit = totalProfit
	if totalHands > 0 {
		st.WinRate = float64(winningHands) / float64(totalHands) * 100
		st.VPIP = float64(vpipHands) / float64(totalHands) * 100
	}

	if err := s.UpdateStats(st); err != nil {
		return UserStatistics{}, err
	}
	return st, nil
}

// actionLogMarker is the subset of a hand's action log the VPIP computation
// needs. Session Runtime writes this marker as the hand's action log at
// hand-save time; RecomputeStats only ever needs the marker back out.
type actionLogMarker struct {
	HeroVPIP bool `json:"hero_vpip"`
}

// HeroVPIP reports whether the hero voluntarily put chips in preflop (called
// or raised, as opposed to checking or folding) in this hand. Absent or
// malformed markers count as false rather than failing the whole recompute.
func HeroVPIP(h Hand) bool {
	var marker actionLogMarker
	if err := json.Unmarshal([]byte(h.ActionLogJSON), &marker); err != nil {
		return false
	}
	return marker.HeroVPIP
}
