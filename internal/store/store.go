// Package store is the persistence façade: users, sessions, hands, and
// derived statistics, backed by SQLite through database/sql, the same
// driver the teacher's pkg/server/internal/db package uses.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// User is a stable identity row.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	IsAdmin      bool
	LLMKey       sql.NullString
	CreatedAt    time.Time
}

// Session is one user's play period.
type Session struct {
	ID          string
	UserID      string
	StartedAt   time.Time
	EndedAt     *time.Time
	HandsPlayed int
	NetProfit   int64
	WinRate     float64
	VPIP        float64
	ConfigJSON  string
}

// Hand is one dealt deal within a session.
type Hand struct {
	ID            string
	SessionID     string
	RoundNumber   int
	HeroHoleJSON  string
	BoardJSON     string
	ActionLogJSON string
	WinnersJSON   string
	HandInfoJSON  string
	HeroProfit    int64
	Pot           int64
	ReviewJSON    sql.NullString
	CreatedAt     time.Time
}

// UserStatistics is the derived, cached aggregate per user.
type UserStatistics struct {
	UserID        string
	TotalSessions int
	TotalHands    int
	TotalProfit   int64
	WinRate       float64
	VPIP          float64
	UpdatedAt     time.Time
}

// SessionUpdate carries the fields update_session_stats may change.
type SessionUpdate struct {
	HandsPlayed *int
	NetProfit   *int64
	WinRate     *float64
	VPIP        *float64
	EndedAt     *time.Time
}

// ErrNotFound is returned by scoped lookups when the row is absent or owned
// by a different user.
var ErrNotFound = fmt.Errorf("not found")

// Store wraps a single *sql.DB connection.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) the database file at path and its schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			is_admin INTEGER NOT NULL DEFAULT 0,
			llm_key TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			hands_played INTEGER NOT NULL DEFAULT 0,
			net_profit INTEGER NOT NULL DEFAULT 0,
			win_rate REAL NOT NULL DEFAULT 0,
			vpip REAL NOT NULL DEFAULT 0,
			config_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS hands (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			round_number INTEGER NOT NULL,
			hero_hole_json TEXT NOT NULL,
			board_json TEXT NOT NULL,
			action_log_json TEXT NOT NULL,
			winners_json TEXT NOT NULL,
			hand_info_json TEXT NOT NULL,
			hero_profit INTEGER NOT NULL,
			pot INTEGER NOT NULL,
			review_json TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_statistics (
			user_id TEXT PRIMARY KEY REFERENCES users(id),
			total_sessions INTEGER NOT NULL DEFAULT 0,
			total_hands INTEGER NOT NULL DEFAULT 0,
			total_profit INTEGER NOT NULL DEFAULT 0,
			win_rate REAL NOT NULL DEFAULT 0,
			vpip REAL NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hands_session ON hands(session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
