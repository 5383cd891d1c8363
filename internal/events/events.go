// Package events defines the wire vocabulary exchanged between the Session
// Runtime, Connection Hub, and connected transports: one envelope type with
// a stable `type` discriminator, and one payload struct per event name.
package events

import "github.com/llmholdem/server/pkg/poker"

// Envelope is the JSON shape of every message in both directions.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Event type discriminators, server -> client.
const (
	TypeSystem            = "system"
	TypeNeedsAPIKey        = "needs_api_key"
	TypeGameStart          = "game_start"
	TypeRoundStart         = "round_start"
	TypeStreetStart        = "street_start"
	TypeGameUpdate         = "game_update"
	TypeActionRequest      = "action_request"
	TypeRoundResult        = "round_result"
	TypeReviewResult       = "review_result"
	TypeDebugLog           = "debug_log"
	TypeDebugModeUpdated   = "debug_mode_updated"
	TypePong               = "pong"
	TypeError              = "error"
)

// Event type discriminators, client -> server.
const (
	TypePlayerAction     = "player_action"
	TypeStartNextRound   = "start_next_round"
	TypeAICopilotSetting = "ai_copilot_setting"
	TypeReviewRequest    = "review_request"
	TypeNewGame          = "new_game"
	TypeDebugMode        = "debug_mode"
	TypePing             = "ping"
)

// System is the welcome/notice payload.
type System struct {
	Content string `json:"content"`
	IsAdmin bool   `json:"is_admin"`
}

// GameStart announces the table the session's game runs on.
type GameStart struct {
	TableID string `json:"table_id"`
}

// RoundStart announces a new hand.
type RoundStart struct {
	RoundNumber  int              `json:"round_number"`
	HeroHole     []poker.Card     `json:"hero_hole"`
	Seats        []SeatInfo       `json:"seats"`
	DealerButton int              `json:"dealer_button"`
}

// SeatInfo is one seat's public identity at round_start.
type SeatInfo struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	IsHuman  bool   `json:"is_human"`
	Balance  int64  `json:"balance"`
}

// StreetStart announces a new betting street.
type StreetStart struct {
	Street string       `json:"street"`
	Board  []poker.Card `json:"board"`
}

// GameUpdate carries the last action plus refreshed public state.
type GameUpdate struct {
	LastActorID string           `json:"last_actor_id,omitempty"`
	LastAction  string           `json:"last_action,omitempty"`
	LastAmount  int64            `json:"last_amount,omitempty"`
	Public      *poker.GameUpdate `json:"public"`
}

// ActionRequest is sent to the human seat when it is their turn to act.
type ActionRequest struct {
	LegalActions []LegalActionInfo `json:"legal_actions"`
	HeroHole     []poker.Card      `json:"hero_hole"`
	Public       *poker.GameUpdate `json:"public"`
	CallAmount   int64             `json:"call_amount"`
	AIAdvice     *Advice           `json:"ai_advice,omitempty"`
}

// LegalActionInfo describes one action option and its bet-sizing bounds.
type LegalActionInfo struct {
	Action    string `json:"action"`
	MinAmount int64  `json:"min_amount,omitempty"`
	MaxAmount int64  `json:"max_amount,omitempty"`
}

// Advice is a copilot hint for the human seat, computed by the Decision
// Kernel against the human's own hole cards.
type Advice struct {
	Suggested string  `json:"suggested"`
	Amount    int64   `json:"amount,omitempty"`
	Equity    float64 `json:"equity"`
	Rationale string  `json:"rationale"`
}

// RoundResult closes out a hand.
type RoundResult struct {
	Winners       []poker.Winner         `json:"winners"`
	HandInfo      string                 `json:"hand_info,omitempty"`
	Public        *poker.GameUpdate      `json:"public"`
	InitialStacks map[string]int64       `json:"initial_stacks"`
	RevealedHoles map[string][]poker.Card `json:"revealed_holes"`
}

// ReviewResult is the AI post-hand review, or an error describing why it
// could not be produced.
type ReviewResult struct {
	Streets []StreetReview `json:"streets,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// StreetReview is one street's worth of structured commentary.
type StreetReview struct {
	Street         string       `json:"street"`
	CommunityCards []poker.Card `json:"community_cards"`
	Commentary     string       `json:"commentary"`
}

// DebugLog is one LLM interaction of one bot seat, subject to the debug
// filter.
type DebugLog struct {
	BotID    string `json:"bot_id"`
	Prompt   string `json:"prompt"`
	Reply    string `json:"reply"`
	ActionOut string `json:"action_out"`
}

// DebugModeUpdated echoes a debug toggle.
type DebugModeUpdated struct {
	Enabled     bool     `json:"enabled"`
	FilterBots  []string `json:"filter_bots,omitempty"`
}

// Error is a single-recipient error notice; the socket remains open.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PlayerAction is the inbound payload for type=player_action.
type PlayerAction struct {
	Action string `json:"action"`
	Amount int64  `json:"amount"`
}

// AICopilotSetting toggles the human seat's copilot flag.
type AICopilotSetting struct {
	Enabled bool `json:"enabled"`
}

// ReviewRequest asks for a post-hand review of a completed round.
type ReviewRequest struct {
	RoundID string `json:"round_id"`
}

// DebugModeRequest is the inbound payload for type=debug_mode.
type DebugModeRequest struct {
	Enabled    bool     `json:"enabled"`
	FilterBots []string `json:"filter_bots,omitempty"`
}
