package poker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/llmholdem/server/pkg/statemachine"
)

// TableConfig holds configuration for a new poker table
type TableConfig struct {
	ID            string
	HostID        string
	BuyIn         int64 // chip buy-in amount required to join the table
	MinPlayers    int
	MaxPlayers    int
	SmallBlind    int64 // Poker chips amount for small blind
	BigBlind      int64 // Poker chips amount for big blind
	MinBalance    int64 // minimum bankroll balance required to join
	StartingChips int64 // Poker chips each player starts with in the game
	TimeBank      time.Duration
}

// Table represents a poker table. Hand progression is driven externally by
// RunGame (orchestrator.go): Table only applies actions and exposes state,
// it no longer restarts itself after a showdown the way the teacher's
// gRPC-polled table did.
type Table struct {
	config      TableConfig
	players     map[string]*Player
	game        *Game // Game logic without separate player management
	mu          sync.RWMutex
	createdAt   time.Time
	lastAction  time.Time
	gameStarted bool
	// Track actions in current betting round
	actionsInRound int
}

// NewTable creates a new poker table
func NewTable(cfg TableConfig) *Table {
	return &Table{
		config:         cfg,
		players:        make(map[string]*Player),
		createdAt:      time.Now(),
		lastAction:     time.Now(),
		actionsInRound: 0,
	}
}

// AddPlayer adds a player to the table with the specified starting chips
// startingChips: the amount of poker chips the player starts with (bankroll validation done by caller)
func (t *Table) AddPlayer(playerID string, startingChips int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Check if table is full
	if len(t.players) >= t.config.MaxPlayers {
		return fmt.Errorf("table is full")
	}

	// Check if player already at table
	if _, exists := t.players[playerID]; exists {
		return fmt.Errorf("player already at table")
	}

	// Add player to table with unified state
	player := &Player{
		ID:              playerID,
		Balance:         startingChips, // In-game chips for current/next hand
		StartingBalance: startingChips,
		TableSeat:       len(t.players),
		IsReady:         false,
		HasFolded:       false,
		IsAllIn:         false,
		LastAction:      time.Now(),
	}

	// Initialize player with at-table state
	player.stateMachine = statemachine.NewStateMachine(player, playerStateAtTable)
	t.players[playerID] = player

	t.lastAction = time.Now()
	return nil
}

// RemovePlayer removes a player from the table
func (t *Table) RemovePlayer(playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.players[playerID]; !exists {
		return fmt.Errorf("player not at table")
	}

	delete(t.players, playerID)
	t.lastAction = time.Now()
	return nil
}

// CheckAllPlayersReady checks if all players are ready
func (t *Table) CheckAllPlayersReady() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.players) < t.config.MinPlayers {
		return false
	}

	for _, p := range t.players {
		if !p.IsReady {
			return false
		}
	}

	return true
}

// GetPlayer returns a player by ID
func (t *Table) GetPlayer(playerID string) *Player {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.players[playerID]
}

// StartGame starts a new game at the table
func (t *Table) StartGame() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Check if we have enough players
	if len(t.players) < t.config.MinPlayers {
		return fmt.Errorf("not enough players to start game")
	}

	// Reset all players for the new hand
	activePlayers := make([]*Player, 0, len(t.players))
	for _, p := range t.players {
		if p.IsAtTable() { // Only include players still at the table
			p.ResetForNewHand(t.config.StartingChips)
			activePlayers = append(activePlayers, p)
		}
	}

	// Sort players by TableSeat for consistent ordering
	sort.Slice(activePlayers, func(i, j int) bool {
		return activePlayers[i].TableSeat < activePlayers[j].TableSeat
	})

	// Create new game and populate it with references to our table players
	game, err := NewGame(GameConfig{
		NumPlayers:    len(activePlayers),
		StartingChips: t.config.StartingChips,
		Log:           slog.Disabled,
	})
	if err != nil {
		return fmt.Errorf("failed to create game: %v", err)
	}
	t.game = game

	// Populate game.players with references to the same Player objects from the table
	// This creates a unified player state - no duplication, just shared references
	t.game.players = append(t.game.players, activePlayers...)

	// Deal initial cards to all active players (2 cards each)
	err = t.dealCardsToPlayers(activePlayers)
	if err != nil {
		return fmt.Errorf("failed to deal cards: %v", err)
	}

	// Post blinds before setting phase to PRE_FLOP
	err = t.postBlinds()
	if err != nil {
		return fmt.Errorf("failed to post blinds: %v", err)
	}

	// Initialize phase to PRE_FLOP so betting can begin immediately
	t.game.phase = GamePhasePreFlop

	// Initialize the current player (first to act after blinds are posted)
	t.initializeCurrentPlayer()

	gameStartTime := time.Now()

	// Reset all players' LastAction for timeout management
	earlyTime := gameStartTime.Add(-t.config.TimeBank)
	for _, p := range t.players {
		if p.IsAtTable() {
			p.LastAction = earlyTime
		}
	}

	// Set the current player's LastAction to now so their timeout timer starts
	if currentPlayer := t.getCurrentPlayerFromUnifiedState(); currentPlayer != nil {
		currentPlayer.LastAction = gameStartTime
	}

	// Mark that the game has started
	t.gameStarted = true

	// Reset actions counter for new game
	t.actionsInRound = 0

	t.lastAction = gameStartTime
	return nil
}

// GetPlayers returns all players at the table
func (t *Table) GetPlayers() []*Player {
	t.mu.RLock()
	defer t.mu.RUnlock()

	players := make([]*Player, 0, len(t.players))
	for _, p := range t.players {
		players = append(players, p)
	}

	// Sort by TableSeat to ensure consistent ordering
	sort.Slice(players, func(i, j int) bool {
		return players[i].TableSeat < players[j].TableSeat
	})

	return players
}

// GetBigBlind returns the big blind value for the table
func (t *Table) GetBigBlind() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.config.BigBlind
}

// MakeBet handles betting using the unified player state system
func (t *Table) MakeBet(playerID string, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	player := t.players[playerID]
	if player == nil {
		return fmt.Errorf("player not found")
	}

	// Validate and make the bet
	if amount < player.HasBet {
		return fmt.Errorf("cannot decrease bet")
	}

	delta := amount - player.HasBet
	if delta > 0 && delta > player.Balance {
		return fmt.Errorf("insufficient balance")
	}

	// Update the shared player object (this updates both table and game state automatically)
	if delta > 0 {
		player.Balance -= delta
	}
	player.HasBet = amount
	player.LastAction = time.Now()

	// Update game state
	if player.Balance == 0 {
		player.SetGameState("ALL_IN")
	}

	// Update game-level state
	if t.gameStarted && t.game != nil {
		if amount > t.game.currentBet {
			t.game.currentBet = amount
		}
		if delta > 0 {
			for i, gp := range t.game.players {
				if gp == player {
					t.game.AddToPotForPlayer(i, delta)
					break
				}
			}
		}
		// Increment actions counter for this betting round
		t.actionsInRound++
		// Advance to next player after action
		t.advanceToNextPlayerLocked()
	}

	// Possibly advance phase if betting round is complete
	t.maybeAdvancePhase()

	t.lastAction = time.Now()
	return nil
}

// GetPot returns the current pot size
func (t *Table) GetPot() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.game == nil {
		return 0
	}
	return t.game.GetPot()
}

// GetConfig returns the table configuration
func (t *Table) GetConfig() TableConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.config
}

// IsGameStarted returns whether the game has started
func (t *Table) IsGameStarted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gameStarted
}

// GetGamePhase returns the current phase of the active game, or WAITING.
func (t *Table) GetGamePhase() GamePhase {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.game == nil {
		return GamePhaseWaiting
	}
	return t.game.GetPhase()
}

// maybeAdvancePhase checks if betting round is finished and progresses the game phase.
// It only ever advances as far as setting the phase to Showdown: pot
// distribution and the next hand are driven externally by RunGame, which
// observes the Showdown phase and calls Game.HandleShowdown itself. Reaching
// into a showdown here (as the teacher's pull-model table used to, restarting
// itself immediately) would race RunGame's own view of which *Game is live.
func (t *Table) maybeAdvancePhase() {
	if !t.gameStarted || t.game == nil {
		return
	}

	// Count active players (non-folded)
	activePlayers := 0
	for _, p := range t.players {
		if !p.HasFolded {
			activePlayers++
		}
	}

	// If zero or one active player, move to showdown
	if activePlayers <= 1 {
		t.game.phase = GamePhaseShowdown
		return
	}

	// Check if all active players have had a chance to act and all bets are equal
	// A betting round is complete when:
	// 1. At least each active player has had one action (actionsInRound >= activePlayers)
	// 2. All active players have matching bets (or have folded)

	if t.actionsInRound < activePlayers {
		return // Not all players have acted yet
	}

	// Check if all active players have matching bets
	currentBet := t.game.currentBet
	for _, p := range t.players {
		if p.HasFolded {
			continue
		}
		if p.HasBet != currentBet {
			return // Still players with unmatched bets
		}
	}

	// Betting round is complete - advance to next phase
	switch t.game.phase {
	case GamePhasePreFlop:
		t.game.StateFlop()
	case GamePhaseFlop:
		t.game.StateTurn()
	case GamePhaseTurn:
		t.game.StateRiver()
	case GamePhaseRiver:
		t.game.phase = GamePhaseShowdown
		return
	}

	// Reset for new betting round
	for _, p := range t.players {
		p.HasBet = 0
	}
	t.game.currentBet = 0
	t.actionsInRound = 0 // Reset actions counter for new betting round

	// Reset current player for new betting round
	t.initializeCurrentPlayer()

	// Set the new current player's LastAction to now for the new betting round
	if t.game.currentPlayer >= 0 && t.game.currentPlayer < len(t.game.players) {
		if !t.game.players[t.game.currentPlayer].HasFolded {
			t.game.players[t.game.currentPlayer].LastAction = time.Now()
		}
	}
}

// GetGame returns the active game instance (if any).
func (t *Table) GetGame() *Game {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.game
}

// GetCurrentBet returns the current highest bet for the ongoing betting round.
// If no game is active it returns zero.
func (t *Table) GetCurrentBet() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.game == nil {
		return 0
	}
	return t.game.currentBet
}

// GetCurrentPlayerID returns the ID of the player whose turn it is
func (t *Table) GetCurrentPlayerID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.game == nil || len(t.game.players) == 0 {
		return ""
	}

	if t.game.currentPlayer < 0 || t.game.currentPlayer >= len(t.game.players) {
		return ""
	}

	return t.game.players[t.game.currentPlayer].ID
}

// AdvanceToNextPlayer moves to the next active player
func (t *Table) AdvanceToNextPlayer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceToNextPlayerLocked()
}

// advanceToNextPlayerLocked is the internal implementation that assumes the lock is already held
func (t *Table) advanceToNextPlayerLocked() {
	if t.game == nil || len(t.game.players) == 0 {
		return
	}

	// Find next active player (who hasn't folded)
	startingPlayer := t.game.currentPlayer
	for {
		t.game.currentPlayer = (t.game.currentPlayer + 1) % len(t.game.players)

		// Check if we've gone full circle without finding an active player
		if t.game.currentPlayer == startingPlayer {
			break
		}

		// Use the unified player state directly
		if !t.game.players[t.game.currentPlayer].HasFolded {
			// Set the new current player's LastAction to now so their timeout timer starts
			t.game.players[t.game.currentPlayer].LastAction = time.Now()
			break
		}
	}
}

// initializeCurrentPlayerLocked is the internal implementation that assumes the lock is already held
func (t *Table) initializeCurrentPlayer() {
	if t.game == nil || len(t.game.players) == 0 {
		return
	}

	numPlayers := len(t.game.players)

	// In pre-flop, start with Under the Gun (player after big blind)
	if t.game.phase == GamePhasePreFlop {
		if numPlayers == 2 {
			// In heads-up, after blinds are posted, small blind acts first
			t.game.currentPlayer = t.game.dealer
		} else {
			// In multi-way, Under the Gun acts first (after big blind)
			t.game.currentPlayer = (t.game.dealer + 3) % numPlayers
		}
	} else {
		// In post-flop streets, start with player after dealer (small blind position)
		t.game.currentPlayer = (t.game.dealer + 1) % numPlayers
	}

	// Ensure we start with an active player
	startingPlayer := t.game.currentPlayer
	for {
		// Use the unified player state directly
		if !t.game.players[t.game.currentPlayer].HasFolded {
			break
		}

		t.game.currentPlayer = (t.game.currentPlayer + 1) % len(t.game.players)

		// Prevent infinite loop
		if t.game.currentPlayer == startingPlayer {
			break
		}
	}
}

// HandleFold handles folding using the unified player state system
func (t *Table) HandleFold(playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	player := t.players[playerID]
	if player == nil {
		return fmt.Errorf("player not found")
	}

	// Update the shared player object (this updates both table and game state automatically)
	player.SetGameState("FOLDED")
	player.LastAction = time.Now()

	// Update game state
	if t.gameStarted && t.game != nil {
		// Increment actions counter for this betting round
		t.actionsInRound++
		// Advance to next player after fold action
		t.advanceToNextPlayerLocked()
	}

	// Possibly advance phase if betting round is complete
	t.maybeAdvancePhase()

	t.lastAction = time.Now()
	return nil
}

// postBlinds posts blinds before setting phase to PRE_FLOP
func (t *Table) postBlinds() error {
	if t.game == nil {
		return fmt.Errorf("game not started")
	}

	numPlayers := len(t.game.players)
	if numPlayers < 2 {
		return fmt.Errorf("not enough players for blinds")
	}

	// Small blind position
	var smallBlindIdx int
	if numPlayers == 2 {
		// In heads-up, dealer posts small blind
		smallBlindIdx = t.game.dealer
	} else {
		// In multi-way, player after dealer posts small blind
		smallBlindIdx = (t.game.dealer + 1) % numPlayers
	}

	smallBlindGamePlayer := t.game.players[smallBlindIdx]
	smallBlind := t.config.SmallBlind
	if smallBlind > smallBlindGamePlayer.Balance {
		return fmt.Errorf("insufficient balance for small blind")
	}

	// Update the unified player object
	smallBlindGamePlayer.Balance -= smallBlind
	smallBlindGamePlayer.HasBet = smallBlind
	t.game.AddToPotForPlayer(smallBlindIdx, smallBlind)

	// Big blind position
	var bigBlindIdx int
	if numPlayers == 2 {
		// In heads-up, other player posts big blind
		bigBlindIdx = (t.game.dealer + 1) % numPlayers
	} else {
		// In multi-way, two positions after dealer posts big blind
		bigBlindIdx = (t.game.dealer + 2) % numPlayers
	}
	bigBlindGamePlayer := t.game.players[bigBlindIdx]
	bigBlind := t.config.BigBlind
	if bigBlind > bigBlindGamePlayer.Balance {
		return fmt.Errorf("insufficient balance for big blind")
	}

	// Update the unified player object
	bigBlindGamePlayer.Balance -= bigBlind
	bigBlindGamePlayer.HasBet = bigBlind
	t.game.AddToPotForPlayer(bigBlindIdx, bigBlind)

	// Set the current bet to the big blind amount
	t.game.currentBet = bigBlind

	return nil
}

// StartNextHand deals the next hand at the table, carrying balances forward
// from the previous one. Pot distribution for the hand that just finished is
// the caller's responsibility (Game.HandleShowdown) before calling this;
// StartNextHand only clears the per-hand fields (folded/bet/hand) and deals
// in players who still have at least a big blind behind. Use StartGame
// instead the first time a table is dealt in.
func (t *Table) StartNextHand() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.players {
		p.HasFolded = false
		p.HasBet = 0
		p.Hand = nil
		p.HandValue = nil
		p.HandDescription = ""
	}

	// Check if we have enough players with sufficient balance
	activePlayers := make([]*Player, 0, len(t.players))
	for _, p := range t.players {
		if p.IsAtTable() && p.Balance >= t.config.BigBlind { // Player must have at least big blind to play
			activePlayers = append(activePlayers, p)
		}
	}

	if len(activePlayers) < t.config.MinPlayers {
		t.gameStarted = false
		t.game = nil
		return fmt.Errorf("not enough players with sufficient balance to start new hand")
	}

	// Sort players by TableSeat for consistent ordering
	sort.Slice(activePlayers, func(i, j int) bool {
		return activePlayers[i].TableSeat < activePlayers[j].TableSeat
	})

	// Create new game and populate it with references to our table players
	game, err := NewGame(GameConfig{
		NumPlayers:    len(activePlayers),
		StartingChips: t.config.StartingChips,
		Log:           slog.Disabled,
	})
	if err != nil {
		return fmt.Errorf("failed to create game: %v", err)
	}
	t.game = game

	// Populate game.players with references to the same Player objects from the table
	// This creates a unified player state - no duplication, just shared references
	t.game.players = append(t.game.players, activePlayers...)

	// Deal initial cards to all active players (2 cards each)
	err = t.dealCardsToPlayers(activePlayers)
	if err != nil {
		return fmt.Errorf("failed to deal cards: %v", err)
	}

	// Post blinds before setting phase to PRE_FLOP
	err = t.postBlinds()
	if err != nil {
		return fmt.Errorf("failed to post blinds: %v", err)
	}

	// Initialize phase to PRE_FLOP so betting can begin immediately
	t.game.phase = GamePhasePreFlop

	// Initialize the current player (first to act after blinds are posted)
	t.initializeCurrentPlayer()

	gameStartTime := time.Now()

	// Reset all players' LastAction for timeout management
	earlyTime := gameStartTime.Add(-t.config.TimeBank)
	for _, p := range t.players {
		if p.IsAtTable() {
			p.LastAction = earlyTime
		}
	}

	// Set the current player's LastAction to now so their timeout timer starts
	if t.game.currentPlayer >= 0 && t.game.currentPlayer < len(t.game.players) {
		if !t.game.players[t.game.currentPlayer].HasFolded {
			t.game.players[t.game.currentPlayer].LastAction = gameStartTime
		}
	}

	t.gameStarted = true
	t.actionsInRound = 0
	t.lastAction = gameStartTime
	return nil
}

// dealCardsToPlayers deals cards to active players using the unified player state
func (t *Table) dealCardsToPlayers(activePlayers []*Player) error {
	if t.game == nil || t.game.deck == nil {
		return fmt.Errorf("game or deck not initialized")
	}

	// Deal 2 cards to each active player
	for i := 0; i < 2; i++ {
		for _, p := range activePlayers {
			card, ok := t.game.deck.Draw()
			if !ok {
				return fmt.Errorf("failed to deal card to player %s: deck is empty", p.ID)
			}
			p.Hand = append(p.Hand, card)
		}
	}
	return nil
}

// getCurrentPlayerFromUnifiedState returns the current active player from unified state
func (t *Table) getCurrentPlayerFromUnifiedState() *Player {
	if t.game == nil {
		return nil
	}

	// Get active players in order
	activePlayers := t.getActivePlayersInOrder()
	if len(activePlayers) == 0 || t.game.currentPlayer < 0 || t.game.currentPlayer >= len(activePlayers) {
		return nil
	}

	return activePlayers[t.game.currentPlayer]
}

// getActivePlayersInOrder returns active players sorted by table seat
func (t *Table) getActivePlayersInOrder() []*Player {
	activePlayers := make([]*Player, 0, len(t.players))
	for _, p := range t.players {
		if p.IsActiveInGame() {
			activePlayers = append(activePlayers, p)
		}
	}

	// Sort by TableSeat for consistent ordering
	sort.Slice(activePlayers, func(i, j int) bool {
		return activePlayers[i].TableSeat < activePlayers[j].TableSeat
	})

	return activePlayers
}
