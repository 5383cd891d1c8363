package poker

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/llmholdem/server/pkg/statemachine"
)

// GameStateFn represents a game state function following Rob Pike's pattern
type GameStateFn = statemachine.StateFn[Game]

// GameConfig holds configuration for a new game
type GameConfig struct {
	NumPlayers    int
	StartingChips int64       // Fixed number of chips each player starts with
	SmallBlind    int64       // Small blind amount
	BigBlind      int64       // Big blind amount
	Seed          int64       // Optional seed for deterministic games
	TimeBank      time.Duration // Time bank for each player
	Log           slog.Logger // Logger for game events
}

// Game holds the context and data for our poker game
type Game struct {
	// Player management - references to table users converted to players
	players       []*Player // Internal player objects managed by game
	currentPlayer int
	dealer        int

	// Cards
	deck           *Deck
	communityCards []Card

	// Game state
	potManager     *PotManager
	currentBet     int64
	round          int
	betRound       int // Tracks which betting round (pre-flop, flop, turn, river)

	// Configuration
	config GameConfig

	// Logger
	log slog.Logger

	mu sync.RWMutex

	// current game phase (pre-flop, flop, turn, river, showdown)
	phase GamePhase

	// Winner tracking - set after showdown is complete
	winners []string

	// State machine - Rob Pike's pattern
	stateMachine *statemachine.StateMachine[Game]
}

// NewGame creates a new poker game with the given configuration
// Players are managed by the Table, not the Game
func NewGame(cfg GameConfig) (*Game, error) {
	if cfg.NumPlayers < 2 {
		panic("poker: must have at least 2 players")
	}

	if cfg.Log == nil {
		return nil, fmt.Errorf("poker: log is required")
	}

	// Create a new deck with the given seed (or random if not specified)
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	g := &Game{
		players:        make([]*Player, 0, cfg.NumPlayers), // Empty slice, Table will populate
		currentPlayer:  0,
		dealer:         0,
		deck:           NewDeck(rng),
		communityCards: nil,
		potManager:     NewPotManager(),
		currentBet:     0,
		round:          0,
		betRound:       0,
		config:         cfg,
		log:            cfg.Log,
		phase:          GamePhaseNewHandDealing,
	}

	// Initialize state machine with first state function
	g.stateMachine = statemachine.NewStateMachine(g, stateNewHandDealing)

	return g, nil
}

// State functions following Rob Pike's pattern
// Each state function performs its work and returns the next state function (or nil to terminate)

// stateNewHandDealing handles the NEW_HAND_DEALING phase
func stateNewHandDealing(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	// This state is primarily managed by the table layer
	// The table handles card dealing and blind posting, then transitions to PRE_FLOP
	// This state function is mainly for completeness in the state machine
	entity.phase = GamePhaseNewHandDealing
	if callback != nil {
		callback("NEW_HAND_DEALING", statemachine.StateEntered)
	}
	return statePreDeal
}

// statePreDeal prepares the game for a new hand
func statePreDeal(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	// Reset game state for a new hand
	entity.round++

	// Reset the deck, community cards, pot, etc.
	entity.deck.Shuffle()
	entity.communityCards = []Card{}
	entity.potManager = NewPotManager()
	entity.currentBet = 0
	entity.betRound = 0

	// Rotate dealer position
	entity.dealer = (entity.dealer + 1) % len(entity.players)
	// Don't set currentPlayer here - it will be set correctly in stateBlinds

	// Set phase to PRE_FLOP (game about to start)
	entity.phase = GamePhasePreFlop

	if callback != nil {
		callback("PRE_DEAL", statemachine.StateEntered)
	}

	return stateDeal
}

// stateDeal deals initial cards to players
func stateDeal(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	// Note: Card dealing is handled by the table layer to maintain
	// consistency with existing game flow. This state is mainly for
	// state machine progression.

	if callback != nil {
		callback("DEAL", statemachine.StateEntered)
	}

	// After dealing (handled externally), move to blinds state
	return stateBlinds
}

// stateBlinds handles posting small and big blinds and sets the current player
func stateBlinds(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	numPlayers := len(entity.players)
	if numPlayers < 2 {
		if callback != nil {
			callback("END", statemachine.StateEntered)
		}
		return stateEnd
	}

	// Calculate blind positions
	smallBlindPos := (entity.dealer + 1) % numPlayers
	bigBlindPos := (entity.dealer + 2) % numPlayers

	// For heads-up (2 players), dealer posts small blind
	if numPlayers == 2 {
		smallBlindPos = entity.dealer
		bigBlindPos = (entity.dealer + 1) % numPlayers
	}

	// Helper that posts a blind only if it hasn't already been posted for the hand.
	postBlind := func(pos int, amount int64) {
		p := entity.players[pos]
		if p == nil {
			return
		}
		// Skip if this player already has an equal or greater bet recorded (blind already posted).
		if p.HasBet >= amount {
			return
		}
		if amount > p.Balance {
			// Player cannot cover blind – treat as all-in of remaining balance.
			amount = p.Balance
			p.IsAllIn = true
		}
		p.Balance -= amount
		p.HasBet += amount
		entity.potManager.AddBet(pos, amount)
	}

	// Post blinds, guarding against duplicates.
	postBlind(smallBlindPos, entity.config.SmallBlind)
	postBlind(bigBlindPos, entity.config.BigBlind)

	// Set first player to act (after big blind for pre-flop)
	if numPlayers == 2 {
		// In heads-up, small blind acts first pre-flop
		entity.currentPlayer = smallBlindPos
	} else {
		// With 3+ players, first to act is after big blind
		entity.currentPlayer = (bigBlindPos + 1) % numPlayers
	}

	if callback != nil {
		callback("BLINDS", statemachine.StateEntered)
	}

	// Move to pre-flop betting
	return statePreFlop
}

// statePreFlop handles the pre-flop betting round logic
func statePreFlop(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	// This is a betting round - handled by external logic
	// Based on betting completion, determine next state
	if callback != nil {
		callback("PRE_FLOP", statemachine.StateEntered)
	}

	switch entity.betRound {
	case 0: // Pre-flop complete, move to flop
		entity.betRound++
		return stateFlop
	default:
		// Still in pre-flop betting - stay in this state
		return statePreFlop
	}
}

// stateFlop deals the flop (first 3 community cards)
func stateFlop(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	// Deal 3 cards to community
	for i := 0; i < 3; i++ {
		card, ok := entity.deck.Draw()
		if !ok {
			if callback != nil {
				callback("END", statemachine.StateEntered)
			}
			return stateEnd // End game if deck is empty
		}
		entity.communityCards = append(entity.communityCards, card)
	}

	// Reset bets for new betting round (table handles this)
	entity.currentBet = 0
	entity.potManager.ResetCurrentBets()

	// Update phase to FLOP
	entity.phase = GamePhaseFlop

	if callback != nil {
		callback("FLOP", statemachine.StateEntered)
	}

	// Check if betting should advance immediately to next phase
	switch entity.betRound {
	case 1: // Flop betting complete, move to turn
		entity.betRound++
		return stateTurn
	default:
		// Stay in flop for betting
		return stateFlop
	}
}

// stateTurn deals the turn (fourth community card)
func stateTurn(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	// Deal the turn (4th community card)
	card, ok := entity.deck.Draw()
	if !ok {
		if callback != nil {
			callback("END", statemachine.StateEntered)
		}
		return stateEnd // End game if deck is empty
	}
	entity.communityCards = append(entity.communityCards, card)

	// Reset bets for new betting round (table handles this)
	entity.currentBet = 0
	entity.potManager.ResetCurrentBets()

	// Update phase to TURN
	entity.phase = GamePhaseTurn

	if callback != nil {
		callback("TURN", statemachine.StateEntered)
	}

	// Check if betting should advance immediately to next phase
	switch entity.betRound {
	case 2: // Turn betting complete, move to river
		entity.betRound++
		return stateRiver
	default:
		// Stay in turn for betting
		return stateTurn
	}
}

// stateRiver deals the river (fifth community card)
func stateRiver(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	// Deal the river (5th community card)
	card, ok := entity.deck.Draw()
	if !ok {
		if callback != nil {
			callback("END", statemachine.StateEntered)
		}
		return stateEnd // End game if deck is empty
	}
	entity.communityCards = append(entity.communityCards, card)

	// Reset bets for new betting round (table handles this)
	entity.currentBet = 0
	entity.potManager.ResetCurrentBets()

	// Update phase to RIVER
	entity.phase = GamePhaseRiver

	if callback != nil {
		callback("RIVER", statemachine.StateEntered)
	}

	// Check if betting should advance immediately to showdown
	switch entity.betRound {
	case 3: // River betting complete, move to showdown
		return stateShowdown
	default:
		// Stay in river for betting
		return stateRiver
	}
}

// stateShowdown determines the winner of the hand
func stateShowdown(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	// Mark phase as SHOWDOWN; actual pot distribution happens in Game.HandleShowdown,
	// called by whoever is driving the hand once they observe this phase.
	entity.log.Debugf("stateShowdown: entered showdown state")
	entity.phase = GamePhaseShowdown

	if callback != nil {
		callback("SHOWDOWN", statemachine.StateEntered)
	}

	// Remain in SHOWDOWN state until the Table schedules the next hand.
	return stateShowdown
}

// stateEnd terminates the game
func stateEnd(entity *Game, callback func(stateName string, event statemachine.StateEvent)) GameStateFn {
	if callback != nil {
		callback("END", statemachine.StateEntered)
	}
	return nil // Return nil to terminate the state machine
}

// GetPot returns the total pot amount
func (g *Game) GetPot() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.potManager.GetTotalPot()
}

// StateFlop deals the flop (3 community cards)
func (g *Game) StateFlop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Deal 3 cards to community
	for i := 0; i < 3; i++ {
		card, ok := g.deck.Draw()
		if !ok {
			// Handle error
			return
		}
		g.communityCards = append(g.communityCards, card)
	}

	// Update phase
	g.phase = GamePhaseFlop
}

// StateTurn deals the turn (1 community card)
func (g *Game) StateTurn() {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Deal 1 card to community
	card, ok := g.deck.Draw()
	if !ok {
		// Handle error
		return
	}
	g.communityCards = append(g.communityCards, card)

	g.phase = GamePhaseTurn
}

// StateRiver deals the river (1 community card)
func (g *Game) StateRiver() {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Deal 1 card to community
	card, ok := g.deck.Draw()
	if !ok {
		// Handle error
		return
	}
	g.communityCards = append(g.communityCards, card)

	g.phase = GamePhaseRiver
}

// GetPhase returns the current phase of the game.
func (g *Game) GetPhase() GamePhase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phase
}

// GetCurrentBet returns the current bet amount
func (g *Game) GetCurrentBet() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.currentBet
}

// AddToPotForPlayer adds the specified amount to the pot for a specific player
func (g *Game) AddToPotForPlayer(playerIndex int, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.potManager.AddBet(playerIndex, amount)
}

// GetCommunityCards returns a copy of the community cards slice.
func (g *Game) GetCommunityCards() []Card {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cards := make([]Card, len(g.communityCards))
	copy(cards, g.communityCards)
	return cards
}

// GetPlayers returns the game players slice
func (g *Game) GetPlayers() []*Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players
}

// GetCurrentPlayer returns the index of the current player to act
func (g *Game) GetCurrentPlayer() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.currentPlayer
}

// GetCurrentPlayerObject returns the current player object
func (g *Game) GetCurrentPlayerObject() *Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.currentPlayer >= 0 && g.currentPlayer < len(g.players) {
		return g.players[g.currentPlayer]
	}
	return nil
}

// GetWinners returns the winners of the game
func (g *Game) GetWinners() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.winners
}

// SetPlayers sets the players for this game from table users
func (g *Game) SetPlayers(users []*User) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Convert users to players for game management using proper constructor
	g.players = make([]*Player, len(users))
	for i, user := range users {
		// Create player using constructor to ensure state machine is initialized
		player := NewPlayer(user.ID, user.Name, g.config.StartingChips)

		// Copy table-level state from user
		player.TableSeat = user.TableSeat
		player.IsReady = user.IsReady
		player.LastAction = time.Now() // Set current time since User doesn't have LastAction

		g.players[i] = player
	}
}

// ResetForNewHand resets the game state for a new hand while preserving the game instance
func (g *Game) ResetForNewHand(activePlayers []*Player) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Update player references for this hand - use the same objects to maintain unified state
	g.players = activePlayers

	// Reset hand-specific state
	g.communityCards = nil
	g.potManager = NewPotManager()
	g.currentBet = 0
	g.round++
	g.betRound = 0
	g.winners = nil

	// Advance dealer position for new hand
	if len(activePlayers) > 0 {
		g.dealer = (g.dealer + 1) % len(activePlayers)
	}

	// Create a shuffled deck for the new hand.
	// If a deterministic seed is configured, advance the sequence by incorporating
	// the round to avoid identical decks each hand.
	var nextRng *rand.Rand
	if g.config.Seed != 0 {
		// Derive a unique seed per hand deterministically
		derived := g.config.Seed + int64(g.round)
		nextRng = rand.New(rand.NewSource(derived))
	} else {
		// For non-deterministic games, ensure each hand gets a fresh RNG seed so
		// rapid successive hands don't accidentally reuse identical shuffles.
		base := time.Now().UnixNano()
		var mix int64 = 0
		if g.deck != nil && g.deck.rng != nil {
			mix = g.deck.rng.Int63()
		}
		seed := base ^ mix ^ int64(g.round)
		nextRng = rand.New(rand.NewSource(seed))
	}
	g.deck = NewDeck(nextRng)

	// Set phase to NEW_HAND_DEALING to signal setup in progress
	g.phase = GamePhaseNewHandDealing

	// Reset current player to -1 to force initialization
	g.currentPlayer = -1

	// Reset state machine to NEW_HAND_DEALING
	g.stateMachine.SetState(stateNewHandDealing)
}

// ShowdownResult contains the results of a showdown for table notifications
type ShowdownResult struct {
	Winners    []string
	WinnerInfo []*Winner
	TotalPot   int64
}

// HandleShowdown processes the showdown logic and returns results (external API)
func (g *Game) HandleShowdown() *ShowdownResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handleShowdown()
}

// handleShowdown is the core logic without locking (for internal use)
func (g *Game) handleShowdown() *ShowdownResult {
	// Debug: Log that we entered handleShowdown
	g.log.Debugf("handleShowdown: entered showdown processing")
	// Count active players (non-folded)
	activePlayers := make([]*Player, 0)
	for _, player := range g.players {
		if !player.HasFolded {
			activePlayers = append(activePlayers, player)
		}
	}

	// Track winners and create result
	result := &ShowdownResult{
		Winners:    make([]string, 0),
		WinnerInfo: make([]*Winner, 0),
		TotalPot:   g.getPot(),
	}

	// If only one player remains, they win automatically without hand evaluation
	if len(activePlayers) <= 1 {
		if len(activePlayers) == 1 {
			winner := activePlayers[0]
			winnings := g.getPot()
			winner.Balance += winnings
			result.Winners = append(result.Winners, winner.ID)

			// Create winner notification with their cards
			result.WinnerInfo = append(result.WinnerInfo, &Winner{
				PlayerId: winner.ID,
				Winnings: winnings,
				BestHand: winner.Hand,
			})
		}
	} else {
		// Multiple players remain - need proper hand evaluation
		validEvaluations := true

		// Check if we have enough cards for evaluation
		for _, player := range activePlayers {
			totalCards := len(player.Hand) + len(g.communityCards)
			if totalCards < 5 {
				validEvaluations = false
				break
			}
		}

		if validEvaluations {
			// Evaluate each active player's hand
			for _, player := range activePlayers {
				handValue, err := EvaluateHand(player.Hand, g.communityCards)
				if err != nil {
					g.log.Errorf("handleShowdown: evaluate hand for %s: %v", player.ID, err)
					continue
				}
				player.HandValue = &handValue
				player.HandDescription = GetHandDescription(handValue)
			}

			// Check for any uncalled bets and return them
			g.potManager.ReturnUncalledBet(g.players)

			// Create side pots if needed
			g.potManager.CreateSidePots(g.players)

			// Snapshot balances before distribution to compute per-player winnings precisely
			prevBalances := make(map[string]int64, len(g.players))
			for _, p := range g.players {
				prevBalances[p.ID] = p.Balance
			}

			// Distribute pots to winners
			g.potManager.DistributePots(g.players)

			// Build winner list based on balance deltas (captures main/side pots and remainder)
			for _, p := range g.players {
				delta := p.Balance - prevBalances[p.ID]
				if delta > 0 {
					result.Winners = append(result.Winners, p.ID)
					var handRank HandRank
					var bestHand []Card
					if p.HandValue != nil {
						handRank = p.HandValue.HandRank
						bestHand = p.HandValue.BestHand
					} else {
						bestHand = p.Hand
					}
					result.WinnerInfo = append(result.WinnerInfo, &Winner{
						PlayerId: p.ID,
						HandRank: handRank,
						BestHand: bestHand,
						Winnings: delta,
					})
				}
			}
		} else {
			// Can't properly evaluate hands - award pot to first active player
			if len(activePlayers) > 0 {
				winner := activePlayers[0]
				winnings := g.getPot()
				winner.Balance += winnings
				result.Winners = append(result.Winners, winner.ID)

				result.WinnerInfo = append(result.WinnerInfo, &Winner{
					PlayerId: winner.ID,
					Winnings: winnings,
					BestHand: winner.Hand,
				})
			}
		}
	}

	// Set phase to showdown
	g.phase = GamePhaseShowdown
	g.winners = result.Winners

	return result
}

// getPot is the core logic without locking (for internal use)
func (g *Game) getPot() int64 {
	return g.potManager.GetTotalPot()
}

// GetRound returns the current round number
func (g *Game) GetRound() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.round
}

// GetBetRound returns the current betting round
func (g *Game) GetBetRound() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.betRound
}

// GetDealer returns the dealer position
func (g *Game) GetDealer() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dealer
}

// GetDeckState returns the current deck state for persistence
func (g *Game) GetDeckState() interface{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.deck == nil {
		return nil
	}
	// Return the remaining cards in the deck
	return g.deck.cards
}

// SetGameState allows restoring game state from persistence
func (g *Game) SetGameState(dealer, currentPlayer, round, betRound int, currentBet, pot int64, phase GamePhase) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dealer = dealer
	g.currentPlayer = currentPlayer
	g.round = round
	g.betRound = betRound
	g.currentBet = currentBet
	g.phase = phase
	// Note: Pot will be restored through the PotManager when restoring player bets
	// We can't directly set the pot value, but it will be calculated from player bets
}

// SetCommunityCards allows restoring community cards from persistence
func (g *Game) SetCommunityCards(cards []Card) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.communityCards = make([]Card, len(cards))
	copy(g.communityCards, cards)
}

// GameStateSnapshot represents a point-in-time snapshot of game state for safe concurrent access
type GameStateSnapshot struct {
	Dealer         int
	CurrentPlayer  int
	CurrentBet     int64
	Pot            int64
	Round          int
	BetRound       int
	CommunityCards []Card
	DeckState      interface{}
	Players        []*Player
}

// GetStateSnapshot returns an atomic snapshot of the game state for safe concurrent access
func (g *Game) GetStateSnapshot() GameStateSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Create a deep copy of players to avoid race conditions
	playersCopy := make([]*Player, len(g.players))
	for i, player := range g.players {
		// Create a copy of the player to avoid race conditions
		playerCopy := &Player{
			ID:              player.ID,
			Name:            player.Name,
			TableSeat:       player.TableSeat,
			IsReady:         player.IsReady,
			Balance:         player.Balance,
			StartingBalance: player.StartingBalance,
			HasBet:          player.HasBet,
			HasFolded:       player.HasFolded,
			IsAllIn:         player.IsAllIn,
			IsDealer:        player.IsDealer,
			IsTurn:          player.IsTurn,
			Hand:            make([]Card, len(player.Hand)),
			HandDescription: player.HandDescription,
			HandValue:       player.HandValue,
			LastAction:      player.LastAction,
		}
		// Copy the hand cards
		copy(playerCopy.Hand, player.Hand)
		playersCopy[i] = playerCopy
	}

	// Copy community cards
	communityCardsCopy := make([]Card, len(g.communityCards))
	copy(communityCardsCopy, g.communityCards)

	return GameStateSnapshot{
		Dealer:         g.dealer,
		CurrentPlayer:  g.currentPlayer,
		CurrentBet:     g.currentBet,
		Pot:            g.potManager.GetTotalPot(),
		Round:          g.round,
		BetRound:       g.betRound,
		CommunityCards: communityCardsCopy,
		DeckState:      g.deck.GetState(),
		Players:        playersCopy,
	}
}

// ModifyPlayers executes the provided function while holding the game's write
// lock, giving callers safe, exclusive access to the underlying slice of
// players. This is useful for code that needs to mutate player state outside
// of the poker package (for example, when restoring snapshots) while still
// guaranteeing there are no data races with concurrent reads performed via
// GetStateSnapshot.
func (g *Game) ModifyPlayers(fn func(players []*Player)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.players)
}

// ForceSetPot sets the amount of the main pot directly. This is intended to
// be used only during server-side restoration when rebuilding a game from a
// persisted snapshot where the individual betting history is not available.
func (g *Game) ForceSetPot(amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.potManager == nil {
		g.potManager = NewPotManager()
	}

	// Ensure there is at least a main pot.
	if len(g.potManager.Pots) == 0 {
		g.potManager.Pots = []*Pot{NewPot(0)}
	}

	// Set the amount on the main pot directly.
	g.potManager.Pots[0].Amount = amount
}

