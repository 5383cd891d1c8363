package poker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// ActionTag identifies the action a seat chose to take on its turn.
type ActionTag string

const (
	ActionFold  ActionTag = "fold"
	ActionCheck ActionTag = "check"
	ActionCall  ActionTag = "call"
	ActionBet   ActionTag = "bet"
	ActionRaise ActionTag = "raise"
)

// LegalAction describes one action a seat is permitted to take right now,
// along with the bet sizing bounds that apply to it.
type LegalAction struct {
	Action ActionTag
	MinAmount int64
	MaxAmount int64
}

// PublicState is the shared view of the table a seat sees when asked to act
// or notified of progress. It never contains another seat's hole cards.
type PublicState struct {
	TableID        string
	Phase          GamePhase
	Pot            int64
	CurrentBet     int64
	CommunityCards []Card
	Players        []PlayerUpdate
	CurrentPlayer  string
}

// Seat is the push-model interface the orchestrator drives. Unlike the
// teacher's externally-pulled gRPC API (MakeBet/Fold/Call/Check invoked by a
// remote client), RunGame calls into a Seat whenever there is something for
// it to see or decide, and blocks on DeclareAction until the seat answers.
type Seat interface {
	PlayerID() string
	GameStart(table *Table)
	RoundStart(public PublicState)
	StreetStart(public PublicState)
	DeclareAction(ctx context.Context, legal []LegalAction, hole []Card, public PublicState) (ActionTag, int64)
	GameUpdate(public PublicState)
	RoundResult(result *ShowdownResult)
}

func (t *Table) buildPublicState() PublicState {
	players := make([]PlayerUpdate, 0)
	for _, p := range t.GetPlayers() {
		players = append(players, PlayerUpdate{
			ID:         p.ID,
			Balance:    p.Balance,
			IsReady:    p.IsReady,
			Folded:     p.HasFolded,
			CurrentBet: p.HasBet,
		})
	}
	var community []Card
	if g := t.GetGame(); g != nil {
		community = g.GetCommunityCards()
	}
	return PublicState{
		TableID:        t.config.ID,
		Phase:          t.GetGamePhase(),
		Pot:            t.GetPot(),
		CurrentBet:     t.GetCurrentBet(),
		CommunityCards: community,
		Players:        players,
		CurrentPlayer:  t.GetCurrentPlayerID(),
	}
}

// legalActionsFor computes the actions available to a player given the
// current bet and their stack, following no-limit hold'em sizing rules.
func legalActionsFor(t *Table, player *Player) []LegalAction {
	currentBet := t.GetCurrentBet()
	toCall := currentBet - player.HasBet
	bigBlind := t.GetBigBlind()

	actions := []LegalAction{{Action: ActionFold}}

	if toCall <= 0 {
		actions = append(actions, LegalAction{Action: ActionCheck})
	} else {
		callAmount := toCall
		if callAmount > player.Balance {
			callAmount = player.Balance
		}
		actions = append(actions, LegalAction{Action: ActionCall, MinAmount: callAmount, MaxAmount: callAmount})
	}

	if player.Balance > toCall {
		remaining := player.Balance - toCall
		minRaiseTo := currentBet + bigBlind
		maxRaiseTo := currentBet + toCall + remaining
		tag := ActionRaise
		if currentBet == 0 {
			tag = ActionBet
			minRaiseTo = bigBlind
		}
		if minRaiseTo > maxRaiseTo {
			minRaiseTo = maxRaiseTo
		}
		actions = append(actions, LegalAction{Action: tag, MinAmount: minRaiseTo, MaxAmount: maxRaiseTo})
	}

	return actions
}

// notifyAll fans a notification out to every seat concurrently via an
// errgroup, so one seat's slow publish (a websocket write, a human seat
// blocked mid-RoundResult on its next-round gate) doesn't serialize behind
// another seat's. Seat notification methods don't return errors, so the
// group is only ever used for its concurrent Wait, never error aggregation.
func notifyAll(seats []Seat, fn func(Seat)) {
	var g errgroup.Group
	for _, s := range seats {
		s := s
		g.Go(func() error {
			fn(s)
			return nil
		})
	}
	_ = g.Wait()
}

// RunGame drives hands back to back at the table, one per seat turn, until
// ctx is cancelled or fewer than two seats remain at the table. It replaces
// the teacher's pull model (a remote client calling MakeBet/Fold/Call/Check
// whenever it pleases) with a push model: each seat is asked to act only
// when it is actually its turn, and every seat is notified of every
// transition in between.
func RunGame(ctx context.Context, table *Table, seats []Seat) error {
	seatByID := make(map[string]Seat, len(seats))
	for _, s := range seats {
		seatByID[s.PlayerID()] = s
	}

	notifyAll(seats, func(s Seat) { s.GameStart(table) })

	firstHand := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !table.CheckAllPlayersReady() {
			return fmt.Errorf("not all players ready")
		}

		if firstHand {
			if err := table.StartGame(); err != nil {
				return fmt.Errorf("start hand: %w", err)
			}
			firstHand = false
		} else if err := table.StartNextHand(); err != nil {
			return fmt.Errorf("start next hand: %w", err)
		}

		public := table.buildPublicState()
		notifyAll(seats, func(s Seat) { s.RoundStart(public) })

		lastPhase := table.GetGamePhase()
		for table.IsGameStarted() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			phase := table.GetGamePhase()
			if phase != lastPhase {
				public := table.buildPublicState()
				notifyAll(seats, func(s Seat) { s.StreetStart(public) })
				lastPhase = phase
			}
			if phase == GamePhaseShowdown {
				break
			}

			currentID := table.GetCurrentPlayerID()
			if currentID == "" {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			seat, ok := seatByID[currentID]
			if !ok {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			player := table.GetPlayer(currentID)
			if player == nil || player.HasFolded || player.IsAllIn {
				time.Sleep(10 * time.Millisecond)
				continue
			}

			legal := legalActionsFor(table, player)
			hole := append([]Card{}, player.Hand...)
			actionCtx, cancel := context.WithTimeout(ctx, table.config.TimeBank)
			tag, amount := seat.DeclareAction(actionCtx, legal, hole, table.buildPublicState())
			cancel()

			if err := applyAction(table, currentID, tag, amount); err != nil {
				// Treat an invalid declared action as a fold; the seat adapter
				// is responsible for validating before it gets here.
				_ = table.HandleFold(currentID)
			}

			update := table.buildPublicState()
			notifyAll(seats, func(s Seat) { s.GameUpdate(update) })
		}

		if table.GetGamePhase() != GamePhaseShowdown {
			continue
		}
		game := table.GetGame()
		var result *ShowdownResult
		if game != nil {
			result = game.HandleShowdown()
		}
		notifyAll(seats, func(s Seat) { s.RoundResult(result) })

		active := 0
		for _, p := range table.GetPlayers() {
			if p.Balance > 0 {
				active++
			}
		}
		if active < 2 {
			return nil
		}
	}
}

// applyAction translates a seat's declared action into the table's
// MakeBet/HandleFold primitives.
func applyAction(table *Table, playerID string, tag ActionTag, amount int64) error {
	player := table.GetPlayer(playerID)
	if player == nil {
		return fmt.Errorf("player not found")
	}

	switch tag {
	case ActionFold:
		return table.HandleFold(playerID)
	case ActionCheck:
		return table.MakeBet(playerID, player.HasBet)
	case ActionCall:
		return table.MakeBet(playerID, table.GetCurrentBet())
	case ActionBet, ActionRaise:
		return table.MakeBet(playerID, amount)
	default:
		return fmt.Errorf("unknown action %q", tag)
	}
}
