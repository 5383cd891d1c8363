package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"github.com/llmholdem/server/internal/decision"
	"github.com/llmholdem/server/internal/events"
	"github.com/llmholdem/server/internal/llmclient"
	"github.com/llmholdem/server/internal/persona"
	"github.com/llmholdem/server/internal/seat"
	"github.com/llmholdem/server/internal/store"
	"github.com/llmholdem/server/pkg/poker"
)

// Hub is the narrow fan-out capability the runtime needs from the
// Connection Hub: push one event to every live transport of a user.
type Hub interface {
	SendToUser(userID string, env events.Envelope)
}

// LLMFactory builds an llmclient.Client for a resolved API key. Empty key
// should be handled by returning (nil, false) so the caller falls back to
// rule-based decisions instead of talking to a provider with no key.
type LLMFactory func(key string) (llmclient.Client, bool)

// StartOutcome reports which of the four paths Decide took, matching the
// Connection Hub's state-decision table.
type StartOutcome int

const (
	Started StartOutcome = iota
	Resumed
	Restarted
	Failed
)

func (o StartOutcome) String() string {
	switch o {
	case Started:
		return "started"
	case Resumed:
		return "resumed"
	case Restarted:
		return "restarted"
	default:
		return "failed"
	}
}

// pending mirrors the runtime's idea of what a freshly (re)connected
// transport still needs to see to catch up.
type pending struct {
	roundStart    *events.Envelope
	actionRequest *events.Envelope
	roundResult   *events.Envelope
}

// Runtime is one user's Session Runtime: a single hand-loop worker bridged
// to the Connection Hub. All exported methods are safe to call from the
// cooperative transport goroutine; the worker itself runs on its own
// goroutine and may block indefinitely on LLM calls or on the human seat's
// response channel.
type Runtime struct {
	userID     string
	hub        Hub
	store      *store.Store
	envLLMKey  string
	llmFactory LLMFactory
	log        slog.Logger

	mu         sync.Mutex
	running    bool
	workerDone chan struct{}
	stopCh     chan struct{}
	human      *seat.HumanSeat
	holeMap    *seat.HoleCardMap
	pend       pending

	cfg         Config
	userLLMKey  string
	debugMode   bool
	debugFilter map[string]bool

	activeSessionID  string
	roundNumber      int
	lastReqPhase     poker.GamePhase
	heroVPIPThisHand bool
}

// NewRuntime builds an idle runtime for userID.
func NewRuntime(userID string, hub Hub, st *store.Store, envLLMKey string, llmFactory LLMFactory, log slog.Logger) *Runtime {
	if log == nil {
		log = slog.Disabled
	}
	return &Runtime{
		userID:     userID,
		hub:        hub,
		store:      st,
		envLLMKey:  envLLMKey,
		llmFactory: llmFactory,
		log:        log,
		cfg:        DefaultConfig(),
	}
}

// SetUserLLMKey records the account-scoped key resolved at connect time.
func (r *Runtime) SetUserLLMKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userLLMKey = key
}

// SetConfig overrides the table configuration used by the next Start.
func (r *Runtime) SetConfig(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

// IsRunning reports the runtime's is_running flag.
func (r *Runtime) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// WorkerAlive reports whether the worker goroutine has not yet exited.
func (r *Runtime) WorkerAlive() bool {
	r.mu.Lock()
	done := r.workerDone
	r.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// SeatPresent reports whether a human seat is currently registered.
func (r *Runtime) SeatPresent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.human != nil
}

// Decide applies the Connection Hub's state-decision table and acts
// accordingly, returning which path was taken.
func (r *Runtime) Decide(ctx context.Context) StartOutcome {
	running := r.IsRunning()
	alive := r.WorkerAlive()
	seatPresent := r.SeatPresent()

	switch {
	case running && alive && seatPresent:
		r.ReplayPending()
		return Resumed
	case running && !alive:
		r.ForceRestart(ctx)
		return Restarted
	case running && alive && !seatPresent:
		r.ForceRestart(ctx)
		return Restarted
	case !running && !alive:
		if err := r.Start(ctx); err != nil {
			return Failed
		}
		return Started
	default:
		r.ForceRestart(ctx)
		return Restarted
	}
}

// Start spawns a fresh worker. If one is already running it is stopped and
// joined first (bounded wait) before the new one begins.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.Stop(true)
		r.joinWorker(2 * time.Second)
		r.mu.Lock()
	}

	stopCh := make(chan struct{})
	done := make(chan struct{})
	holeMap := seat.NewHoleCardMap()
	human := seat.NewHumanSeat(r.userID, r, holeMap, newHeuristicHintProvider(), stopCh)

	r.stopCh = stopCh
	r.workerDone = done
	r.human = human
	r.holeMap = holeMap
	r.running = true
	cfg := r.cfg
	r.mu.Unlock()

	sess, err := r.store.CreateSession(r.userID, configJSON(cfg))
	if err != nil {
		r.log.Errorf("create session: user=%s err=%v", r.userID, err)
	} else {
		r.mu.Lock()
		r.activeSessionID = sess.ID
		r.roundNumber = 0
		r.mu.Unlock()
	}

	go r.runWorker(ctx, stopCh, done, human, holeMap, cfg)
	return nil
}

// Stop sets is_running false and, if clearSeat, drops the human seat
// reference. It does not forcibly abort the worker's current blocking
// call; teardown is cooperative via stopCh.
func (r *Runtime) Stop(clearSeat bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.running = false
		if r.stopCh != nil {
			select {
			case <-r.stopCh:
			default:
				close(r.stopCh)
			}
		}
	}
	if clearSeat {
		r.human = nil
	}
	r.pend = pending{}
}

// ForceRestart stops, joins with a bounded timeout, and starts anew.
func (r *Runtime) ForceRestart(ctx context.Context) {
	r.Stop(true)
	r.joinWorker(2 * time.Second)
	if err := r.Start(ctx); err != nil {
		r.log.Errorf("force restart: user=%s err=%v", r.userID, err)
	}
}

func (r *Runtime) joinWorker(timeout time.Duration) {
	r.mu.Lock()
	done := r.workerDone
	r.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// HandlePlayerAction enqueues payload for the blocked DeclareAction call
// and clears the pending action_request.
func (r *Runtime) HandlePlayerAction(a events.PlayerAction) {
	r.mu.Lock()
	human := r.human
	r.pend.actionRequest = nil
	if r.lastReqPhase == poker.GamePhasePreFlop && (a.Action == string(poker.ActionCall) || a.Action == string(poker.ActionRaise) || a.Action == string(poker.ActionBet)) {
		r.heroVPIPThisHand = true
	}
	r.mu.Unlock()
	if human == nil {
		return
	}
	select {
	case human.In <- a:
	default:
		// A second action arrived before the next request; per the
		// ordering guarantee only the first is consumed, extras are
		// dropped.
	}
}

// SignalNextRound opens the human seat's gate and clears the pending
// round_result.
func (r *Runtime) SignalNextRound() {
	r.mu.Lock()
	human := r.human
	r.pend.roundResult = nil
	r.mu.Unlock()
	if human != nil {
		human.Gate.Open()
	}
}

// SetCopilot toggles the human seat's advisory-hint flag.
func (r *Runtime) SetCopilot(enabled bool) {
	r.mu.Lock()
	human := r.human
	r.mu.Unlock()
	if human != nil {
		human.CopilotEnabled.Store(enabled)
	}
}

// SetDebug updates the debug flags consulted by bot seats' DebugSink.
func (r *Runtime) SetDebug(enabled bool, filterBots []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugMode = enabled
	if len(filterBots) == 0 {
		r.debugFilter = nil
		return
	}
	r.debugFilter = make(map[string]bool, len(filterBots))
	for _, b := range filterBots {
		r.debugFilter[b] = true
	}
}

// LogDebug implements seat.DebugSink; only forwarded when debug mode is on
// and the bot passes the filter (empty filter admits every bot).
func (r *Runtime) LogDebug(entry events.DebugLog) {
	r.mu.Lock()
	enabled := r.debugMode
	filter := r.debugFilter
	r.mu.Unlock()
	if !enabled {
		return
	}
	if filter != nil && !filter[entry.BotID] {
		return
	}
	r.hub.SendToUser(r.userID, events.Envelope{Type: events.TypeDebugLog, Data: entry})
}

// Publish implements seat.Publisher: update the pending-replay cache, then
// fan the event out to every live transport of this user. Because Go's
// hand-loop and transport sides are both real goroutines (not one
// cooperative event loop sharing a single thread), the forwarder's
// poll-with-sleep from the source design collapses into this direct call;
// Hub.SendToUser still fans out to every transport and tolerates
// per-connection failures, so each transport sees events in publish order.
func (r *Runtime) Publish(env events.Envelope) {
	r.mu.Lock()
	switch env.Type {
	case events.TypeRoundStart:
		e := env
		r.pend.roundStart = &e
		r.pend.actionRequest = nil
		r.pend.roundResult = nil
		r.heroVPIPThisHand = false
	case events.TypeActionRequest:
		e := env
		r.pend.actionRequest = &e
		if ar, ok := env.Data.(events.ActionRequest); ok && ar.Public != nil {
			r.lastReqPhase = ar.Public.Phase
		}
	case events.TypeRoundResult:
		e := env
		r.pend.roundResult = &e
		r.pend.actionRequest = nil
		r.persistHandLocked(env)
	}
	r.mu.Unlock()

	r.hub.SendToUser(r.userID, env)
}

// persistHandLocked saves a completed hand. Called with r.mu held; storage
// errors are logged, never propagated into the hand flow.
func (r *Runtime) persistHandLocked(env events.Envelope) {
	if r.store == nil || r.activeSessionID == "" {
		return
	}
	result, ok := env.Data.(events.RoundResult)
	if !ok {
		return
	}
	r.roundNumber++

	winnersJSON, _ := json.Marshal(result.Winners)
	holesJSON, _ := json.Marshal(result.RevealedHoles)
	var board []poker.Card
	if result.Public != nil {
		board = result.Public.CommunityCards
	}
	boardJSON, _ := json.Marshal(board)

	var heroProfit int64
	var pot int64
	if result.Public != nil {
		pot = result.Public.Pot
	}
	for _, w := range result.Winners {
		if w.PlayerId == r.userID {
			heroProfit += w.Winnings
		}
	}

	actionLog, _ := json.Marshal(struct {
		HeroVPIP bool `json:"hero_vpip"`
	}{HeroVPIP: r.heroVPIPThisHand})

	h := store.Hand{
		HeroHoleJSON:  string(holesJSON),
		BoardJSON:     string(boardJSON),
		ActionLogJSON: string(actionLog),
		WinnersJSON:   string(winnersJSON),
		HandInfoJSON:  fmt.Sprintf("%q", result.HandInfo),
		HeroProfit:    heroProfit,
		Pot:           pot,
	}
	if _, err := r.store.CreateRound(r.activeSessionID, r.roundNumber, h); err != nil {
		r.log.Errorf("persist hand: user=%s session=%s err=%v", r.userID, r.activeSessionID, err)
		return
	}
	if err := r.recomputeSessionStatsLocked(); err != nil {
		r.log.Errorf("update session stats: user=%s session=%s err=%v", r.userID, r.activeSessionID, err)
	}
}

// recomputeSessionStatsLocked rebuilds the active session's rolling totals
// from its persisted hands and writes them back, so GET /sessions/{id}
// reflects the hand that was just saved instead of the zero values from
// CreateSession. Called with r.mu held.
func (r *Runtime) recomputeSessionStatsLocked() error {
	hands, err := r.store.GetSessionRounds(r.userID, r.activeSessionID)
	if err != nil {
		return err
	}

	var netProfit int64
	var winningHands, vpipHands int
	for _, h := range hands {
		netProfit += h.HeroProfit
		if h.HeroProfit > 0 {
			winningHands++
		}
		if store.HeroVPIP(h) {
			vpipHands++
		}
	}

	handsPlayed := len(hands)
	var winRate, vpip float64
	if handsPlayed > 0 {
		winRate = float64(winningHands) / float64(handsPlayed) * 100
		vpip = float64(vpipHands) / float64(handsPlayed) * 100
	}

	return r.store.UpdateSessionStats(r.userID, r.activeSessionID, store.SessionUpdate{
		HandsPlayed: &handsPlayed,
		NetProfit:   &netProfit,
		WinRate:     &winRate,
		VPIP:        &vpip,
	})
}

// ReplayPending resends, in order, whatever of round_start /
// action_request / round_result is currently cached, so a freshly opened
// transport catches up without waiting for the next engine event.
func (r *Runtime) ReplayPending() {
	r.mu.Lock()
	rs := r.pend.roundStart
	ar := r.pend.actionRequest
	rr := r.pend.roundResult
	r.mu.Unlock()

	if rs != nil {
		r.hub.SendToUser(r.userID, *rs)
		time.Sleep(50 * time.Millisecond)
	}
	switch {
	case ar != nil:
		r.hub.SendToUser(r.userID, *ar)
	case rr != nil:
		r.hub.SendToUser(r.userID, *rr)
	}
}

func (r *Runtime) resolveLLMKey() (string, string) {
	r.mu.Lock()
	sessionKey := r.cfg.SessionLLMKey
	userKey := r.userLLMKey
	r.mu.Unlock()

	if sessionKey != "" {
		return sessionKey, "session"
	}
	if userKey != "" {
		return userKey, "user"
	}
	if r.envLLMKey != "" {
		return r.envLLMKey, "environment"
	}
	return "", "none"
}

// runWorker is the hand-loop worker: resolves the LLM key, builds the
// table and seats, and runs poker.RunGame until it returns.
func (r *Runtime) runWorker(ctx context.Context, stopCh chan struct{}, done chan struct{}, human *seat.HumanSeat, holeMap *seat.HoleCardMap, cfg Config) {
	defer close(done)
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	key, source := r.resolveLLMKey()
	r.log.Infof("resolved llm key: user=%s source=%s", r.userID, source)

	var llm llmclient.Client
	if key != "" && r.llmFactory != nil {
		if c, ok := r.llmFactory(key); ok {
			llm = c
		}
	}

	table := poker.NewTable(poker.TableConfig{
		ID:            uuid.NewString(),
		HostID:        r.userID,
		BuyIn:         cfg.InitialStack,
		MinPlayers:    2,
		MaxPlayers:    cfg.BotCount + 1,
		SmallBlind:    cfg.SmallBlind,
		BigBlind:      cfg.BigBlind,
		MinBalance:    cfg.InitialStack,
		StartingChips: cfg.InitialStack,
		TimeBank:      30 * time.Second,
	})

	seats := make([]poker.Seat, 0, cfg.BotCount+1)
	seats = append(seats, human)

	personas := persona.Assign(cfg.BotCount)
	for i, p := range personas {
		id := fmt.Sprintf("bot-%d-%s", i, p.Code)
		kernel := decision.NewKernel(llm, nil)
		var sink seat.DebugSink
		if r.debugMode {
			sink = r
		}
		seats = append(seats, seat.NewBotSeat(id, p, kernel, holeMap, sink))
	}

	if err := table.AddPlayer(r.userID, cfg.InitialStack); err != nil {
		r.log.Errorf("seat human: user=%s err=%v", r.userID, err)
		return
	}
	if p := table.GetPlayer(r.userID); p != nil {
		p.IsReady = true
	}
	for i := range personas {
		id := fmt.Sprintf("bot-%d-%s", i, personas[i].Code)
		if err := table.AddPlayer(id, cfg.InitialStack); err != nil {
			r.log.Errorf("seat bot: bot=%s err=%v", id, err)
			return
		}
		if p := table.GetPlayer(id); p != nil {
			p.IsReady = true
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	if err := poker.RunGame(runCtx, table, seats); err != nil {
		r.log.Infof("hand loop exited: user=%s err=%v", r.userID, err)
	}
}

func configJSON(cfg Config) string {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "{}"
	}
	return string(b)
}
