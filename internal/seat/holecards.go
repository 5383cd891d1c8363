package seat

import (
	"sync"

	"github.com/llmholdem/server/pkg/poker"
)

// HoleCardMap is the shared dict of bot hole cards: written by each Bot
// Seat on round_start, read by the Human Seat (or session layer) at
// round_result. The rules engine's event sequencing guarantees all writes
// of a round complete before any read of that round, but the mutex keeps
// the type safe under `go test -race` regardless.
type HoleCardMap struct {
	mu    sync.Mutex
	cards map[string][]poker.Card
}

// NewHoleCardMap returns an empty map.
func NewHoleCardMap() *HoleCardMap {
	return &HoleCardMap{cards: make(map[string][]poker.Card)}
}

// Set records seatID's hole cards for the current round.
func (m *HoleCardMap) Set(seatID string, cards []poker.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[seatID] = append([]poker.Card{}, cards...)
}

// Snapshot returns a copy of every recorded hand, keyed by seat id.
func (m *HoleCardMap) Snapshot() map[string][]poker.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]poker.Card, len(m.cards))
	for k, v := range m.cards {
		out[k] = append([]poker.Card{}, v...)
	}
	return out
}
