package seat

import (
	"sync"
	"time"
)

// NextRoundGate is a one-shot signal: closed once by Open, observed by
// repeated short-timeout polls so a blocked worker can still be torn down
// during shutdown.
type NextRoundGate struct {
	mu   sync.Mutex
	ch   chan struct{}
	once sync.Once
}

// NewNextRoundGate returns a gate in the closed (not-yet-signaled) state.
func NewNextRoundGate() *NextRoundGate {
	return &NextRoundGate{ch: make(chan struct{})}
}

// Open signals the gate. Safe to call multiple times or concurrently;
// only the first call has effect.
func (g *NextRoundGate) Open() {
	g.once.Do(func() {
		close(g.ch)
	})
}

// Reset rearms the gate for the next hand. Must not be called while any
// goroutine is still waiting on the previous incarnation.
func (g *NextRoundGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ch = make(chan struct{})
	g.once = sync.Once{}
}

// WaitTimeout blocks until Open is called, the stop channel closes, or
// timeout elapses, whichever comes first. Returns true only when the gate
// was opened.
func (g *NextRoundGate) WaitTimeout(stop <-chan struct{}, timeout time.Duration) bool {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-stop:
		return false
	case <-timer.C:
		return false
	}
}
