package seat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextRoundGate_WaitTimeoutReturnsTrueOnOpen(t *testing.T) {
	g := NewNextRoundGate()
	stop := make(chan struct{})

	done := make(chan bool, 1)
	go func() {
		done <- g.WaitTimeout(stop, time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	g.Open()

	require.True(t, <-done)
}

func TestNextRoundGate_WaitTimeoutReturnsFalseOnStop(t *testing.T) {
	g := NewNextRoundGate()
	stop := make(chan struct{})
	close(stop)

	require.False(t, g.WaitTimeout(stop, time.Second))
}

func TestNextRoundGate_WaitTimeoutReturnsFalseOnTimeout(t *testing.T) {
	g := NewNextRoundGate()
	stop := make(chan struct{})

	require.False(t, g.WaitTimeout(stop, 20*time.Millisecond))
}

func TestNextRoundGate_OpenIsIdempotent(t *testing.T) {
	g := NewNextRoundGate()
	g.Open()
	g.Open()
	require.True(t, g.WaitTimeout(nil, time.Second))
}

func TestNextRoundGate_ResetRearms(t *testing.T) {
	g := NewNextRoundGate()
	g.Open()
	require.True(t, g.WaitTimeout(nil, time.Second))

	g.Reset()
	require.False(t, g.WaitTimeout(nil, 20*time.Millisecond))

	g.Open()
	require.True(t, g.WaitTimeout(nil, time.Second))
}
