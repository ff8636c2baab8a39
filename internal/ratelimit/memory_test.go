package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, _, err := s.Hit(ctx, "a", time.Minute, now)
	require.NoError(t, err)
	_, _, err = s.Hit(ctx, "b", time.Hour, now)
	require.NoError(t, err)

	assert.Zero(t, s.Sweep(now.Add(time.Minute)))
	assert.Equal(t, 1, s.Sweep(now.Add(2*time.Minute)))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_RunSweeperStops(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.Hit(context.Background(), "old", time.Nanosecond, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
