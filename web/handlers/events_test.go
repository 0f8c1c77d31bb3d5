package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubscriber struct {
	ch chan []byte
}

func (m *mockSubscriber) sendChannel() chan []byte { return m.ch }
func (m *mockSubscriber) close()                   {}

func TestEventHub_BroadcastsToSubscribers(t *testing.T) {
	hub := NewEventHub(zerolog.Nop())
	go hub.Run()
	defer hub.Stop()

	sub := &mockSubscriber{ch: make(chan []byte, 8)}
	hub.register <- sub

	hub.Publish(AnalysisEvent{Type: EventAnalysisStarted, Mode: "review", Filename: "plan.pdf"})

	select {
	case data := <-sub.ch:
		var event AnalysisEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventAnalysisStarted, event.Type)
		assert.Equal(t, "review", event.Mode)
		assert.Equal(t, "plan.pdf", event.Filename)
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestEventHub_DropsSlowSubscribers(t *testing.T) {
	hub := NewEventHub(zerolog.Nop())
	go hub.Run()
	defer hub.Stop()

	slow := &mockSubscriber{ch: make(chan []byte)} // unbuffered, never drained
	hub.register <- slow

	hub.Publish(AnalysisEvent{Type: EventAnalysisCompleted, Mode: "review"})

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.subscribers) == 0
	}, 2*time.Second, 10*time.Millisecond, "slow subscriber must be dropped")
}
