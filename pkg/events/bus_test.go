package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus(8)
	ctx := context.Background()

	_, ch, history := bus.Subscribe("run-1")
	assert.Empty(t, history)

	for i := 0; i < 3; i++ {
		err := bus.Publish(ctx, "run-1", EventTypeLog, LogPayload{Level: "info", Message: "step"})
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		ev := <-ch
		assert.Equal(t, EventTypeLog, ev.Type)
		assert.Equal(t, "run-1", ev.SessionID)

		var payload LogPayload
		require.NoError(t, json.Unmarshal(ev.Data, &payload))
		assert.Equal(t, "step", payload.Message)
	}
}

func TestLateJoinerReplaysHistory(t *testing.T) {
	bus := NewBus(8)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "run-1", EventTypePipelineStart,
		PipelineStartPayload{NumDialogues: 10, Domains: []string{"hotel"}}))
	require.NoError(t, bus.Publish(ctx, "run-1", EventTypeStepStart,
		StepStartPayload{Step: "generation", Message: "Generating dialogues"}))

	_, ch, history := bus.Subscribe("run-1")
	require.Len(t, history, 2)
	assert.Equal(t, EventTypePipelineStart, history[0].Type)
	assert.Equal(t, EventTypeStepStart, history[1].Type)

	// Live events keep flowing after the replayed history.
	require.NoError(t, bus.Publish(ctx, "run-1", EventTypeLog,
		LogPayload{Level: "info", Message: "dialogue 1 accepted"}))
	ev := <-ch
	assert.Equal(t, EventTypeLog, ev.Type)
}

func TestEndSessionClosesSubscribers(t *testing.T) {
	bus := NewBus(8)
	ctx := context.Background()

	_, ch, _ := bus.Subscribe("run-1")
	require.NoError(t, bus.Publish(ctx, "run-1", EventTypePipelineComplete,
		PipelineCompletePayload{Message: "done"}))
	bus.EndSession("run-1")

	ev, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, EventTypePipelineComplete, ev.Type)

	_, ok = <-ch
	assert.False(t, ok, "channel should be closed after EndSession")

	err := bus.Publish(ctx, "run-1", EventTypeLog, LogPayload{Message: "late"})
	assert.ErrorIs(t, err, ErrSessionEnded)
}

func TestSubscribeAfterEndGetsFullHistory(t *testing.T) {
	bus := NewBus(8)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "run-1", EventTypePipelineStart,
		PipelineStartPayload{NumDialogues: 5, Domains: []string{"taxi"}}))
	require.NoError(t, bus.Publish(ctx, "run-1", EventTypePipelineComplete,
		PipelineCompletePayload{Message: "done"}))
	bus.EndSession("run-1")

	_, ch, history := bus.Subscribe("run-1")
	require.Len(t, history, 2)
	_, ok := <-ch
	assert.False(t, ok, "channel for an ended session is closed immediately")
}

func TestEndedSessionHistoryIsBounded(t *testing.T) {
	bus := NewBus(8)
	ctx := context.Background()

	for i := 0; i <= maxEndedSessions; i++ {
		id := fmt.Sprintf("run-%d", i)
		require.NoError(t, bus.Publish(ctx, id, EventTypeLog, LogPayload{Message: "hi"}))
		bus.EndSession(id)
	}

	// The oldest finished session was evicted, the newest are kept.
	assert.Nil(t, bus.History("run-0"))
	assert.Len(t, bus.History("run-1"), 1)
	assert.Len(t, bus.History(fmt.Sprintf("run-%d", maxEndedSessions)), 1)
}

func TestUnsubscribeReleasesBlockedPublish(t *testing.T) {
	bus := NewBus(1)
	ctx := context.Background()

	subID, _, _ := bus.Subscribe("run-1")
	// Fill the subscriber buffer so the next publish would block.
	require.NoError(t, bus.Publish(ctx, "run-1", EventTypeLog, LogPayload{Message: "1"}))

	done := make(chan error, 1)
	go func() {
		done <- bus.Publish(ctx, "run-1", EventTypeLog, LogPayload{Message: "2"})
	}()

	select {
	case err := <-done:
		t.Fatalf("publish should block on a full buffer, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	bus.Unsubscribe("run-1", subID)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publish still blocked after unsubscribe")
	}
}

func TestPublishHonorsContextCancellation(t *testing.T) {
	bus := NewBus(1)
	ctx, cancel := context.WithCancel(context.Background())

	bus.Subscribe("run-1")
	require.NoError(t, bus.Publish(ctx, "run-1", EventTypeLog, LogPayload{Message: "1"}))

	done := make(chan error, 1)
	go func() {
		done <- bus.Publish(ctx, "run-1", EventTypeLog, LogPayload{Message: "2"})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("publish did not observe cancellation")
	}
}

func TestEventsDistinctAcrossSessions(t *testing.T) {
	bus := NewBus(8)
	ctx := context.Background()

	_, chA, _ := bus.Subscribe("run-a")
	_, chB, _ := bus.Subscribe("run-b")

	require.NoError(t, bus.Publish(ctx, "run-a", EventTypeLog, LogPayload{Message: "only a"}))

	ev := <-chA
	assert.Equal(t, "run-a", ev.SessionID)
	select {
	case ev := <-chB:
		t.Fatalf("session run-b received foreign event %s", ev.Type)
	default:
	}
}
