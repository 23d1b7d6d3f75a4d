package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscriber(t *testing.T) {
	h := New()
	sub := h.Subscribe("canvas-1")
	defer sub.Unsubscribe()

	h.Publish(Snapshot{Kind: KindShapes, CanvasID: "canvas-1", Payload: "snap"})

	<-sub.Ready()
	snaps := sub.Drain()
	require.Len(t, snaps, 1)
	assert.Equal(t, KindShapes, snaps[0].Kind)
	assert.Equal(t, "snap", snaps[0].Payload)
}

func TestSlowSubscriberNeverBlocksAndSeesLatest(t *testing.T) {
	h := New()
	sub := h.Subscribe("canvas-1")
	defer sub.Unsubscribe()

	// a subscriber that never drains must not stall writers; it just
	// observes the newest snapshot of each kind when it finally reads
	for i := 0; i < 1000; i++ {
		h.Publish(Snapshot{Kind: KindShapes, CanvasID: "canvas-1", Payload: i})
	}
	h.Publish(Snapshot{Kind: KindPresence, CanvasID: "canvas-1", Payload: "cursors"})

	<-sub.Ready()
	snaps := sub.Drain()
	require.Len(t, snaps, 2)

	byKind := make(map[Kind]any, len(snaps))
	for _, snap := range snaps {
		byKind[snap.Kind] = snap.Payload
	}
	assert.Equal(t, 999, byKind[KindShapes])
	assert.Equal(t, "cursors", byKind[KindPresence])
}

func TestCanvasIsolation(t *testing.T) {
	h := New()
	subA := h.Subscribe("canvas-a")
	defer subA.Unsubscribe()
	subB := h.Subscribe("canvas-b")
	defer subB.Unsubscribe()

	h.Publish(Snapshot{Kind: KindShapes, CanvasID: "canvas-a", Payload: "a"})

	<-subA.Ready()
	assert.Len(t, subA.Drain(), 1)

	select {
	case <-subB.Ready():
		t.Fatal("canvas-b subscriber received canvas-a snapshot")
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := New()
	sub := h.Subscribe("canvas-1")
	sub.Unsubscribe()

	h.Publish(Snapshot{Kind: KindShapes, CanvasID: "canvas-1", Payload: "late"})

	select {
	case <-sub.Ready():
		t.Fatal("unsubscribed subscription received a snapshot")
	default:
	}

	assert.Equal(t, 0, h.SubscriberCount("canvas-1"))
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	h := New()
	sub := h.Subscribe("canvas-1")
	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestDrainClearsPending(t *testing.T) {
	h := New()
	sub := h.Subscribe("canvas-1")
	defer sub.Unsubscribe()

	h.Publish(Snapshot{Kind: KindShapes, CanvasID: "canvas-1", Payload: 1})
	<-sub.Ready()
	require.Len(t, sub.Drain(), 1)
	assert.Empty(t, sub.Drain())
}

func TestDirectPushBypassesFanOut(t *testing.T) {
	h := New()
	subA := h.Subscribe("canvas-1")
	defer subA.Unsubscribe()
	subB := h.Subscribe("canvas-1")
	defer subB.Unsubscribe()

	subA.Push(Snapshot{Kind: KindLocks, CanvasID: "canvas-1", Payload: "initial"})

	<-subA.Ready()
	assert.Len(t, subA.Drain(), 1)

	select {
	case <-subB.Ready():
		t.Fatal("direct push leaked to another subscriber")
	default:
	}
}
