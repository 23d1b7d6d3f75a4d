package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	mu      sync.Mutex
	flushes []point
}

func (r *flushRecorder) record(canvasID, userID string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes = append(r.flushes, point{x: x, y: y})
}

func (r *flushRecorder) snapshot() []point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]point(nil), r.flushes...)
}

func TestTracker_FirstUpdateFlushesImmediately(t *testing.T) {
	recorder := &flushRecorder{}
	tracker := NewTracker(FlushInterval, recorder.record)

	tracker.Update("canvas-1", "user-a", 1, 2)

	flushes := recorder.snapshot()
	require.Len(t, flushes, 1)
	assert.Equal(t, point{x: 1, y: 2}, flushes[0])
}

func TestTracker_CoalescesWithinOneFrame(t *testing.T) {
	recorder := &flushRecorder{}
	tracker := NewTracker(FlushInterval, recorder.record)

	// burst at t, t+5ms, t+10ms: the first flushes immediately, the
	// rest coalesce into exactly one deferred flush with the newest
	// coordinates
	tracker.Update("canvas-1", "user-a", 1, 1)
	time.Sleep(5 * time.Millisecond)
	tracker.Update("canvas-1", "user-a", 2, 2)
	time.Sleep(5 * time.Millisecond)
	tracker.Update("canvas-1", "user-a", 3, 3)

	time.Sleep(3 * FlushInterval)

	flushes := recorder.snapshot()
	require.Len(t, flushes, 2)
	assert.Equal(t, point{x: 1, y: 1}, flushes[0])
	assert.Equal(t, point{x: 3, y: 3}, flushes[1], "final position of the gesture must not be lost")
}

func TestTracker_IndependentCellsPerUser(t *testing.T) {
	recorder := &flushRecorder{}
	tracker := NewTracker(FlushInterval, recorder.record)

	tracker.Update("canvas-1", "user-a", 1, 1)
	tracker.Update("canvas-1", "user-b", 2, 2)

	// different users don't share a throttle window
	flushes := recorder.snapshot()
	assert.Len(t, flushes, 2)
}

func TestTracker_CancelDropsPendingFlush(t *testing.T) {
	recorder := &flushRecorder{}
	tracker := NewTracker(FlushInterval, recorder.record)

	tracker.Update("canvas-1", "user-a", 1, 1)
	tracker.Update("canvas-1", "user-a", 2, 2) // deferred
	tracker.Cancel("canvas-1", "user-a")

	time.Sleep(3 * FlushInterval)

	flushes := recorder.snapshot()
	require.Len(t, flushes, 1, "pending flush must not fire after cancel")
	assert.Equal(t, point{x: 1, y: 1}, flushes[0])
}

func TestTracker_NewFrameFlushesImmediatelyAgain(t *testing.T) {
	recorder := &flushRecorder{}
	tracker := NewTracker(10*time.Millisecond, recorder.record)

	tracker.Update("canvas-1", "user-a", 1, 1)
	time.Sleep(20 * time.Millisecond)
	tracker.Update("canvas-1", "user-a", 2, 2)

	flushes := recorder.snapshot()
	assert.Len(t, flushes, 2)
}
