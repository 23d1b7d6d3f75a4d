package presence

import (
	"sync"
	"time"
)

// FlushInterval is one display frame. Cursor updates arriving faster
// than this are coalesced, not dropped: the newest coordinates always
// flush once the interval elapses, so the final position of a rapid
// gesture is never lost.
const FlushInterval = time.Second / 60

type FlushFunc func(canvasID, userID string, x, y float64)

// Tracker owns one timer+pending-value cell per (canvas, user). The
// first update in a frame flushes immediately; later ones within the
// frame overwrite the pending value and flush exactly once when the
// frame ends.
type Tracker struct {
	mu       sync.Mutex
	interval time.Duration
	cells    map[cellKey]*cell
	flush    FlushFunc
}

type cellKey struct {
	canvasID string
	userID   string
}

type point struct {
	x, y float64
}

type cell struct {
	mu        sync.Mutex
	lastFlush time.Time
	pending   *point
	timer     *time.Timer
	gone      bool
}

func NewTracker(interval time.Duration, flush FlushFunc) *Tracker {
	if interval <= 0 {
		interval = FlushInterval
	}
	return &Tracker{
		interval: interval,
		cells:    make(map[cellKey]*cell),
		flush:    flush,
	}
}

func (t *Tracker) Update(canvasID, userID string, x, y float64) {
	key := cellKey{canvasID: canvasID, userID: userID}

	t.mu.Lock()
	c, ok := t.cells[key]
	if !ok {
		c = &cell{}
		t.cells[key] = c
	}
	t.mu.Unlock()

	c.mu.Lock()
	now := time.Now()

	if c.timer != nil {
		// a deferred flush is already scheduled; just keep the newest
		// coordinates for it
		c.pending = &point{x: x, y: y}
		c.mu.Unlock()
		return
	}

	if elapsed := now.Sub(c.lastFlush); elapsed >= t.interval {
		c.lastFlush = now
		c.mu.Unlock()
		t.flush(canvasID, userID, x, y)
		return
	}

	c.pending = &point{x: x, y: y}
	remaining := t.interval - now.Sub(c.lastFlush)
	c.timer = time.AfterFunc(remaining, func() {
		t.fire(key, c)
	})
	c.mu.Unlock()
}

func (t *Tracker) fire(key cellKey, c *cell) {
	c.mu.Lock()
	c.timer = nil
	if c.gone || c.pending == nil {
		c.mu.Unlock()
		return
	}
	p := *c.pending
	c.pending = nil
	c.lastFlush = time.Now()
	c.mu.Unlock()

	t.flush(key.canvasID, key.userID, p.x, p.y)
}

// Cancel drops the user's cell and any pending deferred flush. Called
// on Leave so a queued cursor position can't resurrect a user who just
// left the canvas.
func (t *Tracker) Cancel(canvasID, userID string) {
	key := cellKey{canvasID: canvasID, userID: userID}

	t.mu.Lock()
	c, ok := t.cells[key]
	if ok {
		delete(t.cells, key)
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	c.mu.Lock()
	c.gone = true
	c.pending = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
}
