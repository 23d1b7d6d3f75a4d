// Package hub is the per-canvas fan-out channel shared by the shape
// store, the soft-lock registry and the presence table. Every publish
// carries a complete snapshot, so a subscriber that misses an
// intermediate publish still converges on the newest state: each
// subscriber keeps only the latest pending snapshot per kind and a
// writer never blocks on a slow reader.
package hub

import (
	"sync"
)

type Kind string

const (
	KindShapes   Kind = "shapes"
	KindLocks    Kind = "locks"
	KindPresence Kind = "presence"
)

// Snapshot is one full-state delivery for a canvas.
type Snapshot struct {
	Kind     Kind   `json:"kind"`
	CanvasID string `json:"canvas_id"`
	Payload  any    `json:"payload"`
}

type Hub struct {
	mu       sync.RWMutex
	canvases map[string]map[*Subscription]struct{}
}

func New() *Hub {
	return &Hub{
		canvases: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription receives snapshots for a single canvas. Wait on Ready()
// and call Drain() for the newest pending snapshot of each kind.
type Subscription struct {
	hub      *Hub
	canvasID string

	mu      sync.Mutex
	pending map[Kind]Snapshot
	ready   chan struct{}
	closed  bool
}

func (h *Hub) Subscribe(canvasID string) *Subscription {
	sub := &Subscription{
		hub:      h,
		canvasID: canvasID,
		pending:  make(map[Kind]Snapshot),
		ready:    make(chan struct{}, 1),
	}

	h.mu.Lock()
	if h.canvases[canvasID] == nil {
		h.canvases[canvasID] = make(map[*Subscription]struct{})
	}
	h.canvases[canvasID][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers a snapshot to every live subscriber of its canvas.
// Never blocks: a subscriber that hasn't drained yet just has its
// pending snapshot of that kind replaced.
func (h *Hub) Publish(snap Snapshot) {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.canvases[snap.CanvasID]))
	for sub := range h.canvases[snap.CanvasID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.push(snap)
	}
}

// SubscriberCount reports the number of live subscribers for a canvas.
func (h *Hub) SubscriberCount(canvasID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.canvases[canvasID])
}

// Push injects a snapshot into this subscription's mailbox only,
// bypassing canvas-wide fan-out. Used for initial state delivery to a
// brand-new subscriber.
func (s *Subscription) Push(snap Snapshot) {
	s.push(snap)
}

func (s *Subscription) push(snap Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending[snap.Kind] = snap
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Ready signals that at least one snapshot is pending.
func (s *Subscription) Ready() <-chan struct{} {
	return s.ready
}

// Drain returns and clears all pending snapshots.
func (s *Subscription) Drain() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]Snapshot, 0, len(s.pending))
	for _, snap := range s.pending {
		snaps = append(snaps, snap)
	}
	s.pending = make(map[Kind]Snapshot)
	return snaps
}

func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.mu.Lock()
	if subs, ok := s.hub.canvases[s.canvasID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.hub.canvases, s.canvasID)
		}
	}
	s.hub.mu.Unlock()
}
