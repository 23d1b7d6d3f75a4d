package presence

import (
	"context"
	"sync"
	"time"

	"collab-canvas/internal/auth"
	apiError "collab-canvas/internal/errors"
	"collab-canvas/internal/hub"

	"github.com/sirupsen/logrus"
)

type Service struct {
	store   Store
	hub     *hub.Hub
	tracker *Tracker

	// last-known identity per (canvas, user) so a deferred cursor
	// flush can still fill in name and color
	identities sync.Map
}

func identityKey(canvasID, userID string) string {
	return canvasID + "/" + userID
}

func NewService(store Store, fanout *hub.Hub, flushInterval time.Duration) *Service {
	s := &Service{
		store: store,
		hub:   fanout,
	}
	s.tracker = NewTracker(flushInterval, s.flushCursor)
	return s
}

// Join upserts the user's presence entry with no cursor yet. A re-join
// (tab became visible again) just overwrites the previous entry.
func (s *Service) Join(ctx context.Context, canvasID string, user auth.Identity) error {
	entry := Entry{
		UserID:      user.ID,
		DisplayName: user.Name,
		Color:       user.Color,
		LastSeen:    time.Now().UTC(),
	}

	if err := s.store.Upsert(ctx, canvasID, entry); err != nil {
		return apiError.Unavailable("Could not join canvas", err)
	}

	s.publish(ctx, canvasID)
	return nil
}

// UpdateCursor feeds the coalescing tracker; the actual store write and
// fan-out happen at most once per frame per user.
func (s *Service) UpdateCursor(canvasID string, user auth.Identity, x, y float64) {
	// keep identity fresh for the flush callback
	s.identities.Store(identityKey(canvasID, user.ID), user)
	s.tracker.Update(canvasID, user.ID, x, y)
}

// Leave removes the entry and cancels any deferred cursor flush. Best
// effort: a failure here leaves a stale entry other clients ignore once
// the user reconnects or a higher-level liveness check removes it.
func (s *Service) Leave(ctx context.Context, canvasID, userID string) {
	s.tracker.Cancel(canvasID, userID)
	s.identities.Delete(identityKey(canvasID, userID))

	if err := s.store.Delete(ctx, canvasID, userID); err != nil {
		logrus.WithFields(logrus.Fields{
			"canvas_id": canvasID,
			"user_id":   userID,
			"error":     err,
		}).Warn("presence removal failed")
		return
	}

	s.publish(ctx, canvasID)
}

func (s *Service) Snapshot(ctx context.Context, canvasID string) (map[string]Entry, error) {
	entries, err := s.store.List(ctx, canvasID)
	if err != nil {
		return nil, apiError.Unavailable("Could not load presence", err)
	}
	return entries, nil
}

func (s *Service) flushCursor(canvasID, userID string, x, y float64) {
	ctx := context.Background()

	user := auth.Identity{ID: userID}
	if cached, ok := s.identities.Load(identityKey(canvasID, userID)); ok {
		user = cached.(auth.Identity)
	}

	entry := Entry{
		UserID:      userID,
		DisplayName: user.Name,
		Color:       user.Color,
		CursorX:     x,
		CursorY:     y,
		LastSeen:    time.Now().UTC(),
	}

	if err := s.store.Upsert(ctx, canvasID, entry); err != nil {
		logrus.WithFields(logrus.Fields{
			"canvas_id": canvasID,
			"user_id":   userID,
			"error":     err,
		}).Warn("cursor flush failed")
		return
	}

	s.publish(ctx, canvasID)
}

func (s *Service) publish(ctx context.Context, canvasID string) {
	entries, err := s.store.List(ctx, canvasID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"canvas_id": canvasID,
			"error":     err,
		}).Warn("failed to snapshot presence for fan-out")
		return
	}

	s.hub.Publish(hub.Snapshot{
		Kind:     hub.KindPresence,
		CanvasID: canvasID,
		Payload:  entries,
	})
}
