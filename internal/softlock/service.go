package softlock

import (
	"context"
	"time"

	"collab-canvas/internal/auth"
	apiError "collab-canvas/internal/errors"
	"collab-canvas/internal/hub"

	"github.com/sirupsen/logrus"
)

type Service struct {
	store Store
	hub   *hub.Hub
	ttl   time.Duration

	// injectable clock for expiry tests
	now func() time.Time
}

func NewService(store Store, fanout *hub.Hub, ttl time.Duration) *Service {
	return &Service{
		store: store,
		hub:   fanout,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Acquire writes or overwrites the lock for a shape. Idempotent, no
// queuing, no denial: a second editor acquiring the same shape simply
// becomes the new holder.
func (s *Service) Acquire(ctx context.Context, canvasID, shapeID string, editor auth.Identity) error {
	started := s.now().UTC()
	lock := SoftLock{
		ShapeID:     shapeID,
		EditorID:    editor.ID,
		EditorName:  editor.Name,
		EditorColor: editor.Color,
		StartedAt:   started,
		ExpiresAt:   started.Add(s.ttl),
	}

	if err := s.store.Put(ctx, canvasID, lock); err != nil {
		return apiError.Unavailable("Could not register edit lock", err)
	}

	s.publish(ctx, canvasID)
	return nil
}

// Release is best-effort cleanup: absence of the lock self-heals via
// the TTL, so storage failures are logged and discarded.
func (s *Service) Release(ctx context.Context, canvasID, shapeID string) {
	if err := s.store.Delete(ctx, canvasID, shapeID); err != nil {
		logrus.WithFields(logrus.Fields{
			"canvas_id": canvasID,
			"shape_id":  shapeID,
			"error":     err,
		}).Warn("soft-lock release failed, lock will expire on its own")
		return
	}

	s.publish(ctx, canvasID)
}

// Snapshot returns the active locks for a canvas with expired entries
// already filtered out.
func (s *Service) Snapshot(ctx context.Context, canvasID string) (map[string]SoftLock, error) {
	locks, err := s.store.List(ctx, canvasID)
	if err != nil {
		return nil, apiError.Unavailable("Could not load edit locks", err)
	}

	now := s.now()
	active := make(map[string]SoftLock, len(locks))
	for shapeID, lock := range locks {
		if lock.Expired(now) {
			continue
		}
		active[shapeID] = lock
	}
	return active, nil
}

func (s *Service) publish(ctx context.Context, canvasID string) {
	active, err := s.Snapshot(ctx, canvasID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"canvas_id": canvasID,
			"error":     err,
		}).Warn("failed to snapshot locks for fan-out")
		return
	}

	s.hub.Publish(hub.Snapshot{
		Kind:     hub.KindLocks,
		CanvasID: canvasID,
		Payload:  active,
	})
}
