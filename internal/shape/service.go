package shape

import (
	"context"
	defError "errors"
	"fmt"
	"sync"
	"time"

	"collab-canvas/internal/auth"
	apiError "collab-canvas/internal/errors"
	"collab-canvas/internal/hub"
	"collab-canvas/internal/worker"
	"collab-canvas/redis"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service interface {
	CreateShape(ctx context.Context, canvasID string, attrs CreateAttributes, editor auth.Identity) (*Shape, error)
	UpdateShape(ctx context.Context, canvasID, shapeID string, delta *Delta, editor auth.Identity, expectedVersion *uint64) (*Shape, error)
	DeleteShape(ctx context.Context, canvasID, shapeID string) error
	ListShapes(ctx context.Context, canvasID string) ([]Shape, error)
	DeleteCanvasShapes(ctx context.Context, canvasID string) error
}

type DefaultService struct {
	repository Repository
	hub        *hub.Hub
	cache      *redis.Cache
	pool       *worker.WorkerPool

	// one mutex per canvas orders snapshot reads against publishes, so
	// subscribers never see a shape's version go backward
	canvasLocks map[string]*sync.Mutex
	locksGuard  sync.Mutex
}

func NewService(
	repository Repository,
	fanout *hub.Hub,
	cache *redis.Cache,
	pool *worker.WorkerPool,
) Service {
	return &DefaultService{
		repository:  repository,
		hub:         fanout,
		cache:       cache,
		pool:        pool,
		canvasLocks: make(map[string]*sync.Mutex),
	}
}

func (s *DefaultService) CreateShape(ctx context.Context, canvasID string, attrs CreateAttributes, editor auth.Identity) (*Shape, error) {
	shape := &Shape{
		ID:               uuid.NewString(),
		CanvasID:         canvasID,
		Type:             attrs.Type,
		X:                attrs.X,
		Y:                attrs.Y,
		Width:            attrs.Width,
		Height:           attrs.Height,
		Fill:             attrs.Fill,
		Text:             attrs.Text,
		Rotation:         attrs.Rotation,
		Version:          1,
		CreatedBy:        editor.ID,
		LastEditedBy:     editor.ID,
		LastEditedByName: editor.Name,
	}

	if err := s.repository.Create(ctx, shape); err != nil {
		return nil, apiError.Unavailable("Could not save shape", err)
	}

	s.bumpCanvasVersion(ctx, canvasID)
	s.publishShapes(ctx, canvasID)
	return shape, nil
}

func (s *DefaultService) UpdateShape(
	ctx context.Context,
	canvasID, shapeID string,
	delta *Delta,
	editor auth.Identity,
	expectedVersion *uint64,
) (*Shape, error) {
	updated, err := s.repository.Update(ctx, canvasID, shapeID, delta, editor.ID, editor.Name, expectedVersion)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.NotFound("Shape not found", err)
		}
		// ConflictError passes through typed so callers can branch on
		// it; a rejected write publishes nothing
		return nil, err
	}

	s.bumpCanvasVersion(ctx, canvasID)
	s.publishShapes(ctx, canvasID)
	return updated, nil
}

// DeleteShape is unconditional: delete always wins over a concurrent
// edit. Deleting an already-deleted shape is a no-op.
func (s *DefaultService) DeleteShape(ctx context.Context, canvasID, shapeID string) error {
	if err := s.repository.Delete(ctx, canvasID, shapeID); err != nil {
		return apiError.Unavailable("Could not delete shape", err)
	}

	s.bumpCanvasVersion(ctx, canvasID)
	s.publishShapes(ctx, canvasID)
	return nil
}

func (s *DefaultService) ListShapes(ctx context.Context, canvasID string) ([]Shape, error) {
	versionKey := fmt.Sprintf("canvas:%s:shapes:version", canvasID)
	v := s.cache.GetVersion(ctx, versionKey)
	cacheKey := fmt.Sprintf("shapes:c:%s:v:%d", canvasID, v)

	var cached []Shape
	found, _ := s.cache.Get(ctx, cacheKey, &cached)
	if found {
		return cached, nil
	}

	shapes, err := s.repository.List(ctx, canvasID)
	if err != nil {
		return nil, apiError.Unavailable("Could not load shapes", err)
	}

	// cache write happens off the request path
	s.pool.Submit(func(ctx context.Context) error {
		s.cache.Set(ctx, cacheKey, shapes, 24*time.Hour)
		return nil
	})

	return shapes, nil
}

func (s *DefaultService) DeleteCanvasShapes(ctx context.Context, canvasID string) error {
	if err := s.repository.DeleteAll(ctx, canvasID); err != nil {
		return apiError.Unavailable("Could not delete canvas shapes", err)
	}

	s.bumpCanvasVersion(ctx, canvasID)
	s.publishShapes(ctx, canvasID)
	return nil
}

// bumpCanvasVersion orphans the cached snapshot inline with the
// mutation: a read arriving right after the 2xx must miss the cache and
// see the new state. Only the cache fill runs off the request path.
func (s *DefaultService) bumpCanvasVersion(ctx context.Context, canvasID string) {
	versionKey := fmt.Sprintf("canvas:%s:shapes:version", canvasID)
	s.cache.IncrementVersion(ctx, versionKey)
}

// publishShapes fans out the full current shape list for the canvas.
// The per-canvas lock only covers the snapshot read and the publish,
// not the mutation itself, so writes to different shapes still run
// concurrently against storage.
func (s *DefaultService) publishShapes(ctx context.Context, canvasID string) {
	lock := s.canvasLock(canvasID)
	lock.Lock()
	defer lock.Unlock()

	shapes, err := s.repository.List(ctx, canvasID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"canvas_id": canvasID,
			"error":     err,
		}).Warn("failed to snapshot canvas for fan-out")
		return
	}

	s.hub.Publish(hub.Snapshot{
		Kind:     hub.KindShapes,
		CanvasID: canvasID,
		Payload:  shapes,
	})
}

func (s *DefaultService) canvasLock(canvasID string) *sync.Mutex {
	s.locksGuard.Lock()
	defer s.locksGuard.Unlock()

	lock, ok := s.canvasLocks[canvasID]
	if !ok {
		lock = &sync.Mutex{}
		s.canvasLocks[canvasID] = lock
	}
	return lock
}
