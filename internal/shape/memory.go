package shape

import (
	"context"
	"sync"
	"time"

	apiError "collab-canvas/internal/errors"

	"gorm.io/gorm"
)

// MemoryRepository mirrors the Postgres repository for tests and
// single-node dev setups. The per-store mutex gives the same atomicity
// the SQL UPDATE gives the durable store.
type MemoryRepository struct {
	mu     sync.RWMutex
	shapes map[string]map[string]Shape // canvasID -> shapeID -> shape
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		shapes: make(map[string]map[string]Shape),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, shape *Shape) error {
	shape.CreatedAt = time.Now().UTC()
	shape.UpdatedAt = shape.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shapes[shape.CanvasID] == nil {
		r.shapes[shape.CanvasID] = make(map[string]Shape)
	}
	r.shapes[shape.CanvasID][shape.ID] = *shape
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, canvasID, shapeID string) (*Shape, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shapes[canvasID][shapeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) List(ctx context.Context, canvasID string) ([]Shape, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shapes := make([]Shape, 0, len(r.shapes[canvasID]))
	for _, s := range r.shapes[canvasID] {
		shapes = append(shapes, s)
	}
	return shapes, nil
}

func (r *MemoryRepository) Update(
	ctx context.Context,
	canvasID, shapeID string,
	delta *Delta,
	editorID, editorName string,
	expectedVersion *uint64,
) (*Shape, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.shapes[canvasID][shapeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	if expectedVersion != nil && Decide(current.Version, *expectedVersion) == Reject {
		return nil, &apiError.ConflictError{
			ShapeID:          shapeID,
			LocalVersion:     *expectedVersion,
			ServerVersion:    NormalizeVersion(current.Version),
			LastEditedBy:     current.LastEditedBy,
			LastEditedByName: current.LastEditedByName,
		}
	}

	delta.apply(&current)
	current.Version = NormalizeVersion(current.Version) + 1
	current.LastEditedBy = editorID
	current.LastEditedByName = editorName
	current.UpdatedAt = time.Now().UTC()

	r.shapes[canvasID][shapeID] = current
	return &current, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, canvasID, shapeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.shapes[canvasID], shapeID)
	return nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context, canvasID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.shapes, canvasID)
	return nil
}
