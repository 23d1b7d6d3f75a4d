package shape

import (
	"context"
	"time"

	apiError "collab-canvas/internal/errors"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, shape *Shape) error
	FindByID(ctx context.Context, canvasID, shapeID string) (*Shape, error)
	List(ctx context.Context, canvasID string) ([]Shape, error)
	Update(ctx context.Context, canvasID, shapeID string, delta *Delta, editorID, editorName string, expectedVersion *uint64) (*Shape, error)
	Delete(ctx context.Context, canvasID, shapeID string) error
	DeleteAll(ctx context.Context, canvasID string) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new shape repository backed by Postgres
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, shape *Shape) error {
	shape.CreatedAt = time.Now().UTC() // Use UTC for consistency
	shape.UpdatedAt = shape.CreatedAt
	return r.db.WithContext(ctx).Create(shape).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, canvasID, shapeID string) (*Shape, error) {
	var s Shape
	err := r.db.WithContext(ctx).
		Where("canvas_id = ? AND id = ?", canvasID, shapeID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RepositoryImpl) List(ctx context.Context, canvasID string) ([]Shape, error) {
	var shapes []Shape
	err := r.db.WithContext(ctx).
		Where("canvas_id = ?", canvasID).
		Order("created_at ASC").
		Find(&shapes).Error
	return shapes, err
}

// Update applies the delta with the version check and the increment in
// one SQL statement, so two racing writers serialize on the row itself:
// there is no window between reading the version and writing version+1.
// A stored version of 0 (pre-versioning record) compares as 1.
func (r *RepositoryImpl) Update(
	ctx context.Context,
	canvasID, shapeID string,
	delta *Delta,
	editorID, editorName string,
	expectedVersion *uint64,
) (*Shape, error) {
	cols := delta.columns()
	cols["last_edited_by"] = editorID
	cols["last_edited_by_name"] = editorName
	cols["updated_at"] = time.Now().UTC()
	cols["version"] = gorm.Expr("CASE WHEN version = 0 THEN 2 ELSE version + 1 END")

	query := r.db.WithContext(ctx).Model(&Shape{}).
		Where("canvas_id = ? AND id = ?", canvasID, shapeID)
	if expectedVersion != nil {
		query = query.Where("(CASE WHEN version = 0 THEN 1 ELSE version END) = ?", *expectedVersion)
	}

	result := query.Updates(cols)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		// either the shape doesn't exist or the version didn't match;
		// a lookup distinguishes the two
		current, err := r.FindByID(ctx, canvasID, shapeID)
		if err != nil {
			return nil, err
		}
		return nil, &apiError.ConflictError{
			ShapeID:          shapeID,
			LocalVersion:     derefVersion(expectedVersion),
			ServerVersion:    NormalizeVersion(current.Version),
			LastEditedBy:     current.LastEditedBy,
			LastEditedByName: current.LastEditedByName,
		}
	}

	return r.FindByID(ctx, canvasID, shapeID)
}

func (r *RepositoryImpl) Delete(ctx context.Context, canvasID, shapeID string) error {
	return r.db.WithContext(ctx).
		Where("canvas_id = ? AND id = ?", canvasID, shapeID).
		Delete(&Shape{}).Error
}

func (r *RepositoryImpl) DeleteAll(ctx context.Context, canvasID string) error {
	return r.db.WithContext(ctx).
		Where("canvas_id = ?", canvasID).
		Delete(&Shape{}).Error
}

func derefVersion(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}
