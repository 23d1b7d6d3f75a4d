// Package batch applies a sequence of shape operations in one request
// and reports partial progress instead of rolling everything back.
package batch

import (
	"context"
	"fmt"

	"collab-canvas/internal/auth"
	apiError "collab-canvas/internal/errors"
	"collab-canvas/internal/shape"

	"github.com/go-playground/validator/v10"
)

type Operation struct {
	Action          string                  `json:"action" validate:"required,oneof=create update delete"`
	ShapeID         string                  `json:"shape_id,omitempty" validate:"required_unless=Action create"`
	Attributes      *shape.CreateAttributes `json:"attributes,omitempty" validate:"required_if=Action create"`
	Delta           *shape.Delta            `json:"delta,omitempty" validate:"required_if=Action update"`
	ExpectedVersion *uint64                 `json:"expected_version,omitempty"`
}

// Result is the partial-success contract: Success is true when at
// least one operation landed, ShapeIDs lists the ones that did, and
// Error carries the message of the last failure encountered.
type Result struct {
	Success  bool     `json:"success"`
	ShapeIDs []string `json:"shape_ids"`
	Error    string   `json:"error,omitempty"`
}

type Executor struct {
	shapes   shape.Service
	validate *validator.Validate
}

func NewExecutor(shapes shape.Service) *Executor {
	return &Executor{
		shapes:   shapes,
		validate: validator.New(),
	}
}

// Execute runs the operations in order. Malformed operations are
// rejected before touching the store; a failure in the middle doesn't
// stop the rest of the batch.
func (e *Executor) Execute(ctx context.Context, canvasID string, editor auth.Identity, ops []Operation) Result {
	result := Result{ShapeIDs: []string{}}

	for i, op := range ops {
		if err := e.validate.Struct(op); err != nil {
			result.Error = fmt.Sprintf("operation %d: %v", i+1, err)
			continue
		}

		shapeID, err := e.executeOne(ctx, canvasID, editor, op)
		if err != nil {
			result.Error = fmt.Sprintf("operation %d: %s", i+1, err.Error())
			continue
		}

		result.Success = true
		result.ShapeIDs = append(result.ShapeIDs, shapeID)
	}

	return result
}

func (e *Executor) executeOne(ctx context.Context, canvasID string, editor auth.Identity, op Operation) (string, error) {
	switch op.Action {
	case "create":
		created, err := e.shapes.CreateShape(ctx, canvasID, *op.Attributes, editor)
		if err != nil {
			return "", err
		}
		return created.ID, nil

	case "update":
		// same rule as the REST update path
		if op.Delta.Empty() {
			return "", apiError.BadRequest("Update contains no changes", nil)
		}
		updated, err := e.shapes.UpdateShape(ctx, canvasID, op.ShapeID, op.Delta, editor, op.ExpectedVersion)
		if err != nil {
			return "", err
		}
		return updated.ID, nil

	case "delete":
		if err := e.shapes.DeleteShape(ctx, canvasID, op.ShapeID); err != nil {
			return "", err
		}
		return op.ShapeID, nil

	default:
		return "", apiError.BadRequest("Unknown action", nil)
	}
}
