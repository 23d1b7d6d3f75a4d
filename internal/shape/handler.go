package shape

import (
	"net/http"

	"collab-canvas/internal/errors"
	"collab-canvas/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateAttributes
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	editor := middleware.CurrentIdentity(c)
	canvasID := c.Param("id")

	shape, err := h.service.CreateShape(c.Request.Context(), canvasID, form, editor)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, shape)
}

type UpdateRequest struct {
	Delta           Delta   `json:"delta"`
	ExpectedVersion *uint64 `json:"expected_version,omitempty"`
}

func (h *Handler) Update(c *gin.Context) {
	canvasID := c.Param("id")
	shapeID := c.Param("shapeId")

	var input UpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if input.Delta.Empty() {
		c.Error(errors.BadRequest("Update contains no changes", nil))
		return
	}

	editor := middleware.CurrentIdentity(c)

	shape, err := h.service.UpdateShape(
		c.Request.Context(),
		canvasID,
		shapeID,
		&input.Delta,
		editor,
		input.ExpectedVersion,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, shape)
}

func (h *Handler) Delete(c *gin.Context) {
	canvasID := c.Param("id")
	shapeID := c.Param("shapeId")

	if err := h.service.DeleteShape(c.Request.Context(), canvasID, shapeID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) List(c *gin.Context) {
	canvasID := c.Param("id")

	shapes, err := h.service.ListShapes(c.Request.Context(), canvasID)
	if err != nil {
		c.Error(err)
		return
	}
	if shapes == nil {
		shapes = []Shape{}
	}

	c.JSON(http.StatusOK, gin.H{"shapes": shapes})
}

// DeleteAll serves the canvas lifecycle manager: when a canvas document
// is deleted its whole shape set goes with it. Internal-secret guarded.
func (h *Handler) DeleteAll(c *gin.Context) {
	canvasID := c.Param("id")

	if err := h.service.DeleteCanvasShapes(c.Request.Context(), canvasID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
