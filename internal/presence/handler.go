package presence

import (
	"net/http"

	"collab-canvas/internal/errors"
	"collab-canvas/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Join(c *gin.Context) {
	canvasID := c.Param("id")
	user := middleware.CurrentIdentity(c)

	if err := h.service.Join(c.Request.Context(), canvasID, user); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type CursorRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *Handler) UpdateCursor(c *gin.Context) {
	canvasID := c.Param("id")
	user := middleware.CurrentIdentity(c)

	var input CursorRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	h.service.UpdateCursor(canvasID, user, input.X, input.Y)

	c.Status(http.StatusAccepted)
}

func (h *Handler) Leave(c *gin.Context) {
	canvasID := c.Param("id")
	user := middleware.CurrentIdentity(c)

	h.service.Leave(c.Request.Context(), canvasID, user.ID)

	c.Status(http.StatusNoContent)
}

func (h *Handler) List(c *gin.Context) {
	canvasID := c.Param("id")

	entries, err := h.service.Snapshot(c.Request.Context(), canvasID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"presence": entries})
}
