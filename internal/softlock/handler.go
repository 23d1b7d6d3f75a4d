package softlock

import (
	"net/http"

	"collab-canvas/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Acquire(c *gin.Context) {
	canvasID := c.Param("id")
	shapeID := c.Param("shapeId")
	editor := middleware.CurrentIdentity(c)

	if err := h.service.Acquire(c.Request.Context(), canvasID, shapeID, editor); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Release(c *gin.Context) {
	canvasID := c.Param("id")
	shapeID := c.Param("shapeId")

	h.service.Release(c.Request.Context(), canvasID, shapeID)

	c.Status(http.StatusNoContent)
}

func (h *Handler) List(c *gin.Context) {
	canvasID := c.Param("id")

	locks, err := h.service.Snapshot(c.Request.Context(), canvasID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"locks": locks})
}
