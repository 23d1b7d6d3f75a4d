package batch

import (
	"net/http"

	"collab-canvas/internal/errors"
	"collab-canvas/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	executor *Executor
}

func NewHandler(executor *Executor) *Handler {
	return &Handler{executor: executor}
}

type ExecuteRequest struct {
	Operations []Operation `json:"operations" binding:"required,min=1"`
}

func (h *Handler) Execute(c *gin.Context) {
	canvasID := c.Param("id")
	editor := middleware.CurrentIdentity(c)

	var input ExecuteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result := h.executor.Execute(c.Request.Context(), canvasID, editor, input.Operations)

	// partial progress is still a 200; the payload says what landed
	c.JSON(http.StatusOK, result)
}
