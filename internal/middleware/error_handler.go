package middleware

import (
	apiError "collab-canvas/internal/errors"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		// detect any errors
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			// version conflicts carry their full payload so the client
			// can offer "reload and retry" instead of a generic error
			var conflictErr *apiError.ConflictError
			if errors.As(err, &conflictErr) {
				logrus.WithFields(logrus.Fields{
					"shape_id":       conflictErr.ShapeID,
					"local_version":  conflictErr.LocalVersion,
					"server_version": conflictErr.ServerVersion,
				}).Info("update rejected on version conflict")

				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error":    "Someone else changed this while you were editing",
					"conflict": conflictErr,
				})
				return
			}

			var apiErr *apiError.APIError

			// if it's our custom APIError
			if !errors.As(err, &apiErr) {
				// If it's a raw error we didn't wrap, treat as Internal
				apiErr = apiError.Internal(err)
			}

			// LOGGING
			if apiErr.Status >= 500 {
				logrus.WithField("error", apiErr.Internal).Error(apiErr.Message)
			} else {
				logrus.WithField("error", apiErr.Internal).Info(apiErr.Message)
			}

			// Respond with JSON
			c.AbortWithStatusJSON(apiErr.Status, apiErr)
		}
	}
}
