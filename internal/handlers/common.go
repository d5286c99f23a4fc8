package handlers

import (
	"errors"
	"net/http"

	"task-board/internal/models"
	"task-board/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// scopeFromContext builds the per-user task namespace from the identity the
// authz middleware stored on the request. Requests with no authenticated
// identity never reach a repository call.
func scopeFromContext(c *gin.Context, appID string) (store.Scope, bool) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return store.Scope{}, false
	}
	userIDStr, ok := userIDInterface.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return store.Scope{}, false
	}
	userID := uuid.FromStringOrNil(userIDStr)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return store.Scope{}, false
	}
	return store.Scope{AppID: appID, UserID: userID}, true
}

// handleTaskError maps the error taxonomy onto status codes: validation
// failures are the caller's to fix, a vanished target is 404, anything else
// is a persistence failure.
func handleTaskError(c *gin.Context, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"field":   ve.Field,
			"details": ve.Message,
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "task not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to process task request",
		})
	}
}
