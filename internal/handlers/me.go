package handlers

import (
	"net/http"

	"task-board/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type MeHandler struct {
	db          *gorm.DB
	authService services.AuthService
}

func NewMeHandler(db *gorm.DB, authService services.AuthService) *MeHandler {
	return &MeHandler{db: db, authService: authService}
}

// Me returns the signed-in identity: id, display name, avatar, email.
func (h *MeHandler) Me(c *gin.Context) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userIDStr, _ := userIDInterface.(string)
	userID := uuid.FromStringOrNil(userIDStr)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := h.authService.GetUserByID(h.db, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	c.JSON(http.StatusOK, UserProfileResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Initials:    user.Initials(),
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
	})
}
