package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hastdu/hastdu-api/config"
	"github.com/hastdu/hastdu-api/middleware"
	"github.com/hastdu/hastdu-api/models"
	"github.com/hastdu/hastdu-api/services"
)

// currentUser resolves the authenticated caller's database row.
// On failure it writes the error response and returns false.
func currentUser(c *gin.Context) (*models.User, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Invalid user identifier in token",
			},
		})
		return nil, false
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, "id = ?", uid).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User account not found",
			},
		})
		return nil, false
	}

	if user.IsBanned {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ACCOUNT_BANNED",
				"message": "This account has been banned",
			},
		})
		return nil, false
	}

	return &user, true
}

// newChatService builds the chat service against the active database
func newChatService() *services.ChatService {
	maxLen := 0
	if cfg := config.GetConfig(); cfg != nil {
		maxLen = cfg.MaxMessageLength
	}
	return services.NewChatService(config.GetDB(), maxLen)
}
