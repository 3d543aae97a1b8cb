package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hastdu/hastdu-api/services"
)

// CreateChatRequest represents the request body for opening a chat
type CreateChatRequest struct {
	AdID string `json:"ad_id" binding:"required"`
}

// SendChatMessageRequest represents the request body for sending a message
type SendChatMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateChat handles POST /api/v1/chats - resolves or creates the chat room
// for the caller (as buyer) and an ad. Idempotent: repeated calls return
// the same room.
func CreateChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.PureJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	adID, err := uuid.Parse(req.AdID)
	if err != nil {
		c.PureJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid ad ID",
			},
		})
		return
	}

	room, err := newChatService().GetOrCreateRoom(user.ID, adID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAdNotFound):
			c.PureJSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AD_NOT_FOUND",
					"message": "Ad not found",
				},
			})
		case errors.Is(err, services.ErrSelfChat):
			c.PureJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SELF_CHAT",
					"message": "You cannot chat with yourself",
				},
			})
		default:
			c.PureJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to open chat",
				},
			})
		}
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data":    room,
	})
}

// GetChat handles GET /api/v1/chats/:id - returns the room with its full
// message thread, newest first. Viewing the thread marks the counterpart's
// unread messages as read.
func GetChat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.PureJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid chat ID",
			},
		})
		return
	}

	chatService := newChatService()
	view, err := chatService.GetRoom(user.ID, roomID)
	if err != nil {
		respondChatError(c, err)
		return
	}

	messages, err := chatService.ListAndMarkRead(user.ID, roomID)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"room":       view.Room,
			"ad":         view.Ad,
			"other_user": view.OtherUser,
			"messages":   messages,
		},
	})
}

// SendChatMessage handles POST /api/v1/chats/:id/messages - appends a message
func SendChatMessage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.PureJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid chat ID",
			},
		})
		return
	}

	var req SendChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.PureJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	message, err := newChatService().SendMessage(user.ID, roomID, req.Content)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.PureJSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    message,
	})
}

// GetInbox handles GET /api/v1/inbox - the caller's conversation list.
// Read-only: opening the inbox never marks messages read.
func GetInbox(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	entries, err := newChatService().GetInbox(user.ID)
	if err != nil {
		c.PureJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch inbox",
			},
		})
		return
	}

	c.PureJSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entries,
	})
}

// respondChatError maps chat service outcomes to HTTP responses
func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		c.PureJSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CHAT_NOT_FOUND",
				"message": "Chat not found",
			},
		})
	case errors.Is(err, services.ErrNotMember):
		c.PureJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You are not a participant of this chat",
			},
		})
	case errors.Is(err, services.ErrEmptyMessage):
		c.PureJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "EMPTY_MESSAGE",
				"message": "Message content must not be empty",
			},
		})
	case errors.Is(err, services.ErrMessageTooLong):
		c.PureJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MESSAGE_TOO_LONG",
				"message": "Message content exceeds the maximum length",
			},
		})
	default:
		c.PureJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Chat operation failed",
			},
		})
	}
}
