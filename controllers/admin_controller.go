package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hastdu/hastdu-api/config"
	"github.com/hastdu/hastdu-api/models"
	"gorm.io/gorm"
)

// ModerationRequest carries the reason for a moderation action
type ModerationRequest struct {
	Reason string `json:"reason" binding:"required,min=3"`
}

// ListAllAds handles GET /api/v1/admin/ads - lists ads in any status
func ListAllAds(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	page, limit := pagination(c, 50)

	db := config.GetDB()
	query := db.Model(&models.Ad{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondDatabaseError(c, "Failed to count ads")
		return
	}

	var ads []models.Ad
	err := query.
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		Preload("Images", orderedImages).
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&ads).Error
	if err != nil {
		respondDatabaseError(c, "Failed to fetch ads")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"ads":   ads,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// FlagAd handles POST /api/v1/admin/ads/:id/flag - hides an ad pending review
func FlagAd(c *gin.Context) {
	moderateAd(c, models.AdStatusFlagged, models.ModerationActionFlagAd)
}

// RestoreAd handles POST /api/v1/admin/ads/:id/restore - puts an ad back live
func RestoreAd(c *gin.Context) {
	moderateAd(c, models.AdStatusActive, models.ModerationActionRestoreAd)
}

// DeleteAdAsAdmin handles DELETE /api/v1/admin/ads/:id - soft-deletes an ad.
// Unlike owner deletion this keeps the row (and its chats) for audit.
func DeleteAdAsAdmin(c *gin.Context) {
	moderateAd(c, models.AdStatusDeleted, models.ModerationActionDeleteAd)
}

func moderateAd(c *gin.Context, newStatus, action string) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}

	adID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid ad ID",
			},
		})
		return
	}

	var req ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "A reason for the action is required",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	var ad models.Ad
	if err := db.First(&ad, "id = ?", adID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AD_NOT_FOUND",
				"message": "Ad not found",
			},
		})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ad).Update("status", newStatus).Error; err != nil {
			return err
		}
		entry := models.ModerationLog{
			AdminID:    admin.ID,
			Action:     action,
			TargetType: "ad",
			TargetID:   ad.ID,
			Reason:     req.Reason,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		respondDatabaseError(c, "Failed to apply moderation action")
		return
	}

	ad.Status = newStatus
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ad,
	})
}

// ListUsers handles GET /api/v1/admin/users - lists accounts
func ListUsers(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	page, limit := pagination(c, 50)

	db := config.GetDB()
	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		respondDatabaseError(c, "Failed to count users")
		return
	}

	var users []models.User
	err := db.
		Select("id", "email", "name", "role", "region", "is_banned", "created_at").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&users).Error
	if err != nil {
		respondDatabaseError(c, "Failed to fetch users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"users": users,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// BanUser handles POST /api/v1/admin/users/:id/ban
func BanUser(c *gin.Context) {
	moderateUser(c, true, models.ModerationActionBanUser)
}

// UnbanUser handles POST /api/v1/admin/users/:id/unban
func UnbanUser(c *gin.Context) {
	moderateUser(c, false, models.ModerationActionUnbanUser)
}

func moderateUser(c *gin.Context, banned bool, action string) {
	admin, ok := currentUser(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid user ID",
			},
		})
		return
	}

	var req ModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "A reason for the action is required",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found",
			},
		})
		return
	}

	if banned && user.Role == "admin" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Admin accounts cannot be banned",
			},
		})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("is_banned", banned).Error; err != nil {
			return err
		}
		entry := models.ModerationLog{
			AdminID:    admin.ID,
			Action:     action,
			TargetType: "user",
			TargetID:   user.ID,
			Reason:     req.Reason,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		respondDatabaseError(c, "Failed to apply moderation action")
		return
	}

	user.IsBanned = banned
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":        user.ID,
			"is_banned": user.IsBanned,
		},
	})
}

// ListModerationLogs handles GET /api/v1/admin/logs - the audit trail, newest first
func ListModerationLogs(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	page, limit := pagination(c, 50)

	db := config.GetDB()
	var logs []models.ModerationLog
	err := db.
		Preload("Admin", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&logs).Error
	if err != nil {
		respondDatabaseError(c, "Failed to fetch moderation logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
	})
}

func respondDatabaseError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "DATABASE_ERROR",
			"message": message,
		},
	})
}
