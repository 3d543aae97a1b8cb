package controllers

import (
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hastdu/hastdu-api/config"
	"github.com/hastdu/hastdu-api/models"
	"github.com/hastdu/hastdu-api/services"
	"github.com/hastdu/hastdu-api/utils"
	"gorm.io/gorm"
)

// CreateAdRequest represents the multipart form fields for creating an ad
type CreateAdRequest struct {
	Title       string  `form:"title" binding:"required,min=5,max=100"`
	Description string  `form:"description" binding:"required,min=20,max=5000"`
	Price       float64 `form:"price" binding:"required,gte=0,lte=1000000"`
	Category    string  `form:"category" binding:"required"`
	Region      string  `form:"region" binding:"required"`
}

// UpdateAdRequest represents the request body for updating an ad
type UpdateAdRequest struct {
	Title       *string  `json:"title" binding:"omitempty,min=5,max=100"`
	Description *string  `json:"description" binding:"omitempty,min=20,max=5000"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0,lte=1000000"`
	Category    *string  `json:"category" binding:"omitempty"`
	Region      *string  `json:"region" binding:"omitempty"`
	Status      *string  `json:"status" binding:"omitempty,oneof=active sold"`
}

// CreateAd handles POST /api/v1/ads - creates a new ad with up to 5 images
func CreateAd(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateAdRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	if !models.IsValidCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_CATEGORY",
				"message": "Unknown category",
			},
		})
		return
	}
	if !models.IsValidRegion(req.Region) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REGION",
				"message": "Unknown region",
			},
		})
		return
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["images"]
	}
	if len(files) > utils.MaxImagesPerAd {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TOO_MANY_IMAGES",
				"message": "An ad can carry at most 5 images",
			},
		})
		return
	}

	// Validate all images before creating anything
	for _, f := range files {
		if err := utils.ValidateImageFile(f); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_IMAGE",
					"message": err.Error(),
				},
			})
			return
		}
	}

	ad := models.Ad{
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Region:      req.Region,
		Status:      models.AdStatusActive,
	}

	db := config.GetDB()
	if err := db.Create(&ad).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create ad",
			},
		})
		return
	}

	imageService := services.GetImageService()
	for i, f := range files {
		key, err := imageService.UploadImage(f)
		if err != nil {
			log.Printf("warning: failed to upload ad image: %v", err)
			continue
		}
		url, err := imageService.GetImageURL(key)
		if err != nil {
			log.Printf("warning: failed to resolve image URL for %s: %v", key, err)
			continue
		}
		image := models.AdImage{
			AdID:  ad.ID,
			URL:   url,
			Key:   key,
			Order: i,
		}
		if err := db.Create(&image).Error; err != nil {
			log.Printf("warning: failed to store ad image record: %v", err)
		}
	}

	// Load the images and owner to return complete data
	if err := db.Preload("Images", orderedImages).Preload("User", userSummaryColumns).First(&ad, "id = ?", ad.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load ad details",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    ad,
	})
}

// ListAds handles GET /api/v1/ads - public listing of active ads with filters
func ListAds(c *gin.Context) {
	page, limit := pagination(c, 20)

	db := config.GetDB()
	query := db.Model(&models.Ad{}).Where("status = ?", models.AdStatusActive)

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if region := c.Query("region"); region != "" {
		query = query.Where("region = ?", region)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var ads []models.Ad
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Preload("Images", orderedImages).
		Preload("User", userSummaryColumns).
		Find(&ads).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch ads",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ads,
	})
}

// GetAd handles GET /api/v1/ads/:id - public ad detail, counts the view
func GetAd(c *gin.Context) {
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

	db := config.GetDB()
	var ad models.Ad
	err = db.
		Preload("Images", orderedImages).
		Preload("User", userSummaryColumns).
		First(&ad, "id = ?", adID).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AD_NOT_FOUND",
				"message": "Ad not found",
			},
		})
		return
	}

	if ad.Status == models.AdStatusActive {
		if err := db.Model(&ad).UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
			log.Printf("warning: failed to increment view count for ad %s: %v", ad.ID, err)
		} else {
			ad.ViewCount++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ad,
	})
}

// GetMyAds handles GET /api/v1/ads/mine - the caller's ads, all statuses
func GetMyAds(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var ads []models.Ad
	err := db.
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Preload("Images", orderedImages).
		Find(&ads).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch ads",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ads,
	})
}

// UpdateAd handles PUT /api/v1/ads/:id - owner-only ad update
func UpdateAd(c *gin.Context) {
	user, ok := currentUser(c)
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

	if ad.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have permission to edit this ad",
			},
		})
		return
	}

	var req UpdateAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Category != nil {
		if !models.IsValidCategory(*req.Category) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_CATEGORY",
					"message": "Unknown category",
				},
			})
			return
		}
		updates["category"] = *req.Category
	}
	if req.Region != nil {
		if !models.IsValidRegion(*req.Region) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_REGION",
					"message": "Unknown region",
				},
			})
			return
		}
		updates["region"] = *req.Region
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	if len(updates) > 0 {
		if err := db.Model(&ad).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to update ad",
				},
			})
			return
		}
	}

	if err := db.Preload("Images", orderedImages).First(&ad, "id = ?", ad.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load ad details",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ad,
	})
}

// DeleteAd handles DELETE /api/v1/ads/:id - deletes an ad (owner or admin).
// Stored images are removed best-effort; chat rooms and messages cascade.
func DeleteAd(c *gin.Context) {
	user, ok := currentUser(c)
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

	db := config.GetDB()
	var ad models.Ad
	if err := db.Preload("Images").First(&ad, "id = ?", adID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AD_NOT_FOUND",
				"message": "Ad not found",
			},
		})
		return
	}

	if ad.UserID != user.ID && user.Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have permission to delete this ad",
			},
		})
		return
	}

	imageService := services.GetImageService()
	for _, image := range ad.Images {
		if err := imageService.DeleteImage(image.Key); err != nil {
			log.Printf("warning: failed to delete image %s: %v", image.Key, err)
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_room_id IN (?)",
			tx.Model(&models.ChatRoom{}).Select("id").Where("ad_id = ?", ad.ID),
		).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ad_id = ?", ad.ID).Delete(&models.ChatRoom{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ad_id = ?", ad.ID).Delete(&models.AdImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ad).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete ad",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Ad deleted",
	})
}

// orderedImages preloads ad images in display order
func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order(`"order" ASC`)
}

// userSummaryColumns preloads only the public columns of a user
func userSummaryColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "avatar_url", "region", "created_at")
}

// pagination reads page/limit query params with sane bounds
func pagination(c *gin.Context, defaultLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}
