package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hastdu/hastdu-api/config"
	"github.com/hastdu/hastdu-api/controllers"
	"github.com/hastdu/hastdu-api/middleware"
	"github.com/hastdu/hastdu-api/models"
	"github.com/hastdu/hastdu-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting hastdu API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	err = db.AutoMigrate(
		&models.User{},
		&models.Ad{},
		&models.AdImage{},
		&models.ChatRoom{},
		&models.Message{},
		&models.ModerationLog{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize image storage
	s3Service, err := services.InitS3Service()
	if err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}
	services.InitImageService(s3Service)

	router := setupRouter(cfg)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the Gin engine with all routes and middleware
func setupRouter(cfg *config.Config) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Public routes
		v1.POST("/auth/register", controllers.Register)
		v1.POST("/auth/login", controllers.Login)
		v1.GET("/ads", controllers.ListAds)

		// Authenticated routes
		authed := v1.Group("")
		authed.Use(middleware.EnsureValidToken(cfg))
		{
			authed.GET("/users/me", controllers.GetMyProfile)
			authed.PUT("/users/me", controllers.UpdateMyProfile)
			authed.POST("/users/me/avatar", controllers.UploadAvatar)

			authed.GET("/ads/mine", controllers.GetMyAds)
			authed.POST("/ads", controllers.CreateAd)
			authed.PUT("/ads/:id", controllers.UpdateAd)
			authed.DELETE("/ads/:id", controllers.DeleteAd)

			authed.POST("/chats", controllers.CreateChat)
			authed.GET("/chats/:id", controllers.GetChat)
			authed.POST("/chats/:id/messages", controllers.SendChatMessage)
			authed.GET("/inbox", controllers.GetInbox)

			// Admin routes
			admin := authed.Group("/admin")
			admin.Use(middleware.RequireRole("admin"))
			{
				admin.GET("/ads", controllers.ListAllAds)
				admin.POST("/ads/:id/flag", controllers.FlagAd)
				admin.POST("/ads/:id/restore", controllers.RestoreAd)
				admin.DELETE("/ads/:id", controllers.DeleteAdAsAdmin)
				admin.GET("/users", controllers.ListUsers)
				admin.POST("/users/:id/ban", controllers.BanUser)
				admin.POST("/users/:id/unban", controllers.UnbanUser)
				admin.GET("/logs", controllers.ListModerationLogs)
			}
		}

		// Public ad detail; the literal /ads/mine route takes precedence
		v1.GET("/ads/:id", controllers.GetAd)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "hastdu API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
