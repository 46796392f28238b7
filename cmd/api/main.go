package main

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Footie-RU/footiedrop-engine/internal/cache"
	"github.com/Footie-RU/footiedrop-engine/internal/config"
	"github.com/Footie-RU/footiedrop-engine/internal/database"
	"github.com/Footie-RU/footiedrop-engine/internal/handlers"
	"github.com/Footie-RU/footiedrop-engine/internal/jobs"
	"github.com/Footie-RU/footiedrop-engine/internal/middleware"
	"github.com/Footie-RU/footiedrop-engine/internal/repository"
	"github.com/Footie-RU/footiedrop-engine/internal/routes"
	"github.com/Footie-RU/footiedrop-engine/internal/services/email"
	"github.com/Footie-RU/footiedrop-engine/internal/services/kyc"
	"github.com/Footie-RU/footiedrop-engine/internal/services/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	// Setup database connection and run migrations
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Listing cache: redis when available, in-process otherwise
	var listingCache cache.ListingCache
	redisClient, err := cache.NewRedisClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Warning: invalid redis configuration, using in-process listing cache: %v", err)
		listingCache = cache.NewMemoryCache()
	} else {
		listingCache = cache.NewRedisCache(redisClient)
	}

	// Collaborators
	uploader := storage.NewCloudinaryUploader(storage.CloudinaryConfig{
		CloudName:    cfg.Cloudinary.CloudName,
		UploadPreset: cfg.Cloudinary.UploadPreset,
		Folder:       cfg.Cloudinary.Folder,
	})
	sender := email.NewSMTPSender(email.SMTPConfig(cfg.SMTP))

	// Repositories and workflow engine
	userRepo := repository.NewGormUserRepository(db)
	kycRepo := repository.NewGormKYCRepository(db)
	kycService := kyc.NewKYCService(userRepo, kycRepo, uploader, sender, listingCache)

	// Background notification retry sweep
	retryJob := jobs.NewNotificationRetryJob(kycRepo, kycService)
	if err := retryJob.Start(); err != nil {
		log.Fatalf("Failed to start notification retry job: %v", err)
	}
	defer retryJob.Stop()

	// Initialize router
	router := gin.Default()

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Register routes
	rateLimiter := middleware.NewRateLimiter(5, 10)
	defer rateLimiter.Stop()
	kycHandler := handlers.NewKYCHandler(kycService)
	routes.RegisterKYCRoutes(router, kycHandler, rateLimiter)

	// Start server
	fmt.Printf("FootieDrop KYC engine running on port %s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
