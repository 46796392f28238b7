package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Footie-RU/footiedrop-engine/internal/handlers"
	"github.com/Footie-RU/footiedrop-engine/internal/middleware"
)

// RegisterKYCRoutes registers the KYC workflow routes
func RegisterKYCRoutes(router *gin.Engine, kycHandler *handlers.KYCHandler, rateLimiter *middleware.RateLimiter) {
	kycGroup := router.Group("/api/kyc")
	{
		kycGroup.GET("/initiate/:userId", kycHandler.InitiateKYC)
		kycGroup.GET("/verify/:userId", kycHandler.VerifyDocuments)
		kycGroup.PATCH("/:id/status", kycHandler.UpdateStatus)

		// Uploads carry raw files; keep them behind the IP limiter.
		kycGroup.POST("/upload/:userId", rateLimiter.Middleware(), kycHandler.UploadDocument)
	}

	adminGroup := router.Group("/api/admin")
	{
		adminGroup.GET("/kyc", kycHandler.ListRecords)
	}
}
