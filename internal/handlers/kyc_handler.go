package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Footie-RU/footiedrop-engine/internal/models"
	"github.com/Footie-RU/footiedrop-engine/internal/services/kyc"
)

const maxDocumentSize = 10 << 20 // 10 MB

// KYCHandler handles KYC workflow requests
type KYCHandler struct {
	service *kyc.KYCService
}

// NewKYCHandler creates a new KYC handler
func NewKYCHandler(service *kyc.KYCService) *KYCHandler {
	return &KYCHandler{service: service}
}

// InitiateKYC returns the caller's KYC record, creating one when none exists
func (h *KYCHandler) InitiateKYC(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	record, created, err := h.service.CreateOrGet(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	message := "KYC record already exists"
	if created {
		status = http.StatusCreated
		message = "KYC record created successfully"
	}
	c.JSON(status, gin.H{"message": message, "data": record})
}

// UploadDocument stores one KYC document from a multipart form
func (h *KYCHandler) UploadDocument(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	kind := models.DocumentKind(c.PostForm("document"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown document kind"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document file is required"})
		return
	}
	if fileHeader.Size > maxDocumentSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read document file"})
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read document file"})
		return
	}

	record, err := h.service.UploadDocument(c.Request.Context(), userID, kind, blob)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Document uploaded successfully", "data": record})
}

// VerifyDocuments checks document completeness and triggers the in-review
// notification when the submission is complete
func (h *KYCHandler) VerifyDocuments(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	result, err := h.service.VerifyDocuments(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Complete {
		c.JSON(http.StatusOK, gin.H{
			"message": "All documents are required",
			"missing": result.Missing,
			"data":    result.Record,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "KYC documents have been uploaded successfully, and are now under review. You will be notified once the verification is complete.",
		"data":    result.Record,
	})
}

// updateStatusRequest is the admin decision payload
type updateStatusRequest struct {
	Status          models.KYCStatus `json:"status" binding:"required"`
	RejectionReason string           `json:"rejectionReason"`
}

// UpdateStatus applies an administrative approve/reject decision
func (h *KYCHandler) UpdateStatus(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid KYC record ID"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	record, err := h.service.Decide(c.Request.Context(), recordID, req.Status, req.RejectionReason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "KYC status updated successfully", "data": record})
}

// ListRecords returns one page of KYC records for the admin dashboard
func (h *KYCHandler) ListRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.service.ListRecords(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "KYC records fetched successfully", "data": result})
}

// respondError maps engine errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, kyc.ErrUserNotFound), errors.Is(err, kyc.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, kyc.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, kyc.ErrAlreadyDecided):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, kyc.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
