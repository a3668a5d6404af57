package handler

import (
	"net/http"

	"phishing-admin/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReviewHandler interface {
	GetReviews(c *gin.Context)
	SubmitReview(c *gin.Context)
	GetStats(c *gin.Context)
}

type reviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) ReviewHandler {
	return &reviewHandler{reviewService: reviewService, logger: logger}
}

// GetReviews handles GET /api/v1/admin/reviews
func (h *reviewHandler) GetReviews(c *gin.Context) {
	reviews, err := h.reviewService.ListPending(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "Failed to fetch reviews")
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// SubmitReviewRequest accepts the original snake_case key and the camelCase alias.
type SubmitReviewRequest struct {
	RawURL      string `json:"raw_url"`
	RawURLCamel string `json:"rawUrl"`
	Safe        *int   `json:"safe"`
}

func (r SubmitReviewRequest) url() string {
	if r.RawURL != "" {
		return r.RawURL
	}
	return r.RawURLCamel
}

// SubmitReview handles POST /api/v1/admin/review
func (h *reviewHandler) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Failed to bind JSON for review", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Safe == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "safe is required"})
		return
	}

	if err := h.reviewService.SubmitReview(c.Request.Context(), req.url(), *req.Safe); err != nil {
		abortWithError(c, err, "Failed to update review")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStats handles GET /api/v1/admin/stats
func (h *reviewHandler) GetStats(c *gin.Context) {
	stats, err := h.reviewService.GetStats(c.Request.Context())
	if err != nil {
		abortWithError(c, err, "Failed to fetch stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}
