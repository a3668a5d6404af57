package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether the review store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler interface {
	Ping(c *gin.Context)
	Health(c *gin.Context)
}

type healthHandler struct {
	store   Pinger
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthHandler(store Pinger, timeout time.Duration, logger *zap.Logger) HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &healthHandler{store: store, timeout: timeout, logger: logger}
}

func (h *healthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (h *healthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
