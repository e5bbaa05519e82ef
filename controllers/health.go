package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is satisfied by every submission repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthInfo struct {
	Environment string
	Version     string
	// RateLimiter names the submission limiter backend, e.g. "memory" or "redis".
	RateLimiter string
}

type HealthController struct {
	store   Pinger
	info    HealthInfo
	started time.Time
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthController(store Pinger, info HealthInfo, logger *zap.Logger) *HealthController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthController{
		store:   store,
		info:    info,
		started: time.Now(),
		timeout: 3 * time.Second,
		logger:  logger,
	}
}

func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), hc.timeout)
	defer cancel()

	if err := hc.store.Ping(ctx); err != nil {
		hc.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"timestamp": nowTimestamp(),
			"database":  "disconnected",
			"error":     "Database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   nowTimestamp(),
		"environment": hc.info.Environment,
		"database":    "connected",
		"rateLimiter": hc.info.RateLimiter,
		"uptime":      time.Since(hc.started).Seconds(),
		"version":     hc.info.Version,
	})
}
