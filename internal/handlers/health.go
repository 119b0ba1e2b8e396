package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/database"
	"github.com/zfogg/sidechain/views/internal/logger"
	"go.uber.org/zap"
)

// Health reports whether the database is reachable
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	if err := database.Health(h.db); err != nil {
		logger.Log.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}
