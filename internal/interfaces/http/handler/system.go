package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the health endpoint
type SystemHandler struct {
	BaseHandler
	db      Pinger
	version string
}

// NewSystemHandler creates a SystemHandler
func NewSystemHandler(db Pinger, version string, log *zap.Logger) *SystemHandler {
	return &SystemHandler{BaseHandler: newBaseHandler(log), db: db, version: version}
}

// Health answers 200 when the database responds and 503 otherwise.
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{Status: "ok", Database: "ok", Version: h.version}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			logger.L(c.Request.Context(), h.logger).Warn("health check: database unreachable", zap.Error(err))
			resp.Status = "degraded"
			resp.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, dto.Response{Data: resp})
			return
		}
	}
	h.Success(c, resp)
}
