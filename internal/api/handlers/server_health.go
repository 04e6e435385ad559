package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/pkg/logger"
)

// Health is the probe response body.
type Health struct {
	Status string                 `json:"status"`
	Checks map[string]string      `json:"checks,omitempty"`
	Pools  map[string]interface{} `json:"pools,omitempty"`
}

// Health statuses.
const (
	HealthStatusOk       = "ok"
	HealthStatusDegraded = "degraded"
)

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: HealthStatusOk})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := map[string]string{"store": "ok"}
	allHealthy := true

	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			checks[name] = "error"
			allHealthy = false
			continue
		}
		checks[name] = "ok"
	}

	resp := Health{Status: HealthStatusOk, Checks: checks}
	if s.pools != nil {
		resp.Pools = s.pools.Metrics()
	}

	httpStatus := http.StatusOK
	if !allHealthy {
		resp.Status = HealthStatusDegraded
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, resp)
}
