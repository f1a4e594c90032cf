package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessProbeTimeout = 2 * time.Second

// ReadinessCheck probes one downstream dependency.
type ReadinessCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt time.Time
	checks    []ReadinessCheck
}

// NewHealthHandler builds a health handler with the given readiness checks.
func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{
		startedAt: time.Now().UTC(),
		checks:    checks,
	}
}

// Status reports liveness and the service start time.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
	})
}

// Ready probes the registered dependencies and reports 503 when any fails.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessProbeTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	healthy := true

	for _, check := range h.checks {
		if check.Probe == nil {
			continue
		}
		if err := check.Probe(ctx); err != nil {
			checks[check.Name] = err.Error()
			healthy = false
			continue
		}
		checks[check.Name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, ReadinessResponse{Status: "degraded", Checks: checks})
		return
	}

	c.JSON(http.StatusOK, ReadinessResponse{Status: "ready", Checks: checks})
}
