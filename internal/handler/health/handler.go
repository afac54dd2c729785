package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cliniccare-api/internal/handler"
)

// Check reports whether one dependency is reachable.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Handler struct {
	checks  []Check
	timeout time.Duration
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks, timeout: 2 * time.Second}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "UP"}))
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			results[check.Name] = "DOWN"
			healthy = false
			continue
		}
		results[check.Name] = "UP"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, &handler.Response{
			Status:  "error",
			Message: "dependency unavailable",
			Data:    gin.H{"status": "DOWN", "checks": results},
		})
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "UP", "checks": results}))
}
