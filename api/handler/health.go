package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dealhound/dealhound/models"
)

// Health returns a handler for GET /api/v1/health. It reports which
// source adapters are registered so a probe can see a misconfigured
// deployment (e.g. no browser, facebook missing) at a glance.
func Health(sources []string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Sources: sources,
			Version: "0.1.0",
		})
	}
}
