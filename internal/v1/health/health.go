// Package health exposes the liveness endpoint.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Stats supplies the live counters the endpoint reports.
type Stats interface {
	RoomCount() int
	ConnectionCount() int
}

// Handler returns the GET /health handler.
func Handler(stats Stats) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"rooms":       stats.RoomCount(),
			"connections": stats.ConnectionCount(),
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
