// Package middleware holds the gin middleware shared by every HTTP route.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parlorlive/gamehost/internal/v1/logging"
)

// HeaderXCorrelationID carries the request's correlation id in both
// directions.
const HeaderXCorrelationID = "X-Correlation-ID"

// CorrelationID propagates the caller's correlation id, minting one when the
// request arrives without it. The id is echoed on the response and stashed in
// the gin context under the logging package's key, so every log line for the
// request carries it.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderXCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(HeaderXCorrelationID, id)
		c.Set(string(logging.CorrelationIDKey), id)
		c.Next()
	}
}
