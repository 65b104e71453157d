package leaderboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parlorlive/gamehost/internal/v1/game"
)

const defaultLimit = 10

// Handler returns the GET /leaderboard handler. Query params: gameType
// filters to one family (empty aggregates all), limit caps the entries.
func Handler(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		family := game.Family(c.Query("gameType"))
		if family != "" && !family.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown game type"})
			return
		}

		limit := defaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		c.JSON(http.StatusOK, gin.H{
			"gameType": string(family),
			"entries":  store.Top(family, limit),
		})
	}
}
