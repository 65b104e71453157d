// Package ratelimit caps fresh room joins per client IP.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/parlorlive/gamehost/internal/v1/logging"
	"github.com/parlorlive/gamehost/internal/v1/metrics"
)

// JoinLimiter enforces the per-IP cap on fresh joins. Reconnections are
// expected to bypass it entirely; callers only consult it for joins with
// reconnect=false.
type JoinLimiter struct {
	join  *limiter.Limiter
	store limiter.Store
}

// New creates a JoinLimiter from a formatted rate (e.g. "10-M"). When a Redis
// client is provided the limiter state is shared through it; otherwise an
// in-process memory store is used.
func New(rate string, redisClient *redis.Client) (*JoinLimiter, error) {
	joinRate, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid join rate: %w", err)
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "limiter:join:",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = s
		logging.Info(context.Background(), "Rate limiter using Redis store")
	} else {
		store = memory.NewStore()
		logging.Info(context.Background(), "Rate limiter using memory store")
	}

	return &JoinLimiter{
		join:  limiter.New(store, joinRate),
		store: store,
	}, nil
}

// AllowJoin reports whether a fresh join from the given IP is within the cap.
// Store failures fail open: availability beats strictness for a game lobby.
func (l *JoinLimiter) AllowJoin(ctx context.Context, ip string) bool {
	lctx, err := l.join.Get(ctx, ip)
	if err != nil {
		logging.Error(ctx, "Rate limiter store failed", zap.Error(err))
		return true
	}

	if lctx.Reached {
		metrics.RateLimitExceeded.WithLabelValues("join").Inc()
		return false
	}
	return true
}

// ClientIP extracts the caller's IP, preferring the forwarded-for header set
// by a reverse proxy over the raw peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
