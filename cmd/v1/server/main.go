package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/parlorlive/gamehost/internal/v1/analytics"
	"github.com/parlorlive/gamehost/internal/v1/config"
	"github.com/parlorlive/gamehost/internal/v1/health"
	"github.com/parlorlive/gamehost/internal/v1/leaderboard"
	"github.com/parlorlive/gamehost/internal/v1/logging"
	"github.com/parlorlive/gamehost/internal/v1/middleware"
	"github.com/parlorlive/gamehost/internal/v1/ratelimit"
	"github.com/parlorlive/gamehost/internal/v1/room"
	"github.com/parlorlive/gamehost/internal/v1/tracing"
	"github.com/parlorlive/gamehost/internal/v1/transport"
)

func main() {
	// .env is for local development; absence is fine in production.
	if err := godotenv.Load(); err == nil {
		logging.Info(context.Background(), "Loaded environment from .env")
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		logging.Fatal(context.Background(), "Environment validation failed", zap.Error(err))
	}
	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		logging.Fatal(context.Background(), "Logger initialization failed", zap.Error(err))
	}

	ctx := context.Background()
	if cfg.DevelopmentMode {
		logging.Info(ctx, "Running in development mode")
	}

	if cfg.OtelCollectorAddr != "" {
		tp, err := tracing.InitTracer(ctx, "gamehost", cfg.OtelCollectorAddr)
		if err != nil {
			logging.Error(ctx, "Tracing disabled, collector unreachable", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
			logging.Info(ctx, "Tracing initialized", zap.String("collector", cfg.OtelCollectorAddr))
		}
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Error(ctx, "Redis unreachable, falling back to in-process stores", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			logging.Info(ctx, "Redis connected", zap.String("addr", cfg.RedisAddr))
		}
	}

	limiter, err := ratelimit.New(cfg.RateLimitJoin, redisClient)
	if err != nil {
		logging.Fatal(ctx, "Rate limiter initialization failed", zap.Error(err))
	}

	events := analytics.New(cfg.AnalyticsEndpoint)
	board := leaderboard.NewStore()
	rooms := room.NewManager()
	hub := transport.NewHub(rooms, board, events, limiter, cfg.AllowedOrigins)

	if !cfg.DevelopmentMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	if cfg.OtelCollectorAddr != "" {
		router.Use(otelgin.Middleware("gamehost"))
	}

	corsConfig := cors.DefaultConfig()
	if origins := splitOrigins(cfg.AllowedOrigins); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.GET("/ws", hub.ServeWs)
	router.GET("/health", health.Handler(hub))
	router.GET("/leaderboard", leaderboard.Handler(board))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error(ctx, "Server failed", zap.Error(err))
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "Server forced to shut down", zap.Error(err))
	}
	hub.Shutdown()
	rooms.Shutdown()
	events.Close()

	logging.Info(ctx, "Server exited")
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
