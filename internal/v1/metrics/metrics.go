package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the game host.
//
// Naming convention: namespace_subsystem_name
// - namespace: gamehost (application-level grouping)
// - subsystem: websocket, room, game (feature-level grouping)
// - name: specific metric (connections_active, commands_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms)
// - Counter: Cumulative events (commands processed, games finished)
// - Histogram: Latency distributions (command processing time)

var (
	// ActiveConnections tracks the current number of active WebSocket connections
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamehost",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of active rooms
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamehost",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// CommandsProcessed counts inbound commands by name and outcome
	CommandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamehost",
		Subsystem: "websocket",
		Name:      "commands_total",
		Help:      "Total game commands processed",
	}, []string{"command", "status"})

	// CommandDuration tracks the time spent processing commands
	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gamehost",
		Subsystem: "websocket",
		Name:      "command_processing_seconds",
		Help:      "Time spent processing game commands",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"command"})

	// GamesStarted counts games started per family
	GamesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamehost",
		Subsystem: "game",
		Name:      "started_total",
		Help:      "Total games started",
	}, []string{"family"})

	// GamesFinished counts games finished per family and reason
	GamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamehost",
		Subsystem: "game",
		Name:      "finished_total",
		Help:      "Total games finished",
	}, []string{"family", "reason"})

	// RateLimitExceeded counts rejected joins due to rate limiting
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamehost",
		Subsystem: "websocket",
		Name:      "rate_limit_exceeded_total",
		Help:      "Total requests rejected by rate limiting",
	}, []string{"scope"})

	// AnalyticsDropped counts analytics events dropped because the queue was full
	AnalyticsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gamehost",
		Subsystem: "analytics",
		Name:      "dropped_total",
		Help:      "Total analytics events dropped",
	})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
