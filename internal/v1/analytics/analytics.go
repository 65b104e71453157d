// Package analytics ships gameplay events to an optional HTTP collector.
// The pipeline is strictly fire-and-forget: a bounded queue that drops on
// overflow, a circuit breaker around the collector, and no error ever
// surfaces to a caller.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/parlorlive/gamehost/internal/v1/game"
	"github.com/parlorlive/gamehost/internal/v1/logging"
	"github.com/parlorlive/gamehost/internal/v1/metrics"
	"github.com/parlorlive/gamehost/internal/v1/types"
)

const queueDepth = 256

// Event is one gameplay fact posted to the collector.
type Event struct {
	Type       string    `json:"type"`
	RoomID     string    `json:"roomId"`
	GameType   string    `json:"gameType"`
	PlayerName string    `json:"playerName,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Logger is the async event pipeline. A Logger built without an endpoint is
// a no-op; either way every method is safe to call.
type Logger struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	queue    chan Event
	done     chan struct{}
}

// New starts the delivery worker. An empty endpoint disables analytics
// entirely.
func New(endpoint string) *Logger {
	l := &Logger{endpoint: endpoint}
	if endpoint == "" {
		return l
	}

	l.client = &http.Client{Timeout: 5 * time.Second}
	l.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "analytics",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	l.queue = make(chan Event, queueDepth)
	l.done = make(chan struct{})
	go l.run()
	return l
}

// Record enqueues an event without blocking. Overflow drops the event.
func (l *Logger) Record(eventType string, roomID types.RoomIDType, family game.Family, playerName string) {
	if l.queue == nil {
		return
	}
	ev := Event{
		Type:       eventType,
		RoomID:     string(roomID),
		GameType:   string(family),
		PlayerName: playerName,
		Timestamp:  time.Now().UTC(),
	}
	select {
	case l.queue <- ev:
	default:
		metrics.AnalyticsDropped.Inc()
	}
}

// Close drains the queue and stops the worker.
func (l *Logger) Close() {
	if l.queue == nil {
		return
	}
	close(l.queue)
	<-l.done
}

func (l *Logger) run() {
	defer close(l.done)
	for ev := range l.queue {
		if _, err := l.breaker.Execute(func() (any, error) {
			return nil, l.post(ev)
		}); err != nil {
			// Swallowed unconditionally: analytics never propagates errors.
			logging.Debug(context.Background(), "Analytics delivery failed", zap.Error(err))
		}
	}
}

func (l *Logger) post(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	resp, err := l.client.Post(l.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("analytics: collector returned %d", resp.StatusCode)
	}
	return nil
}
