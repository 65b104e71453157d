package transport

import (
	"context"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/parlorlive/gamehost/internal/v1/analytics"
	"github.com/parlorlive/gamehost/internal/v1/game"
	"github.com/parlorlive/gamehost/internal/v1/game/bigtwo"
	"github.com/parlorlive/gamehost/internal/v1/game/bingo"
	"github.com/parlorlive/gamehost/internal/v1/game/boggle"
	"github.com/parlorlive/gamehost/internal/v1/game/chess"
	"github.com/parlorlive/gamehost/internal/v1/game/xiangqi"
	"github.com/parlorlive/gamehost/internal/v1/leaderboard"
	"github.com/parlorlive/gamehost/internal/v1/logging"
	"github.com/parlorlive/gamehost/internal/v1/metrics"
	"github.com/parlorlive/gamehost/internal/v1/ratelimit"
	"github.com/parlorlive/gamehost/internal/v1/room"
	"github.com/parlorlive/gamehost/internal/v1/types"
)

// disconnectGrace is how long a dropped player connection stays silent before
// the room is told. A page navigation reconnects well inside it, so the other
// players never see a flicker.
const disconnectGrace = 2 * time.Second

// Hub routes every inbound command to its room. All game mutation happens
// inside the target room's lock, so commands for one room are strictly
// serialized while different rooms proceed in parallel.
type Hub struct {
	rooms   *room.Manager
	board   *leaderboard.Store
	events  *analytics.Logger
	limiter *ratelimit.JoinLimiter

	upgrader websocket.Upgrader
	clk      clock.PassiveClock

	mu           sync.Mutex
	rng          *rand.Rand
	connCount    int
	closed       bool
	roundTimers  map[types.RoomIDType]*time.Timer
	graceTimers  map[string]*time.Timer
	undoRequests map[types.RoomIDType]string
}

// NewHub wires the dispatcher. limiter may be nil to disable join rate
// limiting; allowedOrigins is comma-separated, empty meaning any origin.
func NewHub(rooms *room.Manager, board *leaderboard.Store, events *analytics.Logger, limiter *ratelimit.JoinLimiter, allowedOrigins string) *Hub {
	h := &Hub{
		rooms:        rooms,
		board:        board,
		events:       events,
		limiter:      limiter,
		clk:          clock.RealClock{},
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		roundTimers:  make(map[types.RoomIDType]*time.Timer),
		graceTimers:  make(map[string]*time.Timer),
		undoRequests: make(map[types.RoomIDType]string),
	}

	origins := splitOrigins(allowedOrigins)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), origins)
		},
	}
	return h
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

func originAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// ServeWs upgrades the HTTP request and starts the connection's pumps.
func (h *Hub) ServeWs(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, ratelimit.ClientIP(c.Request))
	metrics.IncConnection()
	h.mu.Lock()
	h.connCount++
	h.mu.Unlock()

	logging.Info(c.Request.Context(), "WebSocket connected",
		zap.String("connId", client.id), zap.String("ip", client.ip))

	go client.writePump()
	go client.readPump()
}

// RoomCount implements health.Stats.
func (h *Hub) RoomCount() int { return h.rooms.Count() }

// ConnectionCount implements health.Stats.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connCount
}

// handleDisconnect detaches a closed connection from its room. Player seats
// persist for reclaiming; the room only hears about the loss after the grace
// window, so a quick reconnect is invisible.
func (h *Hub) handleDisconnect(c *Client) {
	h.mu.Lock()
	h.connCount--
	h.mu.Unlock()

	info, ok := h.rooms.Leave(c)
	if !ok {
		return
	}
	logging.Info(context.Background(), "Player left",
		zap.String("roomId", string(info.RoomID)),
		zap.String("playerName", info.Name),
		zap.Bool("wasPlayer", info.WasPlayer))

	if !info.WasPlayer {
		info.Room.WithLock(func() {
			h.broadcastRoomLocked(info.Room)
		})
		return
	}
	h.armGraceTimer(info.RoomID, info.Name)
}

func graceKey(roomID types.RoomIDType, name string) string {
	return string(roomID) + "/" + name
}

func (h *Hub) armGraceTimer(roomID types.RoomIDType, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	key := graceKey(roomID, name)
	if t, ok := h.graceTimers[key]; ok {
		t.Stop()
	}
	h.graceTimers[key] = time.AfterFunc(disconnectGrace, func() {
		h.announceDisconnect(roomID, name)
	})
}

func (h *Hub) cancelGraceTimer(roomID types.RoomIDType, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := graceKey(roomID, name)
	if t, ok := h.graceTimers[key]; ok {
		t.Stop()
		delete(h.graceTimers, key)
	}
}

// announceDisconnect fires after the grace window. The seat is re-checked
// under the room lock: if the player reclaimed it in the meantime, nothing is
// said.
func (h *Hub) announceDisconnect(roomID types.RoomIDType, name string) {
	h.mu.Lock()
	if t, ok := h.graceTimers[graceKey(roomID, name)]; ok {
		t.Stop()
		delete(h.graceTimers, graceKey(roomID, name))
	}
	h.mu.Unlock()

	r, ok := h.rooms.Get(roomID)
	if !ok {
		return
	}
	r.WithLock(func() {
		_, seat := r.SeatByName(name)
		if seat == nil || seat.Conn != nil {
			return
		}
		r.Broadcast("player_disconnected", playerGonePayload{PlayerName: name})
		h.broadcastRoomLocked(r)
	})
}

// armRoundTimer schedules the word round's automatic close.
func (h *Hub) armRoundTimer(roomID types.RoomIDType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if t, ok := h.roundTimers[roomID]; ok {
		t.Stop()
	}
	h.roundTimers[roomID] = time.AfterFunc(boggle.RoundLength, func() {
		h.closeWordRound(roomID)
	})
}

func (h *Hub) cancelRoundTimer(roomID types.RoomIDType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.roundTimers[roomID]; ok {
		t.Stop()
		delete(h.roundTimers, roomID)
	}
}

func (h *Hub) closeWordRound(roomID types.RoomIDType) {
	h.mu.Lock()
	delete(h.roundTimers, roomID)
	h.mu.Unlock()

	r, ok := h.rooms.Get(roomID)
	if !ok {
		return
	}
	r.WithLock(func() {
		eng, ok := r.Engine.(*boggle.Engine)
		if !ok || eng.IsGameOver() {
			return
		}
		h.finishWordRoundLocked(r, eng)
	})
}

// finishWordRoundLocked scores the round and ends the game. Caller holds the
// room lock and has verified the engine.
func (h *Hub) finishWordRoundLocked(r *room.Room, eng *boggle.Engine) {
	eng.EndRound()
	h.broadcastStateLocked(r)
	h.finishLocked(r, eng.Winner(), "round_end")
}

// newRNG seeds a per-game source from the hub's.
func (h *Hub) newRNG() *rand.Rand {
	h.mu.Lock()
	defer h.mu.Unlock()
	return rand.New(rand.NewSource(h.rng.Int63()))
}

// broadcastRoomLocked pushes the membership snapshot to everyone in the room.
func (h *Hub) broadcastRoomLocked(r *room.Room) {
	r.Broadcast("room_update", roomUpdatePayload{
		Players:    r.Players(),
		Spectators: r.SpectatorNames(),
	})
}

// broadcastStateLocked pushes the engine snapshot to everyone. Card hands are
// personalized per seat; spectators get the redacted view.
func (h *Hub) broadcastStateLocked(r *room.Room) {
	if r.Engine == nil {
		return
	}
	players := r.Players()

	if eng, ok := r.Engine.(*bigtwo.Engine); ok {
		for i, s := range r.Seats {
			if s.Conn != nil {
				snap := eng.SnapshotFor(i)
				snap["players"] = players
				s.Conn.SendEvent("game_state", snap)
			}
		}
		snap := eng.SnapshotFor(-1)
		snap["players"] = players
		for _, sp := range r.Spectators {
			sp.Conn.SendEvent("game_state", snap)
		}
		return
	}

	state, ok := r.Engine.State().(map[string]any)
	if !ok {
		return
	}
	state["players"] = players
	r.Broadcast("game_state", state)
}

// sendStateLocked pushes the current snapshot to a single connection, used
// when someone joins a game already in progress.
func (h *Hub) sendStateLocked(r *room.Room, conn types.Conn, seat int) {
	if r.Engine == nil {
		return
	}
	players := r.Players()

	if eng, ok := r.Engine.(*bigtwo.Engine); ok {
		snap := eng.SnapshotFor(seat)
		snap["players"] = players
		conn.SendEvent("game_state", snap)
		return
	}
	state, ok := r.Engine.State().(map[string]any)
	if !ok {
		return
	}
	state["players"] = players
	conn.SendEvent("game_state", state)
}

// finishLocked ends the room's game: broadcasts the result, credits the
// leaderboard, and drops the engine so the host can start a rematch. Caller
// holds the room lock.
func (h *Hub) finishLocked(r *room.Room, winner any, reason string) {
	names := h.winnerNamesLocked(r)
	r.Broadcast("game_over", gameOverPayload{Winner: winner, Reason: reason})
	for _, name := range names {
		h.board.RecordWin(r.Family, name)
	}
	metrics.GamesFinished.WithLabelValues(string(r.Family), reason).Inc()
	h.events.Record("game_end", r.ID, r.Family, strings.Join(names, ","))

	h.mu.Lock()
	delete(h.undoRequests, r.ID)
	h.mu.Unlock()
	h.cancelRoundTimer(r.ID)
	r.Engine = nil

	logging.Info(context.Background(), "Game finished",
		zap.String("roomId", string(r.ID)),
		zap.String("gameType", string(r.Family)),
		zap.String("reason", reason),
		zap.Strings("winners", names))
}

// winnerNamesLocked maps the engine's winner value to display names.
func (h *Hub) winnerNamesLocked(r *room.Room) []string {
	if r.Engine == nil {
		return nil
	}
	switch eng := r.Engine.(type) {
	case *chess.Engine, *xiangqi.Engine:
		color, _ := r.Engine.Winner().(string)
		if color == "" || color == "draw" {
			return nil
		}
		if _, seat := r.SeatByColor(color); seat != nil {
			return []string{seat.Name}
		}
	case *bigtwo.Engine:
		if seat, ok := eng.Winner().(int); ok && seat >= 0 && seat < len(r.Seats) {
			return []string{r.Seats[seat].Name}
		}
	case *boggle.Engine:
		if seat, ok := eng.Winner().(int); ok && seat >= 0 && seat < len(r.Seats) {
			return []string{r.Seats[seat].Name}
		}
	case *bingo.Engine:
		var names []string
		for _, w := range eng.Winners() {
			if w.Seat >= 0 && w.Seat < len(r.Seats) {
				names = append(names, r.Seats[w.Seat].Name)
			}
		}
		return names
	}
	return nil
}

// buildEngine constructs the family's engine for the current seat count.
func (h *Hub) buildEngine(family game.Family, seats int) (game.Engine, error) {
	switch family {
	case game.FamilyChess:
		return chess.New(), nil
	case game.FamilyXiangqi:
		return xiangqi.New(), nil
	case game.FamilyBigTwo:
		return bigtwo.New(h.newRNG()), nil
	case game.FamilyBoggle:
		return boggle.New(seats, h.newRNG(), h.clk), nil
	case game.FamilyBingo:
		return bingo.New(seats, h.newRNG())
	default:
		return nil, room.ErrUnknownFamily
	}
}

// Shutdown stops every pending hub timer. Connections themselves are closed
// through the room manager.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, t := range h.roundTimers {
		t.Stop()
		delete(h.roundTimers, id)
	}
	for key, t := range h.graceTimers {
		t.Stop()
		delete(h.graceTimers, key)
	}
}
