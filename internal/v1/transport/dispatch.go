package transport

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parlorlive/gamehost/internal/v1/game"
	"github.com/parlorlive/gamehost/internal/v1/game/bigtwo"
	"github.com/parlorlive/gamehost/internal/v1/game/bingo"
	"github.com/parlorlive/gamehost/internal/v1/game/boggle"
	"github.com/parlorlive/gamehost/internal/v1/game/chess"
	"github.com/parlorlive/gamehost/internal/v1/game/xiangqi"
	"github.com/parlorlive/gamehost/internal/v1/logging"
	"github.com/parlorlive/gamehost/internal/v1/metrics"
	"github.com/parlorlive/gamehost/internal/v1/room"
	"github.com/parlorlive/gamehost/internal/v1/types"
)

// Inbound payloads.

type joinPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	GameType   string `json:"gameType"`
	Reconnect  bool   `json:"reconnect"`
}

type squareRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type movePayload struct {
	From      squareRef `json:"from"`
	To        squareRef `json:"to"`
	Promotion string    `json:"promotion,omitempty"`
}

type playPayload struct {
	CardIDs []int `json:"cardIds"`
}

type wordPayload struct {
	Word string `json:"word"`
}

// Outbound payloads.

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	RoomID      string `json:"roomId"`
	Color       string `json:"color"`
	Reconnected bool   `json:"reconnected"`
}

type roomUpdatePayload struct {
	Players    []types.PlayerInfo `json:"players"`
	Spectators []string           `json:"spectators"`
}

type invalidMovePayload struct {
	Reason string `json:"reason"`
}

type gameOverPayload struct {
	Winner any    `json:"winner"`
	Reason string `json:"reason"`
}

type wordVerdictPayload struct {
	Word   string `json:"word"`
	Reason string `json:"reason,omitempty"`
}

type wordCountsPayload struct {
	SubmissionCounts []int `json:"submissionCounts"`
}

type undoRequestedPayload struct {
	From string `json:"from"`
}

type playerGonePayload struct {
	PlayerName string `json:"playerName"`
}

const (
	statusOK       = "ok"
	statusRejected = "rejected"
	statusError    = "error"
)

// dispatch routes one inbound envelope. Every handler returns a status label
// for the command counter.
func (h *Hub) dispatch(c *Client, env Envelope) {
	start := time.Now()
	var status string

	switch env.Event {
	case "join_game":
		status = h.handleJoin(c, env.Data)
	case "start_game":
		status = h.handleStart(c)
	case "make_move":
		status = h.handleMove(c, env.Data)
	case "cdi_play":
		status = h.handlePlay(c, env.Data)
	case "cdi_pass":
		status = h.handlePass(c)
	case "boggle_submit":
		status = h.handleWordSubmit(c, env.Data)
	case "boggle_end":
		status = h.handleWordEnd(c)
	case "bingo_call":
		status = h.handleBingoCall(c)
	case "request_undo":
		status = h.handleUndoRequest(c)
	case "approve_undo":
		status = h.handleUndoApprove(c)
	case "decline_undo":
		status = h.handleUndoDecline(c)
	case "resign":
		status = h.handleResign(c)
	case "ping":
		c.SendEvent("pong", nil)
		status = statusOK
	default:
		c.SendEvent("error", errorPayload{Message: "Unknown command"})
		status = statusError
	}

	metrics.CommandsProcessed.WithLabelValues(env.Event, status).Inc()
	metrics.CommandDuration.WithLabelValues(env.Event).Observe(time.Since(start).Seconds())
}

func (c *Client) sendError(message string) string {
	c.SendEvent("error", errorPayload{Message: message})
	return statusError
}

func (c *Client) rejectMove(reason string) string {
	c.SendEvent("invalid_move", invalidMovePayload{Reason: reason})
	return statusRejected
}

// currentRoom resolves the client's room; nil when it hasn't joined one.
func (h *Hub) currentRoom(c *Client) *room.Room {
	roomID, _, _ := c.identity()
	if roomID == "" {
		return nil
	}
	r, ok := h.rooms.Get(roomID)
	if !ok {
		return nil
	}
	return r
}

func (h *Hub) handleJoin(c *Client, data json.RawMessage) string {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return c.sendError("Malformed join_game payload")
	}

	if h.limiter != nil && !p.Reconnect {
		if !h.limiter.AllowJoin(context.Background(), c.ip) {
			return c.sendError("Too many join attempts, slow down")
		}
	}

	if strings.TrimSpace(p.PlayerName) == "" {
		return c.sendError("Name required")
	}

	roomID := types.RoomIDType(strings.ToUpper(strings.TrimSpace(p.RoomID)))
	if roomID == "" {
		r, err := h.rooms.CreateRoom(game.Family(p.GameType))
		if err != nil {
			return c.sendError("Unknown game type")
		}
		roomID = r.ID
	}

	res, err := h.rooms.Join(roomID, c, p.PlayerName)
	switch {
	case err == room.ErrNameRequired:
		return c.sendError("Name required")
	case err == room.ErrRoomNotFound:
		return c.sendError("Room not found")
	case err != nil:
		return c.sendError("Join failed")
	}

	h.cancelGraceTimer(roomID, res.Name)
	c.setIdentity(roomID, res.Name, res.Color)

	c.SendEvent("joined", joinedPayload{
		RoomID:      string(roomID),
		Color:       res.Color,
		Reconnected: res.Reconnected,
	})
	res.Room.WithLock(func() {
		h.broadcastRoomLocked(res.Room)
		h.sendStateLocked(res.Room, c, res.SeatIndex)
	})

	h.events.Record("join", roomID, res.Room.Family, res.Name)
	return statusOK
}

func (h *Hub) handleStart(c *Client) string {
	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		if seat, _ := r.SeatByConnID(c.id); seat != 0 {
			status = c.sendError("Only the host can start the game")
			return
		}
		if r.Engine != nil {
			status = c.sendError("Game already in progress")
			return
		}
		min, _ := game.SeatRange(r.Family)
		if len(r.Seats) < min {
			status = c.sendError("Not enough players")
			return
		}

		eng, err := h.buildEngine(r.Family, len(r.Seats))
		if err != nil {
			status = c.sendError("Unknown game type")
			return
		}
		r.Engine = eng
		if r.Family == game.FamilyBoggle {
			h.armRoundTimer(r.ID)
		}

		r.Broadcast("game_started", nil)
		h.broadcastStateLocked(r)
	})
	if status != statusOK {
		return status
	}

	metrics.GamesStarted.WithLabelValues(string(r.Family)).Inc()
	_, name, _ := c.identity()
	h.events.Record("game_start", r.ID, r.Family, name)
	logging.Info(context.Background(), "Game started",
		zap.String("roomId", string(r.ID)),
		zap.String("gameType", string(r.Family)))
	return statusOK
}

// boardSeat maps the engine's turn byte to the seat expected to act: seat 0
// plays white/red ('w'), seat 1 plays black.
func boardSeat(turn byte) int {
	if turn == 'w' {
		return 0
	}
	return 1
}

func (h *Hub) handleMove(c *Client, data json.RawMessage) string {
	var p movePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return c.sendError("Malformed make_move payload")
	}

	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		if r.Engine == nil {
			status = c.rejectMove("Game has not started")
			return
		}
		seat, _ := r.SeatByConnID(c.id)
		if seat < 0 {
			status = c.rejectMove("Spectators cannot play")
			return
		}

		var res game.Result
		switch eng := r.Engine.(type) {
		case *chess.Engine:
			if seat != boardSeat(eng.Turn()) {
				status = c.rejectMove("Not your turn")
				return
			}
			res = eng.Move(
				chess.Square{Row: p.From.Row, Col: p.From.Col},
				chess.Square{Row: p.To.Row, Col: p.To.Col},
				p.Promotion,
			)
		case *xiangqi.Engine:
			if seat != boardSeat(eng.Turn()) {
				status = c.rejectMove("Not your turn")
				return
			}
			res = eng.Move(
				xiangqi.Square{Row: p.From.Row, Col: p.From.Col},
				xiangqi.Square{Row: p.To.Row, Col: p.To.Col},
			)
		default:
			status = c.rejectMove("Wrong command for this game")
			return
		}

		if !res.OK {
			status = c.rejectMove(res.Reason)
			return
		}

		// A completed move voids any pending undo negotiation.
		h.mu.Lock()
		delete(h.undoRequests, r.ID)
		h.mu.Unlock()

		h.events.Record("move", r.ID, r.Family, r.Seats[seat].Name)
		h.broadcastStateLocked(r)
		if r.Engine.IsGameOver() {
			h.finishLocked(r, r.Engine.Winner(), boardFinishReason(r.Engine))
		}
	})
	return status
}

// boardFinishReason distinguishes a decisive finish from a dead position.
func boardFinishReason(eng game.Engine) string {
	switch e := eng.(type) {
	case *chess.Engine:
		if w, _ := e.Winner().(string); w == "draw" {
			return "stalemate"
		}
		return "checkmate"
	case *xiangqi.Engine:
		if e.InCheck() {
			return "checkmate"
		}
		return "stalemate"
	}
	return "game_over"
}

func (h *Hub) handlePlay(c *Client, data json.RawMessage) string {
	var p playPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return c.sendError("Malformed cdi_play payload")
	}

	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		eng, ok := r.Engine.(*bigtwo.Engine)
		if !ok {
			status = c.rejectMove("Game has not started")
			return
		}
		seat, _ := r.SeatByConnID(c.id)
		if seat < 0 {
			status = c.rejectMove("Spectators cannot play")
			return
		}

		res := eng.Play(seat, p.CardIDs)
		if !res.OK {
			status = c.rejectMove(res.Reason)
			return
		}
		h.events.Record("move", r.ID, r.Family, r.Seats[seat].Name)
		h.broadcastStateLocked(r)
		if eng.IsGameOver() {
			h.finishLocked(r, eng.Winner(), "win")
		}
	})
	return status
}

func (h *Hub) handlePass(c *Client) string {
	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		eng, ok := r.Engine.(*bigtwo.Engine)
		if !ok {
			status = c.rejectMove("Game has not started")
			return
		}
		seat, _ := r.SeatByConnID(c.id)
		if seat < 0 {
			status = c.rejectMove("Spectators cannot play")
			return
		}

		res := eng.Pass(seat)
		if !res.OK {
			status = c.rejectMove(res.Reason)
			return
		}
		h.broadcastStateLocked(r)
	})
	return status
}

func (h *Hub) handleWordSubmit(c *Client, data json.RawMessage) string {
	var p wordPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return c.sendError("Malformed boggle_submit payload")
	}

	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		eng, ok := r.Engine.(*boggle.Engine)
		if !ok {
			status = c.sendError("Game has not started")
			return
		}
		seat, _ := r.SeatByConnID(c.id)
		if seat < 0 {
			status = c.sendError("Spectators cannot play")
			return
		}

		res := eng.SubmitWord(seat, p.Word)
		if !res.OK {
			c.SendEvent("boggle_reject", wordVerdictPayload{Word: p.Word, Reason: res.Reason})
			status = statusRejected
			return
		}
		c.SendEvent("boggle_accept", wordVerdictPayload{Word: strings.ToUpper(strings.TrimSpace(p.Word))})
		r.Broadcast("boggle_counts", wordCountsPayload{SubmissionCounts: eng.SubmissionCounts()})
	})
	return status
}

func (h *Hub) handleWordEnd(c *Client) string {
	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		eng, ok := r.Engine.(*boggle.Engine)
		if !ok {
			status = c.sendError("Game has not started")
			return
		}
		if seat, _ := r.SeatByConnID(c.id); seat != 0 {
			status = c.sendError("Only the host can end the round")
			return
		}
		h.finishWordRoundLocked(r, eng)
	})
	return status
}

func (h *Hub) handleBingoCall(c *Client) string {
	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		eng, ok := r.Engine.(*bingo.Engine)
		if !ok {
			status = c.rejectMove("Game has not started")
			return
		}
		seat, _ := r.SeatByConnID(c.id)

		res := eng.CallNumber(seat)
		if !res.OK {
			status = c.rejectMove(res.Reason)
			return
		}
		h.broadcastStateLocked(r)
		if eng.IsGameOver() {
			h.finishLocked(r, eng.Winners(), "bingo")
		}
	})
	return status
}

func (h *Hub) handleUndoRequest(c *Client) string {
	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		if _, ok := r.Engine.(game.Undoer); !ok || r.Engine == nil {
			status = c.sendError("Undo is not available for this game")
			return
		}
		seat, mine := r.SeatByConnID(c.id)
		if mine == nil {
			status = c.sendError("Spectators cannot play")
			return
		}

		opponent := r.Seats[1-seat]
		if opponent.Conn == nil {
			status = c.sendError("Opponent is not connected")
			return
		}

		h.mu.Lock()
		h.undoRequests[r.ID] = mine.Name
		h.mu.Unlock()
		opponent.Conn.SendEvent("undo_requested", undoRequestedPayload{From: mine.Name})
	})
	return status
}

// pendingUndoRequest reads the pending request for a room without consuming
// it.
func (h *Hub) pendingUndoRequest(roomID types.RoomIDType) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	name, ok := h.undoRequests[roomID]
	return name, ok
}

func (h *Hub) clearUndoRequest(roomID types.RoomIDType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.undoRequests, roomID)
}

func (h *Hub) handleUndoApprove(c *Client) string {
	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		requester, ok := h.pendingUndoRequest(r.ID)
		if !ok {
			status = c.sendError("No undo request pending")
			return
		}
		_, mine := r.SeatByConnID(c.id)
		if mine == nil || mine.Name == requester {
			status = c.sendError("Only your opponent can approve an undo")
			return
		}

		undoer, ok := r.Engine.(game.Undoer)
		if !ok {
			status = c.sendError("Undo is not available for this game")
			return
		}
		h.clearUndoRequest(r.ID)
		if !undoer.Undo() {
			status = c.sendError("Nothing to undo")
			return
		}
		h.broadcastStateLocked(r)
	})
	return status
}

func (h *Hub) handleUndoDecline(c *Client) string {
	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		requester, ok := h.pendingUndoRequest(r.ID)
		if !ok {
			status = c.sendError("No undo request pending")
			return
		}
		h.clearUndoRequest(r.ID)
		if _, seat := r.SeatByName(requester); seat != nil && seat.Conn != nil {
			seat.Conn.SendEvent("undo_declined", nil)
		}
	})
	return status
}

func (h *Hub) handleResign(c *Client) string {
	r := h.currentRoom(c)
	if r == nil {
		return c.sendError("Join a room first")
	}

	status := statusOK
	r.WithLock(func() {
		if r.Engine == nil {
			status = c.sendError("Game has not started")
			return
		}
		switch r.Engine.(type) {
		case *chess.Engine, *xiangqi.Engine:
		default:
			status = c.sendError("Resign is not available for this game")
			return
		}
		seat, mine := r.SeatByConnID(c.id)
		if mine == nil || seat < 0 {
			status = c.sendError("Spectators cannot play")
			return
		}

		winner := r.Seats[1-seat]
		r.Broadcast("game_over", gameOverPayload{Winner: winner.Color, Reason: "resign"})
		h.board.RecordWin(r.Family, winner.Name)
		metrics.GamesFinished.WithLabelValues(string(r.Family), "resign").Inc()
		h.events.Record("game_end", r.ID, r.Family, winner.Name)

		h.mu.Lock()
		delete(h.undoRequests, r.ID)
		h.mu.Unlock()
		r.Engine = nil
	})
	return status
}
