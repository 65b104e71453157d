package transport

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorlive/gamehost/internal/v1/analytics"
	"github.com/parlorlive/gamehost/internal/v1/game"
	"github.com/parlorlive/gamehost/internal/v1/leaderboard"
	"github.com/parlorlive/gamehost/internal/v1/ratelimit"
	"github.com/parlorlive/gamehost/internal/v1/room"
	"github.com/parlorlive/gamehost/internal/v1/types"
)

// stubSocket satisfies wsConnection for clients whose pumps never run.
type stubSocket struct{}

func (stubSocket) ReadMessage() (int, []byte, error)    { return 0, nil, io.EOF }
func (stubSocket) WriteMessage(int, []byte) error       { return nil }
func (stubSocket) SetReadLimit(int64)                   {}
func (stubSocket) SetReadDeadline(time.Time) error      { return nil }
func (stubSocket) SetWriteDeadline(time.Time) error     { return nil }
func (stubSocket) SetPongHandler(func(string) error)    {}
func (stubSocket) Close() error                         { return nil }

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	mgr := room.NewManager()
	h := NewHub(mgr, leaderboard.NewStore(), analytics.New(""), nil, "")
	t.Cleanup(func() {
		h.Shutdown()
		mgr.Shutdown()
	})
	return h
}

func newTestClient(h *Hub, ip string) *Client {
	return newClient(h, stubSocket{}, ip)
}

// send pushes one command through the dispatcher as if it arrived on the
// wire.
func send(t *testing.T, h *Hub, c *Client, event string, payload any) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = b
	}
	h.dispatch(c, Envelope{Event: event, Data: raw})
}

// drain empties the client's outbound queue.
func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

// lastOf returns the latest queued payload for an event, decoded into a map.
func lastOf(t *testing.T, envs []Envelope, event string) (map[string]any, bool) {
	t.Helper()
	var found map[string]any
	ok := false
	for _, env := range envs {
		if env.Event != event {
			continue
		}
		found = nil
		if len(env.Data) > 0 {
			require.NoError(t, json.Unmarshal(env.Data, &found))
		}
		ok = true
	}
	return found, ok
}

func eventNames(envs []Envelope) []string {
	names := make([]string, len(envs))
	for i, env := range envs {
		names[i] = env.Event
	}
	return names
}

// joinFresh joins a brand new room and returns its id.
func joinFresh(t *testing.T, h *Hub, c *Client, family, name string) string {
	t.Helper()
	send(t, h, c, "join_game", joinPayload{PlayerName: name, GameType: family})
	joined, ok := lastOf(t, drain(t, c), "joined")
	require.True(t, ok, "expected a joined event")
	return joined["roomId"].(string)
}

// joinRoom joins an existing room and returns the joined payload together
// with everything else the hub sent in the same batch, such as the state
// snapshot pushed to a reconnecting player.
func joinRoom(t *testing.T, h *Hub, c *Client, roomID, name string) (map[string]any, []Envelope) {
	t.Helper()
	send(t, h, c, "join_game", joinPayload{RoomID: roomID, PlayerName: name})
	envs := drain(t, c)
	joined, ok := lastOf(t, envs, "joined")
	require.True(t, ok, "expected a joined event")
	return joined, envs
}

func TestJoinCreatesRoom(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "203.0.113.1")

	send(t, h, c, "join_game", joinPayload{PlayerName: "alice", GameType: "chess"})
	envs := drain(t, c)

	joined, ok := lastOf(t, envs, "joined")
	require.True(t, ok)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, joined["roomId"])
	assert.Equal(t, "white", joined["color"])
	assert.Equal(t, false, joined["reconnected"])

	update, ok := lastOf(t, envs, "room_update")
	require.True(t, ok)
	assert.Len(t, update["players"], 1)
}

func TestJoinUnknownGameType(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "203.0.113.1")

	send(t, h, c, "join_game", joinPayload{PlayerName: "alice", GameType: "go-fish"})
	errEv, ok := lastOf(t, drain(t, c), "error")
	require.True(t, ok)
	assert.Equal(t, "Unknown game type", errEv["message"])
}

func TestJoinRoomNotFound(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "203.0.113.1")

	send(t, h, c, "join_game", joinPayload{RoomID: "ZZZZZZ", PlayerName: "alice"})
	errEv, ok := lastOf(t, drain(t, c), "error")
	require.True(t, ok)
	assert.Equal(t, "Room not found", errEv["message"])
}

func TestJoinOverflowBecomesSpectator(t *testing.T) {
	h := newTestHub(t)
	c1 := newTestClient(h, "203.0.113.1")
	c2 := newTestClient(h, "203.0.113.2")
	c3 := newTestClient(h, "203.0.113.3")

	id := joinFresh(t, h, c1, "chess", "alice")
	joinRoom(t, h, c2, id, "bob")
	joined, _ := joinRoom(t, h, c3, id, "carol")

	assert.Equal(t, types.SpectatorColor, joined["color"])
}

func TestJoinLowercaseRoomID(t *testing.T) {
	h := newTestHub(t)
	c1 := newTestClient(h, "203.0.113.1")
	c2 := newTestClient(h, "203.0.113.2")

	id := joinFresh(t, h, c1, "chess", "alice")
	joined, _ := joinRoom(t, h, c2, "  "+lower(id)+" ", "bob")
	assert.Equal(t, "black", joined["color"])
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestJoinRateLimited(t *testing.T) {
	limiter, err := ratelimit.New("1-M", nil)
	require.NoError(t, err)

	mgr := room.NewManager()
	h := NewHub(mgr, leaderboard.NewStore(), analytics.New(""), limiter, "")
	t.Cleanup(func() {
		h.Shutdown()
		mgr.Shutdown()
	})

	c1 := newTestClient(h, "203.0.113.7")
	id := joinFresh(t, h, c1, "chess", "alice")

	c2 := newTestClient(h, "203.0.113.7")
	send(t, h, c2, "join_game", joinPayload{RoomID: id, PlayerName: "bob"})
	errEv, ok := lastOf(t, drain(t, c2), "error")
	require.True(t, ok)
	assert.Equal(t, "Too many join attempts, slow down", errEv["message"])

	// Reconnections bypass the limiter.
	c3 := newTestClient(h, "203.0.113.7")
	send(t, h, c3, "join_game", joinPayload{RoomID: id, PlayerName: "alice", Reconnect: true})
	joined, ok := lastOf(t, drain(t, c3), "joined")
	require.True(t, ok)
	assert.Equal(t, true, joined["reconnected"])
}

func TestStartGameHostOnly(t *testing.T) {
	h := newTestHub(t)
	c1 := newTestClient(h, "203.0.113.1")
	c2 := newTestClient(h, "203.0.113.2")

	id := joinFresh(t, h, c1, "chess", "alice")
	joinRoom(t, h, c2, id, "bob")
	drain(t, c1)

	send(t, h, c2, "start_game", nil)
	errEv, ok := lastOf(t, drain(t, c2), "error")
	require.True(t, ok)
	assert.Equal(t, "Only the host can start the game", errEv["message"])

	send(t, h, c1, "start_game", nil)
	envs := drain(t, c1)
	_, started := lastOf(t, envs, "game_started")
	assert.True(t, started)
	state, ok := lastOf(t, envs, "game_state")
	require.True(t, ok)
	assert.Equal(t, "chess", state["gameType"])

	_, started = lastOf(t, drain(t, c2), "game_started")
	assert.True(t, started, "non-host also hears game_started")
}

func TestStartNotEnoughPlayers(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "203.0.113.1")

	joinFresh(t, h, c, "chess", "alice")
	send(t, h, c, "start_game", nil)
	errEv, ok := lastOf(t, drain(t, c), "error")
	require.True(t, ok)
	assert.Equal(t, "Not enough players", errEv["message"])
}

func TestStartTwiceRejected(t *testing.T) {
	h := newTestHub(t)
	c1 := newTestClient(h, "203.0.113.1")
	c2 := newTestClient(h, "203.0.113.2")

	id := joinFresh(t, h, c1, "chess", "alice")
	joinRoom(t, h, c2, id, "bob")
	send(t, h, c1, "start_game", nil)
	drain(t, c1)

	send(t, h, c1, "start_game", nil)
	errEv, ok := lastOf(t, drain(t, c1), "error")
	require.True(t, ok)
	assert.Equal(t, "Game already in progress", errEv["message"])
}

func TestMoveBeforeStart(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "203.0.113.1")

	joinFresh(t, h, c, "chess", "alice")
	send(t, h, c, "make_move", movePayload{From: squareRef{6, 4}, To: squareRef{4, 4}})
	reject, ok := lastOf(t, drain(t, c), "invalid_move")
	require.True(t, ok)
	assert.Equal(t, "Game has not started", reject["reason"])
}

func startChess(t *testing.T, h *Hub) (id string, white, black *Client) {
	t.Helper()
	white = newTestClient(h, "203.0.113.1")
	black = newTestClient(h, "203.0.113.2")
	id = joinFresh(t, h, white, "chess", "alice")
	joinRoom(t, h, black, id, "bob")
	send(t, h, white, "start_game", nil)
	drain(t, white)
	drain(t, black)
	return id, white, black
}

func TestChessMoveFlow(t *testing.T) {
	h := newTestHub(t)
	_, white, black := startChess(t, h)

	// Black may not open.
	send(t, h, black, "make_move", movePayload{From: squareRef{1, 4}, To: squareRef{3, 4}})
	reject, ok := lastOf(t, drain(t, black), "invalid_move")
	require.True(t, ok)
	assert.Equal(t, "Not your turn", reject["reason"])

	// 1. e4 reaches both sides.
	send(t, h, white, "make_move", movePayload{From: squareRef{6, 4}, To: squareRef{4, 4}})
	state, ok := lastOf(t, drain(t, white), "game_state")
	require.True(t, ok)
	assert.Equal(t, "b", state["turn"])
	_, ok = lastOf(t, drain(t, black), "game_state")
	assert.True(t, ok)
}

func TestSpectatorCannotMove(t *testing.T) {
	h := newTestHub(t)
	id, white, _ := startChess(t, h)

	spec := newTestClient(h, "203.0.113.9")
	joinRoom(t, h, spec, id, "watcher")
	drain(t, white)

	send(t, h, spec, "make_move", movePayload{From: squareRef{6, 4}, To: squareRef{4, 4}})
	reject, ok := lastOf(t, drain(t, spec), "invalid_move")
	require.True(t, ok)
	assert.Equal(t, "Spectators cannot play", reject["reason"])
}

func TestFoolsMateBroadcastsGameOver(t *testing.T) {
	h := newTestHub(t)
	_, white, black := startChess(t, h)

	moves := []struct {
		c        *Client
		from, to squareRef
	}{
		{white, squareRef{6, 5}, squareRef{5, 5}},
		{black, squareRef{1, 4}, squareRef{3, 4}},
		{white, squareRef{6, 6}, squareRef{4, 6}},
		{black, squareRef{0, 3}, squareRef{4, 7}},
	}
	for _, mv := range moves {
		send(t, h, mv.c, "make_move", movePayload{From: mv.from, To: mv.to})
	}

	over, ok := lastOf(t, drain(t, white), "game_over")
	require.True(t, ok)
	assert.Equal(t, "black", over["winner"])
	assert.Equal(t, "checkmate", over["reason"])

	top := h.board.Top(game.FamilyChess, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "bob", top[0].Name)
}

func TestBigTwoPersonalizedState(t *testing.T) {
	h := newTestHub(t)
	clients := make([]*Client, 4)
	var id string
	for i, name := range []string{"a", "b", "c", "d"} {
		clients[i] = newTestClient(h, "203.0.113.1")
		if i == 0 {
			id = joinFresh(t, h, clients[0], "chordaidi", name)
		} else {
			joinRoom(t, h, clients[i], id, name)
		}
	}
	for _, c := range clients {
		drain(t, c)
	}

	send(t, h, clients[0], "start_game", nil)

	hands := map[string]bool{}
	for _, c := range clients {
		state, ok := lastOf(t, drain(t, c), "game_state")
		require.True(t, ok)
		myHand := state["myHand"].([]any)
		assert.Len(t, myHand, 13)
		raw, _ := json.Marshal(myHand)
		hands[string(raw)] = true
	}
	assert.Len(t, hands, 4, "every seat sees a different hand")

	// A spectator gets the redacted view.
	spec := newTestClient(h, "203.0.113.9")
	_, envs := joinRoom(t, h, spec, id, "watcher")
	state, ok := lastOf(t, envs, "game_state")
	require.True(t, ok)
	assert.Empty(t, state["myHand"])
}

func TestBoggleRejectAndHostEnd(t *testing.T) {
	h := newTestHub(t)
	c1 := newTestClient(h, "203.0.113.1")
	c2 := newTestClient(h, "203.0.113.2")

	id := joinFresh(t, h, c1, "boggle", "alice")
	joinRoom(t, h, c2, id, "bob")
	send(t, h, c1, "start_game", nil)
	drain(t, c1)
	drain(t, c2)

	send(t, h, c2, "boggle_submit", wordPayload{Word: "xq"})
	reject, ok := lastOf(t, drain(t, c2), "boggle_reject")
	require.True(t, ok)
	assert.Equal(t, "Words must be at least 3 letters", reject["reason"])

	send(t, h, c2, "boggle_end", nil)
	errEv, ok := lastOf(t, drain(t, c2), "error")
	require.True(t, ok)
	assert.Equal(t, "Only the host can end the round", errEv["message"])

	send(t, h, c1, "boggle_end", nil)
	envs := drain(t, c1)
	state, ok := lastOf(t, envs, "game_state")
	require.True(t, ok)
	assert.Contains(t, state, "scores")
	over, ok := lastOf(t, envs, "game_over")
	require.True(t, ok)
	assert.Equal(t, "round_end", over["reason"])
}

func TestBingoCallerFlow(t *testing.T) {
	h := newTestHub(t)
	caller := newTestClient(h, "203.0.113.1")
	p2 := newTestClient(h, "203.0.113.2")

	id := joinFresh(t, h, caller, "bingo", "alice")
	joinRoom(t, h, p2, id, "bob")
	send(t, h, caller, "start_game", nil)
	drain(t, caller)
	drain(t, p2)

	send(t, h, p2, "bingo_call", nil)
	reject, ok := lastOf(t, drain(t, p2), "invalid_move")
	require.True(t, ok)
	assert.Equal(t, "Not your turn", reject["reason"])

	send(t, h, caller, "bingo_call", nil)
	state, ok := lastOf(t, drain(t, caller), "game_state")
	require.True(t, ok)
	assert.Len(t, state["called"], 1)
}

func TestUndoNegotiation(t *testing.T) {
	h := newTestHub(t)
	_, white, black := startChess(t, h)

	send(t, h, white, "make_move", movePayload{From: squareRef{6, 4}, To: squareRef{4, 4}})
	drain(t, white)
	drain(t, black)

	send(t, h, white, "request_undo", nil)
	req, ok := lastOf(t, drain(t, black), "undo_requested")
	require.True(t, ok)
	assert.Equal(t, "alice", req["from"])

	send(t, h, black, "approve_undo", nil)
	state, ok := lastOf(t, drain(t, black), "game_state")
	require.True(t, ok)
	assert.Equal(t, "w", state["turn"], "the opening move was taken back")
}

func TestUndoDecline(t *testing.T) {
	h := newTestHub(t)
	_, white, black := startChess(t, h)

	send(t, h, white, "make_move", movePayload{From: squareRef{6, 4}, To: squareRef{4, 4}})
	drain(t, white)
	drain(t, black)

	send(t, h, white, "request_undo", nil)
	drain(t, black)
	send(t, h, black, "decline_undo", nil)

	names := eventNames(drain(t, white))
	assert.Contains(t, names, "undo_declined")

	// A declined request cannot be approved afterwards.
	send(t, h, black, "approve_undo", nil)
	errEv, ok := lastOf(t, drain(t, black), "error")
	require.True(t, ok)
	assert.Equal(t, "No undo request pending", errEv["message"])
}

func TestRequesterCannotApproveOwnUndo(t *testing.T) {
	h := newTestHub(t)
	_, white, black := startChess(t, h)

	send(t, h, white, "make_move", movePayload{From: squareRef{6, 4}, To: squareRef{4, 4}})
	send(t, h, white, "request_undo", nil)
	drain(t, white)
	drain(t, black)

	send(t, h, white, "approve_undo", nil)
	errEv, ok := lastOf(t, drain(t, white), "error")
	require.True(t, ok)
	assert.Equal(t, "Only your opponent can approve an undo", errEv["message"])
}

func TestUndoUnavailableForCardGames(t *testing.T) {
	h := newTestHub(t)
	clients := make([]*Client, 4)
	var id string
	for i, name := range []string{"a", "b", "c", "d"} {
		clients[i] = newTestClient(h, "203.0.113.1")
		if i == 0 {
			id = joinFresh(t, h, clients[0], "chordaidi", name)
		} else {
			joinRoom(t, h, clients[i], id, name)
		}
	}
	send(t, h, clients[0], "start_game", nil)
	drain(t, clients[0])

	send(t, h, clients[0], "request_undo", nil)
	errEv, ok := lastOf(t, drain(t, clients[0]), "error")
	require.True(t, ok)
	assert.Equal(t, "Undo is not available for this game", errEv["message"])
}

func TestResign(t *testing.T) {
	h := newTestHub(t)
	_, white, black := startChess(t, h)

	send(t, h, black, "resign", nil)
	over, ok := lastOf(t, drain(t, white), "game_over")
	require.True(t, ok)
	assert.Equal(t, "white", over["winner"])
	assert.Equal(t, "resign", over["reason"])

	top := h.board.Top(game.FamilyChess, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "alice", top[0].Name)

	// The room is ready for a rematch.
	send(t, h, white, "start_game", nil)
	envs := drain(t, white)
	_, started := lastOf(t, envs, "game_started")
	assert.True(t, started)
}

func TestDisconnectAnnouncedAfterGrace(t *testing.T) {
	h := newTestHub(t)
	id, white, black := startChess(t, h)

	h.handleDisconnect(black)
	drain(t, white)

	// The grace timer's callback re-checks the seat; firing it by hand keeps
	// the test clock-free.
	h.announceDisconnect(types.RoomIDType(id), "bob")
	envs := drain(t, white)
	gone, ok := lastOf(t, envs, "player_disconnected")
	require.True(t, ok)
	assert.Equal(t, "bob", gone["playerName"])
	update, ok := lastOf(t, envs, "room_update")
	require.True(t, ok)
	players := update["players"].([]any)
	assert.Equal(t, false, players[1].(map[string]any)["connected"])
}

func TestReconnectSuppressesAnnouncement(t *testing.T) {
	h := newTestHub(t)
	id, white, black := startChess(t, h)

	h.handleDisconnect(black)
	black2 := newTestClient(h, "203.0.113.2")
	joinRoom(t, h, black2, id, "bob")
	drain(t, white)

	h.announceDisconnect(types.RoomIDType(id), "bob")
	_, gone := lastOf(t, drain(t, white), "player_disconnected")
	assert.False(t, gone, "reclaimed seat must not be announced")
}

func TestReconnectReceivesLiveState(t *testing.T) {
	h := newTestHub(t)
	id, white, black := startChess(t, h)

	send(t, h, white, "make_move", movePayload{From: squareRef{6, 4}, To: squareRef{4, 4}})
	h.handleDisconnect(black)

	black2 := newTestClient(h, "203.0.113.2")
	joined, envs := joinRoom(t, h, black2, id, "bob")
	assert.Equal(t, true, joined["reconnected"])
	assert.Equal(t, "black", joined["color"])

	state, ok := lastOf(t, envs, "game_state")
	require.True(t, ok)
	assert.Equal(t, "b", state["turn"])
}

func TestPingPong(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "203.0.113.1")

	send(t, h, c, "ping", nil)
	names := eventNames(drain(t, c))
	assert.Equal(t, []string{"pong"}, names)
}

func TestUnknownCommand(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "203.0.113.1")

	send(t, h, c, "definitely_not_a_command", nil)
	errEv, ok := lastOf(t, drain(t, c), "error")
	require.True(t, ok)
	assert.Equal(t, "Unknown command", errEv["message"])
}

func TestCommandsBeforeJoin(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "203.0.113.1")

	for _, cmd := range []string{"start_game", "cdi_pass", "bingo_call", "resign"} {
		send(t, h, c, cmd, nil)
		errEv, ok := lastOf(t, drain(t, c), "error")
		require.True(t, ok, cmd)
		assert.Equal(t, "Join a room first", errEv["message"], cmd)
	}
}

func TestConnectionCount(t *testing.T) {
	h := newTestHub(t)
	assert.Equal(t, 0, h.ConnectionCount())
	assert.Equal(t, 0, h.RoomCount())

	c := newTestClient(h, "203.0.113.1")
	joinFresh(t, h, c, "chess", "alice")
	assert.Equal(t, 1, h.RoomCount())
}
