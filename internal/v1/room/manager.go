package room

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parlorlive/gamehost/internal/v1/game"
	"github.com/parlorlive/gamehost/internal/v1/logging"
	"github.com/parlorlive/gamehost/internal/v1/metrics"
	"github.com/parlorlive/gamehost/internal/v1/types"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrNameRequired  = errors.New("name required")
	ErrUnknownFamily = errors.New("unknown game type")
)

const idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const idLength = 6

// Manager owns the room registry and the deferred-deletion timers. It is
// safe for concurrent use.
type Manager struct {
	mu               sync.Mutex
	rng              *rand.Rand
	rooms            map[types.RoomIDType]*Room
	pendingDeletions map[types.RoomIDType]*time.Timer
}

func NewManager() *Manager {
	return &Manager{
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		rooms:            make(map[types.RoomIDType]*Room),
		pendingDeletions: make(map[types.RoomIDType]*time.Timer),
	}
}

// CreateRoom inserts an empty room for the family and returns it.
func (m *Manager) CreateRoom(family game.Family) (*Room, error) {
	if !family.Valid() {
		return nil, ErrUnknownFamily
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.generateIDLocked()
	r := &Room{ID: id, Family: family}
	m.rooms[id] = r
	metrics.ActiveRooms.Inc()

	logging.Info(context.Background(), "Room created",
		zap.String("roomId", string(id)),
		zap.String("gameType", string(family)),
	)
	return r, nil
}

func (m *Manager) generateIDLocked() types.RoomIDType {
	for {
		buf := make([]byte, idLength)
		for i := range buf {
			buf[i] = idCharset[m.rng.Intn(len(idCharset))]
		}
		id := types.RoomIDType(buf)
		if _, taken := m.rooms[id]; !taken {
			return id
		}
	}
}

// JoinResult describes the seat or spectator slot a connection landed in.
type JoinResult struct {
	Room        *Room
	Name        string
	Color       string
	SeatIndex   int
	Reconnected bool
	Spectator   bool
}

// Join places a connection in a room. A seat already joined under the same
// trimmed name is reclaimed (reconnection); otherwise the next free color is
// allocated, and when the family's seats are exhausted the connection joins
// as a spectator. Any pending deletion timer is canceled.
func (m *Manager) Join(roomID types.RoomIDType, conn types.Conn, name string) (*JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if runes := []rune(name); len(runes) > MaxNameLength {
		name = string(runes[:MaxNameLength])
	}

	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	if timer, pending := m.pendingDeletions[roomID]; pending {
		timer.Stop()
		delete(m.pendingDeletions, roomID)
	}
	m.mu.Unlock()

	res := &JoinResult{Room: r, Name: name}
	r.WithLock(func() {
		if i, seat := r.SeatByName(name); seat != nil {
			// Two live connections under one name collapse to the seat; the
			// older connection is shut down.
			if seat.Conn != nil && seat.Conn.ID() != conn.ID() {
				seat.Conn.Close()
			}
			seat.Conn = conn
			res.Color = seat.Color
			res.SeatIndex = i
			res.Reconnected = true
			return
		}

		colors := game.ColorSets[r.Family]
		if len(r.Seats) < len(colors) {
			seat := &Seat{Name: name, Color: colors[len(r.Seats)], Conn: conn}
			r.Seats = append(r.Seats, seat)
			res.Color = seat.Color
			res.SeatIndex = len(r.Seats) - 1
			return
		}

		r.Spectators = append(r.Spectators, &Spectator{Name: name, Conn: conn})
		res.Color = types.SpectatorColor
		res.SeatIndex = -1
		res.Spectator = true
	})

	logging.Info(context.Background(), "Player joined",
		zap.String("roomId", string(roomID)),
		zap.String("playerName", name),
		zap.String("color", res.Color),
		zap.Bool("reconnected", res.Reconnected),
	)
	return res, nil
}

// LeaveInfo identifies what a departing connection was bound to.
type LeaveInfo struct {
	Room      *Room
	RoomID    types.RoomIDType
	Name      string
	WasPlayer bool
}

// Leave clears the departing connection. Seats keep their name and color for
// reclaiming; spectators are removed outright. When a room is left with no
// live seats, the deletion timer is armed.
func (m *Manager) Leave(conn types.Conn) (*LeaveInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.rooms {
		var info *LeaveInfo
		var empty bool
		r.WithLock(func() {
			if _, seat := r.SeatByConnID(conn.ID()); seat != nil {
				seat.Conn = nil
				info = &LeaveInfo{Room: r, RoomID: id, Name: seat.Name, WasPlayer: true}
			} else if name, dropped := r.dropSpectator(conn.ID()); dropped {
				info = &LeaveInfo{Room: r, RoomID: id, Name: name}
			}
			empty = r.LiveSeats() == 0
		})
		if info == nil {
			continue
		}
		if empty {
			m.armDeletionLocked(id)
		}
		return info, true
	}
	return nil, false
}

// armDeletionLocked schedules the room reaper. The timer re-checks liveness
// when it fires, so a join inside the window survives even if cancellation
// raced the timer.
func (m *Manager) armDeletionLocked(id types.RoomIDType) {
	if _, pending := m.pendingDeletions[id]; pending {
		return
	}
	m.pendingDeletions[id] = time.AfterFunc(GraceWindow, func() {
		m.reap(id)
	})
	logging.Info(context.Background(), "Room deletion armed",
		zap.String("roomId", string(id)),
		zap.Duration("grace", GraceWindow),
	)
}

func (m *Manager) reap(id types.RoomIDType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.pendingDeletions, id)
	r, ok := m.rooms[id]
	if !ok {
		return
	}

	live := 0
	r.WithLock(func() {
		live = r.LiveSeats()
		if live == 0 {
			for _, sp := range r.Spectators {
				sp.Conn.Close()
			}
			r.Spectators = nil
			r.Engine = nil
		}
	})
	if live > 0 {
		return
	}

	delete(m.rooms, id)
	metrics.ActiveRooms.Dec()
	logging.Info(context.Background(), "Room deleted", zap.String("roomId", string(id)))
}

// Get returns the room by id.
func (m *Manager) Get(id types.RoomIDType) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// Shutdown stops every pending timer and closes every connection.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, timer := range m.pendingDeletions {
		timer.Stop()
		delete(m.pendingDeletions, id)
	}
	for id, r := range m.rooms {
		r.WithLock(func() {
			for _, s := range r.Seats {
				if s.Conn != nil {
					s.Conn.Close()
				}
			}
			for _, sp := range r.Spectators {
				sp.Conn.Close()
			}
		})
		delete(m.rooms, id)
		metrics.ActiveRooms.Dec()
	}
}
