// Package room implements the room registry: seat allocation by color set,
// reconnection by display name, spectator overflow, and deferred deletion
// with a grace window.
package room

import (
	"sync"
	"time"

	"github.com/parlorlive/gamehost/internal/v1/game"
	"github.com/parlorlive/gamehost/internal/v1/types"
)

const (
	// GraceWindow is how long an empty room survives before deletion, so a
	// page navigation or transient network loss can reclaim it.
	GraceWindow = 60 * time.Second

	// MaxNameLength bounds a trimmed display name.
	MaxNameLength = 30
)

// Seat is a stable position in a room. The connection handle is nil while
// its player is disconnected; the seat itself persists for reclaiming.
type Seat struct {
	Name  string
	Color string
	Conn  types.Conn
}

// Spectator is a connection beyond the family's seat count.
type Spectator struct {
	Name string
	Conn types.Conn
}

// Room holds one game's seats, spectators, and running engine. All fields
// are guarded by the room's mutex: every command handler and timer callback
// touching a room runs inside WithLock, which serializes them per room.
type Room struct {
	ID     types.RoomIDType
	Family game.Family

	mu         sync.Mutex
	Seats      []*Seat
	Spectators []*Spectator
	Engine     game.Engine
}

// WithLock runs fn while holding the room's mutex. This is the room's
// serialization domain: engine calls, seat mutations, and broadcasts all
// happen inside it.
func (r *Room) WithLock(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// The accessors below assume the caller holds the room lock (directly or via
// WithLock / a Manager operation).

// SeatByName finds the seat joined under the given name.
func (r *Room) SeatByName(name string) (int, *Seat) {
	for i, s := range r.Seats {
		if s.Name == name {
			return i, s
		}
	}
	return -1, nil
}

// SeatByConnID finds the seat bound to the given connection.
func (r *Room) SeatByConnID(id string) (int, *Seat) {
	for i, s := range r.Seats {
		if s.Conn != nil && s.Conn.ID() == id {
			return i, s
		}
	}
	return -1, nil
}

// SeatByColor finds the seat carrying the given color label.
func (r *Room) SeatByColor(color string) (int, *Seat) {
	for i, s := range r.Seats {
		if s.Color == color {
			return i, s
		}
	}
	return -1, nil
}

// LiveSeats counts seats with a bound connection.
func (r *Room) LiveSeats() int {
	n := 0
	for _, s := range r.Seats {
		if s.Conn != nil {
			n++
		}
	}
	return n
}

// Players returns the public seat list for room_update payloads.
func (r *Room) Players() []types.PlayerInfo {
	players := make([]types.PlayerInfo, len(r.Seats))
	for i, s := range r.Seats {
		players[i] = types.PlayerInfo{Name: s.Name, Color: s.Color, Connected: s.Conn != nil}
	}
	return players
}

// SpectatorNames returns the names of everyone watching.
func (r *Room) SpectatorNames() []string {
	names := make([]string, len(r.Spectators))
	for i, sp := range r.Spectators {
		names[i] = sp.Name
	}
	return names
}

// Broadcast sends an event to every connected seat and spectator. Sends are
// non-blocking, so holding the room lock here is safe.
func (r *Room) Broadcast(event string, payload any) {
	for _, s := range r.Seats {
		if s.Conn != nil {
			s.Conn.SendEvent(event, payload)
		}
	}
	for _, sp := range r.Spectators {
		sp.Conn.SendEvent(event, payload)
	}
}

// dropSpectator removes a spectator by connection id.
func (r *Room) dropSpectator(connID string) (string, bool) {
	for i, sp := range r.Spectators {
		if sp.Conn.ID() == connID {
			name := sp.Name
			r.Spectators = append(r.Spectators[:i], r.Spectators[i+1:]...)
			return name, true
		}
	}
	return "", false
}
