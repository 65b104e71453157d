// Package types holds the core domain types shared between the room and
// transport packages, so neither needs to import the other.
package types

// RoomIDType is the short opaque identifier of a room.
type RoomIDType string

// PlayerNameType is the trimmed display name a player joins under. Seats are
// reclaimed by name, not by connection id, because the UI produces a brand
// new connection when it navigates between the lobby and game pages.
type PlayerNameType string

// SpectatorColor is the color label assigned when every seat is taken.
const SpectatorColor = "spectator"

// Conn is the transport handle a seat or spectator holds. Implementations
// must make SendEvent safe to call from any goroutine and non-blocking; slow
// consumers are dropped, never waited on.
type Conn interface {
	ID() string
	SendEvent(event string, payload any)
	Close()
}

// PlayerInfo is the public per-seat entry of a room_update payload.
type PlayerInfo struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	Connected bool   `json:"connected"`
}
