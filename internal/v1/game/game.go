// Package game defines the contract every engine exposes to the dispatcher.
//
// The five engines share a small query surface (State, IsGameOver, Winner)
// but keep their mutating verbs family-specific: the command payloads differ
// too fundamentally for a single generic move signature, so the dispatcher
// type-switches on the concrete engine for the verbs.
package game

// Family tags a room and its engine with the game being played. The values
// are part of the wire contract (gameType in client payloads).
type Family string

const (
	FamilyChess   Family = "chess"
	FamilyXiangqi Family = "xiangqi"
	FamilyBigTwo  Family = "chordaidi"
	FamilyBoggle  Family = "boggle"
	FamilyBingo   Family = "bingo"
)

// ColorSets holds the ordered seat color labels per family. Seat 0 is always
// the host (first to act, caller in bingo).
var ColorSets = map[Family][]string{
	FamilyChess:   {"white", "black"},
	FamilyXiangqi: {"red", "black"},
	FamilyBigTwo:  {"south", "west", "north", "east"},
	FamilyBoggle:  {"red", "blue", "green", "purple"},
	FamilyBingo:   {"caller", "p2", "p3", "p4", "p5", "p6", "p7", "p8"},
}

// SeatRange returns the minimum and maximum seat count for a family.
func SeatRange(f Family) (min, max int) {
	switch f {
	case FamilyChess, FamilyXiangqi:
		return 2, 2
	case FamilyBigTwo:
		return 4, 4
	case FamilyBoggle:
		return 2, 4
	case FamilyBingo:
		return 2, 8
	default:
		return 0, 0
	}
}

// Valid reports whether f names a known game family.
func (f Family) Valid() bool {
	_, ok := ColorSets[f]
	return ok
}

// Result is the outcome of a mutating engine verb. Rejections carry the
// player-facing reason; they never mutate engine state.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Ok returns an accepting result.
func Ok() Result { return Result{OK: true} }

// Fail returns a rejecting result with the given player-facing reason.
func Fail(reason string) Result { return Result{OK: false, Reason: reason} }

// Engine is the uniform query surface the dispatcher drives. State must
// return a family-tagged, JSON-serializable snapshot; Winner's concrete type
// is family-specific (color string, seat index, or list of winners).
type Engine interface {
	Family() Family
	State() any
	IsGameOver() bool
	Winner() any
}

// Undoer is implemented by engines that support taking back a ply.
type Undoer interface {
	Undo() bool
}
