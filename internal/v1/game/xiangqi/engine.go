// Package xiangqi implements the authoritative Chinese chess engine: palace
// and river confinement, horse-leg blocking, cannon screens, and the flying
// generals rule. Red moves first and is rendered uppercase.
package xiangqi

import (
	"github.com/parlorlive/gamehost/internal/v1/game"
)

// Square addresses a board cell. Row 0 is Black's back rank, row 9 Red's.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s Square) onBoard() bool {
	return s.Row >= 0 && s.Row < 10 && s.Col >= 0 && s.Col < 9
}

// inPalace reports whether s lies inside the 3x3 palace of the given color.
func (s Square) inPalace(color byte) bool {
	if s.Col < 3 || s.Col > 5 {
		return false
	}
	if color == 'w' {
		return s.Row >= 7 && s.Row <= 9
	}
	return s.Row >= 0 && s.Row <= 2
}

// crossedRiver reports whether a pawn of the given color has crossed into the
// opponent's half.
func (s Square) crossedRiver(color byte) bool {
	if color == 'w' {
		return s.Row <= 4
	}
	return s.Row >= 5
}

type snapshot struct {
	board [10][9]byte
	turn  byte
}

// Engine holds the authoritative game state. It is not safe for concurrent
// use; the dispatcher serializes access per room.
type Engine struct {
	board   [10][9]byte // 0 = empty, uppercase = red
	turn    byte        // 'w' (red) or 'b'
	history []snapshot
}

// New returns an engine set up at the standard initial position.
func New() *Engine {
	e, _ := FromFEN(InitialFEN)
	return e
}

func (e *Engine) Family() game.Family { return game.FamilyXiangqi }

// Turn returns the side to move, 'w' (red) or 'b'.
func (e *Engine) Turn() byte { return e.turn }

// InCheck reports whether the side to move is in check, including the flying
// generals rule.
func (e *Engine) InCheck() bool {
	return e.attacked(e.generalSquare(e.turn), opponent(e.turn))
}

// IsGameOver reports whether the side to move has no legal move. Stalemate is
// a loss in xiangqi, so there is no separate draw case.
func (e *Engine) IsGameOver() bool {
	return !e.hasLegalMove()
}

// Winner returns "red" or "black" once the game is over, nil while running.
// The side to move with no legal move loses, checkmated or stalemated alike.
func (e *Engine) Winner() any {
	if !e.IsGameOver() {
		return nil
	}
	if e.turn == 'w' {
		return "black"
	}
	return "red"
}

// State returns the family-tagged snapshot broadcast to clients.
func (e *Engine) State() any {
	return map[string]any{
		"gameType":   string(game.FamilyXiangqi),
		"fen":        e.FEN(),
		"turn":       string(e.turn),
		"inCheck":    e.InCheck(),
		"isGameOver": e.IsGameOver(),
		"winner":     e.Winner(),
	}
}

// Move validates and applies a move for the side to move.
func (e *Engine) Move(from, to Square) game.Result {
	if e.IsGameOver() {
		return game.Fail("Game over")
	}
	if !from.onBoard() || !to.onBoard() {
		return game.Fail("Illegal move")
	}
	piece := e.board[from.Row][from.Col]
	if piece == 0 {
		return game.Fail("No piece at source")
	}
	if colorOf(piece) != e.turn {
		return game.Fail("Not your piece")
	}

	found := false
	for _, d := range e.pseudoMoves(from) {
		if d == to {
			found = true
			break
		}
	}
	if !found {
		return game.Fail("Illegal move")
	}

	trial := *e
	trial.history = nil
	trial.apply(from, to)
	if trial.attacked(trial.generalSquare(e.turn), opponent(e.turn)) {
		return game.Fail("Move leaves king in check")
	}

	e.history = append(e.history, snapshot{board: e.board, turn: e.turn})
	e.apply(from, to)
	e.turn = opponent(e.turn)
	return game.Ok()
}

// Undo takes back one ply. Returns false when there is nothing to undo.
func (e *Engine) Undo() bool {
	if len(e.history) == 0 {
		return false
	}
	s := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	e.board, e.turn = s.board, s.turn
	return true
}

func (e *Engine) apply(from, to Square) {
	e.board[to.Row][to.Col] = e.board[from.Row][from.Col]
	e.board[from.Row][from.Col] = 0
}

func (e *Engine) generalSquare(color byte) Square {
	general := byte('k')
	if color == 'w' {
		general = 'K'
	}
	for r := 0; r < 10; r++ {
		for c := 0; c < 9; c++ {
			if e.board[r][c] == general {
				return Square{Row: r, Col: c}
			}
		}
	}
	return Square{Row: -1, Col: -1}
}

func (e *Engine) hasLegalMove() bool {
	for r := 0; r < 10; r++ {
		for c := 0; c < 9; c++ {
			from := Square{Row: r, Col: c}
			if colorOf(e.board[r][c]) != e.turn {
				continue
			}
			for _, to := range e.pseudoMoves(from) {
				trial := *e
				trial.history = nil
				trial.apply(from, to)
				if !trial.attacked(trial.generalSquare(e.turn), opponent(e.turn)) {
					return true
				}
			}
		}
	}
	return false
}

// LegalMoves returns every legal destination for the piece on from. Exposed
// for clients that highlight moves; empty when the square is not the mover's.
func (e *Engine) LegalMoves(from Square) []Square {
	if !from.onBoard() || colorOf(e.board[from.Row][from.Col]) != e.turn {
		return nil
	}
	var out []Square
	for _, to := range e.pseudoMoves(from) {
		trial := *e
		trial.history = nil
		trial.apply(from, to)
		if !trial.attacked(trial.generalSquare(e.turn), opponent(e.turn)) {
			out = append(out, to)
		}
	}
	return out
}

func colorOf(p byte) byte {
	switch {
	case p == 0:
		return 0
	case p >= 'A' && p <= 'Z':
		return 'w'
	default:
		return 'b'
	}
}

func opponent(color byte) byte {
	if color == 'w' {
		return 'b'
	}
	return 'w'
}
