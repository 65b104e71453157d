// Package chess implements the authoritative Western chess engine: full FEN,
// castling, en passant, promotion, and checkmate/stalemate detection.
package chess

import (
	"strings"

	"github.com/parlorlive/gamehost/internal/v1/game"
)

// Square addresses a board cell. Row 0 is Black's back rank, row 7 White's.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NoSquare marks the absence of an en-passant target.
var NoSquare = Square{Row: -1, Col: -1}

func (s Square) onBoard() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

type snapshot struct {
	board    [8][8]byte
	turn     byte
	castling [4]bool
	ep       Square
	halfmove int
	fullmove int
}

// Engine holds the authoritative game state. It is not safe for concurrent
// use; the dispatcher serializes access per room.
type Engine struct {
	board    [8][8]byte // 0 = empty, uppercase = white
	turn     byte       // 'w' or 'b'
	castling [4]bool    // K, Q, k, q
	ep       Square     // en-passant target, NoSquare when absent
	halfmove int
	fullmove int
	history  []snapshot
}

// New returns an engine set up at the standard initial position.
func New() *Engine {
	e, _ := FromFEN(InitialFEN)
	return e
}

func (e *Engine) Family() game.Family { return game.FamilyChess }

// Turn returns the side to move, 'w' or 'b'.
func (e *Engine) Turn() byte { return e.turn }

// InCheck reports whether the side to move is in check.
func (e *Engine) InCheck() bool {
	return e.attacked(e.kingSquare(e.turn), opponent(e.turn))
}

// IsGameOver reports whether the side to move has no legal move.
func (e *Engine) IsGameOver() bool {
	return !e.hasLegalMove()
}

// Winner returns "white" or "black" on checkmate, "draw" on stalemate, and
// nil while the game is still running.
func (e *Engine) Winner() any {
	if !e.IsGameOver() {
		return nil
	}
	if e.InCheck() {
		if e.turn == 'w' {
			return "black"
		}
		return "white"
	}
	return "draw"
}

// State returns the family-tagged snapshot broadcast to clients.
func (e *Engine) State() any {
	over := e.IsGameOver()
	return map[string]any{
		"gameType":   string(game.FamilyChess),
		"fen":        e.FEN(),
		"turn":       string(e.turn),
		"inCheck":    e.InCheck(),
		"isGameOver": over,
		"winner":     e.Winner(),
	}
}

// Move validates and applies a move for the side to move. Promotion is the
// piece letter ("q", "r", "b", "n"); empty defaults to queen.
func (e *Engine) Move(from, to Square, promotion string) game.Result {
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

	// Simulate before committing: the mover's king must not be attacked
	// after the move is applied.
	trial := *e
	trial.history = nil
	trial.apply(from, to, promotion)
	if trial.attacked(trial.kingSquare(e.turn), opponent(e.turn)) {
		return game.Fail("Move leaves king in check")
	}

	e.history = append(e.history, snapshot{
		board: e.board, turn: e.turn, castling: e.castling,
		ep: e.ep, halfmove: e.halfmove, fullmove: e.fullmove,
	})
	e.apply(from, to, promotion)
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
	e.board, e.turn, e.castling = s.board, s.turn, s.castling
	e.ep, e.halfmove, e.fullmove = s.ep, s.halfmove, s.fullmove
	return true
}

// apply mutates the position without legality checks. Caller has verified the
// move is pseudo-legal for the side to move.
func (e *Engine) apply(from, to Square, promotion string) {
	piece := e.board[from.Row][from.Col]
	target := e.board[to.Row][to.Col]
	isPawn := piece == 'P' || piece == 'p'

	if target != 0 || isPawn {
		e.halfmove = 0
	} else {
		e.halfmove++
	}

	e.board[to.Row][to.Col] = piece
	e.board[from.Row][from.Col] = 0

	// Castling: king moved two files, bring the rook across.
	if (piece == 'K' || piece == 'k') && from.Col == 4 {
		switch to.Col {
		case 6:
			e.board[to.Row][5] = e.board[to.Row][7]
			e.board[to.Row][7] = 0
		case 2:
			e.board[to.Row][3] = e.board[to.Row][0]
			e.board[to.Row][0] = 0
		}
	}

	// En passant capture removes the pawn beside the destination.
	if isPawn && to == e.ep && from.Col != to.Col && target == 0 {
		e.board[from.Row][to.Col] = 0
	}

	// Double push arms the en-passant target for exactly one ply.
	if isPawn && abs(to.Row-from.Row) == 2 {
		e.ep = Square{Row: (from.Row + to.Row) / 2, Col: from.Col}
	} else {
		e.ep = NoSquare
	}

	// Promotion, defaulting to queen, case matching the mover.
	if piece == 'P' && to.Row == 0 {
		e.board[to.Row][to.Col] = promoPiece(promotion, 'w')
	} else if piece == 'p' && to.Row == 7 {
		e.board[to.Row][to.Col] = promoPiece(promotion, 'b')
	}

	e.updateCastlingRights(piece, from, to)

	if colorOf(piece) == 'b' {
		e.fullmove++
	}
}

// updateCastlingRights clears rights when a king moves or a rook's home
// square is vacated or captured.
func (e *Engine) updateCastlingRights(piece byte, from, to Square) {
	switch piece {
	case 'K':
		e.castling[0], e.castling[1] = false, false
	case 'k':
		e.castling[2], e.castling[3] = false, false
	}

	corners := [4]Square{{7, 7}, {7, 0}, {0, 7}, {0, 0}} // K, Q, k, q rook homes
	for i, c := range corners {
		if from == c || to == c {
			e.castling[i] = false
		}
	}
}

func promoPiece(promotion string, color byte) byte {
	p := byte('q')
	if promotion != "" {
		switch strings.ToLower(promotion)[0] {
		case 'q', 'r', 'b', 'n':
			p = strings.ToLower(promotion)[0]
		}
	}
	if color == 'w' {
		return p - 'a' + 'A'
	}
	return p
}

func (e *Engine) kingSquare(color byte) Square {
	king := byte('k')
	if color == 'w' {
		king = 'K'
	}
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if e.board[r][c] == king {
				return Square{Row: r, Col: c}
			}
		}
	}
	return NoSquare
}

// hasLegalMove reports whether the side to move has at least one legal move.
func (e *Engine) hasLegalMove() bool {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			from := Square{Row: r, Col: c}
			if colorOf(e.board[r][c]) != e.turn {
				continue
			}
			for _, to := range e.pseudoMoves(from) {
				trial := *e
				trial.history = nil
				trial.apply(from, to, "")
				if !trial.attacked(trial.kingSquare(e.turn), opponent(e.turn)) {
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
		trial.apply(from, to, "")
		if !trial.attacked(trial.kingSquare(e.turn), opponent(e.turn)) {
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

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
