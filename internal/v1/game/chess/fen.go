package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// InitialFEN is the standard chess starting position.
const InitialFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var castlingLetters = [4]byte{'K', 'Q', 'k', 'q'}

// FEN serializes the position with all six fields.
func (e *Engine) FEN() string {
	var sb strings.Builder

	for r := 0; r < 8; r++ {
		empty := 0
		for c := 0; c < 8; c++ {
			p := e.board[r][c]
			if p == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(p)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r < 7 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	sb.WriteByte(e.turn)

	sb.WriteByte(' ')
	anyRight := false
	for i, letter := range castlingLetters {
		if e.castling[i] {
			sb.WriteByte(letter)
			anyRight = true
		}
	}
	if !anyRight {
		sb.WriteByte('-')
	}

	sb.WriteByte(' ')
	if e.ep == NoSquare {
		sb.WriteByte('-')
	} else {
		sb.WriteString(squareName(e.ep))
	}

	fmt.Fprintf(&sb, " %d %d", e.halfmove, e.fullmove)
	return sb.String()
}

// FromFEN parses a full six-field FEN string into a fresh engine.
func FromFEN(fen string) (*Engine, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return nil, fmt.Errorf("fen: expected 6 fields, got %d", len(fields))
	}

	e := &Engine{ep: NoSquare}

	rows := strings.Split(fields[0], "/")
	if len(rows) != 8 {
		return nil, fmt.Errorf("fen: expected 8 board rows, got %d", len(rows))
	}
	for r, row := range rows {
		c := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			if ch >= '1' && ch <= '8' {
				c += int(ch - '0')
				continue
			}
			if c >= 8 || !strings.ContainsRune("KQRBNPkqrbnp", rune(ch)) {
				return nil, fmt.Errorf("fen: bad board row %q", row)
			}
			e.board[r][c] = ch
			c++
		}
		if c != 8 {
			return nil, fmt.Errorf("fen: bad board row %q", row)
		}
	}

	switch fields[1] {
	case "w", "b":
		e.turn = fields[1][0]
	default:
		return nil, fmt.Errorf("fen: bad side to move %q", fields[1])
	}

	if fields[2] != "-" {
		for i := 0; i < len(fields[2]); i++ {
			matched := false
			for j, letter := range castlingLetters {
				if fields[2][i] == letter {
					e.castling[j] = true
					matched = true
				}
			}
			if !matched {
				return nil, fmt.Errorf("fen: bad castling field %q", fields[2])
			}
		}
	}

	if fields[3] != "-" {
		sq, err := parseSquare(fields[3])
		if err != nil {
			return nil, err
		}
		e.ep = sq
	}

	var err error
	if e.halfmove, err = strconv.Atoi(fields[4]); err != nil {
		return nil, fmt.Errorf("fen: bad halfmove clock %q", fields[4])
	}
	if e.fullmove, err = strconv.Atoi(fields[5]); err != nil {
		return nil, fmt.Errorf("fen: bad fullmove number %q", fields[5])
	}

	return e, nil
}

// squareName renders a square in algebraic notation; row 0 is rank 8.
func squareName(s Square) string {
	return string([]byte{byte('a' + s.Col), byte('8' - s.Row)})
}

func parseSquare(name string) (Square, error) {
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return NoSquare, fmt.Errorf("fen: bad square %q", name)
	}
	return Square{Row: int('8' - name[1]), Col: int(name[0] - 'a')}, nil
}
