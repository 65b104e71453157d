package xiangqi

import (
	"fmt"
	"strconv"
	"strings"
)

// InitialFEN is the standard xiangqi starting position: board plus side to
// move, no further fields.
const InitialFEN = "rnbakabnr/9/1c5c1/p1p1p1p1p/9/9/P1P1P1P1P/1C5C1/9/RNBAKABNR w"

// FEN serializes the position as board field plus side-to-move letter.
func (e *Engine) FEN() string {
	var sb strings.Builder

	for r := 0; r < 10; r++ {
		empty := 0
		for c := 0; c < 9; c++ {
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
		if r < 9 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	sb.WriteByte(e.turn)
	return sb.String()
}

// FromFEN parses a board-plus-turn FEN string into a fresh engine.
func FromFEN(fen string) (*Engine, error) {
	fields := strings.Fields(fen)
	if len(fields) != 2 {
		return nil, fmt.Errorf("fen: expected 2 fields, got %d", len(fields))
	}

	e := &Engine{}

	rows := strings.Split(fields[0], "/")
	if len(rows) != 10 {
		return nil, fmt.Errorf("fen: expected 10 board rows, got %d", len(rows))
	}
	for r, row := range rows {
		c := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			if ch >= '1' && ch <= '9' {
				c += int(ch - '0')
				continue
			}
			if c >= 9 || !strings.ContainsRune("KABNRCPkabnrcp", rune(ch)) {
				return nil, fmt.Errorf("fen: bad board row %q", row)
			}
			e.board[r][c] = ch
			c++
		}
		if c != 9 {
			return nil, fmt.Errorf("fen: bad board row %q", row)
		}
	}

	switch fields[1] {
	case "w", "b":
		e.turn = fields[1][0]
	default:
		return nil, fmt.Errorf("fen: bad side to move %q", fields[1])
	}

	return e, nil
}
