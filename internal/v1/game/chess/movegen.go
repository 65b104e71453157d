package chess

var knightOffsets = [8][2]int{
	{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2},
	{1, -2}, {1, 2}, {2, -1}, {2, 1},
}

var kingOffsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1}, {0, -1},
	{0, 1}, {1, -1}, {1, 0}, {1, 1},
}

var rookDirs = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
var bishopDirs = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

// pseudoMoves generates every pseudo-legal destination for the piece on from,
// including castling when its preconditions (rights, clear path, no crossed
// check) hold. Leaving the own king in check is filtered by the caller.
func (e *Engine) pseudoMoves(from Square) []Square {
	piece := e.board[from.Row][from.Col]
	if piece == 0 {
		return nil
	}
	color := colorOf(piece)
	var out []Square

	push := func(to Square) {
		if to.onBoard() && colorOf(e.board[to.Row][to.Col]) != color {
			out = append(out, to)
		}
	}

	slide := func(dirs [4][2]int) {
		for _, d := range dirs {
			to := Square{Row: from.Row + d[0], Col: from.Col + d[1]}
			for to.onBoard() {
				occupant := e.board[to.Row][to.Col]
				if occupant == 0 {
					out = append(out, to)
				} else {
					if colorOf(occupant) != color {
						out = append(out, to)
					}
					break
				}
				to = Square{Row: to.Row + d[0], Col: to.Col + d[1]}
			}
		}
	}

	switch piece {
	case 'P', 'p':
		out = append(out, e.pawnMoves(from, color)...)
	case 'N', 'n':
		for _, o := range knightOffsets {
			push(Square{Row: from.Row + o[0], Col: from.Col + o[1]})
		}
	case 'B', 'b':
		slide(bishopDirs)
	case 'R', 'r':
		slide(rookDirs)
	case 'Q', 'q':
		slide(rookDirs)
		slide(bishopDirs)
	case 'K', 'k':
		for _, o := range kingOffsets {
			push(Square{Row: from.Row + o[0], Col: from.Col + o[1]})
		}
		out = append(out, e.castleMoves(from, color)...)
	}
	return out
}

func (e *Engine) pawnMoves(from Square, color byte) []Square {
	var out []Square
	dir, startRow := -1, 6
	if color == 'b' {
		dir, startRow = 1, 1
	}

	one := Square{Row: from.Row + dir, Col: from.Col}
	if one.onBoard() && e.board[one.Row][one.Col] == 0 {
		out = append(out, one)
		two := Square{Row: from.Row + 2*dir, Col: from.Col}
		if from.Row == startRow && e.board[two.Row][two.Col] == 0 {
			out = append(out, two)
		}
	}

	for _, dc := range [2]int{-1, 1} {
		to := Square{Row: from.Row + dir, Col: from.Col + dc}
		if !to.onBoard() {
			continue
		}
		occupant := e.board[to.Row][to.Col]
		if (occupant != 0 && colorOf(occupant) != color) || to == e.ep {
			out = append(out, to)
		}
	}
	return out
}

// castleMoves generates castling only when the rights bit is set, the path is
// clear, and neither the king's origin, transit, nor destination square is
// attacked.
func (e *Engine) castleMoves(from Square, color byte) []Square {
	row, kingIdx := 7, 0
	if color == 'b' {
		row, kingIdx = 0, 2
	}
	if from.Row != row || from.Col != 4 {
		return nil
	}
	enemy := opponent(color)
	var out []Square

	// King side: f and g empty, e/f/g unattacked.
	if e.castling[kingIdx] &&
		e.board[row][5] == 0 && e.board[row][6] == 0 &&
		!e.attacked(Square{row, 4}, enemy) &&
		!e.attacked(Square{row, 5}, enemy) &&
		!e.attacked(Square{row, 6}, enemy) {
		out = append(out, Square{Row: row, Col: 6})
	}

	// Queen side: b, c and d empty, e/d/c unattacked.
	if e.castling[kingIdx+1] &&
		e.board[row][1] == 0 && e.board[row][2] == 0 && e.board[row][3] == 0 &&
		!e.attacked(Square{row, 4}, enemy) &&
		!e.attacked(Square{row, 3}, enemy) &&
		!e.attacked(Square{row, 2}, enemy) {
		out = append(out, Square{Row: row, Col: 2})
	}
	return out
}

// attacked reports whether sq is attacked by any piece of the given color.
func (e *Engine) attacked(sq Square, by byte) bool {
	if !sq.onBoard() {
		return false
	}

	pick := func(p byte) byte {
		if by == 'w' {
			return p - 'a' + 'A'
		}
		return p
	}

	// Pawn attacks point toward the defender.
	pawnDir := 1
	if by == 'b' {
		pawnDir = -1
	}
	for _, dc := range [2]int{-1, 1} {
		s := Square{Row: sq.Row + pawnDir, Col: sq.Col + dc}
		if s.onBoard() && e.board[s.Row][s.Col] == pick('p') {
			return true
		}
	}

	for _, o := range knightOffsets {
		s := Square{Row: sq.Row + o[0], Col: sq.Col + o[1]}
		if s.onBoard() && e.board[s.Row][s.Col] == pick('n') {
			return true
		}
	}

	for _, o := range kingOffsets {
		s := Square{Row: sq.Row + o[0], Col: sq.Col + o[1]}
		if s.onBoard() && e.board[s.Row][s.Col] == pick('k') {
			return true
		}
	}

	scan := func(dirs [4][2]int, attackers ...byte) bool {
		for _, d := range dirs {
			s := Square{Row: sq.Row + d[0], Col: sq.Col + d[1]}
			for s.onBoard() {
				occupant := e.board[s.Row][s.Col]
				if occupant != 0 {
					for _, a := range attackers {
						if occupant == a {
							return true
						}
					}
					break
				}
				s = Square{Row: s.Row + d[0], Col: s.Col + d[1]}
			}
		}
		return false
	}

	if scan(rookDirs, pick('r'), pick('q')) {
		return true
	}
	return scan(bishopDirs, pick('b'), pick('q'))
}
