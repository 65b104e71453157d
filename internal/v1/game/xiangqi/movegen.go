package xiangqi

var orthoDirs = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// horseSteps pairs each L-shaped jump with the orthogonal leg square that must
// be empty for the jump to be available.
var horseSteps = [8]struct{ jump, leg [2]int }{
	{[2]int{-2, -1}, [2]int{-1, 0}},
	{[2]int{-2, 1}, [2]int{-1, 0}},
	{[2]int{2, -1}, [2]int{1, 0}},
	{[2]int{2, 1}, [2]int{1, 0}},
	{[2]int{-1, -2}, [2]int{0, -1}},
	{[2]int{1, -2}, [2]int{0, -1}},
	{[2]int{-1, 2}, [2]int{0, 1}},
	{[2]int{1, 2}, [2]int{0, 1}},
}

var elephantSteps = [4]struct{ jump, mid [2]int }{
	{[2]int{-2, -2}, [2]int{-1, -1}},
	{[2]int{-2, 2}, [2]int{-1, 1}},
	{[2]int{2, -2}, [2]int{1, -1}},
	{[2]int{2, 2}, [2]int{1, 1}},
}

var advisorSteps = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

// pseudoMoves generates every pseudo-legal destination for the piece on from.
// Leaving the own general in check is filtered by the caller.
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

	switch piece {
	case 'R', 'r':
		for _, d := range orthoDirs {
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

	case 'C', 'c':
		// Slide over empty squares; a capture jumps exactly one screen.
		for _, d := range orthoDirs {
			to := Square{Row: from.Row + d[0], Col: from.Col + d[1]}
			screened := false
			for to.onBoard() {
				occupant := e.board[to.Row][to.Col]
				if occupant == 0 {
					if !screened {
						out = append(out, to)
					}
				} else if !screened {
					screened = true
				} else {
					if colorOf(occupant) != color {
						out = append(out, to)
					}
					break
				}
				to = Square{Row: to.Row + d[0], Col: to.Col + d[1]}
			}
		}

	case 'N', 'n':
		for _, s := range horseSteps {
			leg := Square{Row: from.Row + s.leg[0], Col: from.Col + s.leg[1]}
			if leg.onBoard() && e.board[leg.Row][leg.Col] == 0 {
				push(Square{Row: from.Row + s.jump[0], Col: from.Col + s.jump[1]})
			}
		}

	case 'B', 'b':
		for _, s := range elephantSteps {
			mid := Square{Row: from.Row + s.mid[0], Col: from.Col + s.mid[1]}
			to := Square{Row: from.Row + s.jump[0], Col: from.Col + s.jump[1]}
			if !to.onBoard() || e.board[mid.Row][mid.Col] != 0 {
				continue
			}
			// Elephants never cross the river.
			if color == 'w' && to.Row < 5 {
				continue
			}
			if color == 'b' && to.Row > 4 {
				continue
			}
			push(to)
		}

	case 'A', 'a':
		for _, d := range advisorSteps {
			to := Square{Row: from.Row + d[0], Col: from.Col + d[1]}
			if to.inPalace(color) {
				push(to)
			}
		}

	case 'K', 'k':
		for _, d := range orthoDirs {
			to := Square{Row: from.Row + d[0], Col: from.Col + d[1]}
			if to.inPalace(color) {
				push(to)
			}
		}

	case 'P', 'p':
		dir := -1
		if color == 'b' {
			dir = 1
		}
		push(Square{Row: from.Row + dir, Col: from.Col})
		if from.crossedRiver(color) {
			push(Square{Row: from.Row, Col: from.Col - 1})
			push(Square{Row: from.Row, Col: from.Col + 1})
		}
	}
	return out
}

// attacked reports whether sq is attacked by any piece of the given color.
// It is only ever asked about a general's square, so advisors and elephants
// (which can never reach an enemy palace) are not considered, and the enemy
// general attacks along an open file per the flying generals rule.
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

	// Pawns attack one square forward, plus sideways once across the river.
	pawnRow := sq.Row + 1
	if by == 'b' {
		pawnRow = sq.Row - 1
	}
	if pawnRow >= 0 && pawnRow < 10 && e.board[pawnRow][sq.Col] == pick('p') {
		return true
	}
	for _, dc := range [2]int{-1, 1} {
		s := Square{Row: sq.Row, Col: sq.Col + dc}
		if s.onBoard() && e.board[s.Row][s.Col] == pick('p') && s.crossedRiver(by) {
			return true
		}
	}

	for _, s := range horseSteps {
		h := Square{Row: sq.Row + s.jump[0], Col: sq.Col + s.jump[1]}
		if !h.onBoard() || e.board[h.Row][h.Col] != pick('n') {
			continue
		}
		// The leg sits one orthogonal step from the horse toward the target.
		leg := Square{Row: h.Row - s.jump[0]/2, Col: h.Col - s.jump[1]/2}
		if e.board[leg.Row][leg.Col] == 0 {
			return true
		}
	}

	for _, d := range orthoDirs {
		s := Square{Row: sq.Row + d[0], Col: sq.Col + d[1]}
		screens := 0
		for s.onBoard() {
			occupant := e.board[s.Row][s.Col]
			if occupant != 0 {
				if screens == 0 && (occupant == pick('r') || occupant == pick('k')) {
					return true
				}
				if screens == 1 && occupant == pick('c') {
					return true
				}
				screens++
				if screens > 1 {
					break
				}
			}
			s = Square{Row: s.Row + d[0], Col: s.Col + d[1]}
		}
	}
	return false
}
