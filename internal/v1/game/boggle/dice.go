package boggle

import "math/rand"

// The 16 standard Boggle dice. The face letter Q stands for the digraph QU.
var dice = [16]string{
	"AAEEGN", "ABBJOO", "ACHOPS", "AFFKPS",
	"AOOTTW", "CIMOTU", "DEILRX", "DELRVY",
	"DISTTY", "EEGHNW", "EEINSU", "EHRTVW",
	"EIOSST", "ELRTTY", "HIMNQU", "HLNNRZ",
}

// rollBoard shuffles the dice across the 4x4 grid and picks one face per die.
func rollBoard(rng *rand.Rand) [16]byte {
	order := rng.Perm(16)
	var board [16]byte
	for cell, die := range order {
		faces := dice[die]
		board[cell] = faces[rng.Intn(len(faces))]
	}
	return board
}

// neighbors precomputes face adjacency (including diagonals) for every cell.
var neighbors = buildNeighbors()

func buildNeighbors() [16][]int {
	var out [16][]int
	for cell := 0; cell < 16; cell++ {
		r, c := cell/4, cell%4
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				nr, nc := r+dr, c+dc
				if (dr == 0 && dc == 0) || nr < 0 || nr > 3 || nc < 0 || nc > 3 {
					continue
				}
				out[cell] = append(out[cell], nr*4+nc)
			}
		}
	}
	return out
}
