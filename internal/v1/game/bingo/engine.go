// Package bingo implements the authoritative Bingo engine: caller-driven
// draws from a shuffled 1..75 pool, column-ranged card generation with a FREE
// center, and row/column/diagonal/full-house win detection.
package bingo

import (
	"fmt"
	"math/rand"

	"github.com/parlorlive/gamehost/internal/v1/game"
)

const (
	MinSeats   = 2
	MaxSeats   = 8
	CallerSeat = 0
	poolSize   = 75
)

// Winner records a seat that completed at least one pattern, with every
// pattern label it has satisfied so far.
type Winner struct {
	Seat  int      `json:"seat"`
	Types []string `json:"types"`
}

// Engine holds the authoritative game state. It is not safe for concurrent
// use; the dispatcher serializes access per room.
type Engine struct {
	seats   int
	pool    []int
	called  []int
	cards   [][5][5]int
	marked  [][5][5]bool
	over    bool
	winners []Winner
}

// New shuffles the number pool and deals one card per seat. The center cell
// is FREE (0) and pre-marked.
func New(seats int, rng *rand.Rand) (*Engine, error) {
	if seats < MinSeats || seats > MaxSeats {
		return nil, fmt.Errorf("bingo: seats must be %d..%d, got %d", MinSeats, MaxSeats, seats)
	}

	e := &Engine{
		seats:  seats,
		cards:  make([][5][5]int, seats),
		marked: make([][5][5]bool, seats),
	}
	for _, n := range rng.Perm(poolSize) {
		e.pool = append(e.pool, n+1)
	}
	for seat := 0; seat < seats; seat++ {
		e.cards[seat] = generateCard(rng)
		e.marked[seat][2][2] = true
	}
	return e, nil
}

// generateCard draws five distinct numbers per column from that column's
// range: B 1-15, I 16-30, N 31-45, G 46-60, O 61-75.
func generateCard(rng *rand.Rand) [5][5]int {
	var card [5][5]int
	for col := 0; col < 5; col++ {
		low := col*15 + 1
		picks := rng.Perm(15)[:5]
		for row := 0; row < 5; row++ {
			card[row][col] = low + picks[row]
		}
	}
	card[2][2] = 0 // FREE
	return card
}

func (e *Engine) Family() game.Family { return game.FamilyBingo }

func (e *Engine) IsGameOver() bool { return e.over }

// Winner returns the accumulated winners list; empty while nobody has
// completed a pattern.
func (e *Engine) Winner() any { return e.Winners() }

// Winners returns every seat that has completed a pattern, in the order they
// first did, with all pattern labels satisfied so far.
func (e *Engine) Winners() []Winner {
	out := make([]Winner, len(e.winners))
	copy(out, e.winners)
	return out
}

// LastCalled returns the most recently drawn number, 0 before the first call.
func (e *Engine) LastCalled() int {
	if len(e.called) == 0 {
		return 0
	}
	return e.called[len(e.called)-1]
}

// CallNumber draws the next number. Only the caller seat may draw. The draw
// marks every card, then win patterns are rescanned: seats newly completing
// a pattern join the winners list. The game ends when every card is a full
// house or the pool runs dry.
func (e *Engine) CallNumber(seat int) game.Result {
	if e.over {
		return game.Fail("Game over")
	}
	if seat != CallerSeat {
		return game.Fail("Not your turn")
	}
	if len(e.pool) == 0 {
		return game.Fail("No numbers left")
	}

	n := e.pool[0]
	e.pool = e.pool[1:]
	e.called = append(e.called, n)

	for s := 0; s < e.seats; s++ {
		for r := 0; r < 5; r++ {
			for c := 0; c < 5; c++ {
				if e.cards[s][r][c] == n {
					e.marked[s][r][c] = true
				}
			}
		}
	}

	allFull := true
	for s := 0; s < e.seats; s++ {
		types := e.patterns(s)
		if !contains(types, "fullhouse") {
			allFull = false
		}
		if len(types) > 0 {
			e.recordWinner(s, types)
		}
	}
	if allFull || len(e.pool) == 0 {
		e.over = true
	}
	return game.Ok()
}

func (e *Engine) recordWinner(seat int, types []string) {
	for i := range e.winners {
		if e.winners[i].Seat == seat {
			e.winners[i].Types = types
			return
		}
	}
	e.winners = append(e.winners, Winner{Seat: seat, Types: types})
}

// patterns lists every completed pattern label for a seat.
func (e *Engine) patterns(seat int) []string {
	m := &e.marked[seat]
	var types []string

	full := true
	for r := 0; r < 5; r++ {
		rowDone, colDone := true, true
		for c := 0; c < 5; c++ {
			if !m[r][c] {
				rowDone = false
				full = false
			}
			if !m[c][r] {
				colDone = false
			}
		}
		if rowDone && !contains(types, "row") {
			types = append(types, "row")
		}
		if colDone && !contains(types, "column") {
			types = append(types, "column")
		}
	}

	diag, anti := true, true
	for i := 0; i < 5; i++ {
		if !m[i][i] {
			diag = false
		}
		if !m[i][4-i] {
			anti = false
		}
	}
	if diag || anti {
		types = append(types, "diagonal")
	}
	if full {
		types = append(types, "fullhouse")
	}
	return types
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// State returns the family-tagged snapshot broadcast to clients. Bingo cards
// are public, so one payload serves the whole room.
func (e *Engine) State() any {
	return map[string]any{
		"gameType":    string(game.FamilyBingo),
		"called":      append([]int{}, e.called...),
		"lastCalled":  e.LastCalled(),
		"cards":       e.cards,
		"marked":      e.marked,
		"isGameOver":  e.over,
		"winners":     e.Winners(),
		"callerSeat":  CallerSeat,
		"playerCount": e.seats,
	}
}
