// Package bigtwo implements the authoritative Big Two ("chordaidi") engine:
// dealing, combo classification and ranking, the table-owner round cycle, and
// per-seat hand privacy via personalized snapshots.
package bigtwo

import (
	"math/rand"
	"sort"

	"github.com/parlorlive/gamehost/internal/v1/game"
	"github.com/parlorlive/gamehost/internal/v1/game/cards"
)

const Seats = 4

// Engine holds the authoritative game state. It is not safe for concurrent
// use; the dispatcher serializes access per room.
type Engine struct {
	hands      [Seats][]int
	current    int
	table      *Combo
	tableOwner *int // nil when the table is open
	passCount  int
	firstPlay  bool
	winner     *int
}

// New deals a shuffled deck round-robin and seats the holder of 3♦ to move
// first.
func New(rng *rand.Rand) *Engine {
	deck := cards.Shuffle(rng)
	e := &Engine{firstPlay: true}
	for seat := 0; seat < Seats; seat++ {
		for i := seat; i < cards.DeckSize; i += Seats {
			e.hands[seat] = append(e.hands[seat], deck[i])
		}
		sort.Ints(e.hands[seat])
	}
	e.current = e.holderOf(cards.ThreeOfDiamonds)
	return e
}

func (e *Engine) holderOf(card int) int {
	for seat, hand := range e.hands {
		for _, id := range hand {
			if id == card {
				return seat
			}
		}
	}
	return 0
}

func (e *Engine) Family() game.Family { return game.FamilyBigTwo }

// Turn returns the seat expected to act.
func (e *Engine) Turn() int { return e.current }

func (e *Engine) IsGameOver() bool { return e.winner != nil }

// Winner returns the winning seat index, nil while the game is running.
func (e *Engine) Winner() any {
	if e.winner == nil {
		return nil
	}
	return *e.winner
}

// Play validates and applies a combo for the given seat.
func (e *Engine) Play(seat int, cardIDs []int) game.Result {
	if e.winner != nil {
		return game.Fail("Game over")
	}
	if seat != e.current {
		return game.Fail("Not your turn")
	}
	for _, id := range cardIDs {
		if !e.inHand(seat, id) {
			return game.Fail("Card not in hand")
		}
	}
	combo := Classify(cardIDs)
	if combo == nil {
		return game.Fail("Invalid combination")
	}
	if e.firstPlay && !contains(cardIDs, cards.ThreeOfDiamonds) {
		return game.Fail("First play must include 3♦")
	}
	if e.table != nil && !beats(combo, e.table) {
		return game.Fail("Does not beat the table")
	}

	e.removeFromHand(seat, cardIDs)
	e.table = combo
	e.tableOwner = &seat
	e.passCount = 0
	e.firstPlay = false

	if len(e.hands[seat]) == 0 {
		e.winner = &seat
		return game.Ok()
	}
	e.current = (seat + 1) % Seats
	return game.Ok()
}

// Pass advances the turn without a play. Three consecutive passes against the
// table owner clear the table and return the lead to that owner.
func (e *Engine) Pass(seat int) game.Result {
	if e.winner != nil {
		return game.Fail("Game over")
	}
	if seat != e.current {
		return game.Fail("Not your turn")
	}
	if e.table == nil {
		return game.Fail("Cannot pass on an empty table")
	}
	if e.tableOwner != nil && seat == *e.tableOwner {
		return game.Fail("You own the table — play or wait")
	}

	e.passCount++
	if e.passCount >= Seats-1 {
		e.current = *e.tableOwner
		e.table = nil
		e.tableOwner = nil
		e.passCount = 0
		return game.Ok()
	}
	e.current = (seat + 1) % Seats
	return game.Ok()
}

// HandSize returns the number of cards left in a seat's hand.
func (e *Engine) HandSize(seat int) int {
	if seat < 0 || seat >= Seats {
		return 0
	}
	return len(e.hands[seat])
}

// State returns the public snapshot: hand counts only, no hand contents.
func (e *Engine) State() any { return e.SnapshotFor(-1) }

// SnapshotFor builds the personalized payload for one recipient seat. Only
// that seat's own cards appear in myHand; pass a negative seat for the
// spectator view. Hands never leave the engine any other way.
func (e *Engine) SnapshotFor(seat int) map[string]any {
	counts := make([]int, Seats)
	for s, hand := range e.hands {
		counts[s] = len(hand)
	}

	myHand := []int{}
	if seat >= 0 && seat < Seats {
		myHand = append(myHand, e.hands[seat]...)
	}

	var tableOwner any
	if e.tableOwner != nil {
		tableOwner = *e.tableOwner
	}

	return map[string]any{
		"gameType":    string(game.FamilyBigTwo),
		"myHand":      myHand,
		"handCounts":  counts,
		"currentSeat": e.current,
		"tableCombo":  e.table,
		"tableOwner":  tableOwner,
		"passCount":   e.passCount,
		"isGameOver":  e.IsGameOver(),
		"winner":      e.Winner(),
	}
}

func (e *Engine) inHand(seat, id int) bool {
	return contains(e.hands[seat], id)
}

func (e *Engine) removeFromHand(seat int, ids []int) {
	kept := e.hands[seat][:0]
	for _, id := range e.hands[seat] {
		if !contains(ids, id) {
			kept = append(kept, id)
		}
	}
	e.hands[seat] = kept
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
