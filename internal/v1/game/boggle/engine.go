// Package boggle implements the authoritative Boggle engine: a rolled 4x4
// board, dictionary plus board-path validation of submissions, a fixed round
// length, and unique-word scoring with duplicate cancellation.
package boggle

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"k8s.io/utils/clock"

	"github.com/parlorlive/gamehost/internal/v1/game"
)

const (
	RoundLength   = 180 * time.Second
	minWordLength = 3
)

// ScoredWord is one entry of a seat's final word list.
type ScoredWord struct {
	Word   string `json:"word"`
	Unique bool   `json:"unique"`
	Points int    `json:"points"`
}

type roundResults struct {
	scores []int
	words  [][]ScoredWord
}

// Engine holds the authoritative round state. It is not safe for concurrent
// use; the dispatcher serializes access per room. The clock is injected so
// tests can step time.
type Engine struct {
	board [16]byte
	seats int
	clk   clock.PassiveClock
	start time.Time
	subs  []map[string]bool
	over  bool
	final *roundResults
}

// New rolls a fresh board and starts the round clock.
func New(seats int, rng *rand.Rand, clk clock.PassiveClock) *Engine {
	e := &Engine{
		board: rollBoard(rng),
		seats: seats,
		clk:   clk,
		start: clk.Now(),
		subs:  make([]map[string]bool, seats),
	}
	for i := range e.subs {
		e.subs[i] = make(map[string]bool)
	}
	return e
}

// NewWithBoard builds an engine over a fixed 16-letter board, row-major.
func NewWithBoard(letters string, seats int, clk clock.PassiveClock) (*Engine, error) {
	letters = strings.ToUpper(letters)
	if len(letters) != 16 {
		return nil, fmt.Errorf("boggle: board needs 16 letters, got %d", len(letters))
	}
	e := New(seats, rand.New(rand.NewSource(0)), clk)
	copy(e.board[:], letters)
	return e, nil
}

func (e *Engine) Family() game.Family { return game.FamilyBoggle }

// Board returns the 16 face letters row-major; Q stands for QU.
func (e *Engine) Board() []string {
	out := make([]string, 16)
	for i, b := range e.board {
		out[i] = string(b)
	}
	return out
}

// TimeLeft returns the whole seconds remaining in the round, 0 once the round
// has ended either way.
func (e *Engine) TimeLeft() int {
	if e.over {
		return 0
	}
	left := RoundLength - e.clk.Now().Sub(e.start)
	if left < 0 {
		return 0
	}
	return int(left / time.Second)
}

func (e *Engine) IsGameOver() bool { return e.over }

// Winner returns the seat with the highest final score, ties resolved to the
// lowest seat index; nil while the round is running.
func (e *Engine) Winner() any {
	if e.final == nil {
		return nil
	}
	best := 0
	for seat, score := range e.final.scores {
		if score > e.final.scores[best] {
			best = seat
		}
	}
	return best
}

// SubmitWord validates and records one word for a seat.
func (e *Engine) SubmitWord(seat int, word string) game.Result {
	if e.over {
		return game.Fail("Round is over")
	}
	if e.TimeLeft() <= 0 {
		return game.Fail("Time is up")
	}
	if seat < 0 || seat >= e.seats {
		return game.Fail("Invalid seat")
	}

	w := strings.ToUpper(strings.TrimSpace(word))
	if len(w) < minWordLength {
		return game.Fail("Words must be at least 3 letters")
	}
	for i := 0; i < len(w); i++ {
		if w[i] < 'A' || w[i] > 'Z' {
			return game.Fail("Letters only")
		}
	}
	if e.subs[seat][w] {
		return game.Fail("Already submitted")
	}
	if !InDictionary(w) {
		return game.Fail("Not a valid word")
	}
	if !e.canForm(w) {
		return game.Fail("Cannot be formed on the board")
	}

	e.subs[seat][w] = true
	return game.Ok()
}

// SubmissionCounts returns the per-seat accepted word counts without
// revealing the words.
func (e *Engine) SubmissionCounts() []int {
	counts := make([]int, e.seats)
	for seat, words := range e.subs {
		counts[seat] = len(words)
	}
	return counts
}

// EndRound closes the round and scores it. Idempotent: repeat calls return
// the same results without rescoring.
func (e *Engine) EndRound() ([]int, [][]ScoredWord) {
	if e.final == nil {
		e.over = true
		e.final = e.score()
	}
	return e.final.scores, e.final.words
}

// score inverts the submissions into word→submitter-count; a word scores only
// for its sole submitter, duplicates cancel for everyone.
func (e *Engine) score() *roundResults {
	submitters := make(map[string]int)
	for _, words := range e.subs {
		for w := range words {
			submitters[w]++
		}
	}

	res := &roundResults{
		scores: make([]int, e.seats),
		words:  make([][]ScoredWord, e.seats),
	}
	for seat, words := range e.subs {
		list := make([]ScoredWord, 0, len(words))
		for w := range words {
			sw := ScoredWord{Word: w, Unique: submitters[w] == 1}
			if sw.Unique {
				sw.Points = wordPoints(w)
			}
			res.scores[seat] += sw.Points
			list = append(list, sw)
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Unique != list[j].Unique {
				return list[i].Unique
			}
			return list[i].Word < list[j].Word
		})
		res.words[seat] = list
	}
	return res
}

func wordPoints(w string) int {
	switch n := len(w); {
	case n <= 4:
		return 1
	case n == 5:
		return 2
	case n == 6:
		return 3
	case n == 7:
		return 5
	default:
		return 11
	}
}

// canForm runs a DFS over the grid: start anywhere the face letter prefixes
// the word, then extend through unused adjacent cells. A Q face consumes the
// digraph QU.
func (e *Engine) canForm(word string) bool {
	var dfs func(cell int, rest string, used uint16) bool
	dfs = func(cell int, rest string, used uint16) bool {
		face := e.board[cell]
		if face == 'Q' {
			if !strings.HasPrefix(rest, "QU") {
				return false
			}
			rest = rest[2:]
		} else {
			if rest[0] != face {
				return false
			}
			rest = rest[1:]
		}
		if rest == "" {
			return true
		}
		used |= 1 << cell
		for _, n := range neighbors[cell] {
			if used&(1<<n) == 0 && dfs(n, rest, used) {
				return true
			}
		}
		return false
	}

	for cell := 0; cell < 16; cell++ {
		if dfs(cell, word, 0) {
			return true
		}
	}
	return false
}

// State returns the family-tagged snapshot broadcast to clients. Scores and
// word lists appear only after the round ends.
func (e *Engine) State() any {
	state := map[string]any{
		"gameType":         string(game.FamilyBoggle),
		"board":            e.Board(),
		"timeLeft":         e.TimeLeft(),
		"submissionCounts": e.SubmissionCounts(),
		"isGameOver":       e.over,
		"playerCount":      e.seats,
	}
	if e.final != nil {
		state["scores"] = e.final.scores
		state["words"] = e.final.words
	}
	return state
}
