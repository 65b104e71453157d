package bigtwo

import (
	"sort"

	"github.com/parlorlive/gamehost/internal/v1/game/cards"
)

// ComboType names a playable card combination. Five-card types are ordered:
// straight < flush < fullhouse < quads < straightflush.
type ComboType string

const (
	Single        ComboType = "single"
	Pair          ComboType = "pair"
	Triple        ComboType = "triple"
	Straight      ComboType = "straight"
	Flush         ComboType = "flush"
	FullHouse     ComboType = "fullhouse"
	Quads         ComboType = "quads"
	StraightFlush ComboType = "straightflush"
)

var fiveCardOrder = map[ComboType]int{
	Straight:      0,
	Flush:         1,
	FullHouse:     2,
	Quads:         3,
	StraightFlush: 4,
}

// Combo is a classified play: its type plus the card ids sorted ascending.
type Combo struct {
	Type    ComboType `json:"type"`
	CardIDs []int     `json:"cardIds"`
}

// Key is the combo's tie-break value: the highest card's total id, so a pair
// of equal ranks compares by the higher suit.
func (c *Combo) Key() int {
	return c.CardIDs[len(c.CardIDs)-1]
}

// Classify determines the unique combo type of the given cards, or nil when
// they form no legal combo. Four-card inputs are never legal.
func Classify(ids []int) *Combo {
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !cards.Valid(id) || seen[id] {
			return nil
		}
		seen[id] = true
	}

	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	switch len(sorted) {
	case 1:
		return &Combo{Type: Single, CardIDs: sorted}
	case 2:
		if cards.Rank(sorted[0]) == cards.Rank(sorted[1]) {
			return &Combo{Type: Pair, CardIDs: sorted}
		}
	case 3:
		if cards.Rank(sorted[0]) == cards.Rank(sorted[1]) &&
			cards.Rank(sorted[1]) == cards.Rank(sorted[2]) {
			return &Combo{Type: Triple, CardIDs: sorted}
		}
	case 5:
		if t := classifyFive(sorted); t != "" {
			return &Combo{Type: t, CardIDs: sorted}
		}
	}
	return nil
}

func classifyFive(sorted []int) ComboType {
	flush := true
	for _, id := range sorted[1:] {
		if cards.Suit(id) != cards.Suit(sorted[0]) {
			flush = false
			break
		}
	}

	// Five consecutive ranks in the 3..2 ordering; ids are sorted, so ranks
	// are non-decreasing and a straight means strictly +1 each step (no wrap).
	straight := true
	for i := 1; i < 5; i++ {
		if cards.Rank(sorted[i]) != cards.Rank(sorted[i-1])+1 {
			straight = false
			break
		}
	}

	counts := map[int]int{}
	for _, id := range sorted {
		counts[cards.Rank(id)]++
	}

	switch {
	case straight && flush:
		return StraightFlush
	case hasCount(counts, 4):
		return Quads
	case hasCount(counts, 3) && hasCount(counts, 2):
		return FullHouse
	case flush:
		return Flush
	case straight:
		return Straight
	}
	return ""
}

func hasCount(counts map[int]int, n int) bool {
	for _, c := range counts {
		if c == n {
			return true
		}
	}
	return false
}

// beats reports whether the incoming combo beats the one on the table.
func beats(in, table *Combo) bool {
	switch table.Type {
	case Single, Pair, Triple:
		return in.Type == table.Type && in.Key() > table.Key()
	}

	inOrder, ok := fiveCardOrder[in.Type]
	if !ok {
		return false
	}
	tableOrder := fiveCardOrder[table.Type]
	if inOrder != tableOrder {
		return inOrder > tableOrder
	}
	return in.Key() > table.Key()
}
