// Package cards holds the 52-card deck primitives shared by the card games.
//
// Every card has a stable integer id 0..51 with id = rank*4 + suit. Ranks are
// ordered 3,4,5,6,7,8,9,10,J,Q,K,A,2 (3 lowest, 2 highest) and suits
// Diamonds, Clubs, Hearts, Spades (Diamonds lowest), so the id itself is a
// total order usable as the tie-break key between cards of equal rank.
// Card 0 is 3 of Diamonds.
package cards

import "math/rand"

// DeckSize is the number of cards in a standard deck.
const DeckSize = 52

// ThreeOfDiamonds is the lowest card in the deck and opens every Big Two game.
const ThreeOfDiamonds = 0

var rankNames = [13]string{"3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "2"}
var suitNames = [4]string{"♦", "♣", "♥", "♠"}

// Rank returns the rank index 0..12 of a card id (0 = rank 3, 12 = rank 2).
func Rank(id int) int { return id / 4 }

// Suit returns the suit index 0..3 of a card id (0 = Diamonds, 3 = Spades).
func Suit(id int) int { return id % 4 }

// Valid reports whether id names a card.
func Valid(id int) bool { return id >= 0 && id < DeckSize }

// Name renders a card id for logs and debugging, e.g. "3♦" or "A♠".
func Name(id int) string {
	if !Valid(id) {
		return "?"
	}
	return rankNames[Rank(id)] + suitNames[Suit(id)]
}

// Shuffle returns a freshly shuffled deck of all card ids.
func Shuffle(rng *rand.Rand) []int {
	deck := make([]int, DeckSize)
	for i := range deck {
		deck[i] = i
	}
	rng.Shuffle(DeckSize, func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}
