package game

import "math/rand"

type Suit int

type Rank int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	r := map[Rank]string{
		Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7", Eight: "8", Nine: "9", Ten: "T", Jack: "J", Queen: "Q", King: "K", Ace: "A",
	}[c.Rank]
	s := map[Suit]string{Spades: "s", Hearts: "h", Diamonds: "d", Clubs: "c"}[c.Suit]
	return r + s
}

// newShoe builds a 52-card shoe shuffled by the session RNG so that a given
// seed always produces the same draw order.
func newShoe(rng *rand.Rand) []Card {
	cards := make([]Card, 0, 52)
	for s := Spades; s <= Clubs; s++ {
		for r := Two; r <= Ace; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards
}

// blackjackValue maps a rank to its hard blackjack value. Aces count as 11
// here and are demoted to 1 by HandTotal as needed.
func blackjackValue(r Rank) int {
	switch {
	case r == Ace:
		return 11
	case r >= Ten:
		return 10
	default:
		return int(r)
	}
}

// HandTotal computes the best blackjack total for a hand, demoting aces from
// 11 to 1 while the hand would bust.
func HandTotal(hand []Card) int {
	total := 0
	aces := 0
	for _, c := range hand {
		if c.Rank == Ace {
			aces++
		}
		total += blackjackValue(c.Rank)
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func cardStrings(hand []Card) []string {
	out := make([]string, 0, len(hand))
	for _, c := range hand {
		out = append(out, c.String())
	}
	return out
}
