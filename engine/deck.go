package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// DeckSize is the number of cards in a full deck: 52 regular cards + 2 Jokers.
const DeckSize = 54

// ErrNotEnoughCards is returned by Draw when more cards are requested than remain.
var ErrNotEnoughCards = errors.New("not enough cards in deck")

// Deck is an ordered pile of cards. The front of the slice is the top of the deck.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck builds a fresh, unshuffled 54-card deck.
// A nil rng falls back to a randomly seeded source.
func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	d := &Deck{cards: make([]Card, 0, DeckSize), rng: rng}
	for _, suit := range Suits {
		for rank := RankTwo; rank <= RankAce; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	d.cards = append(d.cards, NewJoker(1), NewJoker(2))
	return d
}

// NewDeckFrom builds a deck holding exactly the given cards, top first.
// Used to stage deterministic games.
func NewDeckFrom(rng *rand.Rand, cards []Card) *Deck {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	return &Deck{cards: append([]Card(nil), cards...), rng: rng}
}

// Len returns the number of cards remaining.
func (d *Deck) Len() int { return len(d.cards) }

// Cards returns a copy of the remaining cards, top first.
func (d *Deck) Cards() []Card { return append([]Card(nil), d.cards...) }

// Shuffle applies a uniform Fisher-Yates permutation.
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the first n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("draw %d: negative count", n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("draw %d of %d: %w", n, len(d.cards), ErrNotEnoughCards)
	}
	out := append([]Card(nil), d.cards[:n]...)
	d.cards = d.cards[n:]
	return out, nil
}

// DrawOne removes and returns the top card, if any.
func (d *Deck) DrawOne() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

// DrawNonSpecial removes and returns the first card that is neither an Ace nor a Joker.
func (d *Deck) DrawNonSpecial() (Card, bool) {
	return d.takeFirst(func(c Card) bool { return !c.IsWild() })
}

// TakeWild removes every Ace and Joker from the deck and returns them.
func (d *Deck) TakeWild() []Card {
	var wild []Card
	kept := d.cards[:0]
	for _, c := range d.cards {
		if c.IsWild() {
			wild = append(wild, c)
			continue
		}
		kept = append(kept, c)
	}
	d.cards = kept
	return wild
}

// Add puts cards back into the deck and reshuffles it.
func (d *Deck) Add(cards ...Card) {
	d.cards = append(d.cards, cards...)
	d.Shuffle()
}

// SwapFirst exchanges give for the first deck card matching pred, leaving
// give at that card's position. It reports false if no card matches.
func (d *Deck) SwapFirst(give Card, pred func(Card) bool) (Card, bool) {
	for i, c := range d.cards {
		if pred(c) {
			d.cards[i] = give
			return c, true
		}
	}
	return Card{}, false
}

// takeFirst removes the first card matching pred.
func (d *Deck) takeFirst(pred func(Card) bool) (Card, bool) {
	for i, c := range d.cards {
		if pred(c) {
			d.cards = append(d.cards[:i], d.cards[i+1:]...)
			return c, true
		}
	}
	return Card{}, false
}

// intN returns a random number in [0, n) from the deck's source.
func (d *Deck) intN(n int) int { return d.rng.IntN(n) }
