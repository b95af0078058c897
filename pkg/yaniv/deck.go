package yaniv

import "math/rand"

// Deck is the face-down draw pile. The top of the deck is the end of the
// slice; Draw pops from there.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a freshly shuffled 54 card deck using the given random
// number generator.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, DeckSize), rng: rng}
	for id := 0; id < DeckSize; id++ {
		d.cards = append(d.cards, Card(id))
	}
	d.Shuffle()
	return d
}

// NewDeckFromCards creates a deck holding exactly the given cards, in
// order. Used when restoring persisted games and when recycling the
// discard pile.
func NewDeckFromCards(cards []Card, rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, len(cards)), rng: rng}
	copy(d.cards, cards)
	return d
}

// Shuffle randomizes the order of the remaining cards.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card. The second return is false when
// the deck is empty.
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return 0, false
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c, true
}

// Size returns the number of cards remaining.
func (d *Deck) Size() int { return len(d.cards) }

// Cards returns a copy of the remaining cards, top last.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
