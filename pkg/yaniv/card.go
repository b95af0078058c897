package yaniv

import "fmt"

// DeckSize is the number of cards in a Yaniv deck, two jokers included.
const DeckSize = 54

// HandSize is the number of cards dealt to each player at the start of a hand.
const HandSize = 5

// MaxScore is the elimination threshold; a player whose score exceeds it
// leaves the game.
const MaxScore = 100

// YanivThreshold is the maximum hand value a player may hold and still
// declare Yaniv.
const YanivThreshold = 5

var rankNames = [...]string{"Joker", "A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

var suitNames = [...]string{"Clubs", "Diamonds", "Hearts", "Spades"}

// Card is a single card identified by its deck id in [0, 54). Ids 0 and 1
// are the two jokers; every other id encodes rank and suit as
// (rankIndex-1)*4 + suitIndex + 2, with ranks ordered A..K and suits
// Clubs, Diamonds, Hearts, Spades.
type Card int

// ID returns the card's deck id.
func (c Card) ID() int { return int(c) }

// IsJoker reports whether the card is one of the two jokers.
func (c Card) IsJoker() bool { return c < 2 }

// RankIndex returns the card's rank index: 0 for jokers, 1 for aces up to
// 13 for kings.
func (c Card) RankIndex() int {
	if c.IsJoker() {
		return 0
	}
	return int(c-2)/4 + 1
}

// SuitIndex returns the card's suit index. The two jokers map to indexes 2
// and 3 so that the id encoding stays reversible.
func (c Card) SuitIndex() int {
	if c.IsJoker() {
		return int(c) + 2
	}
	return int(c-2) % 4
}

// Rank returns the card's rank name, "Joker" for jokers.
func (c Card) Rank() string { return rankNames[c.RankIndex()] }

// Suit returns the card's suit name. Jokers have no suit and return "".
func (c Card) Suit() string {
	if c.IsJoker() {
		return ""
	}
	return suitNames[c.SuitIndex()]
}

// Value returns the card's point value: 0 for jokers, face value for
// numeric ranks, 10 for ten and face cards.
func (c Card) Value() int {
	r := c.RankIndex()
	if r > 10 {
		return 10
	}
	return r
}

func (c Card) String() string {
	if c.IsJoker() {
		return "Joker"
	}
	return fmt.Sprintf("%s of %s", c.Rank(), c.Suit())
}

// CardOf returns the card with the given rank and suit names. For jokers
// the suit selects which of the two joker ids is returned ("Hearts" or
// "Spades"). It panics on unknown names; it exists for table construction
// in tests and tools, not for untrusted input.
func CardOf(rank, suit string) Card {
	ri := -1
	for i, name := range rankNames {
		if name == rank {
			ri = i
			break
		}
	}
	si := -1
	for i, name := range suitNames {
		if name == suit {
			si = i
			break
		}
	}
	if ri < 0 || si < 0 {
		panic(fmt.Sprintf("unknown card %q of %q", rank, suit))
	}
	if ri == 0 {
		return Card(si - 2)
	}
	return Card((ri-1)*4 + si + 2)
}

// CardJSON is the wire form of a card. Jokers carry a null suit.
type CardJSON struct {
	ID    int     `json:"id"`
	Rank  string  `json:"rank"`
	Suit  *string `json:"suit"`
	Value int     `json:"value"`
}

// JSON returns the card's wire form.
func (c Card) JSON() CardJSON {
	out := CardJSON{ID: int(c), Rank: c.Rank(), Value: c.Value()}
	if !c.IsJoker() {
		s := c.Suit()
		out.Suit = &s
	}
	return out
}

// CardsJSON converts a slice of cards to wire form. It never returns nil so
// empty piles serialize as [] rather than null.
func CardsJSON(cards []Card) []CardJSON {
	out := make([]CardJSON, len(cards))
	for i, c := range cards {
		out[i] = c.JSON()
	}
	return out
}

// HandValue sums the point values of a hand.
func HandValue(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Value()
	}
	return total
}

// CardIDs extracts the ids of a slice of cards.
func CardIDs(cards []Card) []int {
	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = int(c)
	}
	return ids
}

// CardsFromIDs builds cards from raw ids, as stored in persisted state.
func CardsFromIDs(ids []int) []Card {
	cards := make([]Card, len(ids))
	for i, id := range ids {
		cards[i] = Card(id)
	}
	return cards
}
