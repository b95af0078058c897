package yaniv

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// PlayerState is the persisted form of a seat.
type PlayerState struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Hand  []int  `json:"hand"`
	IsAI  bool   `json:"is_ai"`
}

// GameState is the persisted form of a game. Cards are stored by id. The
// deck is deliberately absent; restore rebuilds it from whatever the hands
// and pile do not account for.
type GameState struct {
	GameID             string        `json:"game_id"`
	DiscardPile        []int         `json:"discard_pile"`
	Players            []PlayerState `json:"players"`
	CurrentPlayerIndex int           `json:"current_player_index"`
	PreviousScores     []int         `json:"previous_scores"`
	LastDiscardSize    int           `json:"last_discard_size"`
	SlamdownPlayer     string        `json:"slamdown_player,omitempty"`
	SlamdownCard       *int          `json:"slamdown_card,omitempty"`
}

// State captures the game for persistence.
func (g *Game) State() *GameState {
	st := &GameState{
		GameID:             g.id,
		DiscardPile:        CardIDs(g.discardPile),
		Players:            make([]PlayerState, 0, len(g.players)),
		CurrentPlayerIndex: g.currentPlayerIndex,
		PreviousScores:     append([]int(nil), g.previousScores...),
		LastDiscardSize:    len(g.lastDiscard),
		SlamdownPlayer:     g.slamdownPlayer,
	}
	for _, p := range g.players {
		st.Players = append(st.Players, PlayerState{
			Name:  p.Name,
			Score: p.Score,
			Hand:  CardIDs(p.Hand),
			IsAI:  p.IsAI(),
		})
	}
	if g.slamdownCard != nil {
		id := int(*g.slamdownCard)
		st.SlamdownCard = &id
	}
	return st
}

// RestoreGame rebuilds a game from persisted state. newAgent supplies the
// agent for each AI seat. The deck starts from the canonical 54 cards
// minus every id found in a hand or on the pile, reshuffled; the last
// discard is the persisted-size suffix of the pile.
func RestoreGame(st *GameState, rng *rand.Rand, newAgent func(name string) Agent) *Game {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g := &Game{id: st.GameID, rng: rng}
	if g.id == "" {
		g.id = uuid.NewString()
	}
	used := make(map[Card]bool, DeckSize)
	for _, ps := range st.Players {
		var p *Player
		if ps.IsAI {
			p = NewAIPlayer(ps.Name, newAgent(ps.Name))
		} else {
			p = NewPlayer(ps.Name)
		}
		p.Score = ps.Score
		p.Hand = CardsFromIDs(ps.Hand)
		for _, c := range p.Hand {
			used[c] = true
		}
		g.players = append(g.players, p)
	}
	g.discardPile = CardsFromIDs(st.DiscardPile)
	for _, c := range g.discardPile {
		used[c] = true
	}
	size := st.LastDiscardSize
	if size < 0 {
		size = 0
	}
	if size > len(g.discardPile) {
		size = len(g.discardPile)
	}
	g.lastDiscard = append([]Card(nil), g.discardPile[len(g.discardPile)-size:]...)

	remaining := make([]Card, 0, DeckSize)
	for id := 0; id < DeckSize; id++ {
		if !used[Card(id)] {
			remaining = append(remaining, Card(id))
		}
	}
	g.deck = NewDeckFromCards(remaining, rng)
	g.deck.Shuffle()

	g.currentPlayerIndex = st.CurrentPlayerIndex
	if n := len(g.players); n > 0 && (g.currentPlayerIndex < 0 || g.currentPlayerIndex >= n) {
		g.currentPlayerIndex = ((g.currentPlayerIndex % n) + n) % n
	}
	g.previousScores = append([]int(nil), st.PreviousScores...)
	if len(g.previousScores) != len(g.players) {
		g.previousScores = make([]int, len(g.players))
		for i, p := range g.players {
			g.previousScores[i] = p.Score
		}
	}
	g.slamdownPlayer = st.SlamdownPlayer
	if st.SlamdownCard != nil {
		c := Card(*st.SlamdownCard)
		g.slamdownCard = &c
	}
	g.notifyRound()
	return g
}
