package yaniv

// SeatInfo is the public scoreboard row shared with AI observers when a
// hand is dealt.
type SeatInfo struct {
	Name  string
	Score int
}

// TurnRecord describes a completed turn as the other seats see it.
// DrawnCard is set only when the actor drew from the pile; deck draws stay
// hidden from everyone but the drawer.
type TurnRecord struct {
	PlayerName string
	HandCount  int
	Discarded  []Card
	DrawnCard  *Card
}

// TurnView is what an agent sees when asked to act: its own sorted hand,
// its score, the current pile draw options, the public discard pile and
// the deck size.
type TurnView struct {
	Hand        []Card
	Score       int
	DrawOptions []Card
	DiscardPile []Card
	DeckSize    int
}

// DrawDeck selects the face-down deck as the draw source of an Action.
const DrawDeck = -1

// Action is one turn: the cards to discard and where to draw from. Draw is
// DrawDeck or an index into the current draw options.
type Action struct {
	Discard []Card
	Draw    int
}

// Agent plays an AI seat. The game calls ObserveRound when a hand is
// dealt, ObserveTurn after every other seat's turn, and DecideAction or
// ShouldDeclareYaniv when it is the agent's turn.
type Agent interface {
	ObserveRound(seats []SeatInfo)
	ObserveTurn(turn TurnRecord, discardPile, drawOptions []Card)
	DecideAction(view TurnView) Action
	ShouldDeclareYaniv(view TurnView) bool
}

// Player is one seat at the table. Hand order is only normalized by
// StartTurn; everything else preserves insertion order.
type Player struct {
	Name  string
	Score int
	Hand  []Card

	agent Agent
}

// NewPlayer seats a human player.
func NewPlayer(name string) *Player {
	return &Player{Name: name}
}

// NewAIPlayer seats an agent-driven player.
func NewAIPlayer(name string, agent Agent) *Player {
	return &Player{Name: name, agent: agent}
}

// IsAI reports whether the seat is agent driven.
func (p *Player) IsAI() bool { return p.agent != nil }

// Agent returns the seat's agent, nil for humans.
func (p *Player) Agent() Agent { return p.agent }

// HandValue returns the point total of the player's current hand.
func (p *Player) HandValue() int { return HandValue(p.Hand) }

// HasCard reports whether the hand contains the exact card.
func (p *Player) HasCard(c Card) bool {
	for _, h := range p.Hand {
		if h == c {
			return true
		}
	}
	return false
}

// removeCard removes the first occurrence of c from the hand and reports
// whether it was present.
func (p *Player) removeCard(c Card) bool {
	for i, h := range p.Hand {
		if h == c {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}
