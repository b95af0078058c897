package yaniv

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Game is a single Yaniv table. It is not safe for concurrent use; the
// server serializes access through a per-room lock.
type Game struct {
	id                 string
	players            []*Player
	deck               *Deck
	discardPile        []Card
	lastDiscard        []Card
	currentPlayerIndex int
	previousScores     []int
	slamdownPlayer     string
	slamdownCard       *Card
	rng                *rand.Rand
}

// AssafInfo names the players involved when a declaration is assafed.
type AssafInfo struct {
	Assafed   string
	AssafedBy string
}

// RoundOutcome is the result of a Yaniv declaration: who assafed whom, who
// hit a score reset, who was eliminated, and the winner once only one seat
// remains.
type RoundOutcome struct {
	Assaf      *AssafInfo
	Resets     []string
	Eliminated []string
	Winner     string
}

// TurnResult reports what a completed turn did. Drawn is hidden from the
// other seats when it came from the deck.
type TurnResult struct {
	Discarded []Card
	FromDeck  bool
	Drawn     Card
}

// NewGame seats the given players and picks a random starting seat. The
// rng drives every shuffle and deal for the life of the game; tests pass a
// seeded source for deterministic play.
func NewGame(players []*Player, rng *rand.Rand) *Game {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g := &Game{
		id:             uuid.NewString(),
		players:        players,
		rng:            rng,
		previousScores: make([]int, len(players)),
	}
	for i, p := range players {
		g.previousScores[i] = p.Score
	}
	if len(players) > 0 {
		g.currentPlayerIndex = rng.Intn(len(players))
	}
	return g
}

// ID returns the game's identifier.
func (g *Game) ID() string { return g.id }

// Players returns the live seats in table order.
func (g *Game) Players() []*Player { return g.players }

// CurrentPlayerIndex returns the index of the seat to act.
func (g *Game) CurrentPlayerIndex() int { return g.currentPlayerIndex }

// CurrentPlayer returns the seat to act, nil on an empty table.
func (g *Game) CurrentPlayer() *Player {
	if len(g.players) == 0 {
		return nil
	}
	return g.players[g.currentPlayerIndex]
}

// DeckSize returns the number of face-down cards left.
func (g *Game) DeckSize() int {
	if g.deck == nil {
		return 0
	}
	return g.deck.Size()
}

// DiscardPile returns a copy of the discard pile, oldest first.
func (g *Game) DiscardPile() []Card {
	out := make([]Card, len(g.discardPile))
	copy(out, g.discardPile)
	return out
}

// LastDiscard returns a copy of the most recent discard, in played order.
func (g *Game) LastDiscard() []Card {
	out := make([]Card, len(g.lastDiscard))
	copy(out, g.lastDiscard)
	return out
}

// DrawOptions returns the cards the next player may take from the pile.
func (g *Game) DrawOptions() []Card {
	return DrawOptions(g.lastDiscard)
}

// SlamdownPlayer returns the name of the player holding a pending
// slamdown, or "".
func (g *Game) SlamdownPlayer() string { return g.slamdownPlayer }

// SlamdownCard returns a copy of the pending slamdown card, nil when none.
func (g *Game) SlamdownCard() *Card {
	if g.slamdownCard == nil {
		return nil
	}
	c := *g.slamdownCard
	return &c
}

// StartGame deals the first hand. It fails on an empty table.
func (g *Game) StartGame() error {
	if len(g.players) == 0 {
		return fmt.Errorf("cannot start a game with no players")
	}
	g.dealNewHand()
	g.notifyRound()
	return nil
}

// StartTurn normalizes the current player's hand order for stable client
// rendering and returns the player with the pile draw options. Safe to
// call repeatedly.
func (g *Game) StartTurn() (*Player, []Card) {
	p := g.CurrentPlayer()
	if p == nil {
		return nil, nil
	}
	sort.Slice(p.Hand, func(i, j int) bool { return p.Hand[i] < p.Hand[j] })
	return p, g.DrawOptions()
}

// PlayTurn executes one turn for p. Humans supply the action; agent seats
// pass nil and the agent decides. Everything is validated before any state
// changes, so a rejected turn leaves the game untouched.
func (g *Game) PlayTurn(p *Player, action *Action) (*TurnResult, error) {
	if p != g.CurrentPlayer() {
		return nil, ErrNotYourTurn
	}
	if action == nil {
		if p.agent == nil {
			return nil, fmt.Errorf("player %s has no agent to decide a turn", p.Name)
		}
		a := p.agent.DecideAction(g.turnView(p))
		action = &a
	}

	options := g.DrawOptions()
	fromDeck := action.Draw == DrawDeck
	if !fromDeck && (action.Draw < 0 || action.Draw >= len(options)) {
		return nil, fmt.Errorf("%w: index %d out of range of %d pile options", ErrInvalidDraw, action.Draw, len(options))
	}
	if len(action.Discard) == 0 {
		return nil, fmt.Errorf("%w: nothing discarded", ErrInvalidDiscard)
	}
	remaining := append([]Card(nil), p.Hand...)
	for _, c := range action.Discard {
		found := false
		for i, h := range remaining {
			if h == c {
				remaining = append(remaining[:i], remaining[i+1:]...)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrCardNotInHand, c)
		}
	}
	if ok, _ := ValidateDiscard(action.Discard); !ok {
		return nil, ErrInvalidDiscard
	}

	var drawn Card
	if fromDeck {
		if g.deck.Size() == 0 {
			g.recycleDiscardPile()
		}
		var ok bool
		drawn, ok = g.deck.Draw()
		if !ok {
			return nil, fmt.Errorf("%w: deck exhausted", ErrInvalidDraw)
		}
	} else {
		drawn = options[action.Draw]
		for i, c := range g.discardPile {
			if c == drawn {
				g.discardPile = append(g.discardPile[:i], g.discardPile[i+1:]...)
				break
			}
		}
	}
	p.Hand = append(remaining, drawn)

	// A pending slamdown expires as soon as the next discard lands.
	g.slamdownPlayer = ""
	g.slamdownCard = nil
	g.discardPile = append(g.discardPile, action.Discard...)
	g.lastDiscard = append([]Card(nil), action.Discard...)

	if fromDeck {
		g.checkSlamdown(p, action.Discard, drawn)
	}

	result := &TurnResult{
		Discarded: append([]Card(nil), action.Discard...),
		FromDeck:  fromDeck,
		Drawn:     drawn,
	}
	g.notifyTurn(p, result)
	g.currentPlayerIndex = (g.currentPlayerIndex + 1) % len(g.players)
	return result, nil
}

// CanDeclareYaniv reports whether the player's hand value allows a
// declaration.
func (g *Game) CanDeclareYaniv(p *Player) bool {
	return p.HandValue() <= YanivThreshold
}

// DeclareYaniv ends the hand: scores it, applies 50/100 resets, drops
// eliminated seats, then either crowns a winner or deals the next hand.
// Callers wanting the pre-round hands and scores must snapshot them before
// calling.
func (g *Game) DeclareYaniv(declarer *Player) (*RoundOutcome, error) {
	if !g.CanDeclareYaniv(declarer) {
		return nil, ErrCannotYaniv
	}
	g.slamdownPlayer = ""
	g.slamdownCard = nil
	g.previousScores = make([]int, len(g.players))
	for i, p := range g.players {
		g.previousScores[i] = p.Score
	}

	outcome := &RoundOutcome{}
	g.updateScores(declarer, outcome)

	alive := g.players[:0]
	for _, p := range g.players {
		if p.Score > MaxScore {
			outcome.Eliminated = append(outcome.Eliminated, p.Name)
		} else {
			alive = append(alive, p)
		}
	}
	g.players = alive
	if len(g.players) > 0 {
		g.currentPlayerIndex %= len(g.players)
	} else {
		g.currentPlayerIndex = 0
	}
	if len(g.players) == 1 {
		outcome.Winner = g.players[0].Name
	}
	g.dealNewHand()
	g.notifyRound()
	return outcome, nil
}

// PerformSlamdown plays the pending slamdown card for p. The card joins
// both the discard pile and the current last discard, so the next player
// may pick it up.
func (g *Game) PerformSlamdown(p *Player) (Card, error) {
	if g.slamdownPlayer == "" || g.slamdownPlayer != p.Name || g.slamdownCard == nil {
		return 0, ErrSlamdownUnavailable
	}
	card := *g.slamdownCard
	if !p.HasCard(card) {
		return 0, fmt.Errorf("%w: %s", ErrCardNotInHand, card)
	}
	if len(p.Hand) <= 1 {
		return 0, ErrSlamdownLastCard
	}
	p.removeCard(card)
	g.discardPile = append(g.discardPile, card)
	g.lastDiscard = append(g.lastDiscard, card)
	g.slamdownPlayer = ""
	g.slamdownCard = nil
	return card, nil
}

// dealNewHand resets the table for a fresh round: new shuffled deck, five
// cards per seat, one card flipped onto the pile.
func (g *Game) dealNewHand() {
	g.discardPile = nil
	g.lastDiscard = nil
	g.slamdownPlayer = ""
	g.slamdownCard = nil
	g.deck = NewDeck(g.rng)
	for _, p := range g.players {
		hand := make([]Card, 0, HandSize)
		for i := 0; i < HandSize; i++ {
			c, _ := g.deck.Draw()
			hand = append(hand, c)
		}
		p.Hand = hand
	}
	if first, ok := g.deck.Draw(); ok {
		g.discardPile = append(g.discardPile, first)
		g.lastDiscard = append(g.lastDiscard, first)
	}
}

// recycleDiscardPile rebuilds the deck from everything under the last
// discard and reshuffles, leaving only the last discard on the pile.
func (g *Game) recycleDiscardPile() {
	inLast := make(map[Card]bool, len(g.lastDiscard))
	for _, c := range g.lastDiscard {
		inLast[c] = true
	}
	var recycled []Card
	for _, c := range g.discardPile {
		if !inLast[c] {
			recycled = append(recycled, c)
		}
	}
	g.deck = NewDeckFromCards(recycled, g.rng)
	g.deck.Shuffle()
	g.discardPile = append([]Card(nil), g.lastDiscard...)
}

func (g *Game) updateScores(declarer *Player, outcome *RoundOutcome) {
	var others []*Player
	for _, p := range g.players {
		if p != declarer {
			others = append(others, p)
		}
	}
	if len(others) > 0 {
		totals := make([]int, len(others))
		minTotal, minPlayer := -1, others[0]
		for i, p := range others {
			totals[i] = p.HandValue()
			if minTotal < 0 || totals[i] < minTotal {
				minTotal = totals[i]
				minPlayer = p
			}
		}
		if declarer.HandValue() < minTotal {
			for i, p := range others {
				p.Score += totals[i]
			}
		} else {
			declarer.Score += 30
			outcome.Assaf = &AssafInfo{Assafed: declarer.Name, AssafedBy: minPlayer.Name}
		}
	}
	outcome.Resets = g.resetScores()
}

// resetScores applies the landing rule: a score that arrives exactly on 50
// or 100 from strictly below drops by 50.
func (g *Game) resetScores() []string {
	resets := []string{}
	for i, p := range g.players {
		if (p.Score == 50 || p.Score == 100) && g.previousScores[i] < p.Score {
			p.Score -= 50
			resets = append(resets, p.Name)
		}
	}
	return resets
}

// checkSlamdown decides whether the card just drawn from the deck may be
// slammed onto the cards just discarded. Agent seats never get the option.
func (g *Game) checkSlamdown(p *Player, discarded []Card, drawn Card) {
	g.slamdownPlayer = ""
	g.slamdownCard = nil
	if p.IsAI() || len(p.Hand) <= 1 {
		return
	}
	var nonJokers []Card
	for _, c := range discarded {
		if !c.IsJoker() {
			nonJokers = append(nonJokers, c)
		}
	}
	if len(nonJokers) > 0 {
		sameRank := true
		for _, c := range nonJokers[1:] {
			if c.RankIndex() != nonJokers[0].RankIndex() {
				sameRank = false
				break
			}
		}
		if sameRank && drawn.RankIndex() == nonJokers[0].RankIndex() {
			c := drawn
			g.slamdownPlayer = p.Name
			g.slamdownCard = &c
			return
		}
	}
	run := runOrder(discarded)
	if run == nil || drawn.IsJoker() {
		return
	}
	suit, low, high := -1, -1, -1
	for _, c := range run {
		if c.IsJoker() {
			continue
		}
		if suit < 0 {
			suit = c.SuitIndex()
		}
		ri := c.RankIndex()
		if low < 0 || ri < low {
			low = ri
		}
		if ri > high {
			high = ri
		}
	}
	if drawn.SuitIndex() != suit {
		return
	}
	if ri := drawn.RankIndex(); ri == low-1 || ri == high+1 {
		c := drawn
		g.slamdownPlayer = p.Name
		g.slamdownCard = &c
	}
}

// turnView snapshots what p may legitimately see before acting.
func (g *Game) turnView(p *Player) TurnView {
	return TurnView{
		Hand:        append([]Card(nil), p.Hand...),
		Score:       p.Score,
		DrawOptions: g.DrawOptions(),
		DiscardPile: g.DiscardPile(),
		DeckSize:    g.DeckSize(),
	}
}

// TurnViewFor exposes turnView for the seat's declaration check.
func (g *Game) TurnViewFor(p *Player) TurnView {
	return g.turnView(p)
}

func (g *Game) notifyRound() {
	seats := make([]SeatInfo, len(g.players))
	for i, p := range g.players {
		seats[i] = SeatInfo{Name: p.Name, Score: p.Score}
	}
	for _, p := range g.players {
		if p.agent != nil {
			p.agent.ObserveRound(seats)
		}
	}
}

func (g *Game) notifyTurn(actor *Player, result *TurnResult) {
	record := TurnRecord{
		PlayerName: actor.Name,
		HandCount:  len(actor.Hand),
		Discarded:  append([]Card(nil), result.Discarded...),
	}
	if !result.FromDeck {
		c := result.Drawn
		record.DrawnCard = &c
	}
	pile := g.DiscardPile()
	options := g.DrawOptions()
	for _, p := range g.players {
		if p == actor || p.agent == nil {
			continue
		}
		p.agent.ObserveTurn(record, pile, options)
	}
}
