package yaniv

import (
	"errors"
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

// scriptedAgent is a minimal Agent for engine tests: discard the highest
// card, draw from the deck, declare on a zero hand. It counts the
// notifications it receives.
type scriptedAgent struct {
	rounds   int
	turns    int
	lastTurn TurnRecord
}

func (a *scriptedAgent) ObserveRound(seats []SeatInfo) { a.rounds++ }

func (a *scriptedAgent) ObserveTurn(turn TurnRecord, pile, options []Card) {
	a.turns++
	a.lastTurn = turn
}

func (a *scriptedAgent) DecideAction(view TurnView) Action {
	best := view.Hand[0]
	for _, c := range view.Hand[1:] {
		if c.Value() > best.Value() {
			best = c
		}
	}
	return Action{Discard: []Card{best}, Draw: DrawDeck}
}

func (a *scriptedAgent) ShouldDeclareYaniv(view TurnView) bool {
	return HandValue(view.Hand) == 0
}

// buildGame wires a game directly so tests control hands, piles and the
// deck. The whole pile counts as the last discard.
func buildGame(players []*Player, current int, pile, deckCards []Card) *Game {
	rng := rand.New(rand.NewSource(42))
	prev := make([]int, len(players))
	for i, p := range players {
		prev[i] = p.Score
	}
	return &Game{
		id:                 "test-game",
		players:            players,
		rng:                rng,
		currentPlayerIndex: current,
		previousScores:     prev,
		discardPile:        append([]Card(nil), pile...),
		lastDiscard:        append([]Card(nil), pile...),
		deck:               NewDeckFromCards(deckCards, rng),
	}
}

func handOf(p *Player, cards ...Card) *Player {
	p.Hand = append([]Card(nil), cards...)
	return p
}

func assertConservation(t *testing.T, g *Game) {
	t.Helper()
	seen := make(map[Card]bool)
	count := 0
	add := func(cs []Card) {
		for _, c := range cs {
			if seen[c] {
				t.Fatalf("Card %v appears twice", c)
			}
			seen[c] = true
			count++
		}
	}
	for _, p := range g.players {
		add(p.Hand)
	}
	add(g.deck.Cards())
	add(g.discardPile)
	if count != DeckSize {
		t.Fatalf("Expected %d cards in play, got %d", DeckSize, count)
	}
}

func TestStartGameDealsHands(t *testing.T) {
	players := []*Player{NewPlayer("alice"), NewPlayer("bob")}
	g := NewGame(players, rand.New(rand.NewSource(42)))
	if err := g.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	for _, p := range players {
		if len(p.Hand) != HandSize {
			t.Errorf("Player %s has %d cards, want %d", p.Name, len(p.Hand), HandSize)
		}
	}
	if len(g.discardPile) != 1 || len(g.lastDiscard) != 1 {
		t.Errorf("Expected one flipped card, pile=%d last=%d", len(g.discardPile), len(g.lastDiscard))
	}
	if g.DeckSize() != DeckSize-2*HandSize-1 {
		t.Errorf("Deck size = %d, want %d", g.DeckSize(), DeckSize-2*HandSize-1)
	}
	assertConservation(t, g)

	// Restarting deals a fresh hand with the same shape
	if err := g.StartGame(); err != nil {
		t.Fatalf("Second StartGame failed: %v", err)
	}
	if len(players[0].Hand) != HandSize || g.DeckSize() != DeckSize-2*HandSize-1 {
		t.Error("Restart should re-deal the same counts")
	}
	assertConservation(t, g)
}

func TestStartGameRequiresPlayers(t *testing.T) {
	g := NewGame(nil, rand.New(rand.NewSource(42)))
	if err := g.StartGame(); err == nil {
		t.Error("Expected error starting a game with no players")
	}
}

func TestNewGameDeterministicWithSeed(t *testing.T) {
	mk := func() *Game {
		g := NewGame([]*Player{NewPlayer("alice"), NewPlayer("bob")}, rand.New(rand.NewSource(0)))
		if err := g.StartGame(); err != nil {
			t.Fatalf("StartGame failed: %v", err)
		}
		return g
	}
	g1, g2 := mk(), mk()
	if g1.currentPlayerIndex != g2.currentPlayerIndex {
		t.Error("Same seed should pick the same starting player")
	}
	for i := range g1.players {
		if !reflect.DeepEqual(g1.players[i].Hand, g2.players[i].Hand) {
			t.Errorf("Same seed should deal the same hand to player %d", i)
		}
	}
}

func TestStartTurnSortsHand(t *testing.T) {
	p := handOf(NewPlayer("alice"), CardOf("K", "Spades"), CardOf("A", "Clubs"), Card(0))
	g := buildGame([]*Player{p}, 0, []Card{CardOf("2", "Spades")}, []Card{CardOf("9", "Diamonds")})

	current, options := g.StartTurn()
	if current != p {
		t.Fatal("StartTurn returned the wrong player")
	}
	if !sort.SliceIsSorted(p.Hand, func(i, j int) bool { return p.Hand[i] < p.Hand[j] }) {
		t.Errorf("Hand not sorted after StartTurn: %v", p.Hand)
	}
	if len(options) != 1 || options[0] != CardOf("2", "Spades") {
		t.Errorf("Unexpected draw options: %v", options)
	}
}

func TestPlayTurnDeckDraw(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("9", "Clubs"), CardOf("5", "Diamonds"))
	p2 := handOf(NewPlayer("bob"), CardOf("3", "Hearts"))
	g := buildGame([]*Player{p1, p2}, 0, []Card{CardOf("2", "Spades")}, []Card{CardOf("K", "Spades")})

	result, err := g.PlayTurn(p1, &Action{Discard: []Card{CardOf("9", "Clubs")}, Draw: DrawDeck})
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if !result.FromDeck || result.Drawn != CardOf("K", "Spades") {
		t.Errorf("Expected K of Spades from the deck, got %v", result)
	}
	if !p1.HasCard(CardOf("K", "Spades")) || p1.HasCard(CardOf("9", "Clubs")) {
		t.Errorf("Hand not updated: %v", p1.Hand)
	}
	wantPile := []Card{CardOf("2", "Spades"), CardOf("9", "Clubs")}
	if !reflect.DeepEqual(g.discardPile, wantPile) {
		t.Errorf("Pile = %v, want %v", g.discardPile, wantPile)
	}
	if !reflect.DeepEqual(g.lastDiscard, []Card{CardOf("9", "Clubs")}) {
		t.Errorf("Last discard = %v", g.lastDiscard)
	}
	if g.currentPlayerIndex != 1 {
		t.Errorf("Turn did not advance, index=%d", g.currentPlayerIndex)
	}
}

func TestPlayTurnPileDraw(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("9", "Clubs"), CardOf("5", "Diamonds"))
	p2 := handOf(NewPlayer("bob"), CardOf("3", "Hearts"))
	g := buildGame([]*Player{p1, p2}, 0, []Card{CardOf("2", "Spades")}, []Card{CardOf("K", "Spades")})

	result, err := g.PlayTurn(p1, &Action{Discard: []Card{CardOf("9", "Clubs")}, Draw: 0})
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if result.FromDeck || result.Drawn != CardOf("2", "Spades") {
		t.Errorf("Expected 2 of Spades from the pile, got %v", result)
	}
	if !p1.HasCard(CardOf("2", "Spades")) {
		t.Errorf("Hand missing picked card: %v", p1.Hand)
	}
	if !reflect.DeepEqual(g.discardPile, []Card{CardOf("9", "Clubs")}) {
		t.Errorf("Pile = %v", g.discardPile)
	}
	if g.DeckSize() != 1 {
		t.Error("Deck should be untouched by a pile draw")
	}
}

func TestPlayTurnValidation(t *testing.T) {
	newGame := func() (*Game, *Player, *Player) {
		p1 := handOf(NewPlayer("alice"), CardOf("9", "Clubs"), CardOf("5", "Diamonds"))
		p2 := handOf(NewPlayer("bob"), CardOf("3", "Hearts"))
		g := buildGame([]*Player{p1, p2}, 0, []Card{CardOf("2", "Spades")}, []Card{CardOf("K", "Spades")})
		return g, p1, p2
	}

	cases := []struct {
		name    string
		player  int // 0 or 1
		action  Action
		wantErr error
	}{
		{"wrong player", 1, Action{Discard: []Card{CardOf("3", "Hearts")}, Draw: DrawDeck}, ErrNotYourTurn},
		{"empty discard", 0, Action{Draw: DrawDeck}, ErrInvalidDiscard},
		{"card not in hand", 0, Action{Discard: []Card{CardOf("K", "Hearts")}, Draw: DrawDeck}, ErrCardNotInHand},
		{"illegal pair", 0, Action{Discard: []Card{CardOf("9", "Clubs"), CardOf("5", "Diamonds")}, Draw: DrawDeck}, ErrInvalidDiscard},
		{"draw index out of range", 0, Action{Discard: []Card{CardOf("9", "Clubs")}, Draw: 5}, ErrInvalidDraw},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, p1, p2 := newGame()
			actor := p1
			if tc.player == 1 {
				actor = p2
			}
			_, err := g.PlayTurn(actor, &tc.action)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Expected %v, got %v", tc.wantErr, err)
			}
			// A rejected turn leaves the game untouched
			if len(p1.Hand) != 2 || len(g.discardPile) != 1 || g.DeckSize() != 1 || g.currentPlayerIndex != 0 {
				t.Error("State mutated by a rejected turn")
			}
		})
	}
}

func TestDeckRecycleOnEmptyDraw(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("9", "Clubs"), CardOf("5", "Diamonds"))
	p2 := handOf(NewPlayer("bob"), CardOf("3", "Hearts"))
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)
	g.discardPile = []Card{CardOf("4", "Spades"), CardOf("7", "Spades"), CardOf("9", "Spades")}
	g.lastDiscard = []Card{CardOf("9", "Spades")}

	result, err := g.PlayTurn(p1, &Action{Discard: []Card{CardOf("9", "Clubs")}, Draw: DrawDeck})
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if result.Drawn != CardOf("4", "Spades") && result.Drawn != CardOf("7", "Spades") {
		t.Errorf("Drawn card should come from the recycled pile, got %v", result.Drawn)
	}
	if g.DeckSize() != 1 {
		t.Errorf("Deck size after recycle = %d, want 1", g.DeckSize())
	}
	wantPile := []Card{CardOf("9", "Spades"), CardOf("9", "Clubs")}
	if !reflect.DeepEqual(g.discardPile, wantPile) {
		t.Errorf("Pile after recycle = %v, want %v", g.discardPile, wantPile)
	}
}

func TestCanDeclareYaniv(t *testing.T) {
	p := NewPlayer("alice")
	g := buildGame([]*Player{p}, 0, nil, nil)

	handOf(p, CardOf("2", "Hearts"), CardOf("3", "Hearts")) // 5 points
	if !g.CanDeclareYaniv(p) {
		t.Error("5 points should allow Yaniv")
	}
	handOf(p, CardOf("2", "Hearts"), CardOf("4", "Hearts")) // 6 points
	if g.CanDeclareYaniv(p) {
		t.Error("6 points should not allow Yaniv")
	}
}

func TestDeclareYanivRejectsHighHand(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("K", "Spades"))
	p2 := handOf(NewPlayer("bob"), CardOf("3", "Hearts"))
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)

	if _, err := g.DeclareYaniv(p1); !errors.Is(err, ErrCannotYaniv) {
		t.Fatalf("Expected ErrCannotYaniv, got %v", err)
	}
}

func TestDeclareYanivClean(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("A", "Clubs"))                      // 1
	p2 := handOf(NewPlayer("bob"), CardOf("K", "Spades"), CardOf("Q", "Spades")) // 20
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)

	outcome, err := g.DeclareYaniv(p1)
	if err != nil {
		t.Fatalf("DeclareYaniv failed: %v", err)
	}
	if outcome.Assaf != nil {
		t.Error("Clean Yaniv should not be assafed")
	}
	if p1.Score != 0 || p2.Score != 20 {
		t.Errorf("Scores = %d/%d, want 0/20", p1.Score, p2.Score)
	}
	if outcome.Winner != "" {
		t.Errorf("Unexpected winner %q", outcome.Winner)
	}
	// The next hand is dealt immediately
	if len(p1.Hand) != HandSize || len(p2.Hand) != HandSize {
		t.Error("Next hand not dealt after Yaniv")
	}
}

func TestDeclareYanivAssaf(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("2", "Hearts"), CardOf("3", "Hearts"))                 // 5
	p2 := handOf(NewPlayer("bob"), CardOf("A", "Clubs"), CardOf("A", "Diamonds"), CardOf("A", "Spades")) // 3
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)

	outcome, err := g.DeclareYaniv(p1)
	if err != nil {
		t.Fatalf("DeclareYaniv failed: %v", err)
	}
	if outcome.Assaf == nil {
		t.Fatal("Expected an assaf")
	}
	if outcome.Assaf.Assafed != "alice" || outcome.Assaf.AssafedBy != "bob" {
		t.Errorf("Assaf = %+v", outcome.Assaf)
	}
	if p1.Score != 30 || p2.Score != 0 {
		t.Errorf("Scores = %d/%d, want 30/0", p1.Score, p2.Score)
	}
}

func TestAssafOnEqualMinimum(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("5", "Hearts"))
	p2 := handOf(NewPlayer("bob"), CardOf("5", "Spades"))
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)

	outcome, _ := g.DeclareYaniv(p1)
	if outcome.Assaf == nil {
		t.Fatal("An equal minimum should assaf the declarer")
	}
	if p1.Score != 30 {
		t.Errorf("Declarer score = %d, want 30", p1.Score)
	}
}

func TestAssafPicksFirstMinimumInSeatOrder(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("5", "Hearts"))
	p2 := handOf(NewPlayer("bob"), CardOf("3", "Spades"))
	p3 := handOf(NewPlayer("carol"), CardOf("3", "Hearts"))
	g := buildGame([]*Player{p1, p2, p3}, 0, nil, nil)

	outcome, _ := g.DeclareYaniv(p1)
	if outcome.Assaf == nil || outcome.Assaf.AssafedBy != "bob" {
		t.Errorf("Expected bob (first minimum) to assaf, got %+v", outcome.Assaf)
	}
}

func TestAssafLandingOnFiftyResets(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("5", "Hearts"))
	p1.Score = 20
	p2 := handOf(NewPlayer("bob"), CardOf("3", "Spades"))
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)

	outcome, _ := g.DeclareYaniv(p1)
	if outcome.Assaf == nil {
		t.Fatal("Expected an assaf")
	}
	// 20 + 30 lands exactly on 50 from below, so the penalty resets
	if p1.Score != 0 {
		t.Errorf("Declarer score = %d, want 0 after reset", p1.Score)
	}
	if len(outcome.Resets) != 1 || outcome.Resets[0] != "alice" {
		t.Errorf("Resets = %v, want [alice]", outcome.Resets)
	}
}

func TestScoreResetsAtFiftyAndHundred(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), Card(0)) // 0 points, clean Yaniv
	p2 := handOf(NewPlayer("bob"), CardOf("5", "Spades"))
	p2.Score = 45
	p3 := handOf(NewPlayer("carol"), CardOf("5", "Hearts"))
	p3.Score = 95
	g := buildGame([]*Player{p1, p2, p3}, 0, nil, nil)

	outcome, err := g.DeclareYaniv(p1)
	if err != nil {
		t.Fatalf("DeclareYaniv failed: %v", err)
	}
	if p2.Score != 0 {
		t.Errorf("bob landed on 50 and should reset to 0, got %d", p2.Score)
	}
	if p3.Score != 50 {
		t.Errorf("carol landed on 100 and should reset to 50, got %d", p3.Score)
	}
	if len(outcome.Resets) != 2 {
		t.Errorf("Resets = %v, want two entries", outcome.Resets)
	}
}

func TestNoResetWhenAlreadyAtFifty(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), Card(0))
	p2 := handOf(NewPlayer("bob"), Card(1)) // 0 points, no score change
	p2.Score = 50
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)

	if _, err := g.DeclareYaniv(p1); err != nil {
		t.Fatalf("DeclareYaniv failed: %v", err)
	}
	// bob stays at 50: the score did not land there from below this round
	if p2.Score == 0 {
		t.Error("Score already at 50 must not reset")
	}
}

func TestEliminationAndWinner(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("A", "Clubs"))
	p2 := handOf(NewPlayer("bob"), CardOf("K", "Spades"), CardOf("K", "Hearts")) // 20
	p2.Score = 90
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)

	outcome, err := g.DeclareYaniv(p1)
	if err != nil {
		t.Fatalf("DeclareYaniv failed: %v", err)
	}
	if len(outcome.Eliminated) != 1 || outcome.Eliminated[0] != "bob" {
		t.Errorf("Eliminated = %v, want [bob]", outcome.Eliminated)
	}
	if outcome.Winner != "alice" {
		t.Errorf("Winner = %q, want alice", outcome.Winner)
	}
	if len(g.players) != 1 {
		t.Errorf("Expected one remaining player, got %d", len(g.players))
	}
}

func TestEliminationWithoutWinner(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("A", "Clubs"))
	p2 := handOf(NewPlayer("bob"), CardOf("K", "Spades"), CardOf("K", "Hearts"))
	p2.Score = 90
	p3 := handOf(NewPlayer("carol"), CardOf("2", "Clubs"))
	g := buildGame([]*Player{p1, p2, p3}, 2, nil, nil)

	outcome, err := g.DeclareYaniv(p1)
	if err != nil {
		t.Fatalf("DeclareYaniv failed: %v", err)
	}
	if outcome.Winner != "" {
		t.Errorf("Unexpected winner %q with two players alive", outcome.Winner)
	}
	if len(g.players) != 2 {
		t.Errorf("Expected two remaining players, got %d", len(g.players))
	}
	if g.currentPlayerIndex >= len(g.players) {
		t.Errorf("Current player index %d out of range", g.currentPlayerIndex)
	}
	for _, p := range g.players {
		if len(p.Hand) != HandSize {
			t.Errorf("Player %s not redealt", p.Name)
		}
	}
}

func TestSlamdownAfterDeckDraw(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("7", "Hearts"), CardOf("3", "Clubs"))
	p2 := handOf(NewPlayer("bob"), CardOf("4", "Diamonds"))
	g := buildGame([]*Player{p1, p2}, 0, []Card{CardOf("2", "Spades")}, []Card{CardOf("7", "Spades")})

	_, err := g.PlayTurn(p1, &Action{Discard: []Card{CardOf("7", "Hearts")}, Draw: DrawDeck})
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if g.SlamdownPlayer() != "alice" {
		t.Fatalf("Expected slamdown for alice, got %q", g.SlamdownPlayer())
	}
	if c := g.SlamdownCard(); c == nil || *c != CardOf("7", "Spades") {
		t.Fatalf("Slamdown card = %v", c)
	}

	card, err := g.PerformSlamdown(p1)
	if err != nil {
		t.Fatalf("PerformSlamdown failed: %v", err)
	}
	if card != CardOf("7", "Spades") {
		t.Errorf("Slammed %v", card)
	}
	wantLast := []Card{CardOf("7", "Hearts"), CardOf("7", "Spades")}
	if !reflect.DeepEqual(g.lastDiscard, wantLast) {
		t.Errorf("Last discard = %v, want %v", g.lastDiscard, wantLast)
	}
	if g.SlamdownPlayer() != "" || g.SlamdownCard() != nil {
		t.Error("Slamdown fields not cleared")
	}
	if p1.HasCard(CardOf("7", "Spades")) {
		t.Error("Slammed card still in hand")
	}
}

func TestNoSlamdownAfterPileDraw(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("7", "Hearts"), CardOf("3", "Clubs"))
	p2 := handOf(NewPlayer("bob"), CardOf("4", "Diamonds"))
	g := buildGame([]*Player{p1, p2}, 0, []Card{CardOf("7", "Spades")}, []Card{CardOf("K", "Clubs")})

	_, err := g.PlayTurn(p1, &Action{Discard: []Card{CardOf("7", "Hearts")}, Draw: 0})
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if g.SlamdownPlayer() != "" {
		t.Error("Pile draws must not arm a slamdown")
	}
}

func TestNoSlamdownForAgentSeats(t *testing.T) {
	ai := NewAIPlayer("bot", &scriptedAgent{})
	handOf(ai, CardOf("7", "Hearts"), CardOf("3", "Clubs"))
	p2 := handOf(NewPlayer("bob"), CardOf("4", "Diamonds"))
	g := buildGame([]*Player{ai, p2}, 0, []Card{CardOf("2", "Spades")}, []Card{CardOf("7", "Spades")})

	// The scripted agent discards its 7 and draws the matching 7 from the
	// deck, which would arm a slamdown for a human.
	if _, err := g.PlayTurn(ai, nil); err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if g.SlamdownPlayer() != "" {
		t.Error("Agent seats must never arm a slamdown")
	}
}

func TestSlamdownRunExtension(t *testing.T) {
	run := []Card{CardOf("5", "Hearts"), CardOf("6", "Hearts"), CardOf("7", "Hearts")}
	cases := []struct {
		name  string
		drawn Card
		want  bool
	}{
		{"one above the run", CardOf("8", "Hearts"), true},
		{"one below the run", CardOf("4", "Hearts"), true},
		{"right rank wrong suit", CardOf("8", "Spades"), false},
		{"not adjacent", CardOf("9", "Hearts"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p1 := handOf(NewPlayer("alice"), append([]Card{CardOf("3", "Clubs")}, run...)...)
			p2 := handOf(NewPlayer("bob"), CardOf("4", "Diamonds"))
			g := buildGame([]*Player{p1, p2}, 0, []Card{CardOf("2", "Spades")}, []Card{tc.drawn})

			if _, err := g.PlayTurn(p1, &Action{Discard: run, Draw: DrawDeck}); err != nil {
				t.Fatalf("PlayTurn failed: %v", err)
			}
			got := g.SlamdownPlayer() == "alice"
			if got != tc.want {
				t.Errorf("Slamdown armed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSlamdownExpiresOnNextDiscard(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("7", "Hearts"), CardOf("3", "Clubs"))
	p2 := handOf(NewPlayer("bob"), CardOf("4", "Diamonds"), CardOf("9", "Clubs"))
	g := buildGame([]*Player{p1, p2}, 0, []Card{CardOf("2", "Spades")}, []Card{CardOf("9", "Diamonds"), CardOf("7", "Spades")})

	if _, err := g.PlayTurn(p1, &Action{Discard: []Card{CardOf("7", "Hearts")}, Draw: DrawDeck}); err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if g.SlamdownPlayer() != "alice" {
		t.Fatal("Expected slamdown armed for alice")
	}
	if _, err := g.PlayTurn(p2, &Action{Discard: []Card{CardOf("4", "Diamonds")}, Draw: DrawDeck}); err != nil {
		t.Fatalf("Second PlayTurn failed: %v", err)
	}
	if g.SlamdownPlayer() != "" {
		t.Error("Slamdown should expire on the next discard")
	}
}

func TestSlamdownLastCardAndWrongPlayer(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("7", "Spades"))
	p2 := handOf(NewPlayer("bob"), CardOf("4", "Diamonds"))
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)
	c := CardOf("7", "Spades")
	g.slamdownPlayer = "alice"
	g.slamdownCard = &c

	if _, err := g.PerformSlamdown(p2); !errors.Is(err, ErrSlamdownUnavailable) {
		t.Errorf("Expected ErrSlamdownUnavailable for bob, got %v", err)
	}
	if _, err := g.PerformSlamdown(p1); !errors.Is(err, ErrSlamdownLastCard) {
		t.Errorf("Expected ErrSlamdownLastCard, got %v", err)
	}
}

func TestDeclareYanivClearsSlamdown(t *testing.T) {
	p1 := handOf(NewPlayer("alice"), CardOf("A", "Clubs"))
	p2 := handOf(NewPlayer("bob"), CardOf("K", "Spades"), CardOf("7", "Spades"))
	g := buildGame([]*Player{p1, p2}, 0, nil, nil)
	c := CardOf("7", "Spades")
	g.slamdownPlayer = "bob"
	g.slamdownCard = &c

	if _, err := g.DeclareYaniv(p1); err != nil {
		t.Fatalf("DeclareYaniv failed: %v", err)
	}
	if g.SlamdownPlayer() != "" || g.SlamdownCard() != nil {
		t.Error("Yaniv should clear a pending slamdown")
	}
}

func TestObserverNotifications(t *testing.T) {
	a2, a3 := &scriptedAgent{}, &scriptedAgent{}
	p1 := NewPlayer("alice")
	p2 := NewAIPlayer("bot-1", a2)
	p3 := NewAIPlayer("bot-2", a3)
	g := NewGame([]*Player{p1, p2, p3}, rand.New(rand.NewSource(42)))
	if err := g.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if a2.rounds != 1 || a3.rounds != 1 {
		t.Errorf("Round notifications = %d/%d, want 1/1", a2.rounds, a3.rounds)
	}

	// Walk the table once; every turn notifies the other agents only
	for i := 0; i < 3; i++ {
		current, options := g.StartTurn()
		var action *Action
		if !current.IsAI() {
			action = &Action{Discard: []Card{current.Hand[0]}, Draw: DrawDeck}
		}
		if len(options) == 0 {
			t.Fatal("Expected draw options")
		}
		if _, err := g.PlayTurn(current, action); err != nil {
			t.Fatalf("PlayTurn %d failed: %v", i, err)
		}
	}
	// alice's turn notified both agents; bot-1's turn notified bot-2 only;
	// bot-2's turn notified bot-1 only
	if a2.turns != 2 || a3.turns != 2 {
		t.Errorf("Turn notifications = %d/%d, want 2/2", a2.turns, a3.turns)
	}
	// Deck draws stay hidden
	if a2.lastTurn.DrawnCard != nil {
		t.Error("Deck draw leaked to observers")
	}
}

func TestPileDrawIsVisibleToObservers(t *testing.T) {
	a2 := &scriptedAgent{}
	p1 := handOf(NewPlayer("alice"), CardOf("9", "Clubs"), CardOf("5", "Diamonds"))
	p2 := NewAIPlayer("bot", a2)
	handOf(p2, CardOf("3", "Hearts"))
	g := buildGame([]*Player{p1, p2}, 0, []Card{CardOf("2", "Spades")}, []Card{CardOf("K", "Spades")})

	if _, err := g.PlayTurn(p1, &Action{Discard: []Card{CardOf("9", "Clubs")}, Draw: 0}); err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if a2.lastTurn.DrawnCard == nil || *a2.lastTurn.DrawnCard != CardOf("2", "Spades") {
		t.Errorf("Observers should see pile pickups, got %v", a2.lastTurn.DrawnCard)
	}
	if a2.lastTurn.PlayerName != "alice" || a2.lastTurn.HandCount != 2 {
		t.Errorf("Turn record = %+v", a2.lastTurn)
	}
}

func TestLastDiscardIsPileSuffix(t *testing.T) {
	players := []*Player{NewPlayer("alice"), NewPlayer("bob")}
	g := NewGame(players, rand.New(rand.NewSource(7)))
	if err := g.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		current, options := g.StartTurn()
		action := &Action{Discard: []Card{current.Hand[0]}, Draw: DrawDeck}
		if i%3 == 2 && len(options) > 0 {
			action.Draw = 0
		}
		if _, err := g.PlayTurn(current, action); err != nil {
			t.Fatalf("Turn %d failed: %v", i, err)
		}

		n, k := len(g.discardPile), len(g.lastDiscard)
		if k > n {
			t.Fatalf("Last discard longer than pile")
		}
		if !reflect.DeepEqual(g.discardPile[n-k:], g.lastDiscard) {
			t.Fatalf("Last discard %v is not a suffix of pile %v", g.lastDiscard, g.discardPile)
		}
		assertConservation(t, g)
	}
}

func TestStateRoundTrip(t *testing.T) {
	p1 := NewPlayer("alice")
	p2 := NewAIPlayer("bot", &scriptedAgent{})
	g := NewGame([]*Player{p1, p2}, rand.New(rand.NewSource(42)))
	if err := g.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		current, _ := g.StartTurn()
		var action *Action
		if !current.IsAI() {
			action = &Action{Discard: []Card{current.Hand[0]}, Draw: DrawDeck}
		}
		if _, err := g.PlayTurn(current, action); err != nil {
			t.Fatalf("Turn %d failed: %v", i, err)
		}
	}

	st := g.State()
	restored := RestoreGame(st, rand.New(rand.NewSource(99)), func(name string) Agent {
		return &scriptedAgent{}
	})
	st2 := restored.State()

	if !reflect.DeepEqual(st.Players, st2.Players) {
		t.Errorf("Players diverge after round trip:\n%+v\n%+v", st.Players, st2.Players)
	}
	if !reflect.DeepEqual(st.DiscardPile, st2.DiscardPile) {
		t.Errorf("Discard pile diverges: %v vs %v", st.DiscardPile, st2.DiscardPile)
	}
	if st.CurrentPlayerIndex != st2.CurrentPlayerIndex || st.LastDiscardSize != st2.LastDiscardSize {
		t.Error("Turn bookkeeping diverges after round trip")
	}
	if st.GameID != st2.GameID {
		t.Error("Game id not preserved")
	}
	if restored.players[1].Agent() == nil {
		t.Error("AI seat restored without an agent")
	}
	assertConservation(t, restored)
}
