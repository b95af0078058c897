package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// ---------- Test scaffolding ---------- //

func card(rank, suit string) yaniv.Card { return yaniv.CardOf(rank, suit) }

func hand(cards ...yaniv.Card) []yaniv.Card { return cards }

// newTestBot seats the bot against the named opponents, all at score 0.
func newTestBot(opponents ...string) *Bot {
	b := New(Config{Name: "bot"})
	seats := []yaniv.SeatInfo{{Name: "bot"}}
	for _, name := range opponents {
		seats = append(seats, yaniv.SeatInfo{Name: name})
	}
	b.ObserveRound(seats)
	return b
}

// containsOption reports whether options has an entry with exactly this
// card order.
func containsOption(options [][]yaniv.Card, want []yaniv.Card) bool {
	for _, opt := range options {
		if len(opt) != len(want) {
			continue
		}
		match := true
		for i := range opt {
			if opt[i] != want[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// ---------- Opponent model ---------- //

func TestObserveRoundResetsModel(t *testing.T) {
	b := newTestBot("alice")
	b.ObserveTurn(yaniv.TurnRecord{
		PlayerName: "alice",
		HandCount:  5,
		DrawnCard:  ptr(card("7", "Hearts")),
	}, nil, nil)
	require.Len(t, b.opponents["alice"].knownCards, 1)
	b.discardOptionsCache.put("x", nil)

	b.ObserveRound([]yaniv.SeatInfo{{Name: "bot", Score: 12}, {Name: "alice", Score: 30}})

	rec := b.opponents["alice"]
	require.NotNil(t, rec)
	assert.Equal(t, 30, rec.currentScore)
	assert.Equal(t, yaniv.HandSize, rec.handCount)
	assert.Empty(t, rec.knownCards)
	assert.Equal(t, 12, b.score)
	assert.Zero(t, b.discardOptionsCache.len())
}

func TestObserveTurnTracksPickupsAndDiscards(t *testing.T) {
	b := newTestBot("alice")
	seven := card("7", "Hearts")

	b.ObserveTurn(yaniv.TurnRecord{
		PlayerName: "alice",
		HandCount:  5,
		Discarded:  hand(card("K", "Spades")),
		DrawnCard:  &seven,
	}, hand(card("K", "Spades")), hand(card("K", "Spades")))

	rec := b.opponents["alice"]
	require.Equal(t, hand(seven), rec.knownCards)
	assert.Equal(t, 1, rec.collectedRanks[seven.RankIndex()])
	assert.True(t, rec.collectedSuitRanks[seven.SuitIndex()][seven.RankIndex()])
	assert.True(t, rec.recentlyDiscardedRank(card("K", "Hearts").RankIndex()))

	// Discarding the seven later removes it from the known hand but not
	// from the collection signals.
	b.ObserveTurn(yaniv.TurnRecord{
		PlayerName: "alice",
		HandCount:  5,
		Discarded:  hand(seven),
	}, nil, nil)
	assert.Empty(t, rec.knownCards)
	assert.Equal(t, 1, rec.collectedRanks[seven.RankIndex()])
}

func TestObserveTurnUnknownPlayerIgnored(t *testing.T) {
	b := newTestBot("alice")
	b.ObserveTurn(yaniv.TurnRecord{PlayerName: "mallory", HandCount: 3}, nil, nil)
	assert.NotContains(t, b.opponents, "mallory")
}

func TestRefreshEstimatesExactWhenFullyKnown(t *testing.T) {
	b := newTestBot("alice")
	rec := b.opponents["alice"]
	rec.handCount = 1
	rec.knownCards = hand(card("K", "Spades"))

	b.refreshEstimates(nil)

	assert.Equal(t, 10.0, rec.estimatedScore)
}

func TestUnseenCardsExcludesEverythingVisible(t *testing.T) {
	b := newTestBot("alice")
	own := hand(card("A", "Clubs"), card("2", "Clubs"))
	b.publicPile = hand(card("3", "Clubs"))
	b.drawOptions = hand(card("3", "Clubs"))
	b.opponents["alice"].knownCards = hand(card("4", "Clubs"))

	unseen := b.unseenCards(own)

	assert.Len(t, unseen, yaniv.DeckSize-4)
	for _, c := range unseen {
		assert.NotContains(t, own, c)
		assert.NotEqual(t, card("3", "Clubs"), c)
		assert.NotEqual(t, card("4", "Clubs"), c)
	}
}

func TestMeanAndVariance(t *testing.T) {
	mean, variance := meanAndVariance(hand(card("2", "Clubs"), card("4", "Clubs")))
	assert.Equal(t, 3.0, mean)
	assert.Equal(t, 1.0, variance)

	mean, variance = meanAndVariance(nil)
	assert.Equal(t, fallbackMeanValue, mean)
	assert.Equal(t, fallbackVariance, variance)
}

// ---------- Memo cache ---------- //

func TestMemoCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newMemoCache[int](2)
	c.put("a", 1)
	c.put("b", 2)

	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", 3)

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestSignatureOrderIndependent(t *testing.T) {
	a := signature(hand(card("K", "Spades"), card("A", "Clubs")))
	b := signature(hand(card("A", "Clubs"), card("K", "Spades")))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, signature(hand(card("A", "Clubs"))))
}

// ---------- Discard enumeration ---------- //

func TestDiscardOptionsSinglesAndSets(t *testing.T) {
	b := newTestBot()
	joker := card("Joker", "Hearts")
	h := hand(card("7", "Clubs"), card("7", "Diamonds"), joker)

	options := b.discardOptions(h)

	assert.Len(t, options, 5)
	assert.True(t, containsOption(options, hand(card("7", "Clubs"))))
	assert.True(t, containsOption(options, hand(card("7", "Clubs"), card("7", "Diamonds"))))
	assert.True(t, containsOption(options, hand(card("7", "Clubs"), card("7", "Diamonds"), joker)))
}

func TestDiscardOptionsGapFilledRun(t *testing.T) {
	b := newTestBot()
	joker := card("Joker", "Hearts")
	h := hand(card("4", "Hearts"), card("6", "Hearts"), joker)

	options := b.discardOptions(h)

	require.Len(t, options, 4)
	assert.True(t, containsOption(options, hand(card("4", "Hearts"), joker, card("6", "Hearts"))),
		"joker should fill the rank gap in place")
}

func TestDiscardOptionsJokerExtensions(t *testing.T) {
	b := newTestBot()
	joker := card("Joker", "Hearts")
	four := card("4", "Hearts")
	five := card("5", "Hearts")

	options := b.discardOptions(hand(four, five, joker))

	assert.Len(t, options, 5)
	assert.True(t, containsOption(options, hand(joker, four, five)))
	assert.True(t, containsOption(options, hand(four, five, joker)))
	assert.False(t, containsOption(options, hand(four, five)), "two-card run is not a discard")
}

func TestDiscardOptionsRunEndGates(t *testing.T) {
	b := newTestBot()
	joker := card("Joker", "Hearts")

	// Nothing below an ace.
	options := b.discardOptions(hand(card("A", "Hearts"), card("2", "Hearts"), joker))
	assert.Len(t, options, 4)
	assert.True(t, containsOption(options, hand(card("A", "Hearts"), card("2", "Hearts"), joker)))

	// Nothing above a king.
	options = b.discardOptions(hand(card("Q", "Hearts"), card("K", "Hearts"), joker))
	assert.Len(t, options, 4)
	assert.True(t, containsOption(options, hand(joker, card("Q", "Hearts"), card("K", "Hearts"))))
}

func TestDiscardOptionsPlainRun(t *testing.T) {
	b := newTestBot()
	run := hand(card("4", "Hearts"), card("5", "Hearts"), card("6", "Hearts"))

	options := b.discardOptions(run)

	assert.True(t, containsOption(options, run))
	// Two-card sub-combos of the run are not emitted.
	assert.False(t, containsOption(options, hand(card("4", "Hearts"), card("5", "Hearts"))))
}

func TestDiscardOptionsCached(t *testing.T) {
	b := newTestBot()
	h := hand(card("4", "Hearts"), card("5", "Hearts"))

	first := b.discardOptions(h)
	second := b.discardOptions(h)

	assert.Equal(t, 1, b.discardOptionsCache.len())
	assert.Equal(t, first, second)
}

// ---------- Rollout ---------- //

func TestSimulateActionFindsBestFollowUp(t *testing.T) {
	b := newTestBot()
	post := hand(card("5", "Hearts"), card("5", "Diamonds"))

	future, discard := b.simulateAction(post, card("5", "Clubs"), false)

	assert.Equal(t, 0.0, future, "the triple empties the hand's value")
	assert.Len(t, discard, 3)
}

func TestBestResidual(t *testing.T) {
	b := newTestBot()
	h := hand(card("7", "Clubs"), card("7", "Diamonds"), card("3", "Spades"))
	assert.Equal(t, 3, b.bestResidual(h))
}

func TestBestDiscardOptionsPrefersShorter(t *testing.T) {
	b := newTestBot()
	h := hand(card("10", "Spades"), card("5", "Hearts"), card("5", "Diamonds"))

	best := b.bestDiscardOptions(h)

	require.Len(t, best, 1)
	assert.Equal(t, hand(card("10", "Spades")), best[0])
}

func TestStateSeedDeterministic(t *testing.T) {
	b := newTestBot("alice")
	h := hand(card("4", "Hearts"), card("5", "Hearts"))

	seed := b.stateSeed(h)
	assert.Equal(t, seed, b.stateSeed(h))

	b.publicPile = hand(card("9", "Clubs"))
	assert.NotEqual(t, seed, b.stateSeed(h))
}

func TestDeckRolloutDeterministic(t *testing.T) {
	b := newTestBot("alice")
	h := hand(card("4", "Hearts"), card("5", "Hearts"))

	first, variance := b.deckRolloutContext(h)
	second, _ := b.deckRolloutContext(h)

	require.Len(t, first, defaultRolloutSamples)
	assert.Equal(t, first, second)
	assert.Greater(t, variance, 0.0)
}

func TestCompositionBonus(t *testing.T) {
	assert.Equal(t, 1.0, compositionBonus(hand(card("7", "Clubs"), card("7", "Diamonds"))))
	assert.Equal(t, 1.0, compositionBonus(hand(card("4", "Hearts"), card("6", "Hearts"))))
	assert.Equal(t, 0.0, compositionBonus(hand(card("4", "Hearts"), card("8", "Hearts"))))
	assert.Equal(t, 0.5, compositionBonus(hand(card("Joker", "Hearts"))))
	assert.Equal(t, 2.0, compositionBonus(hand(card("7", "Clubs"), card("7", "Diamonds"), card("8", "Diamonds"))))
}

func TestResetBonus(t *testing.T) {
	b := newTestBot()
	b.score = 44
	assert.InDelta(t, 13.75, b.resetBonus(6, 0.5), 1e-9)

	b.score = 45
	assert.InDelta(t, 6.25, b.resetBonus(5, 0.5), 1e-9)

	b.score = 10
	assert.Zero(t, b.resetBonus(6, 0.5))
}

func ptr(c yaniv.Card) *yaniv.Card { return &c }
