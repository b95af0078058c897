package bot

import (
	"math"
	"math/rand"
	"sort"

	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

type simResult struct {
	future  float64
	discard []yaniv.Card
}

// simulateAction plays the turn after this one greedily: given the hand
// left after discarding plus the card drawn, it returns the lowest hand
// value reachable with one more discard, and that discard. With prune set
// only the highest-value discards are considered, which is cheaper inside
// nested rollouts.
func (b *Bot) simulateAction(postHand []yaniv.Card, draw yaniv.Card, prune bool) (float64, []yaniv.Card) {
	newHand := make([]yaniv.Card, 0, len(postHand)+1)
	newHand = append(newHand, postHand...)
	newHand = append(newHand, draw)

	key := signature(newHand)
	if prune {
		key += "|p"
	}
	if res, ok := b.simulateCache.get(key); ok {
		return res.future, res.discard
	}

	var options [][]yaniv.Card
	if prune {
		options = b.bestDiscardOptions(newHand)
	}
	if len(options) == 0 {
		options = b.discardOptions(newHand)
	}

	total := yaniv.HandValue(newHand)
	future := float64(total)
	var discard []yaniv.Card
	for _, option := range options {
		expected := float64(total - yaniv.HandValue(option))
		if discard == nil || expected <= future {
			future = expected
			discard = option
		}
	}

	b.simulateCache.put(key, simResult{future: future, discard: discard})
	return future, discard
}

// bestDiscardOptions keeps only the discards worth the most points,
// preferring shorter ones among equals.
func (b *Bot) bestDiscardOptions(hand []yaniv.Card) [][]yaniv.Card {
	key := signature(hand)
	if opts, ok := b.bestOptionsCache.get(key); ok {
		return opts
	}
	bestPoints := 0
	var best [][]yaniv.Card
	for _, option := range b.discardOptions(hand) {
		points := yaniv.HandValue(option)
		switch {
		case points > bestPoints:
			bestPoints = points
			best = [][]yaniv.Card{option}
		case points == bestPoints && len(best) > 0:
			if len(option) < len(best[0]) {
				best = [][]yaniv.Card{option}
			} else if len(option) == len(best[0]) {
				best = append(best, option)
			}
		}
	}
	b.bestOptionsCache.put(key, best)
	return best
}

// bestResidual is the lowest hand value reachable with a single discard.
func (b *Bot) bestResidual(hand []yaniv.Card) int {
	key := signature(hand)
	if v, ok := b.bestResidualCache.get(key); ok {
		return v
	}
	bestPoints := 0
	for _, option := range b.discardOptions(hand) {
		if points := yaniv.HandValue(option); points > bestPoints {
			bestPoints = points
		}
	}
	v := yaniv.HandValue(hand) - bestPoints
	b.bestResidualCache.put(key, v)
	return v
}

// stateSeed folds the observable turn state into a deterministic sampling
// seed, so evaluating the same position twice draws the same rollout.
func (b *Bot) stateSeed(hand []yaniv.Card) uint32 {
	vals := make([]int, 0, len(hand)+len(b.drawOptions)+len(b.opponents)+2)
	vals = append(vals, b.score)
	vals = append(vals, sortedIDs(hand)...)
	vals = append(vals, sortedIDs(b.drawOptions)...)
	vals = append(vals, len(b.publicPile))

	names := make([]string, 0, len(b.opponents))
	for name := range b.opponents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vals = append(vals, b.opponents[name].handCount)
	}

	var seed uint32 = 2166136261
	for _, v := range vals {
		seed ^= uint32(v) + 0x9E3779B9
		seed *= 16777619
	}
	return seed
}

func sortedIDs(cards []yaniv.Card) []int {
	ids := yaniv.CardIDs(cards)
	sort.Ints(ids)
	return ids
}

// deckRolloutContext picks the unseen cards that stand in for a blind deck
// draw, plus the variance of the whole unseen pool. When the pool is
// larger than the sample budget a state-seeded subset is drawn without
// replacement.
func (b *Bot) deckRolloutContext(hand []yaniv.Card) ([]yaniv.Card, float64) {
	unseen := b.unseenCards(hand)
	if len(unseen) == 0 {
		return nil, fallbackVariance
	}
	_, variance := meanAndVariance(unseen)
	if b.rolloutSamples >= len(unseen) {
		return unseen, variance
	}
	rng := rand.New(rand.NewSource(int64(b.stateSeed(hand))))
	sample := append([]yaniv.Card(nil), unseen...)
	rng.Shuffle(len(sample), func(i, j int) { sample[i], sample[j] = sample[j], sample[i] })
	return sample[:b.rolloutSamples], variance
}

type deckEval struct {
	future      float64
	immediate   float64
	composition float64
	reset       float64
}

// evaluateDeckDraw averages one-turn simulations over the sampled unseen
// cards. With no samples at all it assumes a mean-value draw.
func (b *Bot) evaluateDeckDraw(postHand, samples []yaniv.Card, yanivProb float64, prune bool) deckEval {
	postSum := yaniv.HandValue(postHand)
	if len(samples) == 0 {
		immediate := float64(postSum) + fallbackMeanValue
		return deckEval{
			future:    float64(b.bestResidual(postHand)),
			immediate: immediate,
			reset:     b.resetBonus(immediate, yanivProb),
		}
	}
	var eval deckEval
	for _, c := range samples {
		future, discard := b.simulateAction(postHand, c, prune)
		eval.future += future
		total := float64(postSum + c.Value())
		eval.immediate += total
		eval.reset += b.resetBonus(total, yanivProb)
		eval.composition += compositionBonus(residualHand(postHand, c, discard))
	}
	n := float64(len(samples))
	eval.future /= n
	eval.immediate /= n
	eval.composition /= n
	eval.reset /= n
	return eval
}

// residualHand is the hand left after drawing a card and making the given
// follow-up discard.
func residualHand(postHand []yaniv.Card, draw yaniv.Card, discard []yaniv.Card) []yaniv.Card {
	next := make([]yaniv.Card, 0, len(postHand)+1)
	next = append(next, postHand...)
	next = append(next, draw)
	return removeCards(next, discard)
}

// compositionBonus rewards hands that are close to melding: each rank held
// more than once counts n-1, the best suit counts the length of its
// longest near-run (rank gaps of at most two) minus one, and every joker
// adds half a point.
func compositionBonus(hand []yaniv.Card) float64 {
	rankCount := make(map[int]int)
	suitRanks := make(map[int][]int)
	jokers := 0
	for _, c := range hand {
		if c.IsJoker() {
			jokers++
			continue
		}
		rankCount[c.RankIndex()]++
		suitRanks[c.SuitIndex()] = append(suitRanks[c.SuitIndex()], c.RankIndex())
	}

	bonus := 0.0
	for _, n := range rankCount {
		if n >= 2 {
			bonus += float64(n - 1)
		}
	}

	bestRun := 0
	for _, ranks := range suitRanks {
		if len(ranks) < 2 {
			continue
		}
		sort.Ints(ranks)
		runLen, best := 1, 1
		for i := 1; i < len(ranks); i++ {
			if ranks[i]-ranks[i-1] <= 2 {
				runLen++
			} else {
				runLen = 1
			}
			if runLen > best {
				best = runLen
			}
		}
		if best > bestRun {
			bestRun = best
		}
	}
	if bestRun >= 2 {
		bonus += float64(bestRun - 1)
	}

	return bonus + 0.5*float64(jokers)
}

// resetBonus rewards ending the turn on a hand total that would land the
// score exactly on 50 or 100 if an opponent declared right now, scaled by
// how likely that declaration looks.
func (b *Bot) resetBonus(handTotal, declareProb float64) float64 {
	projected := float64(b.score) + handTotal
	if projected != 50 && projected != 100 {
		return 0
	}
	factor := 0.75
	if handTotal <= 5 {
		factor = 0.25
	} else if handTotal <= 7 {
		factor = 0.55
	}
	return math.Min(24.0, 50.0*declareProb*factor)
}
