package bot

import (
	"math"

	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// Weights of the one-turn action score. future residual dominates; the
// rest nudge ties toward safer discards.
const (
	threatWeight      = 0.06
	feedWeight        = 0.22
	jokerWeight       = 0.08
	uncertaintyWeight = 0.04
	compositionWeight = 0.10
)

// declareThresholds maps own hand value to the assaf risk the bot accepts
// when declaring. Anything above five points never declares.
var declareThresholds = map[int]float64{
	0: 0.60,
	1: 0.55,
	2: 0.45,
	3: 0.32,
	4: 0.20,
	5: 0.12,
}

// syncView refreshes the bot's picture of the table from its own turn
// view. Turns it observed while waiting already primed the opponent model.
func (b *Bot) syncView(view yaniv.TurnView) {
	b.score = view.Score
	b.publicPile = append(b.publicPile[:0], view.DiscardPile...)
	b.drawOptions = append(b.drawOptions[:0], view.DrawOptions...)
}

// DecideAction scores every legal discard against every draw source and
// returns the pair with the lowest expected cost. Pile draws are evaluated
// exactly; deck draws are averaged over a sampled rollout of unseen cards
// with a variance surcharge.
func (b *Bot) DecideAction(view yaniv.TurnView) yaniv.Action {
	b.syncView(view)
	b.refreshEstimates(view.Hand)

	if action, ok := b.actionToReset(view); ok {
		return action
	}

	threat := b.threatScore()
	yanivProb := b.yanivNextTurnProbability()
	knownRanks, knownSuitRanks := b.knownCardIndexes()
	samples, deckVar := b.deckRolloutContext(view.Hand)
	uncertainty := uncertaintyWeight * math.Sqrt(deckVar) * (1 + threat)

	bestScore := 0.0
	bestValue := -1
	var best yaniv.Action
	found := false
	consider := func(score float64, value int, action yaniv.Action) {
		if !found || score < bestScore || (score == bestScore && value > bestValue) {
			bestScore, bestValue, best, found = score, value, action, true
		}
	}

	for _, option := range b.discardOptions(view.Hand) {
		postHand := removeCards(view.Hand, option)
		postSum := yaniv.HandValue(postHand)
		value := yaniv.HandValue(option)
		feed := b.feedPenalty(option, knownRanks, knownSuitRanks)
		jokerPen := 1.5 * float64(countJokers(option))

		for i, draw := range view.DrawOptions {
			future, nextDiscard := b.simulateAction(postHand, draw, false)
			immediate := float64(postSum + draw.Value())
			cost := threatWeight*threat*immediate + feedWeight*feed + jokerWeight*jokerPen
			score := future + cost -
				b.resetBonus(immediate, yanivProb) -
				compositionWeight*compositionBonus(residualHand(postHand, draw, nextDiscard))
			consider(score, value, yaniv.Action{Discard: option, Draw: i})
		}

		eval := b.evaluateDeckDraw(postHand, samples, yanivProb, false)
		cost := threatWeight*threat*eval.immediate + feedWeight*feed + jokerWeight*jokerPen
		score := eval.future + cost + uncertainty - eval.reset - compositionWeight*eval.composition
		consider(score, value, yaniv.Action{Discard: option, Draw: yaniv.DrawDeck})
	}

	if !found {
		return b.actionToMinimizeScore(view)
	}
	return best
}

// actionToReset hunts for a discard/pile-draw pair that would leave the
// score on exactly 50 or 100 if an opponent declared right now, turning
// the coming round loss into a reset. Only tried once an opponent looks
// ready to declare.
func (b *Bot) actionToReset(view yaniv.TurnView) (yaniv.Action, bool) {
	ready := false
	for _, rec := range b.opponents {
		if rec.estimatedScore <= 5 {
			ready = true
			break
		}
	}
	if !ready {
		return yaniv.Action{}, false
	}

	handSum := yaniv.HandValue(view.Hand)
	for _, option := range b.discardOptions(view.Hand) {
		value := yaniv.HandValue(option)
		for i, draw := range view.DrawOptions {
			projected := view.Score + handSum - value + draw.Value()
			if projected == 50 || projected == 100 {
				return yaniv.Action{Discard: option, Draw: i}, true
			}
		}
	}
	return yaniv.Action{}, false
}

// actionToMinimizeScore is the conservative fallback: shed the most points
// and draw blind, unless a pile draw simulates strictly better.
func (b *Bot) actionToMinimizeScore(view yaniv.TurnView) yaniv.Action {
	options := b.bestDiscardOptions(view.Hand)
	if len(options) == 0 {
		options = b.discardOptions(view.Hand)
	}
	bestValue := yaniv.HandValue(options[0])
	bestTotal := float64(yaniv.HandValue(view.Hand) - bestValue)
	best := yaniv.Action{Discard: options[0], Draw: yaniv.DrawDeck}

	for _, option := range b.discardOptions(view.Hand) {
		postHand := removeCards(view.Hand, option)
		value := yaniv.HandValue(option)
		for i, draw := range view.DrawOptions {
			future, _ := b.simulateAction(postHand, draw, true)
			if future < bestTotal || (future == bestTotal && value < bestValue) {
				bestTotal = future
				bestValue = value
				best = yaniv.Action{Discard: option, Draw: i}
			}
		}
	}
	return best
}

// feedPenalty estimates how much a discard helps the opponents: low cards
// are generally useful to them, cards matching ranks or neighboring
// suit-ranks they hold or have been collecting are worse, and ranks they
// themselves threw away recently are safer.
func (b *Bot) feedPenalty(option []yaniv.Card, knownRanks map[int]bool, knownSuitRanks map[int]map[int]bool) float64 {
	total := 0.0
	for _, c := range option {
		if c.IsJoker() {
			total += 4.0
			continue
		}
		switch v := c.Value(); {
		case v <= 3:
			total += 1.5
		case v <= 5:
			total += 1.0
		default:
			total += 0.2
		}

		rank := c.RankIndex()
		if knownRanks[rank] {
			total += 1.3
		}
		if sr := knownSuitRanks[c.SuitIndex()]; sr != nil && (sr[rank] || sr[rank-1] || sr[rank+1]) {
			total += 0.8
		}

		for _, rec := range b.opponents {
			total += 2.0 * float64(rec.collectedRanks[rank])
			if sr := rec.collectedSuitRanks[c.SuitIndex()]; sr != nil {
				if sr[rank-1] && sr[rank+1] {
					total += 2.5
				} else if sr[rank-1] || sr[rank+1] {
					total += 1.5
				}
			}
		}
		for _, rec := range b.opponents {
			if rec.recentlyDiscardedRank(rank) {
				total -= 0.6
				break
			}
		}
	}
	return total
}

// ShouldDeclareYaniv weighs the assaf risk against a threshold that
// shrinks as the bot's own score grows and as opponents close in on a
// score reset of their own.
func (b *Bot) ShouldDeclareYaniv(view yaniv.TurnView) bool {
	own := yaniv.HandValue(view.Hand)
	if own > yaniv.YanivThreshold {
		return false
	}
	b.syncView(view)
	b.refreshEstimates(view.Hand)

	if len(b.opponents) == 0 {
		return own <= 2
	}

	mean, variance := meanAndVariance(b.unseenCards(view.Hand))
	noAssaf := 1.0
	for _, rec := range b.opponents {
		noAssaf *= 1 - assafProbability(own, rec, mean, variance)
	}
	risk := 1 - noAssaf

	threshold, ok := declareThresholds[own]
	if !ok {
		threshold = 0.10
	}
	scale := float64(view.Score) / 100
	if scale > 1 {
		scale = 1
	}
	threshold *= 1 - 0.35*scale
	if threshold < 0.03 {
		threshold = 0.03
	}
	threshold -= 0.04 * b.resetImpact()

	return risk <= threshold
}

// assafProbability approximates the chance one opponent holds a hand at or
// below the declarer's total, treating their unknown cards as draws from a
// normal fit of the unseen pool.
func assafProbability(own int, rec *opponentRecord, meanUnseen, varUnseen float64) float64 {
	known := rec.knownSum()
	unknown := rec.unknownCount()
	if unknown == 0 {
		if known <= own {
			return 1.0
		}
		return 0.0
	}
	expected := float64(known) + float64(unknown)*meanUnseen
	variance := math.Max(0.01, float64(unknown)*varUnseen)
	z := (float64(own) + 0.5 - expected) / math.Sqrt(variance)
	cdf := 0.5 * (1 + math.Erf(z/math.Sqrt2))
	if cdf < 0.01 {
		return 0.01
	}
	if cdf > 0.99 {
		return 0.99
	}
	return cdf
}
