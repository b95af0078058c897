package bot

import (
	"math"

	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// Defaults used when every card is accounted for and there is nothing left
// to estimate from.
const (
	fallbackMeanValue = 5.0
	fallbackVariance  = 8.0
)

// opponentRecord is everything the bot knows about one other seat within
// the current round. knownCards shrinks when the opponent discards a card
// we saw them pick up; the collected maps only ever grow, they track what
// the opponent appears to be building even after the exact cards leave
// their hand.
type opponentRecord struct {
	currentScore   int
	handCount      int
	knownCards     []yaniv.Card
	estimatedScore float64

	pickupHistory  []yaniv.Card
	discardHistory []yaniv.Card

	collectedRanks     map[int]int
	collectedSuitRanks map[int]map[int]bool
}

func newOpponentRecord(score int) *opponentRecord {
	return &opponentRecord{
		currentScore:       score,
		handCount:          yaniv.HandSize,
		estimatedScore:     50,
		collectedRanks:     make(map[int]int),
		collectedSuitRanks: make(map[int]map[int]bool),
	}
}

// forgetCard drops the first matching card from knownCards, if present.
func (r *opponentRecord) forgetCard(c yaniv.Card) {
	for i, k := range r.knownCards {
		if k == c {
			r.knownCards = append(r.knownCards[:i], r.knownCards[i+1:]...)
			return
		}
	}
}

// recordPickup marks a pile pickup: the card is now known to be in the
// opponent's hand, and non-jokers feed the collection signals.
func (r *opponentRecord) recordPickup(c yaniv.Card) {
	r.knownCards = append(r.knownCards, c)
	r.pickupHistory = append(r.pickupHistory, c)
	if c.IsJoker() {
		return
	}
	r.collectedRanks[c.RankIndex()]++
	suit := c.SuitIndex()
	if r.collectedSuitRanks[suit] == nil {
		r.collectedSuitRanks[suit] = make(map[int]bool)
	}
	r.collectedSuitRanks[suit][c.RankIndex()] = true
}

func (r *opponentRecord) knownSum() int {
	return yaniv.HandValue(r.knownCards)
}

func (r *opponentRecord) unknownCount() int {
	n := r.handCount - len(r.knownCards)
	if n < 0 {
		return 0
	}
	return n
}

// recentlyDiscardedRank reports whether the opponent shed a card of this
// rank earlier in the round.
func (r *opponentRecord) recentlyDiscardedRank(rank int) bool {
	for _, c := range r.discardHistory {
		if c.RankIndex() == rank {
			return true
		}
	}
	return false
}

// unseenCards lists every card not visible to the bot: not in its hand, not
// a draw option, not in the public pile and not known to sit in an
// opponent's hand.
func (b *Bot) unseenCards(hand []yaniv.Card) []yaniv.Card {
	seen := make(map[yaniv.Card]bool, yaniv.DeckSize)
	for _, c := range hand {
		seen[c] = true
	}
	for _, c := range b.drawOptions {
		seen[c] = true
	}
	for _, c := range b.publicPile {
		seen[c] = true
	}
	for _, rec := range b.opponents {
		for _, c := range rec.knownCards {
			seen[c] = true
		}
	}
	out := make([]yaniv.Card, 0, yaniv.DeckSize-len(seen))
	for id := 0; id < yaniv.DeckSize; id++ {
		if c := yaniv.Card(id); !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// meanAndVariance returns the mean and population variance of the card
// values. Empty input falls back to a neutral prior.
func meanAndVariance(cards []yaniv.Card) (float64, float64) {
	if len(cards) == 0 {
		return fallbackMeanValue, fallbackVariance
	}
	sum := 0.0
	for _, c := range cards {
		sum += float64(c.Value())
	}
	mean := sum / float64(len(cards))
	varSum := 0.0
	for _, c := range cards {
		d := float64(c.Value()) - mean
		varSum += d * d
	}
	return mean, varSum / float64(len(cards))
}

// refreshEstimates recomputes each opponent's estimated hand value: the
// known cards at face value plus the unseen-card mean for every unknown
// slot.
func (b *Bot) refreshEstimates(hand []yaniv.Card) {
	mean, _ := meanAndVariance(b.unseenCards(hand))
	for _, rec := range b.opponents {
		rec.estimatedScore = float64(rec.knownSum()) + float64(rec.unknownCount())*mean
	}
}

// threatScore rates how close the most dangerous opponent looks to
// declaring. Low estimated hands and short hands raise it; it is capped at
// 1.5.
func (b *Bot) threatScore() float64 {
	threat := 0.0
	for _, rec := range b.opponents {
		t := (8.0 - rec.estimatedScore) / 8.0
		if t < 0 {
			t = 0
		}
		if rec.handCount <= 2 {
			t += 0.30
		}
		if rec.handCount <= 1 {
			t += 0.25
		}
		if t > threat {
			threat = t
		}
	}
	return math.Min(threat, 1.5)
}

// yanivNextTurnProbability estimates the chance that at least one opponent
// declares on their next turn.
func (b *Bot) yanivNextTurnProbability() float64 {
	noDeclare := 1.0
	any := false
	for _, rec := range b.opponents {
		est := rec.estimatedScore
		if est > 6.5 {
			continue
		}
		var p float64
		if est <= 5 {
			p = 0.55 + (5-est)*0.08
		} else {
			p = 0.18 + (6.5-est)*0.25
		}
		if rec.handCount <= 2 {
			p += 0.10
		} else if rec.handCount == 3 {
			p += 0.05
		}
		for _, c := range rec.knownCards {
			if c.Value() <= 3 {
				p += 0.03
			}
		}
		if p < 0 {
			p = 0
		}
		if p > 0.92 {
			p = 0.92
		}
		noDeclare *= 1 - p
		any = true
	}
	if !any {
		return 0
	}
	return 1 - noDeclare
}

// knownCardIndexes aggregates the ranks and suit/rank slots sitting in
// opponents' hands right now, used to avoid feeding them.
func (b *Bot) knownCardIndexes() (map[int]bool, map[int]map[int]bool) {
	ranks := make(map[int]bool)
	suitRanks := make(map[int]map[int]bool)
	for _, rec := range b.opponents {
		for _, c := range rec.knownCards {
			if c.IsJoker() {
				continue
			}
			ranks[c.RankIndex()] = true
			suit := c.SuitIndex()
			if suitRanks[suit] == nil {
				suitRanks[suit] = make(map[int]bool)
			}
			suitRanks[suit][c.RankIndex()] = true
		}
	}
	return ranks, suitRanks
}

// resetImpact measures how likely declaring now is to hand an opponent a
// score reset: for every opponent sitting within two points of landing
// exactly on 50 or 100, the shortfall counts toward the impact. Capped at
// 4.
func (b *Bot) resetImpact() float64 {
	impact := 0.0
	for _, rec := range b.opponents {
		for _, target := range [...]int{50, 100} {
			if rec.currentScore >= target {
				continue
			}
			d := math.Abs(float64(rec.currentScore) + rec.estimatedScore - float64(target))
			if d <= 2 {
				impact += 2.0 - d
			}
		}
	}
	return math.Min(impact, 4.0)
}
