package bot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// defaultRolloutSamples is the number of deck cards sampled when scoring a
// blind draw. Larger values cost more per turn and change little in
// practice.
const defaultRolloutSamples = 24

// Config tunes a Bot.
type Config struct {
	// Name must match the seat the bot plays. Observations about every
	// other seat are tracked by name.
	Name string

	// RolloutSamples caps how many unseen cards are sampled per deck
	// rollout. Values below 4 are raised to 4; zero means the default.
	RolloutSamples int
}

// Bot plays a seat by simulating one turn ahead. It watches every turn in
// the round, remembers which cards opponents picked up, and scores each
// legal discard/draw pair by the expected residual hand value after the
// following discard, adjusted by heuristics for feeding opponents and for
// landing on a score reset.
//
// Bot is not safe for concurrent use; the game loop calls it from a single
// goroutine.
type Bot struct {
	name           string
	rolloutSamples int

	score       int
	opponents   map[string]*opponentRecord
	drawOptions []yaniv.Card
	publicPile  []yaniv.Card

	discardOptionsCache *memoCache[[][]yaniv.Card]
	bestOptionsCache    *memoCache[[][]yaniv.Card]
	bestResidualCache   *memoCache[int]
	simulateCache       *memoCache[simResult]
}

var _ yaniv.Agent = (*Bot)(nil)

// New returns a Bot for the named seat.
func New(cfg Config) *Bot {
	samples := cfg.RolloutSamples
	if samples <= 0 {
		samples = defaultRolloutSamples
	}
	if samples < 4 {
		samples = 4
	}
	return &Bot{
		name:                cfg.Name,
		rolloutSamples:      samples,
		opponents:           make(map[string]*opponentRecord),
		discardOptionsCache: newMemoCache[[][]yaniv.Card](memoCacheCap),
		bestOptionsCache:    newMemoCache[[][]yaniv.Card](memoCacheCap),
		bestResidualCache:   newMemoCache[int](memoCacheCap),
		simulateCache:       newMemoCache[simResult](memoCacheCap),
	}
}

// Name returns the seat name the bot was built for.
func (b *Bot) Name() string { return b.name }

// ObserveRound resets all per-round tracking when a new round is dealt.
// Every opponent starts as five unknown cards.
func (b *Bot) ObserveRound(seats []yaniv.SeatInfo) {
	b.opponents = make(map[string]*opponentRecord)
	for _, s := range seats {
		if s.Name == b.name {
			b.score = s.Score
			continue
		}
		b.opponents[s.Name] = newOpponentRecord(s.Score)
	}
	b.drawOptions = nil
	b.publicPile = nil
	b.discardOptionsCache.clear()
	b.bestOptionsCache.clear()
	b.bestResidualCache.clear()
	b.simulateCache.clear()
}

// ObserveTurn folds another player's completed turn into the opponent
// model: discarded cards leave their known hand, a pile pickup joins it.
func (b *Bot) ObserveTurn(turn yaniv.TurnRecord, discardPile, drawOptions []yaniv.Card) {
	b.publicPile = append(b.publicPile[:0], discardPile...)
	b.drawOptions = append(b.drawOptions[:0], drawOptions...)

	rec, ok := b.opponents[turn.PlayerName]
	if !ok {
		return
	}
	rec.handCount = turn.HandCount
	for _, c := range turn.Discarded {
		rec.forgetCard(c)
		rec.discardHistory = append(rec.discardHistory, c)
	}
	if turn.DrawnCard != nil {
		rec.recordPickup(*turn.DrawnCard)
	}
}

// signature is the cache key for a hand: its card ids, sorted and joined.
func signature(cards []yaniv.Card) string {
	ids := make([]int, len(cards))
	for i, c := range cards {
		ids[i] = int(c)
	}
	sort.Ints(ids)
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(id))
	}
	return sb.String()
}

func countJokers(cards []yaniv.Card) int {
	n := 0
	for _, c := range cards {
		if c.IsJoker() {
			n++
		}
	}
	return n
}

// removeCards returns hand minus the given cards, matching each at most
// once. Order of the survivors is preserved.
func removeCards(hand, cards []yaniv.Card) []yaniv.Card {
	out := make([]yaniv.Card, len(hand))
	copy(out, hand)
	for _, c := range cards {
		for i, h := range out {
			if h == c {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return out
}
