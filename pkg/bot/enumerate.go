package bot

import (
	"sort"

	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

// discardOptions enumerates the hand's candidate discards: each card
// alone, every same-rank group with every subset of held jokers, and every
// same-suit group whose rank gaps the jokers can fill, including variants
// that spend a leftover joker to extend the run below or above. Multi-joker
// discards with no natural card are skipped; jokers are worth zero, so they
// shed no points.
func (b *Bot) discardOptions(hand []yaniv.Card) [][]yaniv.Card {
	key := signature(hand)
	if opts, ok := b.discardOptionsCache.get(key); ok {
		return opts
	}

	options := make([][]yaniv.Card, 0, len(hand)+4)
	for _, c := range hand {
		options = append(options, []yaniv.Card{c})
	}

	var nonJokers, jokers []yaniv.Card
	for _, c := range hand {
		if c.IsJoker() {
			jokers = append(jokers, c)
		} else {
			nonJokers = append(nonJokers, c)
		}
	}

	for size := 2; size <= len(nonJokers); size++ {
		combinations(nonJokers, size, func(combo []yaniv.Card) {
			if sameRank(combo) {
				jokerSubsets(jokers, func(js []yaniv.Card) {
					opt := make([]yaniv.Card, 0, len(combo)+len(js))
					opt = append(opt, combo...)
					opt = append(opt, js...)
					options = append(options, opt)
				})
				return
			}
			if !sameSuit(combo) {
				return
			}
			options = appendRunOptions(options, combo, jokers)
		})
	}

	b.discardOptionsCache.put(key, options)
	return options
}

// appendRunOptions turns a same-suit combo into run candidates. Interior
// rank gaps consume jokers first; any joker left over can extend the run
// one rank down (above ace) or one rank up (below king). The gap-filled
// run itself is only a candidate once it reaches three cards.
func appendRunOptions(options [][]yaniv.Card, combo, jokers []yaniv.Card) [][]yaniv.Card {
	sorted := append([]yaniv.Card(nil), combo...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RankIndex() < sorted[j].RankIndex() })

	gaps := 0
	for i := 0; i+1 < len(sorted); i++ {
		gaps += sorted[i+1].RankIndex() - sorted[i].RankIndex() - 1
	}
	if gaps > len(jokers) {
		return options
	}

	run := make([]yaniv.Card, 0, len(sorted)+gaps)
	next := 0
	for i, c := range sorted {
		run = append(run, c)
		if i+1 < len(sorted) {
			for g := sorted[i+1].RankIndex() - c.RankIndex() - 1; g > 0; g-- {
				run = append(run, jokers[next])
				next++
			}
		}
	}

	low := sorted[0].RankIndex()
	high := sorted[len(sorted)-1].RankIndex()
	for _, j := range jokers[next:] {
		if low > 1 {
			opt := make([]yaniv.Card, 0, len(run)+1)
			opt = append(opt, j)
			opt = append(opt, run...)
			options = append(options, opt)
		}
		if high < 13 {
			opt := make([]yaniv.Card, 0, len(run)+1)
			opt = append(opt, run...)
			opt = append(opt, j)
			options = append(options, opt)
		}
	}
	if len(run) >= 3 {
		options = append(options, run)
	}
	return options
}

func sameRank(cards []yaniv.Card) bool {
	for _, c := range cards[1:] {
		if c.RankIndex() != cards[0].RankIndex() {
			return false
		}
	}
	return true
}

func sameSuit(cards []yaniv.Card) bool {
	for _, c := range cards[1:] {
		if c.SuitIndex() != cards[0].SuitIndex() {
			return false
		}
	}
	return true
}

// combinations calls fn with every size-k pick of cards, in index order.
// The slice passed to fn is reused between calls; fn must copy it if it
// keeps it.
func combinations(cards []yaniv.Card, k int, fn func([]yaniv.Card)) {
	scratch := make([]yaniv.Card, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			fn(scratch)
			return
		}
		for i := start; i <= len(cards)-(k-depth); i++ {
			scratch[depth] = cards[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
}

// jokerSubsets calls fn with every subset of the jokers, smallest first,
// starting with the empty subset.
func jokerSubsets(jokers []yaniv.Card, fn func([]yaniv.Card)) {
	for k := 0; k <= len(jokers); k++ {
		combinations(jokers, k, fn)
	}
}
