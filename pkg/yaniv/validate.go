package yaniv

import "sort"

// ValidateDiscard reports whether cards form a legal discard: a single
// card, a set whose non-jokers share one rank, or a run of three or more
// consecutive cards in one suit with jokers standing in for missing ranks.
// When the cards validate as a run the second return is the run in pickup
// order; otherwise it is nil.
func ValidateDiscard(cards []Card) (bool, []Card) {
	if len(cards) == 0 {
		return false, nil
	}
	if len(cards) == 1 {
		return true, nil
	}
	allJokers := true
	for _, c := range cards {
		if !c.IsJoker() {
			allJokers = false
			break
		}
	}
	if allJokers {
		return true, nil
	}
	if isSameRank(cards) {
		return true, nil
	}
	if run := runOrder(cards); run != nil {
		return true, run
	}
	return false, nil
}

// DrawOptions returns the pile pickup options for the given last discard.
// A run only exposes its two ends; anything else exposes every card.
func DrawOptions(lastDiscard []Card) []Card {
	if run := runOrder(lastDiscard); run != nil {
		return []Card{run[0], run[len(run)-1]}
	}
	out := make([]Card, len(lastDiscard))
	copy(out, lastDiscard)
	return out
}

// isSameRank reports whether every non-joker in cards shares one rank.
// Callers guarantee at least one non-joker.
func isSameRank(cards []Card) bool {
	rank := -1
	for _, c := range cards {
		if c.IsJoker() {
			continue
		}
		if rank < 0 {
			rank = c.RankIndex()
		} else if c.RankIndex() != rank {
			return false
		}
	}
	return true
}

// runOrder arranges cards as a run, or returns nil when they cannot form
// one. Non-jokers must share a suit and be strictly increasing by rank,
// with jokers covering the interior gaps. Jokers beyond those needed for
// gaps extend an end of the run; the low end is closed below rank A and
// the high end above rank K, and a joker that fits neither end makes the
// whole run illegal.
func runOrder(cards []Card) []Card {
	if len(cards) < 3 {
		return nil
	}
	var nonJokers []Card
	for _, c := range cards {
		if !c.IsJoker() {
			nonJokers = append(nonJokers, c)
		}
	}
	if len(nonJokers) == 0 {
		return nil
	}
	suit := nonJokers[0].SuitIndex()
	for _, c := range nonJokers[1:] {
		if c.SuitIndex() != suit {
			return nil
		}
	}
	ordered := make([]Card, len(nonJokers))
	copy(ordered, nonJokers)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].RankIndex() < ordered[j].RankIndex() })
	gapTotal := 0
	for i := 1; i < len(ordered); i++ {
		diff := ordered[i].RankIndex() - ordered[i-1].RankIndex()
		if diff == 0 {
			return nil
		}
		gapTotal += diff - 1
	}
	jokerCount := len(cards) - len(nonJokers)
	if gapTotal > jokerCount {
		return nil
	}

	// Partition jokers by where they were played relative to the first and
	// last non-joker, so gap fillers keep their played order.
	first, last := -1, -1
	for i, c := range cards {
		if !c.IsJoker() {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	var leading, interior, trailing []Card
	for i, c := range cards {
		if !c.IsJoker() {
			continue
		}
		switch {
		case i < first:
			leading = append(leading, c)
		case i > last:
			trailing = append(trailing, c)
		default:
			interior = append(interior, c)
		}
	}

	// Interior jokers fill gaps first, then leading from the run side out,
	// then trailing.
	takeFiller := func() Card {
		switch {
		case len(interior) > 0:
			c := interior[0]
			interior = interior[1:]
			return c
		case len(leading) > 0:
			c := leading[len(leading)-1]
			leading = leading[:len(leading)-1]
			return c
		default:
			c := trailing[0]
			trailing = trailing[1:]
			return c
		}
	}
	run := make([]Card, 0, len(cards))
	run = append(run, ordered[0])
	for i := 1; i < len(ordered); i++ {
		for r := ordered[i-1].RankIndex() + 1; r < ordered[i].RankIndex(); r++ {
			run = append(run, takeFiller())
		}
		run = append(run, ordered[i])
	}

	low := ordered[0].RankIndex()
	high := ordered[len(ordered)-1].RankIndex()
	placeLow := func(c Card) bool {
		switch {
		case low > 1:
			low--
			run = append([]Card{c}, run...)
		case high < 13:
			high++
			run = append(run, c)
		default:
			return false
		}
		return true
	}
	placeHigh := func(c Card) bool {
		switch {
		case high < 13:
			high++
			run = append(run, c)
		case low > 1:
			low--
			run = append([]Card{c}, run...)
		default:
			return false
		}
		return true
	}
	// Leftover jokers that were played before the run prefer the low end;
	// trailing ones prefer the high end. Prepending walks outward, so the
	// low-end group is consumed in reverse to keep its played order.
	lowGroup := append(append([]Card(nil), leading...), interior...)
	for i := len(lowGroup) - 1; i >= 0; i-- {
		if !placeLow(lowGroup[i]) {
			return nil
		}
	}
	for _, c := range trailing {
		if !placeHigh(c) {
			return nil
		}
	}
	return run
}
