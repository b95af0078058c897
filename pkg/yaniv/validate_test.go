package yaniv

import "testing"

func cards(specs ...[2]string) []Card {
	out := make([]Card, len(specs))
	for i, s := range specs {
		out[i] = CardOf(s[0], s[1])
	}
	return out
}

func TestValidateSingleCard(t *testing.T) {
	ok, run := ValidateDiscard(cards([2]string{"7", "Hearts"}))
	if !ok || run != nil {
		t.Errorf("Single card should be valid and not a run, got ok=%v run=%v", ok, run)
	}
	if ok, _ := ValidateDiscard([]Card{Card(0)}); !ok {
		t.Error("Single joker should be valid")
	}
	if ok, _ := ValidateDiscard(nil); ok {
		t.Error("Empty discard should be invalid")
	}
}

func TestValidateSets(t *testing.T) {
	valid := [][]Card{
		cards([2]string{"7", "Hearts"}, [2]string{"7", "Spades"}),
		cards([2]string{"7", "Hearts"}, [2]string{"7", "Spades"}, [2]string{"7", "Clubs"}),
		{CardOf("7", "Hearts"), CardOf("7", "Spades"), Card(0)},
		{Card(0), Card(1)}, // all jokers
	}
	for _, d := range valid {
		if ok, _ := ValidateDiscard(d); !ok {
			t.Errorf("Expected valid set: %v", d)
		}
	}

	invalid := [][]Card{
		cards([2]string{"7", "Hearts"}, [2]string{"8", "Hearts"}),
		cards([2]string{"4", "Hearts"}, [2]string{"5", "Hearts"}), // two-card run is not legal
		cards([2]string{"7", "Hearts"}, [2]string{"8", "Spades"}),
	}
	for _, d := range invalid {
		if ok, _ := ValidateDiscard(d); ok {
			t.Errorf("Expected invalid discard: %v", d)
		}
	}
}

func TestValidateRuns(t *testing.T) {
	ok, run := ValidateDiscard(cards([2]string{"2", "Hearts"}, [2]string{"3", "Hearts"}, [2]string{"4", "Hearts"}))
	if !ok || len(run) != 3 {
		t.Fatalf("Expected valid 3 card run, got ok=%v run=%v", ok, run)
	}
	if run[0].Rank() != "2" || run[2].Rank() != "4" {
		t.Errorf("Run out of order: %v", run)
	}

	// Joker fills the interior gap
	ok, run = ValidateDiscard([]Card{CardOf("4", "Hearts"), Card(0), CardOf("6", "Hearts")})
	if !ok {
		t.Fatal("Joker should fill the 4-6 gap")
	}
	if !run[1].IsJoker() {
		t.Errorf("Expected joker in the middle, got %v", run)
	}

	// Leading joker extends the low end
	ok, run = ValidateDiscard([]Card{Card(0), CardOf("3", "Hearts"), CardOf("4", "Hearts")})
	if !ok || !run[0].IsJoker() {
		t.Errorf("Expected run with leading joker, got ok=%v run=%v", ok, run)
	}

	// Two jokers below a 4
	ok, run = ValidateDiscard([]Card{Card(0), Card(1), CardOf("4", "Hearts")})
	if !ok || !run[0].IsJoker() || !run[1].IsJoker() {
		t.Errorf("Expected run with two leading jokers, got ok=%v run=%v", ok, run)
	}

	invalid := [][]Card{
		cards([2]string{"2", "Hearts"}, [2]string{"3", "Hearts"}),                          // too short
		cards([2]string{"2", "Hearts"}, [2]string{"3", "Spades"}, [2]string{"4", "Hearts"}), // mixed suits
		cards([2]string{"2", "Hearts"}, [2]string{"4", "Hearts"}, [2]string{"5", "Hearts"}), // gap, no joker
		{CardOf("2", "Hearts"), Card(0), CardOf("5", "Hearts")},                             // gap of two, one joker
	}
	for _, d := range invalid {
		if ok, _ := ValidateDiscard(d); ok {
			t.Errorf("Expected invalid run: %v", d)
		}
	}
}

func TestRunJokerEndGating(t *testing.T) {
	// A trailing joker cannot stand for a rank above K; it falls back to
	// the low end when that side is open.
	ok, run := ValidateDiscard([]Card{CardOf("Q", "Hearts"), CardOf("K", "Hearts"), Card(0)})
	if !ok {
		t.Fatal("Q-K plus joker should be a valid run")
	}
	if !run[0].IsJoker() {
		t.Errorf("Joker should take the low end below Q, got %v", run)
	}

	// A leading joker cannot stand for a rank below A; it falls back high.
	ok, run = ValidateDiscard([]Card{Card(0), CardOf("A", "Hearts"), CardOf("2", "Hearts")})
	if !ok {
		t.Fatal("A-2 plus joker should be a valid run")
	}
	if !run[len(run)-1].IsJoker() {
		t.Errorf("Joker should take the high end above 2, got %v", run)
	}

	// With both ends closed the joker has nowhere to go
	full := make([]Card, 0, 14)
	for _, r := range []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"} {
		full = append(full, CardOf(r, "Hearts"))
	}
	full = append(full, Card(0))
	if ok, _ := ValidateDiscard(full); ok {
		t.Error("A joker beyond a full A-K run should be invalid")
	}
}

func TestDrawOptions(t *testing.T) {
	// A set exposes every card
	set := cards([2]string{"7", "Hearts"}, [2]string{"7", "Spades"})
	opts := DrawOptions(set)
	if len(opts) != 2 || opts[0] != set[0] || opts[1] != set[1] {
		t.Errorf("Set draw options = %v, want both cards", opts)
	}

	// A run exposes only its ends
	run := cards([2]string{"2", "Hearts"}, [2]string{"3", "Hearts"}, [2]string{"4", "Hearts"})
	opts = DrawOptions(run)
	if len(opts) != 2 || opts[0].Rank() != "2" || opts[1].Rank() != "4" {
		t.Errorf("Run draw options = %v, want the two ends", opts)
	}

	// A single non-joker with trailing jokers counts as a run; the high
	// end is a joker
	jokerRun := []Card{CardOf("7", "Hearts"), Card(0), Card(1)}
	opts = DrawOptions(jokerRun)
	if len(opts) != 2 || opts[0].Rank() != "7" || !opts[1].IsJoker() {
		t.Errorf("Joker run draw options = %v", opts)
	}

	// A single discarded card is its own only option
	single := cards([2]string{"9", "Clubs"})
	opts = DrawOptions(single)
	if len(opts) != 1 || opts[0] != single[0] {
		t.Errorf("Single card draw options = %v", opts)
	}
}

func TestValidatorIsSideEffectFree(t *testing.T) {
	in := []Card{CardOf("4", "Hearts"), Card(0), CardOf("6", "Hearts")}
	orig := append([]Card(nil), in...)
	ValidateDiscard(in)
	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("Validator mutated its input: %v != %v", in, orig)
		}
	}
}
