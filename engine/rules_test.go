package engine

import (
	"testing"
)

// allCards returns every deck card plus the missing card and a malformed one.
func allCards() []Card {
	cards := NewDeck(testRNG(10)).Cards()
	return append(cards, Card{}, Card{Rank: 99, Suit: 42}, Card{Rank: RankJoker, Suit: SuitHearts})
}

// TestCanPlayCardProperty checks CanPlayCard against its definition for every
// card and every (suit, rank, joker) combination, including missing values.
func TestCanPlayCardProperty(t *testing.T) {
	suits := append([]Suit{SuitNone, SuitJoker}, Suits[:]...)
	var ranks []Rank
	for r := RankNone; r <= RankJoker; r++ {
		ranks = append(ranks, r)
	}

	for _, c := range allCards() {
		for _, s := range suits {
			for _, r := range ranks {
				for _, joker := range []bool{false, true} {
					want := c.Valid() && (c.IsWild() || joker ||
						(s != SuitNone && c.Suit == s) ||
						(r != RankNone && c.Rank == r))
					if got := CanPlayCard(c, s, r, joker); got != want {
						t.Fatalf("CanPlayCard(%+v, %s, %s, %v) = %v, want %v", c, s, r, joker, got, want)
					}
				}
			}
		}
	}
}

func TestCanPlayCardCases(t *testing.T) {
	tests := []struct {
		name  string
		card  Card
		suit  Suit
		rank  Rank
		joker bool
		want  bool
	}{
		{"suit match", NewCard(RankNine, SuitSpades), SuitSpades, RankFive, false, true},
		{"rank match", NewCard(RankFive, SuitHearts), SuitSpades, RankFive, false, true},
		{"no match", NewCard(RankNine, SuitHearts), SuitSpades, RankFive, false, false},
		{"ace always", NewCard(RankAce, SuitClubs), SuitSpades, RankFive, false, true},
		{"joker always", NewJoker(2), SuitSpades, RankFive, false, true},
		{"after joker", NewCard(RankNine, SuitHearts), SuitSpades, RankFive, true, true},
		{"missing card", Card{}, SuitSpades, RankFive, true, false},
		{"missing suit and rank", NewCard(RankNine, SuitHearts), SuitNone, RankNone, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanPlayCard(tt.card, tt.suit, tt.rank, tt.joker); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindFirstPlayableIndex(t *testing.T) {
	match := MatchState{Suit: SuitHearts, Rank: RankSeven}
	hand := []Card{
		NewCard(RankTwo, SuitClubs),
		NewJoker(1),
		NewCard(RankSeven, SuitSpades),
	}
	if got := FindFirstPlayableIndex(hand, match, false); got != 1 {
		t.Errorf("index = %d, want 1 (first match in hand order, wild or not)", got)
	}
	if got := FindFirstPlayableIndex(hand[:1], match, false); got != -1 {
		t.Errorf("index = %d, want -1", got)
	}
	if got := FindFirstPlayableIndex(hand[:1], match, true); got != 0 {
		t.Errorf("index with joker flag = %d, want 0", got)
	}
	if HasPlayableCard(nil, match, true) {
		t.Error("empty hand should have no playable card")
	}
}

func TestChooseBestSuitForComputer(t *testing.T) {
	hand := []Card{
		NewCard(RankThree, SuitHearts),
		NewCard(RankFour, SuitHearts),
		NewCard(RankFive, SuitClubs),
		NewCard(RankSix, SuitClubs),
		NewCard(RankSeven, SuitClubs),
		NewCard(RankAce, SuitDiamonds),
		NewJoker(1),
	}

	if got := ChooseBestSuitForComputer(hand, 0); got != SuitClubs {
		t.Errorf("best = %s, want clubs", got)
	}
	if got := ChooseBestSuitForComputer(hand, SuitSet(0).With(SuitClubs)); got != SuitHearts {
		t.Errorf("best excluding clubs = %s, want hearts", got)
	}
	// Wild cards do not count: diamonds only holds an Ace.
	excl := SuitSet(0).With(SuitClubs).With(SuitHearts)
	if got := ChooseBestSuitForComputer(hand, excl); got != SuitSpades {
		t.Errorf("best excluding clubs+hearts = %s, want spades (tie at zero, first in order)", got)
	}

	tie := []Card{NewCard(RankNine, SuitDiamonds), NewCard(RankNine, SuitHearts)}
	if got := ChooseBestSuitForComputer(tie, 0); got != SuitHearts {
		t.Errorf("tie = %s, want hearts (earlier in order)", got)
	}

	if got := ChooseBestSuitForComputer(nil, 0); got != DefaultSuit {
		t.Errorf("empty hand = %s, want default", got)
	}

	// Only wild cards left: the first unchosen suit, not DefaultSuit.
	wildsOnly := []Card{NewJoker(1), NewCard(RankAce, SuitClubs)}
	if got := ChooseBestSuitForComputer(wildsOnly, SuitSet(0).With(SuitSpades)); got != SuitHearts {
		t.Errorf("wilds only, spades chosen = %s, want hearts", got)
	}

	var full SuitSet
	for _, s := range Suits {
		full = full.With(s)
	}
	if got := ChooseBestSuitForComputer(hand, full); got != DefaultSuit {
		t.Errorf("all chosen = %s, want default fallback", got)
	}
}

// TestChooseBestSuitNeverReturnsExcluded checks every chosen-set against a
// spread of hands: an excluded suit comes back only when all four are excluded.
func TestChooseBestSuitNeverReturnsExcluded(t *testing.T) {
	rng := testRNG(11)
	for iter := 0; iter < 200; iter++ {
		deck := NewDeck(rng)
		deck.Shuffle()
		hand, _ := deck.Draw(rng.IntN(10))
		for mask := 0; mask < 16; mask++ {
			var chosen SuitSet
			for i, s := range Suits {
				if mask&(1<<i) != 0 {
					chosen = chosen.With(s)
				}
			}
			got := ChooseBestSuitForComputer(hand, chosen)
			if !got.IsReal() {
				t.Fatalf("returned non-suit %d", got)
			}
			if chosen.Full() {
				if got != DefaultSuit {
					t.Fatalf("all excluded: got %s, want %s", got, DefaultSuit)
				}
				continue
			}
			if chosen.Has(got) {
				t.Fatalf("hand %v, chosen %v: returned excluded suit %s", hand, chosen.List(), got)
			}
		}
	}
}

func TestDetectWinner(t *testing.T) {
	one := []Card{NewCard(RankTwo, SuitClubs)}
	if got := DetectWinner(nil, one); got != SidePlayer {
		t.Errorf("empty player hand = %s", got)
	}
	if got := DetectWinner(one, nil); got != SideComputer {
		t.Errorf("empty computer hand = %s", got)
	}
	if got := DetectWinner(one, one); got != SideNone {
		t.Errorf("both holding = %s", got)
	}
	if got := DetectWinner(nil, nil); got != SidePlayer {
		t.Errorf("both empty = %s, want player (checked first)", got)
	}
}

func TestCheckWinConditionCountsEveryCall(t *testing.T) {
	g := &GameState{ComputerHand: []Card{NewCard(RankKing, SuitHearts)}, WinStreak: 2}

	res := g.CheckWinCondition()
	if res == nil || res.Winner != SidePlayer || res.WinStreak != 3 {
		t.Fatalf("first call = %+v, want player win with streak 3", res)
	}
	if g.GamesPlayed != 1 || g.Phase != PhaseGameOver {
		t.Fatalf("GamesPlayed=%d Phase=%s", g.GamesPlayed, g.Phase)
	}

	// Not idempotent: a second call on the same hand counts again.
	res = g.CheckWinCondition()
	if res.WinStreak != 4 || g.GamesPlayed != 2 {
		t.Errorf("second call streak=%d games=%d, want 4 and 2", res.WinStreak, g.GamesPlayed)
	}

	loss := &GameState{PlayerHand: []Card{NewCard(RankKing, SuitHearts)}, WinStreak: 5}
	res = loss.CheckWinCondition()
	if res == nil || res.Winner != SideComputer || loss.WinStreak != 0 {
		t.Errorf("computer win = %+v, streak %d; want reset to 0", res, loss.WinStreak)
	}

	ongoing := &GameState{PlayerHand: []Card{NewCard(RankTwo, SuitHearts)}, ComputerHand: []Card{NewJoker(1)}}
	if res := ongoing.CheckWinCondition(); res != nil || ongoing.GamesPlayed != 0 {
		t.Errorf("ongoing game = %+v, games %d", res, ongoing.GamesPlayed)
	}
}

func TestProcessWildEffect(t *testing.T) {
	tests := []struct {
		card Card
		want WildEffect
	}{
		{NewJoker(1), WildEffect{NeedsSuitSelection: true, ExtraPlay: true}},
		{NewCard(RankAce, SuitHearts), WildEffect{NeedsSuitSelection: true}},
		{NewCard(RankTwo, SuitHearts), WildEffect{DrawTwo: true}},
		{NewCard(RankEight, SuitHearts), WildEffect{}},
		{Card{}, WildEffect{}},
	}
	for _, tt := range tests {
		if got := ProcessWildEffect(tt.card); got != tt.want {
			t.Errorf("ProcessWildEffect(%s) = %+v, want %+v", tt.card, got, tt.want)
		}
	}
}

func TestExecuteDrawTwo(t *testing.T) {
	deck := NewDeckFrom(nil, []Card{NewCard(RankFour, SuitClubs)})
	hand := []Card{NewCard(RankTwo, SuitClubs)}

	hand, drawn := ExecuteDrawTwo(deck, hand, DrawTwoCount)
	if len(drawn) != 1 || len(hand) != 2 {
		t.Fatalf("short deck: drew %d, hand %d; want 1 and 2", len(drawn), len(hand))
	}

	hand, drawn = ExecuteDrawTwo(deck, hand, DrawTwoCount)
	if len(drawn) != 0 || len(hand) != 2 {
		t.Fatalf("empty deck: drew %d, hand %d", len(drawn), len(hand))
	}

	if _, drawn := ExecuteDrawTwo(nil, hand, DrawTwoCount); drawn != nil {
		t.Errorf("nil deck drew %v", drawn)
	}
}
