package engine

import (
	"errors"
	"testing"
)

var (
	fiveSpades  = NewCard(RankFive, SuitSpades)
	kingHearts  = NewCard(RankKing, SuitHearts)
	threeDiam   = NewCard(RankThree, SuitDiamonds)
	nineClubs   = NewCard(RankNine, SuitClubs)
	aceHearts   = NewCard(RankAce, SuitHearts)
	twoSpades   = NewCard(RankTwo, SuitSpades)
	sevenHearts = NewCard(RankSeven, SuitHearts)
	jackDiam    = NewCard(RankJack, SuitDiamonds)
	joker1      = NewJoker(1)
)

// TestPlayCardWinsWithLastCard covers a single matching card emptying the hand.
func TestPlayCardWinsWithLastCard(t *testing.T) {
	g := stagedGame([]Card{fiveSpades}, []Card{kingHearts, threeDiam}, nil, NewCard(RankFive, SuitClubs))
	g.Match = MatchState{Suit: SuitSpades, Rank: RankFive}

	res, err := g.PlayCard(0)
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if res.Win == nil || res.Win.Winner != SidePlayer {
		t.Fatalf("win = %+v, want player", res.Win)
	}
	if len(g.PlayerHand) != 0 || g.Phase != PhaseGameOver || g.WinStreak != 1 || g.GamesPlayed != 1 {
		t.Fatalf("hand=%d phase=%s streak=%d games=%d", len(g.PlayerHand), g.Phase, g.WinStreak, g.GamesPlayed)
	}

	if _, err := g.PlayCard(0); !errors.Is(err, ErrGameOver) {
		t.Errorf("play after game over: %v", err)
	}
}

// TestPlayJokerKeepsTurn covers a Joker played with cards left in hand.
func TestPlayJokerKeepsTurn(t *testing.T) {
	g := stagedGame([]Card{joker1, nineClubs}, []Card{kingHearts}, nil, fiveSpades)

	res, err := g.PlayCard(0)
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if res.Win != nil || !res.Effect.ExtraPlay {
		t.Fatalf("result %+v", res)
	}
	if !g.JokerWasPlayed || g.Phase != PhasePlayerTurn || len(g.PlayerHand) != 1 {
		t.Fatalf("joker=%v phase=%s hand=%d", g.JokerWasPlayed, g.Phase, len(g.PlayerHand))
	}
	if g.TopCard() != joker1 {
		t.Errorf("top = %s", g.TopCard())
	}

	// Anything goes on a Joker; the follow-up clears the flag.
	if _, err := g.PlayCard(0); err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if g.Winner != SidePlayer {
		t.Fatalf("winner = %s", g.Winner)
	}
}

func TestPlayRegularCardPassesTurn(t *testing.T) {
	g := stagedGame([]Card{NewCard(RankFive, SuitHearts), nineClubs}, []Card{kingHearts}, nil, fiveSpades)

	res, err := g.PlayCard(0)
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if res.Phase != PhaseComputerTurn || g.Match != (MatchState{Suit: SuitHearts, Rank: RankFive}) {
		t.Fatalf("phase=%s match=%+v", res.Phase, g.Match)
	}
	if _, err := g.PlayCard(0); !errors.Is(err, ErrNotPlayerTurn) {
		t.Errorf("play on computer turn: %v", err)
	}
	if _, err := g.DrawCard(); !errors.Is(err, ErrNotPlayerTurn) {
		t.Errorf("draw on computer turn: %v", err)
	}
}

func TestRejectedPlayLeavesStateUnchanged(t *testing.T) {
	g := stagedGame([]Card{kingHearts, nineClubs}, []Card{threeDiam}, []Card{jackDiam}, fiveSpades)
	before := g.Save()

	if _, err := g.PlayCard(1); !errors.Is(err, ErrIllegalPlay) {
		t.Fatalf("illegal play: %v", err)
	}
	for _, idx := range []int{-1, 2, 100} {
		if _, err := g.PlayCard(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("index %d: %v", idx, err)
		}
	}
	if _, err := g.ChooseSuit(SuitHearts); !errors.Is(err, ErrNoPendingSuit) {
		t.Fatalf("choose without pending: %v", err)
	}
	if err := g.CancelSuitChoice(); !errors.Is(err, ErrNoPendingSuit) {
		t.Fatalf("cancel without pending: %v", err)
	}
	if _, _, err := g.PlayComputerTurn(); !errors.Is(err, ErrNotComputerTurn) {
		t.Fatalf("computer turn on player turn: %v", err)
	}

	after := g.Save()
	if len(after.state.PlayerHand) != len(before.state.PlayerHand) ||
		after.state.Match != before.state.Match ||
		after.state.Phase != before.state.Phase ||
		len(after.state.DiscardPile) != len(before.state.DiscardPile) ||
		len(after.deck) != len(before.deck) {
		t.Fatalf("state changed by rejected calls")
	}
}

func TestAceSuitChoice(t *testing.T) {
	g := stagedGame([]Card{aceHearts, nineClubs}, []Card{kingHearts}, nil, fiveSpades)

	res, err := g.PlayCard(0)
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if !res.Effect.NeedsSuitSelection || g.Phase != PhaseAwaitingSuit || g.Pending == nil {
		t.Fatalf("phase=%s pending=%v", g.Phase, g.Pending)
	}

	if _, err := g.PlayCard(0); !errors.Is(err, ErrAwaitingSuit) {
		t.Errorf("play while awaiting suit: %v", err)
	}
	if _, err := g.DrawCard(); !errors.Is(err, ErrAwaitingSuit) {
		t.Errorf("draw while awaiting suit: %v", err)
	}
	if _, err := g.ChooseSuit(SuitJoker); !errors.Is(err, ErrInvalidSuit) {
		t.Errorf("joker suit: %v", err)
	}

	res, err = g.ChooseSuit(SuitClubs)
	if err != nil {
		t.Fatalf("ChooseSuit: %v", err)
	}
	if g.Match != (MatchState{Suit: SuitClubs, Rank: RankAce}) || res.Phase != PhaseComputerTurn {
		t.Fatalf("match=%+v phase=%s", g.Match, res.Phase)
	}
	if g.TopCard() != aceHearts {
		t.Errorf("played Ace changed identity: %s", g.TopCard())
	}
	if !g.ChosenSuits.Has(SuitClubs) || g.Pending != nil {
		t.Errorf("chosen=%v pending=%v", g.ChosenSuits.List(), g.Pending)
	}
}

func TestAceSuitAlreadyChosen(t *testing.T) {
	g := stagedGame([]Card{aceHearts, nineClubs}, []Card{kingHearts}, nil, fiveSpades)
	g.ChosenSuits = g.ChosenSuits.With(SuitClubs)

	if _, err := g.PlayCard(0); err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if _, err := g.ChooseSuit(SuitClubs); !errors.Is(err, ErrSuitAlreadyChosen) {
		t.Fatalf("repeat suit: %v", err)
	}
	if g.Phase != PhaseAwaitingSuit {
		t.Fatalf("phase = %s", g.Phase)
	}

	for _, s := range Suits {
		g.ChosenSuits = g.ChosenSuits.With(s)
	}
	if _, err := g.ChooseSuit(SuitClubs); err != nil {
		t.Fatalf("repeat allowed once all suits are used: %v", err)
	}
}

func TestChainedWildKeepsTurn(t *testing.T) {
	g := stagedGame([]Card{joker1, aceHearts, nineClubs}, []Card{kingHearts}, nil, fiveSpades)

	if _, err := g.PlayCard(0); err != nil {
		t.Fatalf("Joker: %v", err)
	}
	if _, err := g.PlayCard(0); err != nil {
		t.Fatalf("Ace: %v", err)
	}
	if !g.Pending.Chained {
		t.Fatal("Ace after Joker should be chained")
	}
	res, err := g.ChooseSuit(SuitClubs)
	if err != nil {
		t.Fatalf("ChooseSuit: %v", err)
	}
	if res.Phase != PhasePlayerTurn || g.JokerWasPlayed {
		t.Fatalf("phase=%s joker=%v", res.Phase, g.JokerWasPlayed)
	}
	if !g.PlayerCanPlay() {
		t.Fatal("9♣ should follow the chosen clubs")
	}
}

func TestCancelSuitChoiceRestores(t *testing.T) {
	g := stagedGame([]Card{nineClubs, aceHearts, kingHearts}, []Card{threeDiam}, nil, fiveSpades)
	g.JokerWasPlayed = false

	if _, err := g.PlayCard(1); err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if err := g.CancelSuitChoice(); err != nil {
		t.Fatalf("CancelSuitChoice: %v", err)
	}
	want := []Card{nineClubs, aceHearts, kingHearts}
	for i := range want {
		if g.PlayerHand[i] != want[i] {
			t.Fatalf("hand = %v, want %v", g.PlayerHand, want)
		}
	}
	if g.TopCard() != fiveSpades || len(g.DiscardPile) != 1 {
		t.Errorf("discard = %v", g.DiscardPile)
	}
	if g.Match != (MatchState{Suit: SuitSpades, Rank: RankFive}) || g.Phase != PhasePlayerTurn || g.Pending != nil {
		t.Errorf("match=%+v phase=%s pending=%v", g.Match, g.Phase, g.Pending)
	}
}

func TestAceAsLastCardWins(t *testing.T) {
	g := stagedGame([]Card{aceHearts}, []Card{kingHearts}, nil, fiveSpades)
	res, err := g.PlayCard(0)
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if res.Win == nil || g.Phase != PhaseGameOver || g.Pending != nil {
		t.Fatalf("win=%v phase=%s", res.Win, g.Phase)
	}
}

func TestTwoForcesComputerDraw(t *testing.T) {
	deck := []Card{jackDiam, sevenHearts, threeDiam}
	g := stagedGame([]Card{twoSpades, nineClubs}, []Card{kingHearts}, deck, fiveSpades)

	res, err := g.PlayCard(0)
	if err != nil {
		t.Fatalf("PlayCard: %v", err)
	}
	if !res.Effect.DrawTwo || g.DrawTwoOwed != SideComputer {
		t.Fatalf("effect=%+v owed=%s", res.Effect, g.DrawTwoOwed)
	}

	steps, win, err := g.PlayComputerTurn()
	if err != nil || win != nil {
		t.Fatalf("computer turn: win=%v err=%v", win, err)
	}
	if steps[0].Kind != StepForcedDraw || len(steps[0].Cards) != 2 || !steps[0].Hidden {
		t.Fatalf("first step = %+v", steps[0])
	}
	if g.DrawTwoOwed != SideNone {
		t.Errorf("owed = %s", g.DrawTwoOwed)
	}
}

func TestDrawPlayable(t *testing.T) {
	g := stagedGame([]Card{kingHearts}, []Card{threeDiam}, []Card{NewCard(RankFive, SuitDiamonds)}, fiveSpades)

	start, err := g.StartDraw()
	if err != nil {
		t.Fatalf("StartDraw: %v", err)
	}
	if g.Phase != PhaseDrawing || start.Card.Rank != RankFive {
		t.Fatalf("phase=%s card=%s", g.Phase, start.Card)
	}
	if _, err := g.PlayCard(0); !errors.Is(err, ErrDrawInProgress) {
		t.Errorf("play during draw: %v", err)
	}
	if _, err := g.StartDraw(); !errors.Is(err, ErrDrawInProgress) {
		t.Errorf("second draw: %v", err)
	}

	res, err := g.ResolveDraw()
	if err != nil {
		t.Fatalf("ResolveDraw: %v", err)
	}
	if !res.Playable || g.Phase != PhasePlayerTurn || len(g.PlayerHand) != 2 {
		t.Fatalf("res=%+v phase=%s hand=%d", res, g.Phase, len(g.PlayerHand))
	}
}

func TestDrawUnplayable(t *testing.T) {
	g := stagedGame([]Card{kingHearts}, []Card{threeDiam}, []Card{jackDiam}, fiveSpades)
	res, err := g.DrawCard()
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if res.Playable || res.Phase != PhaseComputerTurn || len(g.PlayerHand) != 2 {
		t.Fatalf("res=%+v hand=%d", res, len(g.PlayerHand))
	}
	if _, err := g.ResolveDraw(); err == nil {
		t.Error("ResolveDraw outside drawing phase should fail")
	}
}

func TestDrawEmptyDeckPasses(t *testing.T) {
	g := stagedGame([]Card{kingHearts}, []Card{threeDiam}, nil, fiveSpades)
	res, err := g.DrawCard()
	if err != nil {
		t.Fatalf("DrawCard: %v", err)
	}
	if !res.Passed || g.Phase != PhaseComputerTurn || len(g.PlayerHand) != 1 {
		t.Fatalf("res=%+v hand=%d", res, len(g.PlayerHand))
	}
}
