package engine

import "fmt"

// PlayResult describes the outcome of a successful player play or suit choice.
type PlayResult struct {
	Card   Card       `json:"card"`
	Effect WildEffect `json:"effect"`
	Match  MatchState `json:"match"`
	Phase  Phase      `json:"phase"`
	Win    *WinResult `json:"win,omitempty"`
}

// DrawResult describes the outcome of a player draw.
type DrawResult struct {
	Card     Card  `json:"card"`
	Passed   bool  `json:"passed"`   // deck was empty; the turn passes
	Playable bool  `json:"playable"` // drawn card may be played right away
	Phase    Phase `json:"phase"`
}

// PlayCard plays the player's card at index.
//
//   - Joker: JokerWasPlayed is set and the player plays again.
//   - Ace: the game waits in PhaseAwaitingSuit for ChooseSuit or CancelSuitChoice.
//   - Two: the computer owes a forced draw at the start of its turn.
//   - Anything else: the turn passes to the computer.
//
// An emptied hand ends the game immediately.
func (g *GameState) PlayCard(index int) (*PlayResult, error) {
	if err := phaseError(g.Phase); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(g.PlayerHand) {
		return nil, fmt.Errorf("%w: %d (hand size %d)", ErrIndexOutOfRange, index, len(g.PlayerHand))
	}
	card := g.PlayerHand[index]
	if !CanPlayCard(card, g.Match.Suit, g.Match.Rank, g.JokerWasPlayed) {
		return nil, fmt.Errorf("%w: %s on %s%s", ErrIllegalPlay, card, g.Match.Rank, g.Match.Suit.Symbol())
	}

	prevMatch, prevJoker := g.Match, g.JokerWasPlayed
	g.PlayerHand = removeAt(g.PlayerHand, index)
	g.DiscardPile = append(g.DiscardPile, card)

	res := &PlayResult{Card: card, Effect: ProcessWildEffect(card)}

	if win := g.CheckWinCondition(); win != nil {
		res.Win = win
		res.Match, res.Phase = g.Match, g.Phase
		return res, nil
	}

	switch {
	case card.IsJoker():
		g.JokerWasPlayed = true
		g.Phase = PhasePlayerTurn

	case card.IsAce():
		g.Pending = &PendingWild{
			Card:      card,
			HandIndex: index,
			PrevMatch: prevMatch,
			PrevJoker: prevJoker,
			Chained:   prevJoker,
		}
		g.Phase = PhaseAwaitingSuit

	default:
		g.Match = MatchState{Suit: card.Suit, Rank: card.Rank}
		g.JokerWasPlayed = false
		if res.Effect.DrawTwo {
			g.DrawTwoOwed = SideComputer
		}
		g.Phase = PhaseComputerTurn
	}

	res.Match, res.Phase = g.Match, g.Phase
	return res, nil
}

// ChooseSuit settles a pending Ace. The suit becomes the effective suit, the
// Ace keeps its own rank for matching, and the card itself is not touched.
// A chained wild (Ace straight after a Joker) keeps the player's turn.
func (g *GameState) ChooseSuit(suit Suit) (*PlayResult, error) {
	if g.Phase == PhaseGameOver {
		return nil, ErrGameOver
	}
	if g.Phase != PhaseAwaitingSuit || g.Pending == nil {
		return nil, ErrNoPendingSuit
	}
	if !suit.IsReal() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSuit, suit)
	}
	if g.ChosenSuits.Has(suit) && !g.ChosenSuits.Full() {
		return nil, fmt.Errorf("%w: %s", ErrSuitAlreadyChosen, suit)
	}

	pending := g.Pending
	g.ChosenSuits = g.ChosenSuits.With(suit)
	g.Match = MatchState{Suit: suit, Rank: pending.Card.Rank}
	g.JokerWasPlayed = false
	g.Pending = nil
	if pending.Chained {
		g.Phase = PhasePlayerTurn
	} else {
		g.Phase = PhaseComputerTurn
	}

	return &PlayResult{
		Card:   pending.Card,
		Effect: ProcessWildEffect(pending.Card),
		Match:  g.Match,
		Phase:  g.Phase,
	}, nil
}

// CancelSuitChoice takes back a pending Ace: the card returns to its hand
// slot, the discard pile regains its prior top, and the player's turn resumes.
func (g *GameState) CancelSuitChoice() error {
	if g.Phase == PhaseGameOver {
		return ErrGameOver
	}
	if g.Phase != PhaseAwaitingSuit || g.Pending == nil {
		return ErrNoPendingSuit
	}
	p := g.Pending
	if n := len(g.DiscardPile); n > 0 && g.DiscardPile[n-1] == p.Card {
		g.DiscardPile = g.DiscardPile[:n-1]
	}
	g.PlayerHand = insertAt(g.PlayerHand, p.HandIndex, p.Card)
	g.Match = p.PrevMatch
	g.JokerWasPlayed = p.PrevJoker
	g.Pending = nil
	g.Phase = PhasePlayerTurn
	return nil
}

// StartDraw begins a player draw. With an empty deck the turn passes
// straight to the computer; otherwise the drawn card joins the hand and the
// game sits in PhaseDrawing until ResolveDraw.
func (g *GameState) StartDraw() (*DrawResult, error) {
	if err := phaseError(g.Phase); err != nil {
		return nil, err
	}
	card, ok := g.Deck.DrawOne()
	if !ok {
		g.Phase = PhaseComputerTurn
		return &DrawResult{Passed: true, Phase: g.Phase}, nil
	}
	g.PlayerHand = append(g.PlayerHand, card)
	g.Phase = PhaseDrawing
	return &DrawResult{Card: card, Phase: g.Phase}, nil
}

// ResolveDraw finishes a draw: a playable card keeps the player's turn,
// anything else hands the turn to the computer.
func (g *GameState) ResolveDraw() (*DrawResult, error) {
	if g.Phase != PhaseDrawing {
		return nil, fmt.Errorf("resolve draw in phase %s", g.Phase)
	}
	card := g.PlayerHand[len(g.PlayerHand)-1]
	res := &DrawResult{Card: card}
	if CanPlayCard(card, g.Match.Suit, g.Match.Rank, g.JokerWasPlayed) {
		res.Playable = true
		g.Phase = PhasePlayerTurn
	} else {
		g.Phase = PhaseComputerTurn
	}
	res.Phase = g.Phase
	return res, nil
}

// DrawCard performs StartDraw and ResolveDraw in one step.
func (g *GameState) DrawCard() (*DrawResult, error) {
	res, err := g.StartDraw()
	if err != nil || res.Passed {
		return res, err
	}
	return g.ResolveDraw()
}

// settleOwedDraw applies a pending forced draw for side, returning the drawn cards.
func (g *GameState) settleOwedDraw(side Side) []Card {
	if g.DrawTwoOwed != side {
		return nil
	}
	g.DrawTwoOwed = SideNone
	var drawn []Card
	switch side {
	case SidePlayer:
		g.PlayerHand, drawn = ExecuteDrawTwo(g.Deck, g.PlayerHand, DrawTwoCount)
	case SideComputer:
		g.ComputerHand, drawn = ExecuteDrawTwo(g.Deck, g.ComputerHand, DrawTwoCount)
	}
	return drawn
}

func removeAt(hand []Card, i int) []Card {
	out := make([]Card, 0, len(hand)-1)
	out = append(out, hand[:i]...)
	return append(out, hand[i+1:]...)
}

func insertAt(hand []Card, i int, c Card) []Card {
	if i < 0 || i > len(hand) {
		i = len(hand)
	}
	out := make([]Card, 0, len(hand)+1)
	out = append(out, hand[:i]...)
	out = append(out, c)
	return append(out, hand[i:]...)
}
