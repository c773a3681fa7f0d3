package engine

// StepKind identifies one visible action of the computer's turn.
type StepKind uint8

const (
	StepForcedDraw StepKind = iota // drew cards owed from a Two
	StepPlay                       // played a card
	StepDraw                       // drew one card for lack of a play
	StepPass                       // nothing to play and nothing to draw
)

// String returns the step name.
func (k StepKind) String() string {
	switch k {
	case StepForcedDraw:
		return "forced_draw"
	case StepPlay:
		return "play"
	case StepDraw:
		return "draw"
	case StepPass:
		return "pass"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k StepKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ComputerStep is one action taken during the computer's turn, in order.
type ComputerStep struct {
	Kind   StepKind   `json:"kind"`
	Side   Side       `json:"side"`            // who received cards for draw steps
	Card   Card       `json:"card"`            // played card
	Cards  []Card     `json:"cards,omitempty"` // drawn cards
	Suit   Suit       `json:"suit,omitempty"`  // suit chosen for a played Ace
	Match  MatchState `json:"match"`
	Hidden bool       `json:"hidden"` // drawn cards are private to the computer
}

// maxComputerPlays bounds a single computer turn. A turn plays at most one
// card per Joker in the deck plus the resolving card, so this is never hit
// in a well-formed game.
const maxComputerPlays = DeckSize

// PlayComputerTurn resolves the whole computer turn.
//
// A Two owed by the computer is drawn first. The computer then plays the
// first playable card in hand order; with none it draws one card and plays
// it if legal. A Joker makes it play again straight away; an Ace takes the
// suit from ChooseBestSuitForComputer. The win check runs after every play.
// If the game goes on, the turn returns to the player, who first draws any
// Two the computer put on them.
func (g *GameState) PlayComputerTurn() ([]ComputerStep, *WinResult, error) {
	if g.Phase == PhaseGameOver {
		return nil, nil, ErrGameOver
	}
	if g.Phase != PhaseComputerTurn {
		return nil, nil, ErrNotComputerTurn
	}

	var steps []ComputerStep
	if drawn := g.settleOwedDraw(SideComputer); len(drawn) > 0 {
		steps = append(steps, ComputerStep{Kind: StepForcedDraw, Side: SideComputer, Cards: drawn, Match: g.Match, Hidden: true})
	}

	for plays := 0; plays < maxComputerPlays; plays++ {
		idx := FindFirstPlayableIndex(g.ComputerHand, g.Match, g.JokerWasPlayed)
		if idx < 0 {
			card, ok := g.Deck.DrawOne()
			if !ok {
				steps = append(steps, ComputerStep{Kind: StepPass, Side: SideComputer, Match: g.Match})
				break
			}
			g.ComputerHand = append(g.ComputerHand, card)
			steps = append(steps, ComputerStep{Kind: StepDraw, Side: SideComputer, Cards: []Card{card}, Match: g.Match, Hidden: true})
			if !CanPlayCard(card, g.Match.Suit, g.Match.Rank, g.JokerWasPlayed) {
				break
			}
			idx = len(g.ComputerHand) - 1
		}

		step, again := g.computerPlay(idx)
		steps = append(steps, step)
		if win := g.CheckWinCondition(); win != nil {
			return steps, win, nil
		}
		if !again {
			break
		}
	}

	g.Phase = PhasePlayerTurn
	if drawn := g.settleOwedDraw(SidePlayer); len(drawn) > 0 {
		steps = append(steps, ComputerStep{Kind: StepForcedDraw, Side: SidePlayer, Cards: drawn, Match: g.Match})
	}
	return steps, nil, nil
}

// computerPlay plays the computer's card at idx and reports whether the
// computer must play again (Joker).
func (g *GameState) computerPlay(idx int) (ComputerStep, bool) {
	card := g.ComputerHand[idx]
	g.ComputerHand = removeAt(g.ComputerHand, idx)
	g.DiscardPile = append(g.DiscardPile, card)

	step := ComputerStep{Kind: StepPlay, Side: SideComputer, Card: card}
	again := false
	switch {
	case card.IsJoker():
		g.JokerWasPlayed = true
		again = true
	case card.IsAce():
		suit := ChooseBestSuitForComputer(g.ComputerHand, g.ChosenSuits)
		g.ChosenSuits = g.ChosenSuits.With(suit)
		g.Match = MatchState{Suit: suit, Rank: card.Rank}
		g.JokerWasPlayed = false
		step.Suit = suit
	default:
		g.Match = MatchState{Suit: card.Suit, Rank: card.Rank}
		g.JokerWasPlayed = false
		if card.Rank == RankTwo {
			g.DrawTwoOwed = SidePlayer
		}
	}
	step.Match = g.Match
	return step, again
}
