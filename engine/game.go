// Package engine implements the Crazy Aces card game rules.
//
// The package is pure: no I/O, no clocks, no goroutines. A GameState is owned
// by exactly one session; the turn controller in internal/game serializes
// access to it.
package engine

import (
	"fmt"
	"math/rand/v2"
)

// DefaultHandSize is the number of cards dealt to each side.
const DefaultHandSize = 7

// Options configures a new game.
type Options struct {
	HandSize int        // 0 = DefaultHandSize
	RNG      *rand.Rand // nil = randomly seeded
}

// PendingWild holds a player's Ace that has been played but whose suit has
// not been chosen yet, together with everything needed to undo the play.
type PendingWild struct {
	Card      Card
	HandIndex int        // where the card sat in the player's hand
	PrevMatch MatchState // match state before the play
	PrevJoker bool       // JokerWasPlayed before the play
	Chained   bool       // played directly after a Joker; the player keeps the turn
}

// WinResult reports a concluded game.
type WinResult struct {
	Winner    Side `json:"winner"`
	WinStreak int  `json:"winStreak"`
}

// GameState holds the complete state of one session's game.
type GameState struct {
	PlayerHand   []Card
	ComputerHand []Card
	Deck         *Deck
	DiscardPile  []Card // top = last element

	Match          MatchState // effective suit/rank for the next play
	JokerWasPlayed bool       // any card is legal while set
	ChosenSuits    SuitSet    // suits already picked by a wild choice this game

	Phase       Phase
	Pending     *PendingWild
	DrawTwoOwed Side // side that must draw DrawTwoCount at the start of its next turn
	Winner      Side

	// Session-scoped; these survive Reset.
	WinStreak       int
	GamesPlayed     int
	DiscountClaimed bool

	handSize int
	rng      *rand.Rand
}

// NewGame builds a GameState and deals the first game.
func NewGame(opts Options) *GameState {
	g := &GameState{handSize: opts.HandSize, rng: opts.RNG}
	if g.handSize <= 0 {
		g.handSize = DefaultHandSize
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g.Deal()
	return g
}

// HandSize returns the configured deal size.
func (g *GameState) HandSize() int { return g.handSize }

// Reset starts a new game once the current one is over. Win streak, games
// played and the discount flag carry over. A game in progress must be
// concluded first, by play or by Forfeit.
func (g *GameState) Reset() error {
	if g.Phase != PhaseGameOver {
		return fmt.Errorf("%w: phase %s", ErrGameInProgress, g.Phase)
	}
	g.Deal()
	return nil
}

// Forfeit concedes the game in progress to the computer. It counts as a
// loss like any other: the streak resets and GamesPlayed is incremented.
func (g *GameState) Forfeit() (*WinResult, error) {
	if g.Phase == PhaseGameOver {
		return nil, ErrGameOver
	}
	if g.Phase == PhaseAwaitingSuit {
		// The unsettled Ace goes back to the hand so the pile stays consistent.
		_ = g.CancelSuitChoice()
	}
	return g.applyResult(SideComputer), nil
}

// Deal reinitializes the deck, hands and discard pile.
//
// Hands and the opening card are drawn only from regular cards; Aces and
// Jokers are shuffled back into the remaining deck afterwards. If the player
// then holds nothing playable, one random hand card is swapped for a
// matching regular card from the deck.
func (g *GameState) Deal() {
	deck := NewDeck(g.rng)
	deck.Shuffle()
	wild := deck.TakeWild()

	g.PlayerHand = make([]Card, 0, g.handSize)
	g.ComputerHand = make([]Card, 0, g.handSize)
	for i := 0; i < g.handSize; i++ {
		if c, ok := deck.DrawNonSpecial(); ok {
			g.PlayerHand = append(g.PlayerHand, c)
		}
		if c, ok := deck.DrawNonSpecial(); ok {
			g.ComputerHand = append(g.ComputerHand, c)
		}
	}

	g.DiscardPile = g.DiscardPile[:0]
	if top, ok := deck.DrawNonSpecial(); ok {
		g.DiscardPile = append(g.DiscardPile, top)
		g.Match = MatchState{Suit: top.Suit, Rank: top.Rank}
	} else {
		g.Match = MatchState{}
	}

	deck.Add(wild...)
	g.Deck = deck

	g.JokerWasPlayed = false
	g.ChosenSuits = 0
	g.Pending = nil
	g.DrawTwoOwed = SideNone
	g.Winner = SideNone
	g.Phase = PhasePlayerTurn

	g.ensurePlayerCanOpen()
}

// ensurePlayerCanOpen swaps a random player card for a matching regular deck
// card when the opening hand has no legal play.
func (g *GameState) ensurePlayerCanOpen() {
	if len(g.PlayerHand) == 0 || HasPlayableCard(g.PlayerHand, g.Match, g.JokerWasPlayed) {
		return
	}
	i := g.Deck.intN(len(g.PlayerHand))
	give := g.PlayerHand[i]
	got, ok := g.Deck.SwapFirst(give, func(c Card) bool {
		return !c.IsWild() && CanPlayCard(c, g.Match.Suit, g.Match.Rank, false)
	})
	if ok {
		g.PlayerHand[i] = got
	}
}

// TopCard returns the top of the discard pile, or the zero Card.
func (g *GameState) TopCard() Card {
	if len(g.DiscardPile) == 0 {
		return Card{}
	}
	return g.DiscardPile[len(g.DiscardPile)-1]
}

// IsGameOver reports whether the game has concluded.
func (g *GameState) IsGameOver() bool { return g.Phase == PhaseGameOver }

// PlayerCanPlay reports whether the player holds a legal card right now.
func (g *GameState) PlayerCanPlay() bool {
	return HasPlayableCard(g.PlayerHand, g.Match, g.JokerWasPlayed)
}

// AvailableSuits returns the suits a player may still pick for a wild card.
// Once all four have been used, all four are available again.
func (g *GameState) AvailableSuits() []Suit {
	if g.ChosenSuits.Full() {
		return Suits[:]
	}
	var out []Suit
	for _, s := range Suits {
		if !g.ChosenSuits.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// CheckWinCondition detects a winner and applies its consequences: a player
// win increments WinStreak, a computer win resets it, and GamesPlayed is
// incremented either way.
//
// It is not idempotent. Each call on a concluded hand counts again, so it
// must be invoked exactly once per game conclusion. The turn state machine
// does so; external callers normally use DetectWinner instead.
func (g *GameState) CheckWinCondition() *WinResult {
	winner := DetectWinner(g.PlayerHand, g.ComputerHand)
	if winner == SideNone {
		return nil
	}
	return g.applyResult(winner)
}

// applyResult records a finished game and freezes the state.
func (g *GameState) applyResult(winner Side) *WinResult {
	switch winner {
	case SidePlayer:
		g.WinStreak++
	case SideComputer:
		g.WinStreak = 0
	}
	g.GamesPlayed++
	g.Winner = winner
	g.Phase = PhaseGameOver
	g.Pending = nil
	return &WinResult{Winner: winner, WinStreak: g.WinStreak}
}

// MarkDiscountClaimed records a successful claim; the streak starts over.
func (g *GameState) MarkDiscountClaimed() {
	g.DiscountClaimed = true
	g.WinStreak = 0
}

// ---------------------------------------------------------------------------
// Snapshot Undo (Save / Restore)
// ---------------------------------------------------------------------------

// Snapshot is a deep copy of a GameState used to roll back a failed action.
type Snapshot struct {
	state GameState
	deck  []Card
}

// Save returns a deep snapshot of the current state.
func (g *GameState) Save() Snapshot {
	s := Snapshot{state: *g}
	s.state.PlayerHand = append([]Card(nil), g.PlayerHand...)
	s.state.ComputerHand = append([]Card(nil), g.ComputerHand...)
	s.state.DiscardPile = append([]Card(nil), g.DiscardPile...)
	if g.Pending != nil {
		p := *g.Pending
		s.state.Pending = &p
	}
	if g.Deck != nil {
		s.deck = g.Deck.Cards()
	}
	return s
}

// Restore replaces the state with the snapshot contents.
func (g *GameState) Restore(s Snapshot) {
	*g = s.state
	g.PlayerHand = append([]Card(nil), s.state.PlayerHand...)
	g.ComputerHand = append([]Card(nil), s.state.ComputerHand...)
	g.DiscardPile = append([]Card(nil), s.state.DiscardPile...)
	if s.state.Pending != nil {
		p := *s.state.Pending
		g.Pending = &p
	}
	if s.state.Deck != nil {
		g.Deck = NewDeckFrom(g.rng, s.deck)
	}
}
