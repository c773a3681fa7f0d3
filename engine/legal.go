package engine

import (
	"fmt"
	"slices"
)

// MoveKind identifies a player decision.
type MoveKind uint8

const (
	MovePlay       MoveKind = iota // play the hand card at Index
	MoveDraw                       // draw one card (passes on an empty deck)
	MoveChooseSuit                 // settle a pending Ace with Suit
	MoveCancelSuit                 // take back a pending Ace
)

// String returns the move name.
func (k MoveKind) String() string {
	switch k {
	case MovePlay:
		return "play"
	case MoveDraw:
		return "draw"
	case MoveChooseSuit:
		return "choose_suit"
	case MoveCancelSuit:
		return "cancel_suit"
	default:
		return "unknown"
	}
}

// Move is one legal player decision.
type Move struct {
	Kind  MoveKind
	Index int  // MovePlay
	Suit  Suit // MoveChooseSuit
}

func (m Move) String() string {
	switch m.Kind {
	case MovePlay:
		return fmt.Sprintf("play[%d]", m.Index)
	case MoveChooseSuit:
		return "choose_suit[" + m.Suit.String() + "]"
	default:
		return m.Kind.String()
	}
}

// LegalMoves lists every decision the player may take right now, in a
// stable order: plays by hand index, then draw; or suits in ♠,♥,♦,♣ order,
// then cancel. It is empty outside the player's phases.
func (g *GameState) LegalMoves() []Move {
	var moves []Move
	switch g.Phase {
	case PhasePlayerTurn:
		for _, i := range g.PlayableIndices() {
			moves = append(moves, Move{Kind: MovePlay, Index: i})
		}
		moves = append(moves, Move{Kind: MoveDraw})
	case PhaseAwaitingSuit:
		for _, s := range g.AvailableSuits() {
			moves = append(moves, Move{Kind: MoveChooseSuit, Suit: s})
		}
		moves = append(moves, Move{Kind: MoveCancelSuit})
	}
	return moves
}

// PlayableIndices returns the hand indices the player may play now, in
// ascending order. It is empty unless it is the player's turn.
func (g *GameState) PlayableIndices() []int {
	out := []int{}
	if g.Phase != PhasePlayerTurn {
		return out
	}
	for i, c := range g.PlayerHand {
		if CanPlayCard(c, g.Match.Suit, g.Match.Rank, g.JokerWasPlayed) {
			out = append(out, i)
		}
	}
	return out
}

// IsLegal reports whether m is among LegalMoves.
func (g *GameState) IsLegal(m Move) bool {
	switch m.Kind {
	case MovePlay:
		return slices.Contains(g.PlayableIndices(), m.Index)
	case MoveDraw:
		return g.Phase == PhasePlayerTurn
	case MoveChooseSuit:
		if g.Phase != PhaseAwaitingSuit {
			return false
		}
		return slices.Contains(g.AvailableSuits(), m.Suit)
	case MoveCancelSuit:
		return g.Phase == PhaseAwaitingSuit
	default:
		return false
	}
}

// ApplyMove performs m. A draw is resolved in the same call. The error is
// the one the underlying action returns.
func (g *GameState) ApplyMove(m Move) error {
	var err error
	switch m.Kind {
	case MovePlay:
		_, err = g.PlayCard(m.Index)
	case MoveDraw:
		_, err = g.DrawCard()
	case MoveChooseSuit:
		_, err = g.ChooseSuit(m.Suit)
	case MoveCancelSuit:
		err = g.CancelSuitChoice()
	default:
		err = fmt.Errorf("unknown move kind %d", m.Kind)
	}
	return err
}
