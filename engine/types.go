package engine

import "strings"

// Suit identifies a card suit. The zero value means "no suit".
type Suit uint8

// Suit constants. Spades through Clubs are the four real suits in their
// fixed iteration order; SuitJoker is the sentinel suit carried by Jokers.
const (
	SuitNone Suit = iota
	SuitSpades
	SuitHearts
	SuitDiamonds
	SuitClubs
	SuitJoker
)

// Suits lists the four real suits in iteration order (♠, ♥, ♦, ♣).
var Suits = [4]Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// IsReal reports whether s is one of the four playable suits.
func (s Suit) IsReal() bool { return s >= SuitSpades && s <= SuitClubs }

// String returns the wire name of the suit.
func (s Suit) String() string {
	switch s {
	case SuitSpades:
		return "spades"
	case SuitHearts:
		return "hearts"
	case SuitDiamonds:
		return "diamonds"
	case SuitClubs:
		return "clubs"
	case SuitJoker:
		return "joker"
	default:
		return ""
	}
}

// Symbol returns the display glyph of the suit.
func (s Suit) Symbol() string {
	switch s {
	case SuitSpades:
		return "♠"
	case SuitHearts:
		return "♥"
	case SuitDiamonds:
		return "♦"
	case SuitClubs:
		return "♣"
	case SuitJoker:
		return "★"
	default:
		return "?"
	}
}

// ParseSuit converts a wire name or glyph into a Suit. Unknown input yields SuitNone.
func ParseSuit(s string) Suit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spades", "s", "♠":
		return SuitSpades
	case "hearts", "h", "♥":
		return SuitHearts
	case "diamonds", "d", "♦":
		return SuitDiamonds
	case "clubs", "c", "♣":
		return SuitClubs
	case "joker":
		return SuitJoker
	default:
		return SuitNone
	}
}

// Rank identifies a card rank. The zero value means "no rank".
type Rank uint8

// Rank constants.
const (
	RankNone Rank = iota
	RankTwo
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankAce
	RankJoker
)

// String returns the wire name of the rank ("2".."10", "J", "Q", "K", "A", "JOKER").
func (r Rank) String() string {
	switch {
	case r >= RankTwo && r <= RankTen:
		return rankDigits[r-RankTwo]
	case r == RankJack:
		return "J"
	case r == RankQueen:
		return "Q"
	case r == RankKing:
		return "K"
	case r == RankAce:
		return "A"
	case r == RankJoker:
		return "JOKER"
	default:
		return ""
	}
}

var rankDigits = [...]string{"2", "3", "4", "5", "6", "7", "8", "9", "10"}

// Card is an immutable playing card value.
//
// A Joker carries SuitJoker and a JokerVariant of 1 or 2; every other card
// has variant 0. The zero Card is the "missing card" and is never playable.
// The effective suit of a played Ace lives in MatchState, never on the card.
type Card struct {
	Rank         Rank  `json:"rank"`
	Suit         Suit  `json:"suit"`
	JokerVariant uint8 `json:"jokerVariant,omitempty"`
}

// NewCard constructs a regular card.
func NewCard(rank Rank, suit Suit) Card { return Card{Rank: rank, Suit: suit} }

// NewJoker constructs a Joker of the given variant (1 or 2).
func NewJoker(variant uint8) Card {
	return Card{Rank: RankJoker, Suit: SuitJoker, JokerVariant: variant}
}

// IsAce reports whether the card is an Ace.
func (c Card) IsAce() bool { return c.Rank == RankAce }

// IsJoker reports whether the card is a Joker.
func (c Card) IsJoker() bool { return c.Rank == RankJoker }

// IsWild reports whether the card is an Ace or a Joker.
func (c Card) IsWild() bool { return c.IsAce() || c.IsJoker() }

// Valid reports whether the card is a well-formed member of the deck.
func (c Card) Valid() bool {
	if c.IsJoker() {
		return c.Suit == SuitJoker && (c.JokerVariant == 1 || c.JokerVariant == 2)
	}
	return c.Rank >= RankTwo && c.Rank <= RankAce && c.Suit.IsReal() && c.JokerVariant == 0
}

// String renders the card as e.g. "10♥" or "JOKER1".
func (c Card) String() string {
	if c.IsJoker() {
		return "JOKER" + string('0'+rune(c.JokerVariant))
	}
	if !c.Valid() {
		return "??"
	}
	return c.Rank.String() + c.Suit.Symbol()
}

// SuitSet is a small bitset of real suits.
type SuitSet uint8

// Has reports whether s is in the set.
func (ss SuitSet) Has(s Suit) bool { return s.IsReal() && ss&(1<<s) != 0 }

// With returns the set with s added. Non-real suits are ignored.
func (ss SuitSet) With(s Suit) SuitSet {
	if !s.IsReal() {
		return ss
	}
	return ss | 1<<s
}

// Full reports whether all four real suits are present.
func (ss SuitSet) Full() bool {
	for _, s := range Suits {
		if !ss.Has(s) {
			return false
		}
	}
	return true
}

// List returns the members in iteration order.
func (ss SuitSet) List() []Suit {
	var out []Suit
	for _, s := range Suits {
		if ss.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// MatchState is the effective suit/rank a next play must match. It is
// decoupled from the top card so a wild suit choice never rewrites a card.
type MatchState struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Side names one of the two participants.
type Side uint8

const (
	SideNone Side = iota
	SidePlayer
	SideComputer
)

// String returns "player", "computer", or "".
func (s Side) String() string {
	switch s {
	case SidePlayer:
		return "player"
	case SideComputer:
		return "computer"
	default:
		return ""
	}
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case SidePlayer:
		return SideComputer
	case SideComputer:
		return SidePlayer
	default:
		return SideNone
	}
}

// Phase is the single explicit turn state of a game.
type Phase uint8

const (
	PhasePlayerTurn   Phase = iota // player may play or draw
	PhaseComputerTurn              // computer resolves its turn
	PhaseAwaitingSuit              // player's Ace waits for a suit choice
	PhaseDrawing                   // a player draw is in progress
	PhaseGameOver                  // terminal until Reset
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhasePlayerTurn:
		return "player_turn"
	case PhaseComputerTurn:
		return "computer_turn"
	case PhaseAwaitingSuit:
		return "awaiting_suit_choice"
	case PhaseDrawing:
		return "drawing"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// ParseRank converts a wire name into a Rank. Unknown input yields RankNone.
func ParseRank(s string) Rank {
	s = strings.ToUpper(strings.TrimSpace(s))
	for r := RankTwo; r <= RankJoker; r++ {
		if r.String() == s {
			return r
		}
	}
	return RankNone
}

// MarshalText implements encoding.TextMarshaler.
func (s Suit) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Suit) UnmarshalText(b []byte) error {
	*s = ParseSuit(string(b))
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Rank) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rank) UnmarshalText(b []byte) error {
	*r = ParseRank(string(b))
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
