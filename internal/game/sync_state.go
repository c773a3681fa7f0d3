package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyaces/engine"
)

// ObfGameState is the game state as the player may see it: the computer's
// hand and the deck order are reduced to counts.
type ObfGameState struct {
	GameID           uuid.UUID   `json:"gameId"`
	Phase            string      `json:"phase"`
	PlayerHand       []EventCard `json:"playerHand"`
	ComputerHandSize int         `json:"computerHandSize"`
	DeckSize         int         `json:"deckSize"`
	DiscardSize      int         `json:"discardSize"`
	DiscardTop       *EventCard  `json:"discardTop,omitempty"`
	CurrentSuit      string      `json:"currentSuit"`
	CurrentRank      string      `json:"currentRank"`
	JokerWasPlayed   bool        `json:"jokerWasPlayed"`
	ChosenSuits      []string    `json:"chosenSuits"`
	AvailableSuits   []string    `json:"availableSuits"`
	PlayableIdx      []int       `json:"playableIdx"` // hand indices the player may play now
	Winner           string      `json:"winner,omitempty"`
	WinStreak        int         `json:"winStreak"`
	GamesPlayed      int         `json:"gamesPlayed"`
	DiscountClaimed  bool        `json:"discountClaimed"`
}

// State returns a snapshot of the obfuscated state. It takes the lock.
func (g *AcesGame) State() ObfGameState {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.obfuscatedState()
}

func (g *AcesGame) statePtr() *ObfGameState {
	s := g.State()
	return &s
}

// obfuscatedState builds the client view. Assumes the lock is held.
func (g *AcesGame) obfuscatedState() ObfGameState {
	e := g.Engine
	obf := ObfGameState{
		GameID:           g.ID,
		Phase:            e.Phase.String(),
		ComputerHandSize: len(e.ComputerHand),
		DiscardSize:      len(e.DiscardPile),
		CurrentSuit:      e.Match.Suit.String(),
		CurrentRank:      e.Match.Rank.String(),
		JokerWasPlayed:   e.JokerWasPlayed,
		ChosenSuits:      suitNames(e.ChosenSuits.List()),
		AvailableSuits:   suitNames(e.AvailableSuits()),
		Winner:           e.Winner.String(),
		WinStreak:        e.WinStreak,
		GamesPlayed:      e.GamesPlayed,
		DiscountClaimed:  e.DiscountClaimed,
		PlayerHand:       make([]EventCard, 0, len(e.PlayerHand)),
		PlayableIdx:      e.PlayableIndices(),
	}
	if e.Deck != nil {
		obf.DeckSize = e.Deck.Len()
	}
	if len(e.DiscardPile) > 0 {
		obf.DiscardTop = toEventCard(e.TopCard())
	}

	for i, c := range e.PlayerHand {
		obf.PlayerHand = append(obf.PlayerHand, *withIdx(toEventCard(c), i))
	}
	return obf
}

func suitNames(suits []engine.Suit) []string {
	out := make([]string, 0, len(suits))
	for _, s := range suits {
		out = append(out, s.String())
	}
	return out
}
