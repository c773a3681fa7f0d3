package game

import (
	"github.com/jason-s-yu/crazyaces/engine"
)

// GameEventType represents the type of a game-related event pushed to the client.
type GameEventType string

// Constants defining the GameEvent types used for WebSocket communication.
const (
	EventGameStart     GameEventType = "game_start"          // A new game was dealt.
	EventPlayerPlay    GameEventType = "player_play"         // Player played a card.
	EventSuitRequired  GameEventType = "suit_required"       // Player's Ace waits for a suit.
	EventSuitChosen    GameEventType = "suit_chosen"         // Player settled a wild suit.
	EventSuitCancelled GameEventType = "suit_cancelled"      // Player took back a pending Ace.
	EventPlayerDraw    GameEventType = "player_draw"         // Player drew a card (animation starts).
	EventPlayerPass    GameEventType = "player_pass"         // Deck empty; player's turn passed.
	EventPlayerTurn    GameEventType = "player_turn"         // Player may act.
	EventComputerTurn  GameEventType = "computer_turn"       // Computer turn begins.
	EventComputerPlay  GameEventType = "computer_play"       // Computer played a card.
	EventComputerDraw  GameEventType = "computer_draw"       // Computer drew (cards hidden).
	EventComputerPass  GameEventType = "computer_pass"       // Computer could neither play nor draw.
	EventForcedDraw    GameEventType = "forced_draw"         // A side drew two for a played Two.
	EventGameEnd       GameEventType = "game_end"            // Game concluded.
	EventSyncState     GameEventType = "sync_state"          // Full obfuscated state.
	EventPrivateFail   GameEventType = "private_action_fail" // An action was rejected.
)

// EventCard identifies a card within a GameEvent payload.
type EventCard struct {
	Rank    string `json:"rank"`
	Suit    string `json:"suit"`
	Variant uint8  `json:"variant,omitempty"`
	Idx     *int   `json:"idx,omitempty"` // Index in hand, if relevant.
}

// GameEvent is the standard structure for pushing game state changes to the client.
type GameEvent struct {
	Type  GameEventType `json:"type"`
	Side  string        `json:"side,omitempty"`  // "player" or "computer" for card movements.
	Card  *EventCard    `json:"card,omitempty"`  // Primary card involved.
	Cards []EventCard   `json:"cards,omitempty"` // Cards drawn, when visible to the player.
	Count int           `json:"count,omitempty"` // Number of cards moved, when hidden.
	Suit  string        `json:"suit,omitempty"`  // Effective suit after the event.
	Rank  string        `json:"rank,omitempty"`  // Effective rank after the event.

	Payload map[string]interface{} `json:"payload,omitempty"` // Additional arbitrary data.

	State *ObfGameState `json:"state,omitempty"` // Full obfuscated state for sync and end events.
}

// toEventCard converts an engine card for the wire.
func toEventCard(c engine.Card) *EventCard {
	return &EventCard{Rank: c.Rank.String(), Suit: c.Suit.String(), Variant: c.JokerVariant}
}

func toEventCards(cards []engine.Card) []EventCard {
	out := make([]EventCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, *toEventCard(c))
	}
	return out
}

// stepEvent maps one computer step to the event the client animates.
func stepEvent(st engine.ComputerStep) GameEvent {
	ev := GameEvent{
		Side: st.Side.String(),
		Suit: st.Match.Suit.String(),
		Rank: st.Match.Rank.String(),
	}
	switch st.Kind {
	case engine.StepPlay:
		ev.Type = EventComputerPlay
		ev.Card = toEventCard(st.Card)
		if st.Suit != engine.SuitNone {
			ev.Payload = map[string]interface{}{"chosenSuit": st.Suit.String()}
		}
	case engine.StepDraw:
		ev.Type = EventComputerDraw
		ev.Count = len(st.Cards)
	case engine.StepPass:
		ev.Type = EventComputerPass
	case engine.StepForcedDraw:
		ev.Type = EventForcedDraw
		ev.Count = len(st.Cards)
		if !st.Hidden {
			ev.Cards = toEventCards(st.Cards)
		}
	}
	return ev
}
