// Package analytics collects fire-and-forget gameplay events. Delivery is
// at most once and never allowed to block or fail the caller.
package analytics

import "time"

// EventType names an analytics event.
type EventType string

const (
	EventSessionCreated  EventType = "session_created"
	EventGameStart       EventType = "game_start"
	EventCardPlayed      EventType = "card_played"
	EventCardDrawn       EventType = "card_drawn"
	EventSuitChosen      EventType = "suit_chosen"
	EventComputerTurn    EventType = "computer_turn"
	EventGameEnd         EventType = "game_end"
	EventDiscountClaimed EventType = "discount_claimed"
	EventClient          EventType = "client"
)

// Event is one analytics record.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	GameID    string         `json:"gameId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"` // unix millis
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, sessionID string, data map[string]any) Event {
	return Event{Type: t, SessionID: sessionID, Data: data, Timestamp: time.Now().UnixMilli()}
}

// Tracker accepts events without blocking.
type Tracker interface {
	Track(ev Event)
}

// Nop discards every event.
type Nop struct{}

// Track implements Tracker.
func (Nop) Track(Event) {}
