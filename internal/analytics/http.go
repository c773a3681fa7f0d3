package analytics

import (
	"encoding/json"
	"io"
	"net/http"
)

const maxIngestBody = 64 << 10

// Handler ingests client-side events. It always answers 200: analytics must
// never surface errors to the game client.
type Handler struct {
	tracker Tracker
}

// NewHandler returns an ingestion handler feeding tracker.
func NewHandler(tracker Tracker) *Handler {
	return &Handler{tracker: tracker}
}

type clientEvent struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	GameID    string         `json:"gameId"`
	Data      map[string]any `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// ServeHTTP handles POST /analytics {events: [...]}. At most MaxBatch events
// are accepted per request; the rest are ignored.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accepted := 0
	defer func() {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "accepted": accepted})
	}()

	var in struct {
		Events []clientEvent `json:"events"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxIngestBody)).Decode(&in); err != nil {
		return
	}
	for _, ce := range in.Events {
		if accepted == MaxBatch {
			break
		}
		if ce.Type == "" {
			continue
		}
		data := ce.Data
		if data == nil {
			data = map[string]any{}
		}
		data["name"] = ce.Type
		h.tracker.Track(Event{
			Type:      EventClient,
			SessionID: ce.SessionID,
			GameID:    ce.GameID,
			Data:      data,
			Timestamp: ce.Timestamp,
		})
		accepted++
	}
}
