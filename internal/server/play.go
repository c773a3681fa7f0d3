package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/crazyaces/engine"
	"github.com/jason-s-yu/crazyaces/internal/analytics"
	"github.com/jason-s-yu/crazyaces/internal/auth"
	"github.com/jason-s-yu/crazyaces/internal/game"
	"github.com/jason-s-yu/crazyaces/internal/session"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 5 * time.Second

// clientMessage is an action sent by the client over the game socket.
type clientMessage struct {
	Type  string `json:"type"` // play, choose_suit, cancel_suit, draw, reset, sync
	Index *int   `json:"index,omitempty"`
	Suit  string `json:"suit,omitempty"`
}

// sessionUpdate carries the re-issued session token after a hosted game ends.
type sessionUpdate struct {
	Type         string `json:"type"`
	SessionToken string `json:"sessionToken"`
	WinStreak    int    `json:"winStreak"`
}

// GET /game/ws?ticket=
func (s *Server) serveGame(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.tickets.Verify(r.URL.Query().Get("ticket"))
	if err != nil {
		writeErr(w, http.StatusUnauthorized, auth.ErrInvalidTicket.Error())
		return
	}
	rec, err := s.sessions.Get(r.Context(), sessionID)
	if err != nil {
		s.sessionErr(w, err, "could not read session")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns()})
	if err != nil {
		s.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	hg := s.games.attach(rec, conn, s.recordResult)
	defer s.games.detach(sessionID, conn)
	log := s.log.WithFields(logrus.Fields{"session": sessionID, "game": hg.game.ID.String()})
	log.Info("Player connected")
	hg.game.Sync()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.WithError(err).Debug("Game socket read failed")
			}
			break
		}
		// Actions run off the read loop so a second action arriving during
		// a computer turn is rejected instead of queued.
		wg.Add(1)
		go func(msg clientMessage) {
			defer wg.Done()
			if err := dispatch(ctx, hg.game, msg); errors.Is(err, game.ErrActionInFlight) || errors.Is(err, errUnknownMessage) {
				hg.send(game.GameEvent{
					Type:    game.EventPrivateFail,
					Payload: map[string]interface{}{"action": msg.Type, "reason": err.Error()},
				})
			}
		}(msg)
	}
	cancel()
	log.Info("Player disconnected")
}

var errUnknownMessage = errors.New("unknown message type")

// dispatch applies one client message to g. Rejections are already reported
// to the client by g, except ErrActionInFlight and errUnknownMessage.
func dispatch(ctx context.Context, g *game.AcesGame, msg clientMessage) error {
	switch msg.Type {
	case "play":
		idx := -1
		if msg.Index != nil {
			idx = *msg.Index
		}
		return g.PlayCard(ctx, idx)
	case "choose_suit":
		return g.ChooseSuit(ctx, engine.ParseSuit(msg.Suit))
	case "cancel_suit":
		return g.CancelSuit(ctx)
	case "draw":
		return g.DrawCard(ctx)
	case "reset":
		return g.Reset(ctx)
	case "forfeit":
		return g.Forfeit(ctx)
	case "sync":
		g.Sync()
		return nil
	default:
		return errUnknownMessage
	}
}

// recordResult stores a hosted game's result on the session and sends the
// client its re-issued token.
func (s *Server) recordResult(ctx context.Context, hg *hostedGame, won bool) (int, error) {
	res, err := s.sessions.RecordGameResult(ctx, hg.sessionID, won)
	if err != nil {
		return 0, err
	}
	hg.send(sessionUpdate{Type: "session_token", SessionToken: res.Token, WinStreak: res.WinStreak})
	return res.WinStreak, nil
}

// originPatterns converts the allowed origins into host patterns for the
// WebSocket origin check.
func (s *Server) originPatterns() []string {
	out := make([]string, 0, len(s.origins))
	for o := range s.origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}
	return out
}

// hostedGame is a session's server-hosted game and its current connection.
type hostedGame struct {
	sessionID string
	game      *game.AcesGame

	mu   sync.Mutex
	conn *websocket.Conn
	idle *time.Timer
	log  *logrus.Entry
}

// send writes v to the connected client, if any.
func (hg *hostedGame) send(v any) {
	hg.mu.Lock()
	conn := hg.conn
	hg.mu.Unlock()
	if conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		hg.log.WithError(err).Debug("Game socket write failed")
	}
}

type resultFunc func(ctx context.Context, hg *hostedGame, won bool) (int, error)

// registry keeps one hosted game per session. A disconnected game is kept
// for IdleTTL so a reconnect resumes it.
type registry struct {
	mu      sync.Mutex
	games   map[string]*hostedGame
	opts    GameOptions
	tracker analytics.Tracker
	log     *logrus.Entry
}

func newRegistry(opts GameOptions, tracker analytics.Tracker, log *logrus.Entry) *registry {
	return &registry{games: make(map[string]*hostedGame), opts: opts, tracker: tracker, log: log}
}

// attach binds conn to the session's game, creating it from rec if needed.
// An older connection for the same session is closed.
func (reg *registry) attach(rec session.Record, conn *websocket.Conn, onEnd resultFunc) *hostedGame {
	reg.mu.Lock()
	hg, ok := reg.games[rec.SessionID]
	if !ok {
		g := game.NewAcesGame(rec.SessionID, game.Options{
			HandSize:        reg.opts.HandSize,
			StepDelay:       reg.opts.StepDelay,
			WinStreak:       rec.WinStreak,
			GamesPlayed:     rec.GamesPlayed,
			DiscountClaimed: rec.DiscountClaimed,
			Log:             reg.log,
			Tracker:         reg.tracker,
		})
		hg = &hostedGame{sessionID: rec.SessionID, game: g, log: reg.log.WithField("session", rec.SessionID)}
		g.BroadcastFn = func(ev game.GameEvent) { hg.send(ev) }
		g.OnGameEnd = func(ctx context.Context, _ string, won bool) (int, error) { return onEnd(ctx, hg, won) }
		reg.games[rec.SessionID] = hg
	}
	reg.mu.Unlock()

	hg.mu.Lock()
	old := hg.conn
	hg.conn = conn
	if hg.idle != nil {
		hg.idle.Stop()
		hg.idle = nil
	}
	hg.mu.Unlock()
	if old != nil && old != conn {
		go old.Close(websocket.StatusPolicyViolation, "Replaced by a newer connection.")
	}
	return hg
}

// detach unbinds conn and schedules the game for removal.
func (reg *registry) detach(sessionID string, conn *websocket.Conn) {
	reg.mu.Lock()
	hg, ok := reg.games[sessionID]
	reg.mu.Unlock()
	if !ok {
		return
	}
	hg.mu.Lock()
	defer hg.mu.Unlock()
	if hg.conn != conn {
		return
	}
	hg.conn = nil
	hg.idle = time.AfterFunc(reg.opts.IdleTTL, func() { reg.evict(sessionID, hg) })
}

func (reg *registry) evict(sessionID string, hg *hostedGame) {
	hg.mu.Lock()
	connected := hg.conn != nil
	hg.mu.Unlock()
	if connected {
		return
	}
	reg.mu.Lock()
	if reg.games[sessionID] == hg {
		delete(reg.games, sessionID)
		reg.log.Debugf("Game %s: Evicted after idle timeout.", hg.game.ID)
	}
	reg.mu.Unlock()
}

// lookup returns the session's hosted game.
func (reg *registry) lookup(sessionID string) (*hostedGame, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	hg, ok := reg.games[sessionID]
	return hg, ok
}

// markDiscountClaimed mirrors a successful claim into a running hosted game.
func (reg *registry) markDiscountClaimed(sessionID string) {
	if hg, ok := reg.lookup(sessionID); ok {
		hg.game.MarkDiscountClaimed()
	}
}

// closeAll disconnects every client.
func (reg *registry) closeAll() {
	reg.mu.Lock()
	games := make([]*hostedGame, 0, len(reg.games))
	for _, hg := range reg.games {
		games = append(games, hg)
	}
	reg.mu.Unlock()
	for _, hg := range games {
		hg.mu.Lock()
		conn := hg.conn
		hg.mu.Unlock()
		if conn != nil {
			conn.Close(websocket.StatusGoingAway, "Server shutting down.")
		}
	}
}
