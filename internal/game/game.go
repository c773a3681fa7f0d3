// Package game hosts one Crazy Aces game per session and sequences the
// player's actions against the computer's turn.
package game

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyaces/engine"
	"github.com/jason-s-yu/crazyaces/internal/analytics"
	"github.com/sirupsen/logrus"
)

var (
	// ErrActionInFlight is returned when an action arrives while another one
	// (including the computer turn it triggered) is still being processed.
	ErrActionInFlight = errors.New("another action is in progress")
	// ErrInternal is returned when an action failed unexpectedly. The game is
	// rolled back to the state before the action.
	ErrInternal = errors.New("internal error, please try again")
)

// OnGameEndFunc reports a finished game for the session and returns the
// authoritative win streak, which replaces the locally computed one.
type OnGameEndFunc func(ctx context.Context, sessionID string, won bool) (int, error)

// Options configures a new AcesGame.
type Options struct {
	HandSize        int           // 0 = engine default
	StepDelay       time.Duration // pause between animated steps; 0 = none
	RNG             *rand.Rand    // nil = randomly seeded
	WinStreak       int           // carried over from the session
	GamesPlayed     int
	DiscountClaimed bool
	Log             *logrus.Entry
	Tracker         analytics.Tracker
}

// AcesGame is the turn controller for a single session's game.
type AcesGame struct {
	ID        uuid.UUID // Unique identifier for this game instance.
	SessionID string    // Session the game belongs to.

	Engine    *engine.GameState // The authoritative game state.
	StepDelay time.Duration     // Suspension between computer steps and during draws.

	Mu       sync.Mutex  // Protects Engine.
	inFlight atomic.Bool // Set while an action and its consequences run.

	// Communication Callbacks
	BroadcastFn func(ev GameEvent) // Sends an event to the connected client.
	OnGameEnd   OnGameEndFunc      // Reports the result to the session service.

	tracker analytics.Tracker
	log     *logrus.Entry
}

// NewAcesGame deals a new game for sessionID.
func NewAcesGame(sessionID string, opts Options) *AcesGame {
	id, _ := uuid.NewRandom()
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Tracker == nil {
		opts.Tracker = analytics.Nop{}
	}
	eng := engine.NewGame(engine.Options{HandSize: opts.HandSize, RNG: opts.RNG})
	eng.WinStreak = opts.WinStreak
	eng.GamesPlayed = opts.GamesPlayed
	eng.DiscountClaimed = opts.DiscountClaimed

	g := &AcesGame{
		ID:        id,
		SessionID: sessionID,
		Engine:    eng,
		StepDelay: opts.StepDelay,
		tracker:   opts.Tracker,
		log:       opts.Log.WithFields(logrus.Fields{"game": id.String(), "session": sessionID}),
	}
	g.track(analytics.EventGameStart, map[string]any{"winStreak": eng.WinStreak})
	return g
}

// PlayCard plays the player's card at index and, if the turn passes, runs
// the computer's turn.
func (g *AcesGame) PlayCard(ctx context.Context, index int) error {
	if !g.inFlight.CompareAndSwap(false, true) {
		return ErrActionInFlight
	}
	defer g.inFlight.Store(false)

	var res *engine.PlayResult
	err := g.transition("play", func() (err error) {
		res, err = g.Engine.PlayCard(index)
		return err
	})
	if err != nil {
		g.fail("play", err)
		return err
	}

	g.fireEvent(GameEvent{
		Type: EventPlayerPlay,
		Side: engine.SidePlayer.String(),
		Card: withIdx(toEventCard(res.Card), index),
		Suit: res.Match.Suit.String(),
		Rank: res.Match.Rank.String(),
	})
	g.track(analytics.EventCardPlayed, map[string]any{"side": "player", "card": res.Card.String()})

	return g.afterPlayer(ctx, res.Win)
}

// ChooseSuit settles the player's pending Ace.
func (g *AcesGame) ChooseSuit(ctx context.Context, suit engine.Suit) error {
	if !g.inFlight.CompareAndSwap(false, true) {
		return ErrActionInFlight
	}
	defer g.inFlight.Store(false)

	var res *engine.PlayResult
	err := g.transition("choose_suit", func() (err error) {
		res, err = g.Engine.ChooseSuit(suit)
		return err
	})
	if err != nil {
		g.fail("choose_suit", err)
		return err
	}

	g.fireEvent(GameEvent{
		Type: EventSuitChosen,
		Side: engine.SidePlayer.String(),
		Card: toEventCard(res.Card),
		Suit: res.Match.Suit.String(),
		Rank: res.Match.Rank.String(),
	})
	g.track(analytics.EventSuitChosen, map[string]any{"side": "player", "suit": suit.String()})

	return g.afterPlayer(ctx, nil)
}

// CancelSuit takes back the player's pending Ace.
func (g *AcesGame) CancelSuit(ctx context.Context) error {
	if !g.inFlight.CompareAndSwap(false, true) {
		return ErrActionInFlight
	}
	defer g.inFlight.Store(false)

	if err := g.transition("cancel_suit", g.Engine.CancelSuitChoice); err != nil {
		g.fail("cancel_suit", err)
		return err
	}
	g.fireEvent(GameEvent{Type: EventSuitCancelled, State: g.statePtr()})
	return g.afterPlayer(ctx, nil)
}

// DrawCard draws one card for the player. The game stays in the drawing
// phase for StepDelay so the client can animate the card.
func (g *AcesGame) DrawCard(ctx context.Context) error {
	if !g.inFlight.CompareAndSwap(false, true) {
		return ErrActionInFlight
	}
	defer g.inFlight.Store(false)

	var res *engine.DrawResult
	err := g.transition("draw", func() (err error) {
		res, err = g.Engine.StartDraw()
		return err
	})
	if err != nil {
		g.fail("draw", err)
		return err
	}
	if res.Passed {
		g.fireEvent(GameEvent{Type: EventPlayerPass, Side: engine.SidePlayer.String()})
		return g.afterPlayer(ctx, nil)
	}

	g.fireEvent(GameEvent{Type: EventPlayerDraw, Side: engine.SidePlayer.String(), Card: toEventCard(res.Card)})
	waitErr := g.pause(ctx)

	// The draw is resolved even if ctx ended during the pause so the game
	// never stays stuck in the drawing phase.
	err = g.transition("resolve_draw", func() (err error) {
		res, err = g.Engine.ResolveDraw()
		return err
	})
	if err != nil {
		g.fail("draw", err)
		return err
	}
	g.track(analytics.EventCardDrawn, map[string]any{"side": "player", "playable": res.Playable})

	if err := g.afterPlayer(ctx, nil); err != nil {
		return err
	}
	return waitErr
}

// Reset deals a new game once the current one is over; the session counters
// carry over. A game in progress is rejected with engine.ErrGameInProgress.
func (g *AcesGame) Reset(ctx context.Context) error {
	if !g.inFlight.CompareAndSwap(false, true) {
		return ErrActionInFlight
	}
	defer g.inFlight.Store(false)

	if err := g.transition("reset", g.Engine.Reset); err != nil {
		g.fail("reset", err)
		return err
	}
	g.log.Infof("Game %s: Reset, new game dealt.", g.ID)
	g.track(analytics.EventGameStart, map[string]any{"winStreak": g.winStreak()})
	g.fireEvent(GameEvent{Type: EventGameStart, State: g.statePtr()})
	return nil
}

// Forfeit concedes the game in progress. The loss is reported through
// OnGameEnd like any other.
func (g *AcesGame) Forfeit(ctx context.Context) error {
	if !g.inFlight.CompareAndSwap(false, true) {
		return ErrActionInFlight
	}
	defer g.inFlight.Store(false)

	var win *engine.WinResult
	err := g.transition("forfeit", func() (err error) {
		win, err = g.Engine.Forfeit()
		return err
	})
	if err != nil {
		g.fail("forfeit", err)
		return err
	}
	g.log.Infof("Game %s: Forfeited by player.", g.ID)
	g.finish(ctx, win)
	return nil
}

// Sync pushes the full obfuscated state to the client.
func (g *AcesGame) Sync() {
	g.fireEvent(GameEvent{Type: EventSyncState, State: g.statePtr()})
}

// MarkDiscountClaimed mirrors a successful claim into the running game.
func (g *AcesGame) MarkDiscountClaimed() {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.Engine.MarkDiscountClaimed()
}

// afterPlayer continues after a successful player transition: finish the
// game, wait for a suit, hand over to the computer, or keep the turn.
func (g *AcesGame) afterPlayer(ctx context.Context, win *engine.WinResult) error {
	if win != nil {
		g.finish(ctx, win)
		return nil
	}
	switch g.phase() {
	case engine.PhaseAwaitingSuit:
		suits := g.availableSuits()
		g.fireEvent(GameEvent{Type: EventSuitRequired, Payload: map[string]interface{}{"availableSuits": suits}})
		return nil
	case engine.PhaseComputerTurn:
		return g.computerTurn(ctx)
	default:
		g.fireEvent(GameEvent{Type: EventPlayerTurn, State: g.statePtr()})
		return nil
	}
}

// computerTurn resolves the computer's turn in the engine, then replays its
// steps to the client with StepDelay between them. The state is already
// final when the replay starts, so a cancelled ctx only shortens the replay.
func (g *AcesGame) computerTurn(ctx context.Context) error {
	var (
		steps []engine.ComputerStep
		win   *engine.WinResult
	)
	err := g.transition("computer_turn", func() (err error) {
		steps, win, err = g.Engine.PlayComputerTurn()
		return err
	})
	if err != nil {
		g.fail("computer_turn", err)
		return err
	}

	g.fireEvent(GameEvent{Type: EventComputerTurn})
	g.track(analytics.EventComputerTurn, map[string]any{"steps": len(steps)})

	var waitErr error
	for _, st := range steps {
		if waitErr == nil {
			waitErr = g.pause(ctx)
		}
		g.fireEvent(stepEvent(st))
		if st.Kind == engine.StepPlay {
			g.track(analytics.EventCardPlayed, map[string]any{"side": "computer", "card": st.Card.String()})
		}
	}

	if win != nil {
		g.finish(ctx, win)
		return waitErr
	}
	g.fireEvent(GameEvent{Type: EventPlayerTurn, State: g.statePtr()})
	return waitErr
}

// finish reports a concluded game exactly once and reconciles the local win
// streak with the authoritative value.
func (g *AcesGame) finish(ctx context.Context, win *engine.WinResult) {
	won := win.Winner == engine.SidePlayer
	streak := win.WinStreak

	if g.OnGameEnd != nil {
		authoritative, err := g.OnGameEnd(context.WithoutCancel(ctx), g.SessionID, won)
		switch {
		case err != nil:
			g.log.WithError(err).Warnf("Game %s: Failed recording result, keeping local streak %d.", g.ID, streak)
		case authoritative != streak:
			g.log.Infof("Game %s: Local streak %d replaced by authoritative %d.", g.ID, streak, authoritative)
			g.Mu.Lock()
			g.Engine.WinStreak = authoritative
			g.Mu.Unlock()
			streak = authoritative
		}
	}

	g.log.Infof("Game %s: Ended, winner %s, streak %d.", g.ID, win.Winner, streak)
	g.track(analytics.EventGameEnd, map[string]any{"winner": win.Winner.String(), "winStreak": streak})
	g.fireEvent(GameEvent{
		Type:    EventGameEnd,
		Payload: map[string]interface{}{"winner": win.Winner.String(), "winStreak": streak},
		State:   g.statePtr(),
	})
}

// transition runs fn against the engine under the lock. A panic restores the
// pre-action snapshot, unwedges the turn and becomes ErrInternal.
func (g *AcesGame) transition(action string, fn func() error) (err error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	snap := g.Engine.Save()
	defer func() {
		if r := recover(); r != nil {
			g.log.WithField("action", action).Errorf("Game %s: Panic during %s: %v\n%s", g.ID, action, r, debug.Stack())
			g.Engine.Restore(snap)
			switch g.Engine.Phase {
			case engine.PhaseComputerTurn, engine.PhaseDrawing:
				g.Engine.Phase = engine.PhasePlayerTurn
			}
			err = ErrInternal
		}
	}()
	return fn()
}

// pause suspends for StepDelay or until ctx is done.
func (g *AcesGame) pause(ctx context.Context) error {
	if g.StepDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(g.StepDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fail sends a private rejection event for action.
func (g *AcesGame) fail(action string, err error) {
	if !errors.Is(err, ErrInternal) {
		g.log.Debugf("Game %s: %s rejected: %v", g.ID, action, err)
	}
	g.fireEvent(GameEvent{
		Type:    EventPrivateFail,
		Payload: map[string]interface{}{"action": action, "reason": err.Error()},
	})
}

// fireEvent sends an event via BroadcastFn. Never called with Mu held.
func (g *AcesGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	} else {
		g.log.Debugf("Game %s: BroadcastFn is nil, dropping event %s.", g.ID, ev.Type)
	}
}

func (g *AcesGame) track(t analytics.EventType, data map[string]any) {
	ev := analytics.NewEvent(t, g.SessionID, data)
	ev.GameID = g.ID.String()
	g.tracker.Track(ev)
}

func (g *AcesGame) phase() engine.Phase {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.Engine.Phase
}

func (g *AcesGame) winStreak() int {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.Engine.WinStreak
}

func (g *AcesGame) availableSuits() []string {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return suitNames(g.Engine.AvailableSuits())
}

func withIdx(c *EventCard, idx int) *EventCard {
	c.Idx = &idx
	return c
}
