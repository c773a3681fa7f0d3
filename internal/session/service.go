package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyaces/internal/analytics"
	"github.com/sirupsen/logrus"
)

// ErrInvalidToken is returned for a missing, malformed, tampered or expired token.
var ErrInvalidToken = errors.New("invalid session token")

// ErrNoStreak is returned by ClaimStreak when there is no streak to claim.
var ErrNoStreak = errors.New("no win streak to claim")

// Authority selects where the authoritative win streak is read from.
type Authority int

const (
	// AuthorityStore re-reads the streak from the session store and fails
	// closed when the store cannot answer. Use in production.
	AuthorityStore Authority = iota
	// AuthorityToken trusts the streak carried in the signed token. Only
	// for running without a backing store.
	AuthorityToken
)

// ParseAuthority parses "store" or "token".
func ParseAuthority(s string) (Authority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "store":
		return AuthorityStore, nil
	case "token":
		return AuthorityToken, nil
	default:
		return AuthorityStore, fmt.Errorf("unknown streak authority %q", s)
	}
}

func (a Authority) String() string {
	if a == AuthorityToken {
		return "token"
	}
	return "store"
}

const (
	readAttempts = 3
	readBackoff  = 50 * time.Millisecond
)

// Result is the outcome of a session mutation: the new streak and a fresh token.
type Result struct {
	WinStreak   int    `json:"winStreak"`
	GamesPlayed int    `json:"gamesPlayed"`
	Token       string `json:"sessionToken"`
}

// Options configures a Service.
type Options struct {
	TTL       time.Duration // inactivity TTL; 0 = DefaultTTL
	Authority Authority
	Log       *logrus.Entry
	Tracker   analytics.Tracker
}

// Service is the session/token service.
type Service struct {
	store     Store
	signer    *Signer
	ttl       time.Duration
	authority Authority
	log       *logrus.Entry
	tracker   analytics.Tracker
	now       func() time.Time
}

// NewService wires a Service.
func NewService(store Store, signer *Signer, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Tracker == nil {
		opts.Tracker = analytics.Nop{}
	}
	return &Service{
		store:     store,
		signer:    signer,
		ttl:       opts.TTL,
		authority: opts.Authority,
		log:       opts.Log,
		tracker:   opts.Tracker,
		now:       time.Now,
	}
}

// Authority reports the configured streak authority.
func (s *Service) Authority() Authority { return s.authority }

// Create starts a new session with a zero streak and returns it with its token.
func (s *Service) Create(ctx context.Context, ip string) (Record, string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Record{}, "", fmt.Errorf("generate session id: %w", err)
	}
	now := s.now()
	rec := Record{
		SessionID:    id.String(),
		CreatedAt:    now,
		LastActivity: now,
		IP:           ip,
	}
	if err := s.store.Create(ctx, rec, s.ttl); err != nil {
		return Record{}, "", fmt.Errorf("store session: %w", err)
	}
	token, err := s.issue(rec)
	if err != nil {
		return Record{}, "", err
	}
	s.log.WithField("session", rec.SessionID).Info("Session created")
	s.tracker.Track(analytics.NewEvent(analytics.EventSessionCreated, rec.SessionID, nil))
	return rec, token, nil
}

// Verify checks a token and returns its payload.
func (s *Service) Verify(token string) (TokenPayload, error) {
	p, ok := s.signer.Verify(token)
	if !ok {
		return TokenPayload{}, ErrInvalidToken
	}
	return p, nil
}

// Get loads a session, retrying transient store failures.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	var lastErr error
	for attempt := 1; attempt <= readAttempts; attempt++ {
		rec, err := s.store.Get(ctx, id)
		if err == nil || errors.Is(err, ErrSessionNotFound) {
			return rec, err
		}
		lastErr = err
		s.log.WithError(err).Warnf("Session %s: read attempt %d/%d failed", id, attempt, readAttempts)
		if attempt == readAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Record{}, ctx.Err()
		case <-time.After(readBackoff * time.Duration(attempt)):
		}
	}
	return Record{}, fmt.Errorf("read session %s: %w", id, lastErr)
}

// Status verifies token and returns the stored session.
func (s *Service) Status(ctx context.Context, token string) (Record, error) {
	p, err := s.Verify(token)
	if err != nil {
		return Record{}, err
	}
	return s.Get(ctx, p.SessionID)
}

// RecordGameResult applies a finished game to the stored session: a win
// increments the streak, a loss resets it. It returns ErrSessionNotFound
// for a missing or expired session.
func (s *Service) RecordGameResult(ctx context.Context, id string, won bool) (Result, error) {
	rec, err := s.store.Update(ctx, id, s.ttl, func(r *Record) error {
		if won {
			r.WinStreak++
		} else {
			r.WinStreak = 0
		}
		r.GamesPlayed++
		r.LastActivity = s.now()
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.log.WithFields(logrus.Fields{"session": id, "won": won, "winStreak": rec.WinStreak}).Info("Game result recorded")
	return s.result(rec)
}

// StreakClaim is a streak taken by ClaimStreak. It carries what ReturnStreak
// needs to undo the claim.
type StreakClaim struct {
	SessionID string
	Streak    int // the streak the discount is based on

	stored          int
	discountClaimed bool
	prevClaimedAt   int64
	claimedAt       int64
}

// ClaimStreak atomically takes the session's streak for a discount: it fails
// with ErrNoStreak unless the authoritative streak is at least one, then
// zeroes the stored streak and marks the discount claimed. Concurrent claims
// on one session therefore see at most one non-zero streak.
//
// Under AuthorityToken the streak comes from p, and tokens issued before the
// last claim no longer count.
func (s *Service) ClaimStreak(ctx context.Context, p TokenPayload) (StreakClaim, Result, error) {
	var c StreakClaim
	rec, err := s.store.Update(ctx, p.SessionID, s.ttl, func(r *Record) error {
		streak := s.streakFor(*r, p)
		if s.authority == AuthorityToken && r.ClaimedAt != 0 && p.Timestamp <= r.ClaimedAt {
			streak = 0
		}
		if streak < 1 {
			return ErrNoStreak
		}
		now := s.now()
		c = StreakClaim{
			SessionID:       p.SessionID,
			Streak:          streak,
			stored:          r.WinStreak,
			discountClaimed: r.DiscountClaimed,
			prevClaimedAt:   r.ClaimedAt,
			claimedAt:       now.UnixMilli(),
		}
		r.WinStreak = 0
		r.DiscountClaimed = true
		r.ClaimedAt = c.claimedAt
		r.LastActivity = now
		return nil
	})
	if err != nil {
		return StreakClaim{}, Result{}, err
	}
	s.log.WithFields(logrus.Fields{"session": p.SessionID, "winStreak": c.Streak}).Info("Streak claimed")
	res, err := s.result(rec)
	if err != nil {
		return StreakClaim{}, Result{}, err
	}
	return c, res, nil
}

// ReturnStreak undoes a ClaimStreak whose discount could not be granted. It
// is a no-op if the session changed since the claim.
func (s *Service) ReturnStreak(ctx context.Context, c StreakClaim) error {
	restored := false
	_, err := s.store.Update(ctx, c.SessionID, s.ttl, func(r *Record) error {
		restored = false
		if r.ClaimedAt != c.claimedAt || r.WinStreak != 0 {
			return nil
		}
		r.WinStreak = c.stored
		r.DiscountClaimed = c.discountClaimed
		r.ClaimedAt = c.prevClaimedAt
		restored = true
		return nil
	})
	if err != nil {
		return err
	}
	if !restored {
		s.log.WithField("session", c.SessionID).Warn("Session changed since the claim, streak not returned")
	}
	return nil
}

// streakFor returns the streak to trust for p under the configured authority.
func (s *Service) streakFor(rec Record, p TokenPayload) int {
	if s.authority == AuthorityToken {
		return p.WinStreak
	}
	if rec.WinStreak != p.WinStreak {
		s.log.WithField("session", p.SessionID).Debugf("Token streak %d differs from stored %d", p.WinStreak, rec.WinStreak)
	}
	return rec.WinStreak
}

func (s *Service) result(rec Record) (Result, error) {
	token, err := s.issue(rec)
	if err != nil {
		return Result{}, err
	}
	return Result{WinStreak: rec.WinStreak, GamesPlayed: rec.GamesPlayed, Token: token}, nil
}

func (s *Service) issue(rec Record) (string, error) {
	token, err := s.signer.Issue(TokenPayload{SessionID: rec.SessionID, WinStreak: rec.WinStreak})
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}
