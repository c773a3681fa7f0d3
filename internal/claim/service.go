package claim

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/crazyaces/internal/analytics"
	"github.com/jason-s-yu/crazyaces/internal/session"
	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyClaimed    = errors.New("a discount was already claimed for this email")
	ErrNoStreak          = errors.New("win at least one game to claim a discount")
	ErrDeliveryFailed    = errors.New("could not send the discount email")
	ErrLedgerUnavailable = errors.New("claim ledger unavailable")
)

// Sender delivers a discount code to an address.
type Sender interface {
	SendDiscount(ctx context.Context, to string, d Discount) error
}

// Sessions is the part of the session service a claim needs.
type Sessions interface {
	Verify(token string) (session.TokenPayload, error)
	ClaimStreak(ctx context.Context, p session.TokenPayload) (session.StreakClaim, session.Result, error)
	ReturnStreak(ctx context.Context, c session.StreakClaim) error
}

// Result is a granted claim.
type Result struct {
	Discount  Discount `json:"discount"`
	WinStreak int      `json:"winStreak"`
	Token     string   `json:"sessionToken,omitempty"`
}

// Options configures a Service.
type Options struct {
	Codes      Codes
	Disposable DisposableList // nil = default list
	Log        *logrus.Entry
	Tracker    analytics.Tracker
}

// Service grants discounts.
type Service struct {
	sessions   Sessions
	ledger     Ledger
	sender     Sender
	codes      Codes
	disposable DisposableList
	log        *logrus.Entry
	tracker    analytics.Tracker
}

// NewService wires a claim Service.
func NewService(sessions Sessions, ledger Ledger, sender Sender, opts Options) *Service {
	if opts.Disposable == nil {
		opts.Disposable = NewDisposableList()
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Tracker == nil {
		opts.Tracker = analytics.Nop{}
	}
	return &Service{
		sessions:   sessions,
		ledger:     ledger,
		sender:     sender,
		codes:      opts.Codes.withDefaults(),
		disposable: opts.Disposable,
		log:        opts.Log,
		tracker:    opts.Tracker,
	}
}

// Claim grants the discount earned by the session's streak to email.
//
// The streak is taken from the session and the normalized email is reserved
// in the ledger before the email is sent, so neither a session nor a mailbox
// can be rewarded twice by concurrent claims. If the discount cannot be
// delivered both are given back. Ledger failures fail closed.
func (s *Service) Claim(ctx context.Context, email, token string) (Result, error) {
	p, err := s.sessions.Verify(token)
	if err != nil {
		return Result{}, err
	}

	if err := ValidateEmail(email); err != nil {
		return Result{}, err
	}
	if s.disposable.IsDisposable(email) {
		return Result{}, ErrDisposableEmail
	}
	normalized := NormalizeEmail(email)
	hash := HashEmail(normalized)
	log := s.log.WithFields(logrus.Fields{"session": p.SessionID, "emailHash": hash[:12]})

	claimed, err := s.ledger.Has(ctx, hash)
	if err != nil {
		log.WithError(err).Error("Claim ledger lookup failed")
		return Result{}, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if claimed {
		return Result{}, ErrAlreadyClaimed
	}

	taken, consumed, err := s.sessions.ClaimStreak(ctx, p)
	if errors.Is(err, session.ErrNoStreak) {
		return Result{}, ErrNoStreak
	}
	if err != nil {
		return Result{}, err
	}
	discount, ok := s.codes.DiscountFor(taken.Streak)
	if !ok {
		s.returnStreak(ctx, log, taken)
		return Result{}, ErrNoStreak
	}

	reserved, err := s.ledger.Reserve(ctx, hash)
	if err != nil || !reserved {
		s.returnStreak(ctx, log, taken)
		if err != nil {
			log.WithError(err).Error("Claim reservation failed")
			return Result{}, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
		return Result{}, ErrAlreadyClaimed
	}

	if err := s.sender.SendDiscount(ctx, email, discount); err != nil {
		log.WithError(err).Error("Discount email failed, releasing reservation")
		if rerr := s.ledger.Release(context.WithoutCancel(ctx), hash); rerr != nil {
			log.WithError(rerr).Error("Releasing claim reservation failed")
		}
		s.returnStreak(ctx, log, taken)
		return Result{}, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	log.WithField("percent", discount.Percent).Info("Discount claimed")
	s.tracker.Track(analytics.NewEvent(analytics.EventDiscountClaimed, p.SessionID, map[string]any{
		"percent": discount.Percent,
		"streak":  taken.Streak,
	}))
	return Result{Discount: discount, WinStreak: consumed.WinStreak, Token: consumed.Token}, nil
}

// returnStreak gives a taken streak back after a failed claim. A failure is
// logged; the player keeps a zero streak.
func (s *Service) returnStreak(ctx context.Context, log *logrus.Entry, c session.StreakClaim) {
	if err := s.sessions.ReturnStreak(context.WithoutCancel(ctx), c); err != nil {
		log.WithError(err).Error("Returning claimed streak failed")
	}
}
