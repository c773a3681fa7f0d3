package claim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jason-s-yu/crazyaces/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender records deliveries and can be told to fail or to be slow.
type fakeSender struct {
	mu    sync.Mutex
	sent  map[string]Discount
	err   error
	delay time.Duration
}

func (f *fakeSender) SendDiscount(_ context.Context, to string, d Discount) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = make(map[string]Discount)
	}
	f.sent[to] = d
	return nil
}

// brokenLedger fails every call.
type brokenLedger struct{}

func (brokenLedger) Reserve(context.Context, string) (bool, error) { return false, errors.New("down") }
func (brokenLedger) Release(context.Context, string) error         { return errors.New("down") }
func (brokenLedger) Has(context.Context, string) (bool, error)     { return false, errors.New("down") }

// reserveFailLedger answers lookups but cannot reserve.
type reserveFailLedger struct{ *MemoryLedger }

func (reserveFailLedger) Reserve(context.Context, string) (bool, error) {
	return false, errors.New("down")
}

type fixture struct {
	sessions *session.Service
	ledger   *MemoryLedger
	sender   *fakeSender
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer, err := session.NewSigner("claim-secret", 0)
	require.NoError(t, err)
	sessions := session.NewService(session.NewMemoryStore(), signer, session.Options{})
	f := &fixture{sessions: sessions, ledger: NewMemoryLedger(), sender: &fakeSender{}}
	f.svc = NewService(sessions, f.ledger, f.sender, Options{})
	return f
}

// sessionWithStreak creates a session and wins n games on it.
func (f *fixture) sessionWithStreak(t *testing.T, n int) string {
	t.Helper()
	ctx := context.Background()
	rec, token, err := f.sessions.Create(ctx, "")
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		res, err := f.sessions.RecordGameResult(ctx, rec.SessionID, true)
		require.NoError(t, err)
		token = res.Token
	}
	return token
}

func TestClaimThenAliasRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Claim(ctx, "test.user@gmail.com", f.sessionWithStreak(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Discount.Percent)
	assert.Equal(t, "ACES5", res.Discount.Code)
	assert.Equal(t, 0, res.WinStreak)
	assert.NotEmpty(t, res.Token)
	assert.Contains(t, f.sender.sent, "test.user@gmail.com")

	_, err = f.svc.Claim(ctx, "testuser+promo@gmail.com", f.sessionWithStreak(t, 3))
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Len(t, f.sender.sent, 1)
}

func TestClaimConsumesStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.sessionWithStreak(t, 2)

	res, err := f.svc.Claim(ctx, "someone@example.com", token)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Discount.Percent)

	// The old token still carries streak 2 but the store is authoritative.
	_, err = f.svc.Claim(ctx, "other@example.com", token)
	assert.ErrorIs(t, err, ErrNoStreak)
}

func TestClaimRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := f.sessionWithStreak(t, 1)

	signer, err := session.NewSigner("claim-secret", 0)
	require.NoError(t, err)
	ghost, err := signer.Issue(session.TokenPayload{SessionID: "ghost", WinStreak: 3})
	require.NoError(t, err)

	tests := []struct {
		name  string
		email string
		token string
		want  error
	}{
		{"bad token", "a@example.com", "forged", session.ErrInvalidToken},
		{"unknown session", "a@example.com", ghost, session.ErrSessionNotFound},
		{"invalid email", "not-an-email", good, ErrInvalidEmail},
		{"empty mailbox after normalization", "+promo@gmail.com", good, ErrInvalidEmail},
		{"disposable", "a@mailinator.com", good, ErrDisposableEmail},
		{"no streak", "a@example.com", f.sessionWithStreak(t, 0), ErrNoStreak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Claim(ctx, tt.email, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.sender.sent)
}

func TestClaimDeliveryFailureReleases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.sessionWithStreak(t, 1)

	f.sender.err = errors.New("smtp down")
	_, err := f.svc.Claim(ctx, "retry@example.com", token)
	require.ErrorIs(t, err, ErrDeliveryFailed)

	claimed, err := f.ledger.Has(ctx, HashEmail(NormalizeEmail("retry@example.com")))
	require.NoError(t, err)
	assert.False(t, claimed)

	f.sender.err = nil
	res, err := f.svc.Claim(ctx, "retry@example.com", token)
	require.NoError(t, err, "streak is returned after a failed delivery")
	assert.Equal(t, 5, res.Discount.Percent)
}

func TestClaimReserveFailureReturnsStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token := f.sessionWithStreak(t, 2)

	svc := NewService(f.sessions, reserveFailLedger{NewMemoryLedger()}, f.sender, Options{})
	_, err := svc.Claim(ctx, "a@example.com", token)
	require.ErrorIs(t, err, ErrLedgerUnavailable)

	res, err := f.svc.Claim(ctx, "a@example.com", token)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Discount.Percent)
}

func TestClaimLedgerFailsClosed(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.sessions, brokenLedger{}, f.sender, Options{})

	_, err := svc.Claim(context.Background(), "a@example.com", f.sessionWithStreak(t, 1))
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
	assert.Empty(t, f.sender.sent)
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens := make([]string, 10)
	for i := range tokens {
		tokens[i] = f.sessionWithStreak(t, 1)
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i, tok := range tokens {
		wg.Add(1)
		go func(i int, tok string) {
			defer wg.Done()
			email := "same.person@gmail.com"
			if i%2 == 1 {
				email = "sameperson+x@googlemail.com"
			}
			if _, err := f.svc.Claim(ctx, email, tok); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrAlreadyClaimed)
			}
		}(i, tok)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

// TestConcurrentClaimsOneSessionTwoEmails claims one streak for two different
// mailboxes at once while delivery is slow. Only one may be granted.
func TestConcurrentClaimsOneSessionTwoEmails(t *testing.T) {
	f := newFixture(t)
	f.sender.delay = 50 * time.Millisecond
	ctx := context.Background()
	token := f.sessionWithStreak(t, 3)

	emails := []string{"alice@example.com", "bob@example.com"}
	errs := make([]error, len(emails))
	var wg sync.WaitGroup
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, errs[i] = f.svc.Claim(ctx, email, token)
		}(i, email)
	}
	wg.Wait()

	granted := 0
	for _, err := range errs {
		if err == nil {
			granted++
			continue
		}
		assert.ErrorIs(t, err, ErrNoStreak)
	}
	assert.Equal(t, 1, granted)
	assert.Len(t, f.sender.sent, 1)
}
