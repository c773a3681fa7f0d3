// Package auth issues the short-lived tickets that admit a session to the
// WebSocket play endpoint.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultTicketTTL is how long a ticket may wait before the upgrade.
	DefaultTicketTTL = 60 * time.Second

	ticketIssuer = "crazyaces"
	ticketAud    = "game-ws"
	hkdfInfo     = "crazyaces play ticket v1"
)

// ErrInvalidTicket is returned for any ticket that fails verification.
var ErrInvalidTicket = errors.New("invalid play ticket")

// Tickets signs and verifies play tickets with a key derived from the
// session secret, so ticket and session signatures never share a key.
type Tickets struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTickets derives the ticket key from secret.
func NewTickets(secret string, ttl time.Duration) (*Tickets, error) {
	if secret == "" {
		return nil, errors.New("ticket secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive ticket key: %w", err)
	}
	return &Tickets{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL is how long an issued ticket stays valid.
func (t *Tickets) TTL() time.Duration { return t.ttl }

// Issue returns a ticket for sessionID.
func (t *Tickets) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    ticketIssuer,
		Subject:   sessionID,
		Audience:  jwt.ClaimStrings{ticketAud},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign ticket: %w", err)
	}
	return signed, nil
}

// Verify returns the session id a ticket was issued for.
func (t *Tickets) Verify(ticket string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(ticket, &claims,
		func(*jwt.Token) (interface{}, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ticketIssuer),
		jwt.WithAudience(ticketAud),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidTicket
	}
	return claims.Subject, nil
}
