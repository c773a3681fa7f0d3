// Package session tracks anonymous play sessions and their win streaks, and
// issues the HMAC-signed tokens clients present back to the server.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

// ErrEmptySecret is returned when a Signer is built without a secret.
var ErrEmptySecret = errors.New("session secret must not be empty")

// TokenPayload is the signed content of a session token.
type TokenPayload struct {
	SessionID string `json:"sessionId"`
	WinStreak int    `json:"winStreak"`
	Timestamp int64  `json:"timestamp"` // unix millis at issue time
}

// envelope is the outer token structure: the payload exactly as signed, and
// its hex HMAC-SHA256.
type envelope struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// Signer issues and verifies session tokens.
type Signer struct {
	secret []byte
	maxAge time.Duration // 0 = no age limit
	now    func() time.Time
}

// NewSigner returns a Signer for secret. A positive maxAge rejects tokens
// older than that.
func NewSigner(secret string, maxAge time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret), maxAge: maxAge, now: time.Now}, nil
}

// Issue signs p, stamping the current time if p.Timestamp is zero.
func (s *Signer) Issue(p TokenPayload) (string, error) {
	if p.Timestamp == 0 {
		p.Timestamp = s.now().UnixMilli()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	env, err := json.Marshal(envelope{Payload: string(raw), Signature: s.sign(raw)})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(env), nil
}

// Verify decodes token and checks its signature in constant time. Any
// malformed, tampered or expired token yields ok == false; it never panics.
func (s *Signer) Verify(token string) (TokenPayload, bool) {
	var p TokenPayload
	if token == "" {
		return p, false
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return p, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Payload == "" || env.Signature == "" {
		return p, false
	}
	got, err := hex.DecodeString(env.Signature)
	if err != nil {
		return p, false
	}
	if !hmac.Equal(got, s.mac([]byte(env.Payload))) {
		return p, false
	}
	if err := json.Unmarshal([]byte(env.Payload), &p); err != nil || p.SessionID == "" {
		return TokenPayload{}, false
	}
	if s.maxAge > 0 && s.now().Sub(time.UnixMilli(p.Timestamp)) > s.maxAge {
		return TokenPayload{}, false
	}
	return p, true
}

func (s *Signer) mac(b []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(b)
	return h.Sum(nil)
}

func (s *Signer) sign(b []byte) string { return hex.EncodeToString(s.mac(b)) }
