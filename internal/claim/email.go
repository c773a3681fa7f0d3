// Package claim grants one discount per real mailbox to players on a win
// streak.
package claim

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/text/cases"
)

var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrDisposableEmail = errors.New("disposable email addresses are not accepted")
)

const (
	maxEmailLen = 254
	maxLocalLen = 64
)

// defaultDisposable lists throwaway-mail domains rejected by default.
var defaultDisposable = []string{
	"10minutemail.com",
	"dispostable.com",
	"fakeinbox.com",
	"getnada.com",
	"guerrillamail.com",
	"guerrillamail.net",
	"mailinator.com",
	"maildrop.cc",
	"sharklasers.com",
	"temp-mail.org",
	"tempmail.com",
	"throwawaymail.com",
	"trashmail.com",
	"yopmail.com",
}

// foldCase returns the Unicode case fold of s. A Caser is stateful, so one is
// built per call.
func foldCase(s string) string { return cases.Fold().String(s) }

// ValidateEmail checks that s is a bare address (no display name) with a
// dotted domain whose mailbox survives normalization.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxEmailLen {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return ErrInvalidEmail
	}
	local, domain, ok := splitAddress(s)
	if !ok || len(local) > maxLocalLen {
		return ErrInvalidEmail
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return ErrInvalidEmail
	}
	// "+promo@gmail.com" normalizes to "@gmail.com", which every such address would share.
	if _, _, ok := splitAddress(NormalizeEmail(s)); !ok {
		return ErrInvalidEmail
	}
	return nil
}

// DisposableList is a set of blocked domains.
type DisposableList map[string]struct{}

// NewDisposableList returns the default list plus extra domains.
func NewDisposableList(extra ...string) DisposableList {
	l := make(DisposableList, len(defaultDisposable)+len(extra))
	for _, d := range defaultDisposable {
		l[d] = struct{}{}
	}
	for _, d := range extra {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			l[d] = struct{}{}
		}
	}
	return l
}

// IsDisposable reports whether the address's domain, or any parent domain,
// is on the list.
func (l DisposableList) IsDisposable(email string) bool {
	_, domain, ok := splitAddress(foldCase(strings.TrimSpace(email)))
	if !ok {
		return false
	}
	for domain != "" {
		if _, hit := l[domain]; hit {
			return true
		}
		i := strings.IndexByte(domain, '.')
		if i < 0 {
			break
		}
		domain = domain[i+1:]
	}
	return false
}

// NormalizeEmail maps every alias of a mailbox to one canonical form:
// case-folded, googlemail.com folded into gmail.com, "+tag" suffixes
// dropped, and dots removed from Gmail local parts. It is idempotent.
func NormalizeEmail(email string) string {
	e := foldCase(strings.TrimSpace(email))
	local, domain, ok := splitAddress(e)
	if !ok {
		return e
	}
	if domain == "googlemail.com" {
		domain = "gmail.com"
	}
	if i := strings.IndexByte(local, '+'); i >= 0 {
		local = local[:i]
	}
	if domain == "gmail.com" {
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain
}

// HashEmail returns the hex SHA-256 of an already normalized address. Only
// the hash is ever stored.
func HashEmail(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func splitAddress(s string) (local, domain string, ok bool) {
	i := strings.LastIndexByte(s, '@')
	if i <= 0 || i == len(s)-1 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
