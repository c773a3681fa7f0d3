package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"a@b.co",
		"test.user@gmail.com",
		"first+tag@example.org",
		"  padded@example.com  ",
	}
	invalid := []string{
		"",
		"plain",
		"@example.com",
		"user@",
		"user@localhost",
		"user@.example.com",
		"user@example.com.",
		"Name <user@example.com>",
		"user@@example.com",
		"a b@example.com",
		"+promo@gmail.com",
		"+promo@example.com",
		"+@googlemail.com",
		string(make([]byte, 300)) + "@example.com",
	}
	for _, e := range valid {
		assert.NoError(t, ValidateEmail(e), e)
	}
	for _, e := range invalid {
		assert.ErrorIs(t, ValidateEmail(e), ErrInvalidEmail, e)
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Test.User@Gmail.com", "testuser@gmail.com"},
		{"testuser+promo@gmail.com", "testuser@gmail.com"},
		{"t.e.s.t.user+x+y@googlemail.com", "testuser@gmail.com"},
		{"first.last+news@example.com", "first.last@example.com"},
		{"  MiXeD@Example.COM ", "mixed@example.com"},
		{"not-an-email", "not-an-email"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEmail(tt.in), tt.in)
	}
}

func TestNormalizeEmailIdempotent(t *testing.T) {
	inputs := []string{
		"Test.User@Gmail.com", "a+b+c@googlemail.com", "x.y@example.com",
		"ÉCOLE@Example.fr", "straße@example.de", "user@", "",
	}
	for _, in := range inputs {
		once := NormalizeEmail(in)
		assert.Equal(t, once, NormalizeEmail(once), in)
	}
}

func TestAliasesShareHash(t *testing.T) {
	aliases := []string{
		"test.user@gmail.com",
		"testuser+promo@gmail.com",
		"TestUser@googlemail.com",
		"t.e.s.t.u.s.e.r@gmail.com",
	}
	want := HashEmail(NormalizeEmail(aliases[0]))
	assert.Len(t, want, 64)
	for _, a := range aliases[1:] {
		assert.Equal(t, want, HashEmail(NormalizeEmail(a)), a)
	}
	assert.NotEqual(t, want, HashEmail(NormalizeEmail("test.user@example.com")))
}

func TestDisposable(t *testing.T) {
	l := NewDisposableList("Burner.Example")
	assert.True(t, l.IsDisposable("x@mailinator.com"))
	assert.True(t, l.IsDisposable("x@MAILINATOR.com"))
	assert.True(t, l.IsDisposable("x@eu.mailinator.com"))
	assert.True(t, l.IsDisposable("x@burner.example"))
	assert.False(t, l.IsDisposable("x@gmail.com"))
	assert.False(t, l.IsDisposable("nonsense"))
}

func TestDiscountTiers(t *testing.T) {
	codes := Codes{Ten: "TENOFF"}
	tests := []struct {
		streak  int
		percent int
		code    string
		ok      bool
	}{
		{-1, 0, "", false},
		{0, 0, "", false},
		{1, 5, "ACES5", true},
		{2, 10, "TENOFF", true},
		{3, 15, "ACES15", true},
		{12, 15, "ACES15", true},
	}
	for _, tt := range tests {
		d, ok := codes.DiscountFor(tt.streak)
		assert.Equal(t, tt.ok, ok, "streak %d", tt.streak)
		assert.Equal(t, tt.percent, d.Percent, "streak %d", tt.streak)
		assert.Equal(t, tt.code, d.Code, "streak %d", tt.streak)
	}
}
