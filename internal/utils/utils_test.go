package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.False(t, VerifyPassword("", "s3cret-pass"))
}

func TestHashPasswordLimits(t *testing.T) {
	_, err := HashPassword(strings.Repeat("é", 40), bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	hash, err := HashPassword(strings.Repeat("a", MaxPasswordBytes), 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(7)
	require.NoError(t, err)
	b, err := NewRefreshToken(7)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), a.Exp, time.Minute)

	assert.Len(t, HashRefreshRaw(a.Raw), 64)
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
	assert.NotEqual(t, HashRefreshRaw(a.Raw), HashRefreshRaw(b.Raw))
}

func TestGenUsername(t *testing.T) {
	re := regexp.MustCompile(`^user-[0-9a-z]{10}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		u := GenUsername()
		assert.Regexp(t, re, u)
		assert.LessOrEqual(t, len(u), 20)
		seen[u] = true
	}
	assert.Len(t, seen, 100)
}

func TestGenSlug(t *testing.T) {
	cases := map[string]string{
		"Hello World":              "hello-world",
		"  Go, Generics & You!  ":  "go-generics-you",
		"multiple   spaces--dash":  "multiple-spaces-dash",
		"!!!":                      "blog",
	}
	for title, prefix := range cases {
		slug := GenSlug(title)
		assert.Regexp(t, regexp.MustCompile("^"+regexp.QuoteMeta(prefix)+"-[0-9a-z]{10}$"), slug, title)
	}
	assert.NotEqual(t, GenSlug("same"), GenSlug("same"))
}
