package utils

import (
	"crypto/rand"
	"regexp"
	"strings"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// GenUsername returns a random username such as "user-k3x9a0q2mf".
func GenUsername() string {
	return "user-" + randomBase36(10)
}

// GenSlug lowercases title, drops punctuation, joins words with dashes and
// appends a random suffix so two posts with the same title never collide.
func GenSlug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 150 {
		s = strings.TrimRight(s[:150], "-")
	}
	if s == "" {
		return "blog-" + randomBase36(10)
	}
	return s + "-" + randomBase36(10)
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = base36[int(b)%len(base36)]
	}
	return string(buf)
}
