package requests

import (
	"math/rand"
	"strings"
)

const (
	RandomPlaceholder = "{{random}}"

	tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	NameLength    = 7
	ValueLength   = 8
)

// RandomToken returns n random lowercase alphanumeric characters.
func RandomToken(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(tokenAlphabet[rand.Intn(len(tokenAlphabet))])
	}
	return b.String()
}

// RandomName generates a parameter name for which avoid returns false.
// avoid may be nil.
func RandomName(avoid func(string) bool) string {
	for {
		name := RandomToken(NameLength)
		if avoid == nil || !avoid(name) {
			return name
		}
	}
}

// fillRandom replaces every {{random}} with its own fresh token.
func fillRandom(s string) string {
	for strings.Contains(s, RandomPlaceholder) {
		s = strings.Replace(s, RandomPlaceholder, RandomToken(ValueLength), 1)
	}
	return s
}
