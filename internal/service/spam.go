package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// spamMinLength is the trimmed length below which a reason is checked
// against spamTokens.
const spamMinLength = 10

var spamTokens = map[string]struct{}{
	"test":    {},
	"testing": {},
	"hi":      {},
	"hello":   {},
	"hey":     {},
	"lol":     {},
	"asdf":    {},
	"spam":    {},
	"yo":      {},
	"sup":     {},
}

// IsSpam reports whether a support reason is short and contains a
// low-effort token. Both conditions must hold, so "hi, my order never
// arrived" passes while "hi" and "test lol" do not.
func IsSpam(reason string) bool {
	trimmed := strings.TrimSpace(reason)
	if utf8.RuneCountInString(trimmed) >= spamMinLength {
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(trimmed), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := spamTokens[w]; ok {
			return true
		}
	}
	return false
}
