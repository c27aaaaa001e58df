package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSpam(t *testing.T) {
	cases := []struct {
		reason string
		spam   bool
	}{
		{"", false},
		{"hi", true},
		{"HELLO", true},
		{"test 123", true},
		{"  yo  ", true},
		{"sup?", true},
		{"help me", false},
		{"refund", false},
		{"this", false},
		{"hi, my order never arrived", false},
		{"testing the waters here", false},
		{"hihihi", false},
		{"lolz", false},
	}
	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			assert.Equal(t, tc.spam, IsSpam(tc.reason))
		})
	}
}
