package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "Chrome 120", 100, "Chrome 120"},
		{"exact", "abcd", 4, "abcd"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"rune straddles limit", "abc" + "é", 4, "abc"},
		{"wide rune straddles limit", "ab" + "日本", 4, "ab"},
		{"invalid bytes dropped", "ab\xffcd", 10, "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateText(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestTruncateUserAgentKeepsValidUTF8(t *testing.T) {
	ua := strings.Repeat("a", 199) + "é" + "tail"
	got := TruncateUserAgent(ua)
	assert.Len(t, got, 199)
	assert.True(t, utf8.ValidString(got))
}
