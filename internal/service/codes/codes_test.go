package codes

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Tests

func TestGenerate(t *testing.T) {
	g := NewGenerator()
	re := regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}$`)
	for i := 0; i < 1000; i++ {
		code := g.Generate()
		assert.Regexp(t, re, code)
	}
}

func TestAlphabet(t *testing.T) {
	for _, ambiguous := range []string{"O", "I", "0", "1"} {
		assert.False(t, strings.Contains(Alphabet, ambiguous))
	}
	seen := make(map[rune]bool)
	for _, r := range Alphabet {
		assert.False(t, seen[r])
		seen[r] = true
	}
	assert.Equal(t, 32, len(seen))
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{
			name:  "valid code",
			code:  "AB2Z",
			valid: true,
		},
		{
			name:  "too short",
			code:  "AB2",
			valid: false,
		},
		{
			name:  "too long",
			code:  "AB2ZZ",
			valid: false,
		},
		{
			name:  "lowercase",
			code:  "ab2z",
			valid: false,
		},
		{
			name:  "ambiguous letter O",
			code:  "ABO2",
			valid: false,
		},
		{
			name:  "ambiguous digit 0",
			code:  "AB02",
			valid: false,
		},
		{
			name:  "ambiguous letter I",
			code:  "ABI2",
			valid: false,
		},
		{
			name:  "ambiguous digit 1",
			code:  "AB12",
			valid: false,
		},
		{
			name:  "empty",
			code:  "",
			valid: false,
		},
	}

	// perform each test
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Valid(tt.code))
		})
	}
}

// Benchmarks

func BenchmarkGenerate(b *testing.B) {
	g := NewGenerator()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Generate()
	}
}
