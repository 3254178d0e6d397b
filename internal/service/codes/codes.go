// Package codes provides generation and validation of short human-enterable
// sharing codes. A code is a casual sharing token, not a secret, so plain
// math/rand sampling is sufficient.
package codes

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Alphabet holds the allowed code symbols, uppercase letters and digits
// excluding the visually ambiguous O, I, 0 and 1.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the fixed code length.
const Length = 4

// MaxAttempts caps collision resampling before giving up.
const MaxAttempts = 20

// Generator produces random code candidates.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator initializes a Generator seeded from the wall clock.
func NewGenerator() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Generate returns one uniformly random code candidate. Liveness checking is
// the caller's concern.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := make([]byte, Length)
	for i := range b {
		b[i] = Alphabet[g.rnd.Intn(len(Alphabet))]
	}
	return string(b)
}

// Valid reports whether a string is exactly Length allowed symbols.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
