package engine

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ChainTokenGenerator generates tokens that correlate the activations of
// one chain. Implemented by UUIDv7Generator (production) and
// FixedGenerator (tests).
type ChainTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 chain tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens sort
// by creation time in logs and the activation table.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined chain tokens for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
//
// Example:
//
//	gen := NewFixedGenerator("chain-1", "chain-2")
//	gen.Generate() // "chain-1"
//	gen.Generate() // "chain-2"
//	gen.Generate() // panic: all tokens exhausted
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed, to catch a test that opened more
// chains than it expected.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// SequenceGenerator returns prefix-1, prefix-2, ... without limit.
// Used by scripted runs that need stable tokens but cannot know in
// advance how many chains will open.
type SequenceGenerator struct {
	Prefix string
	mu     sync.Mutex
	n      int
}

// Generate returns the next token in the sequence.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.Prefix + "-" + strconv.Itoa(g.n)
}
