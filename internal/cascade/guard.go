package cascade

import "sync/atomic"

// Token identifies one issued request of a selector.
type Token uint64

// Guard hands out increasing tokens for a selector. Only the response that
// carries the latest token may be applied; everything older is stale.
type Guard struct {
	gen atomic.Uint64
}

// Issue starts a new generation and invalidates every earlier token.
func (g *Guard) Issue() Token {
	return Token(g.gen.Add(1))
}

// Current returns the latest issued token without starting a new generation.
func (g *Guard) Current() Token {
	return Token(g.gen.Load())
}

// Valid reports whether t is still the latest issued token.
func (g *Guard) Valid(t Token) bool {
	return g.gen.Load() == uint64(t)
}
