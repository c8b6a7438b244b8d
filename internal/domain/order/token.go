package order

import (
	"crypto/rand"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// tokenAlphabet excludes ambiguous characters (0/O, 1/I/L) so tokens can
// be read out loud at the pickup counter.
const tokenAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// TokenLength is the length of a pickup token.
const TokenLength = 8

// ErrTokenSpaceExhausted is returned when repeated draws keep colliding
// with tokens already issued by this generator.
var ErrTokenSpaceExhausted = errors.New("could not generate a unique token")

const tokenMaxAttempts = 5

// TokenGenerator produces short human-readable pickup codes. A bloom
// filter of locally issued tokens cheaply rejects repeats before the
// database unique constraint ever sees them; false positives only cost an
// extra draw.
type TokenGenerator struct {
	mu     sync.Mutex
	issued *bloom.BloomFilter
}

// NewTokenGenerator returns a generator sized for the expected daily order
// volume of a whole canteen with headroom.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{
		issued: bloom.NewWithEstimates(1_000_000, 0.001),
	}
}

// Next returns a fresh token not seen by this generator before.
func (g *TokenGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for range tokenMaxAttempts {
		tok, err := randomToken()
		if err != nil {
			return "", err
		}
		if g.issued.TestAndAddString(tok) {
			continue
		}
		return tok, nil
	}
	return "", ErrTokenSpaceExhausted
}

func randomToken() (string, error) {
	// Reject bytes >= 248 (the largest multiple of len(tokenAlphabet)
	// below 256); taking them modulo 31 would skew the draw towards the
	// start of the alphabet.
	const limit = byte(256 - 256%len(tokenAlphabet))

	out := make([]byte, 0, TokenLength)
	var buf [2 * TokenLength]byte
	for len(out) < TokenLength {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", errors.Wrap(err, "read random bytes")
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}
	return string(out), nil
}
