package dynamic

import (
	"crypto/rand"
	"fmt"
	"io"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// rejectAbove is the largest multiple of len(alphanumeric) that fits in a
// byte. Source bytes at or above it are discarded so every symbol keeps the
// same probability.
const rejectAbove = 256 - 256%len(alphanumeric)

// Generator produces random payloads from an explicitly owned entropy source.
// The source must be safe for concurrent use; crypto/rand.Reader is.
type Generator struct {
	source io.Reader
}

// NewGenerator creates a generator reading from source, or from
// crypto/rand.Reader when source is nil.
func NewGenerator(source io.Reader) *Generator {
	if source == nil {
		source = rand.Reader
	}
	return &Generator{source: source}
}

// Bytes returns exactly n random bytes.
func (g *Generator) Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	return buf, nil
}

// Chars returns exactly n characters, each drawn uniformly from [a-zA-Z0-9].
func (g *Generator) Chars(n int) ([]byte, error) {
	out := make([]byte, n)
	// Roughly 3% of source bytes are rejected, so over-read a little.
	chunk := make([]byte, min(n+n/16+16, 64*1024))

	filled := 0
	for filled < n {
		want := min(len(chunk), (n-filled)+(n-filled)/16+16)
		if _, err := io.ReadFull(g.source, chunk[:want]); err != nil {
			return nil, fmt.Errorf("read entropy: %w", err)
		}
		for _, b := range chunk[:want] {
			if int(b) >= rejectAbove {
				continue
			}
			out[filled] = alphanumeric[int(b)%len(alphanumeric)]
			filled++
			if filled == n {
				break
			}
		}
	}
	return out, nil
}
