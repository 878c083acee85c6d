package dynamic

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alphanumericPattern = regexp.MustCompile(`^[a-zA-Z0-9]*$`)

// repeatReader yields the same byte forever
type repeatReader byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func TestGeneratorBytesLength(t *testing.T) {
	g := NewGenerator(nil)
	for _, n := range []int{1, 7, 1024, 100_000} {
		data, err := g.Bytes(n)
		require.NoError(t, err)
		assert.Len(t, data, n)
	}
}

func TestGeneratorCharsLengthAndAlphabet(t *testing.T) {
	g := NewGenerator(nil)
	for _, n := range []int{1, 62, 1000, 250_000} {
		data, err := g.Chars(n)
		require.NoError(t, err)
		assert.Len(t, data, n)
		assert.Regexp(t, alphanumericPattern, string(data))
	}
}

func TestGeneratorCharsRejectsBiasedBytes(t *testing.T) {
	// 248..255 would favour the first eight symbols and must be skipped.
	prefix := []byte{248, 255, 0, 61, 62, 250, 247}
	g := NewGenerator(io.MultiReader(bytes.NewReader(prefix), repeatReader(1)))

	data, err := g.Chars(5)
	require.NoError(t, err)
	// 0 -> 'a', 61 -> '9', 62 -> 'a', 247 % 62 = 61 -> '9', then 1 -> 'b'
	assert.Equal(t, "a9a9b", string(data))
}

func TestGeneratorCharsOnlyRejectedInput(t *testing.T) {
	g := NewGenerator(io.MultiReader(io.LimitReader(repeatReader(255), 1000), repeatReader(3)))

	data, err := g.Chars(10)
	require.NoError(t, err)
	assert.Equal(t, "dddddddddd", string(data))
}

func TestGeneratorCharsCoversAlphabet(t *testing.T) {
	data, err := NewGenerator(nil).Chars(62 * 200)
	require.NoError(t, err)

	seen := make(map[byte]int)
	for _, c := range data {
		seen[c]++
	}
	assert.Len(t, seen, len(alphanumeric))
}

func TestGeneratorEntropyFailure(t *testing.T) {
	boom := errors.New("entropy exhausted")
	g := NewGenerator(iotest.ErrReader(boom))

	_, err := g.Bytes(8)
	assert.ErrorIs(t, err, boom)

	_, err = g.Chars(8)
	assert.ErrorIs(t, err, boom)
}

func TestGeneratorProducesDifferentOutputs(t *testing.T) {
	g := NewGenerator(nil)
	a, err := g.Chars(100)
	require.NoError(t, err)
	b, err := g.Chars(100)
	require.NoError(t, err)
	assert.NotEqual(t, string(a), string(b))
}
