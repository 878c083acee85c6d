package dynamic

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSnapshotFoldsArgs(t *testing.T) {
	r := httptest.NewRequest("GET", "http://mirror.test/delay/1?single=one&multi=a&multi=b&multi=c&empty=", nil)

	snap := BuildSnapshot(r)

	require.Contains(t, snap.Args, "single")
	assert.False(t, snap.Args["single"].IsSequence())
	assert.Equal(t, "one", snap.Args["single"].String())

	require.Contains(t, snap.Args, "multi")
	assert.True(t, snap.Args["multi"].IsSequence())
	assert.Equal(t, []string{"a", "b", "c"}, snap.Args["multi"].Values())

	require.Contains(t, snap.Args, "empty")
	assert.Equal(t, "", snap.Args["empty"].String())
}

func TestBuildSnapshotNoArgs(t *testing.T) {
	snap := BuildSnapshot(httptest.NewRequest("GET", "/delay/1", nil))
	assert.NotNil(t, snap.Args)
	assert.Empty(t, snap.Args)
}

func TestBuildSnapshotHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "http://mirror.test/delay/1", nil)
	r.Header.Add("X-Multi", "first")
	r.Header.Add("X-Multi", "second")
	r.Header.Set("User-Agent", "mirror-test")

	snap := BuildSnapshot(r)

	assert.Equal(t, "first", snap.Headers["X-Multi"])
	assert.Equal(t, "mirror-test", snap.Headers["User-Agent"])
	assert.Equal(t, "mirror.test", snap.Headers["Host"])
}

func TestBuildSnapshotOriginIgnoresForwardingHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "/delay/1", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	snap := BuildSnapshot(r)
	assert.Equal(t, "203.0.113.9", snap.Origin)

	r.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", BuildSnapshot(r).Origin)

	r.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", BuildSnapshot(r).Origin)
}

func TestBuildSnapshotURL(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"with query", "http://mirror.test:8080/delay/1?test=value&x=%20y", "http://mirror.test:8080/delay/1?test=value&x=%20y"},
		{"without query", "http://mirror.test/delay/2", "http://mirror.test/delay/2"},
		{"bare question mark", "http://mirror.test/delay/2?", "http://mirror.test/delay/2"},
		{"tls", "https://mirror.test/delay/0?a=1", "https://mirror.test/delay/0?a=1"},
		{"escaped path", "http://mirror.test/delay/1/a%20b", "http://mirror.test/delay/1/a%20b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSnapshot(httptest.NewRequest("GET", tt.target, nil)).URL)
		})
	}
}

func TestBuildSnapshotSkipsMalformedPairs(t *testing.T) {
	r := httptest.NewRequest("GET", "http://mirror.test/delay/1?a=1&b=%zz&c=3;d=4&e=5", nil)

	snap := BuildSnapshot(r)

	assert.Equal(t, "1", snap.Args["a"].String())
	assert.Equal(t, "5", snap.Args["e"].String())
	assert.NotContains(t, snap.Args, "b")
	assert.NotContains(t, snap.Args, "c")
	assert.Equal(t, "http://mirror.test/delay/1?a=1&b=%zz&c=3;d=4&e=5", snap.URL)
}
