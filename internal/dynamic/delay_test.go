package dynamic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWait records requested durations without sleeping
type recordingWait struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (w *recordingWait) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, d)
	return w.err
}

func (w *recordingWait) Calls() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.calls...)
}

func newTestDelayHandler(w *recordingWait) *DelayHandler {
	return NewDelayHandler(60, 1024, w.wait, nil)
}

func TestDelayHandlerRejectsBeforeSuspending(t *testing.T) {
	rec := &recordingWait{}
	h := newTestDelayHandler(rec)

	_, err := h.Serve(context.Background(), httptest.NewRequest("GET", "/delay/65", nil), 65)
	assert.ErrorIs(t, err, ErrDelayTooLong)

	_, err = h.Serve(context.Background(), httptest.NewRequest("GET", "/delay/-1", nil), -1)
	assert.ErrorIs(t, err, ErrInvalidDelay)

	assert.Empty(t, rec.Calls())
}

func TestDelayHandlerSuspendsForRequestedSeconds(t *testing.T) {
	rec := &recordingWait{}
	h := newTestDelayHandler(rec)

	result, err := h.Serve(context.Background(), httptest.NewRequest("GET", "/delay/3?test=value", nil), 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, rec.Calls())
	assert.Equal(t, "GET", result.Method)
	assert.Equal(t, "value", result.Args["test"].String())
}

func TestDelayHandlerInterrupted(t *testing.T) {
	h := NewDelayHandler(60, 1024, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	result, err := h.Serve(ctx, httptest.NewRequest("GET", "/delay/5", nil), 5)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Nil(t, result)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDelayHandlerInterruptedMidway(t *testing.T) {
	h := NewDelayHandler(60, 1024, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.Serve(ctx, httptest.NewRequest("POST", "/delay/10", strings.NewReader("body")), 10)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDelayHandlerWaitFailureIsInterrupted(t *testing.T) {
	h := newTestDelayHandler(&recordingWait{err: errors.New("host cancelled")})

	_, err := h.Serve(context.Background(), httptest.NewRequest("GET", "/delay/1", nil), 1)
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestSleepContextWaitsAtLeastDuration(t *testing.T) {
	start := time.Now()
	require.NoError(t, SleepContext(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	require.NoError(t, SleepContext(context.Background(), 0))
}

func TestDelayHandlerComposeBody(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		body     string
		wantData bool
		wantJSON bool
	}{
		{"post json object", http.MethodPost, `{"test":"data"}`, true, true},
		{"put json array", http.MethodPut, "  [1,2,3]\n", true, true},
		{"post plain text", http.MethodPost, "hello", true, false},
		{"post whitespace only", http.MethodPost, " \t\n ", false, false},
		{"post empty", http.MethodPost, "", false, false},
		{"get with body", http.MethodGet, `{"ignored":true}`, false, false},
		{"delete with body", http.MethodDelete, `{"ignored":true}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestDelayHandler(&recordingWait{})
			r := httptest.NewRequest(tt.method, "/delay/1", strings.NewReader(tt.body))

			result, err := h.Serve(context.Background(), r, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.method, result.Method)

			if tt.wantData {
				require.NotNil(t, result.Data)
				assert.Equal(t, tt.body, *result.Data, "body is echoed untrimmed")
			} else {
				assert.Nil(t, result.Data)
			}

			if tt.wantJSON {
				require.NotNil(t, result.JSON)
				assert.Equal(t, tt.body, *result.JSON)
			} else {
				assert.Nil(t, result.JSON)
			}
		})
	}
}

func TestDelayHandlerNoBody(t *testing.T) {
	h := newTestDelayHandler(&recordingWait{})

	result, err := h.Serve(context.Background(), httptest.NewRequest(http.MethodPost, "/delay/1", nil), 1)
	require.NoError(t, err)
	assert.Nil(t, result.Data)
	assert.Nil(t, result.JSON)
}

func TestDelayHandlerBodyTooLarge(t *testing.T) {
	rec := &recordingWait{}
	h := NewDelayHandler(60, 8, rec.wait, nil)

	_, err := h.Serve(context.Background(), httptest.NewRequest(http.MethodPut, "/delay/5", strings.NewReader("123456789")), 5)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Empty(t, rec.Calls(), "oversized body is rejected before waiting")

	result, err := h.Serve(context.Background(), httptest.NewRequest(http.MethodPut, "/delay/1", strings.NewReader("12345678")), 1)
	require.NoError(t, err)
	require.NotNil(t, result.Data)
	assert.Equal(t, "12345678", *result.Data)
}

// blockingBody fails every read once the handler has started waiting.
type blockingBody struct {
	waited *bool
	data   *strings.Reader
}

func (b blockingBody) Read(p []byte) (int, error) {
	if *b.waited {
		return 0, errors.New("read after wait")
	}
	return b.data.Read(p)
}

func (b blockingBody) Close() error { return nil }

func TestDelayHandlerReadsBodyBeforeWaiting(t *testing.T) {
	waited := false
	h := NewDelayHandler(60, 1024, func(ctx context.Context, d time.Duration) error {
		waited = true
		return nil
	}, nil)

	r := httptest.NewRequest(http.MethodPost, "/delay/3", nil)
	r.Body = blockingBody{waited: &waited, data: strings.NewReader(`{"k":"v"}`)}

	result, err := h.Serve(context.Background(), r, 3)
	require.NoError(t, err)
	assert.True(t, waited)
	require.NotNil(t, result.Data)
	assert.Equal(t, `{"k":"v"}`, *result.Data)
}
