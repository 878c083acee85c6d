package dynamic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ParleSec/MirrorBin/internal/metrics"
	"github.com/ParleSec/MirrorBin/pkg/models"
)

// WaitFunc blocks for d or until ctx is done, whichever comes first.
type WaitFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default WaitFunc. The timer never fires early, so the
// caller always observes at least d.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DelayHandler implements /delay/{seconds}: validate, suspend, snapshot,
// compose. It keeps no state between requests.
type DelayHandler struct {
	maxSeconds   int
	maxBodyBytes int64
	wait         WaitFunc
	metrics      *metrics.Metrics
}

// NewDelayHandler creates a delay handler. A nil wait uses SleepContext.
func NewDelayHandler(maxSeconds int, maxBodyBytes int64, wait WaitFunc, m *metrics.Metrics) *DelayHandler {
	if wait == nil {
		wait = SleepContext
	}
	return &DelayHandler{
		maxSeconds:   maxSeconds,
		maxBodyBytes: maxBodyBytes,
		wait:         wait,
		metrics:      m,
	}
}

// MaxSeconds returns the configured delay ceiling
func (h *DelayHandler) MaxSeconds() int {
	return h.maxSeconds
}

// Serve runs the whole state machine for one request. The body of a POST or
// PUT is read and bounded before the wait, so an oversized body is rejected
// up front and a slow delay never outlives the connection's read deadline.
func (h *DelayHandler) Serve(ctx context.Context, r *http.Request, seconds int) (*models.DelayEchoResult, error) {
	// Validate
	if _, err := ValidateDelay(seconds, h.maxSeconds); err != nil {
		return nil, err
	}
	var body string
	if carriesBody(r.Method) {
		var err error
		if body, err = h.readBody(r); err != nil {
			return nil, err
		}
	}

	// Suspend
	if err := h.suspend(ctx, time.Duration(seconds)*time.Second); err != nil {
		return nil, err
	}

	// Snapshot
	result := &models.DelayEchoResult{
		RequestSnapshot: BuildSnapshot(r),
		Method:          r.Method,
	}

	// Compose
	if strings.TrimSpace(body) == "" {
		return result, nil
	}
	result.Data = &body
	if LooksLikeJSON(body) {
		hint := body
		result.JSON = &hint
	}
	return result, nil
}

func (h *DelayHandler) suspend(ctx context.Context, d time.Duration) error {
	done := h.metrics.DelayStarted()
	if err := h.wait(ctx, d); err != nil {
		done("interrupted")
		return fmt.Errorf("%w after waiting for %s: %w", ErrInterrupted, d, err)
	}
	done("completed")
	return nil
}

// readBody reads at most maxBodyBytes of the request body.
func (h *DelayHandler) readBody(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}
	limit := h.maxBodyBytes
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("read request body: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return string(data), nil
}

// carriesBody reports whether a method's body is echoed back.
func carriesBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut
}
