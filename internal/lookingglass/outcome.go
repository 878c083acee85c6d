package lookingglass

import (
	"context"
	"maps"
	"sync"
)

// Outcome is what a handler reported about the exchange it served, such as
// the delay it waited or the size it generated.
type Outcome map[string]any

type outcomeKey struct{}

type outcomeRecorder struct {
	mu     sync.Mutex
	fields Outcome
}

// WithOutcome returns a context that collects Annotate calls, and a func that
// returns what was collected so far.
func WithOutcome(ctx context.Context) (context.Context, func() Outcome) {
	rec := &outcomeRecorder{fields: make(Outcome)}
	return context.WithValue(ctx, outcomeKey{}, rec), func() Outcome {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		if len(rec.fields) == 0 {
			return nil
		}
		return maps.Clone(rec.fields)
	}
}

// Annotate records key=value on the exchange being captured. It is a no-op
// when the request is not being captured.
func Annotate(ctx context.Context, key string, value any) {
	rec, ok := ctx.Value(outcomeKey{}).(*outcomeRecorder)
	if !ok {
		return
	}
	rec.mu.Lock()
	rec.fields[key] = value
	rec.mu.Unlock()
}
