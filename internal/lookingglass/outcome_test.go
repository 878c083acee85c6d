package lookingglass

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnotateCollectsFields(t *testing.T) {
	ctx, outcome := WithOutcome(context.Background())
	assert.Nil(t, outcome())

	Annotate(ctx, "delay_seconds", 3)
	Annotate(ctx, "rejected", "Body too large")

	got := outcome()
	assert.Equal(t, Outcome{"delay_seconds": 3, "rejected": "Body too large"}, got)

	got["delay_seconds"] = 99
	assert.Equal(t, 3, outcome()["delay_seconds"])
}

func TestAnnotateWithoutRecorder(t *testing.T) {
	assert.NotPanics(t, func() {
		Annotate(context.Background(), "ignored", true)
	})
}
