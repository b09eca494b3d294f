package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterRefills(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("brapi"))
	assert.True(t, l.Allow("brapi"))
	assert.False(t, l.Allow("brapi"))
	assert.True(t, l.Allow("other"), "keys are independent")

	clock = clock.Add(500 * time.Millisecond)
	assert.False(t, l.Allow("brapi"))
	clock = clock.Add(500 * time.Millisecond)
	assert.True(t, l.Allow("brapi"))

	clock = clock.Add(time.Hour)
	assert.True(t, l.Allow("brapi"))
	assert.True(t, l.Allow("brapi"))
	assert.False(t, l.Allow("brapi"), "capacity caps the refill")
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := New(1, 0.001)
	assert.NoError(t, l.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, "k"), context.DeadlineExceeded)
}
