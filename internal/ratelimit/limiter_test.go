package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterPerKey(t *testing.T) {
	l := NewLimiter(2, time.Hour, 2)

	assert.True(t, l.Allow("alice"))
	assert.True(t, l.Allow("alice"))
	assert.False(t, l.Allow("alice"))

	// Buckets are independent
	assert.True(t, l.Allow("bob"))
	assert.Same(t, l.GetLimiter("bob"), l.GetLimiter("bob"))
}

func TestUnlimited(t *testing.T) {
	l := Unlimited()
	for i := 0; i < 1000; i++ {
		require.True(t, l.Allow("saucelabs"))
	}
	require.NoError(t, l.Wait(context.Background(), "saucelabs"))
}

func TestWaitHonoursContext(t *testing.T) {
	l := NewLimiter(1, time.Hour, 1)
	require.NoError(t, l.Wait(context.Background(), "browserstack"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "browserstack"))
}

func TestBurstFloor(t *testing.T) {
	l := NewLimiter(10, time.Minute, 0)
	assert.InDelta(t, 1, l.Tokens("local"), 0.01)
}
