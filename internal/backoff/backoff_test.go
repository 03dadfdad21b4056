package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_DelayGrowth(t *testing.T) {
	p := Policy{Base: 100 * time.Millisecond, Multiplier: 2, MaxAttempts: 3}

	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
}

func TestPolicy_MaxDelayCap(t *testing.T) {
	p := Policy{Base: time.Second, Multiplier: 10, MaxAttempts: 5, MaxDelay: 3 * time.Second}

	assert.Equal(t, 3*time.Second, p.Delay(3))
}

func TestPolicy_NegativeAttempt(t *testing.T) {
	p := Default()
	assert.Equal(t, p.Delay(0), p.Delay(-1))
}

func TestPolicy_Exhausted(t *testing.T) {
	p := Policy{MaxAttempts: 3}

	assert.False(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(3))
}

func TestPolicy_SleepCancelled(t *testing.T) {
	p := Policy{Base: time.Minute, Multiplier: 2, MaxAttempts: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Sleep(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
